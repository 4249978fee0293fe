package data

import "time"

// EventType names an observable data manager event.
type EventType string

const (
	// EventDataLoaded fires after every successful Load.
	EventDataLoaded EventType = "dataLoaded"
	// EventDataUpdated fires after a watcher-triggered reload succeeds.
	EventDataUpdated EventType = "dataUpdated"
	// EventDataError fires when a load or reload fails outright.
	EventDataError EventType = "dataError"
	// EventFileChanged fires when a recognized data file is modified.
	EventFileChanged EventType = "fileChanged"
	// EventFileAdded fires when a recognized data file is created.
	EventFileAdded EventType = "fileAdded"
	// EventFileRemoved fires when a recognized data file is deleted.
	EventFileRemoved EventType = "fileRemoved"
	// EventWatchError fires when the filesystem watcher reports an error.
	EventWatchError EventType = "watchError"
)

// Event is the structured payload pushed to data manager subscribers.
type Event struct {
	Type     EventType
	Snapshot *Snapshot
	Path     string
	Warnings []string
	Err      error
	Time     time.Time
}

// EventHandler receives data manager events. Handlers are invoked
// synchronously and must not block.
type EventHandler func(Event)

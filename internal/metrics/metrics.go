// Package metrics exposes prometheus collectors fed by the breaker and data
// manager event streams. The core components know nothing about prometheus;
// the observer subscribes to their events and renders them as metrics on a
// private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"designkit/internal/breaker"
	"designkit/internal/data"
)

// Observer converts breaker and data manager events into prometheus
// metrics. Register its handlers with the breaker registry and the manager.
type Observer struct {
	registry *prometheus.Registry

	breakerCalls   *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
	dataLoads      *prometheus.CounterVec
	datasetEntries *prometheus.GaugeVec
}

// NewObserver creates an observer with all collectors registered on a fresh
// private registry.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		breakerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designkit_breaker_calls_total",
			Help: "Accounted circuit breaker call outcomes by breaker and outcome.",
		}, []string{"breaker", "outcome"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "designkit_breaker_state",
			Help: "Current circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"breaker"}),
		dataLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "designkit_data_loads_total",
			Help: "Dataset load attempts by status.",
		}, []string{"status"}),
		datasetEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "designkit_dataset_entries",
			Help: "Entries in the cached snapshot by dataset.",
		}, []string{"dataset"}),
	}

	o.registry.MustRegister(o.breakerCalls, o.breakerState, o.dataLoads, o.datasetEntries)
	return o
}

// Registry returns the private prometheus registry for embedding.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// BreakerHandler returns the event handler to register with the breaker
// registry.
func (o *Observer) BreakerHandler() breaker.EventHandler {
	return func(ev breaker.Event) {
		switch ev.Type {
		case breaker.EventCallSuccess:
			o.breakerCalls.WithLabelValues(ev.Breaker, "success").Inc()
		case breaker.EventCallFailure:
			o.breakerCalls.WithLabelValues(ev.Breaker, "failure").Inc()
		case breaker.EventCallRejected:
			o.breakerCalls.WithLabelValues(ev.Breaker, "rejected").Inc()
		case breaker.EventStateChange, breaker.EventInit, breaker.EventReset:
			o.breakerState.WithLabelValues(ev.Breaker).Set(float64(ev.To))
		}
	}
}

func (o *Observer) setEntryGauges(snapshot *data.Snapshot) {
	if snapshot == nil {
		return
	}
	for dataset, count := range snapshot.Counts() {
		o.datasetEntries.WithLabelValues(dataset).Set(float64(count))
	}
}

// DataHandler returns the event handler to register with the data manager.
func (o *Observer) DataHandler() data.EventHandler {
	return func(ev data.Event) {
		switch ev.Type {
		case data.EventDataLoaded:
			// Every successful load fires dataLoaded; dataUpdated is the
			// additional watcher-path notification, so only count here.
			o.dataLoads.WithLabelValues("success").Inc()
			o.setEntryGauges(ev.Snapshot)
		case data.EventDataUpdated:
			o.setEntryGauges(ev.Snapshot)
		case data.EventDataError:
			o.dataLoads.WithLabelValues("error").Inc()
		}
	}
}

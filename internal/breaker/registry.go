package breaker

import (
	"sort"
	"sync"

	"designkit/internal/errdefs"
	"designkit/internal/logging"
)

// Registry owns all named breakers so that every logical resource gets
// exactly one instance shared across callers. It is constructed explicitly
// at startup and passed to whatever assembles the services; there is no
// hidden package-level instance.
type Registry struct {
	logger *logging.AppLogger

	mu       sync.Mutex
	breakers map[string]*Breaker
	sinks    []EventHandler
}

// NewRegistry creates a registry whose breakers log their events through
// the given logger.
func NewRegistry(logger *logging.AppLogger) *Registry {
	r := &Registry{
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
	if logger != nil {
		r.sinks = append(r.sinks, r.logEvent)
	}
	return r
}

// Subscribe attaches an extra event sink (metrics, tests) to every breaker
// the registry currently holds and every breaker it creates later.
func (r *Registry) Subscribe(h EventHandler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks = append(r.sinks, h)
	for _, b := range r.breakers {
		b.OnEvent(h)
	}
}

// GetOrCreate returns the existing breaker registered under cfg.Name, or
// constructs and registers a new one. The first configuration wins; later
// calls with a different configuration for the same name get the original
// instance.
func (r *Registry) GetOrCreate(cfg Config) (*Breaker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[cfg.Name]; ok {
		return b, nil
	}

	b, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for _, sink := range r.sinks {
		b.OnEvent(sink)
	}
	r.breakers[cfg.Name] = b
	return b, nil
}

// Get returns the breaker registered under name, if any.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	return b, ok
}

// Names returns the registered breaker names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllStats returns a name-to-stats snapshot for every registered breaker.
func (r *Registry) AllStats() map[string]Stats {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	stats := make(map[string]Stats, len(breakers))
	for _, b := range breakers {
		stats[b.Name()] = b.Stats()
	}
	return stats
}

// ResetAll force-resets every registered breaker to CLOSED with zeroed
// counters. Calling it on already-reset breakers is a no-op with respect to
// observable state.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.Unlock()

	for _, b := range breakers {
		b.Reset()
	}
}

// logEvent renders one breaker event through the registry logger, choosing
// the level from the event type and error severity.
func (r *Registry) logEvent(ev Event) {
	keyvals := []interface{}{"breaker", ev.Breaker, "event", string(ev.Type)}

	switch ev.Type {
	case EventStateChange:
		keyvals = append(keyvals, "from", ev.From.String(), "to", ev.To.String())
		if ev.To == StateOpen {
			r.logger.Warn("Circuit breaker opened", keyvals...)
		} else {
			r.logger.Info("Circuit breaker state changed", keyvals...)
		}
	case EventCallFailure:
		keyvals = append(keyvals, "state", ev.To.String(), "error", ev.Err)
		if e := errdefs.AsError(ev.Err); e != nil && e.Severity() == errdefs.SeverityCritical {
			r.logger.Error("Circuit breaker call failed", keyvals...)
		} else {
			r.logger.Warn("Circuit breaker call failed", keyvals...)
		}
	case EventCallRejected:
		keyvals = append(keyvals, "state", ev.To.String())
		r.logger.Warn("Circuit breaker rejected call", keyvals...)
	case EventReset:
		r.logger.Info("Circuit breaker reset", keyvals...)
	case EventInit:
		r.logger.Debug("Circuit breaker initialized", keyvals...)
	default:
		r.logger.Debug("Circuit breaker event", keyvals...)
	}
}

// Package breaker implements the circuit breaker protecting data access.
//
// A breaker guards one logical resource. It admits calls while CLOSED,
// fails fast while OPEN, and probes recovery with a bounded number of
// calls while HALF_OPEN. Failures are counted over a rolling monitoring
// window, so a burst of old failures ages out instead of keeping the
// circuit open forever.
//
// Thread Safety: all types in this package are safe for concurrent use.
package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"designkit/internal/errdefs"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed is normal operation - requests pass through.
	StateClosed State = iota
	// StateOpen means too many failures - requests are rejected.
	StateOpen
	// StateHalfOpen is testing recovery - limited requests allowed.
	StateHalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures one circuit breaker instance.
type Config struct {
	// Name identifies the breaker, one per guarded resource.
	Name string

	// FailureThreshold is the number of failures within the monitoring
	// period before the circuit opens.
	FailureThreshold int

	// RecoveryTimeout is how long to stay open before probing recovery.
	RecoveryTimeout time.Duration

	// RequestTimeout bounds each guarded call. A call that does not settle
	// in time is accounted as a ServiceTimeout failure.
	RequestTimeout time.Duration

	// MonitoringPeriod is the width of the rolling failure window.
	MonitoringPeriod time.Duration

	// HalfOpenMaxCalls is the number of probe calls admitted while
	// half-open, and the number of successes required to close.
	HalfOpenMaxCalls int
}

// DefaultConfig returns sensible defaults for the given breaker name.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		RequestTimeout:   5 * time.Second,
		MonitoringPeriod: 60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

func (c Config) validate() error {
	if c.Name == "" {
		return errdefs.New(errdefs.ConfigurationError, "breaker name must not be empty")
	}
	if c.FailureThreshold <= 0 {
		return errdefs.Newf(errdefs.ConfigurationError, "breaker %q: failure threshold must be positive", c.Name)
	}
	if c.RecoveryTimeout <= 0 || c.RequestTimeout <= 0 || c.MonitoringPeriod <= 0 {
		return errdefs.Newf(errdefs.ConfigurationError, "breaker %q: timeouts must be positive", c.Name)
	}
	if c.HalfOpenMaxCalls <= 0 {
		return errdefs.Newf(errdefs.ConfigurationError, "breaker %q: half-open max calls must be positive", c.Name)
	}
	return nil
}

// EventType names an observable breaker event.
type EventType string

const (
	EventInit         EventType = "init"
	EventStateChange  EventType = "stateChange"
	EventCallSuccess  EventType = "callSuccess"
	EventCallFailure  EventType = "callFailure"
	EventCallRejected EventType = "callRejected"
	EventReset        EventType = "reset"
)

// Event is the structured payload pushed to subscribers. The breaker has no
// opinion on how events are logged or exported.
type Event struct {
	Type    EventType
	Breaker string
	From    State
	To      State
	Err     error
	Time    time.Time
}

// EventHandler receives breaker events. Handlers must not block; they are
// invoked synchronously after the state update completes.
type EventHandler func(Event)

// outcome is one entry in the rolling monitoring window.
type outcome struct {
	at      time.Time
	success bool
}

// Stats is a point-in-time snapshot of breaker counters. Cumulative totals
// persist across state transitions; per-state counters and the window reset.
type Stats struct {
	Name            string     `json:"name"`
	State           string     `json:"state"`
	Failures        int        `json:"failures"`
	Successes       int        `json:"successes"`
	WindowFailures  int        `json:"window_failures"`
	TotalRequests   uint64     `json:"total_requests"`
	TotalFailures   uint64     `json:"total_failures"`
	TotalSuccesses  uint64     `json:"total_successes"`
	TotalRejections uint64     `json:"total_rejections"`
	LastFailure     *time.Time `json:"last_failure,omitempty"`
	LastSuccess     *time.Time `json:"last_success,omitempty"`
	NextAttempt     *time.Time `json:"next_attempt,omitempty"`
}

// Breaker is a three-state circuit breaker guarding one resource.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu            sync.Mutex
	state         State
	window        []outcome
	failures      int
	successes     int
	halfOpenCalls int
	lastFailure   time.Time
	lastSuccess   time.Time
	nextAttempt   time.Time

	totalRequests   uint64
	totalFailures   uint64
	totalSuccesses  uint64
	totalRejections uint64

	handlersMu sync.RWMutex
	handlers   []EventHandler
}

// New creates a circuit breaker in the CLOSED state and emits an init event
// once the first handler is attached via OnEvent.
func New(cfg Config) (*Breaker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Breaker{
		cfg:   cfg,
		now:   time.Now,
		state: StateClosed,
	}, nil
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.cfg.Name
}

// OnEvent registers a subscriber for breaker events. The first registration
// receives the init event.
func (b *Breaker) OnEvent(h EventHandler) {
	if h == nil {
		return
	}
	b.handlersMu.Lock()
	first := len(b.handlers) == 0
	b.handlers = append(b.handlers, h)
	b.handlersMu.Unlock()

	if first {
		b.emit(Event{Type: EventInit, Breaker: b.cfg.Name, To: b.State(), Time: b.now()})
	}
}

func (b *Breaker) emit(events ...Event) {
	b.handlersMu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.handlersMu.RUnlock()

	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs op under the breaker and returns its classified error, if any.
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := Execute(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Execute runs op under breaker b with admission control and the per-call
// timeout race. If op does not settle within RequestTimeout the call is
// accounted as a ServiceTimeout failure and op's eventual settlement is
// ignored. The breaker never retries; the caller decides based on the
// Retryable flag of the returned error.
func Execute[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := b.admit(); err != nil {
		return zero, err
	}

	type settled struct {
		val T
		err error
	}
	// Buffered so a late settlement after timeout does not leak the goroutine.
	ch := make(chan settled, 1)
	go func() {
		v, err := op(ctx)
		ch <- settled{val: v, err: err}
	}()

	timer := time.NewTimer(b.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return zero, b.recordFailure(r.err)
		}
		b.recordSuccess()
		return r.val, nil

	case <-timer.C:
		err := errdefs.Newf(errdefs.ServiceTimeout,
			"operation timed out after %s", b.cfg.RequestTimeout).
			WithContext("breaker", b.cfg.Name)
		return zero, b.recordFailure(err)

	case <-ctx.Done():
		return zero, b.recordFailure(ctx.Err())
	}
}

// admit decides whether a call may proceed. Every call, admitted or not,
// increments the cumulative request counter; rejections are tracked
// separately and never enter the rolling window.
func (b *Breaker) admit() error {
	b.mu.Lock()

	b.totalRequests++
	now := b.now()

	var events []Event

	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return nil

	case StateOpen:
		if now.Before(b.nextAttempt) {
			b.totalRejections++
			next := b.nextAttempt
			b.mu.Unlock()

			err := errdefs.Newf(errdefs.ServiceUnavailable,
				"circuit breaker %q is open, next attempt at %s",
				b.cfg.Name, next.Format(time.RFC3339)).
				WithContext("breaker", b.cfg.Name).
				WithContext("nextAttemptTime", next).
				WithSuggestions("Back off and retry after the next attempt time")
			b.emit(Event{Type: EventCallRejected, Breaker: b.cfg.Name, From: StateOpen, To: StateOpen, Err: err, Time: now})
			return err
		}
		// Recovery timeout elapsed: probe via half-open, admitting this call.
		events = append(events, b.transitionTo(StateHalfOpen, now))
		b.halfOpenCalls++
		b.mu.Unlock()
		b.emit(events...)
		return nil

	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			b.totalRejections++
			b.mu.Unlock()

			err := errdefs.Newf(errdefs.ServiceUnavailable,
				"circuit breaker %q is half-open at probe capacity", b.cfg.Name).
				WithContext("breaker", b.cfg.Name).
				WithSuggestions("Retry once the recovery probes complete")
			b.emit(Event{Type: EventCallRejected, Breaker: b.cfg.Name, From: StateHalfOpen, To: StateHalfOpen, Err: err, Time: now})
			return err
		}
		b.halfOpenCalls++
		b.mu.Unlock()
		return nil
	}

	b.mu.Unlock()
	return nil
}

// recordSuccess accounts one successful guarded call.
func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	now := b.now()

	b.pruneWindow(now)
	b.window = append(b.window, outcome{at: now, success: true})
	b.totalSuccesses++
	b.lastSuccess = now

	events := []Event{{Type: EventCallSuccess, Breaker: b.cfg.Name, From: b.state, To: b.state, Time: now}}

	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxCalls {
			events = append(events, b.transitionTo(StateClosed, now))
		}
	}
	b.mu.Unlock()
	b.emit(events...)
}

// recordFailure accounts one failed guarded call and returns the classified
// error handed back to the caller.
func (b *Breaker) recordFailure(cause error) error {
	err := errdefs.Normalize("breaker", b.cfg.Name, cause)

	b.mu.Lock()
	now := b.now()

	b.pruneWindow(now)
	b.window = append(b.window, outcome{at: now, success: false})
	b.totalFailures++
	b.failures++
	b.lastFailure = now

	events := []Event{{Type: EventCallFailure, Breaker: b.cfg.Name, From: b.state, To: b.state, Err: err, Time: now}}

	switch b.state {
	case StateClosed:
		if b.windowFailures() >= b.cfg.FailureThreshold {
			events = append(events, b.transitionTo(StateOpen, now))
		}
	case StateHalfOpen:
		events = append(events, b.transitionTo(StateOpen, now))
	}
	b.mu.Unlock()
	b.emit(events...)

	return err
}

// transitionTo changes state, resetting the rolling window and per-state
// counters. Cumulative totals persist. Must be called with the lock held;
// the returned event is emitted after unlock.
func (b *Breaker) transitionTo(newState State, now time.Time) Event {
	ev := Event{Type: EventStateChange, Breaker: b.cfg.Name, From: b.state, To: newState, Time: now}

	b.state = newState
	b.window = b.window[:0]
	b.failures = 0
	b.successes = 0
	b.halfOpenCalls = 0

	// nextAttemptTime is set only while OPEN.
	if newState == StateOpen {
		b.nextAttempt = now.Add(b.cfg.RecoveryTimeout)
	} else {
		b.nextAttempt = time.Time{}
	}

	return ev
}

// pruneWindow drops outcomes older than the monitoring period.
// Must be called with the lock held.
func (b *Breaker) pruneWindow(now time.Time) {
	cutoff := now.Add(-b.cfg.MonitoringPeriod)
	i := 0
	for ; i < len(b.window); i++ {
		if b.window[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		b.window = b.window[i:]
	}
}

// windowFailures counts failed outcomes currently in the window.
// Must be called with the lock held.
func (b *Breaker) windowFailures() int {
	n := 0
	for _, o := range b.window {
		if !o.success {
			n++
		}
	}
	return n
}

// Stats returns a snapshot of the breaker counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Name:            b.cfg.Name,
		State:           b.state.String(),
		Failures:        b.failures,
		Successes:       b.successes,
		WindowFailures:  b.windowFailures(),
		TotalRequests:   b.totalRequests,
		TotalFailures:   b.totalFailures,
		TotalSuccesses:  b.totalSuccesses,
		TotalRejections: b.totalRejections,
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		s.LastFailure = &t
	}
	if !b.lastSuccess.IsZero() {
		t := b.lastSuccess
		s.LastSuccess = &t
	}
	if !b.nextAttempt.IsZero() {
		t := b.nextAttempt
		s.NextAttempt = &t
	}
	return s
}

// Reset forces the breaker back to CLOSED with zeroed counters. Intended for
// operational escape hatches and tests; normal recovery goes through the
// half-open probe cycle.
func (b *Breaker) Reset() {
	b.mu.Lock()
	now := b.now()
	from := b.state

	b.state = StateClosed
	b.window = b.window[:0]
	b.failures = 0
	b.successes = 0
	b.halfOpenCalls = 0
	b.nextAttempt = time.Time{}
	b.totalRequests = 0
	b.totalFailures = 0
	b.totalSuccesses = 0
	b.totalRejections = 0
	b.mu.Unlock()

	b.emit(Event{Type: EventReset, Breaker: b.cfg.Name, From: from, To: StateClosed, Time: now})
}

// ForceState moves the breaker to the given state directly. Test and ops
// escape hatch only.
func (b *Breaker) ForceState(s State) {
	b.mu.Lock()
	now := b.now()
	ev := b.transitionTo(s, now)
	b.mu.Unlock()
	b.emit(ev)
}

// String implements fmt.Stringer for debug output.
func (b *Breaker) String() string {
	return fmt.Sprintf("breaker(%s, %s)", b.cfg.Name, b.State())
}

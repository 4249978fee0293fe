package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"designkit/internal/errdefs"
)

// testConfig returns a config with short durations so state transitions can
// be exercised without long sleeps.
func testConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 3,
		RecoveryTimeout:  50 * time.Millisecond,
		RequestTimeout:   500 * time.Millisecond,
		MonitoringPeriod: time.Minute,
		HalfOpenMaxCalls: 2,
	}
}

func failingOp(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func succeedingOp() func(context.Context) error {
	return func(context.Context) error { return nil }
}

// tripOpen drives a closed breaker to OPEN via threshold failures.
func tripOpen(t *testing.T, b *Breaker) {
	t.Helper()
	for i := 0; i < b.cfg.FailureThreshold; i++ {
		_ = b.Do(context.Background(), failingOp(errors.New("down")))
	}
	require.Equal(t, StateOpen, b.State())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"zero threshold", func(c *Config) { c.FailureThreshold = 0 }},
		{"zero recovery", func(c *Config) { c.RecoveryTimeout = 0 }},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero monitoring period", func(c *Config) { c.MonitoringPeriod = 0 }},
		{"zero half-open calls", func(c *Config) { c.HalfOpenMaxCalls = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("cfg-test")
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.True(t, errdefs.IsKind(err, errdefs.ConfigurationError))
		})
	}
}

func TestClosedAdmitsAndExecutes(t *testing.T) {
	b, err := New(testConfig("closed"))
	require.NoError(t, err)

	got, err := Execute(context.Background(), b, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, StateClosed, b.State())

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.TotalRequests)
	assert.Equal(t, uint64(1), stats.TotalSuccesses)
}

func TestOpensAtFailureThreshold(t *testing.T) {
	b, err := New(testConfig("threshold"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_ = b.Do(context.Background(), failingOp(errors.New("down")))
		assert.Equal(t, StateClosed, b.State(), "must stay closed below threshold")
	}

	_ = b.Do(context.Background(), failingOp(errors.New("down")))
	assert.Equal(t, StateOpen, b.State())

	stats := b.Stats()
	require.NotNil(t, stats.NextAttempt)
}

func TestOpenRejectsWithoutInvokingOperation(t *testing.T) {
	b, err := New(testConfig("open-reject"))
	require.NoError(t, err)
	tripOpen(t, b)

	invoked := false
	execErr := b.Do(context.Background(), func(context.Context) error {
		invoked = true
		return nil
	})

	require.Error(t, execErr)
	assert.False(t, invoked, "rejected call must not invoke the operation")
	assert.True(t, errdefs.IsKind(execErr, errdefs.ServiceUnavailable))

	e := errdefs.AsError(execErr)
	require.NotNil(t, e)
	assert.True(t, e.Retryable())
	assert.Contains(t, e.Message, "next attempt")
}

func TestRejectionsDoNotCountAsFailures(t *testing.T) {
	b, err := New(testConfig("reject-count"))
	require.NoError(t, err)
	tripOpen(t, b)

	before := b.Stats()
	for i := 0; i < 5; i++ {
		_ = b.Do(context.Background(), succeedingOp())
	}
	after := b.Stats()

	assert.Equal(t, before.TotalFailures, after.TotalFailures)
	assert.Equal(t, before.TotalRejections+5, after.TotalRejections)
	assert.Equal(t, before.TotalRequests+5, after.TotalRequests)
}

func TestRecoveryTransitionsToHalfOpen(t *testing.T) {
	b, err := New(testConfig("recovery"))
	require.NoError(t, err)
	tripOpen(t, b)

	// Before nextAttemptTime: rejected without execution.
	require.Error(t, b.Do(context.Background(), succeedingOp()))

	time.Sleep(60 * time.Millisecond)

	// At/after nextAttemptTime: admitted, breaker probes via half-open.
	invoked := false
	err = b.Do(context.Background(), func(context.Context) error {
		invoked = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, invoked)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestHalfOpenClosesAfterEnoughSuccesses(t *testing.T) {
	cfg := testConfig("half-open-close")
	b, err := New(cfg)
	require.NoError(t, err)
	tripOpen(t, b)
	time.Sleep(60 * time.Millisecond)

	for i := 0; i < cfg.HalfOpenMaxCalls; i++ {
		require.NoError(t, b.Do(context.Background(), succeedingOp()))
	}

	assert.Equal(t, StateClosed, b.State())
	stats := b.Stats()
	assert.Zero(t, stats.Failures)
	assert.Zero(t, stats.Successes)
	assert.Nil(t, stats.NextAttempt, "nextAttemptTime is set only while open")
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, err := New(testConfig("half-open-reopen"))
	require.NoError(t, err)
	tripOpen(t, b)
	time.Sleep(60 * time.Millisecond)

	execErr := b.Do(context.Background(), failingOp(errors.New("still down")))
	require.Error(t, execErr)
	assert.Equal(t, StateOpen, b.State())

	stats := b.Stats()
	require.NotNil(t, stats.NextAttempt)
	assert.True(t, stats.NextAttempt.After(time.Now()), "reopening must schedule a fresh probe")
}

func TestHalfOpenCapacityRejects(t *testing.T) {
	cfg := testConfig("half-open-capacity")
	b, err := New(cfg)
	require.NoError(t, err)
	tripOpen(t, b)
	time.Sleep(60 * time.Millisecond)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  []error
		admitted atomic.Int32
	)
	release := make(chan struct{})

	// Saturate the probe slots with hanging calls.
	for i := 0; i < cfg.HalfOpenMaxCalls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Do(context.Background(), func(context.Context) error {
				admitted.Add(1)
				<-release
				return nil
			})
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}()
	}

	require.Eventually(t, func() bool {
		return admitted.Load() == int32(cfg.HalfOpenMaxCalls)
	}, time.Second, 5*time.Millisecond)

	// One probe beyond capacity: rejected without execution.
	err = b.Do(context.Background(), succeedingOp())
	assert.True(t, errdefs.IsKind(err, errdefs.ServiceUnavailable))

	close(release)
	wg.Wait()
	for _, err := range results {
		assert.NoError(t, err)
	}
	assert.Equal(t, StateClosed, b.State(), "all probes succeeded, breaker closes")
}

func TestTimeoutClassifiedAsServiceTimeout(t *testing.T) {
	cfg := testConfig("timeout")
	cfg.RequestTimeout = 30 * time.Millisecond
	b, err := New(cfg)
	require.NoError(t, err)

	execErr := b.Do(context.Background(), func(context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	require.Error(t, execErr)
	assert.True(t, errdefs.IsKind(execErr, errdefs.ServiceTimeout))
	assert.True(t, errdefs.AsError(execErr).Retryable())

	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.TotalFailures)

	// The late settlement must not change the accounting.
	time.Sleep(250 * time.Millisecond)
	after := b.Stats()
	assert.Equal(t, stats.TotalFailures, after.TotalFailures)
	assert.Equal(t, stats.TotalSuccesses, after.TotalSuccesses)
}

func TestRawErrorNormalizedToServiceError(t *testing.T) {
	b, err := New(testConfig("normalize"))
	require.NoError(t, err)

	execErr := b.Do(context.Background(), failingOp(errors.New("plain failure")))
	require.Error(t, execErr)
	assert.True(t, errdefs.IsKind(execErr, errdefs.ServiceError))
}

func TestApplicationErrorKeepsItsKind(t *testing.T) {
	b, err := New(testConfig("keep-kind"))
	require.NoError(t, err)

	orig := errdefs.New(errdefs.InvalidData, "no data loaded")
	execErr := b.Do(context.Background(), failingOp(orig))
	require.Error(t, execErr)
	assert.True(t, errdefs.IsKind(execErr, errdefs.InvalidData))
}

func TestWindowPruningForgetsOldFailures(t *testing.T) {
	cfg := testConfig("window")
	cfg.MonitoringPeriod = 40 * time.Millisecond
	b, err := New(cfg)
	require.NoError(t, err)

	// Two failures, then wait for them to age out of the window.
	_ = b.Do(context.Background(), failingOp(errors.New("down")))
	_ = b.Do(context.Background(), failingOp(errors.New("down")))
	time.Sleep(60 * time.Millisecond)

	// A third failure alone must not reach the threshold of three.
	_ = b.Do(context.Background(), failingOp(errors.New("down")))
	assert.Equal(t, StateClosed, b.State())
}

func TestResetReturnsToClosedWithZeroedCounters(t *testing.T) {
	b, err := New(testConfig("reset"))
	require.NoError(t, err)
	tripOpen(t, b)

	b.Reset()
	stats := b.Stats()
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, stats.TotalRequests)
	assert.Zero(t, stats.TotalFailures)
	assert.Zero(t, stats.TotalRejections)
	assert.Nil(t, stats.NextAttempt)
}

func TestEvents(t *testing.T) {
	b, err := New(testConfig("events"))
	require.NoError(t, err)

	var mu sync.Mutex
	var got []EventType
	b.OnEvent(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})

	require.NoError(t, b.Do(context.Background(), succeedingOp()))
	tripOpen(t, b)
	_ = b.Do(context.Background(), succeedingOp()) // rejected
	b.Reset()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, EventInit, got[0], "first handler registration receives init")
	assert.Contains(t, got, EventCallSuccess)
	assert.Contains(t, got, EventCallFailure)
	assert.Contains(t, got, EventStateChange)
	assert.Contains(t, got, EventCallRejected)
	assert.Equal(t, EventReset, got[len(got)-1])
}

func TestForceState(t *testing.T) {
	b, err := New(testConfig("force"))
	require.NoError(t, err)

	b.ForceState(StateOpen)
	assert.Equal(t, StateOpen, b.State())
	require.NotNil(t, b.Stats().NextAttempt)

	b.ForceState(StateClosed)
	assert.Equal(t, StateClosed, b.State())
	assert.Nil(t, b.Stats().NextAttempt)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}

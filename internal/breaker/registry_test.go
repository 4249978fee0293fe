package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"designkit/internal/logging"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	return NewRegistry(logger)
}

func TestGetOrCreateReturnsSameInstance(t *testing.T) {
	r := newTestRegistry(t)

	b1, err := r.GetOrCreate(testConfig("shared"))
	require.NoError(t, err)

	// Different parameters, same name: the first configuration wins.
	cfg := testConfig("shared")
	cfg.FailureThreshold = 99
	b2, err := r.GetOrCreate(cfg)
	require.NoError(t, err)

	assert.Same(t, b1, b2)
}

func TestGetOrCreateRejectsInvalidConfig(t *testing.T) {
	r := newTestRegistry(t)

	cfg := testConfig("bad")
	cfg.FailureThreshold = -1
	_, err := r.GetOrCreate(cfg)
	require.Error(t, err)

	_, ok := r.Get("bad")
	assert.False(t, ok, "invalid config must not register a breaker")
}

func TestAllStats(t *testing.T) {
	r := newTestRegistry(t)

	b, err := r.GetOrCreate(testConfig("a"))
	require.NoError(t, err)
	_, err = r.GetOrCreate(testConfig("b"))
	require.NoError(t, err)

	require.NoError(t, b.Do(context.Background(), succeedingOp()))

	stats := r.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, uint64(1), stats["a"].TotalRequests)
	assert.Equal(t, uint64(0), stats["b"].TotalRequests)
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestResetAllIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	b, err := r.GetOrCreate(testConfig("reset-all"))
	require.NoError(t, err)
	tripOpen(t, b)

	for i := 0; i < 2; i++ {
		r.ResetAll()
		for name, stats := range r.AllStats() {
			assert.Equal(t, "closed", stats.State, name)
			assert.Zero(t, stats.TotalRequests, name)
			assert.Zero(t, stats.TotalFailures, name)
		}
	}
}

func TestSubscribeReachesExistingAndFutureBreakers(t *testing.T) {
	r := newTestRegistry(t)

	existing, err := r.GetOrCreate(testConfig("existing"))
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[string]int{}
	r.Subscribe(func(ev Event) {
		mu.Lock()
		seen[ev.Breaker]++
		mu.Unlock()
	})

	future, err := r.GetOrCreate(testConfig("future"))
	require.NoError(t, err)

	_ = existing.Do(context.Background(), failingOp(errors.New("down")))
	_ = future.Do(context.Background(), failingOp(errors.New("down")))

	mu.Lock()
	defer mu.Unlock()
	assert.Positive(t, seen["existing"])
	assert.Positive(t, seen["future"])
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"designkit/internal/breaker"
	"designkit/internal/data"
)

func TestBreakerHandlerCountsOutcomes(t *testing.T) {
	o := NewObserver()
	h := o.BreakerHandler()

	h(breaker.Event{Type: breaker.EventCallSuccess, Breaker: "token-service"})
	h(breaker.Event{Type: breaker.EventCallSuccess, Breaker: "token-service"})
	h(breaker.Event{Type: breaker.EventCallFailure, Breaker: "token-service"})
	h(breaker.Event{Type: breaker.EventCallRejected, Breaker: "component-service"})

	assert.Equal(t, 2.0, testutil.ToFloat64(o.breakerCalls.WithLabelValues("token-service", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.breakerCalls.WithLabelValues("token-service", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.breakerCalls.WithLabelValues("component-service", "rejected")))
}

func TestBreakerHandlerTracksState(t *testing.T) {
	o := NewObserver()
	h := o.BreakerHandler()

	h(breaker.Event{Type: breaker.EventInit, Breaker: "token-service", To: breaker.StateClosed})
	assert.Equal(t, 0.0, testutil.ToFloat64(o.breakerState.WithLabelValues("token-service")))

	h(breaker.Event{Type: breaker.EventStateChange, Breaker: "token-service", From: breaker.StateClosed, To: breaker.StateOpen})
	assert.Equal(t, 1.0, testutil.ToFloat64(o.breakerState.WithLabelValues("token-service")))

	h(breaker.Event{Type: breaker.EventReset, Breaker: "token-service", From: breaker.StateOpen, To: breaker.StateClosed})
	assert.Equal(t, 0.0, testutil.ToFloat64(o.breakerState.WithLabelValues("token-service")))
}

func TestDataHandlerCountsLoads(t *testing.T) {
	o := NewObserver()
	h := o.DataHandler()

	snapshot := &data.Snapshot{
		Tokens:      []data.DesignToken{{Name: "a"}, {Name: "b"}},
		LastUpdated: time.Now(),
	}

	// A watcher reload fires dataLoaded and dataUpdated for the same load;
	// the success counter must move once.
	h(data.Event{Type: data.EventDataLoaded, Snapshot: snapshot})
	h(data.Event{Type: data.EventDataUpdated, Snapshot: snapshot})
	h(data.Event{Type: data.EventDataError})

	assert.Equal(t, 1.0, testutil.ToFloat64(o.dataLoads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.dataLoads.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.datasetEntries.WithLabelValues("tokens")))
	assert.Equal(t, 0.0, testutil.ToFloat64(o.datasetEntries.WithLabelValues("components")))
}

func TestDataHandlerIgnoresNilSnapshot(t *testing.T) {
	o := NewObserver()
	o.DataHandler()(data.Event{Type: data.EventDataUpdated})

	assert.Equal(t, 0.0, testutil.ToFloat64(o.datasetEntries.WithLabelValues("tokens")))
}

func TestRegistryExposesAllCollectors(t *testing.T) {
	o := NewObserver()
	o.BreakerHandler()(breaker.Event{Type: breaker.EventCallSuccess, Breaker: "b"})
	o.DataHandler()(data.Event{Type: data.EventDataLoaded, Snapshot: &data.Snapshot{Tokens: []data.DesignToken{{Name: "a"}}}})

	families, err := o.Registry().Gather()
	require.NoError(t, err)

	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.GetName()
	}
	assert.Contains(t, names, "designkit_breaker_calls_total")
	assert.Contains(t, names, "designkit_data_loads_total")
	assert.Contains(t, names, "designkit_dataset_entries")
}

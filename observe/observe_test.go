package observe

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPublishWithoutRunningHubDoesNotBlock(t *testing.T) {
	h := NewHub()
	assert.NotPanics(t, func() {
		h.Publish(Snapshot{Step: 1, Loss: 0.5})
	})
}

func TestPublishWithNoClientsAfterRunDoesNotBlock(t *testing.T) {
	h := NewHub()
	go h.Run()
	for i := 0; i < 100; i++ {
		h.Publish(Snapshot{Step: i, Loss: float64(i)})
	}
}

func TestMetricsObserveUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "convnet_test")

	m.Observe(0.42, 0.1, 0.2)
	assert.InDelta(t, 0.42, testutil.ToFloat64(m.Loss), 1e-9)
	assert.InDelta(t, 0.1, testutil.ToFloat64(m.L1Loss), 1e-9)
	assert.InDelta(t, 0.2, testutil.ToFloat64(m.L2Loss), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Steps), 1e-9)

	m.Observe(0.1, 0, 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Steps), 1e-9)
}

func TestMetricsObserveReward(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "convnet_test3")

	m.ObserveReward(0.75)
	assert.InDelta(t, 0.75, testutil.ToFloat64(m.Reward), 1e-9)
}

func TestMetricsObserveAccuracy(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "convnet_test2")

	m.ObserveAccuracy(0.9)
	assert.InDelta(t, 0.9, testutil.ToFloat64(m.Accuracy), 1e-9)
}

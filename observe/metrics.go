package observe

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes a training session's live counters as Prometheus
// gauges/counter. NewMetrics registers the collectors against the
// Registerer the caller supplies; any HTTP exposition is left to the
// caller.
type Metrics struct {
	Reward   prometheus.Gauge
	Loss     prometheus.Gauge
	L1Loss   prometheus.Gauge
	L2Loss   prometheus.Gauge
	Accuracy prometheus.Gauge
	Steps    prometheus.Counter
}

// NewMetrics constructs the collector set and registers them against reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Reward: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reward", Help: "most recent reward-window mean",
		}),
		Loss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "loss", Help: "most recent per-sample training loss",
		}),
		L1Loss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "l1_loss", Help: "most recent L1 decay loss",
		}),
		L2Loss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "l2_loss", Help: "most recent L2 decay loss",
		}),
		Accuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "validation_accuracy", Help: "most recent validation-window accuracy",
		}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "steps_total", Help: "total training steps processed",
		}),
	}
	reg.MustRegister(m.Reward, m.Loss, m.L1Loss, m.L2Loss, m.Accuracy, m.Steps)
	return m
}

// ObserveReward records the current reward-window mean.
func (m *Metrics) ObserveReward(reward float64) {
	m.Reward.Set(reward)
}

// Observe records one training step's scalar results.
func (m *Metrics) Observe(loss, l1Loss, l2Loss float64) {
	m.Loss.Set(loss)
	m.L1Loss.Set(l1Loss)
	m.L2Loss.Set(l2Loss)
	m.Steps.Inc()
}

// ObserveAccuracy records a validation-window accuracy/MSE sample.
func (m *Metrics) ObserveAccuracy(accuracy float64) {
	m.Accuracy.Set(accuracy)
}

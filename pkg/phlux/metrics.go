package phlux

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the prometheus collectors a Store reports to.
// A nil *Metrics disables reporting.
type Metrics struct {
	Scopes      prometheus.Gauge
	Tasks       prometheus.Gauge
	Subscribers prometheus.Gauge
	Transitions prometheus.Counter
	Launches    prometheus.Counter
	Stale       *prometheus.CounterVec
}

// NewMetrics creates the store collectors and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Scopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phlux",
			Name:      "scopes",
			Help:      "Number of live scopes",
		}),
		Tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phlux",
			Name:      "tasks",
			Help:      "Number of registered background tasks across all scopes",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "phlux",
			Name:      "subscribers",
			Help:      "Number of registered state callbacks across all scopes",
		}),
		Transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phlux",
			Name:      "transitions_total",
			Help:      "Number of applied state transitions",
		}),
		Launches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "phlux",
			Name:      "task_launches_total",
			Help:      "Number of background task launches, including relaunches after restore",
		}),
		Stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phlux",
			Name:      "stale_deliveries_total",
			Help:      "Task outcomes ignored because their scope or run was gone",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Scopes, m.Tasks, m.Subscribers, m.Transitions, m.Launches, m.Stale)
	}
	return m
}

func (m *Metrics) scopes(delta int) {
	if m != nil {
		m.Scopes.Add(float64(delta))
	}
}

func (m *Metrics) tasks(delta int) {
	if m != nil && delta != 0 {
		m.Tasks.Add(float64(delta))
	}
}

func (m *Metrics) subscribers(delta int) {
	if m != nil && delta != 0 {
		m.Subscribers.Add(float64(delta))
	}
}

func (m *Metrics) transition() {
	if m != nil {
		m.Transitions.Inc()
	}
}

func (m *Metrics) launch() {
	if m != nil {
		m.Launches.Inc()
	}
}

func (m *Metrics) stale(kind string) {
	if m != nil {
		m.Stale.WithLabelValues(kind).Inc()
	}
}

package computation

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	dispatched prometheus.Counter
	failed     prometheus.Counter
	callbacks  *prometheus.CounterVec
	timeouts   prometheus.Counter
	pending    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kyc", Subsystem: "computation", Name: "dispatched_total",
			Help: "Computations handed to the MPC cluster.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kyc", Subsystem: "computation", Name: "dispatch_failures_total",
			Help: "Computations that could not be queued.",
		}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyc", Subsystem: "computation", Name: "callbacks_total",
			Help: "Delivered callbacks by status.",
		}, []string{"status"}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kyc", Subsystem: "computation", Name: "timeouts_total",
			Help: "Computations aborted by the sweeper.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kyc", Subsystem: "computation", Name: "pending",
			Help: "Computations waiting for a callback.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.dispatched, m.failed, m.callbacks, m.timeouts, m.pending)
	}
	return m
}

func (m *Metrics) onDispatch(pending int) {
	if m == nil {
		return
	}
	m.dispatched.Inc()
	m.pending.Set(float64(pending))
}

func (m *Metrics) onDispatchFailure(pending int) {
	if m == nil {
		return
	}
	m.failed.Inc()
	m.pending.Set(float64(pending))
}

func (m *Metrics) onCallback(status string, pending int) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(status).Inc()
	m.pending.Set(float64(pending))
}

func (m *Metrics) onTimeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

package zkp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	verifications *prometheus.CounterVec
	duration      prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyc",
			Subsystem: "zkp",
			Name:      "verifications_total",
			Help:      "Groth16 verifications by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kyc",
			Subsystem: "zkp",
			Name:      "verification_seconds",
			Help:      "Time spent decoding and verifying a proof.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.verifications, m.duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

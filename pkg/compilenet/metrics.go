package compilenet

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the service counters/histograms exposed on /metrics for
// whatever scrapes this process; wired directly into Server via
// InstrumentedHandler rather than left as an unused dependency.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	compileDuration prometheus.Histogram
}

// NewMetrics registers the service's metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ghuloum_compile_requests_total",
			Help: "Compile requests handled, by outcome.",
		}, []string{"outcome"}),
		compileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghuloum_compile_duration_seconds",
			Help:    "Time to compile and run a request's program.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// InstrumentedHandler wraps next, recording request count by outcome and
// request latency.
func (m *Metrics) InstrumentedHandler(next Handler) Handler {
	return func(ctx context.Context, source string) (uint64, error) {
		timer := prometheus.NewTimer(m.compileDuration)
		result, err := next(ctx, source)
		timer.ObserveDuration()
		if err != nil {
			m.requestsTotal.WithLabelValues("error").Inc()
		} else {
			m.requestsTotal.WithLabelValues("ok").Inc()
		}
		return result, err
	}
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// AdminMetrics exposes counters/histograms for booking flows and the
// external services the admin backend talks to.
type AdminMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	outboundTotal      *prometheus.CounterVec
	outboundLatency    *prometheus.HistogramVec
	rateCacheTotal     *prometheus.CounterVec
}

// New registers the admin metrics on reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *AdminMetrics {
	m := &AdminMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agenda",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "agenda",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome",
		}, []string{"outcome"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "outbound",
			Name:      "requests_total",
			Help:      "Calls to external services",
		}, []string{"service", "operation", "status"}),
		outboundLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "outbound",
			Name:      "latency_seconds",
			Help:      "Latency of calls to external services",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		rateCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "costs",
			Name:      "exchange_rate_lookups_total",
			Help:      "Exchange rate lookups by source (cache, remote, fallback)",
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.outboundTotal, m.outboundLatency, m.rateCacheTotal)
	return m
}

func (m *AdminMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *AdminMetrics) ObserveCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveOutbound records one external call. err == nil counts as "ok".
func (m *AdminMetrics) ObserveOutbound(service, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.outboundTotal.WithLabelValues(service, operation, status).Inc()
	m.outboundLatency.WithLabelValues(service, operation).Observe(seconds)
}

func (m *AdminMetrics) ObserveExchangeRate(source string) {
	if m == nil {
		return
	}
	m.rateCacheTotal.WithLabelValues(source).Inc()
}

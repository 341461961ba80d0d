package observability

import (
	"context"
	"errors"
	"net/http"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/aretw0/graff/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graff"

// Outcome labels for requests that never produced a status.
const (
	OutcomeTransportError = "transport_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeError          = "error"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	served   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// uses a fresh registry, which keeps tests and embedded clients isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "requests_total",
				Help:      "Requests sent to the backend by request name and outcome.",
			},
			[]string{"request", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "request_duration_seconds",
				Help:      "Round-trip time of backend requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"request"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_in_flight",
			Help:      "Requests waiting for a reply.",
		}),
		served: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "requests_served_total",
				Help:      "Requests answered by the backend by request name and status.",
			},
			[]string{"request", "status"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.inFlight, m.served)
	return m
}

// Hooks returns endpoint hooks that feed the client collectors.
func (m *Metrics) Hooks() domain.RequestHooks {
	return domain.RequestHooks{
		OnRequest: func(context.Context, *domain.RequestEvent) {
			m.inFlight.Inc()
		},
		OnReply: func(_ context.Context, e *domain.RequestEvent) {
			m.inFlight.Dec()
			m.requests.WithLabelValues(e.Request, outcome(e)).Inc()
			m.duration.WithLabelValues(e.Request).Observe(e.Duration.Seconds())
		},
	}
}

func outcome(e *domain.RequestEvent) string {
	switch {
	case e.Err == nil:
		return e.Status
	case errors.Is(e.Err, domain.ErrTransport):
		return OutcomeTransportError
	case errors.Is(e.Err, domain.ErrDecode):
		return OutcomeDecodeError
	default:
		return OutcomeError
	}
}

// Instrument counts every reply h produces.
func (m *Metrics) Instrument(h ports.RequestHandler) ports.RequestHandler {
	return ports.HandlerFunc(func(ctx context.Context, req codec.Request) codec.Reply {
		reply := h.HandleRequest(ctx, req)
		m.served.WithLabelValues(req.Op, reply.Status()).Inc()
		return reply
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

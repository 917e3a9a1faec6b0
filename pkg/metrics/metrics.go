package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theapemachine/a2a-srv/pkg/errors"
)

/*
Metrics aggregates the server's operational counters on a dedicated
prometheus registry.  All observation methods are nil-receiver safe so
callers never have to guard for a disabled metrics pipeline.
*/
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests    *prometheus.CounterVec
	updatesMerged  *prometheus.CounterVec
	sseEvents      prometheus.Counter
	authRejections prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method and outcome.",
		}, []string{"method", "outcome"}),
		updatesMerged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "task_updates_merged_total",
			Help:      "Handler updates merged into task state by kind.",
		}, []string{"kind"}),
		sseEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "sse_events_emitted_total",
			Help:      "SSE frames written to subscribers.",
		}),
		authRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "a2a",
			Name:      "auth_rejections_total",
			Help:      "Requests rejected by the auth gate.",
		}),
	}

	m.registry.MustRegister(m.rpcRequests, m.updatesMerged, m.sseEvents, m.authRejections)
	return m
}

func (m *Metrics) ObserveRPC(method string, rpcErr *errors.RpcError) {
	if m == nil {
		return
	}

	outcome := "ok"
	if rpcErr != nil {
		outcome = "error"
	}

	m.rpcRequests.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveUpdate(kind string) {
	if m == nil {
		return
	}
	m.updatesMerged.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSSEEvent() {
	if m == nil {
		return
	}
	m.sseEvents.Inc()
}

func (m *Metrics) ObserveAuthRejection() {
	if m == nil {
		return
	}
	m.authRejections.Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

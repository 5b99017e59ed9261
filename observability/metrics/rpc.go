package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RPCMetrics tracks the JSON-RPC surface.
type RPCMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

var (
	rpcOnce     sync.Once
	rpcRegistry *RPCMetrics
)

// RPC returns the process-wide RPC metrics registry.
func RPC() *RPCMetrics {
	rpcOnce.Do(func() {
		rpcRegistry = &RPCMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rpc_requests_total",
				Help: "Count of JSON-RPC requests by method.",
			}, []string{"method"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rpc_errors_total",
				Help: "Count of JSON-RPC error responses by method and code.",
			}, []string{"method", "code"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.errors,
		)
	})
	return rpcRegistry
}

// ObserveRequest records a dispatched request.
func (m *RPCMetrics) ObserveRequest(method string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method).Inc()
}

// ObserveError records an error response.
func (m *RPCMetrics) ObserveError(method string, code int) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

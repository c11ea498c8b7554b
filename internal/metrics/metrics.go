package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the poll loop and sinks.
type Metrics struct {
	blocksProcessed prometheus.Counter
	logsMatched     prometheus.Counter
	rpcErrors       prometheus.Counter
	delivered       *prometheus.CounterVec
	deliveryFailed  *prometheus.CounterVec
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = &Metrics{
			blocksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "eventscope_blocks_processed_total",
				Help: "Total number of blocks scanned for logs",
			}),
			logsMatched: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "eventscope_logs_matched_total",
				Help: "Total number of logs that passed the event filter",
			}),
			rpcErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "eventscope_rpc_errors_total",
				Help: "Total number of RPC errors (transient and fatal)",
			}),
			delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "eventscope_events_delivered_total",
				Help: "Total number of events delivered, per sink",
			}, []string{"sink"}),
			deliveryFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "eventscope_delivery_failures_total",
				Help: "Total number of failed deliveries, per sink",
			}, []string{"sink"}),
		}
		prometheus.MustRegister(
			metrics.blocksProcessed,
			metrics.logsMatched,
			metrics.rpcErrors,
			metrics.delivered,
			metrics.deliveryFailed,
		)
	})
	return metrics
}

// BlocksProcessed adds n to the blocks processed counter.
func (m *Metrics) BlocksProcessed(n uint64) {
	if m != nil {
		m.blocksProcessed.Add(float64(n))
	}
}

// LogsMatched increments the matched logs counter.
func (m *Metrics) LogsMatched() {
	if m != nil {
		m.logsMatched.Inc()
	}
}

// RPCErrors increments the RPC error counter.
func (m *Metrics) RPCErrors() {
	if m != nil {
		m.rpcErrors.Inc()
	}
}

// Delivered increments the per-sink delivery counter.
func (m *Metrics) Delivered(sink string) {
	if m != nil {
		m.delivered.WithLabelValues(sink).Inc()
	}
}

// DeliveryFailed increments the per-sink failure counter.
func (m *Metrics) DeliveryFailed(sink string) {
	if m != nil {
		m.deliveryFailed.WithLabelValues(sink).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

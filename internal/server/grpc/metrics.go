package grpc

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	subscribers    prometheus.Gauge
	writes         prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodie",
			Subsystem: "sync",
			Name:      "grpc_requests_total",
			Help:      "Count of handled gRPC calls",
		}, []string{"method", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "foodie",
			Subsystem: "sync",
			Name:      "grpc_request_duration_seconds",
			Help:      "Latency distribution of unary gRPC calls",
			Buckets:   histogramBuckets,
		}, []string{"method"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "foodie",
			Subsystem: "sync",
			Name:      "active_subscriptions",
			Help:      "Open document subscriptions",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "foodie",
			Subsystem: "sync",
			Name:      "documents_written_total",
			Help:      "Accepted document writes",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestTotal, m.requestLatency, m.subscribers, m.writes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SubscriptionOpened and SubscriptionClosed track the active_subscriptions
// gauge. Websocket feeds use them as well.
func (m *Metrics) SubscriptionOpened() { m.subscribers.Inc() }
func (m *Metrics) SubscriptionClosed() { m.subscribers.Dec() }

func (m *Metrics) unaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	m.requestLatency.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
	m.requestTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	return resp, err
}

func (m *Metrics) streamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	err := handler(srv, ss)
	m.requestTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	return err
}

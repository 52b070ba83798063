// Package metrics counts decoder lines, decoded pages and forwarding outcomes.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "rtlpager"

// Metrics holds the collectors for a single receiver. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	lines     prometheus.Counter
	decoded   *prometheus.CounterVec
	forwarded *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		lines: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoder_lines_total",
			Help:      "Non-empty lines read from the decoder",
		}),
		decoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_decoded_total",
			Help:      "Pages parsed from decoder output",
		}, []string{"protocol", "baud"}),
		forwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_forwarded_total",
			Help:      "Pages delivered to a sink",
		}, []string{"sink"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_errors_total",
			Help:      "Pages dropped after a failed delivery",
		}, []string{"sink"}),
	}
}

func (m *Metrics) LineRead() {
	if m == nil {
		return
	}
	m.lines.Inc()
}

func (m *Metrics) Decoded(protocol string, baud string) {
	if m == nil {
		return
	}
	m.decoded.WithLabelValues(protocol, baud).Inc()
}

func (m *Metrics) Forwarded(sink string) {
	if m == nil {
		return
	}
	m.forwarded.WithLabelValues(sink).Inc()
}

func (m *Metrics) Failed(sink string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(sink).Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Metrics: http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "metrics server")
	}

	return nil
}

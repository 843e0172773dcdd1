// Package metrics records turn pipeline metrics in a Prometheus registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doeshing/dirctx/internal/ports"
)

const namespace = "dirctx"

// Recorder implements ports.Metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	prefixLookup *prometheus.CounterVec
	packedTokens prometheus.Histogram
	truncations  prometheus.Counter
	indexedFiles prometheus.Counter
	indexSeconds prometheus.Histogram
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Chat turns by outcome",
		}, []string{"outcome"}),
		prefixLookup: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefix_lookups_total",
			Help:      "Cached prefix lookups by result",
		}, []string{"result"}),
		packedTokens: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packed_context_tokens",
			Help:      "Tokens of retrieved context packed into a turn",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 10),
		}),
		truncations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_truncations_total",
			Help:      "Messages truncated to fit the context window",
		}),
		indexedFiles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_files_total",
			Help:      "Files chunked and embedded",
		}),
		indexSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_duration_seconds",
			Help:      "Duration of index runs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
}

func (r *Recorder) ObserveTurn(outcome string) {
	r.turns.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObservePrefix(matched bool) {
	result := "miss"
	if matched {
		result = "hit"
	}
	r.prefixLookup.WithLabelValues(result).Inc()
}

func (r *Recorder) ObservePackedTokens(tokens int) {
	r.packedTokens.Observe(float64(tokens))
}

func (r *Recorder) ObserveTruncation() {
	r.truncations.Inc()
}

func (r *Recorder) ObserveIndexedFiles(n int, elapsed time.Duration) {
	r.indexedFiles.Add(float64(n))
	r.indexSeconds.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, logger ports.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", map[string]interface{}{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveTurn(string) {}
func (Nop) ObservePrefix(bool) {}
func (Nop) ObservePackedTokens(int) {}
func (Nop) ObserveTruncation() {}
func (Nop) ObserveIndexedFiles(int, time.Duration) {}

var (
	_ ports.Metrics = (*Recorder)(nil)
	_ ports.Metrics = Nop{}
)

// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	EmotesAdded        prometheus.Counter
	EmoteDuplicates    prometheus.Counter
	EmoteFetchFailures prometheus.Counter
	EmoteUploads       *prometheus.CounterVec // result=success|error
	EmoteRequests      *prometheus.CounterVec // outcome=server|uploaded|unknown|error
	StoreReconnects    prometheus.Counter

	// Histograms (seconds)
	FetchDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		EmotesAdded = promauto.NewCounter(prometheus.CounterOpts{Name: "emotes_added_total", Help: "Number of emotes inserted into the store"})
		EmoteDuplicates = promauto.NewCounter(prometheus.CounterOpts{Name: "emotes_duplicate_total", Help: "Number of add attempts skipped because the name already exists"})
		EmoteFetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "emote_fetch_failures_total", Help: "Number of emote image downloads that failed"})
		EmoteUploads = promauto.NewCounterVec(prometheus.CounterOpts{Name: "emote_uploads_total", Help: "Emote uploads to chat servers by result"}, []string{"result"})
		EmoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "emote_requests_total", Help: "Emote requests seen in chat by outcome"}, []string{"outcome"})
		StoreReconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "emote_store_reconnects_total", Help: "Number of manual store reconnects"})
		FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "emote_fetch_duration_seconds", Help: "Emote image download duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// Inc increments c when metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// IncLabel increments the labelled child of vec when metrics are initialized.
func IncLabel(vec *prometheus.CounterVec, label string) {
	if vec != nil {
		vec.WithLabelValues(label).Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

// Package metrics exposes the process-wide Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label names shared across collectors.
const (
	LabelModel  = "model"
	LabelStatus = "status"
)

// Metrics holds every collector the service records. Collectors register
// on the default Prometheus registry, so exactly one instance may exist
// per process; obtain it through Default.
type Metrics struct {
	TokenizeRequests *prometheus.CounterVec
	TokenizeDuration *prometheus.HistogramVec

	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	CacheEntries   prometheus.Gauge

	VocabFetches      *prometheus.CounterVec
	VocabFetchSeconds prometheus.Histogram
}

var (
	once sync.Once
	def  *Metrics
)

// Default returns the process-wide collectors, registering them on first
// use.
func Default() *Metrics {
	once.Do(func() {
		def = &Metrics{
			TokenizeRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tokenlens_tokenize_requests_total",
					Help: "Tokenize operations by model and outcome",
				},
				[]string{LabelModel, LabelStatus},
			),
			TokenizeDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tokenlens_tokenize_duration_seconds",
					Help:    "Tokenize latency by model",
					Buckets: prometheus.DefBuckets,
				},
				[]string{LabelModel},
			),
			CacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tokenlens_cache_hits_total",
				Help: "Tokenizer cache lookups served from a live entry",
			}),
			CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tokenlens_cache_misses_total",
				Help: "Tokenizer cache lookups that triggered a construction",
			}),
			CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tokenlens_cache_evictions_total",
				Help: "Tokenizer instances evicted from the cache",
			}),
			CacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "tokenlens_cache_entries",
				Help: "Tokenizer instances currently cached",
			}),
			VocabFetches: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tokenlens_vocab_fetch_total",
					Help: "Vocabulary downloads by outcome",
				},
				[]string{LabelStatus},
			),
			VocabFetchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "tokenlens_vocab_fetch_duration_seconds",
				Help:    "Vocabulary download latency",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			}),
		}
	})
	return def
}

// ObserveTokenize records one tokenize operation and its latency.
func (m *Metrics) ObserveTokenize(model, status string, seconds float64) {
	m.TokenizeRequests.WithLabelValues(model, status).Inc()
	m.TokenizeDuration.WithLabelValues(model).Observe(seconds)
}

// ObserveVocabFetch records one vocabulary download attempt.
func (m *Metrics) ObserveVocabFetch(status string, seconds float64) {
	m.VocabFetches.WithLabelValues(status).Inc()
	m.VocabFetchSeconds.Observe(seconds)
}

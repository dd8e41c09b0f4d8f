package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFeedRequests       = "feed_requests_total"
	MetricFeedRankDuration   = "feed_rank_duration_seconds"
	MetricCandidatesFetched  = "feed_candidates_fetched_total"
	MetricCandidatesFiltered = "feed_candidates_filtered_total"
	MetricShortPages         = "feed_short_pages_total"
)

// Feed mode label values.
const (
	ModePersonalized = "personalized"
	ModeTrending     = "trending"
)

// Metrics contains Prometheus metrics for feed ranking.
// All operations are thread-safe.
type Metrics struct {
	requests           *prometheus.CounterVec
	rankDuration       *prometheus.HistogramVec
	candidatesFetched  prometheus.Counter
	candidatesFiltered prometheus.Counter
	shortPages         *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedRequests,
				Help: "Total number of feed page requests by mode",
			},
			[]string{"mode"},
		),
		rankDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFeedRankDuration,
				Help:    "Feed page assembly duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"mode"},
		),
		candidatesFetched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCandidatesFetched,
				Help: "Total number of candidate posts fetched for ranking",
			},
		),
		candidatesFiltered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCandidatesFiltered,
				Help: "Total number of candidate posts dropped by mute word filtering",
			},
		),
		shortPages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricShortPages,
				Help: "Total number of feed pages returned short of the requested limit",
			},
			[]string{"mode"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.requests,
		m.rankDuration,
		m.candidatesFetched,
		m.candidatesFiltered,
		m.shortPages,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRank records a completed feed request and its duration.
func (m *Metrics) ObserveRank(mode string, seconds float64) {
	m.requests.WithLabelValues(mode).Inc()
	m.rankDuration.WithLabelValues(mode).Observe(seconds)
}

// AddCandidatesFetched adds to the fetched-candidate counter.
func (m *Metrics) AddCandidatesFetched(n int) {
	m.candidatesFetched.Add(float64(n))
}

// AddCandidatesFiltered adds to the mute-filtered counter.
func (m *Metrics) AddCandidatesFiltered(n int) {
	m.candidatesFiltered.Add(float64(n))
}

// IncShortPages increments the short page counter.
func (m *Metrics) IncShortPages(mode string) {
	m.shortPages.WithLabelValues(mode).Inc()
}

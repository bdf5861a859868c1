package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus instrument a worker exports, grouped by
// the pipeline stage that updates it (ring, bucket, k-NN, evaluator).
type Metrics struct {
	// Ring driver (§4.F)
	RingRoundsTotal    prometheus.Counter
	RingRoundDuration  prometheus.Histogram
	RingTransferBytes  prometheus.Counter
	RingTransferErrors prometheus.Counter

	// Hash family / index builder (§4.B, §4.D)
	HashBuildDuration   prometheus.Histogram
	BucketOccupancy     prometheus.Histogram
	SortExchangesTotal  prometheus.Counter

	// k-NN engine (§4.E)
	CandidatesExamined prometheus.Counter
	CandidatesAdmitted prometheus.Counter
	CandidatesRejectedDup prometheus.Counter

	// Evaluator (§4.G)
	Recall       prometheus.Gauge
	ErrorRatio   prometheus.Gauge
	UnfilledSlots prometheus.Gauge

	// Control plane
	ControlRequestsTotal   *prometheus.CounterVec
	ControlRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all instruments against the default
// registerer. Call once per process (one worker, one registry), the same
// convention the teacher's NewMetrics() follows.
func NewMetrics() *Metrics {
	return &Metrics{
		RingRoundsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlsh_ring_rounds_total",
			Help: "Total number of ring rounds completed by this worker.",
		}),
		RingRoundDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlsh_ring_round_duration_seconds",
			Help:    "Wall-clock duration of one ComputeRound+BarrierJoin.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
		}),
		RingTransferBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlsh_ring_transfer_bytes_total",
			Help: "Total bytes rotated around the ring (shard + partial-K).",
		}),
		RingTransferErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlsh_ring_transfer_errors_total",
			Help: "Total failed ring RPCs.",
		}),
		HashBuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlsh_hash_build_duration_seconds",
			Help:    "Time to construct and broadcast the hash family.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		}),
		BucketOccupancy: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlsh_bucket_occupancy",
			Help:    "Distribution of per-bucket point counts after the fill pass.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		SortExchangesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlsh_sort_exchanges_total",
			Help: "Total pairwise exchanges performed by the distributed odd-even sort.",
		}),
		CandidatesExamined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlsh_candidates_examined_total",
			Help: "Total candidate points examined by the k-NN engine.",
		}),
		CandidatesAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlsh_candidates_admitted_total",
			Help: "Total candidates admitted into a top-k slot.",
		}),
		CandidatesRejectedDup: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dlsh_candidates_rejected_duplicate_total",
			Help: "Total candidates rejected as self or already-present duplicates.",
		}),
		Recall: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dlsh_eval_recall_percent",
			Help: "Most recently computed recall against ground truth (0-100).",
		}),
		ErrorRatio: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dlsh_eval_error_ratio",
			Help: "Most recently computed mean error ratio against ground truth.",
		}),
		UnfilledSlots: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dlsh_eval_unfilled_slots",
			Help: "Total top-k slots still at +Inf when the evaluator ran.",
		}),
		ControlRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dlsh_control_requests_total",
			Help: "Control-plane requests by method and status.",
		}, []string{"method", "status"}),
		ControlRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dlsh_control_request_duration_seconds",
			Help:    "Control-plane request duration.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		}, []string{"method"}),
	}
}

// RecordRound updates ring metrics after one ComputeRound+BarrierJoin.
func (m *Metrics) RecordRound(d time.Duration, transferredBytes int) {
	m.RingRoundsTotal.Inc()
	m.RingRoundDuration.Observe(d.Seconds())
	m.RingTransferBytes.Add(float64(transferredBytes))
}

// RecordBucketOccupancies feeds one histogram observation per bucket size.
func (m *Metrics) RecordBucketOccupancies(sizes []uint64) {
	for _, s := range sizes {
		m.BucketOccupancy.Observe(float64(s))
	}
}

// RecordCandidate updates k-NN engine counters for one candidate outcome.
func (m *Metrics) RecordCandidate(admitted, duplicateRejected bool) {
	m.CandidatesExamined.Inc()
	if admitted {
		m.CandidatesAdmitted.Inc()
	}
	if duplicateRejected {
		m.CandidatesRejectedDup.Inc()
	}
}

// RecordEvaluation updates the gauges the evaluator (§4.G) reports.
func (m *Metrics) RecordEvaluation(recallPercent, errorRatio float64, unfilledSlots int) {
	m.Recall.Set(recallPercent)
	m.ErrorRatio.Set(errorRatio)
	m.UnfilledSlots.Set(float64(unfilledSlots))
}

// RecordControlRequest records one control-plane HTTP/gRPC call.
func (m *Metrics) RecordControlRequest(method, status string, d time.Duration) {
	m.ControlRequestsTotal.WithLabelValues(method, status).Inc()
	m.ControlRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

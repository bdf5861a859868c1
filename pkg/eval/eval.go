// Package eval implements the recall/error-ratio evaluator spec §4.G
// describes: each worker scores its own completed top-k result against
// a ground-truth file sharded the same way, then every worker's partial
// sums are combined via collective.Comm.AllReduceSum into one identical
// global Result.
package eval

import (
	"math"
	"sort"

	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/knn"
)

// GroundTruth is one worker's shard-local slice of the ground-truth
// file: IDs[p] and Dist[p] are the correct k nearest neighbors (and
// their distances) of local point p, loaded by pkg/fileio alongside the
// same shard the worker's own top-k was computed over. Dist holds plain
// Euclidean distance, unlike knn.TopK's squared distances — spec §4.G's
// sqrt(computed_dist)/correct_dist ratio only makes sense comparing like
// units.
type GroundTruth struct {
	IDs  [][]uint64
	Dist [][]float64
}

// LocalStats is one worker's unreduced accumulators, combined across
// the cluster by Reduce.
type LocalStats struct {
	TruePositives  float64
	FilledPoints   float64
	ErrorRatioSum  float64
	UnfilledPoints float64
	UnfilledSlots  float64
}

// Result is the evaluator's cluster-wide output — identical on every
// rank once Reduce returns.
type Result struct {
	Recall         float64
	ErrorRatio     float64
	UnfilledPoints int
	UnfilledSlots  int
}

// Evaluate scores topk against truth over this worker's real (non-
// padded) points — realCount is dataset.Shard.RealCount(), spec §4.G's
// "correct_rank_size" padded-tail skip applied directly from the shard
// that already carries this count rather than recomputed from a
// separate formula.
func Evaluate(topk *knn.TopK, truth *GroundTruth, realCount int, k int) LocalStats {
	var s LocalStats
	for p := 0; p < realCount; p++ {
		want := make(map[uint64]bool, len(truth.IDs[p]))
		for _, id := range truth.IDs[p] {
			want[id] = true
		}

		tp := 0
		for _, id := range topk.IDs(p) {
			if want[uint64(id)] {
				tp++
			}
		}
		s.TruePositives += float64(tp)

		filled := topk.FilledCount(p)
		if filled < k {
			s.UnfilledPoints++
			s.UnfilledSlots += float64(k - filled)
			continue
		}

		s.FilledPoints++

		// The ratio pairs the j-th smallest computed distance with the
		// j-th smallest correct distance, not slot j of each as stored —
		// knn.TopK's slot 0 is the admission-threshold max, not the
		// nearest neighbor, so both sides need their own ascending sort
		// before comparison.
		dists := topk.Dists(p)
		computed := make([]float64, k)
		for j := 0; j < k; j++ {
			computed[j] = math.Sqrt(dists[j])
		}
		sort.Float64s(computed)
		correct := make([]float64, k)
		copy(correct, truth.Dist[p][:k])
		sort.Float64s(correct)

		var ratioSum float64
		for j := 0; j < k; j++ {
			if computed[j] == 0 || correct[j] == 0 {
				ratioSum++
			} else {
				ratioSum += computed[j] / correct[j]
			}
		}
		s.ErrorRatioSum += ratioSum / float64(k)
	}
	return s
}

// Reduce combines this rank's LocalStats with every other rank's
// (comm.AllReduceSum) and computes the global recall and error-ratio.
// Error ratio is averaged the way the original's average() does: each
// rank first collapses its own filled points to one mean ratio, then
// those per-rank means are summed via AllReduceSum and divided by
// comm.Size() — an unweighted mean of means, not a sum-of-ratios over
// sum-of-filled-points. A rank with fewer real (non-padded) points
// still counts its own mean once, same as every other rank.
func Reduce(comm collective.Comm, totalSize uint64, k int, local LocalStats) (Result, error) {
	var localMeanRatio float64
	if local.FilledPoints > 0 {
		localMeanRatio = local.ErrorRatioSum / local.FilledPoints
	}

	buf := []float64{
		local.TruePositives,
		localMeanRatio,
		local.UnfilledPoints,
		local.UnfilledSlots,
	}
	sums, err := comm.AllReduceSum(buf)
	if err != nil {
		return Result{}, err
	}
	tp, meanRatioSum, unfilledPoints, unfilledSlots := sums[0], sums[1], sums[2], sums[3]

	return Result{
		Recall:         tp / (float64(totalSize) * float64(k)) * 100,
		ErrorRatio:     meanRatioSum / float64(comm.Size()),
		UnfilledPoints: int(unfilledPoints),
		UnfilledSlots:  int(unfilledSlots),
	}, nil
}

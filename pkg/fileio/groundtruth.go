package fileio

import (
	"fmt"

	"github.com/lshknn/dlsh/pkg/eval"
)

// LoadGroundTruth reads rank's shard of a saved-neighbor ID/distance
// pair (spec §4.G's evaluate_knn_file / evaluate_knn_dist_file) into
// the shape pkg/eval.Evaluate expects.
func LoadGroundTruth(idsPath, distsPath string, rank, worldSize int) (*eval.GroundTruth, error) {
	ids, kIDs, err := ReadNeighborIDs(idsPath, rank, worldSize)
	if err != nil {
		return nil, fmt.Errorf("fileio: loading ground-truth ids: %w", err)
	}
	dists, kDists, err := ReadNeighborDists(distsPath, rank, worldSize)
	if err != nil {
		return nil, fmt.Errorf("fileio: loading ground-truth dists: %w", err)
	}
	if kIDs != kDists {
		return nil, fmt.Errorf("fileio: ground-truth k mismatch: ids file has k=%d, dists file has k=%d", kIDs, kDists)
	}
	return &eval.GroundTruth{IDs: ids, Dist: dists}, nil
}

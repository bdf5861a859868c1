package knn

import (
	"github.com/lshknn/dlsh/pkg/bucket"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/hashfamily"
)

// Round runs spec §4.E's single-round kernel: every point currently
// held in visit is re-hashed against family (identical on every worker)
// to find its candidate bucket in tables (built over local), then every
// candidate in that bucket is distance-checked and admitted into topk.
//
// Candidates are walked in blocks of tables.BlockingSize(): each block
// reads a fixed number of IDs starting at the current bucket position
// without clipping to the bucket's true end, which lets the inner loop
// stay branch-free. This is safe by construction — bucket.Index pads a
// sentinel tail past its last table precisely so such a read can never
// leave valid memory — and harmless: any extra candidate it picks up
// belongs to a neighboring bucket of the same local shard, so it is
// still a legal (if not intended) candidate for admission.
func Round(tables *bucket.Index, family hashfamily.Family, local, visit *dataset.Shard, topk *TopK) {
	buckets := tables.Buckets()
	blockingSize := tables.BlockingSize()
	dims := int(local.Dims())
	baseID := local.BaseID()

	for p := dataset.Idx(0); p < visit.RankSize(); p++ {
		selfID := visit.GlobalID(p)

		for table := 0; table < family.NumTables(); table++ {
			b := family.Hash(table, visit, p)
			start, end := tables.Bounds(table, b)
			tableBase := tables.TableOffset(table)

			for pos := start; pos < end; pos += uint64(blockingSize) {
				for j := 0; j < blockingSize; j++ {
					slot := tableBase + dataset.Idx(pos) + dataset.Idx(j)
					candID := buckets[slot]

					if candID == selfID || topk.contains(int(p), candID) {
						continue
					}

					localIdx := candID - baseID
					var sum dataset.Real
					for d := 0; d < dims; d++ {
						diff := visit.At(p, dataset.Idx(d)) - local.At(localIdx, dataset.Idx(d))
						sum += diff * diff
					}
					topk.tryInsert(int(p), candID, sum)
				}
			}
		}
	}
}

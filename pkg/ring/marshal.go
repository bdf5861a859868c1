package ring

import (
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/knn"
	ringproto "github.com/lshknn/dlsh/pkg/ring/proto"
)

func shardToChunk(shard *dataset.Shard) *ringproto.ShardChunk {
	return &ringproto.ShardChunk{
		Layout:    int(shard.Layout()),
		Dims:      shard.Dims(),
		TotalSize: shard.TotalSize(),
		RankSize:  shard.RankSize(),
		BaseID:    shard.BaseID(),
		RealCount: shard.RealCount(),
		Data:      append([]float64(nil), shard.Raw()...),
		IDs:       append([]uint64(nil), shard.IDsRaw()...),
	}
}

func chunkToShard(c *ringproto.ShardChunk) *dataset.Shard {
	return dataset.NewShardFromRaw(
		dataset.Layout(c.Layout), c.Dims, c.TotalSize, c.RankSize, c.BaseID, c.RealCount,
		c.Data, c.IDs,
	)
}

func topkToChunk(t *knn.TopK) *ringproto.TopKChunk {
	chunk := &ringproto.TopKChunk{
		K:    t.K(),
		IDs:  make([][]uint64, t.Len()),
		Dist: make([][]float64, t.Len()),
	}
	for p := 0; p < t.Len(); p++ {
		chunk.IDs[p] = append([]uint64(nil), t.IDs(p)...)
		chunk.Dist[p] = append([]float64(nil), t.Dists(p)...)
	}
	return chunk
}

func chunkToTopK(c *ringproto.TopKChunk) *knn.TopK {
	t := knn.NewTopK(len(c.IDs), c.K)
	for p := range c.IDs {
		copy(t.IDs(p), c.IDs[p])
		copy(t.Dists(p), c.Dist[p])
	}
	return t
}

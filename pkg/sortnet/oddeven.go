// Package sortnet implements the distributed odd-even transposition sort
// spec §4.B uses to turn each worker's local sample of hash-projection
// values into a globally sorted sequence, from which the entropy-based
// hash family reads cut-off quantiles (spec §4.C).
package sortnet

import (
	"sort"

	"github.com/lshknn/dlsh/pkg/collective"
)

const (
	mergeTag  = 1
	sortedTag = 2
)

// Sort rearranges local in place so that, read rank-by-rank in order,
// local[0] on rank 0 through local[len-1] on rank P-1 forms one globally
// non-decreasing sequence. Every rank must hold the same number of
// elements; P "passes" are run regardless of data, mirroring the
// original odd-even network rather than detecting early convergence.
func Sort(comm collective.Comm, local []float64) error {
	sort.Float64s(local)

	rank := comm.Rank()
	size := comm.Size()
	for i := 1; i <= size; i++ {
		switch {
		case (i+rank)%2 == 0:
			if rank < size-1 {
				if err := pairwiseExchange(comm, local, rank, rank+1); err != nil {
					return err
				}
			}
		case rank > 0:
			if err := pairwiseExchange(comm, local, rank-1, rank); err != nil {
				return err
			}
		}
	}
	return nil
}

// pairwiseExchange merges a's owner's local slice with its partner's,
// splitting the merged, sorted run back in half: the lower rank keeps the
// lower half, the upper rank keeps the upper half. Only one side of the
// pair actually computes the merge — the other just hands over its data
// and waits for its half back, exactly mirroring pairwise_exchange's
// asymmetric MPI_Send/MPI_Recv roles.
func pairwiseExchange(comm collective.Comm, a []float64, sendRank, recvRank int) error {
	rank := comm.Rank()
	if rank == sendRank {
		if err := comm.Send(recvRank, mergeTag, a); err != nil {
			return err
		}
		sorted, err := comm.Recv(recvRank, sortedTag)
		if err != nil {
			return err
		}
		copy(a, sorted)
		return nil
	}

	remote, err := comm.Recv(sendRank, mergeTag)
	if err != nil {
		return err
	}
	all := make([]float64, len(a)+len(remote))
	n := copy(all, a)
	copy(all[n:], remote)
	sort.Float64s(all)

	var theirStart, myStart int
	if sendRank > rank {
		theirStart, myStart = len(a), 0
	} else {
		theirStart, myStart = 0, len(a)
	}
	if err := comm.Send(sendRank, sortedTag, all[theirStart:theirStart+len(a)]); err != nil {
		return err
	}
	copy(a, all[myStart:myStart+len(a)])
	return nil
}

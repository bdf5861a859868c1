// Command worker is one rank of a dlsh cluster: it owns a shard of the
// dataset, runs the P-round ring pipeline against it, optionally scores
// the result against a saved ground truth, and optionally persists its
// shard of the top-k result. Bootstrap (rank, world size, peer
// addresses) is intentionally minimal — spec.md's Non-goals exclude
// process bootstrap beyond the data contract, so this takes the ring
// topology as flags rather than discovering it.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lshknn/dlsh/pkg/bucket"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/eval"
	"github.com/lshknn/dlsh/pkg/fileio"
	"github.com/lshknn/dlsh/pkg/hashfamily"
	"github.com/lshknn/dlsh/pkg/observability"
	"github.com/lshknn/dlsh/pkg/options"
	"github.com/lshknn/dlsh/pkg/ring"
)

var version = "0.1.0"

func main() {
	var (
		rank      = flag.Int("rank", 0, "this worker's 0-based rank")
		worldSize = flag.Int("world_size", 1, "total number of workers, P")
		addrsCSV  = flag.String("addrs", "127.0.0.1:9000", "comma-separated host:port of every rank, index-aligned with rank")
		showVer   = flag.Bool("version", false, "print version and exit")
	)
	bootstrapArgs, optArgs := splitArgs(os.Args[1:])
	// Everything after the bootstrap flags belongs to pkg/options's own
	// key-space-value grammar (spec §6), parsed separately below.
	flag.CommandLine.Parse(bootstrapArgs)
	if *showVer {
		fmt.Printf("dlsh-worker %s\n", version)
		return
	}

	addrs := strings.Split(*addrsCSV, ",")
	log := observability.NewWorkerLogger(*rank, *worldSize)
	metrics := observability.NewMetrics()

	if err := run(*rank, *worldSize, addrs, optArgs, log, metrics); err != nil {
		log.Fatal(err.Error())
	}
}

// splitArgs partitions argv into the worker's own bootstrap flags
// (rank/world_size/addrs/version) and everything else, which belongs to
// pkg/options's key-space-value grammar. The two grammars are parsed by
// different packages, so argv has to be split before either sees it.
func splitArgs(argv []string) (bootstrap, optArgs []string) {
	isBootstrapKey := map[string]bool{"rank": true, "world_size": true, "addrs": true, "version": true}
	for i := 0; i < len(argv); i++ {
		key := strings.TrimPrefix(argv[i], "--")
		hasValue := key != "version" && i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "--")

		if isBootstrapKey[key] {
			bootstrap = append(bootstrap, argv[i])
			if hasValue {
				bootstrap = append(bootstrap, argv[i+1])
			}
		} else {
			optArgs = append(optArgs, argv[i])
			if hasValue {
				optArgs = append(optArgs, argv[i+1])
			}
		}
		if hasValue {
			i++
		}
	}
	return bootstrap, optArgs
}

func run(rank, worldSize int, addrs, optArgs []string, log *observability.Logger, metrics *observability.Metrics) error {
	opt, err := options.Parse(optArgs)
	if err != nil {
		return fmt.Errorf("parsing options: %w", err)
	}
	if opt.Help {
		flag.Usage()
		return nil
	}

	var parser fileio.Parser
	switch opt.FileParser {
	case options.ARFFParser:
		parser = fileio.ARFFParser{}
	default:
		parser = fileio.BinaryParser{}
	}

	shard, err := parser.ParseShard(opt.DataFile, rank, worldSize)
	if err != nil {
		return fmt.Errorf("loading shard: %w", err)
	}
	if err := opt.Validate(int(shard.RankSize())); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	if opt.Layout == options.SoA {
		shard = shard.AsLayout(dataset.SoA)
	}

	transport := ring.NewTransport(rank, addrs)
	if _, err := transport.Listen(); err != nil {
		return fmt.Errorf("starting ring transport: %w", err)
	}
	defer transport.Stop()

	family, err := hashfamily.Build(opt, shard, transport)
	if err != nil {
		return fmt.Errorf("building hash family: %w", err)
	}

	start := time.Now()
	tables := bucket.Build(family, shard, opt.HashTableSize, opt.BlockingSize)
	log.Info("bucket index built", map[string]interface{}{"duration": time.Since(start)})

	driver := ring.NewDriver(transport, shard, tables, family, opt.K)
	topk, err := driver.Run()
	if err != nil {
		return fmt.Errorf("running ring pipeline: %w", err)
	}
	log.Info("ring pipeline complete", map[string]interface{}{"rounds": worldSize})

	if opt.OptionsSaveFile != "" {
		if err := opt.Save(opt.OptionsSaveFile); err != nil {
			return fmt.Errorf("saving options: %w", err)
		}
	}

	if opt.KNNSaveFile != "" {
		if rank == 0 {
			if err := fileio.CreateNeighborFile(opt.KNNSaveFile, shard.TotalSize(), opt.K); err != nil {
				return fmt.Errorf("creating knn_save_file: %w", err)
			}
		}
		if _, err := transport.AllReduceSum([]float64{0}); err != nil {
			return fmt.Errorf("barrier before writing knn_save_file: %w", err)
		}
		if err := fileio.WriteShardIDs(opt.KNNSaveFile, shard, topk); err != nil {
			return fmt.Errorf("writing knn_save_file: %w", err)
		}
	}
	if opt.KNNDistSaveFile != "" {
		if rank == 0 {
			if err := fileio.CreateNeighborFile(opt.KNNDistSaveFile, shard.TotalSize(), opt.K); err != nil {
				return fmt.Errorf("creating knn_dist_save_file: %w", err)
			}
		}
		if _, err := transport.AllReduceSum([]float64{0}); err != nil {
			return fmt.Errorf("barrier before writing knn_dist_save_file: %w", err)
		}
		if err := fileio.WriteShardDists(opt.KNNDistSaveFile, shard, topk); err != nil {
			return fmt.Errorf("writing knn_dist_save_file: %w", err)
		}
	}

	if opt.EvaluateKNNFile != "" && opt.EvaluateKNNDistFile != "" {
		truth, err := fileio.LoadGroundTruth(opt.EvaluateKNNFile, opt.EvaluateKNNDistFile, rank, worldSize)
		if err != nil {
			return fmt.Errorf("loading ground truth: %w", err)
		}
		local := eval.Evaluate(topk, truth, int(shard.RealCount()), opt.K)
		result, err := eval.Reduce(transport, shard.TotalSize(), opt.K, local)
		if err != nil {
			return fmt.Errorf("reducing evaluation: %w", err)
		}
		metrics.RecordEvaluation(result.Recall, result.ErrorRatio, result.UnfilledSlots)
		if rank == 0 {
			log.Info("evaluation complete", map[string]interface{}{
				"recall": result.Recall, "error_ratio": result.ErrorRatio, "unfilled_slots": result.UnfilledSlots,
			})
		}
	}

	return nil
}

// Package options parses and validates the command-line and options-file
// surface of a dlsh worker (spec §6). It follows the same typed-struct +
// Default()/Validate() shape as a conventional service config package, with
// the wrinkle that the CLI surface here is key-space-value (`--flag value`)
// rather than flag.FlagSet, because unknown/duplicated/malformed keys must
// be hard parse errors rather than silently ignored.
package options

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileParser selects the concrete data-file codec (spec §6).
type FileParser string

const (
	BinaryParser FileParser = "binary_parser"
	ARFFParser   FileParser = "arff_parser"
)

// HashFamilyKind selects the LSH hash-function family (spec §4.B).
type HashFamilyKind string

const (
	RandomProjection HashFamilyKind = "random_projection"
	EntropyBased     HashFamilyKind = "entropy_based"
	Mixed            HashFamilyKind = "mixed"
)

// Layout is the compile/construction-time memory layout choice (spec §3).
type Layout string

const (
	AoS Layout = "aos"
	SoA Layout = "soa"
)

// Options holds the full effective configuration of one worker.
type Options struct {
	// Required
	DataFile string
	K        int

	// File handling
	FileParser          FileParser
	OptionsFile         string
	OptionsSaveFile     string
	KNNSaveFile         string
	KNNDistSaveFile     string
	EvaluateKNNFile     string
	EvaluateKNNDistFile string

	// LSH hyperparameters (spec §3, §4.B)
	HashFamily       HashFamilyKind
	HashPoolSize     int
	NumHashFunctions int
	NumHashTables    int
	HashTableSize    uint32
	W                float64
	NumCutOffPoints  int
	NumMultiProbes   int

	// Compile-time-ish choices carried as options here since this is not a
	// template-instantiated system (spec §9's "layout as type-level tag"
	// resolved via construction-time dispatch instead).
	Layout       Layout
	BlockingSize int

	// Debug/reproducibility switch (spec §4.B builder contract).
	DebugSeed bool
	Help      bool
}

// Default returns the baseline configuration before any file/CLI overrides.
func Default() *Options {
	return &Options{
		FileParser:       BinaryParser,
		HashFamily:       RandomProjection,
		HashPoolSize:     64,
		NumHashFunctions: 4,
		NumHashTables:    8,
		HashTableSize:    1021,
		W:                4.0,
		NumCutOffPoints:  4,
		NumMultiProbes:   1,
		Layout:           AoS,
		BlockingSize:     32,
		DebugSeed:        false,
	}
}

// knownKeys enumerates every recognized `--key` (spec §6 table). Parse
// rejects any key not in this set.
var knownKeys = map[string]bool{
	"data_file":               true,
	"k":                       true,
	"file_parser":             true,
	"options_file":            true,
	"options_save_file":       true,
	"knn_save_file":           true,
	"knn_dist_save_file":      true,
	"evaluate_knn_file":       true,
	"evaluate_knn_dist_file":  true,
	"hash_pool_size":          true,
	"num_hash_functions":      true,
	"num_hash_tables":         true,
	"hash_table_size":         true,
	"w":                       true,
	"num_cut_off_points":      true,
	"num_multi_probes":        true,
	"hash_family":             true,
	"layout":                  true,
	"blocking_size":           true,
	"debug_seed":              true,
	"help":                    true,
}

// Parse parses argv (excluding argv[0]) into Options, preloading from an
// options file if --options_file is present, then applying CLI overrides.
// Per spec §6: unknown keys, duplicated keys, keys without a leading "--",
// or values that themselves start with "--" are hard errors. "help"
// consumes no value.
func Parse(argv []string) (*Options, error) {
	kv, err := tokenize(argv)
	if err != nil {
		return nil, err
	}

	opt := Default()

	if path, ok := kv["options_file"]; ok {
		fileKV, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading options_file %q: %w", path, err)
		}
		for k, v := range fileKV {
			if !knownKeys[k] {
				return nil, fmt.Errorf("options_file %q: unknown key %q", path, k)
			}
			if err := apply(opt, k, v); err != nil {
				return nil, fmt.Errorf("options_file %q: %w", path, err)
			}
		}
	}

	for k, v := range kv {
		if err := apply(opt, k, v); err != nil {
			return nil, err
		}
	}

	if _, ok := kv["help"]; ok {
		opt.Help = true
		return opt, nil
	}

	return opt, nil
}

// tokenize walks argv and builds the key->value map, enforcing the hard
// parse-error rules before any value is interpreted.
func tokenize(argv []string) (map[string]string, error) {
	kv := make(map[string]string)
	i := 0
	for i < len(argv) {
		tok := argv[i]
		if !strings.HasPrefix(tok, "--") {
			return nil, fmt.Errorf("malformed argument %q: expected a --key", tok)
		}
		key := strings.TrimPrefix(tok, "--")
		if key == "" {
			return nil, fmt.Errorf("malformed argument %q: empty key", tok)
		}
		if !knownKeys[key] {
			return nil, fmt.Errorf("unknown option --%s", key)
		}
		if _, dup := kv[key]; dup {
			return nil, fmt.Errorf("duplicated option --%s", key)
		}

		if key == "help" {
			kv[key] = "true"
			i++
			continue
		}

		if i+1 >= len(argv) {
			return nil, fmt.Errorf("option --%s requires a value", key)
		}
		val := argv[i+1]
		if strings.HasPrefix(val, "--") {
			return nil, fmt.Errorf("option --%s: value %q must not start with --", key, val)
		}
		kv[key] = val
		i += 2
	}
	return kv, nil
}

// apply assigns a single parsed key/value pair onto opt.
func apply(opt *Options, key, val string) error {
	switch key {
	case "data_file":
		opt.DataFile = val
	case "k":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("k: %w", err)
		}
		opt.K = n
	case "file_parser":
		switch FileParser(val) {
		case BinaryParser, ARFFParser:
			opt.FileParser = FileParser(val)
		default:
			return fmt.Errorf("file_parser: unrecognized value %q", val)
		}
	case "options_file":
		opt.OptionsFile = val
	case "options_save_file":
		opt.OptionsSaveFile = val
	case "knn_save_file":
		opt.KNNSaveFile = val
	case "knn_dist_save_file":
		opt.KNNDistSaveFile = val
	case "evaluate_knn_file":
		opt.EvaluateKNNFile = val
	case "evaluate_knn_dist_file":
		opt.EvaluateKNNDistFile = val
	case "hash_pool_size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("hash_pool_size: %w", err)
		}
		opt.HashPoolSize = n
	case "num_hash_functions":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("num_hash_functions: %w", err)
		}
		opt.NumHashFunctions = n
	case "num_hash_tables":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("num_hash_tables: %w", err)
		}
		opt.NumHashTables = n
	case "hash_table_size":
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return fmt.Errorf("hash_table_size: %w", err)
		}
		opt.HashTableSize = uint32(n)
	case "w":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("w: %w", err)
		}
		opt.W = f
	case "num_cut_off_points":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("num_cut_off_points: %w", err)
		}
		opt.NumCutOffPoints = n
	case "num_multi_probes":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("num_multi_probes: %w", err)
		}
		opt.NumMultiProbes = n
	case "hash_family":
		switch HashFamilyKind(val) {
		case RandomProjection, EntropyBased, Mixed:
			opt.HashFamily = HashFamilyKind(val)
		default:
			return fmt.Errorf("hash_family: unrecognized value %q", val)
		}
	case "layout":
		switch Layout(val) {
		case AoS, SoA:
			opt.Layout = Layout(val)
		default:
			return fmt.Errorf("layout: unrecognized value %q", val)
		}
	case "blocking_size":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("blocking_size: %w", err)
		}
		opt.BlockingSize = n
	case "debug_seed":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("debug_seed: %w", err)
		}
		opt.DebugSeed = b
	case "help":
		opt.Help = true
	default:
		return fmt.Errorf("unknown option --%s", key)
	}
	return nil
}

// LoadFile reads a line-oriented "key value" options file (spec §6).
// Blank lines and lines beginning with '#' are ignored.
func LoadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	kv := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected \"key value\", got %q", lineNo, line)
		}
		key := strings.TrimSpace(fields[0])
		val := strings.TrimSpace(fields[1])
		if _, dup := kv[key]; dup {
			return nil, fmt.Errorf("line %d: duplicated key %q", lineNo, key)
		}
		kv[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return kv, nil
}

// Save writes the effective options back out in the same key-space-value
// format LoadFile reads (spec §6 options_save_file).
func (o *Options) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "data_file %s\n", o.DataFile)
	fmt.Fprintf(w, "k %d\n", o.K)
	fmt.Fprintf(w, "file_parser %s\n", o.FileParser)
	fmt.Fprintf(w, "hash_family %s\n", o.HashFamily)
	fmt.Fprintf(w, "hash_pool_size %d\n", o.HashPoolSize)
	fmt.Fprintf(w, "num_hash_functions %d\n", o.NumHashFunctions)
	fmt.Fprintf(w, "num_hash_tables %d\n", o.NumHashTables)
	fmt.Fprintf(w, "hash_table_size %d\n", o.HashTableSize)
	fmt.Fprintf(w, "w %g\n", o.W)
	fmt.Fprintf(w, "num_cut_off_points %d\n", o.NumCutOffPoints)
	fmt.Fprintf(w, "num_multi_probes %d\n", o.NumMultiProbes)
	fmt.Fprintf(w, "layout %s\n", o.Layout)
	fmt.Fprintf(w, "blocking_size %d\n", o.BlockingSize)
	fmt.Fprintf(w, "debug_seed %t\n", o.DebugSeed)
	return w.Flush()
}

// Validate checks configuration errors (spec §7): out-of-range k, missing
// required fields, and the hash-family build-time coupling between
// num_multi_probes and num_hash_functions (spec §4.B failure model).
// rankSize is the local shard size this worker will hold, needed because
// k's valid range depends on it (k < rank_size).
func (o *Options) Validate(rankSize int) error {
	if o.Help {
		return nil
	}
	if o.DataFile == "" {
		return fmt.Errorf("data_file is required")
	}
	if o.K < 1 {
		return fmt.Errorf("k must be >= 1, got %d", o.K)
	}
	if rankSize > 0 && o.K >= rankSize {
		return fmt.Errorf("k (%d) must be < rank_size (%d)", o.K, rankSize)
	}
	if o.NumHashTables < 1 {
		return fmt.Errorf("num_hash_tables must be >= 1")
	}
	if o.NumHashFunctions < 1 {
		return fmt.Errorf("num_hash_functions must be >= 1")
	}
	if o.HashPoolSize < o.NumHashFunctions {
		return fmt.Errorf("hash_pool_size (%d) must be >= num_hash_functions (%d)", o.HashPoolSize, o.NumHashFunctions)
	}
	if o.HashTableSize < 1 {
		return fmt.Errorf("hash_table_size must be >= 1")
	}
	if o.W <= 0 {
		return fmt.Errorf("w must be > 0")
	}
	if o.HashFamily == EntropyBased || o.HashFamily == Mixed {
		if o.NumCutOffPoints < 1 {
			return fmt.Errorf("num_cut_off_points must be >= 1 for hash_family %q", o.HashFamily)
		}
	}
	if o.NumMultiProbes > o.NumHashFunctions {
		return fmt.Errorf("num_multi_probes (%d) must be <= num_hash_functions (%d) in the single-probe default", o.NumMultiProbes, o.NumHashFunctions)
	}
	if o.BlockingSize < 1 {
		return fmt.Errorf("blocking_size must be >= 1")
	}
	return nil
}

package hashfamily

// combine folds val into seed using the same avalanche mix libstdc++'s
// boost::hash_combine uses, tuned for a 32-bit hash value: it is what
// turns a sequence of independent per-hash-function bucket indices into
// one well-distributed combined_hash.
func combine(seed, val uint32) uint32 {
	return seed ^ (val + 0x9e3779b9 + (seed << 6) + (seed >> 2))
}

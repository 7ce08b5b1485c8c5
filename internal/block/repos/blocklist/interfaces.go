package blocklist

import "github.com/haukened/siteblock/internal/block/domain"

// BloomSizer computes Bloom filter parameters from capacity (n) and target FP rate (p).
// It returns m (number of bits) and k (number of hash functions).
type BloomSizer interface {
	Size(n uint64, p float64) (m uint64, k uint8)
}

// BloomFilter is the minimal interface the repository needs from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds a filter sized for a snapshot.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// DecisionCache caches rule decisions per (hostname, url) lookup with basic metrics.
type DecisionCache interface {
	Get(key string) (domain.BlockDecision, bool)
	Put(key string, d domain.BlockDecision)
	Len() int
	Purge()
	Stats() CacheStats
}

// Repository is the in-memory rule store. It is always rebuilt in full from
// the persisted blocklist; there is no incremental patching.
type Repository interface {
	Rebuild(entries []domain.BlockedEntry)
	IsHostnameBlocked(hostname string) bool
	IsURLBlocked(normalizedURL string) bool
	Decide(hostname, normalizedURL string) domain.BlockDecision
	Stats() RepoStats
}

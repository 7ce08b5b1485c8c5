package blocklist

// CacheStats reports lightweight cache metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type CacheStats struct {
	Capacity  int    // configured capacity (0 for disabled cache)
	Size      int    // current number of entries
	Hits      uint64 // total cache hits since construction
	Misses    uint64 // total cache misses since construction
	Evictions uint64 // total evictions since construction
}

// RepoStats reports the size of the current snapshot and cache metrics.
type RepoStats struct {
	Hostnames   int   // enabled domain-scope rules
	URLs        int   // enabled url-scope rules
	Skipped     int   // enabled entries that failed normalization
	RebuiltUnix int64 // last rebuild time, seconds since epoch
	Cache       CacheStats
}

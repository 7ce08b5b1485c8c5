package blocklist

import (
	"sync"

	"github.com/haukened/siteblock/internal/block/common/clock"
	"github.com/haukened/siteblock/internal/block/common/log"
	"github.com/haukened/siteblock/internal/block/common/urlnorm"
	"github.com/haukened/siteblock/internal/block/domain"
)

// Bloom keys are namespaced so a hostname never tests positive for a URL rule.
const (
	hostKeyPrefix = "h|"
	urlKeyPrefix  = "u|"
)

// snapshot is one immutable generation of the rule sets.
type snapshot struct {
	hostnames map[string]struct{}
	urls      map[string]struct{}
	bloom     BloomFilter
	skipped   int
	rebuilt   int64
}

func emptySnapshot() *snapshot {
	return &snapshot{hostnames: map[string]struct{}{}, urls: map[string]struct{}{}}
}

// repository implements Repository by composing hash sets, a Bloom filter
// (via factory) and a DecisionCache. Reads go bloom → cache → set; Rebuild
// builds a fresh snapshot and swaps it in while purging the cache.
type repository struct {
	mu      sync.RWMutex
	snap    *snapshot
	cache   DecisionCache
	factory BloomFactory
	fpRate  float64
	clock   clock.Clock
	logger  log.Logger
}

// Options configures a Repository. Factory and Cache are optional.
type Options struct {
	Factory BloomFactory
	Cache   DecisionCache
	FPRate  float64
	Clock   clock.Clock
	Logger  log.Logger
}

// NewRepository constructs an empty Repository.
func NewRepository(opts Options) Repository {
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &repository{
		snap:    emptySnapshot(),
		cache:   opts.Cache,
		factory: opts.Factory,
		fpRate:  opts.FPRate,
		clock:   clk,
		logger:  logger,
	}
}

// Rebuild replaces both rule sets with the enabled entries of the list.
// Entries that fail normalization are skipped.
func (r *repository) Rebuild(entries []domain.BlockedEntry) {
	next := emptySnapshot()
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		name, scope, ok := urlnorm.Entry(e.Name, e.Scope)
		if !ok {
			next.skipped++
			r.logger.Debug(map[string]any{"name": e.Name, "scope": string(e.Scope)}, "skip_unnormalizable_entry")
			continue
		}
		if scope == domain.ScopeURL {
			next.urls[name] = struct{}{}
		} else {
			next.hostnames[name] = struct{}{}
		}
	}

	if r.factory != nil {
		bf := r.factory.New(uint64(len(next.hostnames)+len(next.urls)), r.fpRate)
		for h := range next.hostnames {
			bf.Add([]byte(hostKeyPrefix + h))
		}
		for u := range next.urls {
			bf.Add([]byte(urlKeyPrefix + u))
		}
		next.bloom = bf
	}
	next.rebuilt = r.clock.Now().Unix()

	r.mu.Lock()
	r.snap = next
	if r.cache != nil {
		r.cache.Purge()
	}
	r.mu.Unlock()

	r.logger.Info(map[string]any{
		"hostnames": len(next.hostnames),
		"urls":      len(next.urls),
		"skipped":   next.skipped,
	}, "rule store rebuilt")
}

func (r *repository) current() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// IsHostnameBlocked reports whether a domain rule exists for hostname.
func (r *repository) IsHostnameBlocked(hostname string) bool {
	return r.current().has(hostKeyPrefix, hostname)
}

// IsURLBlocked reports whether a url rule exists for the normalized URL.
func (r *repository) IsURLBlocked(normalizedURL string) bool {
	return r.current().has(urlKeyPrefix, normalizedURL)
}

// has checks the bloom filter first and only consults the set on a maybe.
func (s *snapshot) has(prefix, key string) bool {
	if key == "" {
		return false
	}
	if s.bloom != nil && !s.bloom.MightContain([]byte(prefix+key)) {
		return false
	}
	set := s.hostnames
	if prefix == urlKeyPrefix {
		set = s.urls
	}
	_, ok := set[key]
	return ok
}

// Decide returns the rule decision for a navigation: url rules win over
// domain rules. Results are cached until the next Rebuild.
func (r *repository) Decide(hostname, normalizedURL string) domain.BlockDecision {
	key := hostname + "\x00" + normalizedURL
	if d, ok := r.checkCache(key); ok {
		return d
	}

	snap := r.current()
	dec := domain.EmptyDecision()
	switch {
	case snap.has(urlKeyPrefix, normalizedURL):
		dec = domain.BlockDecision{Blocked: true, Reason: domain.ReasonURL, MatchedRule: normalizedURL}
	case snap.has(hostKeyPrefix, hostname):
		dec = domain.BlockDecision{Blocked: true, Reason: domain.ReasonDomain, MatchedRule: hostname}
	}

	r.updateCache(snap, key, dec)
	return dec
}

func (r *repository) checkCache(key string) (domain.BlockDecision, bool) {
	if r.cache == nil {
		return domain.BlockDecision{}, false
	}
	r.mu.RLock()
	d, ok := r.cache.Get(key)
	r.mu.RUnlock()
	return d, ok
}

// updateCache stores dec unless a Rebuild swapped the snapshot since it was computed.
func (r *repository) updateCache(snap *snapshot, key string, dec domain.BlockDecision) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	if r.snap == snap {
		r.cache.Put(key, dec)
	}
	r.mu.Unlock()
}

// Stats reports the current snapshot size and cache metrics.
func (r *repository) Stats() RepoStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := RepoStats{
		Hostnames:   len(r.snap.hostnames),
		URLs:        len(r.snap.urls),
		Skipped:     r.snap.skipped,
		RebuiltUnix: r.snap.rebuilt,
	}
	if r.cache != nil {
		st.Cache = r.cache.Stats()
	}
	return st
}

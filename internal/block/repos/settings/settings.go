// Package settings provides typed access to the values the daemon keeps in
// the persisted key-value store.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/haukened/siteblock/internal/block/common/log"
	"github.com/haukened/siteblock/internal/block/common/urlnorm"
	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/repos/kvstore"
)

var emptyList = json.RawMessage(`[]`)

// Repository reads and writes settings through a kvstore.Store.
// Read-modify-write operations on the blocked list are serialized.
type Repository struct {
	store  kvstore.Store
	logger log.Logger
	listMu sync.Mutex
}

// New returns a Repository backed by store.
func New(store kvstore.Store, logger log.Logger) *Repository {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Repository{store: store, logger: logger}
}

// Raw returns the stored JSON for key, or nil when absent.
func (r *Repository) Raw(ctx context.Context, key string) (json.RawMessage, error) {
	v, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return v, nil
}

// EnsureBlockedArray writes an empty list when the blocked key is missing or
// is not a JSON array. It reports whether a write happened.
func (r *Repository) EnsureBlockedArray(ctx context.Context) (bool, error) {
	r.listMu.Lock()
	defer r.listMu.Unlock()

	raw, err := r.Raw(ctx, domain.KeyBlocked)
	if err != nil {
		return false, err
	}
	if gjson.ParseBytes(raw).IsArray() {
		return false, nil
	}
	if err := r.store.Set(ctx, domain.KeyBlocked, emptyList); err != nil {
		return false, fmt.Errorf("initialize blocked list: %w", err)
	}
	return true, nil
}

// Blocked returns the persisted blocklist. A missing or malformed list reads
// as empty.
func (r *Repository) Blocked(ctx context.Context) ([]domain.BlockedEntry, error) {
	raw, err := r.Raw(ctx, domain.KeyBlocked)
	if err != nil {
		return nil, err
	}
	return ParseBlocked(raw), nil
}

// ParseBlocked decodes a persisted blocklist leniently. Elements without a
// string name are dropped, a missing or unknown scope is detected from the
// name, and enabled defaults to false.
func ParseBlocked(raw json.RawMessage) []domain.BlockedEntry {
	res := gjson.ParseBytes(raw)
	if !res.IsArray() {
		return nil
	}
	var out []domain.BlockedEntry
	res.ForEach(func(_, v gjson.Result) bool {
		name := v.Get("name")
		if !v.IsObject() || name.Type != gjson.String {
			return true
		}
		e := domain.BlockedEntry{
			Name:        name.String(),
			Enabled:     v.Get("enabled").Bool(),
			Title:       stringField(v, "title"),
			Description: stringField(v, "description"),
		}
		if scope, err := domain.ParseScope(v.Get("scope").String()); err == nil {
			e.Scope = scope
		} else {
			e.Scope = urlnorm.DetectScope(e.Name)
		}
		out = append(out, e)
		return true
	})
	return out
}

func stringField(v gjson.Result, path string) string {
	f := v.Get(path)
	if f.Type != gjson.String {
		return ""
	}
	return f.String()
}

// AppendEntry adds entry to the end of the persisted blocklist unless a rule
// with the same name and scope is already present. Other elements are kept
// byte-for-byte.
func (r *Repository) AppendEntry(ctx context.Context, entry domain.BlockedEntry) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}
	r.listMu.Lock()
	defer r.listMu.Unlock()

	raw, err := r.Raw(ctx, domain.KeyBlocked)
	if err != nil {
		return false, err
	}
	if !gjson.ParseBytes(raw).IsArray() {
		raw = emptyList
	}
	for _, e := range ParseBlocked(raw) {
		if e.SameRule(entry) {
			return false, nil
		}
	}

	doc, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	next, err := sjson.SetRawBytes([]byte(raw), "-1", doc)
	if err != nil {
		return false, fmt.Errorf("append entry: %w", err)
	}
	if err := r.store.Set(ctx, domain.KeyBlocked, next); err != nil {
		return false, fmt.Errorf("save blocked list: %w", err)
	}
	r.logger.Info(map[string]any{"name": entry.Name, "scope": string(entry.Scope)}, "blocklist entry added")
	return true, nil
}

// SetModel persists model under the aiModel key.
func (r *Repository) SetModel(ctx context.Context, model *domain.AiModel) error {
	return r.setJSON(ctx, domain.KeyAiModel, model)
}

// SetLastBlockContext persists the context of the most recent block.
func (r *Repository) SetLastBlockContext(ctx context.Context, bc domain.BlockContext) error {
	return r.setJSON(ctx, domain.KeyLastBlockContext, bc)
}

// LastBlockContext returns the most recent block context, if any.
func (r *Repository) LastBlockContext(ctx context.Context) (domain.BlockContext, bool, error) {
	raw, err := r.Raw(ctx, domain.KeyLastBlockContext)
	if err != nil || raw == nil || strings.TrimSpace(string(raw)) == "null" {
		return domain.BlockContext{}, false, err
	}
	var bc domain.BlockContext
	if err := json.Unmarshal(raw, &bc); err != nil {
		r.logger.Warn(map[string]any{"error": err.Error()}, "malformed lastBlockContext ignored")
		return domain.BlockContext{}, false, nil
	}
	return bc, true, nil
}

func (r *Repository) setJSON(ctx context.Context, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, doc); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

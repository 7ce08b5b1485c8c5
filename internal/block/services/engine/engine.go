// Package engine decides, per top-level navigation, whether to allow, ask
// about, or block a page. Explicit rules are checked first; the adaptive
// classifier handles everything else.
//
// The engine owns the classifier model and all per-tab state. Its mutex is
// never held while waiting on a collaborator, so overlapping navigations
// re-check state after every suspension point.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/haukened/siteblock/internal/block/common/clock"
	"github.com/haukened/siteblock/internal/block/common/log"
	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/services/classifier"
)

// ErrInvalidURL is returned when a page URL cannot be turned into a rule.
var ErrInvalidURL = errors.New("engine: invalid page url")

// DefaultWarningPage is used when Options.WarningPage is empty.
const DefaultWarningPage = "warning.html"

type Engine struct {
	rules    Rules
	settings Settings
	tabs     TabController
	content  ContentAccessor
	prompter Prompter
	clock    clock.Clock
	logger   log.Logger

	warningPage     string
	extensionOrigin string

	// learnMu serializes every read-modify-persist of the blocklist and the
	// model. It is taken before mu and held across storage calls.
	learnMu sync.Mutex

	mu      sync.Mutex
	model   *domain.AiModel
	config  domain.AiConfig
	entries []domain.BlockedEntry
	// written is the encoding of the last model the engine persisted, so its
	// own change notifications are not adopted back.
	written json.RawMessage

	blockedTabs  map[int]struct{}
	pending      map[int]struct{}
	lastPrompted map[int]string
	lastURL      map[int]string
}

type Options struct {
	Rules    Rules
	Settings Settings
	Tabs     TabController
	Content  ContentAccessor
	Prompter Prompter
	Clock    clock.Clock
	Logger   log.Logger

	// WarningPage is the page opened in place of a blocked tab. Relative
	// paths are resolved against ExtensionOrigin.
	WarningPage string
	// ExtensionOrigin is the extension's own origin, e.g.
	// "chrome-extension://<id>". Navigations under it are ignored.
	ExtensionOrigin string
}

func New(opts Options) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	page := opts.WarningPage
	if page == "" {
		page = DefaultWarningPage
	}
	return &Engine{
		rules:           opts.Rules,
		settings:        opts.Settings,
		tabs:            opts.Tabs,
		content:         opts.Content,
		prompter:        opts.Prompter,
		clock:           clk,
		logger:          logger,
		warningPage:     page,
		extensionOrigin: strings.TrimSuffix(opts.ExtensionOrigin, "/"),
		config:          domain.DefaultAiConfig(),
		blockedTabs:     make(map[int]struct{}),
		pending:         make(map[int]struct{}),
		lastPrompted:    make(map[int]string),
		lastURL:         make(map[int]string),
	}
}

func (e *Engine) now() int64 { return clock.Millis(e.clock) }

// Load performs the initial load: it makes sure the blocklist key holds an
// array, rebuilds the rules, merges the classifier config, and loads the
// model, seeding and persisting one from the blocklist when none is stored.
func (e *Engine) Load(ctx context.Context) error {
	if created, err := e.settings.EnsureBlockedArray(ctx); err != nil {
		return fmt.Errorf("ensure blocked list: %w", err)
	} else if created {
		e.logger.Info(nil, "initialized empty blocklist")
	}

	entries, err := e.settings.Blocked(ctx)
	if err != nil {
		return fmt.Errorf("read blocked list: %w", err)
	}
	e.rules.Rebuild(entries)

	rawCfg, err := e.settings.Raw(ctx, domain.KeyAiConfig)
	if err != nil {
		return fmt.Errorf("read %s: %w", domain.KeyAiConfig, err)
	}
	cfg := classifier.MergeConfig(rawCfg)

	rawModel, err := e.settings.Raw(ctx, domain.KeyAiModel)
	if err != nil {
		return fmt.Errorf("read %s: %w", domain.KeyAiModel, err)
	}
	model := classifier.NormalizeModel(rawModel, e.now())
	seeded := model == nil
	if seeded {
		model = classifier.BuildModelFromBlockedList(entries, cfg, e.now())
	}

	e.learnMu.Lock()
	defer e.learnMu.Unlock()

	e.mu.Lock()
	e.entries = entries
	e.config = cfg
	e.model = model
	e.mu.Unlock()

	if seeded {
		e.logger.Info(map[string]any{"examples": model.Examples()}, "seeded classifier from blocklist")
		if err := e.persistModel(ctx, model); err != nil {
			return fmt.Errorf("persist seeded model: %w", err)
		}
	}
	e.logger.Info(map[string]any{
		"entries":  len(entries),
		"examples": model.Examples(),
		"enabled":  cfg.Enabled,
	}, "engine loaded")
	return nil
}

// persistModel saves model and remembers its encoding as the engine's own
// write. Callers hold learnMu.
func (e *Engine) persistModel(ctx context.Context, model *domain.AiModel) error {
	raw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	e.mu.Lock()
	e.written = raw
	e.mu.Unlock()
	return e.settings.SetModel(ctx, model)
}

// ownWrite reports whether raw is the model the engine persisted last.
func (e *Engine) ownWrite(raw json.RawMessage) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return raw != nil && bytes.Equal(raw, e.written)
}

// Model returns a copy of the current classifier model, or nil before Load.
func (e *Engine) Model() *domain.AiModel {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	return e.model.Clone()
}

// Config returns the effective classifier configuration.
func (e *Engine) Config() domain.AiConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Reset clears all per-tab state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blockedTabs = make(map[int]struct{})
	e.pending = make(map[int]struct{})
	e.lastPrompted = make(map[int]string)
	e.lastURL = make(map[int]string)
}

// ForgetTab drops the state kept for a closed tab.
func (e *Engine) ForgetTab(tabID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.blockedTabs, tabID)
	delete(e.pending, tabID)
	delete(e.lastPrompted, tabID)
	delete(e.lastURL, tabID)
}

// isInternal reports whether pageURL belongs to the extension itself.
func (e *Engine) isInternal(pageURL string) bool {
	return e.extensionOrigin != "" && strings.HasPrefix(pageURL, e.extensionOrigin+"/")
}

// warningURL builds the warning page address carrying the block details.
func (e *Engine) warningURL(bc domain.BlockContext) string {
	base := e.warningPage
	if e.extensionOrigin != "" && !strings.Contains(base, "://") {
		base = e.extensionOrigin + "/" + strings.TrimPrefix(base, "/")
	}
	q := url.Values{}
	q.Set("reason", string(bc.Reason))
	q.Set("blocked", bc.Blocked)
	q.Set("host", bc.Host)
	q.Set("url", bc.URL)
	return base + "?" + q.Encode()
}

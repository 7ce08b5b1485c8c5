package engine

import (
	"context"
	"fmt"

	"github.com/haukened/siteblock/internal/block/common/urlnorm"
	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/services/classifier"
)

// HandleChange applies a persisted-store change notification.
func (e *Engine) HandleChange(ctx context.Context, change domain.Change) error {
	switch change.Key {
	case domain.KeyBlocked:
		return e.onBlockedChanged(ctx)
	case domain.KeyAiModel:
		return e.onModelChanged(ctx, change)
	case domain.KeyAiConfig:
		cfg := classifier.MergeConfig(change.NewValue)
		e.mu.Lock()
		e.config = cfg
		e.mu.Unlock()
		e.logger.Info(map[string]any{"enabled": cfg.Enabled, "threshold": cfg.Threshold}, "classifier config updated")
		return nil
	case domain.KeyLastBlockContext, domain.KeyPasswordHash:
		return nil
	default:
		e.logger.Debug(map[string]any{"key": change.Key}, "ignoring unknown storage key")
		return nil
	}
}

// onBlockedChanged rebuilds the rules and retrains the model on the
// difference between the previously applied list and the stored one. The
// list is re-read under learnMu rather than taken from the notification, so
// when writes overlap the last apply always sees the latest list.
func (e *Engine) onBlockedChanged(ctx context.Context) error {
	e.learnMu.Lock()
	defer e.learnMu.Unlock()

	next, err := e.settings.Blocked(ctx)
	if err != nil {
		return fmt.Errorf("read blocked list: %w", err)
	}
	e.rules.Rebuild(next)

	e.mu.Lock()
	prev, model, cfg := e.entries, e.model, e.config
	e.entries = next
	if model == nil {
		e.mu.Unlock()
		return nil
	}
	updated, res := classifier.Retrain(prev, next, model, cfg, e.now())
	e.model = updated
	e.mu.Unlock()

	if res.Blocked+res.Allowed == 0 {
		return nil
	}
	e.logger.Info(map[string]any{"blocked": res.Blocked, "allowed": res.Allowed}, "retrained classifier from blocklist")
	return e.persistModel(ctx, updated)
}

// onModelChanged adopts a model written by someone else. Echoes of the
// engine's own writes are dropped. A removed or malformed model is replaced
// by one seeded from the blocklist.
func (e *Engine) onModelChanged(ctx context.Context, change domain.Change) error {
	if e.ownWrite(change.NewValue) {
		return nil
	}

	e.learnMu.Lock()
	defer e.learnMu.Unlock()

	raw, err := e.settings.Raw(ctx, domain.KeyAiModel)
	if err != nil {
		return fmt.Errorf("read %s: %w", domain.KeyAiModel, err)
	}
	if e.ownWrite(raw) {
		// superseded by a later write of ours
		return nil
	}

	model := classifier.NormalizeModel(raw, e.now())
	if model != nil {
		e.mu.Lock()
		e.model = model
		e.mu.Unlock()
		return nil
	}

	e.mu.Lock()
	model = classifier.BuildModelFromBlockedList(e.entries, e.config, e.now())
	e.model = model
	e.mu.Unlock()

	e.logger.Warn(map[string]any{"examples": model.Examples()}, "stored model unusable, reseeded from blocklist")
	return e.persistModel(ctx, model)
}

// AllowFeedback trains one page as allow, typically after the user overrode
// a classifier block on the warning page. ok is false when nothing could be
// learned from the input.
func (e *Engine) AllowFeedback(ctx context.Context, title, description, hostname string) (bool, error) {
	host := urlnorm.Hostname(hostname)
	if host == "" {
		return false, nil
	}

	e.learnMu.Lock()
	defer e.learnMu.Unlock()

	e.mu.Lock()
	if e.model == nil {
		e.mu.Unlock()
		return false, nil
	}
	before := e.model
	updated := classifier.Train(title, description, host, domain.LabelAllow, before, e.config, e.now())
	e.model = updated
	e.mu.Unlock()

	if updated == before {
		return false, nil
	}
	e.logger.Info(map[string]any{"host": host}, "trained allow feedback")
	if err := e.persistModel(ctx, updated); err != nil {
		return false, err
	}
	return true, nil
}

// BlockPage adds a rule for pageURL with the given scope, as requested from
// the context menu. An empty scope is detected from the URL.
func (e *Engine) BlockPage(ctx context.Context, pageURL string, scope domain.Scope, title, description string) (bool, error) {
	return e.addEntry(ctx, pageURL, scope, title, description)
}

func (e *Engine) addEntry(ctx context.Context, pageURL string, scope domain.Scope, title, description string) (bool, error) {
	name, scope, ok := urlnorm.Entry(pageURL, scope)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}
	return e.settings.AppendEntry(ctx, domain.BlockedEntry{
		Name:        name,
		Scope:       scope,
		Enabled:     true,
		Title:       title,
		Description: description,
	})
}

package engine

import (
	"context"

	"github.com/haukened/siteblock/internal/block/common/urlnorm"
	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/services/classifier"
)

// HandleNavigation evaluates one top-level navigation of tabID to pageURL.
// Failures of collaborators are logged and degrade to not blocking.
func (e *Engine) HandleNavigation(ctx context.Context, tabID int, pageURL string) domain.Outcome {
	if !urlnorm.IsWebURL(pageURL) || e.isInternal(pageURL) {
		return domain.OutcomeIgnored
	}
	hostname := urlnorm.Hostname(pageURL)
	normalized, ok := urlnorm.ForMatch(pageURL)
	if hostname == "" || !ok {
		return domain.OutcomeIgnored
	}

	e.mu.Lock()
	e.lastURL[tabID] = pageURL
	e.mu.Unlock()

	if dec := e.rules.Decide(hostname, normalized); dec.Blocked {
		return e.block(ctx, tabID, domain.BlockContext{
			Reason:  dec.Reason,
			Blocked: dec.MatchedRule,
			Host:    hostname,
			URL:     pageURL,
		})
	}
	return e.classify(ctx, tabID, pageURL, hostname)
}

func (e *Engine) classify(ctx context.Context, tabID int, pageURL, hostname string) domain.Outcome {
	e.mu.Lock()
	model, cfg := e.model, e.config
	if model == nil || !cfg.Enabled || model.Examples() < cfg.MinExamples {
		delete(e.blockedTabs, tabID)
		e.mu.Unlock()
		return domain.OutcomeAllowed
	}
	if _, busy := e.pending[tabID]; busy {
		e.mu.Unlock()
		return domain.OutcomePending
	}
	e.pending[tabID] = struct{}{}
	e.mu.Unlock()

	content, err := e.extract(ctx, tabID, pageURL)
	if err != nil {
		e.logger.Warn(map[string]any{"tab": tabID, "url": pageURL, "error": err.Error()}, "page content unavailable")
		return domain.OutcomeAllowed
	}

	e.mu.Lock()
	if urlnorm.Hostname(e.lastURL[tabID]) != hostname {
		e.mu.Unlock()
		e.logger.Debug(map[string]any{"tab": tabID, "host": hostname}, "dropping stale classification")
		return domain.OutcomeStale
	}
	model, cfg = e.model, e.config
	if content.Empty() {
		delete(e.blockedTabs, tabID)
		e.mu.Unlock()
		e.logger.Debug(map[string]any{"tab": tabID, "host": hostname}, "no page text to classify")
		return domain.OutcomeAllowed
	}
	e.mu.Unlock()

	verdict := classifier.Decide(content.Title, content.Description, hostname, model, cfg)
	e.logger.Debug(map[string]any{"tab": tabID, "host": hostname, "verdict": string(verdict)}, "classified page")

	switch verdict {
	case domain.VerdictBlock:
		return e.block(ctx, tabID, domain.BlockContext{
			Reason:      domain.ReasonAI,
			Blocked:     hostname,
			Host:        hostname,
			URL:         pageURL,
			Title:       content.Title,
			Description: content.Description,
			Hostname:    hostname,
		})
	case domain.VerdictAsk:
		return e.ask(ctx, tabID, pageURL, hostname, content)
	default:
		e.mu.Lock()
		delete(e.blockedTabs, tabID)
		e.mu.Unlock()
		return domain.OutcomeAllowed
	}
}

// extract fetches page content while the tab is marked pending. The mark is
// cleared on every path.
func (e *Engine) extract(ctx context.Context, tabID int, pageURL string) (domain.PageContent, error) {
	defer func() {
		e.mu.Lock()
		delete(e.pending, tabID)
		e.mu.Unlock()
	}()
	return e.content.PageContent(ctx, tabID, pageURL)
}

// block closes the tab and opens the warning page, once per tab.
func (e *Engine) block(ctx context.Context, tabID int, bc domain.BlockContext) domain.Outcome {
	e.mu.Lock()
	if _, done := e.blockedTabs[tabID]; done {
		e.mu.Unlock()
		return domain.OutcomeBlocked
	}
	e.blockedTabs[tabID] = struct{}{}
	e.mu.Unlock()

	bc.Timestamp = e.now()
	fields := map[string]any{"tab": tabID, "reason": string(bc.Reason), "blocked": bc.Blocked, "url": bc.URL}
	e.logger.Info(fields, "blocking navigation")

	if err := e.settings.SetLastBlockContext(ctx, bc); err != nil {
		e.logger.Warn(map[string]any{"error": err.Error()}, "failed to persist block context")
	}
	if err := e.tabs.CloseTab(ctx, tabID); err != nil {
		e.logger.Warn(map[string]any{"tab": tabID, "error": err.Error()}, "failed to close tab")
	}
	if err := e.tabs.OpenTab(ctx, e.warningURL(bc)); err != nil {
		e.logger.Error(map[string]any{"tab": tabID, "error": err.Error()}, "failed to open warning page")
	}
	return domain.OutcomeBlocked
}

// ask prompts once per tab and URL. An accepted answer becomes a rule and
// the tab is reloaded so the rule takes effect.
func (e *Engine) ask(ctx context.Context, tabID int, pageURL, hostname string, content domain.PageContent) domain.Outcome {
	e.mu.Lock()
	delete(e.blockedTabs, tabID)
	if e.lastPrompted[tabID] == pageURL {
		e.mu.Unlock()
		return domain.OutcomeDeduped
	}
	e.lastPrompted[tabID] = pageURL
	e.mu.Unlock()

	choice, err := e.prompter.Prompt(ctx, tabID, pageURL, hostname)
	if err != nil {
		e.logger.Warn(map[string]any{"tab": tabID, "error": err.Error()}, "prompt failed")
		return domain.OutcomePrompted
	}
	scope, ok := choice.Scope()
	if !ok {
		return domain.OutcomePrompted
	}

	if _, err := e.addEntry(ctx, pageURL, scope, content.Title, content.Description); err != nil {
		e.logger.Error(map[string]any{"url": pageURL, "error": err.Error()}, "failed to save prompted rule")
		return domain.OutcomePrompted
	}
	if err := e.tabs.ReloadTab(ctx, tabID); err != nil {
		e.logger.Warn(map[string]any{"tab": tabID, "error": err.Error()}, "failed to reload tab")
	}
	return domain.OutcomePrompted
}

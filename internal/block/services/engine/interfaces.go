package engine

import (
	"context"
	"encoding/json"

	"github.com/haukened/siteblock/internal/block/domain"
)

// Rules is the rule store the engine consults and rebuilds.
type Rules interface {
	Rebuild(entries []domain.BlockedEntry)
	Decide(hostname, normalizedURL string) domain.BlockDecision
}

// Settings is typed access to the persisted store.
type Settings interface {
	EnsureBlockedArray(ctx context.Context) (bool, error)
	Blocked(ctx context.Context) ([]domain.BlockedEntry, error)
	Raw(ctx context.Context, key string) (json.RawMessage, error)
	AppendEntry(ctx context.Context, entry domain.BlockedEntry) (bool, error)
	SetModel(ctx context.Context, model *domain.AiModel) error
	SetLastBlockContext(ctx context.Context, bc domain.BlockContext) error
}

// TabController closes, opens and reloads browser tabs.
type TabController interface {
	CloseTab(ctx context.Context, tabID int) error
	OpenTab(ctx context.Context, url string) error
	ReloadTab(ctx context.Context, tabID int) error
}

// ContentAccessor extracts the title and description of the page shown in a tab.
type ContentAccessor interface {
	PageContent(ctx context.Context, tabID int, pageURL string) (domain.PageContent, error)
}

// Prompter asks the user whether to block a page. ChoiceNone means cancel.
type Prompter interface {
	Prompt(ctx context.Context, tabID int, pageURL, hostname string) (domain.PromptChoice, error)
}

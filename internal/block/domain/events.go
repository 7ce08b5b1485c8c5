package domain

import "encoding/json"

// Storage keys shared with the extension.
const (
	KeyBlocked          = "blocked"
	KeyAiModel          = "aiModel"
	KeyAiConfig         = "aiConfig"
	KeyLastBlockContext = "lastBlockContext"
	KeyPasswordHash     = "passwordHash"
)

// Change is a storage change notification. OldValue is nil when the key did
// not exist; NewValue is nil when the key was removed.
type Change struct {
	Key      string
	OldValue json.RawMessage
	NewValue json.RawMessage
}

// BlockContext records the most recent block so the warning page can offer
// "allow" feedback for classifier blocks.
type BlockContext struct {
	Reason      BlockReason `json:"reason"`
	Blocked     string      `json:"blocked"`
	Host        string      `json:"host"`
	URL         string      `json:"url"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Hostname    string      `json:"hostname,omitempty"`
	Timestamp   int64       `json:"timestamp"`
}

// PageContent is the text extracted from a page for classification.
type PageContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Empty reports whether no text was extracted.
func (p PageContent) Empty() bool {
	return p.Title == "" && p.Description == ""
}

// PromptChoice is the user's answer to an in-page "block this?" prompt.
type PromptChoice string

const (
	ChoiceNone   PromptChoice = ""
	ChoiceDomain PromptChoice = "domain"
	ChoiceURL    PromptChoice = "url"
)

// Scope maps an accepted choice onto a rule scope.
func (c PromptChoice) Scope() (Scope, bool) {
	switch c {
	case ChoiceDomain:
		return ScopeDomain, true
	case ChoiceURL:
		return ScopeURL, true
	default:
		return "", false
	}
}

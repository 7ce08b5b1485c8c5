package domain

import (
	"fmt"
	"strings"
)

// Scope defines how a blocking rule matches navigations.
//
// domain - matches every URL whose hostname equals the rule name
// url    - matches exactly one normalized URL
type Scope string

const (
	// ScopeDomain matches a whole hostname.
	ScopeDomain Scope = "domain"
	// ScopeURL matches one exact normalized URL.
	ScopeURL Scope = "url"
)

// ParseScope converts a string into a Scope.
// Accepts: "domain", "url" (case-insensitive).
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "domain":
		return ScopeDomain, nil
	case "url":
		return ScopeURL, nil
	default:
		return "", fmt.Errorf("unsupported scope: %q", s)
	}
}

// BlockedEntry is one user-maintained blocking rule as persisted under the
// "blocked" storage key.
//
// Notes:
//   - Name is normalized: a bare hostname without "www." for domain scope,
//     origin+path+query+fragment for url scope.
//   - Scope may be empty in legacy data; readers resolve it from Name.
//   - Title and Description carry the page text the rule was created from and
//     feed classifier training.
type BlockedEntry struct {
	Name        string `json:"name"`
	Scope       Scope  `json:"scope,omitempty"`
	Enabled     bool   `json:"enabled"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks the entry for required fields and supported values.
func (e BlockedEntry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("entry name must not be empty")
	}
	switch e.Scope {
	case ScopeDomain, ScopeURL:
	default:
		return fmt.Errorf("unsupported scope: %q", e.Scope)
	}
	return nil
}

// SameRule reports whether two entries describe the same rule, i.e. share
// name and scope.
func (e BlockedEntry) SameRule(o BlockedEntry) bool {
	return e.Name == o.Name && e.Scope == o.Scope
}

// Text joins title and description the way the classifier consumes them.
func (e BlockedEntry) Text() string {
	return strings.TrimSpace(e.Title + " " + e.Description)
}

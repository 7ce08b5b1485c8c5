package domain

// BlockReason names which layer produced a block.
type BlockReason string

const (
	ReasonDomain BlockReason = "domain"
	ReasonURL    BlockReason = "url"
	ReasonAI     BlockReason = "ai"
)

// BlockDecision represents the outcome of evaluating a navigation against the
// rule store. Pure value type, no external dependencies.
type BlockDecision struct {
	Blocked     bool        // true if any rule matched
	Reason      BlockReason // url or domain for rule matches
	MatchedRule string      // the rule value that matched (normalized URL or hostname)
}

// IsBlocked is a convenience accessor.
func (d BlockDecision) IsBlocked() bool { return d.Blocked }

// EmptyDecision returns a not-blocked decision.
func EmptyDecision() BlockDecision { return BlockDecision{Blocked: false} }

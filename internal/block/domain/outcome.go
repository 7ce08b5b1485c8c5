package domain

// Outcome describes what the engine did with one navigation.
type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"  // not a web URL, or an internal extension page
	OutcomeBlocked  Outcome = "blocked"  // tab closed and warning page opened (or already in progress)
	OutcomeAllowed  Outcome = "allowed"  // no rule matched and the classifier allowed
	OutcomePending  Outcome = "pending"  // a classification for the tab is already running
	OutcomeStale    Outcome = "stale"    // the tab moved to another hostname during extraction
	OutcomePrompted Outcome = "prompted" // the user was asked; see the entry list for the answer
	OutcomeDeduped  Outcome = "deduped"  // ask verdict for a URL already prompted on this tab
)

package classifier

import "strings"

// Token family prefixes. They partition the feature space so a topic word
// never shares a weight with a hostname label of the same spelling.
const (
	PrefixTopic  = "topic:"
	PrefixSource = "source:"
	PrefixDomain = "domain:"
)

const minTokenLength = 3

// stopTokens are common words and URL boilerplate that carry no blocking signal.
var stopTokens = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {},
	"from": {}, "your": {}, "you": {}, "are": {}, "was": {}, "were": {},
	"have": {}, "has": {}, "had": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "about": {}, "into": {}, "over": {}, "under": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "while": {}, "then": {}, "than": {},
	"https": {}, "http": {}, "www": {}, "com": {}, "net": {}, "org": {},
}

// Tokens holds the three token families built for one page.
type Tokens struct {
	Topic  []string
	Source []string
	Domain []string
}

// All returns topic, source and domain tokens concatenated.
func (t Tokens) All() []string {
	out := make([]string, 0, len(t.Topic)+len(t.Source)+len(t.Domain))
	out = append(out, t.Topic...)
	out = append(out, t.Source...)
	return append(out, t.Domain...)
}

// SourceAll returns source and domain tokens, the "where" half of a page.
func (t Tokens) SourceAll() []string {
	out := make([]string, 0, len(t.Source)+len(t.Domain))
	out = append(out, t.Source...)
	return append(out, t.Domain...)
}

func keep(token string) bool {
	if len(token) < minTokenLength {
		return false
	}
	_, stop := stopTokens[token]
	return !stop
}

func isWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// TokenizeText lowercases text, splits it on runs of non-alphanumeric
// characters and drops short and stop-word tokens. Order of first appearance
// is preserved; duplicates are removed.
func TokenizeText(text string) []string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.FieldsFunc(normalized, func(r rune) bool { return !isWordChar(r) }) {
		if !keep(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// TokenizeHostname splits a hostname into "source:" label tokens (whole labels
// and their hyphen-separated parts) and a single "domain:" token built from
// the last two labels.
func TokenizeHostname(hostname string) (source, domainTokens []string) {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hostname)), "www.")
	if normalized == "" {
		return nil, nil
	}
	var labels []string
	for _, l := range strings.Split(normalized, ".") {
		if l != "" {
			labels = append(labels, l)
		}
	}
	base := normalized
	if len(labels) >= 2 {
		base = strings.Join(labels[len(labels)-2:], ".")
	}

	seen := make(map[string]struct{})
	add := func(tok string) {
		if _, dup := seen[tok]; dup {
			return
		}
		seen[tok] = struct{}{}
		source = append(source, PrefixSource+tok)
	}
	for _, label := range labels {
		clean := strings.Map(func(r rune) rune {
			if isWordChar(r) || r == '-' {
				return r
			}
			return -1
		}, label)
		if !keep(clean) {
			continue
		}
		add(clean)
		for _, part := range strings.Split(clean, "-") {
			if keep(part) {
				add(part)
			}
		}
	}
	return source, []string{PrefixDomain + base}
}

// Text joins title and description into the single text field the
// classifier tokenizes.
func Text(title, description string) string {
	return strings.TrimSpace(title + " " + description)
}

// BuildTokens produces the prefixed token families for a page.
func BuildTokens(title, description, hostname string) Tokens {
	words := TokenizeText(Text(title, description))
	topic := make([]string, len(words))
	for i, w := range words {
		topic[i] = PrefixTopic + w
	}
	source, dom := TokenizeHostname(hostname)
	return Tokens{Topic: topic, Source: source, Domain: dom}
}

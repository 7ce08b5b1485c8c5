// Package urlnorm canonicalizes user input and navigation URLs into the two
// rule scopes: bare hostnames and exact match URLs. Output follows browser URL
// semantics: lowercase ASCII hostnames, default ports dropped from origins.
package urlnorm

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/haukened/siteblock/internal/block/domain"
)

// profile maps hostnames the way browsers do (UTS #46, non-transitional,
// underscores allowed).
var profile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
)

var defaultPorts = map[string]string{"http": "80", "https": "443"}

// parse reads input as an absolute URL, retrying with an "https://" prefix
// when no scheme or host is present. Returns nil when neither form has a host.
func parse(input string) *url.URL {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if u, err := url.Parse(input); err == nil && u.Scheme != "" && u.Host != "" {
		return u
	}
	u, err := url.Parse("https://" + input)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

// asciiHost returns the lowercase ASCII form of u's hostname, keeping IPv6
// literals bracketed. Empty when the hostname cannot be mapped.
func asciiHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if ip := net.ParseIP(host); ip != nil {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	ascii, err := profile.ToASCII(host)
	if err != nil {
		return ""
	}
	return ascii
}

// stripWWW removes a single leading "www." label.
func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

// Hostname returns the bare hostname of input with a leading "www." removed.
// Empty means the input is unusable and must be rejected by the caller.
func Hostname(input string) string {
	u := parse(input)
	if u == nil {
		return ""
	}
	return stripWWW(asciiHost(u))
}

// DetectScope reports url when input carries a non-root path, a query or a
// fragment, and domain otherwise (including unparseable input).
func DetectScope(input string) domain.Scope {
	u := parse(input)
	if u == nil {
		return domain.ScopeDomain
	}
	if p := u.EscapedPath(); p != "" && p != "/" {
		return domain.ScopeURL
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return domain.ScopeURL
	}
	return domain.ScopeDomain
}

// ForMatch returns origin + pathname + search + hash with one trailing slash
// stripped from a non-root pathname. ok is false for unparseable input.
func ForMatch(input string) (string, bool) {
	u := parse(input)
	if u == nil {
		return "", false
	}
	host := asciiHost(u)
	if host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		b.WriteByte(':')
		b.WriteString(port)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	b.WriteString(path)

	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String(), true
}

// Entry normalizes input into a rule name. When scope is empty it is detected
// from the input. ok is false when normalization fails.
func Entry(input string, scope domain.Scope) (string, domain.Scope, bool) {
	if strings.TrimSpace(input) == "" {
		return "", "", false
	}
	if scope == "" {
		scope = DetectScope(input)
	}
	if scope == domain.ScopeURL {
		name, ok := ForMatch(input)
		if !ok {
			return "", "", false
		}
		return name, domain.ScopeURL, true
	}
	name := Hostname(input)
	if name == "" {
		return "", "", false
	}
	return name, domain.ScopeDomain, true
}

// IsWebURL reports whether input is an absolute http or https URL. Only these
// navigations are evaluated.
func IsWebURL(input string) bool {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil || u.Host == "" {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

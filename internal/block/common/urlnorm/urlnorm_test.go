package urlnorm

import (
	"testing"

	"github.com/haukened/siteblock/internal/block/domain"
)

func TestHostname(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"full url with www", "https://www.Example.com/path?q=1", "example.com"},
		{"bare hostname", "example.com", "example.com"},
		{"bare www hostname", "www.xyz.co.uk", "xyz.co.uk"},
		{"subdomain kept", "https://news.example.com", "news.example.com"},
		{"only one www stripped", "www.www.example.com", "www.example.com"},
		{"port dropped", "http://example.com:8080/x", "example.com"},
		{"ipv4", "http://192.168.1.1:8080", "192.168.1.1"},
		{"ipv6", "http://[::1]:8080/", "[::1]"},
		{"idn to punycode", "https://bücher.de/", "xn--bcher-kva.de"},
		{"surrounding whitespace", "  example.com  ", "example.com"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"space in host", "exa mple.com", ""},
		{"bad escape", "%%%", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hostname(tt.input); got != tt.expected {
				t.Errorf("Hostname(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDetectScope(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.Scope
	}{
		{"example.com", domain.ScopeDomain},
		{"https://example.com", domain.ScopeDomain},
		{"https://example.com/", domain.ScopeDomain},
		{"example.com/news", domain.ScopeURL},
		{"https://example.com/?q=1", domain.ScopeURL},
		{"https://example.com/#top", domain.ScopeURL},
		{"https://www.youtube.com/watch?v=123", domain.ScopeURL},
		{"", domain.ScopeDomain},
		{"%%%", domain.ScopeDomain},
	}

	for _, tt := range tests {
		if got := DetectScope(tt.input); got != tt.expected {
			t.Errorf("DetectScope(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestForMatch(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"query kept", "https://www.youtube.com/watch?v=123", "https://www.youtube.com/watch?v=123", true},
		{"scheme added", "example.com/path/", "https://example.com/path", true},
		{"root keeps slash", "https://example.com", "https://example.com/", true},
		{"root slash", "https://example.com/", "https://example.com/", true},
		{"only one trailing slash stripped", "https://example.com/a//", "https://example.com/a/", true},
		{"case and default port", "HTTPS://Example.COM:443/News", "https://example.com/News", true},
		{"custom port kept", "http://example.com:8080/a#frag", "http://example.com:8080/a#frag", true},
		{"http default port", "http://example.com:80/", "http://example.com/", true},
		{"empty query dropped", "https://example.com/a?", "https://example.com/a", true},
		{"empty", "", "", false},
		{"bad escape", "%%%", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ForMatch(tt.input)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("ForMatch(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestEntry(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		scope     domain.Scope
		wantName  string
		wantScope domain.Scope
		ok        bool
	}{
		{"detected domain", "https://www.example.com", "", "example.com", domain.ScopeDomain, true},
		{"detected url", "https://www.youtube.com/watch/?v=1", "", "https://www.youtube.com/watch?v=1", domain.ScopeURL, true},
		{"explicit domain on url", "https://www.youtube.com/watch?v=1", domain.ScopeDomain, "youtube.com", domain.ScopeDomain, true},
		{"explicit url on bare host", "example.com", domain.ScopeURL, "https://example.com/", domain.ScopeURL, true},
		{"empty", "  ", "", "", "", false},
		{"unparseable domain", "exa mple.com", domain.ScopeDomain, "", "", false},
		{"unparseable url", "%%%", domain.ScopeURL, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, scope, ok := Entry(tt.input, tt.scope)
			if ok != tt.ok || name != tt.wantName || scope != tt.wantScope {
				t.Errorf("Entry(%q, %q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.input, tt.scope, name, scope, ok, tt.wantName, tt.wantScope, tt.ok)
			}
		})
	}
}

func TestEntry_Idempotent(t *testing.T) {
	inputs := []string{
		"https://www.example.com",
		"example.com",
		"https://www.youtube.com/watch?v=123",
		"example.com/a/b/",
		"http://example.com:8080/x?y=1#z",
		"bücher.de",
	}
	for _, input := range inputs {
		name, scope, ok := Entry(input, "")
		if !ok {
			t.Fatalf("Entry(%q) failed", input)
		}
		again, againScope, ok := Entry(name, scope)
		if !ok || again != name || againScope != scope {
			t.Errorf("Entry not idempotent for %q: (%q,%q) -> (%q,%q)", input, name, scope, again, againScope)
		}
		detected, detectedScope, _ := Entry(name, "")
		if detected != name || detectedScope != scope {
			t.Errorf("Entry re-detection changed %q: (%q,%q) -> (%q,%q)", input, name, scope, detected, detectedScope)
		}
	}
}

func TestIsWebURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com", true},
		{"HTTP://example.com/x", true},
		{"chrome-extension://abc/warning.html", false},
		{"about:blank", false},
		{"file:///etc/hosts", false},
		{"example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsWebURL(tt.input); got != tt.want {
			t.Errorf("IsWebURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// Only one leading "www." is removed per pass, so a doubled prefix needs a
// second normalization before it is stable.
func TestEntry_RepeatedWWWConverges(t *testing.T) {
	name, scope, ok := Entry("www.www.x.com", domain.ScopeDomain)
	if !ok || name != "www.x.com" || scope != domain.ScopeDomain {
		t.Fatalf("Entry = (%q,%q,%v); want (www.x.com,domain,true)", name, scope, ok)
	}
	again, _, _ := Entry(name, scope)
	if again != "x.com" {
		t.Errorf("second pass = %q; want x.com", again)
	}
	if stable, _, _ := Entry(again, scope); stable != again {
		t.Errorf("third pass = %q; want %q", stable, again)
	}
}

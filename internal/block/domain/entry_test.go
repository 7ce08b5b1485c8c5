package domain

import (
	"encoding/json"
	"testing"
)

func TestParseScope(t *testing.T) {
	cases := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"domain", ScopeDomain, false},
		{"DoMaIn", ScopeDomain, false},
		{" url ", ScopeURL, false},
		{"", "", true},
		{"path", "", true},
	}

	for _, tc := range cases {
		got, err := ParseScope(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseScope(%q) expected error, got nil", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseScope(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseScope(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBlockedEntry_Validate(t *testing.T) {
	if err := (BlockedEntry{Name: "example.com", Scope: ScopeDomain}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (BlockedEntry{Name: "  ", Scope: ScopeDomain}).Validate(); err == nil {
		t.Errorf("expected error for empty name")
	}
	if err := (BlockedEntry{Name: "example.com", Scope: "path"}).Validate(); err == nil {
		t.Errorf("expected error for unsupported scope")
	}
}

func TestBlockedEntry_SameRule(t *testing.T) {
	a := BlockedEntry{Name: "example.com", Scope: ScopeDomain, Enabled: true, Title: "x"}
	b := BlockedEntry{Name: "example.com", Scope: ScopeDomain, Enabled: false}
	c := BlockedEntry{Name: "example.com", Scope: ScopeURL}
	if !a.SameRule(b) {
		t.Errorf("entries with equal name and scope should be the same rule")
	}
	if a.SameRule(c) {
		t.Errorf("entries with different scope should differ")
	}
}

func TestBlockedEntry_JSON(t *testing.T) {
	raw := `{"name":"example.com","enabled":true,"title":"News"}`
	var e BlockedEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Scope != "" || !e.Enabled || e.Title != "News" {
		t.Errorf("unexpected entry %+v", e)
	}
	if got := e.Text(); got != "News" {
		t.Errorf("Text() = %q, want News", got)
	}
}

func TestPromptChoice_Scope(t *testing.T) {
	if s, ok := ChoiceDomain.Scope(); !ok || s != ScopeDomain {
		t.Errorf("domain choice = %v,%v", s, ok)
	}
	if s, ok := ChoiceURL.Scope(); !ok || s != ScopeURL {
		t.Errorf("url choice = %v,%v", s, ok)
	}
	if _, ok := ChoiceNone.Scope(); ok {
		t.Errorf("empty choice should not map to a scope")
	}
}

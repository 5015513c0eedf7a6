package validate

import (
	"strings"
	"testing"
)

func TestRequireBounded(t *testing.T) {
	got, err := RequireBounded("title", "  Clean Code ", 1, 200)
	if err != nil || got != "Clean Code" {
		t.Fatalf("want trimmed value, got %q err=%v", got, err)
	}
	if _, err := RequireBounded("title", "   ", 1, 200); err == nil {
		t.Fatal("expected error for blank title")
	}
	if _, err := RequireBounded("title", strings.Repeat("a", 201), 1, 200); err == nil {
		t.Fatal("expected error for 201 chars")
	}
	// runes, not bytes
	if _, err := RequireBounded("author", strings.Repeat("ж", 100), 1, 100); err != nil {
		t.Fatalf("100 cyrillic runes should pass: %v", err)
	}
}

func TestOptionalBounded(t *testing.T) {
	if v, err := OptionalBounded("title", nil, 1, 200); v != nil || err != nil {
		t.Fatalf("nil in, nil out; got %v %v", v, err)
	}
	empty := ""
	if _, err := OptionalBounded("title", &empty, 1, 200); err == nil {
		t.Fatal("expected error for provided empty title")
	}
}

func TestSearchQuery(t *testing.T) {
	cases := []struct {
		q    string
		fail bool
	}{
		{"", true},
		{"a", false},
		{strings.Repeat("q", 200), false},
		{strings.Repeat("q", 201), true},
		{"' OR '1'='1", false},
	}
	for _, c := range cases {
		_, err := SearchQuery(c.q, 200)
		if (err != nil) != c.fail {
			t.Errorf("SearchQuery(len=%d): fail=%v, err=%v", len(c.q), c.fail, err)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("42"); err != nil || id != 42 {
		t.Fatalf("got %d %v", id, err)
	}
	for _, raw := range []string{"", "abc", "invalid_id_format", "1.5"} {
		if _, err := ParseID(raw); err == nil {
			t.Errorf("ParseID(%q) should fail", raw)
		}
	}
}

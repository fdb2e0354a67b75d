package frontmatter

import (
	"strings"
	"testing"
)

type testMeta struct {
	ID    string   `yaml:"id"`
	Tags  []string `yaml:"tags,omitempty"`
	Draft bool     `yaml:"draft"`
}

func TestParseWithFrontmatter(t *testing.T) {
	doc := []byte("---\nid: abc\ndraft: true\n---\n\n# Heading\n\nBody text.\n")
	var meta testMeta
	body, err := Parse(doc, &meta)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if meta.ID != "abc" || !meta.Draft {
		t.Errorf("meta = %+v", meta)
	}
	if !strings.HasPrefix(body, "# Heading") {
		t.Errorf("body = %q", body)
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	doc := []byte("just a body\nwith lines\n")
	var meta testMeta
	body, err := Parse(doc, &meta)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if meta.ID != "" {
		t.Errorf("meta should be zero, got %+v", meta)
	}
	if body != string(doc) {
		t.Errorf("body = %q", body)
	}
}

func TestParseUnterminatedBlock(t *testing.T) {
	doc := []byte("---\nid: abc\nno closing delimiter")
	var meta testMeta
	body, err := Parse(doc, &meta)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if body != string(doc) {
		t.Errorf("unterminated block should be treated as body, got %q", body)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	doc := []byte("---\n: : broken [\n---\nbody")
	var meta testMeta
	if _, err := Parse(doc, &meta); err == nil {
		t.Error("expected error for invalid YAML block")
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	in := testMeta{ID: "2024-01-15-1430-abcd", Tags: []string{"a", "b"}, Draft: true}
	body := "# Title\n\nParagraph one.\n\nParagraph two."

	data, err := Render(in, body)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var out testMeta
	gotBody, err := Parse(data, &out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.ID != in.ID || out.Draft != in.Draft || len(out.Tags) != 2 {
		t.Errorf("meta round trip: got %+v", out)
	}
	if strings.TrimRight(gotBody, "\n") != body {
		t.Errorf("body round trip: got %q", gotBody)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("intro\n\n# The Title\n\nmore"); got != "The Title" {
		t.Errorf("Title = %q", got)
	}
	if got := Title("no heading here"); got != "" {
		t.Errorf("Title = %q, want empty", got)
	}
}

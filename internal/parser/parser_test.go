package parser

import (
	"reflect"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\naliases:\n  - Hi\n  - Greeting\n---\n# Hello world\nBody text.\n")
	r := Parse(input)
	if r.Title != "Hello" {
		t.Errorf("title = %q, want frontmatter title", r.Title)
	}
	if !reflect.DeepEqual(r.Aliases, []string{"Hi", "Greeting"}) {
		t.Errorf("aliases = %v, want [Hi Greeting]", r.Aliases)
	}
	if r.Body != "# Hello world\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_WithoutFrontmatter(t *testing.T) {
	r := Parse([]byte("Intro line\n## Sub\n# Real Title\n"))
	if r.Frontmatter != nil || r.Aliases != nil {
		t.Errorf("frontmatter = %v, aliases = %v, want none", r.Frontmatter, r.Aliases)
	}
	if r.Title != "Real Title" {
		t.Errorf("title = %q, want first H1", r.Title)
	}
}

func TestParse_BrokenFrontmatterIsBody(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := Parse([]byte(input))
	if r.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", r.Frontmatter)
	}
	if r.Body != input {
		t.Errorf("body = %q, want whole input", r.Body)
	}
}

func TestParse_Anchors(t *testing.T) {
	body := "# Title\n" +
		"Paragraph one ^p1\n" +
		"## Section two ##\n" +
		"```go\n" +
		"# not a heading ^nope\n" +
		"```\n" +
		"### C#\n" +
		"- item\n" +
		"^list-2\n" +
		"#tag line\n" +
		"math 2^3\n"
	r := Parse([]byte(body))

	wantHeadings := []string{"Title", "Section two", "C#"}
	if !reflect.DeepEqual(r.Headings, wantHeadings) {
		t.Errorf("headings = %q, want %q", r.Headings, wantHeadings)
	}
	wantBlocks := []string{"p1", "list-2"}
	if !reflect.DeepEqual(r.Blocks, wantBlocks) {
		t.Errorf("blocks = %q, want %q", r.Blocks, wantBlocks)
	}
}

func TestParse_H1InsideFenceIgnoredForTitle(t *testing.T) {
	r := Parse([]byte("~~~\n# shell comment\n~~~\n## Only sub\n"))
	if r.Title != "" {
		t.Errorf("title = %q, want empty", r.Title)
	}
}

func TestExtractAliases(t *testing.T) {
	cases := []struct {
		name string
		fm   map[string]any
		want []string
	}{
		{"nil", nil, nil},
		{"list", map[string]any{"aliases": []any{"A", 3, " B ", "A"}}, []string{"A", "B"}},
		{"legacy string", map[string]any{"alias": "One, Two ,, One"}, []string{"One", "Two"}},
		{"aliases wins", map[string]any{"aliases": "X", "alias": "Y"}, []string{"X"}},
	}
	for _, tc := range cases {
		if got := extractAliases(tc.fm); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: aliases = %v, want %v", tc.name, got, tc.want)
		}
	}
}

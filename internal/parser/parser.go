// Package parser reads what linkpeek needs from a note to resolve links
// into it: title, aliases, and the headings and block ids a #fragment can
// point at.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a Markdown note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Aliases     []string
	Headings    []string
	Blocks      []string // block ids without the leading ^
}

// Parse extracts frontmatter, title, aliases and anchors from raw Markdown.
// Malformed frontmatter is treated as body text, never as an error.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	headings, blocks, h1 := scanAnchors(body)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, h1),
		Aliases:     extractAliases(fm),
		Headings:    headings,
		Blocks:      blocks,
	}
}

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)
	blockIDRe = regexp.MustCompile(`(?:^|\s)\^([A-Za-z0-9-]+)\s*$`)
)

// scanAnchors collects ATX headings, trailing ^block ids and the first H1,
// skipping fenced code blocks.
func scanAnchors(body string) (headings, blocks []string, h1 string) {
	fence := ""
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = trimmed[:3]
			continue
		}
		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			headings = append(headings, m[2])
			if h1 == "" && m[1] == "#" {
				h1 = m[2]
			}
			continue
		}
		if m := blockIDRe.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, m[1])
		}
	}
	return headings, blocks, h1
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// extractAliases reads the "aliases" (or legacy "alias") frontmatter key, which
// may be a YAML list or a single comma-separated string.
func extractAliases(fm map[string]any) []string {
	if fm == nil {
		return nil
	}
	raw, ok := fm["aliases"]
	if !ok {
		raw, ok = fm["alias"]
	}
	if !ok {
		return nil
	}

	var candidates []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	case string:
		candidates = strings.Split(v, ",")
	}

	seen := make(map[string]struct{}, len(candidates))
	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// deriveTitle prefers the frontmatter "title", then the first H1 heading.
func deriveTitle(fm map[string]any, h1 string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	return h1
}

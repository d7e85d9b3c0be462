package link

import (
	"fmt"
	"strings"
)

// Node is the resolver's view of a rendered DOM element. All host class names
// and data-* attributes are looked up through it, so host markup changes stay
// behind this boundary.
type Node interface {
	// Attr returns the attribute value, or "" when absent.
	Attr(key string) string
	// Text returns the trimmed text content.
	Text() string
	// Closest returns the node itself or its nearest ancestor matching selector.
	Closest(selector string) Node
	// Find returns the first descendant matching selector.
	Find(selector string) Node
}

// DefaultAttrs is the attribute order tried before falling back to text content.
var DefaultAttrs = []string{"data-file-path", "filesource", "data-path", "data-href", "href", "src"}

// Predicate decides whether a rule applies to a node.
type Predicate func(Node) bool

// Extractor pulls raw link text out of a node.
type Extractor func(Node) string

// Rule pairs a context predicate with an extraction strategy.
type Rule struct {
	Name    string
	Match   Predicate
	Extract Extractor
}

// RuleTable is evaluated in order; the first matching rule that yields
// non-empty text wins.
type RuleTable []Rule

// Extract runs the table against n.
func (t RuleTable) Extract(n Node) (string, string) {
	if n == nil {
		return "", ""
	}
	for _, r := range t {
		if r.Match != nil && !r.Match(n) {
			continue
		}
		if text := strings.TrimSpace(r.Extract(n)); text != "" {
			return text, r.Name
		}
	}
	return "", ""
}

// Within matches nodes inside (or equal to) an element matching selector.
func Within(selector string) Predicate {
	return func(n Node) bool {
		return n.Closest(selector) != nil
	}
}

// AttrsThenText returns the first non-empty attribute in keys, then the
// node's text content.
func AttrsThenText(keys ...string) Extractor {
	return func(n Node) string {
		for _, k := range keys {
			if v := strings.TrimSpace(n.Attr(k)); v != "" {
				return v
			}
		}
		return n.Text()
	}
}

// ContainerText reads the text of the element matching source inside the
// nearest container, instead of the clicked node itself.
func ContainerText(container, source string) Extractor {
	return func(n Node) string {
		c := n.Closest(container)
		if c == nil {
			return ""
		}
		src := c.Find(source)
		if src == nil {
			return ""
		}
		return src.Text()
	}
}

// Joined combines a subtext (the file) and a text field (the heading or
// file name) from the nearest container: "subtext#text" when the marker is
// present, "subtext/text" otherwise.
func Joined(container, subtext, text, marker string) Extractor {
	return func(n Node) string {
		c := n.Closest(container)
		if c == nil {
			return ""
		}
		var sub, main string
		if s := c.Find(subtext); s != nil {
			sub = s.Text()
		}
		if t := c.Find(text); t != nil {
			main = t.Text()
		}
		switch {
		case main == "":
			return ""
		case sub == "":
			return main
		case marker != "" && c.Find(marker) != nil:
			return sub + "#" + main
		default:
			return sub + "/" + main
		}
	}
}

// DefaultRules is the built-in table: host container overrides first, then
// the attribute/text fallback.
func DefaultRules() RuleTable {
	return RuleTable{
		{
			Name:    "grid-item",
			Match:   Within(".grid-item"),
			Extract: ContainerText(".grid-item", ".grid-item-title"),
		},
		{
			Name:  "outgoing-link",
			Match: Within(".tree-item.outgoing-link-item"),
			Extract: Joined(".tree-item.outgoing-link-item",
				".tree-item-inner-subtext", ".tree-item-inner-text", `.tree-item-icon[data-icon="heading"]`),
		},
		{
			Name:    "default",
			Extract: AttrsThenText(DefaultAttrs...),
		},
	}
}

// Extraction strategies accepted in RuleConfig.Extract.
const (
	ExtractAttrs     = "attrs"
	ExtractContainer = "container"
	ExtractJoined    = "joined"
)

// RuleConfig is the YAML form of a rule.
type RuleConfig struct {
	Name      string   `yaml:"name"`
	Container string   `yaml:"container"`
	Extract   string   `yaml:"extract"`
	Attrs     []string `yaml:"attrs"`
	Source    string   `yaml:"source"`
	Subtext   string   `yaml:"subtext"`
	Text      string   `yaml:"text"`
	Marker    string   `yaml:"marker"`
}

// BuildRules compiles configured rules and places them ahead of DefaultRules.
func BuildRules(cfgs []RuleConfig) (RuleTable, error) {
	table := make(RuleTable, 0, len(cfgs)+3)
	for i, c := range cfgs {
		r, err := c.build()
		if err != nil {
			return nil, fmt.Errorf("link: rule %d (%s): %w", i, c.Name, err)
		}
		table = append(table, r)
	}
	return append(table, DefaultRules()...), nil
}

func (c RuleConfig) build() (Rule, error) {
	if c.Container == "" {
		return Rule{}, fmt.Errorf("container selector is required")
	}
	for _, sel := range []string{c.Container, c.Source, c.Subtext, c.Text, c.Marker} {
		if sel == "" {
			continue
		}
		if _, err := compileSelector(sel); err != nil {
			return Rule{}, err
		}
	}

	r := Rule{Name: c.Name, Match: Within(c.Container)}
	if r.Name == "" {
		r.Name = c.Container
	}
	switch c.Extract {
	case ExtractAttrs, "":
		attrs := c.Attrs
		if len(attrs) == 0 {
			attrs = DefaultAttrs
		}
		r.Extract = AttrsThenText(attrs...)
	case ExtractContainer:
		if c.Source == "" {
			return Rule{}, fmt.Errorf("extract %q needs a source selector", c.Extract)
		}
		r.Extract = ContainerText(c.Container, c.Source)
	case ExtractJoined:
		if c.Subtext == "" || c.Text == "" {
			return Rule{}, fmt.Errorf("extract %q needs subtext and text selectors", c.Extract)
		}
		r.Extract = Joined(c.Container, c.Subtext, c.Text, c.Marker)
	default:
		return Rule{}, fmt.Errorf("unknown extract strategy %q", c.Extract)
	}
	return r, nil
}

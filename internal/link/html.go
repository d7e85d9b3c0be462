package link

import (
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/starford/linkpeek/internal/apperr"
)

// TargetSelector marks the clicked element in fragments posted by the host.
const TargetSelector = "[data-linkpeek-target]"

var selectorCache sync.Map // string → cascadia.Matcher

func compileSelector(sel string) (cascadia.Matcher, error) {
	if v, ok := selectorCache.Load(sel); ok {
		return v.(cascadia.Matcher), nil
	}
	m, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("link: selector %q: %w", sel, err)
	}
	selectorCache.Store(sel, m)
	return m, nil
}

// htmlNode adapts an x/net/html element to Node.
type htmlNode struct {
	n *html.Node
}

// WrapHTML returns a Node for n, or nil when n is nil.
func WrapHTML(n *html.Node) Node {
	if n == nil {
		return nil
	}
	return htmlNode{n: n}
}

// ParseFragment parses an HTML snippet and returns the element matching
// target (TargetSelector when empty).
func ParseFragment(src, target string) (Node, error) {
	if target == "" {
		target = TargetSelector
	}
	m, err := compileSelector(target)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("link: parse html: %w", err)
	}
	n := cascadia.Query(doc, m)
	if n == nil {
		return nil, fmt.Errorf("link: target %q: %w", target, apperr.ErrNotFound)
	}
	return htmlNode{n: n}, nil
}

// Attr returns the value of an attribute, case-insensitive.
func (h htmlNode) Attr(key string) string {
	for _, a := range h.n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// Text returns the trimmed text content of the node.
func (h htmlNode) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(h.n)
	return strings.TrimSpace(b.String())
}

func (h htmlNode) Closest(selector string) Node {
	m, err := compileSelector(selector)
	if err != nil {
		return nil
	}
	for n := h.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && m.Match(n) {
			return htmlNode{n: n}
		}
	}
	return nil
}

func (h htmlNode) Find(selector string) Node {
	m, err := compileSelector(selector)
	if err != nil {
		return nil
	}
	return WrapHTML(cascadia.Query(h.n, m))
}

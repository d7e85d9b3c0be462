package link

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// bareURLChars excludes the delimiters that end a bare URL in running text.
const bareURLChars = `[^\s<>\[\]()"'` + "`" + `]`

// urlRun is one URL character or a balanced (...) group, as in
// https://en.wikipedia.org/wiki/Go_(language).
const urlRun = `(?:` + bareURLChars + `|\(` + bareURLChars + `*\))`

var (
	wikilinkRe = regexp.MustCompile(`(!?)\[\[([^\[\]\n]+?)\]\]`)
	mdLinkRe   = regexp.MustCompile(`(!?)\[([^\[\]\n]*)\]\(((?:[^()\n]|\([^()\n]*\))+)\)`)
	httpRe     = regexp.MustCompile(`https?://` + urlRun + `+`)
	wwwRe      = regexp.MustCompile(`www\.` + urlRun + `+`)
	ipv4Re     = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d{1,5})?(?:/` + urlRun + `*)?`)
)

// match is one grammar hit inside a line, in byte offsets.
type match struct {
	start, end int
	target     string
	embed      bool
}

// grammar recognises one link syntax. Grammars are tried in slice order.
type grammar struct {
	name string
	scan func(line string) []match
}

var grammars = []grammar{
	{name: "wikilink", scan: scanWikilinks},
	{name: "markdown", scan: scanMarkdownLinks},
	{name: "http", scan: scanBare(httpRe, nil)},
	{name: "www", scan: scanBare(wwwRe, nil)},
	{name: "ipv4", scan: scanBare(ipv4Re, validIPv4)},
}

func scanWikilinks(line string) []match {
	var out []match
	for _, m := range wikilinkRe.FindAllStringSubmatchIndex(line, -1) {
		inner := line[m[4]:m[5]]
		// [[target|alias]] → target.
		if i := strings.Index(inner, "|"); i >= 0 {
			inner = inner[:i]
		}
		out = append(out, match{
			start:  m[0],
			end:    m[1],
			target: inner,
			embed:  m[3] > m[2],
		})
	}
	return out
}

func scanMarkdownLinks(line string) []match {
	var out []match
	for _, m := range mdLinkRe.FindAllStringSubmatchIndex(line, -1) {
		target := strings.TrimSpace(line[m[6]:m[7]])
		// [text](target "title")
		if i := strings.Index(target, ` "`); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
		if Classify(target) == InternalFile {
			if dec, err := url.PathUnescape(target); err == nil {
				target = dec
			}
		}
		out = append(out, match{
			start:  m[0],
			end:    m[1],
			target: target,
			embed:  m[3] > m[2],
		})
	}
	return out
}

// scanBare matches URLs in running text, dropping trailing sentence
// punctuation from the span.
func scanBare(re *regexp.Regexp, valid func(string) bool) func(string) []match {
	return func(line string) []match {
		var out []match
		for _, m := range re.FindAllStringIndex(line, -1) {
			start, end := m[0], m[1]
			for end > start && strings.ContainsRune(".,;:!?", rune(line[end-1])) {
				end--
			}
			target := line[start:end]
			if target == "" || (valid != nil && !valid(target)) {
				continue
			}
			out = append(out, match{start: start, end: end, target: target})
		}
		return out
	}
}

// validIPv4 rejects dotted quads with an octet above 255.
func validIPv4(s string) bool {
	host := s
	if i := strings.IndexAny(host, ":/"); i >= 0 {
		host = host[:i]
	}
	for _, octet := range strings.Split(host, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// ResolveText returns the link under the cursor in line. The cursor is a
// UTF-16 code unit offset, as reported by the host editor, and must lie
// strictly inside the match: touching either boundary is not a hit.
func ResolveText(line string, cursor int) (Descriptor, bool) {
	pos, ok := byteOffset(line, cursor)
	if !ok {
		return Descriptor{}, false
	}
	for _, g := range grammars {
		for _, m := range g.scan(line) {
			if m.start < pos && pos < m.end {
				d, ok := Normalize(m.target)
				if !ok {
					return Descriptor{}, false
				}
				d.Raw = line[m.start:m.end]
				d.Embed = m.embed
				return d, true
			}
		}
	}
	return Descriptor{}, false
}

// byteOffset converts a UTF-16 offset into a byte offset within s.
func byteOffset(s string, units int) (int, bool) {
	if units < 0 {
		return 0, false
	}
	n := 0
	for i, r := range s {
		if n >= units {
			return i, true
		}
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	if n >= units {
		return len(s), true
	}
	return 0, false
}

// Package link turns editor text and rendered DOM nodes into canonical link
// descriptors: a vault path with an optional fragment, or an external URL.
package link

import (
	"fmt"
	"strings"
)

// Kind classifies a link target.
type Kind int

const (
	InternalFile Kind = iota
	ExternalURL
)

func (k Kind) String() string {
	switch k {
	case InternalFile:
		return "internal"
	case ExternalURL:
		return "external"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind as its name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "internal":
		*k = InternalFile
	case "external":
		*k = ExternalURL
	default:
		return fmt.Errorf("link: unknown kind %q", b)
	}
	return nil
}

// Descriptor is the canonical form of a resolved link. For ExternalURL the
// URL is carried in Path and never split into a fragment.
type Descriptor struct {
	Kind     Kind   `json:"kind"`
	Raw      string `json:"raw"`
	Path     string `json:"path"`
	Fragment string `json:"fragment,omitempty"`
	Embed    bool   `json:"embed,omitempty"`
}

// IsBlockRef reports whether the fragment addresses a block (^id) rather
// than a heading.
func (d Descriptor) IsBlockRef() bool {
	return strings.HasPrefix(d.Fragment, "^")
}

// Target joins path and fragment back into a host link string.
func (d Descriptor) Target() string {
	if d.Fragment == "" {
		return d.Path
	}
	return d.Path + "#" + d.Fragment
}

// externalPrefixes is a literal prefix test, not URL validation. Private
// ranges other than 192. and 127. are deliberately not detected.
var externalPrefixes = []string{"http://", "https://", "www.", "192.", "127."}

// Classify reports whether s names an external URL or a vault file.
func Classify(s string) Kind {
	for _, p := range externalPrefixes {
		if strings.HasPrefix(s, p) {
			return ExternalURL
		}
	}
	return InternalFile
}

// headingSep separates nested headings in breadcrumb-style link text.
const headingSep = " > "

// Normalize splits raw link text into path and fragment. It reports false
// when raw is blank.
//
// "Folder/Note#Heading" splits on the first '#'. Breadcrumb text such as
// "A > B > ^block1" keeps the first segment as the path and the last segment
// as the fragment.
func Normalize(raw string) (Descriptor, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Descriptor{}, false
	}
	d := Descriptor{Kind: Classify(raw), Raw: raw, Path: raw}
	if d.Kind == ExternalURL {
		return d, true
	}

	switch {
	case strings.Contains(raw, "#"):
		i := strings.Index(raw, "#")
		d.Path = strings.TrimSpace(raw[:i])
		d.Fragment = strings.TrimSpace(raw[i+1:])
	case strings.Contains(raw, headingSep):
		segs := strings.Split(raw, headingSep)
		d.Path = strings.TrimSpace(segs[0])
		d.Fragment = strings.TrimSpace(segs[len(segs)-1])
	}
	return d, true
}

package link

// TextContext is an editing-mode input: one line and the cursor offset in it.
type TextContext struct {
	Line   string `json:"line"`
	Cursor int    `json:"cursor"`
}

// Input carries whatever the host could observe at the click or drop site.
// Text takes priority over Node.
type Input struct {
	Text *TextContext
	Node Node
}

// Resolver is safe for concurrent use; it holds only an immutable rule table.
type Resolver struct {
	rules RuleTable
}

// NewResolver creates a Resolver. A nil table means DefaultRules.
func NewResolver(rules RuleTable) *Resolver {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Resolver{rules: rules}
}

// Rules returns the resolver's rule table.
func (r *Resolver) Rules() RuleTable {
	return r.rules
}

// Resolve returns the single link described by in. It reports false when no
// link is present, which callers treat as "do nothing".
func (r *Resolver) Resolve(in Input) (Descriptor, bool) {
	if in.Text != nil {
		if d, ok := ResolveText(in.Text.Line, in.Text.Cursor); ok {
			return d, true
		}
	}
	if in.Node != nil {
		return r.ResolveNode(in.Node)
	}
	return Descriptor{}, false
}

// ResolveNode extracts link text from a rendered node via the rule table.
func (r *Resolver) ResolveNode(n Node) (Descriptor, bool) {
	text, _ := r.rules.Extract(n)
	return Normalize(text)
}

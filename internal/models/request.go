package models

// Request is the per-request context supplied by the network layer
type Request struct {
	URL     string      // Target URL
	PageURL string      // Originating top-level document URL, may be empty
	Type    ElementType // Single element type classification
	Method  string      // HTTP method
}

// Action is the outcome of matching a request
type Action int

const (
	ActionAllow Action = iota
	ActionBlock
	ActionRedirect
	ActionInjectCSP
)

// String implements the fmt.Stringer interface for Action.
func (a Action) String() string {
	switch a {
	case ActionBlock:
		return "block"
	case ActionRedirect:
		return "redirect"
	case ActionInjectCSP:
		return "inject-csp"
	default:
		return "allow"
	}
}

// Decision is the result of matching a request against a rule set
type Decision struct {
	Action   Action  `json:"-"`
	Resource string  `json:"resource,omitempty"` // Redirect resource name
	CSP      string  `json:"csp,omitempty"`      // Policy to attach for ActionInjectCSP
	Filter   *Filter `json:"-"`                  // Filter that decided, nil for the default allow
}

// SnippetKind tells how the page engine must inject a cosmetic snippet
type SnippetKind int

const (
	SnippetCSS SnippetKind = iota
	SnippetScript
)

// String implements the fmt.Stringer interface for SnippetKind.
func (k SnippetKind) String() string {
	if k == SnippetScript {
		return "script"
	}
	return "css"
}

// Snippet is one piece of CSS or script to inject into a loaded page.  Each
// snippet is independent of the others.
type Snippet struct {
	Kind SnippetKind `json:"-"`
	Text string      `json:"text"`
}

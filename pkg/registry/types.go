package registry

import (
	"strings"

	"github.com/morezero/capabilities-chat/pkg/session"
)

// Kind distinguishes the three capability families.
type Kind string

const (
	KindAction   Kind = "action"
	KindPrompt   Kind = "prompt"
	KindResource Kind = "resource"
)

func (k Kind) String() string { return string(k) }

// Capability is one advertised capability and the session that owns it.
// Identifier is the registry key within Kind: the action or prompt name, or
// the resource URI (a URI template for template resources).
type Capability struct {
	Kind        Kind
	Identifier  string
	Name        string
	Description string

	// Action input schema.
	InputSchema map[string]any
	// Prompt arguments.
	Arguments []session.PromptArgument
	// Resource metadata.
	MIMEType string
	Template bool

	Provider string
	Session  session.Session
}

// Scheme returns the URI scheme of a resource identifier, or "".
func (c *Capability) Scheme() string {
	return Scheme(c.Identifier)
}

// Scheme returns the part of a locator before "://", or "" when absent.
func Scheme(locator string) string {
	i := strings.Index(locator, "://")
	if i <= 0 {
		return ""
	}
	return locator[:i]
}

type key struct {
	kind Kind
	id   string
}

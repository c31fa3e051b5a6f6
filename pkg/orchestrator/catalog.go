package orchestrator

import (
	"encoding/json"

	"github.com/morezero/capabilities-chat/pkg/db"
	"github.com/morezero/capabilities-chat/pkg/registry"
)

// CatalogEntries converts registry descriptors into catalog rows. Actions store
// their input schema and prompts their argument list in the schema column.
func CatalogEntries(caps []registry.Capability) []db.CatalogEntry {
	out := make([]db.CatalogEntry, 0, len(caps))
	for i, c := range caps {
		e := db.CatalogEntry{
			Provider:    c.Provider,
			Kind:        c.Kind.String(),
			Identifier:  c.Identifier,
			Name:        c.Name,
			Description: c.Description,
			MIMEType:    c.MIMEType,
			Template:    c.Template,
			Position:    i,
		}
		var schema any
		switch c.Kind {
		case registry.KindAction:
			if len(c.InputSchema) > 0 {
				schema = c.InputSchema
			}
		case registry.KindPrompt:
			if len(c.Arguments) > 0 {
				schema = c.Arguments
			}
		}
		if schema != nil {
			if b, err := json.Marshal(schema); err == nil {
				e.Schema = b
			}
		}
		out = append(out, e)
	}
	return out
}

// Package registry maps capability identifiers to the provider sessions that own them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/pkg/session"
)

const logPrefix = "registry:registry"

// Registry is an ordered routing table keyed by (kind, identifier). Re-registering
// an identifier replaces the owner but keeps the entry's original position.
type Registry struct {
	mu      sync.RWMutex
	order   []key
	entries map[key]*Capability
	logger  *zap.Logger
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	Logger *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(params NewRegistryParams) *Registry {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[key]*Capability),
		logger:  logger,
	}
}

// RegisterSummary counts what one Register call inserted.
type RegisterSummary struct {
	Provider  string
	Actions   int
	Prompts   int
	Resources int
}

// Total is the number of capabilities registered.
func (s RegisterSummary) Total() int { return s.Actions + s.Prompts + s.Resources }

// Register lists every capability kind on s and inserts one entry per identifier.
// A listing failure for one kind is logged and returned (joined) after the other
// kinds have been registered.
func (r *Registry) Register(ctx context.Context, s session.Session) (RegisterSummary, error) {
	sum := RegisterSummary{Provider: s.Name()}
	var errs []error

	actions, err := s.ListActions(ctx)
	if err != nil {
		errs = append(errs, r.listingFailed(s.Name(), KindAction, err))
	}
	for _, a := range actions {
		r.put(&Capability{
			Kind:        KindAction,
			Identifier:  a.Name,
			Name:        a.Name,
			Description: a.Description,
			InputSchema: a.InputSchema,
			Provider:    s.Name(),
			Session:     s,
		})
		sum.Actions++
	}

	prompts, err := s.ListPrompts(ctx)
	if err != nil {
		errs = append(errs, r.listingFailed(s.Name(), KindPrompt, err))
	}
	for _, p := range prompts {
		r.put(&Capability{
			Kind:        KindPrompt,
			Identifier:  p.Name,
			Name:        p.Name,
			Description: p.Description,
			Arguments:   p.Arguments,
			Provider:    s.Name(),
			Session:     s,
		})
		sum.Prompts++
	}

	resources, err := s.ListResources(ctx)
	if err != nil {
		errs = append(errs, r.listingFailed(s.Name(), KindResource, err))
	}
	for _, res := range resources {
		r.put(&Capability{
			Kind:        KindResource,
			Identifier:  res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MIMEType,
			Template:    res.Template,
			Provider:    s.Name(),
			Session:     s,
		})
		sum.Resources++
	}

	r.logger.Info("registered provider capabilities",
		zap.String("provider", sum.Provider),
		zap.Int("actions", sum.Actions),
		zap.Int("prompts", sum.Prompts),
		zap.Int("resources", sum.Resources))

	return sum, errors.Join(errs...)
}

func (r *Registry) listingFailed(provider string, kind Kind, err error) error {
	r.logger.Warn("capability listing failed",
		zap.String("provider", provider),
		zap.String("kind", kind.String()),
		zap.Error(err))
	return &RegistryError{
		Code:    CodeListingFailed,
		Message: fmt.Sprintf("%s - list %ss on %s: %v", logPrefix, kind, provider, err),
		Details: map[string]string{"provider": provider, "kind": kind.String()},
	}
}

func (r *Registry) put(c *Capability) {
	k := key{kind: c.Kind, id: c.Identifier}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[k]; ok {
		if prev.Provider != c.Provider {
			r.logger.Debug("capability replaced",
				zap.String("kind", c.Kind.String()),
				zap.String("identifier", c.Identifier),
				zap.String("previous", prev.Provider),
				zap.String("provider", c.Provider))
		}
	} else {
		r.order = append(r.order, k)
	}
	r.entries[k] = c
}

// Resolve returns the capability registered under (kind, identifier).
func (r *Registry) Resolve(kind Kind, identifier string) (*Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[key{kind: kind, id: identifier}]
	return c, ok
}

// ResolveFamily returns the first resource, in registration order, whose
// identifier shares the locator's scheme.
func (r *Registry) ResolveFamily(locator string) (*Capability, bool) {
	scheme := Scheme(locator)
	if scheme == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range r.order {
		if k.kind != KindResource {
			continue
		}
		if c := r.entries[k]; c.Scheme() == scheme {
			return c, true
		}
	}
	return nil, false
}

// Snapshot returns a copy of every capability in registration order.
func (r *Registry) Snapshot() []Capability {
	return r.filter("")
}

// Actions returns action capabilities in registration order.
func (r *Registry) Actions() []Capability { return r.filter(KindAction) }

// Prompts returns prompt capabilities in registration order.
func (r *Registry) Prompts() []Capability { return r.filter(KindPrompt) }

// Resources returns resource capabilities in registration order.
func (r *Registry) Resources() []Capability { return r.filter(KindResource) }

// Len is the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) filter(kind Kind) []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Capability, 0, len(r.order))
	for _, k := range r.order {
		if kind != "" && k.kind != kind {
			continue
		}
		out = append(out, *r.entries[k])
	}
	return out
}

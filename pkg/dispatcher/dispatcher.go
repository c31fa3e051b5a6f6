package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/pkg/events"
	"github.com/morezero/capabilities-chat/pkg/registry"
	"github.com/morezero/capabilities-chat/pkg/session"
)

const logPrefix = "dispatcher:dispatch"

// Options configure a Dispatcher. Zero values use defaults.
type Options struct {
	Publisher events.EventPublisher
	// Timeout bounds every provider request. Zero means no per-call bound.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Dispatcher resolves identifiers through the registry and forwards requests to
// the owning session.
type Dispatcher struct {
	registry  *registry.Registry
	publisher events.EventPublisher
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(reg *registry.Registry, opts Options) *Dispatcher {
	d := &Dispatcher{
		registry:  reg,
		publisher: opts.Publisher,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if d.publisher == nil {
		d.publisher = &events.NoOpPublisher{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Invoke performs one action invocation. Unknown identifiers yield
// CAPABILITY_NOT_AVAILABLE without contacting any session.
func (d *Dispatcher) Invoke(ctx context.Context, req *InvokeRequest) *Result {
	token := req.CorrelationToken
	if token == "" {
		token = uuid.NewString()
	}
	res := &Result{CorrelationToken: token, Identifier: req.Identifier}
	start := d.now()

	capability, ok := d.registry.Resolve(registry.KindAction, req.Identifier)
	if !ok {
		res.IsError = true
		res.Error = &ErrorDetail{
			Code:    registry.CodeCapabilityNotAvailable,
			Message: fmt.Sprintf("Capability '%s' not found", req.Identifier),
		}
		d.logger.Warn("invocation of unknown capability", zap.String("identifier", req.Identifier))
		d.publishInvoked(ctx, res, start)
		return res
	}
	res.Provider = capability.Provider

	callCtx, cancel := d.withTimeout(ctx)
	defer cancel()

	d.logger.Debug("invoking capability",
		zap.String("identifier", req.Identifier),
		zap.String("provider", capability.Provider),
		zap.String("token", token))

	out, err := capability.Session.CallAction(callCtx, req.Identifier, req.Arguments)
	switch {
	case err != nil:
		res.IsError = true
		res.Error = &ErrorDetail{
			Code:      registry.CodeTransportError,
			Message:   err.Error(),
			Details:   map[string]string{"provider": capability.Provider},
			Retryable: true,
		}
		d.logger.Warn("capability invocation failed",
			zap.String("identifier", req.Identifier),
			zap.String("provider", capability.Provider),
			zap.Error(err))
	case out.IsError:
		res.Content = out.Content
		res.Structured = out.Structured
		res.IsError = true
		res.Error = &ErrorDetail{
			Code:    registry.CodeProviderError,
			Message: out.Text(),
		}
	default:
		res.Content = out.Content
		res.Structured = out.Structured
	}

	d.publishInvoked(ctx, res, start)
	return res
}

// ReadResource reads a resource by exact locator, falling back to the first
// provider registered under the locator's scheme. The bool is false when no
// provider can serve the locator; transport failures are returned as errors.
func (d *Dispatcher) ReadResource(ctx context.Context, locator string) (*Resource, bool, error) {
	capability, ok := d.registry.Resolve(registry.KindResource, locator)
	fallback := false
	if !ok {
		capability, ok = d.registry.ResolveFamily(locator)
		fallback = ok
	}
	if !ok {
		return nil, false, nil
	}

	callCtx, cancel := d.withTimeout(ctx)
	defer cancel()

	start := d.now()
	out, err := capability.Session.ReadResource(callCtx, locator)
	event := &Result{
		CorrelationToken: uuid.NewString(),
		Identifier:       locator,
		Provider:         capability.Provider,
	}
	if err != nil {
		event.IsError = true
		event.Error = &ErrorDetail{Code: registry.CodeTransportError, Message: err.Error()}
		d.publish(ctx, registry.KindResource, event, start)
		return nil, true, fmt.Errorf("%s - failed to read %s from %s: %w", logPrefix, locator, capability.Provider, err)
	}
	d.publish(ctx, registry.KindResource, event, start)

	r := &Resource{
		URI:      locator,
		Provider: capability.Provider,
		MIMEType: capability.MIMEType,
		Text:     out.Text(),
		Fallback: fallback,
	}
	for _, c := range out.Contents {
		if c.MIMEType != "" {
			r.MIMEType = c.MIMEType
			break
		}
	}
	return r, true, nil
}

// RenderPrompt renders a prompt and returns the text of its first message.
func (d *Dispatcher) RenderPrompt(ctx context.Context, name string, args map[string]string) (string, error) {
	capability, ok := d.registry.Resolve(registry.KindPrompt, name)
	if !ok {
		return "", &registry.RegistryError{
			Code:    registry.CodeNotFound,
			Message: fmt.Sprintf("Prompt '%s' not found", name),
		}
	}

	callCtx, cancel := d.withTimeout(ctx)
	defer cancel()

	start := d.now()
	out, err := capability.Session.GetPrompt(callCtx, name, args)
	event := &Result{CorrelationToken: uuid.NewString(), Identifier: name, Provider: capability.Provider}
	if err != nil {
		event.IsError = true
		event.Error = &ErrorDetail{Code: registry.CodeTransportError, Message: err.Error()}
		d.publish(ctx, registry.KindPrompt, event, start)
		return "", fmt.Errorf("%s - failed to render prompt %s: %w", logPrefix, name, err)
	}
	d.publish(ctx, registry.KindPrompt, event, start)

	if len(out.Messages) == 0 {
		return "", nil
	}
	return session.JoinText(out.Messages[0].Content), nil
}

func (d *Dispatcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *Dispatcher) publishInvoked(ctx context.Context, res *Result, start time.Time) {
	d.publish(ctx, registry.KindAction, res, start)
}

func (d *Dispatcher) publish(ctx context.Context, kind registry.Kind, res *Result, start time.Time) {
	event := &events.CapabilityInvokedEvent{
		CorrelationToken: res.CorrelationToken,
		Provider:         res.Provider,
		Kind:             kind.String(),
		Identifier:       res.Identifier,
		IsError:          res.IsError,
		ErrorCode:        res.ErrorCode(),
		DurationMs:       d.now().Sub(start).Milliseconds(),
		Timestamp:        d.now().UTC().Format(time.RFC3339),
	}
	if err := d.publisher.PublishInvoked(ctx, event); err != nil {
		d.logger.Debug("failed to publish invocation event", zap.Error(err))
	}
}

package events

import "context"

// EventPublisher publishes orchestrator events.
type EventPublisher interface {
	PublishConnected(ctx context.Context, event *ProviderConnectedEvent) error
	PublishInvoked(ctx context.Context, event *CapabilityInvokedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (no COMMS configured).
type NoOpPublisher struct{}

func (p *NoOpPublisher) PublishConnected(_ context.Context, _ *ProviderConnectedEvent) error {
	return nil
}

func (p *NoOpPublisher) PublishInvoked(_ context.Context, _ *CapabilityInvokedEvent) error {
	return nil
}

// CallbackPublisher forwards events to callbacks (for testing). Nil callbacks are skipped.
type CallbackPublisher struct {
	OnConnected func(ctx context.Context, event *ProviderConnectedEvent) error
	OnInvoked   func(ctx context.Context, event *CapabilityInvokedEvent) error
}

func (p *CallbackPublisher) PublishConnected(ctx context.Context, event *ProviderConnectedEvent) error {
	if p.OnConnected == nil {
		return nil
	}
	return p.OnConnected(ctx, event)
}

func (p *CallbackPublisher) PublishInvoked(ctx context.Context, event *CapabilityInvokedEvent) error {
	if p.OnInvoked == nil {
		return nil
	}
	return p.OnInvoked(ctx, event)
}

package events

import (
	"context"
	"fmt"

	comms "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// GlobalSubject overrides the subject every event is mirrored to.
	GlobalSubject string
	Logger        *zap.Logger
}

// CommsPublisher publishes events to COMMS subjects: a granular subject per
// provider/capability plus one global subject.
type CommsPublisher struct {
	nc            *comms.Conn
	globalSubject string
	logger        *zap.Logger
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{nc: nc, globalSubject: commsutil.SubjectEvents, logger: zap.NewNop()}
	if opts != nil {
		if opts.GlobalSubject != "" {
			p.globalSubject = opts.GlobalSubject
		}
		if opts.Logger != nil {
			p.logger = opts.Logger
		}
	}
	return p
}

// PublishConnected publishes a ProviderConnectedEvent.
func (p *CommsPublisher) PublishConnected(_ context.Context, event *ProviderConnectedEvent) error {
	return p.publish(commsutil.BuildConnectedSubject(event.Provider), event)
}

// PublishInvoked publishes a CapabilityInvokedEvent.
func (p *CommsPublisher) PublishInvoked(_ context.Context, event *CapabilityInvokedEvent) error {
	return p.publish(commsutil.BuildInvokedSubject(event.Provider, event.Identifier), event)
}

func (p *CommsPublisher) publish(subject string, event interface{}) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}
	for _, s := range []string{subject, p.globalSubject} {
		if err := p.nc.Publish(s, data); err != nil {
			p.logger.Error("failed to publish event", zap.String("subject", s), zap.Error(err))
			return fmt.Errorf("%s - failed to publish to %s: %w", commsPublisherLogPrefix, s, err)
		}
	}
	p.logger.Debug("published event", zap.String("subject", subject))
	return nil
}

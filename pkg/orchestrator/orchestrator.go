// Package orchestrator owns provider connections and wires the registry,
// dispatcher, and conversation engine together.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/pkg/bootstrap"
	"github.com/morezero/capabilities-chat/pkg/conversation"
	"github.com/morezero/capabilities-chat/pkg/db"
	"github.com/morezero/capabilities-chat/pkg/dispatcher"
	"github.com/morezero/capabilities-chat/pkg/events"
	"github.com/morezero/capabilities-chat/pkg/registry"
	"github.com/morezero/capabilities-chat/pkg/semver"
	"github.com/morezero/capabilities-chat/pkg/session"
)

const logPrefix = "orchestrator:orchestrator"

// ErrPromptNotFound is returned by ExecutePrompt for unknown prompt names.
var ErrPromptNotFound = errors.New("prompt not found")

// Catalog mirrors registered capabilities somewhere durable.
type Catalog interface {
	SyncProvider(ctx context.Context, params db.SyncProviderParams) error
}

// DialFunc opens a session to a configured provider.
type DialFunc func(ctx context.Context, p bootstrap.Provider, opts session.Options) (session.Session, error)

// Params holds parameters for New.
type Params struct {
	Completer conversation.Completer
	Publisher events.EventPublisher
	// Catalog is optional.
	Catalog Catalog
	Logger  *zap.Logger

	System    string
	MaxTokens int
	MaxTurns  int

	InvokeTimeout  time.Duration
	ConnectTimeout time.Duration
	ClientName     string
	ClientVersion  string

	// Dial defaults to session.Connect.
	Dial DialFunc
}

// Orchestrator is the owned aggregate of connections, registry, dispatcher and
// engine. Callers must Close it.
type Orchestrator struct {
	registry   *registry.Registry
	dispatcher *dispatcher.Dispatcher
	engine     *conversation.Engine
	publisher  events.EventPublisher
	catalog    Catalog
	dial       DialFunc
	sessOpts   session.Options
	logger     *zap.Logger

	mu       sync.Mutex
	sessions []session.Session
	closed   bool
}

// New builds an Orchestrator with no providers attached.
func New(p Params) *Orchestrator {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pub := p.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	dial := p.Dial
	if dial == nil {
		dial = func(ctx context.Context, prov bootstrap.Provider, opts session.Options) (session.Session, error) {
			return session.Connect(ctx, prov, opts)
		}
	}

	reg := registry.NewRegistry(registry.NewRegistryParams{Logger: logger.Named("registry")})
	disp := dispatcher.NewDispatcher(reg, dispatcher.Options{
		Publisher: pub,
		Timeout:   p.InvokeTimeout,
		Logger:    logger.Named("dispatcher"),
	})

	o := &Orchestrator{
		registry:   reg,
		dispatcher: disp,
		publisher:  pub,
		catalog:    p.Catalog,
		dial:       dial,
		logger:     logger,
		sessOpts: session.Options{
			ClientName:    p.ClientName,
			ClientVersion: p.ClientVersion,
			InitTimeout:   p.ConnectTimeout,
			Logger:        logger.Named("session"),
		},
	}
	o.engine = conversation.NewEngine(conversation.EngineParams{
		Completer: p.Completer,
		Invoker:   disp,
		Actions:   conversation.ActionSourceFunc(o.actionDescriptors),
		System:    p.System,
		MaxTokens: p.MaxTokens,
		MaxTurns:  p.MaxTurns,
		Logger:    logger.Named("conversation"),
	})
	return o
}

// Registry exposes the routing table for enumeration.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// SetObserver installs a progress observer on the conversation engine.
func (o *Orchestrator) SetObserver(obs conversation.Observer) { o.engine.SetObserver(obs) }

// ConnectReport summarizes ConnectAll.
type ConnectReport struct {
	Connected []string
	Failed    map[string]error
}

// ConnectAll connects every enabled provider in configuration order. Failures
// are logged and skipped.
func (o *Orchestrator) ConnectAll(ctx context.Context, cfg *bootstrap.ProviderConfig) ConnectReport {
	report := ConnectReport{Failed: make(map[string]error)}
	for _, p := range cfg.Providers() {
		if err := o.Connect(ctx, p); err != nil {
			o.logger.Warn("provider skipped", zap.String("provider", p.Name), zap.Error(err))
			report.Failed[p.Name] = err
			continue
		}
		report.Connected = append(report.Connected, p.Name)
	}
	return report
}

// Connect dials one provider and attaches it.
func (o *Orchestrator) Connect(ctx context.Context, p bootstrap.Provider) error {
	s, err := o.dial(ctx, p, o.sessOpts)
	if err != nil {
		return &registry.RegistryError{
			Code:    registry.CodeConnectionFailed,
			Message: fmt.Sprintf("%s - connect %s: %v", logPrefix, p.Name, err),
			Details: map[string]string{"provider": p.Name, "transport": p.EffectiveTransport()},
		}
	}
	return o.attach(ctx, s, p.MinVersion, p.EffectiveTransport())
}

// Attach registers an already-open session. The orchestrator takes ownership and
// closes it on Close, or immediately when the version check fails.
func (o *Orchestrator) Attach(ctx context.Context, s session.Session, minVersion string) error {
	return o.attach(ctx, s, minVersion, "")
}

func (o *Orchestrator) attach(ctx context.Context, s session.Session, minVersion, transport string) error {
	info := s.Info()
	if err := semver.CheckProviderVersion(semver.CheckParams{
		Provider:   s.Name(),
		Constraint: minVersion,
		Version:    info.Version,
	}); err != nil {
		if cerr := s.Close(); cerr != nil {
			o.logger.Debug("close after version mismatch failed", zap.String("provider", s.Name()), zap.Error(cerr))
		}
		return &registry.RegistryError{
			Code:    registry.CodeVersionUnsupported,
			Message: err.Error(),
			Details: map[string]string{"provider": s.Name(), "version": info.Version, "minVersion": minVersion},
		}
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		_ = s.Close()
		return fmt.Errorf("%s - orchestrator is closed", logPrefix)
	}
	o.sessions = append(o.sessions, s)
	o.mu.Unlock()

	sum, err := o.registry.Register(ctx, s)
	if err != nil {
		// Partial listings are kept; the registry already logged each failure.
		o.logger.Debug("registration incomplete", zap.String("provider", s.Name()), zap.Error(err))
	}

	o.syncCatalog(ctx, s, transport)

	event := &events.ProviderConnectedEvent{
		Provider:      s.Name(),
		ServerName:    info.Name,
		ServerVersion: info.Version,
		Actions:       sum.Actions,
		Prompts:       sum.Prompts,
		Resources:     sum.Resources,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if perr := o.publisher.PublishConnected(ctx, event); perr != nil {
		o.logger.Debug("failed to publish connected event", zap.Error(perr))
	}

	o.logger.Info("provider connected",
		zap.String("provider", s.Name()),
		zap.String("server", info.Name),
		zap.String("version", info.Version))
	return nil
}

func (o *Orchestrator) syncCatalog(ctx context.Context, s session.Session, transport string) {
	if o.catalog == nil {
		return
	}
	info := s.Info()
	var owned []registry.Capability
	for _, c := range o.registry.Snapshot() {
		if c.Provider == s.Name() {
			owned = append(owned, c)
		}
	}
	err := o.catalog.SyncProvider(ctx, db.SyncProviderParams{
		Provider: db.Provider{
			Name:          s.Name(),
			ServerName:    info.Name,
			ServerVersion: info.Version,
			Transport:     transport,
		},
		Entries: CatalogEntries(owned),
	})
	if err != nil {
		o.logger.Warn("catalog sync failed", zap.String("provider", s.Name()), zap.Error(err))
	}
}

// Providers returns the names of attached providers in connection order.
func (o *Orchestrator) Providers() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, s.Name())
	}
	return out
}

// Query runs one conversation for a user message.
func (o *Orchestrator) Query(ctx context.Context, text string) (conversation.History, error) {
	return o.engine.Query(ctx, text)
}

// ExecutePrompt renders a prompt and runs its text as a fresh user message.
// Unknown prompts return ErrPromptNotFound without contacting the model.
func (o *Orchestrator) ExecutePrompt(ctx context.Context, name string, args map[string]string) (conversation.History, error) {
	if _, ok := o.registry.Resolve(registry.KindPrompt, name); !ok {
		return nil, fmt.Errorf("%s - %w: %s", logPrefix, ErrPromptNotFound, name)
	}
	text, err := o.dispatcher.RenderPrompt(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return o.engine.Query(ctx, text)
}

// ReadResource reads a resource through the dispatcher's exact/family policy.
func (o *Orchestrator) ReadResource(ctx context.Context, locator string) (*dispatcher.Resource, bool, error) {
	return o.dispatcher.ReadResource(ctx, locator)
}

// Close releases every connection, attempting all of them, and returns the
// joined failures. Calling Close twice is a no-op.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	sessions := o.sessions
	o.sessions = nil
	o.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			o.logger.Warn("failed to close provider", zap.String("provider", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s - close %s: %w", logPrefix, s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) actionDescriptors() []conversation.ActionDescriptor {
	actions := o.registry.Actions()
	out := make([]conversation.ActionDescriptor, 0, len(actions))
	for _, a := range actions {
		out = append(out, conversation.ActionDescriptor{
			Name:        a.Identifier,
			Description: a.Description,
			InputSchema: a.InputSchema,
		})
	}
	return out
}

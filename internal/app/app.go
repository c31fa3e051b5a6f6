// Package app is the composition root: it loads configuration, opens the
// optional COMMS and database connections, and connects providers through the
// orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/internal/config"
	"github.com/morezero/capabilities-chat/internal/frontend"
	"github.com/morezero/capabilities-chat/pkg/bootstrap"
	"github.com/morezero/capabilities-chat/pkg/commsutil"
	"github.com/morezero/capabilities-chat/pkg/completion"
	"github.com/morezero/capabilities-chat/pkg/conversation"
	"github.com/morezero/capabilities-chat/pkg/db"
	"github.com/morezero/capabilities-chat/pkg/events"
	"github.com/morezero/capabilities-chat/pkg/orchestrator"
)

const logPrefix = "app:app"

// Version is set at build time via ldflags.
var Version = "dev"

// ClientName is the implementation name sent to providers.
const ClientName = "capchat"

// Options configures Start.
type Options struct {
	Config *config.Config
	Logger *zap.Logger
	// ProviderFile overrides the provider configuration path.
	ProviderFile string
	// Completer overrides the Gemini backend. When nil and WithCompletion is
	// set, a Gemini completer is built from Config.
	Completer      conversation.Completer
	WithCompletion bool
}

// App owns every long-lived connection. Close releases them.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	nc        *comms.Conn
	pool      *pgxpool.Pool
	orch      *orchestrator.Orchestrator
	providers *bootstrap.ProviderConfig
	report    orchestrator.ConnectReport
}

// Start wires the application and connects every enabled provider. Only an
// unreadable provider configuration is fatal; other optional parts degrade
// with a warning.
func Start(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	// Step 1: Load provider configuration
	providers, err := bootstrap.LoadProviderConfig(logger.Named("bootstrap"), opts.ProviderFile, cfg.ServerConfigFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load provider config: %w", logPrefix, err)
	}
	a.providers = providers

	// Step 2: Connect to COMMS for event publishing
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if cfg.EventsEnabled() {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName, logger.Named("comms"))
		if err != nil {
			logger.Warn("events disabled: COMMS unavailable", zap.Error(err))
		} else {
			a.nc = nc
			publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Logger: logger.Named("events")})
		}
	}

	// Step 3: Connect to the catalog database
	var catalog orchestrator.Catalog
	if cfg.CatalogEnabled() {
		repo, err := a.openCatalog(ctx)
		if err != nil {
			logger.Warn("catalog disabled", zap.Error(err))
		} else {
			catalog = repo
		}
	}

	// Step 4: Completion backend
	completer := opts.Completer
	if completer == nil && opts.WithCompletion {
		g, err := completion.NewGemini(ctx, completion.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.Model,
			Logger: logger.Named("completion"),
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("%s - failed to create completion backend: %w", logPrefix, err)
		}
		logger.Info("completion backend ready", zap.String("model", g.Model()))
		completer = g
	}

	// Step 5: Orchestrator and providers
	a.orch = orchestrator.New(orchestrator.Params{
		Completer:      completer,
		Publisher:      publisher,
		Catalog:        catalog,
		Logger:         logger,
		System:         cfg.SystemPrompt,
		MaxTokens:      cfg.MaxTokens,
		MaxTurns:       cfg.MaxTurns,
		InvokeTimeout:  cfg.InvokeTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		ClientName:     ClientName,
		ClientVersion:  Version,
	})
	a.report = a.orch.ConnectAll(ctx, providers)
	logger.Info("providers connected",
		zap.Strings("connected", a.report.Connected),
		zap.Int("failed", len(a.report.Failed)),
		zap.Int("capabilities", a.orch.Registry().Len()))

	return a, nil
}

func (a *App) openCatalog(ctx context.Context) (*db.Repository, error) {
	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.logger.Named("db"))
	if err != nil {
		return nil, err
	}
	if a.cfg.RunMigrations {
		files, err := db.LoadMigrationFiles(a.cfg.MigrationPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, files, a.logger.Named("db")); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}
	a.pool = pool
	return db.NewRepository(pool, a.logger.Named("db")), nil
}

// Orchestrator returns the connected orchestrator.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orch }

// Report returns the provider connection outcome.
func (a *App) Report() orchestrator.ConnectReport { return a.report }

// ProviderSource is the path the provider configuration was loaded from.
func (a *App) ProviderSource() string { return a.providers.Source }

// Close tears down providers, COMMS, and the database pool, attempting each.
func (a *App) Close() error {
	var errs []error
	if a.orch != nil {
		if err := a.orch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("%s - failed to drain COMMS: %w", logPrefix, err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

// ChatParams configures RunChat.
type ChatParams struct {
	Options
	In       io.Reader
	Out      io.Writer
	Markdown bool
}

// RunChat starts the application, runs the console until it ends, and always
// tears everything down.
func RunChat(ctx context.Context, p ChatParams) (err error) {
	p.WithCompletion = true
	fmt.Fprintln(p.Out, "Connecting to MCP servers...")
	a, err := Start(ctx, p.Options)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.logger.Warn("cleanup error", zap.Error(cerr))
		}
	}()
	fmt.Fprintf(p.Out, "Connected %d of %d providers.\n",
		len(a.report.Connected), len(a.report.Connected)+len(a.report.Failed))

	repl := frontend.NewREPL(frontend.REPLParams{
		Backend:  a.orch,
		In:       p.In,
		Out:      p.Out,
		Scheme:   p.Config.ResourceScheme,
		Markdown: p.Markdown,
		Logger:   a.logger.Named("frontend"),
	})
	return repl.Run(ctx)
}

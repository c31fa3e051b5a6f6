package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const repoLogPrefix = "db:repository"

// Repository provides catalog persistence.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// SyncProvider replaces the catalog rows of one provider in a single transaction.
func (r *Repository) SyncProvider(ctx context.Context, params SyncProviderParams) error {
	p := params.Provider
	r.logger.Debug("syncing provider catalog", zap.String("provider", p.Name), zap.Int("entries", len(params.Entries)))

	now := time.Now().UTC()
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO providers (name, server_name, server_version, transport, last_connected)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (name) DO UPDATE SET
			   server_name = EXCLUDED.server_name,
			   server_version = EXCLUDED.server_version,
			   transport = EXCLUDED.transport,
			   last_connected = EXCLUDED.last_connected`,
			p.Name, p.ServerName, p.ServerVersion, p.Transport, now); err != nil {
			return fmt.Errorf("%s - upsert provider %s: %w", repoLogPrefix, p.Name, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM catalog_capabilities WHERE provider = $1`, p.Name); err != nil {
			return fmt.Errorf("%s - clear catalog for %s: %w", repoLogPrefix, p.Name, err)
		}

		batch := &pgx.Batch{}
		for i, e := range params.Entries {
			var schema any
			if len(e.Schema) > 0 {
				schema = string(e.Schema)
			}
			batch.Queue(
				`INSERT INTO catalog_capabilities
				   (provider, kind, identifier, name, description, schema, mime_type, template, position, synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10)
				 ON CONFLICT (provider, kind, identifier) DO UPDATE SET
				   name = EXCLUDED.name,
				   description = EXCLUDED.description,
				   schema = EXCLUDED.schema,
				   mime_type = EXCLUDED.mime_type,
				   template = EXCLUDED.template,
				   position = EXCLUDED.position,
				   synced_at = EXCLUDED.synced_at`,
				p.Name, e.Kind, e.Identifier, e.Name, e.Description, schema, e.MIMEType, e.Template, i, now)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%s - insert catalog for %s: %w", repoLogPrefix, p.Name, err)
		}
		return nil
	})
}

// ListProviders returns every provider seen, by name.
func (r *Repository) ListProviders(ctx context.Context) ([]Provider, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, server_name, server_version, transport, last_connected
		 FROM providers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%s - list providers: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.Name, &p.ServerName, &p.ServerVersion, &p.Transport, &p.LastConnected); err != nil {
			return nil, fmt.Errorf("%s - scan provider: %w", repoLogPrefix, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCapabilities returns catalog entries ordered by provider and position.
func (r *Repository) ListCapabilities(ctx context.Context, params ListCapabilitiesParams) ([]CatalogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, provider, kind, identifier, name, description, COALESCE(schema::text, ''),
		        mime_type, template, position, synced_at
		 FROM catalog_capabilities
		 WHERE ($1 = '' OR provider = $1) AND ($2 = '' OR kind = $2)
		 ORDER BY provider, position`, params.Provider, params.Kind)
	if err != nil {
		return nil, fmt.Errorf("%s - list capabilities: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []CatalogEntry
	for rows.Next() {
		var (
			e      CatalogEntry
			schema string
		)
		if err := rows.Scan(&e.ID, &e.Provider, &e.Kind, &e.Identifier, &e.Name, &e.Description,
			&schema, &e.MIMEType, &e.Template, &e.Position, &e.SyncedAt); err != nil {
			return nil, fmt.Errorf("%s - scan capability: %w", repoLogPrefix, err)
		}
		if schema != "" {
			e.Schema = []byte(schema)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearCatalog truncates the catalog tables. Schema is preserved.
func (r *Repository) ClearCatalog(ctx context.Context) error {
	r.logger.Info("clearing capability catalog")
	if _, err := r.pool.Exec(ctx, `TRUNCATE TABLE catalog_capabilities, providers RESTART IDENTITY CASCADE`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", repoLogPrefix, err)
	}
	return nil
}

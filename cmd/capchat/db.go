package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/capabilities-chat/pkg/db"
)

var (
	catalogProvider string
	catalogKind     string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the capability catalog mirrored in DATABASE_URL",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

var catalogProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers recorded in the catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogProviders,
}

var catalogClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every provider and capability from the catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogClear,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the catalog database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogProvider, "provider", "", "Only show capabilities of this provider")
	catalogCmd.Flags().StringVar(&catalogKind, "kind", "", "Only show one kind: action, prompt, or resource")

	catalogCmd.AddCommand(catalogProvidersCmd)
	catalogCmd.AddCommand(catalogClearCmd)

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, logger.Named("db"))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	files, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, files, logger.Named("db")); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", len(files))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	ok, err := db.MigrationStatus(ctx, pool)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Catalog schema is present.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Catalog schema is missing; run 'capchat migrate up'.")
	}
	return nil
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := db.NewRepository(pool, logger.Named("db"))
	entries, err := repo.ListCapabilities(ctx, db.ListCapabilitiesParams{
		Provider: catalogProvider,
		Kind:     catalogKind,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty.")
		return nil
	}

	t := table.New().Headers("PROVIDER", "KIND", "IDENTIFIER", "TEMPLATE", "SYNCED")
	for _, e := range entries {
		t.Row(e.Provider, e.Kind, e.Identifier, strconv.FormatBool(e.Template), e.SyncedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runCatalogProviders(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	providers, err := db.NewRepository(pool, logger.Named("db")).ListProviders(ctx)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No providers recorded.")
		return nil
	}

	t := table.New().Headers("NAME", "SERVER", "VERSION", "TRANSPORT", "LAST CONNECTED")
	for _, p := range providers {
		t.Row(p.Name, p.ServerName, p.ServerVersion, p.Transport, p.LastConnected.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runCatalogClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.NewRepository(pool, logger.Named("db")).ClearCatalog(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Catalog cleared.")
	return nil
}

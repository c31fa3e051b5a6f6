package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/morezero/capabilities-chat/internal/app"
	"github.com/morezero/capabilities-chat/internal/frontend"
)

func runChat(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateForChat(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.RunChat(ctx, app.ChatParams{
		Options: app.Options{
			Config:       cfg,
			Logger:       logger,
			ProviderFile: providerFile,
		},
		In:       os.Stdin,
		Out:      cmd.OutOrStdout(),
		Markdown: !noMarkdown,
	})
}

// listCmd builds a command that connects providers and prints one listing
// through the console's own directive.
func listCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateForProviders(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.Start(ctx, app.Options{Config: cfg, Logger: logger, ProviderFile: providerFile})
			if err != nil {
				return err
			}
			defer a.Close()

			repl := frontend.NewREPL(frontend.REPLParams{
				Backend: a.Orchestrator(),
				Out:     cmd.OutOrStdout(),
				Scheme:  cfg.ResourceScheme,
				Logger:  logger,
			})
			repl.Handle(ctx, "/"+name)
			return nil
		},
	}
}

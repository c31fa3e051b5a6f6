// Package main is the entrypoint for capchat, the MCP capability chat console.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/morezero/capabilities-chat/internal/app"
	"github.com/morezero/capabilities-chat/internal/config"
)

var (
	// Global flags
	verbose      bool
	providerFile string
	noMarkdown   bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "capchat",
	Short: "Chat with a language model over MCP capability providers",
	Long: `capchat connects to the MCP providers listed in the provider configuration
(server_config.json by default), aggregates their tools, prompts, and resources,
and runs an interactive console backed by Gemini.

Run without arguments to start the chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return err
		}
		logger, err = app.NewLogger(cfg.LogLevel, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive console (default)",
	RunE:  runChat,
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the capchat version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "capchat %s\n", app.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&providerFile, "config", "c", "", "Provider configuration file (or set CAPCHAT_SERVER_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&noMarkdown, "no-markdown", false, "Print resources without markdown rendering")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(listCmd("tools", "List tools from every connected provider"))
	rootCmd.AddCommand(listCmd("prompts", "List prompts and their arguments"))
	rootCmd.AddCommand(listCmd("resources", "List resources and resource templates"))
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

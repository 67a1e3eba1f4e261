package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/contexta-sources/internal/app"
	"github.com/markdave123-py/contexta-sources/internal/config"
	"github.com/markdave123-py/contexta-sources/internal/logger"
)

type rootFlags struct {
	logLevel string
	logJSON  bool
}

func RootCmd() *cobra.Command {
	cfg := config.LoadConfig()
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "contexta",
		Short:         "Enumerate documents in storage and sources in vector stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.Init(&logger.Config{
				Level:      logger.ParseLevel(flags.logLevel),
				Output:     os.Stderr,
				JSON:       flags.logJSON,
				TimeFormat: "15:04:05",
			})
			cmd.SetContext(logger.ContextWithLogger(cmd.Context(), logger.GetDefault()))
		},
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", cfg.LogLevel, "debug, info, warn, error or disabled")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", cfg.LogJSON, "emit logs as JSON")

	root.AddCommand(
		DocumentsCmd(cfg),
		SourcesCmd(cfg),
		ServeCmd(cfg),
	)
	return root
}

// withApp builds the application for one command and tears it down afterwards.
func withApp(ctx context.Context, cfg *config.Config, fn func(*app.App) error) error {
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		logger.FromContext(ctx).Error("startup failed", "error", err)
		return err
	}
	defer a.Close()

	if err := fn(a); err != nil {
		logger.FromContext(ctx).Error("command failed", "error", err)
		return err
	}
	return nil
}

func ServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), cfg, func(a *app.App) error {
				return a.Server.Run(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	return cmd
}

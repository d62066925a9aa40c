package main

import (
	"context"
	"io"
	"strings"

	"engagement/internal/app/bootstrap"
	"engagement/internal/platform/config"
	"engagement/internal/platform/logging"

	"github.com/spf13/cobra"
)

type commandOptions struct {
	seedFile string
	dsn      string
	viewerID string
	logLevel string
}

func newRootCommand() *cobra.Command {
	opts := &commandOptions{}

	rootCmd := &cobra.Command{
		Use:           "engagementctl",
		Short:         "Inspect engagement state from a seed file or PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.seedFile, "seed", "", "YAML seed file for the in-memory store")
	rootCmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (overrides POSTGRES_DSN)")
	rootCmd.PersistentFlags().StringVar(&opts.viewerID, "viewer", "", "Viewer id (overrides VIEWER_ID)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "Log level written to stderr")

	rootCmd.AddCommand(newFeedCommand(opts))
	rootCmd.AddCommand(newPollsCommand(opts))
	rootCmd.AddCommand(newNotificationsCommand(opts))
	return rootCmd
}

func (o *commandOptions) open(ctx context.Context, stderr io.Writer) (*bootstrap.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(o.seedFile) != "" {
		cfg.SeedFile = strings.TrimSpace(o.seedFile)
		cfg.PostgresDSN = ""
	}
	if strings.TrimSpace(o.dsn) != "" {
		cfg.PostgresDSN = strings.TrimSpace(o.dsn)
	}
	if strings.TrimSpace(o.viewerID) != "" {
		cfg.ViewerID = strings.TrimSpace(o.viewerID)
	}
	logger := logging.NewWithWriter(stderr, o.logLevel, "text").With("process", "engagementctl")
	return bootstrap.OpenSession(ctx, cfg, logger)
}


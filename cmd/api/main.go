package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"engagement/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + engines).
// 3) Serve HTTP until interrupted.
func main() {
	cmd := &cobra.Command{
		Use:           "engagement-api",
		Short:         "Serve the engagement JSON API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.BuildAPI(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Printf("api shutdown close failed: %v", err)
				}
			}()
			return app.Run(ctx)
		},
	}
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("engagement api stopped with error: %v", err)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	Long:  `Start the HTTP server exposing POST /chat, GET /tools and GET /health.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := server.NewComponents(ctx, cfg)
	if err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("api_prefix", cfg.APIPrefix).
		Msg("starting toolrelay")

	if err := server.New(cfg, components).Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

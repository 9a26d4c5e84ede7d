package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/server"
)

var askNoTools bool

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message through the tool loop and print the reply",
	Long: `Run a single chat turn against the configured model without starting the
server. Tool calls are executed locally and listed on stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		defer components.Close()

		if components.Orchestrator == nil {
			return errors.New("no API key configured for provider " + cfg.Provider)
		}

		out, err := components.Orchestrator.Run(ctx, nil, strings.Join(args, " "), !askNoTools)
		if err != nil {
			return err
		}
		for _, name := range out.ToolCalls {
			fmt.Fprintf(os.Stderr, "tool: %s\n", name)
		}
		fmt.Println(out.FinalText)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askNoTools, "no-tools", false, "disable tool calling for this message")
}

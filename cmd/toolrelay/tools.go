package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/toolrelay/toolrelay/internal/models"
	"github.com/toolrelay/toolrelay/internal/server"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalog advertised to the model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		components, err := server.NewComponents(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer components.Close()

		defs := components.Registry.Definitions()
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models.ToolsResponse{Tools: defs, Total: len(defs)})
	},
}

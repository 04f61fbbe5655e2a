package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Rrens/sqlgate/internal/app"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `mcp serves validate_sql, execute_sql and the schema tools to an MCP client over
stdin and stdout. It uses the same application store and connections as the
HTTP server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		log.Info().Str("version", app.Version).Msg("serving MCP over stdio")
		return a.MCP.ServeStdio()
	},
}

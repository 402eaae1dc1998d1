package main

import (
	"github.com/spf13/cobra"

	"callscribe/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the extract_call tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(journalReadWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			a.log.Info("Serving MCP over stdio")
			return mcpserver.Serve(mcpserver.New(a.svc, a.log))
		},
	}
}

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	trackermcp "github.com/joescharf/tracker/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This exposes issue operations as tools to MCP clients. Configure with:

  {
    "mcpServers": {
      "tracker": { "command": "tracker", "args": ["mcp"] }
    }
  }

Available tools: tracker_list_issues, tracker_get_issue, tracker_create_issue,
tracker_update_issue, tracker_add_comment, tracker_replace_labels,
tracker_bulk_status, tracker_timeline, tracker_top_assignees, tracker_latency`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return trackermcp.NewServer(svc, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

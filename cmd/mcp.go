package cmd

import (
	"github.com/spf13/cobra"

	"github.com/NancyGarg/transcribe-ai/core/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the recording library to MCP clients over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, appOptions{Resume: true, Watch: true})
		if err != nil {
			return err
		}
		defer a.Close()
		return mcp.Serve(a.ctrl, Version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

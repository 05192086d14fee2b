package cli

import (
	"context"

	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"

	"github.com/spf13/cobra"
)

var hookPostToolUseCmd = &cobra.Command{
	Use:   "post-tool-use",
	Short: "Handle PostToolUse hook events (non-blocking)",
	Long: `Record a compressed observation of a tool call. Reads tool_name,
tool_input and tool_response from stdin JSON.

Tools on the skip list are ignored. When a capture list is configured only
those tools are recorded. Both lists accept glob patterns.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, "post-tool-use", func(ctx context.Context, input hooks.PostToolUseInput) (hooks.Output, error) {
			return hooks.ContinueOutput(), HookEngine.HandlePostToolUse(ctx, input)
		})
	},
}

func init() {
	hookCmd.AddCommand(hookPostToolUseCmd)
}

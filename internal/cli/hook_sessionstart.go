package cli

import (
	"context"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"

	"github.com/spf13/cobra"
)

var hookSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Handle SessionStart hook events (injects stored context)",
	Long: `Fetch the project's memory profile and inject it as additional context
when a Claude Code session starts. Reads session metadata from stdin JSON.

Without an API key a short status block explains how to configure one.
If the memory service is unreachable a failure notice is injected instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, "session-start", func(ctx context.Context, input hooks.SessionStartInput) (hooks.Output, error) {
			additional, err := HookEngine.HandleSessionStart(ctx, input)
			if err != nil && additional == "" {
				additional = core.FailedContext(err)
			}
			if additional == "" {
				return hooks.ContinueOutput(), nil
			}
			return hooks.ContextOutput(additional), err
		})
	},
}

func init() {
	hookCmd.AddCommand(hookSessionStartCmd)
}

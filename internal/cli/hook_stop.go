package cli

import (
	"context"

	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"

	"github.com/spf13/cobra"
)

var hookStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Handle Stop hook events (captures the transcript, non-blocking)",
	Long: `Capture the part of the session transcript not yet stored.
Reads session_id and transcript_path from stdin JSON.

The capture is recorded in the local journal before it is sent, so a
window that fails to upload can be re-sent with 'supermemory captures resend'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, "stop", func(ctx context.Context, input hooks.StopInput) (hooks.Output, error) {
			_, err := HookEngine.HandleStop(ctx, input)
			return hooks.ContinueOutput(), err
		})
	},
}

func init() {
	hookCmd.AddCommand(hookStopCmd)
}

package cli

import (
	"context"

	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"

	"github.com/spf13/cobra"
)

var hookPromptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Handle UserPromptSubmit hook events (non-blocking)",
	Long: `Store the submitted prompt as a memory for the current project.
Reads the prompt from stdin JSON. Blank prompts and prompts that are
entirely <private> are ignored; private sections are redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, "prompt", func(ctx context.Context, input hooks.UserPromptSubmitInput) (hooks.Output, error) {
			return hooks.ContinueOutput(), HookEngine.HandleUserPrompt(ctx, input)
		})
	},
}

func init() {
	hookCmd.AddCommand(hookPromptCmd)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"

	"github.com/spf13/cobra"
)

// hookTimeout bounds the remote calls a single hook invocation may make.
const hookTimeout = 25 * time.Second

// hookBinary is the command Claude Code runs for each installed hook.
const hookBinary = "supermemory"

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle Claude Code hook events",
	Long: `Process Claude Code hook events.

Each subcommand reads the event JSON from stdin, does its work, and always
prints a non-blocking JSON response on stdout. Failures are logged and never
interrupt the session.`,
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Register supermemory hooks in .claude/settings.json",
	Long: `Update .claude/settings.json in the target directory so that Claude Code
runs 'supermemory hook <event>' for SessionStart, UserPromptSubmit,
PostToolUse and Stop. Other keys in settings.json are preserved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targetDir, _ := cmd.Flags().GetString("dir")
		if targetDir == "" {
			var err error
			targetDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
		}

		claudeDir := filepath.Join(targetDir, ".claude")
		if err := os.MkdirAll(claudeDir, 0o755); err != nil {
			return fmt.Errorf("creating .claude directory: %w", err)
		}
		settingsPath := filepath.Join(claudeDir, "settings.json")
		if err := updateSettingsWithHooks(settingsPath, hookBinary); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", settingsPath)
		fmt.Fprintln(cmd.OutOrStdout(), "Claude Code will now capture memories for this project.")
		return nil
	},
}

// hookEntry builds one Claude Code hook matcher group.
func hookEntry(command string, timeoutSec int) []any {
	return []any{
		map[string]any{
			"matcher": "",
			"hooks": []any{
				map[string]any{
					"type":    "command",
					"command": command,
					"timeout": timeoutSec,
				},
			},
		},
	}
}

// updateSettingsWithHooks merges the supermemory hooks into the settings
// file at settingsPath. Unreadable or invalid files are replaced.
func updateSettingsWithHooks(settingsPath, binary string) error {
	var settings map[string]any

	data, err := os.ReadFile(settingsPath) //nolint:gosec // G304: path from trusted CLI input
	if err == nil {
		if err := json.Unmarshal(data, &settings); err != nil || settings == nil {
			settings = make(map[string]any)
		}
	} else {
		settings = make(map[string]any)
	}

	hooksSection, _ := settings["hooks"].(map[string]any)
	if hooksSection == nil {
		hooksSection = make(map[string]any)
	}
	hooksSection["SessionStart"] = hookEntry(binary+" hook session-start", 30)
	hooksSection["UserPromptSubmit"] = hookEntry(binary+" hook prompt", 15)
	hooksSection["PostToolUse"] = hookEntry(binary+" hook post-tool-use", 15)
	hooksSection["Stop"] = hookEntry(binary+" hook stop", 60)
	settings["hooks"] = hooksSection

	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if !strings.HasSuffix(string(out), "\n") {
		out = append(out, '\n')
	}
	if err := os.WriteFile(settingsPath, out, 0o644); err != nil {
		return fmt.Errorf("writing settings.json: %w", err)
	}
	return nil
}

// runHook parses the event from stdin, hands it to handle and writes the
// returned response. It never returns an error: a hook must not block the
// session, so failures are logged and the default response is printed.
func runHook[T any](cmd *cobra.Command, name string, handle func(ctx context.Context, input T) (hooks.Output, error)) error {
	out := hooks.ContinueOutput()
	defer func() {
		_ = hooks.WriteOutput(hookStdout, out)
	}()

	if HookEngine == nil {
		return nil
	}
	input, err := hooks.ParseStdin[T](hookStdin)
	if err != nil {
		logHookError(name, err)
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, hookTimeout)
	defer cancel()

	result, err := handle(ctx, *input)
	if err != nil {
		logHookError(name, err)
	}
	if result != (hooks.Output{}) {
		out = result
	}
	return nil
}

func logHookError(name string, err error) {
	if Logger != nil {
		Logger.Warn("hook failed", "hook", name, "error", err)
	}
}

func init() {
	hookInstallCmd.Flags().String("dir", "", "Target directory (defaults to current directory)")

	hookCmd.AddCommand(hookInstallCmd)
	rootCmd.AddCommand(hookCmd)
}

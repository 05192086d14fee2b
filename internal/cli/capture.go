package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"

	"github.com/spf13/cobra"
)

var (
	captureTranscript string
	captureSessionID  string
	captureSignal     bool
	captureDryRun     bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a session transcript manually",
	Long: `Run the transcript capture pipeline outside of the Stop hook.

Entries after the session's watermark are rendered, journaled and sent to
the memory service, and the watermark advances. With --dry-run the rendering
is printed and nothing is stored or advanced. --signal forces signal
extraction even when the settings disable it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Capturer == nil || Settings == nil {
			return fmt.Errorf("capture pipeline not initialized")
		}
		if captureTranscript == "" || captureSessionID == "" {
			return fmt.Errorf("--transcript and --session-id are required")
		}
		dir, err := workDir()
		if err != nil {
			return err
		}

		opts, err := captureOptions(dir)
		if err != nil {
			return err
		}

		var client integration.MemoryClient
		if !opts.DryRun {
			client, _, err = openMemoryClient(dir)
			if errors.Is(err, core.ErrNoAPIKey) {
				return fmt.Errorf("no API key configured: use --dry-run to preview, or set SUPERMEMORY_CC_API_KEY")
			}
			if err != nil {
				return err
			}
		}

		result, err := Capturer.Capture(captureSessionID, captureTranscript, opts)
		if err != nil && result == nil {
			return fmt.Errorf("capturing transcript: %w", err)
		}
		if err != nil && Logger != nil {
			Logger.Warn("watermark not saved", "session", captureSessionID, "error", err)
		}
		w := cmd.OutOrStdout()
		if result == nil {
			fmt.Fprintln(w, "Nothing to capture.")
			return nil
		}

		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s capture: %d entries, %d turns", result.Mode, result.EntryCount, result.TurnCount)))
		fmt.Fprintln(w, result.Content)
		if opts.DryRun {
			return nil
		}

		id, err := journalCapture(result, dir)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		memoryID, err := resendCapture(ctx, client, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nSaved %s (memory %s)\n", id, memoryID)
		return nil
	},
}

func captureOptions(dir string) (core.CaptureOptions, error) {
	signal, err := Settings.SignalConfig(dir)
	if err != nil {
		return core.CaptureOptions{}, fmt.Errorf("loading signal settings: %w", err)
	}
	include, err := Settings.IncludeTools(dir)
	if err != nil {
		return core.CaptureOptions{}, fmt.Errorf("loading include tools: %w", err)
	}
	return core.CaptureOptions{
		Signal:       signal.Enabled || captureSignal,
		Keywords:     signal.Keywords,
		TurnsBefore:  signal.TurnsBefore,
		IncludeTools: include,
		DryRun:       captureDryRun,
	}, nil
}

// journalCapture records result as a pending capture and returns its id.
func journalCapture(result *core.CaptureResult, dir string) (string, error) {
	if Journal == nil {
		return "", fmt.Errorf("capture journal not initialized")
	}
	if err := Journal.Load(); err != nil {
		return "", fmt.Errorf("loading capture journal: %w", err)
	}
	id, err := Journal.AddCapture(models.CaptureRecord{
		SessionID:    result.SessionID,
		Project:      integration.ProjectName(dir),
		ContainerTag: integration.ContainerTag(dir),
		CustomID:     result.CustomID(),
		Mode:         result.Mode,
		LastUUID:     result.LastUUID,
		EntryCount:   result.EntryCount,
		SignalCount:  result.SignalCount,
		Status:       models.CaptureStatusPending,
	}, result.Content)
	if err != nil {
		return "", fmt.Errorf("journaling capture: %w", err)
	}
	if err := Journal.Save(); err != nil {
		return "", fmt.Errorf("saving capture journal: %w", err)
	}
	return id, nil
}

func init() {
	captureCmd.Flags().StringVar(&captureTranscript, "transcript", "", "Path to the session transcript (JSONL)")
	captureCmd.Flags().StringVar(&captureSessionID, "session-id", "", "Session the transcript belongs to")
	captureCmd.Flags().BoolVar(&captureSignal, "signal", false, "Extract only keyword-triggered turns")
	captureCmd.Flags().BoolVar(&captureDryRun, "dry-run", false, "Print the rendering without storing it or moving the watermark")
	rootCmd.AddCommand(captureCmd)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/internal/observability"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"

	"github.com/spf13/cobra"
)

var (
	capturesSession string
	capturesSince   string
	capturesStatus  string
)

var capturesCmd = &cobra.Command{
	Use:   "captures",
	Short: "Inspect the local capture journal",
	Long: `Every transcript window captured by the Stop hook is recorded in a local
journal before it is sent to the memory service. These commands list the
journal, show a capture's content, and re-send captures that failed.`,
}

var capturesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled captures, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Journal == nil {
			return fmt.Errorf("capture journal not initialized")
		}
		filter := models.CaptureFilter{
			SessionID: capturesSession,
			Status:    models.CaptureStatus(capturesStatus),
		}
		if capturesSince != "" {
			since, err := parseSinceDuration(capturesSince)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			filter.Since = &since
		}
		switch filter.Status {
		case "", models.CaptureStatusPending, models.CaptureStatusSent, models.CaptureStatusFailed:
		default:
			return fmt.Errorf("unknown status %q (use pending, sent or failed)", capturesStatus)
		}

		if err := Journal.Load(); err != nil {
			return fmt.Errorf("loading capture journal: %w", err)
		}
		records, err := Journal.ListCaptures(filter)
		if err != nil {
			return fmt.Errorf("listing captures: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No captures found.")
			return nil
		}
		printCaptureTable(cmd.OutOrStdout(), records)
		return nil
	},
}

func printCaptureTable(w io.Writer, records []models.CaptureRecord) {
	fmt.Fprintf(w, "%-8s  %-7s  %-6s  %-8s  %-16s  %6s  %s\n", "ID", "STATUS", "MODE", "SESSION", "PROJECT", "LENGTH", "CAPTURED")
	fmt.Fprintf(w, "%-8s  %-7s  %-6s  %-8s  %-16s  %6s  %s\n", "--------", "-------", "------", "--------", strings.Repeat("-", 16), "------", strings.Repeat("-", 16))
	for _, r := range records {
		fmt.Fprintf(w, "%-8s  %-7s  %-6s  %-8s  %-16s  %6d  %s\n",
			r.ID, r.Status, r.Mode, shortSession(r.SessionID), r.Project, r.Length,
			r.CapturedAt.Local().Format("2006-01-02 15:04"))
	}
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var capturesShowCmd = &cobra.Command{
	Use:   "show <capture-id>",
	Short: "Show a capture's metadata and rendered content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Journal == nil {
			return fmt.Errorf("capture journal not initialized")
		}
		if err := Journal.Load(); err != nil {
			return fmt.Errorf("loading capture journal: %w", err)
		}
		record, err := Journal.GetCapture(args[0])
		if err != nil {
			return err
		}
		content, err := Journal.GetContent(record.ID)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, titleStyle.Render(" "+record.ID+" "))
		fmt.Fprintf(w, "Session:   %s\n", record.SessionID)
		if record.Project != "" {
			fmt.Fprintf(w, "Project:   %s\n", record.Project)
		}
		fmt.Fprintf(w, "Container: %s\n", record.ContainerTag)
		fmt.Fprintf(w, "Mode:      %s", record.Mode)
		if record.Mode == models.CaptureModeSignal {
			fmt.Fprintf(w, " (%d signal turns)", record.SignalCount)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Status:    %s\n", styleForCaptureStatus(record.Status).Render(string(record.Status)))
		if record.MemoryID != "" {
			fmt.Fprintf(w, "Memory:    %s\n", record.MemoryID)
		}
		if record.Error != "" {
			fmt.Fprintf(w, "Error:     %s\n", record.Error)
		}
		fmt.Fprintf(w, "Entries:   %d, %d chars\n", record.EntryCount, record.Length)
		fmt.Fprintf(w, "Captured:  %s\n\n", record.CapturedAt.Local().Format(time.RFC3339))
		fmt.Fprintln(w, content)
		return nil
	},
}

var capturesResendCmd = &cobra.Command{
	Use:   "resend <capture-id>",
	Short: "Send a journaled capture to the memory service again",
	Long: `Send a capture to the memory service again. Captures carry a stable
custom id, so re-sending replaces the stored memory rather than adding a
duplicate.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Journal == nil {
			return fmt.Errorf("capture journal not initialized")
		}
		dir, err := workDir()
		if err != nil {
			return err
		}
		client, _, err := openMemoryClient(dir)
		if errors.Is(err, core.ErrNoAPIKey) {
			return fmt.Errorf("no API key configured: set SUPERMEMORY_CC_API_KEY or run: supermemory config set-key <key>")
		}
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		memoryID, err := resendCapture(ctx, client, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %s (memory %s)\n", args[0], memoryID)
		return nil
	},
}

// resendCapture uploads a journaled capture and records the outcome.
func resendCapture(ctx context.Context, client integration.MemoryClient, id string) (string, error) {
	if err := Journal.Load(); err != nil {
		return "", fmt.Errorf("loading capture journal: %w", err)
	}
	record, err := Journal.GetCapture(id)
	if err != nil {
		return "", err
	}
	content, err := Journal.GetContent(id)
	if err != nil {
		return "", err
	}

	md := map[string]any{
		"type":      "session_turn",
		"sessionId": record.SessionID,
		"project":   record.Project,
		"mode":      string(record.Mode),
		"entries":   record.EntryCount,
		"timestamp": record.CapturedAt.UTC().Format(time.RFC3339),
	}
	res, sendErr := client.AddMemory(ctx, content, record.ContainerTag, md, integration.AddOptions{
		CustomID:      record.CustomID,
		EntityContext: integration.PersonalEntityContext,
	})

	status, memoryID, errMsg := models.CaptureStatusSent, "", ""
	eventType := observability.EventCaptureSaved
	if sendErr != nil {
		status, errMsg = models.CaptureStatusFailed, sendErr.Error()
		eventType = observability.EventCaptureFailed
	} else {
		memoryID = res.ID
	}
	if err := Journal.UpdateStatus(id, status, memoryID, errMsg); err != nil {
		return "", err
	}
	if err := Journal.Save(); err != nil {
		return "", fmt.Errorf("saving capture journal: %w", err)
	}
	if EventLog != nil {
		data := map[string]any{
			"session_id":   record.SessionID,
			"mode":         string(record.Mode),
			"signal_count": record.SignalCount,
			"length":       record.Length,
			"capture_id":   id,
			"resend":       true,
		}
		level := observability.LevelInfo
		if sendErr != nil {
			level = observability.LevelError
			data["error"] = errMsg
		}
		_ = EventLog.Write(observability.Event{Level: level, Type: eventType, Message: "capture resent", Data: data})
	}
	if sendErr != nil {
		return "", fmt.Errorf("sending capture %s: %w", id, sendErr)
	}
	return memoryID, nil
}

func init() {
	capturesListCmd.Flags().StringVar(&capturesSession, "session", "", "Only captures from this session")
	capturesListCmd.Flags().StringVar(&capturesSince, "since", "", "Only captures newer than this (e.g. 7d, 24h)")
	capturesListCmd.Flags().StringVar(&capturesStatus, "status", "", "Only captures with this status (pending, sent, failed)")

	capturesCmd.AddCommand(capturesListCmd)
	capturesCmd.AddCommand(capturesShowCmd)
	capturesCmd.AddCommand(capturesResendCmd)
	rootCmd.AddCommand(capturesCmd)
}

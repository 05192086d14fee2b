package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/mcp"

	"github.com/spf13/cobra"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display capture and memory metrics",
	Long: `Display aggregated metrics derived from the local event log.

Metrics include transcript captures by outcome and mode, prompts and tool
observations saved, context injections, searches and distinct sessions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		w := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(w, string(data))
			return nil
		}

		fmt.Fprintf(w, "Metrics (since %s)\n\n", sinceTime.Format("2006-01-02"))
		fmt.Fprintf(w, "  %-24s %d\n", "Events recorded:", metrics.EventCount)
		fmt.Fprintf(w, "  %-24s %d\n", "Sessions:", metrics.Sessions)
		fmt.Fprintf(w, "  %-24s %d\n", "Captures saved:", metrics.CapturesSaved)
		fmt.Fprintf(w, "  %-24s %d\n", "Captures failed:", metrics.CapturesFailed)
		fmt.Fprintf(w, "  %-24s %d\n", "Captures skipped:", metrics.CapturesSkipped)
		fmt.Fprintf(w, "  %-24s %d\n", "Signal turns:", metrics.SignalTurns)
		fmt.Fprintf(w, "  %-24s %d\n", "Captured chars:", metrics.CapturedChars)
		fmt.Fprintf(w, "  %-24s %d\n", "Prompts saved:", metrics.PromptsSaved)
		fmt.Fprintf(w, "  %-24s %d\n", "Observations saved:", metrics.ObservationsSaved)
		fmt.Fprintf(w, "  %-24s %d\n", "Context injections:", metrics.ContextInjections)
		fmt.Fprintf(w, "  %-24s %d\n", "Searches:", metrics.Searches)

		printCounts(w, "Captures by mode", metrics.CapturesByMode)
		printCounts(w, "Observations by tool", metrics.ObservationsByTool)

		if metrics.OldestEvent != nil {
			fmt.Fprintf(w, "\n  %-24s %s\n", "Oldest event:", metrics.OldestEvent.Format(time.RFC3339))
		}
		if metrics.NewestEvent != nil {
			fmt.Fprintf(w, "  %-24s %s\n", "Newest event:", metrics.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "\n  %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "    %-20s %d\n", k+":", counts[k])
	}
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past. Blank means 7d.
func parseSinceDuration(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "7d"
	}
	return mcp.ParseSince(s, time.Now())
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}

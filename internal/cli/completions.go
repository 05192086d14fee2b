package cli

import (
	"strings"

	"github.com/gracie007-cloud/claude-supermemory/pkg/models"

	"github.com/spf13/cobra"
)

// completeCaptureIDs suggests journaled capture IDs, optionally limited to
// the given statuses.
func completeCaptureIDs(statuses ...models.CaptureStatus) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 || Journal == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		if err := Journal.Load(); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		records, err := Journal.ListCaptures(models.CaptureFilter{})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		allowed := make(map[models.CaptureStatus]bool, len(statuses))
		for _, s := range statuses {
			allowed[s] = true
		}
		var completions []string
		for _, r := range records {
			if len(allowed) > 0 && !allowed[r.Status] {
				continue
			}
			if strings.HasPrefix(r.ID, strings.ToUpper(toComplete)) {
				completions = append(completions, r.ID+"\t"+string(r.Status)+" "+r.Project)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func completeCaptureStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.CaptureStatusPending),
		string(models.CaptureStatusSent),
		string(models.CaptureStatusFailed),
	}, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	capturesShowCmd.ValidArgsFunction = completeCaptureIDs()
	capturesResendCmd.ValidArgsFunction = completeCaptureIDs(models.CaptureStatusFailed, models.CaptureStatusPending)
	_ = capturesListCmd.RegisterFlagCompletionFunc("status", completeCaptureStatuses)
}

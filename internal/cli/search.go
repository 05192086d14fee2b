package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/internal/observability"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"

	"github.com/spf13/cobra"
)

const searchSnippetLen = 500

var (
	searchLimit int
	searchUser  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search memories for the current project",
	Long: `Search the memories stored for the current project.

The project profile is fetched together with results for the query. When
the profile carries no matching memories a plain search is run instead.
Use --user to search the memories kept for you across all projects.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return fmt.Errorf("search query must not be empty")
		}

		dir, err := workDir()
		if err != nil {
			return err
		}
		client, _, err := openMemoryClient(dir)
		if errors.Is(err, core.ErrNoAPIKey) {
			fmt.Fprintln(cmd.OutOrStdout(), "No API key configured. Set SUPERMEMORY_CC_API_KEY or run: supermemory config set-key <key>")
			return nil
		}
		if err != nil {
			return err
		}

		tag := integration.ContainerTag(dir)
		if searchUser {
			tag = integration.UserContainerTag()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		profile, fallback, err := searchMemories(ctx, client, tag, query, searchLimit)
		if err != nil {
			return err
		}
		if EventLog != nil {
			_ = EventLog.Write(searchEvent(query, tag, profile, fallback))
		}
		fmt.Fprint(cmd.OutOrStdout(), renderSearch(query, integration.ProjectName(dir), profile, fallback, time.Now()))
		return nil
	},
}

// searchMemories fetches the profile for query and falls back to a plain
// search when the profile has no matching memories.
func searchMemories(ctx context.Context, client integration.MemoryClient, tag, query string, limit int) (*models.ProfileResult, *models.SearchResults, error) {
	profile, err := client.GetProfile(ctx, tag, query)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching profile: %w", err)
	}
	if profile.SearchResults != nil && len(profile.SearchResults.Results) > 0 {
		return profile, nil, nil
	}
	results, err := client.Search(ctx, query, tag, integration.SearchOptions{Limit: limit})
	if err != nil {
		return profile, nil, fmt.Errorf("searching memories: %w", err)
	}
	return profile, results, nil
}

// renderSearch lays out the profile and the matching memories.
func renderSearch(query, project string, profile *models.ProfileResult, fallback *models.SearchResults, now time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Memory search: %q", query)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Project: " + project))
	b.WriteString("\n\n")

	if profile != nil {
		writeFacts(&b, "User Preferences", profile.Profile.Static)
		writeFacts(&b, "Recent Context", profile.Profile.Dynamic)
	}

	var memories []models.Memory
	switch {
	case profile != nil && profile.SearchResults != nil && len(profile.SearchResults.Results) > 0:
		memories = profile.SearchResults.Results
	case fallback != nil:
		memories = fallback.Results
	}

	if len(memories) == 0 {
		b.WriteString("No memories found matching your query.\n")
		b.WriteString(helpStyle.Render("Memories are saved automatically as you work in this project."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render("Relevant Memories"))
	b.WriteString("\n")
	for i, m := range memories {
		pct := int(math.Round(m.Similarity * 100))
		line := fmt.Sprintf("Memory %d ", i+1) + styleForSimilarity(pct).Render(fmt.Sprintf("(%d%% match)", pct))
		if rel := core.FormatRelativeTime(m.UpdatedAt, now); rel != "" {
			line += " " + helpStyle.Render(rel)
		}
		b.WriteString("\n" + line + "\n")
		if m.Title != "" {
			b.WriteString(m.Title + "\n")
		}
		b.WriteString(truncateRunes(m.Text(), searchSnippetLen) + "\n")
	}
	return b.String()
}

func writeFacts(b *strings.Builder, title string, facts []string) {
	if len(facts) == 0 {
		return
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	for _, f := range facts {
		b.WriteString("- " + f + "\n")
	}
	b.WriteString("\n")
}

func searchEvent(query, tag string, profile *models.ProfileResult, fallback *models.SearchResults) observability.Event {
	count := 0
	if profile != nil && profile.SearchResults != nil {
		count = len(profile.SearchResults.Results)
	}
	if fallback != nil {
		count = len(fallback.Results)
	}
	return observability.Event{
		Type:    observability.EventSearchPerformed,
		Message: "memory search",
		Data: map[string]any{
			"query":         query,
			"container_tag": tag,
			"results":       count,
			"source":        "cli",
		},
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of memories for the fallback search")
	searchCmd.Flags().BoolVar(&searchUser, "user", false, "Search your personal memories instead of the project's")
	rootCmd.AddCommand(searchCmd)
}

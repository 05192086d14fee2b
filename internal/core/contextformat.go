package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

const (
	contextIntro      = "The following is recalled context. Reference it only when relevant to the conversation."
	contextDisclaimer = "Use these memories naturally when relevant, including indirect connections, but don't force them into every response or make assumptions beyond what's stated."

	contextOpenTag  = "<supermemory-context>"
	contextCloseTag = "</supermemory-context>"
)

// NoMemoriesContext is injected when a project has no stored memories yet.
const NoMemoriesContext = contextOpenTag + "\nNo previous memories found for this project.\nMemories will be saved as you work.\n" + contextCloseTag

// LabeledContext is one block passed to CombineContexts.
type LabeledContext struct {
	Label   string
	Content string
}

// FormatContext renders a profile (and optionally its search results) as
// session context. Each category is limited to maxResults items. It returns
// "" when there is nothing to show.
func FormatContext(result *models.ProfileResult, includeProfile, includeSearch bool, maxResults int, wrap bool, now time.Time) string {
	if result == nil {
		return ""
	}

	var statics, dynamics []string
	var search []models.Memory
	if includeProfile {
		statics = limit(result.Profile.Static, maxResults)
		dynamics = limit(result.Profile.Dynamic, maxResults)
	}
	if includeSearch && result.SearchResults != nil {
		search = limit(result.SearchResults.Results, maxResults)
	}
	if len(statics) == 0 && len(dynamics) == 0 && len(search) == 0 {
		return ""
	}

	var sections []string
	if len(statics) > 0 {
		sections = append(sections, "## User Profile (Persistent)\n"+bulletList(statics))
	}
	if len(dynamics) > 0 {
		sections = append(sections, "## Recent Context\n"+bulletList(dynamics))
	}
	if len(search) > 0 {
		lines := make([]string, len(search))
		for i, m := range search {
			lines[i] = "- " + memoryLine(m, now)
		}
		sections = append(sections, "## Relevant Memories (with relevance %)\n"+strings.Join(lines, "\n"))
	}

	content := strings.Join(sections, "\n\n")
	if !wrap {
		return content
	}
	return wrapContext(content)
}

// CombineContexts joins several labeled blocks into one wrapped context,
// skipping empty blocks. It returns "" when all are empty.
func CombineContexts(contexts []LabeledContext) string {
	var sections []string
	for _, c := range contexts {
		if c.Content == "" {
			continue
		}
		if c.Label != "" {
			sections = append(sections, c.Label+"\n\n"+c.Content)
		} else {
			sections = append(sections, c.Content)
		}
	}
	if len(sections) == 0 {
		return ""
	}
	return wrapContext(strings.Join(sections, "\n\n---\n\n"))
}

// FormatSearchResults renders search hits for display.
func FormatSearchResults(query string, results []models.Memory, label string, now time.Time) string {
	if len(results) == 0 {
		if label != "" {
			return fmt.Sprintf("No %s memories found for %q", strings.ToLower(label), query)
		}
		return fmt.Sprintf("No memories found for %q", query)
	}

	header := fmt.Sprintf("Memories for %q", query)
	if label != "" {
		header = fmt.Sprintf("%s memories for %q", label, query)
	}
	lines := make([]string, len(results))
	for i, m := range results {
		lines[i] = memoryLine(m, now)
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// FormatRelativeTime describes how long ago ts happened. Unparseable
// timestamps yield "".
func FormatRelativeTime(ts string, now time.Time) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ""
	}
	elapsed := now.Sub(t)
	minutes := elapsed.Minutes()
	hours := elapsed.Hours()
	days := hours / 24

	switch {
	case minutes < 30:
		return "just now"
	case minutes < 60:
		return fmt.Sprintf("%dmins ago", int(minutes))
	case hours < 24:
		return fmt.Sprintf("%dhrs ago", int(hours))
	case days < 7:
		return fmt.Sprintf("%dd ago", int(days))
	}

	t = t.In(now.Location())
	if t.Year() == now.Year() {
		return t.Format("2 Jan")
	}
	return t.Format("2 Jan, 2006")
}

func memoryLine(m models.Memory, now time.Time) string {
	var b strings.Builder
	if m.UpdatedAt != "" {
		if rel := FormatRelativeTime(m.UpdatedAt, now); rel != "" {
			b.WriteString("[" + rel + "] ")
		}
	}
	b.WriteString(m.Text())
	b.WriteString(fmt.Sprintf(" [%d%%]", int(math.Round(m.Similarity*100))))
	return strings.TrimSpace(b.String())
}

func wrapContext(content string) string {
	return contextOpenTag + "\n" + contextIntro + "\n\n" + content + "\n\n" + contextDisclaimer + "\n" + contextCloseTag
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func limit[T any](items []T, n int) []T {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}

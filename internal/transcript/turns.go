package transcript

import "strings"

// Turn is a user request and the assistant activity that answers it.
// Entries holds the turn's entries in the order they will be rendered.
type Turn struct {
	User      []Entry
	Assistant []Entry
	Entries   []Entry
}

// UserText joins the text of the turn's user entries with single spaces.
func (t Turn) UserText() string {
	var parts []string
	for _, e := range t.User {
		if text := e.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// GroupPolicy controls which entries Group considers and how assistant
// entries accumulate within a turn.
type GroupPolicy struct {
	// Include filters entries before grouping. Nil accepts every user and
	// assistant entry.
	Include func(Entry) bool
	// LatestAssistantOnly keeps only the most recent assistant entry of a
	// turn instead of all of them.
	LatestAssistantOnly bool
}

// FullPolicy keeps every user and assistant entry.
var FullPolicy = GroupPolicy{
	Include: Entry.IsConversational,
}

// SignalPolicy keeps entries with visible text and collapses each turn's
// assistant activity to its final reply.
var SignalPolicy = GroupPolicy{
	Include: func(e Entry) bool {
		return e.IsConversational() && e.HasText()
	},
	LatestAssistantOnly: true,
}

// Group partitions entries into turns. A new turn starts when a user entry
// follows at least one assistant entry of the current turn.
func Group(entries []Entry, policy GroupPolicy) []Turn {
	var (
		turns []Turn
		cur   Turn
	)

	flush := func() {
		if policy.LatestAssistantOnly {
			cur.Entries = append(cur.Entries, cur.Assistant...)
		}
		if len(cur.Entries) > 0 {
			turns = append(turns, cur)
		}
		cur = Turn{}
	}

	for _, e := range entries {
		if !e.IsConversational() {
			continue
		}
		if policy.Include != nil && !policy.Include(e) {
			continue
		}

		switch e.Type {
		case EntryUser:
			if len(cur.Assistant) > 0 {
				flush()
			}
			cur.User = append(cur.User, e)
			cur.Entries = append(cur.Entries, e)
		case EntryAssistant:
			if policy.LatestAssistantOnly {
				cur.Assistant = []Entry{e}
				continue
			}
			cur.Assistant = append(cur.Assistant, e)
			cur.Entries = append(cur.Entries, e)
		}
	}
	flush()

	return turns
}

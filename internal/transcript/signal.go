package transcript

import (
	"sort"
	"strings"
)

// DefaultTurnsBefore is the window size used when none is configured.
const DefaultTurnsBefore = 3

// DefaultSignalKeywords mark a user turn as worth remembering.
var DefaultSignalKeywords = []string{
	"remember",
	"implementation",
	"refactor",
	"architecture",
	"decision",
	"important",
	"bug",
	"fix",
	"solved",
	"solution",
	"pattern",
	"approach",
	"design",
	"tradeoff",
	"migrate",
	"upgrade",
	"deprecate",
}

// FindSignals returns, in ascending order, the indices of turns whose
// lower-cased user text contains any keyword as a substring. Matching is
// plain substring containment, so "fix" also matches "suffix".
func FindSignals(turns []Turn, keywords []string) []int {
	needles := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			needles = append(needles, k)
		}
	}
	if len(needles) == 0 {
		return nil
	}

	var signals []int
	for i, turn := range turns {
		text := strings.ToLower(turn.UserText())
		if text == "" {
			continue
		}
		for _, k := range needles {
			if strings.Contains(text, k) {
				signals = append(signals, i)
				break
			}
		}
	}
	return signals
}

// WindowIndices returns the sorted union of [max(0, s-turnsBefore+1), s] for
// every signal s in [0, n). A turnsBefore below 1 is treated as 1.
func WindowIndices(signals []int, turnsBefore, n int) []int {
	if turnsBefore < 1 {
		turnsBefore = 1
	}
	set := make(map[int]struct{})
	for _, s := range signals {
		if s < 0 || s >= n {
			continue
		}
		for i := max(0, s-turnsBefore+1); i <= s; i++ {
			set[i] = struct{}{}
		}
	}

	indices := make([]int, 0, len(set))
	for i := range set {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// SelectWindow materializes the turns covered by WindowIndices in ascending
// order. No signals yields no turns.
func SelectWindow(turns []Turn, signals []int, turnsBefore int) []Turn {
	indices := WindowIndices(signals, turnsBefore, len(turns))
	if len(indices) == 0 {
		return nil
	}
	out := make([]Turn, 0, len(indices))
	for _, i := range indices {
		out = append(out, turns[i])
	}
	return out
}

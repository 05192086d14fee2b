package core

import "strings"

// SeenSet tracks normalized keys across several dedup passes, so that an item
// kept in one category suppresses the same item in later categories.
type SeenSet struct {
	seen map[string]struct{}
}

// NewSeenSet returns an empty SeenSet.
func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

// Add records key and reports whether it was new. Keys are compared after
// trimming and lower-casing; an empty key is never new.
func (s *SeenSet) Add(key string) bool {
	k := normalizeKey(key)
	if k == "" {
		return false
	}
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// FilterStrings keeps the strings not yet seen, in order.
func (s *SeenSet) FilterStrings(items []string) []string {
	return FilterUnseen(s, items, func(item string) string { return item })
}

// FilterUnseen keeps, in order, the items whose key has not been seen by s
// and records their keys.
func FilterUnseen[T any](s *SeenSet, items []T, key func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if s.Add(key(item)) {
			out = append(out, item)
		}
	}
	return out
}

// Dedupe removes items with duplicate or empty keys, keeping the first
// occurrence.
func Dedupe[T any](items []T, key func(T) string) []T {
	return FilterUnseen(NewSeenSet(), items, key)
}

// DedupeStrings is Dedupe keyed by the strings themselves.
func DedupeStrings(items []string) []string {
	return NewSeenSet().FilterStrings(items)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

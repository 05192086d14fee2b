package core

import (
	"reflect"
	"testing"
)

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"Fix bug", "fix BUG ", "Other"})
	want := []string{"Fix bug", "Other"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeStrings = %v, want %v", got, want)
	}
}

func TestDedupe_DropsEmptyKeys(t *testing.T) {
	got := DedupeStrings([]string{"", "  ", "a", "A", "\tb"})
	want := []string{"a", "\tb"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeStrings = %v, want %v", got, want)
	}
}

func TestDedupe_CustomKey(t *testing.T) {
	type item struct {
		id   int
		text string
	}
	items := []item{{1, "alpha"}, {2, "ALPHA"}, {3, "beta"}, {4, ""}}
	got := Dedupe(items, func(i item) string { return i.text })
	if len(got) != 2 || got[0].id != 1 || got[1].id != 3 {
		t.Errorf("Dedupe = %+v, want ids 1 and 3", got)
	}
}

func TestSeenSet_SharedAcrossCategories(t *testing.T) {
	seen := NewSeenSet()
	static := seen.FilterStrings([]string{"Prefers Go", "Uses vim"})
	dynamic := seen.FilterStrings([]string{"uses VIM", "Working on parser"})
	search := seen.FilterStrings([]string{"prefers go", "working on parser", "New fact"})

	if !reflect.DeepEqual(static, []string{"Prefers Go", "Uses vim"}) {
		t.Errorf("static = %v", static)
	}
	if !reflect.DeepEqual(dynamic, []string{"Working on parser"}) {
		t.Errorf("dynamic = %v", dynamic)
	}
	if !reflect.DeepEqual(search, []string{"New fact"}) {
		t.Errorf("search = %v", search)
	}
}

func TestSeenSet_Add(t *testing.T) {
	seen := NewSeenSet()
	if !seen.Add("x") {
		t.Error("first Add returned false")
	}
	if seen.Add(" X ") {
		t.Error("normalized duplicate Add returned true")
	}
	if seen.Add("") {
		t.Error("empty key Add returned true")
	}
}

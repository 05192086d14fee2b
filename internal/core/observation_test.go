package core

import (
	"reflect"
	"strings"
	"testing"

	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

func TestCompressObservation(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		input    map[string]any
		response any
		want     string
	}{
		{"edit", "Edit", map[string]any{"file_path": "/repo/main.go"}, nil, "Edited /repo/main.go"},
		{"multi edit", "MultiEdit", map[string]any{"file_path": "a.go"}, nil, "Edited a.go"},
		{"write", "Write", map[string]any{"file_path": "new.go", "content": "x"}, nil, "Created new.go"},
		{"edit without path", "Edit", map[string]any{"old_string": "a"}, nil, ""},
		{"bash", "Bash", map[string]any{"command": "go test ./...", "description": "run tests"}, nil, "Ran: go test ./... (run tests)"},
		{"bash failed", "Bash", map[string]any{"command": "make"}, map[string]any{"interrupted": true}, "Ran: make [failed]"},
		{"task", "Task", map[string]any{"description": "audit deps", "subagent_type": "explorer"}, nil, "Delegated task: audit deps [explorer]"},
		{"other tool", "WebFetch", map[string]any{"url": "https://go.dev", "retries": 2}, nil, `WebFetch: retries="2" url="https://go.dev"`},
		{"empty input", "WebFetch", map[string]any{}, nil, ""},
		{"no tool", "", map[string]any{"a": "b"}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompressObservation(tt.tool, tt.input, tt.response); got != tt.want {
				t.Errorf("CompressObservation = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompressObservation_TruncatesLongCommands(t *testing.T) {
	got := CompressObservation("Bash", map[string]any{"command": strings.Repeat("x", 300)}, nil)
	if want := "Ran: " + strings.Repeat("x", 200) + "..."; got != want {
		t.Errorf("got %d chars, want %d", len(got), len(want))
	}
}

func TestObservationMetadata(t *testing.T) {
	got := ObservationMetadata("Edit", map[string]any{"file_path": "x.go"})
	want := map[string]any{"tool_name": "Edit", "file_path": "x.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ObservationMetadata = %v, want %v", got, want)
	}
	if _, ok := ObservationMetadata("Bash", map[string]any{"command": "ls"})["file_path"]; ok {
		t.Error("file_path set for a tool without one")
	}
}

func TestShouldCaptureTool(t *testing.T) {
	settings := DefaultSettings()

	tests := []struct {
		tool string
		want bool
	}{
		{"Edit", true},
		{"bash", true},
		{"Read", false},
		{"Grep", false},
		{"WebFetch", false},
	}
	for _, tt := range tests {
		if got := ShouldCaptureTool(tt.tool, settings); got != tt.want {
			t.Errorf("ShouldCaptureTool(%q) = %v, want %v", tt.tool, got, tt.want)
		}
	}

	open := &models.Settings{SkipTools: []string{"mcp__*"}}
	if !ShouldCaptureTool("WebFetch", open) {
		t.Error("empty capture list should admit every tool not skipped")
	}
	if ShouldCaptureTool("mcp__github__search", open) {
		t.Error("glob skip pattern not applied")
	}
	if !ShouldCaptureTool("Anything", nil) {
		t.Error("nil settings should capture")
	}
}

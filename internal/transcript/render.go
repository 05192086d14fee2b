package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gobwas/glob"
)

const (
	// MinRenderLength is the shortest rendering worth storing.
	MinRenderLength = 100
	// MaxToolInputValueLength bounds each rendered tool input value.
	MaxToolInputValueLength = 100
	// MaxToolResultLength bounds each rendered tool result.
	MaxToolResultLength = 500
	// UnknownToolName labels results whose tool_use could not be resolved.
	UnknownToolName = "Unknown"
)

const (
	turnStart = "<|turn_start|>"
	turnEnd   = "<|turn_end|>"
)

// ToolFilter decides which tools have their activity rendered. Patterns are
// case-insensitive globs, so "mcp__*" admits every MCP tool.
type ToolFilter struct {
	patterns []glob.Glob
	literals []string
}

// NewToolFilter compiles an include-list. An empty list admits nothing.
// A pattern that is not a valid glob is kept as a literal tool name and
// reported in the returned error; the filter is usable either way.
func NewToolFilter(names []string) (*ToolFilter, error) {
	f := &ToolFilter{}
	var errs []error
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		g, err := glob.Compile(name)
		if err != nil {
			f.literals = append(f.literals, name)
			errs = append(errs, fmt.Errorf("compiling tool pattern %q: %w", name, err))
			continue
		}
		f.patterns = append(f.patterns, g)
	}
	return f, errors.Join(errs...)
}

// Allows reports whether the named tool is on the include-list.
func (f *ToolFilter) Allows(name string) bool {
	if f == nil {
		return false
	}
	name = strings.ToLower(name)
	for _, g := range f.patterns {
		if g.Match(name) {
			return true
		}
	}
	return slices.Contains(f.literals, name)
}

// Renderer produces the tagged text format stored as a memory.
type Renderer struct {
	// Tools gates tool_use and tool_result output. Nil renders no tools.
	Tools *ToolFilter
	// Now supplies the frame timestamp when the first entry has none.
	Now func() time.Time
}

// RenderEntries renders user text and tool results, and assistant text and
// tool calls. Blocks of one entry are separated by a newline, entries by a
// blank line. It returns false when the result is shorter than
// MinRenderLength.
func (r *Renderer) RenderEntries(entries []Entry) (string, bool) {
	if len(entries) == 0 {
		return "", false
	}

	// Names are resolved per call so ids never leak between renders.
	toolNames := make(map[string]string)
	parts := []string{turnStart + r.timestamp(entries[0])}

	for _, e := range entries {
		var lines []string
		switch e.Type {
		case EntryUser:
			lines = r.userLines(e.Message, toolNames)
		case EntryAssistant:
			lines = r.assistantLines(e.Message, toolNames)
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}

	return finish(parts)
}

func (r *Renderer) userLines(m *Message, toolNames map[string]string) []string {
	if m == nil {
		return nil
	}
	if m.IsString {
		if text := Clean(m.Text); text != "" {
			return []string{formatText("user", text)}
		}
		return nil
	}
	var lines []string
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockText:
			if text := Clean(b.Text); text != "" {
				lines = append(lines, formatText("user", text))
			}
		case BlockToolResult:
			name, ok := toolNames[b.ToolUseID]
			if !ok || name == "" {
				name = UnknownToolName
			}
			if !r.Tools.Allows(name) {
				continue
			}
			if line, ok := formatToolResult(name, b); ok {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// assistantLines ignores string content; real assistant messages are
// always block lists.
func (r *Renderer) assistantLines(m *Message, toolNames map[string]string) []string {
	if m == nil || m.IsString {
		return nil
	}
	var lines []string
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockText:
			if text := Clean(b.Text); text != "" {
				lines = append(lines, formatText("assistant", text))
			}
		case BlockToolUse:
			if b.ID != "" {
				toolNames[b.ID] = b.Name
			}
			if r.Tools.Allows(b.Name) {
				lines = append(lines, formatToolUse(b))
			}
		}
	}
	return lines
}

// RenderTurns renders only the text of each turn's entries, in order. Tool
// activity is never included.
func (r *Renderer) RenderTurns(turns []Turn) (string, bool) {
	if len(turns) == 0 || len(turns[0].Entries) == 0 {
		return "", false
	}

	parts := []string{turnStart + r.timestamp(turns[0].Entries[0])}
	for _, turn := range turns {
		for _, e := range turn.Entries {
			if lines := textLines(e); len(lines) > 0 {
				parts = append(parts, strings.Join(lines, "\n"))
			}
		}
	}

	return finish(parts)
}

// textLines renders each text block of e, accepting string content for
// both roles.
func textLines(e Entry) []string {
	if e.Message == nil {
		return nil
	}
	role := roleOf(e)
	if e.Message.IsString {
		if text := Clean(e.Message.Text); text != "" {
			return []string{formatText(role, text)}
		}
		return nil
	}
	var lines []string
	for _, b := range e.Message.Blocks {
		if b.Type != BlockText {
			continue
		}
		if text := Clean(b.Text); text != "" {
			lines = append(lines, formatText(role, text))
		}
	}
	return lines
}

func (r *Renderer) timestamp(e Entry) string {
	if e.Timestamp != "" {
		return e.Timestamp
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func finish(parts []string) (string, bool) {
	parts = append(parts, turnEnd)
	out := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(out) < MinRenderLength {
		return "", false
	}
	return out, true
}

func roleOf(e Entry) string {
	if e.Type == EntryAssistant {
		return "assistant"
	}
	return "user"
}

func formatText(role, text string) string {
	return "<|start|>" + role + "<|message|>" + text + "<|end|>"
}

func formatToolUse(b ContentBlock) string {
	keys := make([]string, 0, len(b.Input))
	for k := range b.Input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, fmt.Sprintf(`%s="%s"`, k, Truncate(inputValue(b.Input[k]), MaxToolInputValueLength)))
	}

	body := b.Name + ":"
	if len(args) > 0 {
		body += " " + strings.Join(args, " ")
	}
	return "<|start|>assistant:tool<|message|>" + body + "<|end|>"
}

func formatToolResult(name string, b ContentBlock) (string, bool) {
	content := Clean(b.Content)
	if content == "" {
		return "", false
	}
	status := "success"
	if b.IsError {
		status = "error"
	}
	return fmt.Sprintf("<|start|>assistant:tool_result<|message|>%s(%s): %s<|end|>",
		name, status, Truncate(content, MaxToolResultLength)), true
}

func inputValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

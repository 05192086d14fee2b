package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// SessionStartInput is the stdin JSON for SessionStart hooks.
type SessionStartInput struct {
	SessionID string `json:"session_id"`
	CWD       string `json:"cwd"`
	Source    string `json:"source"`
}

// UserPromptSubmitInput is the stdin JSON for UserPromptSubmit hooks.
type UserPromptSubmitInput struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	CWD       string `json:"cwd"`
}

// PostToolUseInput is the stdin JSON for PostToolUse hooks.
type PostToolUseInput struct {
	SessionID    string         `json:"session_id"`
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolResponse any            `json:"tool_response"`
	CWD          string         `json:"cwd"`
}

// FilePath returns the file_path from tool_input, or empty string if absent or non-string.
func (p PostToolUseInput) FilePath() string {
	return toolInputFilePath(p.ToolInput)
}

// StopInput is the stdin JSON for Stop hooks.
type StopInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	StopHookActive bool   `json:"stop_hook_active"`
}

// Output is the JSON a hook prints on stdout. A hook never blocks the
// session, so Continue is always set unless hook-specific output is sent.
type Output struct {
	Continue           bool                `json:"continue,omitempty"`
	SuppressOutput     bool                `json:"suppressOutput,omitempty"`
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries context injected into the session.
type HookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// ContinueOutput lets the session proceed without showing anything.
func ContinueOutput() Output {
	return Output{Continue: true, SuppressOutput: true}
}

// ContextOutput injects additionalContext at session start.
func ContextOutput(additionalContext string) Output {
	return Output{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:     "SessionStart",
		AdditionalContext: additionalContext,
	}}
}

// WriteOutput encodes out as a single JSON line.
func WriteOutput(w io.Writer, out Output) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding hook output: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("writing hook output: %w", err)
	}
	return nil
}

// ParseStdin reads JSON from the given reader into a new instance of T.
func ParseStdin[T any](r io.Reader) (*T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		// Return zero-value struct when no input is provided.
		var zero T
		return &zero, nil
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing stdin JSON: %w", err)
	}
	return &result, nil
}

// toolInputFilePath extracts the file_path string from a tool_input map.
// Returns empty string if the map is nil or file_path is not a string.
func toolInputFilePath(toolInput map[string]any) string {
	if toolInput == nil {
		return ""
	}
	fp, ok := toolInput["file_path"].(string)
	if !ok {
		return ""
	}
	return fp
}

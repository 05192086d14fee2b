package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gracie007-cloud/claude-supermemory/internal/transcript"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

const (
	maxObservationValue   = 100
	maxObservationCommand = 200
	maxObservationTask    = 200
)

// CompressObservation summarizes one tool invocation as a short sentence
// suitable for storage. It returns "" when there is nothing to record.
func CompressObservation(toolName string, input map[string]any, response any) string {
	if toolName == "" || len(input) == 0 {
		return ""
	}

	filePath := stringField(input, "file_path")

	switch toolName {
	case "Edit", "MultiEdit":
		if filePath == "" {
			return ""
		}
		return "Edited " + filePath
	case "Write":
		if filePath == "" {
			return ""
		}
		return "Created " + filePath
	case "NotebookEdit":
		if nb := stringField(input, "notebook_path"); nb != "" {
			return "Edited notebook " + nb
		}
		return ""
	case "Bash":
		command := stringField(input, "command")
		if command == "" {
			return ""
		}
		out := "Ran: " + transcript.Truncate(command, maxObservationCommand)
		if desc := stringField(input, "description"); desc != "" {
			out += " (" + desc + ")"
		}
		if responseFailed(response) {
			out += " [failed]"
		}
		return out
	case "Task":
		desc := stringField(input, "description")
		if desc == "" {
			desc = stringField(input, "prompt")
		}
		if desc == "" {
			return ""
		}
		out := "Delegated task: " + transcript.Truncate(desc, maxObservationTask)
		if agent := stringField(input, "subagent_type"); agent != "" {
			out += " [" + agent + "]"
		}
		return out
	}

	return toolName + ": " + compactInput(input)
}

// ObservationMetadata returns metadata describing the tool invocation.
func ObservationMetadata(toolName string, input map[string]any) map[string]any {
	md := map[string]any{"tool_name": toolName}
	if fp := stringField(input, "file_path"); fp != "" {
		md["file_path"] = fp
	} else if nb := stringField(input, "notebook_path"); nb != "" {
		md["file_path"] = nb
	}
	return md
}

// ShouldCaptureTool applies the skip list, then the capture list when one is
// configured. Both lists accept glob patterns and match case-insensitively.
func ShouldCaptureTool(toolName string, settings *models.Settings) bool {
	if settings == nil {
		return true
	}
	// Invalid patterns still match as literal names; config validate reports them.
	skip, _ := transcript.NewToolFilter(settings.SkipTools)
	if skip.Allows(toolName) {
		return false
	}
	if len(settings.CaptureTools) == 0 {
		return true
	}
	capture, _ := transcript.NewToolFilter(settings.CaptureTools)
	return capture.Allows(toolName)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func compactInput(input map[string]any) string {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var s string
		switch v := input[k].(type) {
		case string:
			s = v
		default:
			data, err := json.Marshal(v)
			if err != nil {
				s = fmt.Sprint(v)
			} else {
				s = string(data)
			}
		}
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, transcript.Truncate(s, maxObservationValue)))
	}
	return strings.Join(parts, " ")
}

// responseFailed recognizes the common failure shapes of tool responses.
func responseFailed(response any) bool {
	m, ok := response.(map[string]any)
	if !ok {
		return false
	}
	if isErr, ok := m["is_error"].(bool); ok && isErr {
		return true
	}
	if interrupted, ok := m["interrupted"].(bool); ok && interrupted {
		return true
	}
	if success, ok := m["success"].(bool); ok && !success {
		return true
	}
	return false
}

// Package transcript turns Claude Code JSONL session transcripts into bounded,
// tagged text units. It parses raw log lines into entries, groups entries into
// user/assistant turns, detects keyword signal turns, selects context windows
// around them, and renders the result for storage as a memory.
package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
)

// EntryType classifies a transcript line. Anything other than a user or
// assistant message is folded into EntryOther.
type EntryType string

const (
	EntryUser      EntryType = "user"
	EntryAssistant EntryType = "assistant"
	EntryOther     EntryType = "other"
)

// UnmarshalJSON maps unknown type discriminators (summary,
// file-history-snapshot, system, ...) to EntryOther.
func (t *EntryType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch EntryType(s) {
	case EntryUser, EntryAssistant:
		*t = EntryType(s)
	default:
		*t = EntryOther
	}
	return nil
}

// BlockType identifies a content block variant.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
	BlockThinking   BlockType = "thinking"
)

// ContentBlock is one element of a message's content array. Only the fields
// relevant to the block's Type are populated.
type ContentBlock struct {
	Type BlockType

	// text and thinking
	Text string

	// tool_use
	ID    string
	Name  string
	Input map[string]any

	// tool_result
	ToolUseID string
	Content   string
	IsError   bool
}

type rawContentBlock struct {
	Type      BlockType       `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// UnmarshalJSON decodes a block. tool_result content may be a plain string or
// a nested block array; nested text is joined with newlines.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw rawContentBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = ContentBlock{
		Type:      raw.Type,
		Text:      raw.Text,
		ID:        raw.ID,
		Name:      raw.Name,
		Input:     raw.Input,
		ToolUseID: raw.ToolUseID,
		IsError:   raw.IsError,
	}
	if raw.Type == BlockThinking && b.Text == "" {
		b.Text = raw.Thinking
	}
	if raw.Type == BlockToolResult {
		b.Content = flattenResultContent(raw.Content)
	}
	return nil
}

// flattenResultContent reduces tool_result content to plain text.
func flattenResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var nested []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return ""
	}
	var parts []string
	for _, n := range nested {
		if n.Type == "text" && n.Text != "" {
			parts = append(parts, n.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Message is the role-specific payload of an entry. Content is either a plain
// string (IsString, stored in Text) or an ordered list of blocks.
type Message struct {
	Role     string
	Text     string
	IsString bool
	Blocks   []ContentBlock
}

// UnmarshalJSON accepts a message object whose content is a string or a block
// array. Individual blocks that fail to decode are dropped rather than
// failing the whole line.
func (m *Message) UnmarshalJSON(data []byte) error {
	*m = Message{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Some producers write the message as a bare string.
		var s string
		if serr := json.Unmarshal(data, &s); serr == nil {
			m.Text = s
			m.IsString = true
			return nil
		}
		return err
	}
	m.Role = raw.Role

	if len(raw.Content) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Content, &s); err == nil {
		m.Text = s
		m.IsString = true
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw.Content, &items); err != nil {
		return nil
	}
	for _, item := range items {
		var b ContentBlock
		if err := json.Unmarshal(item, &b); err != nil {
			continue
		}
		m.Blocks = append(m.Blocks, b)
	}
	return nil
}

// Entry is one parsed transcript line.
type Entry struct {
	Type      EntryType `json:"type"`
	UUID      string    `json:"uuid,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	IsMeta    bool      `json:"isMeta,omitempty"`
	Message   *Message  `json:"message,omitempty"`
}

// IsConversational reports whether the entry is a user or assistant message.
func (e Entry) IsConversational() bool {
	return e.Type == EntryUser || e.Type == EntryAssistant
}

// Text returns the cleaned text content of the entry with text blocks joined
// by a single space. Tool and thinking blocks contribute nothing.
func (e Entry) Text() string {
	if e.Message == nil {
		return ""
	}
	if e.Message.IsString {
		return Clean(e.Message.Text)
	}
	var parts []string
	for _, b := range e.Message.Blocks {
		if b.Type != BlockText || b.Text == "" {
			continue
		}
		if cleaned := Clean(b.Text); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	return strings.Join(parts, " ")
}

// HasText reports whether the entry carries renderable text. Meta entries
// injected by the client never count.
func (e Entry) HasText() bool {
	if e.IsMeta {
		return false
	}
	return e.Text() != ""
}

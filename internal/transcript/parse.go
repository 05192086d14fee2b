package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Parse reads JSONL from r and returns one Entry per well-formed line.
// Blank and malformed lines are skipped. Lines are read without a size cap
// because tool results can be several megabytes. A read error stops parsing
// and the entries decoded so far are returned.
func Parse(r io.Reader) []Entry {
	var entries []Entry
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if entry, ok := parseLine(line); ok {
			entries = append(entries, entry)
		}
		if err != nil {
			break
		}
	}
	return entries
}

// ParseString is Parse over an in-memory transcript.
func ParseString(s string) []Entry {
	return Parse(strings.NewReader(s))
}

// ParseFile parses the transcript at path. A missing file yields no entries
// and no error.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening transcript %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f), nil
}

func parseLine(line []byte) (Entry, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(line, &entry); err != nil {
		return Entry{}, false
	}
	if entry.Type == "" {
		entry.Type = EntryOther
	}
	return entry, true
}

// SinceWatermark returns the user and assistant entries that follow the entry
// whose UUID equals watermark. When watermark is empty or does not occur in
// entries, every user and assistant entry is returned.
func SinceWatermark(entries []Entry, watermark string) []Entry {
	start := 0
	if watermark != "" {
		for i, e := range entries {
			if e.UUID == watermark {
				start = i + 1
				break
			}
		}
	}

	var out []Entry
	for _, e := range entries[start:] {
		if !e.IsConversational() {
			continue
		}
		if watermark != "" && e.UUID == watermark {
			continue
		}
		out = append(out, e)
	}
	return out
}

package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	systemReminderPattern  = regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`)
	injectedContextPattern = regexp.MustCompile(`(?s)<supermemory-context>.*?</supermemory-context>`)
)

// Clean removes client-injected reminder blocks and previously injected
// memory context from text, then trims surrounding whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = systemReminderPattern.ReplaceAllString(text, "")
	text = injectedContextPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Truncate shortens text to max characters and appends "..." when it was cut.
func Truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}

package observability

import (
	"fmt"
	"time"
)

// Metrics holds capture metrics derived from the event log.
type Metrics struct {
	CapturesSaved      int            `json:"captures_saved"`
	CapturesSkipped    int            `json:"captures_skipped"`
	CapturesFailed     int            `json:"captures_failed"`
	CapturesByMode     map[string]int `json:"captures_by_mode"`
	SignalTurns        int            `json:"signal_turns"`
	CapturedChars      int            `json:"captured_chars"`
	PromptsSaved       int            `json:"prompts_saved"`
	ObservationsSaved  int            `json:"observations_saved"`
	ObservationsByTool map[string]int `json:"observations_by_tool"`
	ContextInjections  int            `json:"context_injections"`
	Searches           int            `json:"searches"`
	Sessions           int            `json:"sessions"`
	EventCount         int            `json:"event_count"`
	OldestEvent        *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent        *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		CapturesByMode:     make(map[string]int),
		ObservationsByTool: make(map[string]int),
	}
	m.EventCount = len(events)
	sessions := make(map[string]struct{})

	for _, event := range events {
		t := event.Time
		if m.OldestEvent == nil || t.Before(*m.OldestEvent) {
			m.OldestEvent = &t
		}
		if m.NewestEvent == nil || t.After(*m.NewestEvent) {
			m.NewestEvent = &t
		}
		if sid, ok := event.Data["session_id"].(string); ok && sid != "" {
			sessions[sid] = struct{}{}
		}

		switch event.Type {
		case EventCaptureSaved:
			m.CapturesSaved++
			if mode, ok := event.Data["mode"].(string); ok {
				m.CapturesByMode[mode]++
			}
			m.SignalTurns += intField(event.Data, "signal_count")
			m.CapturedChars += intField(event.Data, "length")
		case EventCaptureSkipped:
			m.CapturesSkipped++
		case EventCaptureFailed:
			m.CapturesFailed++
		case EventPromptSaved:
			m.PromptsSaved++
		case EventObservationSaved:
			m.ObservationsSaved++
			if tool, ok := event.Data["tool_name"].(string); ok {
				m.ObservationsByTool[tool]++
			}
		case EventContextInjected:
			m.ContextInjections++
		case EventSearchPerformed:
			m.Searches++
		}
	}
	m.Sessions = len(sessions)

	return m, nil
}

// intField reads a numeric field that may have gone through a JSON round trip.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

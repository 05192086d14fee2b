package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Event types logged by the hook engine. They match the constants in the
// observability package.
const (
	eventCaptureSaved     = "capture.saved"
	eventCaptureSkipped   = "capture.skipped"
	eventCaptureFailed    = "capture.failed"
	eventPromptSaved      = "prompt.saved"
	eventObservationSaved = "observation.saved"
	eventContextInjected  = "context.injected"
)

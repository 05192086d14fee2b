package models

import "time"

// CaptureStatus tracks whether a captured window reached the memory service.
type CaptureStatus string

const (
	CaptureStatusPending CaptureStatus = "pending"
	CaptureStatusSent    CaptureStatus = "sent"
	CaptureStatusFailed  CaptureStatus = "failed"
)

// CaptureMode records which extraction policy produced a capture.
type CaptureMode string

const (
	CaptureModeFull   CaptureMode = "full"
	CaptureModeSignal CaptureMode = "signal"
)

// CaptureRecord describes one rendered transcript window kept in the local
// capture journal.
type CaptureRecord struct {
	ID           string        `yaml:"id"`
	SessionID    string        `yaml:"session_id"`
	Project      string        `yaml:"project,omitempty"`
	ContainerTag string        `yaml:"container_tag"`
	CustomID     string        `yaml:"custom_id"`
	Mode         CaptureMode   `yaml:"mode"`
	LastUUID     string        `yaml:"last_uuid,omitempty"`
	EntryCount   int           `yaml:"entry_count"`
	SignalCount  int           `yaml:"signal_count,omitempty"`
	Length       int           `yaml:"length"`
	Status       CaptureStatus `yaml:"status"`
	MemoryID     string        `yaml:"memory_id,omitempty"`
	Error        string        `yaml:"error,omitempty"`
	CapturedAt   time.Time     `yaml:"captured_at"`
}

// CaptureFilter specifies criteria for listing journal records.
type CaptureFilter struct {
	SessionID string
	Status    CaptureStatus
	Since     *time.Time
}

// CaptureIndex is the master index of the capture journal.
type CaptureIndex struct {
	Version  string          `yaml:"version"`
	Captures []CaptureRecord `yaml:"captures"`
}

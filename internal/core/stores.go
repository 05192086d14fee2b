package core

import "github.com/gracie007-cloud/claude-supermemory/pkg/models"

// WatermarkStore remembers the last captured transcript entry per session.
// hooks.WatermarkTracker satisfies it.
type WatermarkStore interface {
	Get(sessionID string) (string, error)
	Set(sessionID, uuid string) error
}

// CaptureJournal is the subset of the capture journal that core and CLI
// services need. Defining it here avoids importing the storage package.
type CaptureJournal interface {
	AddCapture(record models.CaptureRecord, content string) (string, error)
	GetCapture(id string) (*models.CaptureRecord, error)
	GetContent(id string) (string, error)
	ListCaptures(filter models.CaptureFilter) ([]models.CaptureRecord, error)
	UpdateStatus(id string, status models.CaptureStatus, memoryID, errMsg string) error
	GenerateID() (string, error)
	Load() error
	Save() error
}

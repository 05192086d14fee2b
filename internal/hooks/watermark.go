package hooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrWatermarkIO marks a failure to read or persist a capture watermark.
var ErrWatermarkIO = errors.New("watermark I/O failure")

// ErrInvalidSessionID is returned for session ids that cannot name a file.
var ErrInvalidSessionID = errors.New("invalid session id")

const trackersDir = "trackers"

// WatermarkTracker remembers, per session, the uuid of the last transcript
// entry that was captured. Each session has one file holding only the uuid.
type WatermarkTracker struct {
	dir string
}

// NewWatermarkTracker stores watermarks under stateDir/trackers.
func NewWatermarkTracker(stateDir string) *WatermarkTracker {
	return &WatermarkTracker{dir: filepath.Join(stateDir, trackersDir)}
}

// Dir returns the directory holding the watermark files.
func (t *WatermarkTracker) Dir() string {
	return t.dir
}

// Get returns the stored watermark for the session. A missing or empty file
// means no watermark and yields "".
func (t *WatermarkTracker) Get(sessionID string) (string, error) {
	path, err := t.pathFor(sessionID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: reading %s: %w", ErrWatermarkIO, path, err)
	}
	uuid := strings.TrimSpace(string(data))
	if strings.ContainsAny(uuid, " \t\r\n") {
		return "", nil
	}
	return uuid, nil
}

// Set replaces the session's watermark. The value is written to a temporary
// file which is then renamed over the target.
func (t *WatermarkTracker) Set(sessionID, uuid string) error {
	path, err := t.pathFor(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrWatermarkIO, t.dir, err)
	}

	tmp, err := os.CreateTemp(t.dir, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrWatermarkIO, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(uuid); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing temp file: %w", ErrWatermarkIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing temp file: %w", ErrWatermarkIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s: %w", ErrWatermarkIO, path, err)
	}
	return nil
}

// Clear removes the session's watermark so the next capture starts over.
func (t *WatermarkTracker) Clear(sessionID string) error {
	path, err := t.pathFor(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: removing %s: %w", ErrWatermarkIO, path, err)
	}
	return nil
}

func (t *WatermarkTracker) pathFor(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." ||
		strings.ContainsAny(sessionID, `/\`) || strings.ContainsRune(sessionID, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, sessionID)
	}
	return filepath.Join(t.dir, sessionID+".txt"), nil
}

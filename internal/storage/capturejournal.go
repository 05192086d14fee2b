package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrCaptureNotFound is returned when a capture id is not in the journal.
var ErrCaptureNotFound = errors.New("capture not found")

const contentFile = "content.txt"

// CaptureJournalManager defines the interface for the local journal of
// rendered transcript windows under captures/.
type CaptureJournalManager interface {
	AddCapture(record models.CaptureRecord, content string) (string, error)
	GetCapture(id string) (*models.CaptureRecord, error)
	GetContent(id string) (string, error)
	ListCaptures(filter models.CaptureFilter) ([]models.CaptureRecord, error)
	UpdateStatus(id string, status models.CaptureStatus, memoryID, errMsg string) error
	GenerateID() (string, error)
	Load() error
	Save() error
}

type fileCaptureJournal struct {
	basePath string
	index    models.CaptureIndex
}

// NewCaptureJournal creates a CaptureJournalManager backed by YAML files
// under captures/ in the given base directory.
func NewCaptureJournal(basePath string) CaptureJournalManager {
	return &fileCaptureJournal{
		basePath: basePath,
		index:    models.CaptureIndex{Version: "1.0"},
	}
}

func (j *fileCaptureJournal) capturesDir() string {
	return filepath.Join(j.basePath, "captures")
}

func (j *fileCaptureJournal) indexPath() string {
	return filepath.Join(j.capturesDir(), "index.yaml")
}

func (j *fileCaptureJournal) counterPath() string {
	return filepath.Join(j.capturesDir(), ".capture_counter")
}

func (j *fileCaptureJournal) captureDir(id string) string {
	return filepath.Join(j.capturesDir(), id)
}

// GenerateID increments the journal counter under an exclusive lock and
// returns the next id in C-XXXXX format.
func (j *fileCaptureJournal) GenerateID() (string, error) {
	if err := os.MkdirAll(j.capturesDir(), 0o755); err != nil {
		return "", fmt.Errorf("generating capture ID: creating directory: %w", err)
	}

	unlock, err := j.lockCounter()
	if err != nil {
		return "", fmt.Errorf("generating capture ID: %w", err)
	}
	defer unlock()

	counter := 0
	data, err := os.ReadFile(j.counterPath())
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("generating capture ID: reading counter: %w", err)
	}
	if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
		counter, err = strconv.Atoi(trimmed)
		if err != nil {
			return "", fmt.Errorf("generating capture ID: parsing counter: %w", err)
		}
	}

	counter++
	if err := os.WriteFile(j.counterPath(), []byte(strconv.Itoa(counter)), 0o600); err != nil {
		return "", fmt.Errorf("generating capture ID: writing counter: %w", err)
	}
	return fmt.Sprintf("C-%05d", counter), nil
}

// lockCounter takes an exclusive flock on a sibling lock file so the counter
// itself can be rewritten while the lock is held.
func (j *fileCaptureJournal) lockCounter() (func() error, error) {
	f, err := os.OpenFile(j.counterPath()+".lock", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening counter lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("acquiring counter lock: %w", err)
	}
	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

// AddCapture stores a capture record and its rendered content. A record
// without an ID is assigned one.
func (j *fileCaptureJournal) AddCapture(record models.CaptureRecord, content string) (string, error) {
	if record.ID == "" {
		id, err := j.GenerateID()
		if err != nil {
			return "", fmt.Errorf("adding capture: %w", err)
		}
		record.ID = id
	}
	for _, existing := range j.index.Captures {
		if existing.ID == record.ID {
			return "", fmt.Errorf("adding capture: %s already exists", record.ID)
		}
	}
	if record.Status == "" {
		record.Status = models.CaptureStatusPending
	}
	if record.CapturedAt.IsZero() {
		record.CapturedAt = time.Now().UTC()
	}
	record.Length = len([]rune(content))

	dir := j.captureDir(record.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("adding capture: creating directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, contentFile), []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("adding capture: writing content: %w", err)
	}

	j.index.Captures = append(j.index.Captures, record)
	return record.ID, nil
}

// GetCapture returns a copy of the record with the given id.
func (j *fileCaptureJournal) GetCapture(id string) (*models.CaptureRecord, error) {
	for _, record := range j.index.Captures {
		if record.ID == id {
			return &record, nil
		}
	}
	return nil, fmt.Errorf("capture %s: %w", id, ErrCaptureNotFound)
}

// GetContent loads the rendered content of a capture from disk.
func (j *fileCaptureJournal) GetContent(id string) (string, error) {
	if _, err := j.GetCapture(id); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(j.captureDir(id), contentFile))
	if err != nil {
		return "", fmt.Errorf("reading capture content: %w", err)
	}
	return string(data), nil
}

// ListCaptures returns matching captures, newest first.
func (j *fileCaptureJournal) ListCaptures(filter models.CaptureFilter) ([]models.CaptureRecord, error) {
	var result []models.CaptureRecord
	for _, record := range j.index.Captures {
		if filter.SessionID != "" && record.SessionID != filter.SessionID {
			continue
		}
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if filter.Since != nil && record.CapturedAt.Before(*filter.Since) {
			continue
		}
		result = append(result, record)
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].CapturedAt.After(result[b].CapturedAt)
	})
	return result, nil
}

// UpdateStatus records the outcome of sending a capture.
func (j *fileCaptureJournal) UpdateStatus(id string, status models.CaptureStatus, memoryID, errMsg string) error {
	for i := range j.index.Captures {
		if j.index.Captures[i].ID != id {
			continue
		}
		j.index.Captures[i].Status = status
		if memoryID != "" {
			j.index.Captures[i].MemoryID = memoryID
		}
		j.index.Captures[i].Error = errMsg
		return nil
	}
	return fmt.Errorf("updating capture %s: %w", id, ErrCaptureNotFound)
}

// Load replaces the in-memory index with the one on disk. A missing index
// leaves the journal unchanged.
func (j *fileCaptureJournal) Load() error {
	data, err := os.ReadFile(j.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading capture index: %w", err)
	}
	var index models.CaptureIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("parsing capture index: %w", err)
	}
	if index.Version == "" {
		index.Version = "1.0"
	}
	j.index = index
	return nil
}

// Save persists the capture index to disk.
func (j *fileCaptureJournal) Save() error {
	if err := os.MkdirAll(j.capturesDir(), 0o755); err != nil {
		return fmt.Errorf("saving capture journal: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&j.index)
	if err != nil {
		return fmt.Errorf("encoding capture index: %w", err)
	}
	if err := os.WriteFile(j.indexPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing capture index: %w", err)
	}
	return nil
}

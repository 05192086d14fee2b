package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

func TestCaptureJournal_GenerateID(t *testing.T) {
	dir := t.TempDir()
	journal := NewCaptureJournal(dir)

	id1, err := journal.GenerateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != "C-00001" {
		t.Errorf("expected C-00001, got %s", id1)
	}

	// New journal instance should continue from same counter.
	id2, err := NewCaptureJournal(dir).GenerateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id2 != "C-00002" {
		t.Errorf("expected C-00002, got %s", id2)
	}
}

func TestCaptureJournal_GenerateIDCorruptCounter(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "captures"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "captures", ".capture_counter"), []byte("abc"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCaptureJournal(dir).GenerateID(); err == nil {
		t.Error("expected error for corrupt counter")
	}
}

func testRecord(session string, at time.Time) models.CaptureRecord {
	return models.CaptureRecord{
		SessionID:    session,
		Project:      "demo",
		ContainerTag: "claudecode_project_0123456789abcdef",
		CustomID:     "custom-" + session,
		Mode:         models.CaptureModeFull,
		LastUUID:     "u-last",
		EntryCount:   4,
		CapturedAt:   at,
	}
}

func TestCaptureJournal_AddGetPersist(t *testing.T) {
	dir := t.TempDir()
	journal := NewCaptureJournal(dir)
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	id, err := journal.AddCapture(testRecord("s1", at), "<|turn_start|>rendered<|turn_end|>")
	if err != nil {
		t.Fatalf("AddCapture: %v", err)
	}
	if id != "C-00001" {
		t.Errorf("id = %s, want C-00001", id)
	}
	if err := journal.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewCaptureJournal(dir)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec, err := reloaded.GetCapture(id)
	if err != nil {
		t.Fatalf("GetCapture: %v", err)
	}
	if rec.Status != models.CaptureStatusPending {
		t.Errorf("Status = %q, want pending", rec.Status)
	}
	if rec.Length != len("<|turn_start|>rendered<|turn_end|>") {
		t.Errorf("Length = %d", rec.Length)
	}
	if !rec.CapturedAt.Equal(at) {
		t.Errorf("CapturedAt = %v, want %v", rec.CapturedAt, at)
	}
	content, err := reloaded.GetContent(id)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if !strings.Contains(content, "rendered") {
		t.Errorf("content = %q", content)
	}
}

func TestCaptureJournal_DuplicateID(t *testing.T) {
	journal := NewCaptureJournal(t.TempDir())
	rec := testRecord("s1", time.Now())
	rec.ID = "C-00009"
	if _, err := journal.AddCapture(rec, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := journal.AddCapture(rec, "y"); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestCaptureJournal_NotFound(t *testing.T) {
	journal := NewCaptureJournal(t.TempDir())
	if _, err := journal.GetCapture("C-99999"); !errors.Is(err, ErrCaptureNotFound) {
		t.Errorf("GetCapture err = %v", err)
	}
	if _, err := journal.GetContent("C-99999"); !errors.Is(err, ErrCaptureNotFound) {
		t.Errorf("GetContent err = %v", err)
	}
	if err := journal.UpdateStatus("C-99999", models.CaptureStatusSent, "", ""); !errors.Is(err, ErrCaptureNotFound) {
		t.Errorf("UpdateStatus err = %v", err)
	}
}

func TestCaptureJournal_ListAndUpdate(t *testing.T) {
	journal := NewCaptureJournal(t.TempDir())
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	idA, _ := journal.AddCapture(testRecord("s1", base), "a")
	idB, _ := journal.AddCapture(testRecord("s2", base.Add(time.Hour)), "b")
	idC, _ := journal.AddCapture(testRecord("s1", base.Add(2*time.Hour)), "c")

	if err := journal.UpdateStatus(idB, models.CaptureStatusSent, "mem_1", ""); err != nil {
		t.Fatal(err)
	}
	if err := journal.UpdateStatus(idC, models.CaptureStatusFailed, "", "HTTP 500"); err != nil {
		t.Fatal(err)
	}

	all, _ := journal.ListCaptures(models.CaptureFilter{})
	if len(all) != 3 || all[0].ID != idC || all[2].ID != idA {
		t.Errorf("ListCaptures order = %v", ids(all))
	}

	s1, _ := journal.ListCaptures(models.CaptureFilter{SessionID: "s1"})
	if len(s1) != 2 {
		t.Errorf("session filter = %v", ids(s1))
	}

	sent, _ := journal.ListCaptures(models.CaptureFilter{Status: models.CaptureStatusSent})
	if len(sent) != 1 || sent[0].MemoryID != "mem_1" {
		t.Errorf("status filter = %+v", sent)
	}

	since := base.Add(90 * time.Minute)
	recent, _ := journal.ListCaptures(models.CaptureFilter{Since: &since})
	if len(recent) != 1 || recent[0].ID != idC || recent[0].Error != "HTTP 500" {
		t.Errorf("since filter = %+v", recent)
	}
}

func ids(records []models.CaptureRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestCaptureJournal_LoadMissingIndex(t *testing.T) {
	journal := NewCaptureJournal(t.TempDir())
	if err := journal.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	list, _ := journal.ListCaptures(models.CaptureFilter{})
	if len(list) != 0 {
		t.Errorf("expected empty journal, got %d", len(list))
	}
}

func TestCaptureJournal_LoadCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "captures"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "captures", "index.yaml"), []byte("captures: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewCaptureJournal(dir).Load(); err == nil {
		t.Error("expected parse error")
	}
}

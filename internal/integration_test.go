package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"
	"github.com/gracie007-cloud/claude-supermemory/internal/observability"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// fakeService is an in-process memory service recording what it receives.
type fakeService struct {
	mu        sync.Mutex
	documents []map[string]any
	profiles  []map[string]any
	failAdds  bool
	static    []string
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/documents", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failAdds {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		f.documents = append(f.documents, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": fmt.Sprintf("doc_%d", len(f.documents)), "status": "queued"})
	})
	mux.HandleFunc("POST /v4/profile", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.profiles = append(f.profiles, body)
		static := f.static
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"profile": map[string]any{"static": static, "dynamic": []string{}},
		})
	})
	return mux
}

func (f *fakeService) docs() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.documents...)
}

type fixedProjects struct{}

func (fixedProjects) ProjectName(string) string  { return "demo" }
func (fixedProjects) ContainerTag(string) string { return "claudecode_project_demo" }

// newTestApp wires a full App against svc. The event log is closed when
// the test finishes.
func newTestApp(t *testing.T, svc *fakeService, apiKey string) *App {
	t.Helper()
	server := httptest.NewServer(svc.handler())
	t.Cleanup(server.Close)

	t.Setenv("SUPERMEMORY_CC_API_KEY", apiKey)
	t.Setenv("SUPERMEMORY_API_URL", server.URL)
	t.Setenv("SUPERMEMORY_DEBUG", "")
	t.Setenv("SUPERMEMORY_SKIP_TOOLS", "")

	app, err := NewApp(t.TempDir(), Options{LogOutput: &bytes.Buffer{}, Projects: fixedProjects{}})
	if err != nil {
		t.Fatalf("creating test app: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

const sessionTranscript = `{"type":"user","uuid":"u1","timestamp":"2024-05-01T10:00:00.000Z","message":{"role":"user","content":"please add retries to the upload client"}}
{"type":"assistant","uuid":"a1","timestamp":"2024-05-01T10:00:05.000Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Edit","input":{"file_path":"upload.go"}},{"type":"text","text":"Added exponential backoff to the upload client."}]}}
`

const followUpTranscript = `{"type":"user","uuid":"u2","timestamp":"2024-05-01T10:05:00.000Z","message":{"role":"user","content":"now make the retry count configurable"}}
{"type":"assistant","uuid":"a2","timestamp":"2024-05-01T10:05:05.000Z","message":{"role":"assistant","content":[{"type":"text","text":"The retry count now comes from the config file."}]}}
`

func writeSessionTranscript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func appendTranscript(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

// =========================================================================
// Stop hook: capture, journal, upload, watermark
// =========================================================================

func TestIntegration_StopCapturesOnlyNewEntries(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, "sm_integration_key")
	path := writeSessionTranscript(t, sessionTranscript)
	ctx := context.Background()
	input := hooks.StopInput{SessionID: "sess-1", TranscriptPath: path, CWD: t.TempDir()}

	outcome, err := app.HookEngine.HandleStop(ctx, input)
	if err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if outcome.Capture == nil || outcome.MemoryID == "" {
		t.Fatalf("expected a saved capture, got %+v", outcome)
	}

	docs := svc.docs()
	if len(docs) != 1 {
		t.Fatalf("service got %d documents, want 1", len(docs))
	}
	first := docs[0]
	if first["containerTag"] != "claudecode_project_demo" {
		t.Errorf("containerTag = %v", first["containerTag"])
	}
	if first["customId"] != core.CaptureCustomID("sess-1", "a1") {
		t.Errorf("customId = %v, want %s", first["customId"], core.CaptureCustomID("sess-1", "a1"))
	}
	content, _ := first["content"].(string)
	if !strings.Contains(content, "add retries") || !strings.Contains(content, "exponential backoff") {
		t.Errorf("content missing turns: %q", content)
	}

	// Nothing new: no upload.
	outcome, err = app.HookEngine.HandleStop(ctx, input)
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if outcome.Skipped == "" {
		t.Errorf("expected skip with unchanged transcript, got %+v", outcome)
	}
	if len(svc.docs()) != 1 {
		t.Fatalf("unchanged transcript re-uploaded")
	}

	// Only the appended turn is sent next time.
	appendTranscript(t, path, followUpTranscript)
	if _, err := app.HookEngine.HandleStop(ctx, input); err != nil {
		t.Fatalf("third stop: %v", err)
	}
	docs = svc.docs()
	if len(docs) != 2 {
		t.Fatalf("service got %d documents, want 2", len(docs))
	}
	content, _ = docs[1]["content"].(string)
	if strings.Contains(content, "add retries") {
		t.Errorf("already captured turn re-sent: %q", content)
	}
	if !strings.Contains(content, "retry count configurable") {
		t.Errorf("new turn missing: %q", content)
	}

	mark, err := app.Watermarks.Get("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if mark != "a2" {
		t.Errorf("watermark = %q, want a2", mark)
	}

	records, err := app.Journal.ListCaptures(models.CaptureFilter{SessionID: "sess-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("journal has %d records, want 2", len(records))
	}
	for _, r := range records {
		if r.Status != models.CaptureStatusSent {
			t.Errorf("record %s status = %s, want sent", r.ID, r.Status)
		}
	}
}

func TestIntegration_StopFailureIsJournaledForResend(t *testing.T) {
	svc := &fakeService{failAdds: true}
	app := newTestApp(t, svc, "sm_integration_key")
	path := writeSessionTranscript(t, sessionTranscript)

	outcome, err := app.HookEngine.HandleStop(context.Background(), hooks.StopInput{
		SessionID: "sess-2", TranscriptPath: path, CWD: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected upload error")
	}
	if outcome == nil || outcome.CaptureID == "" {
		t.Fatalf("failed capture not journaled: %+v", outcome)
	}

	record, err := app.Journal.GetCapture(outcome.CaptureID)
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != models.CaptureStatusFailed {
		t.Errorf("status = %s, want failed", record.Status)
	}
	if record.Error == "" {
		t.Error("failure reason not recorded")
	}
	content, err := app.Journal.GetContent(outcome.CaptureID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "add retries") {
		t.Errorf("journaled content = %q", content)
	}

	events, err := app.EventLog.Read(observability.EventFilter{Type: observability.EventCaptureFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Level != observability.LevelError {
		t.Errorf("capture.failed events = %+v", events)
	}
}

func TestIntegration_StopWithoutKeyKeepsWatermark(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, "")
	path := writeSessionTranscript(t, sessionTranscript)

	outcome, err := app.HookEngine.HandleStop(context.Background(), hooks.StopInput{
		SessionID: "sess-3", TranscriptPath: path, CWD: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("HandleStop: %v", err)
	}
	if outcome.Skipped == "" {
		t.Errorf("expected skip without key, got %+v", outcome)
	}
	mark, err := app.Watermarks.Get("sess-3")
	if err != nil {
		t.Fatal(err)
	}
	if mark != "" {
		t.Errorf("watermark advanced to %q without a key", mark)
	}
	if len(svc.docs()) != 0 {
		t.Error("document uploaded without a key")
	}
}

// =========================================================================
// SessionStart, prompt and tool hooks
// =========================================================================

func TestIntegration_SessionStartInjectsProfile(t *testing.T) {
	svc := &fakeService{static: []string{"Prefers table-driven tests"}}
	app := newTestApp(t, svc, "sm_integration_key")

	ctx, err := app.HookEngine.HandleSessionStart(context.Background(), hooks.SessionStartInput{
		SessionID: "sess-4", CWD: t.TempDir(), Source: "startup",
	})
	if err != nil {
		t.Fatalf("HandleSessionStart: %v", err)
	}
	if !strings.Contains(ctx, "Prefers table-driven tests") {
		t.Errorf("profile fact missing from context: %q", ctx)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.profiles) != 1 || svc.profiles[0]["containerTag"] != "claudecode_project_demo" {
		t.Errorf("profile requests = %+v", svc.profiles)
	}
}

func TestIntegration_SessionStartWithoutKey(t *testing.T) {
	app := newTestApp(t, &fakeService{}, "")

	ctx, err := app.HookEngine.HandleSessionStart(context.Background(), hooks.SessionStartInput{
		SessionID: "sess-5", CWD: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("HandleSessionStart: %v", err)
	}
	if ctx != core.NoAPIKeyContext {
		t.Errorf("context = %q, want the no-key notice", ctx)
	}
}

func TestIntegration_PromptIsSavedWithPrivateSpansRemoved(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, "sm_integration_key")

	err := app.HookEngine.HandleUserPrompt(context.Background(), hooks.UserPromptSubmitInput{
		SessionID: "sess-6",
		CWD:       t.TempDir(),
		Prompt:    "deploy with token <private>hunter2</private> to staging",
	})
	if err != nil {
		t.Fatalf("HandleUserPrompt: %v", err)
	}

	docs := svc.docs()
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	content, _ := docs[0]["content"].(string)
	if strings.Contains(content, "hunter2") {
		t.Errorf("private text leaked: %q", content)
	}
	if !strings.Contains(content, "staging") {
		t.Errorf("prompt text missing: %q", content)
	}
}

func TestIntegration_StopCaptureRedactsPrivateSpans(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, "sm_integration_key")
	cwd := t.TempDir()
	prompt := "deploy with token <private>hunter2</private> to the staging cluster"
	path := writeSessionTranscript(t,
		`{"type":"user","uuid":"u1","timestamp":"2024-05-01T10:00:00.000Z","message":{"role":"user","content":"`+prompt+`"}}`+"\n"+
			`{"type":"assistant","uuid":"a1","timestamp":"2024-05-01T10:00:05.000Z","message":{"role":"assistant","content":[{"type":"text","text":"Deployed to the staging cluster with the provided token."}]}}`+"\n")

	ctx := context.Background()
	if err := app.HookEngine.HandleUserPrompt(ctx, hooks.UserPromptSubmitInput{SessionID: "sess-8", CWD: cwd, Prompt: prompt}); err != nil {
		t.Fatalf("HandleUserPrompt: %v", err)
	}
	outcome, err := app.HookEngine.HandleStop(ctx, hooks.StopInput{SessionID: "sess-8", TranscriptPath: path, CWD: cwd})
	if err != nil {
		t.Fatalf("HandleStop: %v", err)
	}

	docs := svc.docs()
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	for i, doc := range docs {
		content, _ := doc["content"].(string)
		if strings.Contains(content, "hunter2") {
			t.Errorf("document %d leaks private text: %q", i, content)
		}
	}
	journaled, err := app.Journal.GetContent(outcome.CaptureID)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(journaled, "hunter2") {
		t.Errorf("journal leaks private text: %q", journaled)
	}
}

func TestIntegration_PostToolUseRespectsSkipList(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, "sm_integration_key")
	cwd := t.TempDir()

	if err := app.HookEngine.HandlePostToolUse(context.Background(), hooks.PostToolUseInput{
		SessionID: "sess-7", CWD: cwd, ToolName: "Read",
		ToolInput: map[string]any{"file_path": "main.go"},
	}); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(svc.docs()) != 0 {
		t.Fatal("skipped tool was saved")
	}

	if err := app.HookEngine.HandlePostToolUse(context.Background(), hooks.PostToolUseInput{
		SessionID: "sess-7", CWD: cwd, ToolName: "Edit",
		ToolInput: map[string]any{"file_path": "main.go", "old_string": "a", "new_string": "b"},
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	docs := svc.docs()
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if content, _ := docs[0]["content"].(string); !strings.Contains(content, "main.go") {
		t.Errorf("observation = %q", content)
	}
}

// =========================================================================
// Metrics over a real event log
// =========================================================================

func TestIntegration_MetricsReflectHookActivity(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, "sm_integration_key")
	ctx := context.Background()
	cwd := t.TempDir()

	if _, err := app.HookEngine.HandleSessionStart(ctx, hooks.SessionStartInput{SessionID: "m1", CWD: cwd}); err != nil {
		t.Fatal(err)
	}
	if err := app.HookEngine.HandleUserPrompt(ctx, hooks.UserPromptSubmitInput{SessionID: "m1", CWD: cwd, Prompt: "refactor the cache"}); err != nil {
		t.Fatal(err)
	}
	path := writeSessionTranscript(t, sessionTranscript)
	if _, err := app.HookEngine.HandleStop(ctx, hooks.StopInput{SessionID: "m1", TranscriptPath: path, CWD: cwd}); err != nil {
		t.Fatal(err)
	}

	m, err := app.MetricsCalc.Calculate(time.Time{})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if m.CapturesSaved != 1 {
		t.Errorf("CapturesSaved = %d, want 1", m.CapturesSaved)
	}
	if m.PromptsSaved != 1 {
		t.Errorf("PromptsSaved = %d, want 1", m.PromptsSaved)
	}
	if m.ContextInjections != 1 {
		t.Errorf("ContextInjections = %d, want 1", m.ContextInjections)
	}
}

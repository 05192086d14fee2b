package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"
	"github.com/gracie007-cloud/claude-supermemory/internal/transcript"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

const (
	statusOpenTag  = "<supermemory-status>"
	statusCloseTag = "</supermemory-status>"
)

// NoAPIKeyContext is injected at session start when no key is configured.
const NoAPIKeyContext = statusOpenTag + `
No API key configured. Memories are disabled for this session.
Set SUPERMEMORY_CC_API_KEY or run: supermemory config set-key <key>
Get a key at https://console.supermemory.ai
` + statusCloseTag

// FailedContext is injected at session start when loading memories failed.
func FailedContext(err error) string {
	return statusOpenTag + "\nFailed to load memories: " + err.Error() +
		"\nSession will continue without memory context.\n" + statusCloseTag
}

// SaveOptions carries optional fields of a memory save.
type SaveOptions struct {
	// CustomID makes the save an upsert keyed by this id.
	CustomID string
	// Transcript marks content as a rendered session transcript so the
	// service extracts the developer's intent rather than every fact.
	Transcript bool
}

// MemoryService is the subset of the remote memory client that hooks need.
// Defining it here avoids importing the integration package.
type MemoryService interface {
	Save(ctx context.Context, content, containerTag string, metadata map[string]any, opts SaveOptions) (string, error)
	Profile(ctx context.Context, containerTag, query string) (*models.ProfileResult, error)
}

// MemoryDialer opens a MemoryService for an API key and base URL.
type MemoryDialer func(apiKey, baseURL string) (MemoryService, error)

// ProjectResolver maps a working directory to its memory container.
type ProjectResolver interface {
	ProjectName(dir string) string
	ContainerTag(dir string) string
}

// HookEngine processes Claude Code hook events. Every handler is
// non-blocking: callers report errors but never fail the session.
type HookEngine interface {
	// HandleSessionStart returns the context to inject, or "" for none.
	HandleSessionStart(ctx context.Context, input hooks.SessionStartInput) (string, error)

	// HandleUserPrompt stores the submitted prompt.
	HandleUserPrompt(ctx context.Context, input hooks.UserPromptSubmitInput) error

	// HandlePostToolUse stores a compressed observation of a tool call.
	HandlePostToolUse(ctx context.Context, input hooks.PostToolUseInput) error

	// HandleStop captures the unseen part of the transcript.
	HandleStop(ctx context.Context, input hooks.StopInput) (*StopOutcome, error)
}

// StopOutcome describes what a Stop hook did.
type StopOutcome struct {
	Capture   *CaptureResult
	CaptureID string
	MemoryID  string
	Skipped   string
}

// HookEngineDeps are the collaborators of a HookEngine. Journal and Events
// may be nil.
type HookEngineDeps struct {
	Settings SettingsManager
	Capturer Capturer
	Journal  CaptureJournal
	Events   EventLogger
	Projects ProjectResolver
	Dial     MemoryDialer
	Logger   *slog.Logger
	Now      func() time.Time
}

type hookEngine struct {
	HookEngineDeps
}

// NewHookEngine creates a HookEngine from its collaborators.
func NewHookEngine(deps HookEngineDeps) HookEngine {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &hookEngine{HookEngineDeps: deps}
}

// hookSession is what one hook invocation resolves for its working
// directory. A nil memory means no API key is configured.
type hookSession struct {
	settings *models.Settings
	project  string
	tag      string
	memory   MemoryService
}

func (e *hookEngine) open(cwd string) (*hookSession, error) {
	settings, err := e.Settings.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	s := &hookSession{
		settings: settings,
		project:  e.Projects.ProjectName(cwd),
		tag:      e.Projects.ContainerTag(cwd),
	}

	apiKey, err := e.Settings.APIKey(settings, cwd)
	if errors.Is(err, ErrNoAPIKey) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving API key: %w", err)
	}
	s.memory, err = e.Dial(apiKey, settings.APIURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to memory service: %w", err)
	}
	return s, nil
}

func (e *hookEngine) HandleSessionStart(ctx context.Context, input hooks.SessionStartInput) (string, error) {
	s, err := e.open(input.CWD)
	if err != nil {
		return FailedContext(err), err
	}
	e.Logger.Debug("session start", "session", input.SessionID, "source", input.Source, "tag", s.tag, "project", s.project)

	if s.memory == nil {
		return NoAPIKeyContext, nil
	}
	if !s.settings.InjectProfile {
		return "", nil
	}

	result, err := s.memory.Profile(ctx, s.tag, s.project)
	if err != nil {
		// An unreachable service looks like an empty project.
		e.Logger.Warn("profile fetch failed", "error", err)
		result = nil
	}

	formatted := FormatContext(result, true, false, s.settings.MaxProfileItems, true, e.Now())
	if formatted == "" {
		formatted = NoMemoriesContext
	}
	e.logEvent(eventContextInjected, map[string]any{
		"session_id": input.SessionID,
		"project":    s.project,
		"length":     len(formatted),
	})
	return formatted, nil
}

func (e *hookEngine) HandleUserPrompt(ctx context.Context, input hooks.UserPromptSubmitInput) error {
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" || IsFullyPrivate(prompt) {
		return nil
	}

	s, err := e.open(input.CWD)
	if err != nil {
		return err
	}
	if s.memory == nil {
		return nil
	}

	content := fmt.Sprintf("User request in %s: %s", s.project, StripPrivate(prompt))
	if _, err := s.memory.Save(ctx, content, s.tag, e.metadata("user_prompt", input.SessionID, s.project), SaveOptions{}); err != nil {
		return fmt.Errorf("saving prompt: %w", err)
	}
	e.Logger.Debug("prompt saved", "session", input.SessionID, "length", len(content))
	e.logEvent(eventPromptSaved, map[string]any{"session_id": input.SessionID, "project": s.project})
	return nil
}

func (e *hookEngine) HandlePostToolUse(ctx context.Context, input hooks.PostToolUseInput) error {
	s, err := e.open(input.CWD)
	if err != nil {
		return err
	}
	if !ShouldCaptureTool(input.ToolName, s.settings) {
		e.Logger.Debug("skipping tool", "tool", input.ToolName)
		return nil
	}
	if s.memory == nil {
		return nil
	}

	cleanInput, _ := StripPrivateJSON(input.ToolInput).(map[string]any)
	cleanResponse := StripPrivateJSON(input.ToolResponse)
	observation := CompressObservation(input.ToolName, cleanInput, cleanResponse)
	if observation == "" {
		return nil
	}

	md := ObservationMetadata(input.ToolName, cleanInput)
	for k, v := range e.metadata("observation", input.SessionID, s.project) {
		md[k] = v
	}
	if _, err := s.memory.Save(ctx, observation, s.tag, md, SaveOptions{}); err != nil {
		return fmt.Errorf("saving observation: %w", err)
	}
	e.Logger.Debug("observation saved", "tool", input.ToolName, "observation", observation)
	e.logEvent(eventObservationSaved, map[string]any{
		"session_id": input.SessionID,
		"tool_name":  input.ToolName,
	})
	return nil
}

func (e *hookEngine) HandleStop(ctx context.Context, input hooks.StopInput) (*StopOutcome, error) {
	if input.SessionID == "" || input.TranscriptPath == "" {
		return &StopOutcome{Skipped: "missing session or transcript"}, nil
	}

	s, err := e.open(input.CWD)
	if err != nil {
		return nil, err
	}
	if s.memory == nil {
		// Leave the watermark alone so a later session with a key captures
		// everything.
		return e.skip(input.SessionID, "no API key"), nil
	}

	signal, err := e.Settings.SignalConfig(input.CWD)
	if err != nil {
		return nil, err
	}
	include, err := e.Settings.IncludeTools(input.CWD)
	if err != nil {
		return nil, err
	}
	if _, err := transcript.NewToolFilter(include); err != nil {
		e.Logger.Warn("invalid includeTools pattern, matching it literally", "error", err)
	}

	result, err := e.Capturer.Capture(input.SessionID, input.TranscriptPath, CaptureOptions{
		Signal:       signal.Enabled,
		Keywords:     signal.Keywords,
		TurnsBefore:  signal.TurnsBefore,
		IncludeTools: include,
	})
	if err != nil && result == nil {
		return nil, err
	}
	if err != nil {
		// The content is rendered; only the watermark failed to persist.
		e.Logger.Warn("watermark not saved", "session", input.SessionID, "error", err)
	}
	if result == nil {
		return e.skip(input.SessionID, "nothing to capture"), nil
	}

	outcome := &StopOutcome{Capture: result}
	outcome.CaptureID = e.journal(result, s)

	md := e.metadata("session_turn", input.SessionID, s.project)
	md["mode"] = string(result.Mode)
	md["entries"] = result.EntryCount
	memoryID, saveErr := s.memory.Save(ctx, result.Content, s.tag, md, SaveOptions{
		CustomID:   result.CustomID(),
		Transcript: true,
	})
	outcome.MemoryID = memoryID
	e.settle(outcome, saveErr)
	if saveErr != nil {
		return outcome, fmt.Errorf("saving capture: %w", saveErr)
	}

	e.Logger.Debug("capture saved", "session", input.SessionID, "mode", result.Mode, "length", len(result.Content))
	return outcome, nil
}

// journal records a pending capture and returns its id, or "" when the
// journal is disabled or unwritable.
func (e *hookEngine) journal(result *CaptureResult, s *hookSession) string {
	if e.Journal == nil {
		return ""
	}
	// Another session may have written the index since startup.
	if err := e.Journal.Load(); err != nil {
		e.Logger.Warn("reloading capture journal", "error", err)
	}
	id, err := e.Journal.AddCapture(models.CaptureRecord{
		SessionID:    result.SessionID,
		Project:      s.project,
		ContainerTag: s.tag,
		CustomID:     result.CustomID(),
		Mode:         result.Mode,
		LastUUID:     result.LastUUID,
		EntryCount:   result.EntryCount,
		SignalCount:  result.SignalCount,
		Status:       models.CaptureStatusPending,
		CapturedAt:   e.Now().UTC(),
	}, result.Content)
	if err != nil {
		e.Logger.Warn("journaling capture", "error", err)
		return ""
	}
	if err := e.Journal.Save(); err != nil {
		e.Logger.Warn("saving capture journal", "error", err)
	}
	return id
}

// settle records the remote outcome of a capture in the journal and the
// event log.
func (e *hookEngine) settle(outcome *StopOutcome, saveErr error) {
	result := outcome.Capture
	data := map[string]any{
		"session_id":   result.SessionID,
		"mode":         string(result.Mode),
		"signal_count": result.SignalCount,
		"length":       len([]rune(result.Content)),
	}
	if outcome.CaptureID != "" {
		data["capture_id"] = outcome.CaptureID
	}

	status := models.CaptureStatusSent
	errMsg := ""
	if saveErr != nil {
		status = models.CaptureStatusFailed
		errMsg = saveErr.Error()
		data["error"] = errMsg
		e.logEvent(eventCaptureFailed, data)
	} else {
		e.logEvent(eventCaptureSaved, data)
	}

	if e.Journal == nil || outcome.CaptureID == "" {
		return
	}
	if err := e.Journal.UpdateStatus(outcome.CaptureID, status, outcome.MemoryID, errMsg); err != nil {
		e.Logger.Warn("updating capture status", "error", err)
		return
	}
	if err := e.Journal.Save(); err != nil {
		e.Logger.Warn("saving capture journal", "error", err)
	}
}

func (e *hookEngine) skip(sessionID, reason string) *StopOutcome {
	e.Logger.Debug("capture skipped", "session", sessionID, "reason", reason)
	e.logEvent(eventCaptureSkipped, map[string]any{"session_id": sessionID, "reason": reason})
	return &StopOutcome{Skipped: reason}
}

func (e *hookEngine) metadata(kind, sessionID, project string) map[string]any {
	return map[string]any{
		"type":      kind,
		"sessionId": sessionID,
		"project":   project,
		"timestamp": e.Now().UTC().Format(time.RFC3339),
	}
}

func (e *hookEngine) logEvent(eventType string, data map[string]any) {
	if e.Events == nil {
		return
	}
	if err := e.Events.LogEvent(eventType, data); err != nil {
		e.Logger.Warn("writing event", "type", eventType, "error", err)
	}
}

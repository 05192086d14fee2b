// Package internal provides the App struct that wires all components of the
// memory plugin together and initializes the CLI layer.
package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gracie007-cloud/claude-supermemory/internal/cli"
	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/internal/observability"
	"github.com/gracie007-cloud/claude-supermemory/internal/storage"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

const (
	stateDirName = ".supermemory-claude"
	eventLogName = "events.jsonl"
)

// App holds all service dependencies of the plugin.
type App struct {
	StateDir string

	// Configuration
	Settings core.SettingsManager

	// Storage layer
	Watermarks *hooks.WatermarkTracker
	Journal    storage.CaptureJournalManager

	// Core services
	Capturer   core.Capturer
	HookEngine core.HookEngine

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	Logger      *slog.Logger
}

// Options tune NewApp. The zero value is what the binary uses.
type Options struct {
	// LogOutput receives diagnostic logs; defaults to os.Stderr.
	LogOutput io.Writer
	// Dial opens the memory service; defaults to integration.NewMemoryClient.
	Dial func(baseURL, apiKey string) (integration.MemoryClient, error)
	// Projects resolves project identity; defaults to git-based resolution.
	Projects core.ProjectResolver
}

// NewApp creates and wires all components rooted at stateDir.
func NewApp(stateDir string, opts Options) (*App, error) {
	app := &App{StateDir: stateDir}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Dial == nil {
		opts.Dial = integration.NewMemoryClient
	}
	if opts.Projects == nil {
		opts.Projects = gitProjects{}
	}

	// --- Configuration ---
	app.Settings = core.NewSettingsManager(stateDir)
	settings, err := app.Settings.LoadSettings()
	if err != nil {
		// Hooks must keep working with a broken settings file; the engine
		// reports the error itself on each call.
		settings = core.DefaultSettings()
	}
	app.Logger = observability.NewLogger(opts.LogOutput, settings.Debug)
	if err != nil {
		app.Logger.Warn("loading settings", "error", err)
	}

	// --- Storage layer ---
	app.Watermarks = hooks.NewWatermarkTracker(stateDir)
	app.Journal = storage.NewCaptureJournal(stateDir)
	if err := app.Journal.Load(); err != nil {
		app.Logger.Warn("loading capture journal", "error", err)
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(stateDir, eventLogName))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.Logger.Warn("opening event log", "error", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Core services ---
	app.Capturer = core.NewCapturer(app.Watermarks)

	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
	}
	dial := opts.Dial
	app.HookEngine = core.NewHookEngine(core.HookEngineDeps{
		Settings: app.Settings,
		Capturer: app.Capturer,
		Journal:  app.Journal,
		Events:   events,
		Projects: opts.Projects,
		Dial: func(apiKey, baseURL string) (core.MemoryService, error) {
			client, err := dial(baseURL, apiKey)
			if err != nil {
				return nil, err
			}
			return &memoryServiceAdapter{client: client}, nil
		},
		Logger: app.Logger,
	})

	// --- Wire CLI package-level variables ---
	cli.Settings = app.Settings
	cli.HookEngine = app.HookEngine
	cli.Capturer = app.Capturer
	cli.Journal = app.Journal
	cli.Watermarks = app.Watermarks
	cli.Logger = app.Logger
	cli.DialMemory = opts.Dial

	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveStateDir determines where settings, watermarks, the capture journal
// and the event log live. SUPERMEMORY_HOME wins; otherwise a directory in
// the user's home is used, falling back to the working directory.
func ResolveStateDir() string {
	if home := os.Getenv("SUPERMEMORY_HOME"); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, stateDirName)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return stateDirName
	}
	return filepath.Join(cwd, stateDirName)
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	level := observability.LevelInfo
	if eventType == observability.EventCaptureFailed {
		level = observability.LevelError
	}
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}

// memoryServiceAdapter adapts integration.MemoryClient to core.MemoryService.
type memoryServiceAdapter struct {
	client integration.MemoryClient
}

func (a *memoryServiceAdapter) Save(ctx context.Context, content, containerTag string, metadata map[string]any, opts core.SaveOptions) (string, error) {
	addOpts := integration.AddOptions{CustomID: opts.CustomID}
	if opts.Transcript {
		addOpts.EntityContext = integration.PersonalEntityContext
	}
	res, err := a.client.AddMemory(ctx, content, containerTag, metadata, addOpts)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

func (a *memoryServiceAdapter) Profile(ctx context.Context, containerTag, query string) (*models.ProfileResult, error) {
	return a.client.GetProfile(ctx, containerTag, query)
}

// gitProjects adapts the integration project functions to core.ProjectResolver.
type gitProjects struct{}

func (gitProjects) ProjectName(dir string) string  { return integration.ProjectName(dir) }
func (gitProjects) ContainerTag(dir string) string { return integration.ContainerTag(dir) }

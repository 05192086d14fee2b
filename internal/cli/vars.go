package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/hooks"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/internal/observability"
)

// Core service instances, set during app initialization in app.go.
var (
	Settings   core.SettingsManager
	HookEngine core.HookEngine
	Capturer   core.Capturer
	Journal    core.CaptureJournal
	Watermarks *hooks.WatermarkTracker
	Logger     *slog.Logger

	// DialMemory opens the remote memory client. Tests replace it.
	DialMemory = integration.NewMemoryClient
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
)

// Hook commands read their event from hookStdin and answer on hookStdout.
var (
	hookStdin  io.Reader = os.Stdin
	hookStdout io.Writer = os.Stdout
)

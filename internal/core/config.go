// Package core contains the business logic of the memory plugin: settings
// resolution, transcript capture, privacy filtering, observation compression,
// deduplication and context formatting.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gracie007-cloud/claude-supermemory/internal/transcript"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
	"github.com/spf13/viper"
)

// ErrNoAPIKey is returned when no API key is configured anywhere.
var ErrNoAPIKey = errors.New("no API key configured")

const (
	// DefaultAPIURL is the memory service base URL.
	DefaultAPIURL = "https://api.supermemory.ai"

	settingsName    = "settings"
	credentialsName = "credentials"
	projectName     = "supermemory"

	envAPIKey    = "SUPERMEMORY_CC_API_KEY"
	envAPIURL    = "SUPERMEMORY_API_URL"
	envDebug     = "SUPERMEMORY_DEBUG"
	envSkipTools = "SUPERMEMORY_SKIP_TOOLS"
)

// SettingsManager loads, merges and validates global settings and
// per-project overrides.
type SettingsManager interface {
	StateDir() string
	LoadSettings() (*models.Settings, error)
	LoadProjectConfig(dir string) (*models.ProjectConfig, error)
	IncludeTools(dir string) ([]string, error)
	SignalConfig(dir string) (models.SignalConfig, error)
	APIKey(settings *models.Settings, dir string) (string, error)
	SaveSettings(settings *models.Settings) error
	SaveCredentials(apiKey string) error
	ValidateSettings(settings *models.Settings) error
}

// viperSettingsManager implements SettingsManager with Viper reading JSON
// files from the state directory and the project's .claude directory.
type viperSettingsManager struct {
	stateDir string
}

// NewSettingsManager creates a SettingsManager rooted at stateDir.
func NewSettingsManager(stateDir string) SettingsManager {
	return &viperSettingsManager{stateDir: stateDir}
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *models.Settings {
	return &models.Settings{
		APIURL:            DefaultAPIURL,
		IncludeTools:      []string{},
		SkipTools:         []string{"Read", "Glob", "Grep", "TodoWrite", "AskUserQuestion"},
		CaptureTools:      []string{"Edit", "Write", "Bash", "Task"},
		MaxProfileItems:   5,
		InjectProfile:     true,
		Debug:             false,
		SignalExtraction:  false,
		SignalKeywords:    append([]string(nil), transcript.DefaultSignalKeywords...),
		SignalTurnsBefore: transcript.DefaultTurnsBefore,
	}
}

func (m *viperSettingsManager) StateDir() string {
	return m.stateDir
}

// LoadSettings reads settings.json from the state directory. A missing file
// yields defaults. Environment variables override file values.
func (m *viperSettingsManager) LoadSettings() (*models.Settings, error) {
	cfg := DefaultSettings()

	v := viper.New()
	v.SetConfigName(settingsName)
	v.SetConfigType("json")
	v.AddConfigPath(m.stateDir)

	v.SetDefault("apiUrl", cfg.APIURL)
	v.SetDefault("includeTools", cfg.IncludeTools)
	v.SetDefault("skipTools", cfg.SkipTools)
	v.SetDefault("captureTools", cfg.CaptureTools)
	v.SetDefault("maxProfileItems", cfg.MaxProfileItems)
	v.SetDefault("injectProfile", cfg.InjectProfile)
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("signalExtraction", cfg.SignalExtraction)
	v.SetDefault("signalKeywords", cfg.SignalKeywords)
	v.SetDefault("signalTurnsBefore", cfg.SignalTurnsBefore)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading settings.json: %w", err)
		}
	} else {
		cfg.APIKey = v.GetString("apiKey")
		cfg.APIURL = v.GetString("apiUrl")
		cfg.IncludeTools = v.GetStringSlice("includeTools")
		cfg.SkipTools = v.GetStringSlice("skipTools")
		cfg.CaptureTools = v.GetStringSlice("captureTools")
		cfg.MaxProfileItems = v.GetInt("maxProfileItems")
		cfg.InjectProfile = v.GetBool("injectProfile")
		cfg.Debug = v.GetBool("debug")
		cfg.SignalExtraction = v.GetBool("signalExtraction")
		cfg.SignalKeywords = v.GetStringSlice("signalKeywords")
		cfg.SignalTurnsBefore = v.GetInt("signalTurnsBefore")
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *models.Settings) {
	if os.Getenv(envDebug) == "true" {
		cfg.Debug = true
	}
	if url := strings.TrimSpace(os.Getenv(envAPIURL)); url != "" {
		cfg.APIURL = url
	}
	if skip := os.Getenv(envSkipTools); skip != "" {
		var tools []string
		for _, t := range strings.Split(skip, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
		cfg.SkipTools = tools
	}
}

// LoadProjectConfig reads dir/.claude/supermemory.json. A missing file
// returns nil with no error.
func (m *viperSettingsManager) LoadProjectConfig(dir string) (*models.ProjectConfig, error) {
	if dir == "" {
		return nil, nil
	}
	v := viper.New()
	v.SetConfigName(projectName)
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dir, ".claude"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading project config in %s: %w", dir, err)
	}

	pc := &models.ProjectConfig{
		APIKey:            v.GetString("apiKey"),
		IncludeTools:      v.GetStringSlice("includeTools"),
		SignalKeywords:    v.GetStringSlice("signalKeywords"),
		SignalTurnsBefore: v.GetInt("signalTurnsBefore"),
	}
	if v.IsSet("signalExtraction") {
		enabled := v.GetBool("signalExtraction")
		pc.SignalExtraction = &enabled
	}
	return pc, nil
}

// IncludeTools returns the merged, lower-cased tool include-list for dir.
func (m *viperSettingsManager) IncludeTools(dir string) ([]string, error) {
	settings, project, err := m.load(dir)
	if err != nil {
		return nil, err
	}
	return MergeIncludeTools(settings, project), nil
}

// SignalConfig returns the effective signal-extraction configuration for dir.
func (m *viperSettingsManager) SignalConfig(dir string) (models.SignalConfig, error) {
	settings, project, err := m.load(dir)
	if err != nil {
		return models.SignalConfig{}, err
	}
	return MergeSignalConfig(settings, project), nil
}

func (m *viperSettingsManager) load(dir string) (*models.Settings, *models.ProjectConfig, error) {
	settings, err := m.LoadSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	project, err := m.LoadProjectConfig(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading project config: %w", err)
	}
	return settings, project, nil
}

// MergeIncludeTools unions the global and project include-lists,
// lower-cased, in first-seen order.
func MergeIncludeTools(settings *models.Settings, project *models.ProjectConfig) []string {
	var lists [][]string
	if settings != nil {
		lists = append(lists, settings.IncludeTools)
	}
	if project != nil {
		lists = append(lists, project.IncludeTools)
	}
	return unionLower(lists...)
}

// MergeSignalConfig combines global signal settings with project overrides.
// The project's enabled flag wins when set, keywords are unioned and the
// window size falls back from project to global to the default.
func MergeSignalConfig(settings *models.Settings, project *models.ProjectConfig) models.SignalConfig {
	if settings == nil {
		settings = DefaultSettings()
	}

	keywords := settings.SignalKeywords
	if len(keywords) == 0 {
		keywords = transcript.DefaultSignalKeywords
	}
	cfg := models.SignalConfig{
		Enabled:     settings.SignalExtraction,
		Keywords:    unionLower(keywords),
		TurnsBefore: settings.SignalTurnsBefore,
	}

	if project != nil {
		if project.SignalExtraction != nil {
			cfg.Enabled = *project.SignalExtraction
		}
		cfg.Keywords = unionLower(cfg.Keywords, project.SignalKeywords)
		if project.SignalTurnsBefore > 0 {
			cfg.TurnsBefore = project.SignalTurnsBefore
		}
	}
	if cfg.TurnsBefore <= 0 {
		cfg.TurnsBefore = transcript.DefaultTurnsBefore
	}
	return cfg
}

func unionLower(lists ...[]string) []string {
	var all []string
	for _, list := range lists {
		for _, item := range list {
			all = append(all, strings.ToLower(strings.TrimSpace(item)))
		}
	}
	return DedupeStrings(all)
}

// APIKey resolves the API key. Precedence: settings file, environment,
// project config, stored credentials.
func (m *viperSettingsManager) APIKey(settings *models.Settings, dir string) (string, error) {
	if settings != nil && settings.APIKey != "" {
		return settings.APIKey, nil
	}
	if key := strings.TrimSpace(os.Getenv(envAPIKey)); key != "" {
		return key, nil
	}
	project, err := m.LoadProjectConfig(dir)
	if err != nil {
		return "", fmt.Errorf("loading project config: %w", err)
	}
	if project != nil && project.APIKey != "" {
		return project.APIKey, nil
	}

	v := viper.New()
	v.SetConfigName(credentialsName)
	v.SetConfigType("json")
	v.AddConfigPath(m.stateDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", ErrNoAPIKey
		}
		return "", fmt.Errorf("reading credentials: %w", err)
	}
	if key := v.GetString("apiKey"); key != "" {
		return key, nil
	}
	return "", ErrNoAPIKey
}

// SaveSettings writes settings.json. The API key is never written; it belongs
// in the environment or the credentials file.
func (m *viperSettingsManager) SaveSettings(settings *models.Settings) error {
	if settings == nil {
		return fmt.Errorf("settings are nil")
	}
	out := *settings
	out.APIKey = ""
	return m.writeJSON(settingsName+".json", out, 0o644)
}

// SaveCredentials stores the API key in credentials.json, readable only by
// the current user.
func (m *viperSettingsManager) SaveCredentials(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("api key must not be empty")
	}
	creds := map[string]string{"apiKey": strings.TrimSpace(apiKey)}
	return m.writeJSON(credentialsName+".json", creds, 0o600)
}

func (m *viperSettingsManager) writeJSON(name string, value any, perm os.FileMode) error {
	if err := os.MkdirAll(m.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(m.stateDir, name), append(data, '\n'), perm); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// ValidateSettings checks settings for invalid values and reports every
// problem at once.
func (m *viperSettingsManager) ValidateSettings(settings *models.Settings) error {
	if settings == nil {
		return fmt.Errorf("settings are nil")
	}

	var errs []string

	if settings.SignalTurnsBefore < 1 {
		errs = append(errs, fmt.Sprintf("signalTurnsBefore must be at least 1, got %d", settings.SignalTurnsBefore))
	}
	if settings.MaxProfileItems < 0 {
		errs = append(errs, fmt.Sprintf("maxProfileItems must be non-negative, got %d", settings.MaxProfileItems))
	}
	for _, list := range []struct {
		field    string
		patterns []string
	}{
		{"includeTools", settings.IncludeTools},
		{"skipTools", settings.SkipTools},
		{"captureTools", settings.CaptureTools},
	} {
		if _, err := transcript.NewToolFilter(list.patterns); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", list.field, err))
		}
	}
	if settings.APIURL != "" && !strings.HasPrefix(settings.APIURL, "http://") && !strings.HasPrefix(settings.APIURL, "https://") {
		errs = append(errs, fmt.Sprintf("apiUrl %q must start with http:// or https://", settings.APIURL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("settings validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

package models

// Settings holds the global plugin settings read from settings.json via Viper.
// Keys keep the camelCase names used by existing settings files.
type Settings struct {
	APIKey            string   `json:"apiKey,omitempty" mapstructure:"apiKey"`
	APIURL            string   `json:"apiUrl,omitempty" mapstructure:"apiUrl"`
	IncludeTools      []string `json:"includeTools" mapstructure:"includeTools"`
	SkipTools         []string `json:"skipTools" mapstructure:"skipTools"`
	CaptureTools      []string `json:"captureTools" mapstructure:"captureTools"`
	MaxProfileItems   int      `json:"maxProfileItems" mapstructure:"maxProfileItems"`
	InjectProfile     bool     `json:"injectProfile" mapstructure:"injectProfile"`
	Debug             bool     `json:"debug" mapstructure:"debug"`
	SignalExtraction  bool     `json:"signalExtraction" mapstructure:"signalExtraction"`
	SignalKeywords    []string `json:"signalKeywords" mapstructure:"signalKeywords"`
	SignalTurnsBefore int      `json:"signalTurnsBefore" mapstructure:"signalTurnsBefore"`
}

// ProjectConfig holds per-project overrides read from .claude/supermemory.json.
// Pointer and zero values mean "not set" and defer to the global settings.
type ProjectConfig struct {
	APIKey            string   `json:"apiKey,omitempty" mapstructure:"apiKey"`
	IncludeTools      []string `json:"includeTools,omitempty" mapstructure:"includeTools"`
	SignalExtraction  *bool    `json:"signalExtraction,omitempty" mapstructure:"signalExtraction"`
	SignalKeywords    []string `json:"signalKeywords,omitempty" mapstructure:"signalKeywords"`
	SignalTurnsBefore int      `json:"signalTurnsBefore,omitempty" mapstructure:"signalTurnsBefore"`
}

// SignalConfig is the effective signal-extraction configuration after
// merging global settings with a project's overrides.
type SignalConfig struct {
	Enabled     bool
	Keywords    []string
	TurnsBefore int
}

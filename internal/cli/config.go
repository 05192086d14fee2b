package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gracie007-cloud/claude-supermemory/internal/core"
	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage plugin settings",
	Long: `Inspect and manage supermemory settings.

Global settings live in settings.json in the state directory
($SUPERMEMORY_HOME or ~/.supermemory-claude). A project can override
the API key, included tools and signal extraction in
.claude/supermemory.json.`,
}

// effectiveConfig is what 'config show' prints.
type effectiveConfig struct {
	StateDir     string                `json:"stateDir"`
	Project      string                `json:"project"`
	ContainerTag string                `json:"containerTag"`
	APIKey       string                `json:"apiKey"`
	Settings     *models.Settings      `json:"settings"`
	ProjectFile  *models.ProjectConfig `json:"projectConfig,omitempty"`
	IncludeTools []string              `json:"effectiveIncludeTools"`
	Signal       models.SignalConfig   `json:"effectiveSignal"`
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings for the current project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Settings == nil {
			return fmt.Errorf("settings not initialized")
		}
		dir, err := workDir()
		if err != nil {
			return err
		}
		cfg, err := loadEffectiveConfig(dir)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting settings: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func loadEffectiveConfig(dir string) (*effectiveConfig, error) {
	settings, err := Settings.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	project, err := Settings.LoadProjectConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	key, err := Settings.APIKey(settings, dir)
	switch {
	case errors.Is(err, core.ErrNoAPIKey):
		key = "(not set)"
	case err != nil:
		return nil, err
	default:
		key = maskKey(key)
	}

	shown := *settings
	shown.APIKey = ""
	var shownProject *models.ProjectConfig
	if project != nil {
		p := *project
		if p.APIKey != "" {
			p.APIKey = maskKey(p.APIKey)
		}
		shownProject = &p
	}

	return &effectiveConfig{
		StateDir:     Settings.StateDir(),
		Project:      integration.ProjectName(dir),
		ContainerTag: integration.ContainerTag(dir),
		APIKey:       key,
		Settings:     &shown,
		ProjectFile:  shownProject,
		IncludeTools: core.MergeIncludeTools(settings, project),
		Signal:       core.MergeSignalConfig(settings, project),
	}, nil
}

// maskKey keeps the prefix and the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 10 {
		return "****"
	}
	return key[:5] + "****" + key[len(key)-4:]
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the locations of the settings and state files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Settings == nil {
			return fmt.Errorf("settings not initialized")
		}
		dir, err := workDir()
		if err != nil {
			return err
		}
		state := Settings.StateDir()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-14s %s\n", "State dir:", state)
		fmt.Fprintf(w, "%-14s %s\n", "Settings:", filepath.Join(state, "settings.json"))
		fmt.Fprintf(w, "%-14s %s\n", "Credentials:", filepath.Join(state, "credentials.json"))
		fmt.Fprintf(w, "%-14s %s\n", "Events:", filepath.Join(state, "events.jsonl"))
		fmt.Fprintf(w, "%-14s %s\n", "Captures:", filepath.Join(state, "captures"))
		if Watermarks != nil {
			fmt.Fprintf(w, "%-14s %s\n", "Watermarks:", Watermarks.Dir())
		}
		fmt.Fprintf(w, "%-14s %s\n", "Project:", filepath.Join(dir, ".claude", "supermemory.json"))
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Store the API key in the credentials file",
	Long: `Store the API key in credentials.json in the state directory, readable
only by the current user. SUPERMEMORY_CC_API_KEY still takes precedence
when it is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Settings == nil {
			return fmt.Errorf("settings not initialized")
		}
		if err := integration.ValidateAPIKey(args[0]); err != nil {
			return err
		}
		if err := Settings.SaveCredentials(args[0]); err != nil {
			return fmt.Errorf("saving credentials: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key %s saved to %s\n", maskKey(args[0]), filepath.Join(Settings.StateDir(), "credentials.json"))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check settings for invalid values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Settings == nil {
			return fmt.Errorf("settings not initialized")
		}
		settings, err := Settings.LoadSettings()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if err := Settings.ValidateSettings(settings); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Settings are valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

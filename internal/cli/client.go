package cli

import (
	"fmt"
	"os"

	"github.com/gracie007-cloud/claude-supermemory/internal/integration"
	"github.com/gracie007-cloud/claude-supermemory/pkg/models"
)

// workDir returns the directory commands resolve the project from.
func workDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}

// openMemoryClient loads settings and dials the memory service for the
// project in dir. It returns core.ErrNoAPIKey when no key is configured.
func openMemoryClient(dir string) (integration.MemoryClient, *models.Settings, error) {
	if Settings == nil {
		return nil, nil, fmt.Errorf("settings not initialized")
	}
	settings, err := Settings.LoadSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	apiKey, err := Settings.APIKey(settings, dir)
	if err != nil {
		return nil, settings, err
	}
	client, err := DialMemory(settings.APIURL, apiKey)
	if err != nil {
		return nil, settings, fmt.Errorf("connecting to memory service: %w", err)
	}
	return client, settings, nil
}

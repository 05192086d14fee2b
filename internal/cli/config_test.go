package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key, want string
	}{
		{"sm_abcdefghijklmnop", "sm_ab****mnop"},
		{"sm_short", "****"},
		{"", "****"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestConfigShow_MasksKey(t *testing.T) {
	withServices(t, newMemJournal(), &fakeMemoryClient{})
	var buf bytes.Buffer
	configShowCmd.SetOut(&buf)
	defer configShowCmd.SetOut(nil)

	if err := configShowCmd.RunE(configShowCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "sm_test_key_123456") {
		t.Fatal("API key printed in clear")
	}
	var cfg map[string]any
	if err := json.Unmarshal(buf.Bytes(), &cfg); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if cfg["apiKey"] != "sm_te****3456" {
		t.Errorf("apiKey = %v", cfg["apiKey"])
	}
	if !strings.HasPrefix(cfg["containerTag"].(string), "claudecode_project_") {
		t.Errorf("containerTag = %v", cfg["containerTag"])
	}
	settings := cfg["settings"].(map[string]any)
	if _, ok := settings["apiKey"]; ok {
		t.Error("settings.apiKey should be omitted")
	}
}

func TestConfigShow_NoKey(t *testing.T) {
	withServices(t, newMemJournal(), &fakeMemoryClient{})
	t.Setenv("SUPERMEMORY_CC_API_KEY", "")
	var buf bytes.Buffer
	configShowCmd.SetOut(&buf)
	defer configShowCmd.SetOut(nil)

	if err := configShowCmd.RunE(configShowCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "(not set)") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestConfigPath(t *testing.T) {
	stateDir := withServices(t, newMemJournal(), &fakeMemoryClient{})
	var buf bytes.Buffer
	configPathCmd.SetOut(&buf)
	defer configPathCmd.SetOut(nil)

	if err := configPathCmd.RunE(configPathCmd, nil); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{stateDir, "settings.json", "credentials.json", "captures", "supermemory.json"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestConfigSetKey(t *testing.T) {
	stateDir := withServices(t, newMemJournal(), &fakeMemoryClient{})
	var buf bytes.Buffer
	configSetKeyCmd.SetOut(&buf)
	defer configSetKeyCmd.SetOut(nil)

	if err := configSetKeyCmd.RunE(configSetKeyCmd, []string{"sm_stored_key_abcdef"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(filepath.Join(stateDir, "credentials.json"))
	if err != nil {
		t.Fatalf("credentials not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("credentials mode = %v, want 0600", info.Mode().Perm())
	}
	if strings.Contains(buf.String(), "sm_stored_key_abcdef") {
		t.Error("key echoed in clear")
	}

	// The stored key is used once the environment no longer provides one.
	t.Setenv("SUPERMEMORY_CC_API_KEY", "")
	settings, _ := Settings.LoadSettings()
	key, err := Settings.APIKey(settings, t.TempDir())
	if err != nil || key != "sm_stored_key_abcdef" {
		t.Errorf("APIKey = %q, %v", key, err)
	}
}

func TestConfigSetKey_RejectsInvalid(t *testing.T) {
	withServices(t, newMemJournal(), &fakeMemoryClient{})
	if err := configSetKeyCmd.RunE(configSetKeyCmd, []string{"not-a-key"}); err == nil {
		t.Fatal("expected error for malformed key")
	}
}

func TestConfigValidate(t *testing.T) {
	stateDir := withServices(t, newMemJournal(), &fakeMemoryClient{})
	var buf bytes.Buffer
	configValidateCmd.SetOut(&buf)
	defer configValidateCmd.SetOut(nil)

	if err := configValidateCmd.RunE(configValidateCmd, nil); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if !strings.Contains(buf.String(), "valid") {
		t.Errorf("output = %q", buf.String())
	}

	bad := `{"signalTurnsBefore": 0, "maxProfileItems": -1}`
	if err := os.WriteFile(filepath.Join(stateDir, "settings.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	err := configValidateCmd.RunE(configValidateCmd, nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "signalTurnsBefore") || !strings.Contains(err.Error(), "maxProfileItems") {
		t.Errorf("error should list every problem: %v", err)
	}
}

func TestConfigCommands_NilSettings(t *testing.T) {
	orig := Settings
	defer func() { Settings = orig }()
	Settings = nil

	for _, run := range []func() error{
		func() error { return configShowCmd.RunE(configShowCmd, nil) },
		func() error { return configPathCmd.RunE(configPathCmd, nil) },
		func() error { return configSetKeyCmd.RunE(configSetKeyCmd, []string{"sm_whatever_123"}) },
		func() error { return configValidateCmd.RunE(configValidateCmd, nil) },
	} {
		if err := run(); err == nil {
			t.Error("expected error when Settings is nil")
		}
	}
}

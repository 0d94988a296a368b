package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserConfig_ActiveProfile(t *testing.T) {
	cfg := &UserConfig{
		CurrentProfile: "local",
		Profiles: map[string]Profile{
			"local":   {URL: "http://localhost:9000", Username: "admin"},
			"staging": {URL: "https://sonar.staging.example.com", Username: "ci-bot", Output: "json"},
		},
	}

	tests := []struct {
		name     string
		override string
		wantURL  string
	}{
		{name: "uses current profile", wantURL: "http://localhost:9000"},
		{name: "override to staging", override: "staging", wantURL: "https://sonar.staging.example.com"},
		{name: "unknown profile is empty", override: "nonexistent", wantURL: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantURL, cfg.ActiveProfile(tt.override).URL)
		})
	}
}

func TestConfigPath_UnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".sonar-setup", "config.yaml"), ConfigPath())
}

func TestSaveAndLoadUserConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	want := &UserConfig{
		CurrentProfile: "staging",
		Profiles: map[string]Profile{
			"staging": {URL: "https://sonar.staging.example.com", Username: "ci-bot"},
		},
	}
	require.NoError(t, SaveUserConfig(want))

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadUserConfig_Missing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := LoadUserConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadUserConfig_NoProfiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(ConfigDir(), 0o700))
	require.NoError(t, os.WriteFile(ConfigPath(), []byte("current-profile: x\n"), 0o600))

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.NotNil(t, cfg.Profiles)
	assert.Equal(t, Profile{}, cfg.ActiveProfile(""))
}

func TestLoadUserConfig_Malformed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(ConfigDir(), 0o700))
	require.NoError(t, os.WriteFile(ConfigPath(), []byte("profiles: [unterminated\n"), 0o600))

	_, err := LoadUserConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

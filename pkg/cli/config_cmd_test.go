package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetProfile_CreatesFile(t *testing.T) {
	isolateEnv(t)

	out, _, err := runCLI(t, "config", "set-profile", "--name", "local",
		"--url", "http://localhost:9000", "--username", "ci-bot")
	require.NoError(t, err)
	assert.Contains(t, out, `Profile "local" saved`)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.CurrentProfile)
	assert.Equal(t, Profile{URL: "http://localhost:9000", Username: "ci-bot"}, cfg.Profiles["local"])
}

func TestConfigSetProfile_UpdatesOnlyChangedFields(t *testing.T) {
	isolateEnv(t)
	writeProfile(t, &UserConfig{
		CurrentProfile: "local",
		Profiles:       map[string]Profile{"local": {URL: "http://localhost:9000", Username: "admin"}},
	})

	_, _, err := runCLI(t, "config", "set-profile", "--name", "local", "--default-output", "json")
	require.NoError(t, err)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, Profile{URL: "http://localhost:9000", Username: "admin", Output: "json"}, cfg.Profiles["local"])
}

func TestConfigSetProfile_RejectsBadValues(t *testing.T) {
	isolateEnv(t)

	_, _, err := runCLI(t, "config", "set-profile", "--name", "x", "--url", "localhost:9000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server URL")

	_, _, err = runCLI(t, "config", "set-profile", "--name", "x", "--default-output", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestConfigShow(t *testing.T) {
	isolateEnv(t)
	writeProfile(t, &UserConfig{
		CurrentProfile: "local",
		Profiles:       map[string]Profile{"local": {URL: "http://localhost:9000"}},
	})

	out, _, err := runCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "current-profile: local")
	assert.Contains(t, out, "url: http://localhost:9000")

	out, _, err = runCLI(t, "config", "show", "-o", "json")
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "local", got["CurrentProfile"])
}

func TestConfigShow_Missing(t *testing.T) {
	isolateEnv(t)
	_, _, err := runCLI(t, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration found")
}

func TestConfigUseProfile(t *testing.T) {
	isolateEnv(t)
	writeProfile(t, &UserConfig{
		CurrentProfile: "local",
		Profiles: map[string]Profile{
			"local":   {URL: "http://localhost:9000"},
			"staging": {URL: "https://sonar.staging.example.com"},
		},
	})

	out, _, err := runCLI(t, "config", "use-profile", "staging")
	require.NoError(t, err)
	assert.Contains(t, out, `Active profile set to "staging"`)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.CurrentProfile)

	_, _, err = runCLI(t, "config", "use-profile", "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "prod" not found`)
}

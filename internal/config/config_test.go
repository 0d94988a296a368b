package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SONAR_URL", "LOG_LEVEL", "LOG_FORMAT", "SONAR_CONNECT_ATTEMPTS", "SONAR_RATE_LIMIT"} {
		t.Setenv(k, "")
	}
	t.Setenv("ADMIN_PASSWORD", "")
	require.NoError(t, os.Unsetenv("ADMIN_PASSWORD"))
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("SONAR_URL", " http://sonar:9000 ")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("SONAR_CONNECT_ATTEMPTS", "30")
	t.Setenv("SONAR_RATE_LIMIT", "2.5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://sonar:9000", cfg.SonarURL)
	require.NotNil(t, cfg.AdminPassword)
	assert.Equal(t, "s3cret", *cfg.AdminPassword)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.JSONLogs())
	assert.Equal(t, 30, cfg.ConnectAttempts)
	assert.InDelta(t, 2.5, cfg.RateLimit, 0.0001)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Empty(t, cfg.SonarURL)
	assert.Nil(t, cfg.AdminPassword)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.JSONLogs())
	assert.Equal(t, DefaultConnectAttempts, cfg.ConnectAttempts)
	assert.Zero(t, cfg.RateLimit)
}

func TestLoadFromEnv_EmptyAdminPasswordIsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADMIN_PASSWORD", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NotNil(t, cfg.AdminPassword)
	assert.Empty(t, *cfg.AdminPassword)
}

func TestLoadFromEnv_Warnings(t *testing.T) {
	clearEnv(t)
	t.Setenv("SONAR_CONNECT_ATTEMPTS", "many")
	t.Setenv("SONAR_RATE_LIMIT", "fast")
	t.Setenv("LOG_FORMAT", "xml")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Len(t, cfg.Warnings, 3)
	assert.Equal(t, DefaultConnectAttempts, cfg.ConnectAttempts)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value, wantErr string
	}{
		{"zero attempts", "SONAR_CONNECT_ATTEMPTS", "0", "at least 1"},
		{"negative rate", "SONAR_RATE_LIMIT", "-1", "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nexport SETUP_TEST_A=\"quoted value\"\nSETUP_TEST_B='single'\nnot a pair\nSETUP_TEST_C = spaced \n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"SETUP_TEST_A", "SETUP_TEST_B", "SETUP_TEST_C"} {
			_ = os.Unsetenv(k)
		}
	})

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "quoted value", os.Getenv("SETUP_TEST_A"))
	assert.Equal(t, "single", os.Getenv("SETUP_TEST_B"))
	assert.Equal(t, "spaced", os.Getenv("SETUP_TEST_C"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("SETUP_TEST_PRECEDENCE", "from_env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SETUP_TEST_PRECEDENCE=from_file\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("SETUP_TEST_PRECEDENCE"))
}

func TestLoadDotEnv_EmptyEnvValueStillWins(t *testing.T) {
	t.Setenv("SETUP_TEST_EMPTY", "")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SETUP_TEST_EMPTY=from_file\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Empty(t, os.Getenv("SETUP_TEST_EMPTY"))
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "a", stripQuotes(`"a"`))
	assert.Equal(t, `"a'`, stripQuotes(`"a'`))
	assert.Equal(t, `"`, stripQuotes(`"`))
}

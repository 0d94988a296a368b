package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonar-setup/internal/domain"
	"sonar-setup/pkg/sonar"
)

// === version / completion ===

func TestVersion_Text(t *testing.T) {
	isolateEnv(t)
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sonar-setup version dev (commit: none)\n", out)
}

func TestVersion_JSON(t *testing.T) {
	isolateEnv(t)
	out, _, err := runCLI(t, "version", "-o", "json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "dev", got["version"])
	assert.Equal(t, "none", got["commit"])
}

func TestCompletion_Shells(t *testing.T) {
	isolateEnv(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, _, err := runCLI(t, "completion", shell)
			require.NoError(t, err)
			assert.Contains(t, out, "sonar-setup")
		})
	}
}

func TestCompletion_UnsupportedShell(t *testing.T) {
	isolateEnv(t)
	_, _, err := runCLI(t, "completion", "tcsh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported shell")
}

// === global flags ===

func TestRoot_InvalidOutputFormat(t *testing.T) {
	isolateEnv(t)
	_, _, err := runCLI(t, "version", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRoot_NegativeRateLimitFlag(t *testing.T) {
	isolateEnv(t)
	_, _, err := runCLI(t, "version", "--rate-limit", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestRoot_InvalidEnvIsFatal(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SONAR_CONNECT_ATTEMPTS", "0")
	_, _, err := runCLI(t, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRoot_EnvWarningsAreLogged(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SONAR_RATE_LIMIT", "fast")
	_, stderr, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stderr, "SONAR_RATE_LIMIT")
	assert.Contains(t, stderr, "level=WARN")
}

func TestRoot_JSONLogFormatFlag(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SONAR_RATE_LIMIT", "fast")
	_, stderr, err := runCLI(t, "version", "--log-format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"level":"WARN"`)
}

func TestRoot_ProfileOutputApplies(t *testing.T) {
	isolateEnv(t)
	writeProfile(t, &UserConfig{
		CurrentProfile: "default",
		Profiles:       map[string]Profile{"default": {Output: "json"}},
	})

	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)), "profile output format should apply: %s", out)

	out, _, err = runCLI(t, "version", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "sonar-setup version")
}

// === error reporting ===

func TestReportError_Text(t *testing.T) {
	var stdout, stderr bytes.Buffer
	reportError(&stdout, &stderr, "text", errors.New("boom"))
	assert.Empty(t, stdout.String())
	assert.Equal(t, "Error: boom\n", stderr.String())
}

func TestReportError_JSONWithAPIError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	apiErr := &sonar.APIError{HTTPStatus: 400, Messages: []string{"bad"}, Context: "create group"}
	reportError(&stdout, &stderr, "json", fmt.Errorf("reconcile: %w", apiErr))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "api", got["kind"])
	assert.Equal(t, float64(400), got["http_status"])
	assert.Equal(t, []interface{}{"bad"}, got["messages"])
	assert.Empty(t, stderr.String())
}

func TestReportError_JSONWithPrecheckError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	reportError(&stdout, &stderr, "json", &domain.PrecheckError{Violations: []string{"a", "b"}})

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "precheck", got["kind"])
	assert.Equal(t, []interface{}{"a", "b"}, got["violations"])
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrUnreachable("http://x", 3, nil), "unreachable"},
		{domain.ErrAuthentication("admin", 2), "authentication"},
		{&sonar.APIError{HTTPStatus: 500}, "api"},
		{domain.ErrDeserialization("decode", errors.New("eof")), "deserialization"},
		{fmt.Errorf("wrapped: %w", domain.ErrConfiguration("reserved")), "configuration"},
		{&domain.PrecheckError{Violations: []string{"x"}}, "precheck"},
		{fmt.Errorf("wait for server: %w", context.Canceled), "canceled"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, errorKind(tt.err))
		})
	}
}

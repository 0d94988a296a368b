package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolateEnv points HOME at an empty directory and clears every variable
// the CLI reads, so tests see neither the developer's profile nor their
// shell environment.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"SONAR_URL", "LOG_LEVEL", "LOG_FORMAT", "SONAR_CONNECT_ATTEMPTS", "SONAR_RATE_LIMIT"} {
		t.Setenv(k, "")
	}
	for _, k := range []string{"ADMIN_PASSWORD", "SONAR_ADMIN_PASSWORD", "BOB_PASSWORD"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// runCLI executes the root command with args and returns what it wrote.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	args = append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// writeConfig writes a configuration document and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o600))
	return path
}

// writeProfile writes ~/.sonar-setup/config.yaml under the isolated HOME.
func writeProfile(t *testing.T, cfg *UserConfig) {
	t.Helper()
	require.NoError(t, SaveUserConfig(cfg))
}

package cli

import (
	"fmt"
	"net/url"
	"strings"
)

// validateServerURL accepts an absolute http(s) URL. A path is allowed since
// SonarQube may be served under a web context such as /sonar.
func validateServerURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("invalid server URL %q: URL cannot be empty", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid server URL %q: URL must not include query or fragment", raw)
	}
	return nil
}

package sonar

import (
	"context"
	"errors"
	"net/http"

	"sonar-setup/internal/domain"
)

// Candidate is a password that may currently authenticate the client user.
// A nil Password is skipped.
type Candidate struct {
	Source   string // where the password came from, for logging only
	Password *string
}

// SpecificPassword is a candidate list made of exactly one password.
func SpecificPassword(password string) []Candidate {
	return []Candidate{{Source: "explicit", Password: &password}}
}

// PasswordOrFallback tries the target password first, then the fallback. It
// covers both a server already configured by a previous run and a fresh one.
func PasswordOrFallback(target, fallback *string) []Candidate {
	return []Candidate{
		{Source: "target", Password: target},
		{Source: "fallback", Password: fallback},
	}
}

// ResolvePassword tries each present candidate in order against the
// authentication validation endpoint and keeps the first one the server
// reports as valid. Rejected candidates and failed calls are skipped. When
// none validates it returns an *domain.AuthenticationError.
func (c *Client) ResolvePassword(ctx context.Context, candidates []Candidate) error {
	tried := 0
	for _, cand := range candidates {
		if cand.Password == nil {
			continue
		}
		tried++

		valid, err := c.validate(ctx, *cand.Password)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Logger.Debug("password candidate skipped", "source", cand.Source, "error", err)
			continue
		}
		if !valid {
			c.Logger.Debug("password candidate rejected", "source", cand.Source)
			continue
		}

		c.Logger.Info("authenticated", "username", c.username, "source", cand.Source)
		c.SetPassword(*cand.Password)
		return nil
	}
	return domain.ErrAuthentication(c.username, tried)
}

func (c *Client) validate(ctx context.Context, password string) (bool, error) {
	resp, err := c.send(ctx, http.MethodGet, PathAuthenticationValidate, nil,
		&basicAuth{username: c.username, password: password})
	if err != nil {
		return false, err
	}
	var out AuthenticationValidation
	if err := decodeResponse(resp, "validate credentials", &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			return false, nil
		}
		return false, err
	}
	return out.Valid, nil
}

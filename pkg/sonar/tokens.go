package sonar

import (
	"context"
	"fmt"

	"sonar-setup/internal/domain"
)

// GenerateToken mints a user token called name for login and returns it.
func (c *Client) GenerateToken(ctx context.Context, login, name string) (string, error) {
	var out GeneratedToken
	op := fmt.Sprintf("generate token %q for user %q", name, login)
	if err := c.postJSON(ctx, PathTokensGenerate, []Param{P("login", login), P("name", name)}, op, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", domain.ErrDeserialization(op, fmt.Errorf("response carries no token"))
	}
	return out.Token, nil
}

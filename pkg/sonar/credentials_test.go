package sonar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sonar-setup/internal/domain"
	"sonar-setup/internal/testutil/fakesonar"
)

func strPtr(s string) *string { return &s }

func TestResolvePassword_FirstValidWins(t *testing.T) {
	fake := fakesonar.New(t)
	c := NewClient(fake.URL, "admin", "")

	err := c.ResolvePassword(context.Background(), PasswordOrFallback(strPtr("target"), strPtr(fakesonar.AdminPassword)))
	require.NoError(t, err)
	assert.Equal(t, fakesonar.AdminPassword, c.Password())
	assert.Len(t, fake.CallsTo(PathAuthenticationValidate), 2)
}

func TestResolvePassword_StopsAtFirstValid(t *testing.T) {
	fake := fakesonar.New(t)
	c := NewClient(fake.URL, "admin", "")

	candidates := []Candidate{
		{Source: "a", Password: strPtr("nope")},
		{Source: "b", Password: strPtr(fakesonar.AdminPassword)},
		{Source: "c", Password: strPtr("never-tried")},
	}
	require.NoError(t, c.ResolvePassword(context.Background(), candidates))
	assert.Equal(t, fakesonar.AdminPassword, c.Password())
	assert.Len(t, fake.CallsTo(PathAuthenticationValidate), 2)
}

func TestResolvePassword_SkipsAbsentCandidates(t *testing.T) {
	fake := fakesonar.New(t)
	c := NewClient(fake.URL, "admin", "")

	require.NoError(t, c.ResolvePassword(context.Background(), PasswordOrFallback(nil, strPtr(fakesonar.AdminPassword))))
	assert.Len(t, fake.CallsTo(PathAuthenticationValidate), 1)
}

func TestResolvePassword_NoneValid(t *testing.T) {
	fake := fakesonar.New(t)
	c := NewClient(fake.URL, "admin", "held")

	err := c.ResolvePassword(context.Background(), PasswordOrFallback(strPtr("x"), strPtr("y")))
	var ae *domain.AuthenticationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "admin", ae.Username)
	assert.Equal(t, 2, ae.Tried)
	assert.Equal(t, "held", c.Password(), "held password must not change")
	assert.Contains(t, err.Error(), "please check its credentials")
}

func TestResolvePassword_NoCandidates(t *testing.T) {
	fake := fakesonar.New(t)
	c := NewClient(fake.URL, "admin", "")

	err := c.ResolvePassword(context.Background(), nil)
	var ae *domain.AuthenticationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 0, ae.Tried)
	assert.Empty(t, fake.Calls())
}

func TestResolvePassword_SpecificPassword(t *testing.T) {
	fake := fakesonar.New(t)
	fake.AddUser("ci", "CI", "ci-pass")
	c := NewClient(fake.URL, "ci", "")

	require.NoError(t, c.ResolvePassword(context.Background(), SpecificPassword("ci-pass")))
	call := fake.CallsTo(PathAuthenticationValidate)[0]
	assert.Equal(t, "ci", call.Username)
}

func TestGenerateToken(t *testing.T) {
	fake := fakesonar.New(t)
	c := NewClient(fake.URL, fakesonar.AdminLogin, fakesonar.AdminPassword)

	token, err := c.GenerateToken(context.Background(), "admin", "ci")
	require.NoError(t, err)
	assert.Equal(t, "squ_admin_ci", token)

	_, err = c.GenerateToken(context.Background(), "admin", "ci")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "already exists")
}

func TestGenerateToken_UnknownUser(t *testing.T) {
	fake := fakesonar.New(t)
	c := NewClient(fake.URL, fakesonar.AdminLogin, fakesonar.AdminPassword)

	_, err := c.GenerateToken(context.Background(), "ghost", "ci")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsNotFound())
}

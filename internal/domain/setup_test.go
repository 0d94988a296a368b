package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupDesired_HasPermission(t *testing.T) {
	g := GroupDesired{Name: "qa", Permissions: []string{"admin", "scan"}}
	assert.True(t, g.HasPermission("admin"))
	assert.True(t, g.HasPermission("scan"))
	assert.False(t, g.HasPermission("codeviewer"))
}

func TestUserDesired_InGroup(t *testing.T) {
	u := UserDesired{Login: "jdoe", Groups: []string{"qa"}}
	assert.True(t, u.InGroup("qa"))
	assert.False(t, u.InGroup("sonar-users"))
}

func TestDesiredState_IsEmpty(t *testing.T) {
	assert.True(t, (&DesiredState{}).IsEmpty())
	assert.False(t, (&DesiredState{Admin: &AdminDesired{}}).IsEmpty())
	assert.False(t, (&DesiredState{Properties: []PropertyDesired{{Name: "a", Value: "b"}}}).IsEmpty())
}

func TestPaging_RequireComplete(t *testing.T) {
	tests := []struct {
		name     string
		paging   Paging
		returned int
		wantErr  bool
	}{
		{name: "single page", paging: Paging{PageIndex: 1, PageSize: 500, Total: 3}, returned: 3},
		{name: "empty", paging: Paging{PageIndex: 1, PageSize: 500, Total: 0}, returned: 0},
		{name: "page size equals total", paging: Paging{PageIndex: 1, PageSize: 2, Total: 2}, returned: 2},
		{name: "truncated", paging: Paging{PageIndex: 1, PageSize: 2, Total: 5}, returned: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.paging.RequireComplete(tt.returned, "groups of user \"jdoe\"")
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, err.Error(), "pagination of groups of user \"jdoe\" is not supported")
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")
	unreachable := ErrUnreachable("http://sonar:9000", 3, cause)
	assert.Equal(t, "server http://sonar:9000 unreachable after 3 attempt(s): connection refused", unreachable.Error())
	assert.ErrorIs(t, unreachable, cause)

	auth := ErrAuthentication("admin", 2)
	assert.Contains(t, auth.Error(), `cannot authenticate user "admin"`)

	deser := ErrDeserialization("search users", cause)
	assert.Contains(t, deser.Error(), "search users: unexpected response body")

	single := &PrecheckError{Violations: []string{"users[0]: login is required"}}
	assert.Equal(t, "configuration precheck failed: users[0]: login is required", single.Error())

	multi := &PrecheckError{Violations: []string{"a", "b"}}
	assert.Contains(t, multi.Error(), "2 violation(s)")
}

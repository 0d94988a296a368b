package sonar

import (
	"context"
	"fmt"
	"strconv"

	"sonar-setup/internal/domain"
)

// Endpoints of the administrative API.
const (
	PathServerVersion          = "/api/server/version"
	PathAuthenticationValidate = "/api/authentication/validate"
	PathSettingsSet            = "/api/settings/set"
	PathGroupsSearch           = "/api/user_groups/search"
	PathGroupsCreate           = "/api/user_groups/create"
	PathGroupsUpdate           = "/api/user_groups/update"
	PathGroupsAddUser          = "/api/user_groups/add_user"
	PathGroupsRemoveUser       = "/api/user_groups/remove_user"
	PathTemplatesSearch        = "/api/permissions/search_templates"
	PathTemplateAddGroup       = "/api/permissions/add_group_to_template"
	PathTemplateRemoveGroup    = "/api/permissions/remove_group_from_template"
	PathUsersSearch            = "/api/users/search"
	PathUsersCreate            = "/api/users/create"
	PathUsersUpdate            = "/api/users/update"
	PathUsersChangePassword    = "/api/users/change_password"
	PathUsersGroups            = "/api/users/groups"
	PathTokensGenerate         = "/api/user_tokens/generate"
)

var pageSizeParam = P("ps", strconv.Itoa(domain.MaxPageSize))

// SetSetting sets a server setting. The call is idempotent on the server.
func (c *Client) SetSetting(ctx context.Context, key, value string) error {
	return c.post(ctx, PathSettingsSet, []Param{P("key", key), P("value", value)},
		fmt.Sprintf("set property %q", key))
}

// SearchGroups runs the fuzzy group search for q.
func (c *Client) SearchGroups(ctx context.Context, q string) (*GroupList, error) {
	var out GroupList
	op := fmt.Sprintf("search groups %q", q)
	if err := c.getJSON(ctx, PathGroupsSearch, []Param{P("q", q), pageSizeParam}, op, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindGroup returns the group named exactly name, or nil when it does not exist.
func (c *Client) FindGroup(ctx context.Context, name string) (*Group, error) {
	list, err := c.SearchGroups(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range list.Groups {
		if list.Groups[i].Name == name {
			return &list.Groups[i], nil
		}
	}
	if err := list.Paging.RequireComplete(len(list.Groups), fmt.Sprintf("group search %q", name)); err != nil {
		return nil, err
	}
	return nil, nil
}

// CreateGroup creates a group.
func (c *Client) CreateGroup(ctx context.Context, name, description string) error {
	return c.post(ctx, PathGroupsCreate, []Param{P("name", name), P("description", description)},
		fmt.Sprintf("create group %q", name))
}

// UpdateGroupDescription updates the description of the group with the given id.
func (c *Client) UpdateGroupDescription(ctx context.Context, id GroupID, description string) error {
	return c.post(ctx, PathGroupsUpdate, []Param{P("id", string(id)), P("description", description)},
		fmt.Sprintf("update group %s", id))
}

// SearchPermissionTemplates returns the templates matching q together with the
// full permission catalog.
func (c *Client) SearchPermissionTemplates(ctx context.Context, q string) (*PermissionTemplates, error) {
	var out PermissionTemplates
	if err := c.getJSON(ctx, PathTemplatesSearch, []Param{P("q", q)}, "search permission templates", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddGroupToTemplate binds permission to group in template. Idempotent.
func (c *Client) AddGroupToTemplate(ctx context.Context, templateID, group, permission string) error {
	return c.post(ctx, PathTemplateAddGroup,
		[]Param{P("groupName", group), P("permission", permission), P("templateId", templateID)},
		fmt.Sprintf("add permission %q to group %q", permission, group))
}

// RemoveGroupFromTemplate unbinds permission from group in template. Idempotent.
func (c *Client) RemoveGroupFromTemplate(ctx context.Context, templateID, group, permission string) error {
	return c.post(ctx, PathTemplateRemoveGroup,
		[]Param{P("groupName", group), P("permission", permission), P("templateId", templateID)},
		fmt.Sprintf("remove permission %q from group %q", permission, group))
}

// SearchUsers runs the fuzzy user search for q.
func (c *Client) SearchUsers(ctx context.Context, q string) (*UserList, error) {
	var out UserList
	op := fmt.Sprintf("search users %q", q)
	if err := c.getJSON(ctx, PathUsersSearch, []Param{P("q", q), pageSizeParam}, op, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindUser returns the user whose login is exactly login, or nil.
func (c *Client) FindUser(ctx context.Context, login string) (*User, error) {
	list, err := c.SearchUsers(ctx, login)
	if err != nil {
		return nil, err
	}
	for i := range list.Users {
		if list.Users[i].Login == login {
			return &list.Users[i], nil
		}
	}
	if err := list.Paging.RequireComplete(len(list.Users), fmt.Sprintf("user search %q", login)); err != nil {
		return nil, err
	}
	return nil, nil
}

// CreateUser creates a local user.
func (c *Client) CreateUser(ctx context.Context, login, name, password string) error {
	return c.post(ctx, PathUsersCreate,
		[]Param{P("login", login), P("name", name), P("password", password)},
		fmt.Sprintf("create user %q", login))
}

// UpdateUser updates the display name of a user.
func (c *Client) UpdateUser(ctx context.Context, login, name string) error {
	return c.post(ctx, PathUsersUpdate, []Param{P("login", login), P("name", name)},
		fmt.Sprintf("update user %q", login))
}

// ChangePassword sets the password of another user. It requires administer
// rights and no previous password.
func (c *Client) ChangePassword(ctx context.Context, login, password string) error {
	return c.post(ctx, PathUsersChangePassword, []Param{P("login", login), P("password", password)},
		fmt.Sprintf("change password of user %q", login))
}

// ChangeOwnPassword changes the password of the authenticated user and, on
// success, updates the credentials held by the client.
func (c *Client) ChangeOwnPassword(ctx context.Context, password string) error {
	err := c.post(ctx, PathUsersChangePassword,
		[]Param{P("login", c.username), P("password", password), P("previousPassword", c.password)},
		fmt.Sprintf("change password of user %q", c.username))
	if err != nil {
		return err
	}
	c.SetPassword(password)
	return nil
}

// UserGroups returns the groups login currently belongs to. A listing spread
// over several pages is refused.
func (c *Client) UserGroups(ctx context.Context, login string) (*UserGroups, error) {
	var out UserGroups
	op := fmt.Sprintf("list groups of user %q", login)
	if err := c.getJSON(ctx, PathUsersGroups, []Param{P("login", login), pageSizeParam}, op, &out); err != nil {
		return nil, err
	}
	if err := out.Paging.RequireComplete(len(out.Groups), fmt.Sprintf("groups of user %q", login)); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddUserToGroup adds login to group.
func (c *Client) AddUserToGroup(ctx context.Context, login, group string) error {
	return c.post(ctx, PathGroupsAddUser, []Param{P("login", login), P("name", group)},
		fmt.Sprintf("add user %q to group %q", login, group))
}

// RemoveUserFromGroup removes login from group.
func (c *Client) RemoveUserFromGroup(ctx context.Context, login, group string) error {
	return c.post(ctx, PathGroupsRemoveUser, []Param{P("login", login), P("name", group)},
		fmt.Sprintf("remove user %q from group %q", login, group))
}

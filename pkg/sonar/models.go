package sonar

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sonar-setup/internal/domain"
)

// GroupID is a group identifier. Older servers return a number, newer ones a
// string; both decode into the same value.
type GroupID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *GroupID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = GroupID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("group id: %w", err)
	}
	*id = GroupID(n.String())
	return nil
}

// User is a user as reported by users/search.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// UserList is the users/search response.
type UserList struct {
	Paging domain.Paging `json:"paging"`
	Users  []User        `json:"users"`
}

// Group is a group as reported by user_groups/search.
type Group struct {
	ID          GroupID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// GroupList is the user_groups/search response.
type GroupList struct {
	Paging domain.Paging `json:"paging"`
	Groups []Group       `json:"groups"`
}

// Membership is one entry of users/groups.
type Membership struct {
	ID          GroupID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Selected    bool    `json:"selected"`
	Default     bool    `json:"default"`
}

// UserGroups is the users/groups response.
type UserGroups struct {
	Paging domain.Paging `json:"paging"`
	Groups []Membership  `json:"groups"`
}

// Names returns the group names in response order.
func (g UserGroups) Names() []string {
	names := make([]string, 0, len(g.Groups))
	for _, m := range g.Groups {
		names = append(names, m.Name)
	}
	return names
}

// PermissionTemplates is the permissions/search_templates response.
type PermissionTemplates struct {
	Templates        []PermissionTemplate `json:"permissionTemplates"`
	DefaultTemplates []DefaultTemplate    `json:"defaultTemplates"`
	Permissions      []Permission         `json:"permissions"`
}

// PermissionTemplate is a named set of permission bindings.
type PermissionTemplate struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Permissions []TemplatePermission `json:"permissions"`
}

// TemplatePermission is a permission key held by a template.
type TemplatePermission struct {
	Key string `json:"key"`
}

// DefaultTemplate maps a qualifier to the template applied by default.
type DefaultTemplate struct {
	TemplateID string `json:"templateId"`
	Qualifier  string `json:"qualifier"`
}

// Permission is one entry of the permission catalog.
type Permission struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Template returns the template whose id or name is idOrName.
func (p PermissionTemplates) Template(idOrName string) (PermissionTemplate, bool) {
	for _, t := range p.Templates {
		if t.ID == idOrName || t.Name == idOrName {
			return t, true
		}
	}
	return PermissionTemplate{}, false
}

// Keys returns every permission key of the catalog.
func (p PermissionTemplates) Keys() []string {
	keys := make([]string, 0, len(p.Permissions))
	for _, perm := range p.Permissions {
		keys = append(keys, perm.Key)
	}
	return keys
}

// GeneratedToken is the user_tokens/generate response.
type GeneratedToken struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// AuthenticationValidation is the authentication/validate response.
type AuthenticationValidation struct {
	Valid bool `json:"valid"`
}

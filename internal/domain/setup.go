package domain

// PropertyDesired is a server setting identified by its key.
type PropertyDesired struct {
	Name  string
	Value string
}

// GroupDesired is a group and the complete set of permissions it must hold
// in the default permission template. Anything not listed is revoked.
type GroupDesired struct {
	Name        string
	Description string
	Permissions []string
}

// HasPermission reports whether key is part of the desired permission set.
func (g GroupDesired) HasPermission(key string) bool {
	for _, p := range g.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// UserDesired is a local account identified by its login. Groups is the
// complete desired membership.
type UserDesired struct {
	Login    string
	Name     string
	Password *string // nil keeps the current password of an existing user
	Groups   []string
}

// InGroup reports whether the user is desired to be a member of name.
func (u UserDesired) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// AdminDesired targets the built-in administrator account only.
type AdminDesired struct {
	Password *string
}

// DesiredState is the fully substituted configuration document.
type DesiredState struct {
	Admin      *AdminDesired
	Properties []PropertyDesired
	Groups     []GroupDesired
	Users      []UserDesired
}

// IsEmpty reports whether the document declares nothing to reconcile.
func (s *DesiredState) IsEmpty() bool {
	return s.Admin == nil && len(s.Properties) == 0 && len(s.Groups) == 0 && len(s.Users) == 0
}

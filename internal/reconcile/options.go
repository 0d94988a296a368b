package reconcile

import "fmt"

// Built-in identities of a SonarQube installation.
const (
	DefaultAdminLogin          = "admin"
	DefaultAdminPassword       = "admin"
	DefaultGroupName           = "sonar-users"
	DefaultTemplateID          = "default_template"
	DefaultInitialUserPassword = "password"
)

// MembershipMode selects how held group memberships are compared with the
// desired ones.
type MembershipMode int

const (
	// MembershipExact removes every held group that is not desired and adds
	// every desired group that is not held.
	MembershipExact MembershipMode = iota
	// MembershipLegacy removes held groups that are desired and adds desired
	// groups that are not held. It reproduces the behavior of the first
	// generation of this tool and must be chosen explicitly.
	MembershipLegacy
)

// String returns the flag value for the mode.
func (m MembershipMode) String() string {
	switch m {
	case MembershipExact:
		return "exact"
	case MembershipLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseMembershipMode parses "exact" or "legacy".
func ParseMembershipMode(s string) (MembershipMode, error) {
	switch s {
	case "exact", "":
		return MembershipExact, nil
	case "legacy":
		return MembershipLegacy, nil
	default:
		return 0, fmt.Errorf("invalid membership mode %q (expected exact or legacy)", s)
	}
}

// Options configures an Engine. Zero fields take the defaults above.
type Options struct {
	AdminLogin          string
	DefaultGroup        string // never removed from a user
	DefaultTemplate     string // permission template holding group bindings
	DefaultUserPassword string // initial password of users created without one
	Membership          MembershipMode
	DryRun              bool // read remote state and record actions, mutate nothing
}

// DefaultOptions returns the options matching a stock installation.
func DefaultOptions() Options {
	return Options{
		AdminLogin:          DefaultAdminLogin,
		DefaultGroup:        DefaultGroupName,
		DefaultTemplate:     DefaultTemplateID,
		DefaultUserPassword: DefaultInitialUserPassword,
		Membership:          MembershipExact,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AdminLogin == "" {
		o.AdminLogin = d.AdminLogin
	}
	if o.DefaultGroup == "" {
		o.DefaultGroup = d.DefaultGroup
	}
	if o.DefaultTemplate == "" {
		o.DefaultTemplate = d.DefaultTemplate
	}
	if o.DefaultUserPassword == "" {
		o.DefaultUserPassword = d.DefaultUserPassword
	}
	return o
}

package declarative

import (
	"fmt"
	"os"

	"github.com/drone/envsubst"

	"sonar-setup/internal/domain"
)

// Resolver expands the placeholders of one string.
type Resolver func(s string) (string, error)

// EnvResolver expands ${VAR} placeholders with lookup. Shell-style modifiers
// such as ${VAR:-default} are honored; a plain ${VAR} whose variable is not
// defined is an error. A bare $VAR is left as is, and $$ yields a literal $.
func EnvResolver(lookup func(string) (string, bool)) Resolver {
	return func(s string) (string, error) {
		for _, name := range requiredVariables(s) {
			if _, ok := lookup(name); !ok {
				return "", fmt.Errorf("variable %q is not defined", name)
			}
		}
		out, err := envsubst.Eval(s, func(name string) string {
			v, _ := lookup(name)
			return v
		})
		if err != nil {
			return "", fmt.Errorf("substitute: %w", err)
		}
		return out, nil
	}
}

// ProcessEnv resolves placeholders against the process environment.
func ProcessEnv() Resolver {
	return EnvResolver(os.LookupEnv)
}

// requiredVariables returns the names of the ${VAR} placeholders in s that
// carry no modifier.
func requiredVariables(s string) []string {
	var names []string
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 >= len(s) {
			continue
		}
		next := s[i+1]
		switch {
		case next == '$':
			i++
		case next == '{':
			j := i + 2
			for j < len(s) && isNameByte(s[j], j == i+2) {
				j++
			}
			if j > i+2 && j < len(s) && s[j] == '}' {
				names = append(names, s[i+2:j])
			}
			i = j - 1
		}
	}
	return names
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	default:
		return false
	}
}

// Resolve expands every string of doc with resolve and builds the desired
// state. The first unresolved placeholder is reported as a
// *domain.ConfigurationError naming the field.
func Resolve(doc *ConfigurationFile, resolve Resolver) (*domain.DesiredState, error) {
	r := resolver{resolve: resolve}
	state := &domain.DesiredState{}

	if doc.Admin != nil {
		state.Admin = &domain.AdminDesired{Password: r.optional("admin.password", doc.Admin.Password)}
	}
	for i, p := range doc.Properties {
		path := fmt.Sprintf("properties[%d]", i)
		state.Properties = append(state.Properties, domain.PropertyDesired{
			Name:  r.str(path+".name", p.Name),
			Value: r.str(path+".value", p.Value),
		})
	}
	for i, g := range doc.Groups {
		path := fmt.Sprintf("groups[%d]", i)
		state.Groups = append(state.Groups, domain.GroupDesired{
			Name:        r.str(path+".name", g.Name),
			Description: r.str(path+".description", g.Description),
			Permissions: r.list(path+".permissions", g.Permissions),
		})
	}
	for i, u := range doc.Users {
		path := fmt.Sprintf("users[%d]", i)
		state.Users = append(state.Users, domain.UserDesired{
			Login:    r.str(path+".login", u.Login),
			Name:     r.str(path+".name", u.Name),
			Password: r.optional(path+".password", u.Password),
			Groups:   r.list(path+".groups", u.Groups),
		})
	}

	if r.err != nil {
		return nil, r.err
	}
	return state, nil
}

// resolver keeps the first error so Resolve reads as a plain mapping.
type resolver struct {
	resolve Resolver
	err     error
}

func (r *resolver) str(path, s string) string {
	if r.err != nil {
		return ""
	}
	out, err := r.resolve(s)
	if err != nil {
		r.err = domain.ErrConfiguration("%s: %v", path, err)
		return ""
	}
	return out
}

func (r *resolver) optional(path string, s *string) *string {
	if s == nil {
		return nil
	}
	out := r.str(path, *s)
	return &out
}

func (r *resolver) list(path string, in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for i, s := range in {
		out = append(out, r.str(fmt.Sprintf("%s[%d]", path, i), s))
	}
	return out
}

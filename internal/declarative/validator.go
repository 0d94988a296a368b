package declarative

import (
	"fmt"

	"sonar-setup/internal/domain"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	Path    string // e.g. "groups[1]" or "users[0].groups[2]"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Validate checks the structure of a resolved desired state: required names,
// duplicate entries, and duplicate list items. It needs no server.
func Validate(state *domain.DesiredState) []ValidationError {
	var errs []ValidationError
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	seenProps := map[string]int{}
	for i, p := range state.Properties {
		path := fmt.Sprintf("properties[%d]", i)
		if p.Name == "" {
			add(path, "name is required")
			continue
		}
		if prev, ok := seenProps[p.Name]; ok {
			add(path, "duplicate property %q (first declared at properties[%d])", p.Name, prev)
			continue
		}
		seenProps[p.Name] = i
	}

	seenGroups := map[string]int{}
	for i, g := range state.Groups {
		path := fmt.Sprintf("groups[%d]", i)
		if g.Name == "" {
			add(path, "name is required")
		} else if prev, ok := seenGroups[g.Name]; ok {
			add(path, "duplicate group %q (first declared at groups[%d])", g.Name, prev)
		} else {
			seenGroups[g.Name] = i
		}
		checkList(path+".permissions", "permission", g.Permissions, add)
	}

	seenUsers := map[string]int{}
	for i, u := range state.Users {
		path := fmt.Sprintf("users[%d]", i)
		if u.Login == "" {
			add(path, "login is required")
		} else if prev, ok := seenUsers[u.Login]; ok {
			add(path, "duplicate user %q (first declared at users[%d])", u.Login, prev)
		} else {
			seenUsers[u.Login] = i
		}
		if u.Name == "" {
			add(path, "name is required")
		}
		checkList(path+".groups", "group", u.Groups, add)
	}

	return errs
}

func checkList(path, what string, items []string, add func(string, string, ...interface{})) {
	seen := map[string]bool{}
	for j, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, j)
		if item == "" {
			add(itemPath, "empty %s", what)
			continue
		}
		if seen[item] {
			add(itemPath, "duplicate %s %q", what, item)
		}
		seen[item] = true
	}
}

// Precheck runs Validate and folds its findings into a *domain.PrecheckError.
func Precheck(state *domain.DesiredState) error {
	errs := Validate(state)
	if len(errs) == 0 {
		return nil
	}
	violations := make([]string, 0, len(errs))
	for _, e := range errs {
		violations = append(violations, e.Error())
	}
	return &domain.PrecheckError{Violations: violations}
}

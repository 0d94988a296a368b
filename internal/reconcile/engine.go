// Package reconcile drives a SonarQube server toward a desired state.
//
// Each entity kind has its own idempotent operation. Apply runs them in the
// order properties, groups, users, admin, strictly one call at a time, and
// stops at the first error. Nothing is rolled back: running again after
// fixing the cause is the recovery path.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"sonar-setup/internal/declarative"
	"sonar-setup/internal/domain"
	"sonar-setup/pkg/sonar"
)

// API is the subset of *sonar.Client the engine drives.
type API interface {
	Password() string

	SetSetting(ctx context.Context, key, value string) error

	FindGroup(ctx context.Context, name string) (*sonar.Group, error)
	CreateGroup(ctx context.Context, name, description string) error
	UpdateGroupDescription(ctx context.Context, id sonar.GroupID, description string) error
	SearchPermissionTemplates(ctx context.Context, q string) (*sonar.PermissionTemplates, error)
	AddGroupToTemplate(ctx context.Context, templateID, group, permission string) error
	RemoveGroupFromTemplate(ctx context.Context, templateID, group, permission string) error

	FindUser(ctx context.Context, login string) (*sonar.User, error)
	CreateUser(ctx context.Context, login, name, password string) error
	UpdateUser(ctx context.Context, login, name string) error
	ChangePassword(ctx context.Context, login, password string) error
	ChangeOwnPassword(ctx context.Context, password string) error
	UserGroups(ctx context.Context, login string) (*sonar.UserGroups, error)
	AddUserToGroup(ctx context.Context, login, group string) error
	RemoveUserFromGroup(ctx context.Context, login, group string) error
}

var _ API = (*sonar.Client)(nil)

// Engine reconciles one server. It is not safe for concurrent use.
type Engine struct {
	api    API
	opts   Options
	logger *slog.Logger
	plan   *declarative.Plan
}

// New creates an engine. A nil logger discards output.
func New(api API, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()
	return &Engine{
		api:    api,
		opts:   opts,
		logger: logger,
		plan:   &declarative.Plan{DryRun: opts.DryRun},
	}
}

// Plan returns the actions recorded so far.
func (e *Engine) Plan() *declarative.Plan {
	return e.plan
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Apply reconciles properties, groups, users and finally the admin password.
// Reserved logins are rejected before the first call.
func (e *Engine) Apply(ctx context.Context, state *domain.DesiredState) error {
	if err := CheckReserved(state, e.opts.AdminLogin); err != nil {
		return err
	}

	for _, p := range state.Properties {
		if err := e.SetProperty(ctx, p); err != nil {
			return err
		}
	}
	for _, g := range state.Groups {
		if err := e.ReconcileGroup(ctx, g); err != nil {
			return err
		}
	}
	for _, u := range state.Users {
		if err := e.ReconcileUser(ctx, u); err != nil {
			return err
		}
	}
	if state.Admin != nil {
		if err := e.ReconcileAdmin(ctx, *state.Admin); err != nil {
			return err
		}
	}
	return nil
}

// CheckReserved rejects user entries that collide with the admin login.
func CheckReserved(state *domain.DesiredState, adminLogin string) error {
	for _, u := range state.Users {
		if err := checkLogin(u.Login, adminLogin); err != nil {
			return err
		}
	}
	return nil
}

func checkLogin(login, adminLogin string) error {
	if login == adminLogin {
		return domain.ErrConfiguration(
			"user %q is reserved: the admin account is managed through the admin section only", login)
	}
	return nil
}

// mutate runs call unless this is a dry run, and records the action once it
// succeeded or was skipped. A failed call is not recorded.
func (e *Engine) mutate(op declarative.Operation, kind declarative.ResourceKind, name, detail string, call func() error) error {
	if e.opts.DryRun {
		e.logger.Debug("dry run: skipped", "operation", op.String(), "kind", kind.String(), "name", name, "detail", detail)
		e.plan.Record(op, kind, name, detail)
		return nil
	}
	if err := call(); err != nil {
		return err
	}
	e.plan.Record(op, kind, name, detail)
	return nil
}

// SetProperty forces a server setting. No existence check is made.
func (e *Engine) SetProperty(ctx context.Context, p domain.PropertyDesired) error {
	e.logger.Info("setting property", "name", p.Name)
	return e.mutate(declarative.OpSet, declarative.KindProperty, p.Name, "", func() error {
		return e.api.SetSetting(ctx, p.Name, p.Value)
	})
}

// ReconcileGroup creates or updates a group, then makes its bindings in the
// default permission template exactly g.Permissions.
func (e *Engine) ReconcileGroup(ctx context.Context, g domain.GroupDesired) error {
	log := e.logger.With("group", g.Name)

	remote, err := e.api.FindGroup(ctx, g.Name)
	if err != nil {
		return fmt.Errorf("reconcile group %q: %w", g.Name, err)
	}
	if remote == nil {
		log.Info("creating group")
		err = e.mutate(declarative.OpCreate, declarative.KindGroup, g.Name, "", func() error {
			return e.api.CreateGroup(ctx, g.Name, g.Description)
		})
	} else {
		log.Info("updating group", "id", remote.ID)
		err = e.mutate(declarative.OpUpdate, declarative.KindGroup, g.Name, "", func() error {
			return e.api.UpdateGroupDescription(ctx, remote.ID, g.Description)
		})
	}
	if err != nil {
		return err
	}

	return e.syncPermissions(ctx, g, log)
}

func (e *Engine) syncPermissions(ctx context.Context, g domain.GroupDesired, log *slog.Logger) error {
	templates, err := e.api.SearchPermissionTemplates(ctx, e.opts.DefaultTemplate)
	if err != nil {
		return fmt.Errorf("reconcile permissions of group %q: %w", g.Name, err)
	}
	// The server filters templates by name, so the configured id is usually
	// absent from the listing. It is sent as is unless a listed template
	// matches it by name.
	templateID := e.opts.DefaultTemplate
	if tmpl, ok := templates.Template(e.opts.DefaultTemplate); ok {
		templateID = tmpl.ID
	}

	catalog := templates.Keys()
	known := make(map[string]bool, len(catalog))
	for _, key := range catalog {
		known[key] = true
	}
	for _, p := range g.Permissions {
		if !known[p] {
			log.Warn("permission not in server catalog, ignored", "permission", p)
		}
	}

	for _, key := range catalog {
		if g.HasPermission(key) {
			err = e.mutate(declarative.OpAdd, declarative.KindPermission, g.Name, key, func() error {
				return e.api.AddGroupToTemplate(ctx, templateID, g.Name, key)
			})
		} else {
			err = e.mutate(declarative.OpRemove, declarative.KindPermission, g.Name, key, func() error {
				return e.api.RemoveGroupFromTemplate(ctx, templateID, g.Name, key)
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReconcileUser creates or updates a local user, then synchronizes its group
// memberships according to the membership mode.
func (e *Engine) ReconcileUser(ctx context.Context, u domain.UserDesired) error {
	if err := checkLogin(u.Login, e.opts.AdminLogin); err != nil {
		return err
	}
	log := e.logger.With("user", u.Login)

	remote, err := e.api.FindUser(ctx, u.Login)
	if err != nil {
		return fmt.Errorf("reconcile user %q: %w", u.Login, err)
	}

	created := remote == nil
	if created {
		password := e.opts.DefaultUserPassword
		if u.Password != nil {
			password = *u.Password
		} else {
			log.Warn("user created with the default initial password")
		}
		log.Info("creating user")
		err = e.mutate(declarative.OpCreate, declarative.KindUser, u.Login, "", func() error {
			return e.api.CreateUser(ctx, u.Login, u.Name, password)
		})
		if err != nil {
			return err
		}
	} else {
		log.Info("updating user")
		err = e.mutate(declarative.OpUpdate, declarative.KindUser, u.Login, "", func() error {
			return e.api.UpdateUser(ctx, u.Login, u.Name)
		})
		if err != nil {
			return err
		}
		if u.Password != nil {
			err = e.mutate(declarative.OpChangePassword, declarative.KindUser, u.Login, "", func() error {
				return e.api.ChangePassword(ctx, u.Login, *u.Password)
			})
			if err != nil {
				return err
			}
		}
	}

	held, err := e.heldGroups(ctx, u.Login, created)
	if err != nil {
		return err
	}
	return e.syncMemberships(ctx, u, held, log)
}

// heldGroups lists the current memberships of login. A user that a dry run
// only pretended to create holds the default group alone.
func (e *Engine) heldGroups(ctx context.Context, login string, created bool) ([]string, error) {
	if created && e.opts.DryRun {
		return []string{e.opts.DefaultGroup}, nil
	}
	groups, err := e.api.UserGroups(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("reconcile user %q: %w", login, err)
	}
	return groups.Names(), nil
}

func (e *Engine) syncMemberships(ctx context.Context, u domain.UserDesired, held []string, log *slog.Logger) error {
	holds := make(map[string]bool, len(held))
	for _, name := range held {
		holds[name] = true
	}

	for _, name := range held {
		if name == e.opts.DefaultGroup || !e.shouldRemove(u, name) {
			continue
		}
		log.Info("removing membership", "group", name)
		err := e.mutate(declarative.OpRemove, declarative.KindMembership, u.Login, name, func() error {
			return e.api.RemoveUserFromGroup(ctx, u.Login, name)
		})
		if err != nil {
			return err
		}
	}

	for _, name := range u.Groups {
		if holds[name] {
			continue
		}
		log.Info("adding membership", "group", name)
		err := e.mutate(declarative.OpAdd, declarative.KindMembership, u.Login, name, func() error {
			return e.api.AddUserToGroup(ctx, u.Login, name)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) shouldRemove(u domain.UserDesired, held string) bool {
	if e.opts.Membership == MembershipLegacy {
		return u.InGroup(held)
	}
	return !u.InGroup(held)
}

// ReconcileAdmin changes the admin password when the desired one differs
// from the password the client currently authenticates with. The client
// switches to the new password on success.
func (e *Engine) ReconcileAdmin(ctx context.Context, a domain.AdminDesired) error {
	if a.Password == nil || *a.Password == e.api.Password() {
		return nil
	}
	e.logger.Info("changing admin password", "login", e.opts.AdminLogin)
	return e.mutate(declarative.OpChangePassword, declarative.KindAdmin, e.opts.AdminLogin, "", func() error {
		return e.api.ChangeOwnPassword(ctx, *a.Password)
	})
}

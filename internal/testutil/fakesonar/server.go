// Package fakesonar is an in-memory stand-in for the SonarQube administrative
// API, served over httptest. It keeps just enough state (users, groups,
// memberships, settings, template bindings) to observe convergence, and
// records every call it receives.
package fakesonar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Defaults mirror a freshly installed server.
const (
	AdminLogin      = "admin"
	AdminPassword   = "admin"
	DefaultGroup    = "sonar-users"
	DefaultTemplate = "default_template"

	DefaultTemplateName = "Default template"
)

// Call is one request received by the server.
type Call struct {
	Method   string
	Path     string
	Query    url.Values
	Username string
}

type user struct {
	login    string
	name     string
	password string
	groups   map[string]bool
	tokens   map[string]bool
}

type group struct {
	id          int
	name        string
	description string
}

// Server is a fake SonarQube.
type Server struct {
	URL string

	mu                 sync.Mutex
	notReadyFor        int
	userGroupsPageSize int
	catalog            []string
	templateID         string
	users              map[string]*user
	groups             map[string]*group
	settings           map[string]string
	bindings           map[string]map[string]bool
	calls              []Call
	nextID             int
}

// New starts a server holding the admin account and the default group, and
// stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		catalog:    []string{"admin", "gateadmin", "profileadmin", "provisioning", "scan"},
		templateID: DefaultTemplate,
		users:      map[string]*user{},
		groups:     map[string]*group{},
		settings:   map[string]string{},
		bindings:   map[string]map[string]bool{},
		nextID:     1,
	}
	s.AddGroup(DefaultGroup, "Every authenticated user automatically belongs to this group")
	s.AddUser(AdminLogin, "Administrator", AdminPassword)

	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Get("/api/server/version", s.handleVersion)
	r.Get("/api/authentication/validate", s.handleValidate)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/api/settings/set", s.handleSetSetting)
		r.Get("/api/user_groups/search", s.handleSearchGroups)
		r.Post("/api/user_groups/create", s.handleCreateGroup)
		r.Post("/api/user_groups/update", s.handleUpdateGroup)
		r.Post("/api/user_groups/add_user", s.handleAddUser)
		r.Post("/api/user_groups/remove_user", s.handleRemoveUser)
		r.Get("/api/permissions/search_templates", s.handleSearchTemplates)
		r.Post("/api/permissions/add_group_to_template", s.handleAddGroupToTemplate)
		r.Post("/api/permissions/remove_group_from_template", s.handleRemoveGroupFromTemplate)
		r.Get("/api/users/search", s.handleSearchUsers)
		r.Post("/api/users/create", s.handleCreateUser)
		r.Post("/api/users/update", s.handleUpdateUser)
		r.Post("/api/users/change_password", s.handleChangePassword)
		r.Get("/api/users/groups", s.handleUserGroups)
		r.Post("/api/user_tokens/generate", s.handleGenerateToken)
	})
	return r
}

// === Seeding and inspection ===

// SetNotReady makes the next n version probes answer 503.
func (s *Server) SetNotReady(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notReadyFor = n
}

// SetUserGroupsPageSize caps the users/groups listing. Zero means no cap.
func (s *Server) SetUserGroupsPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userGroupsPageSize = n
}

// SetCatalog replaces the permission catalog.
func (s *Server) SetCatalog(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append([]string(nil), keys...)
}

// Catalog returns the permission catalog.
func (s *Server) Catalog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.catalog...)
}

// AddGroup creates a group directly in the server state.
func (s *Server) AddGroup(name, description string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addGroupLocked(name, description)
}

func (s *Server) addGroupLocked(name, description string) int {
	g := &group{id: s.nextID, name: name, description: description}
	s.nextID++
	s.groups[name] = g
	return g.id
}

// AddUser creates a user directly in the server state. Every user belongs
// to the default group.
func (s *Server) AddUser(login, name, password string, groups ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{login: login, name: name, password: password, groups: map[string]bool{DefaultGroup: true}, tokens: map[string]bool{}}
	for _, g := range groups {
		u.groups[g] = true
	}
	s.users[login] = u
}

// Bind binds permissions to group in the template.
func (s *Server) Bind(groupName string, permissions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range permissions {
		s.bindLocked(groupName, p)
	}
}

func (s *Server) bindLocked(groupName, permission string) {
	if s.bindings[groupName] == nil {
		s.bindings[groupName] = map[string]bool{}
	}
	s.bindings[groupName][permission] = true
}

// Bound returns the sorted permissions bound to groupName.
func (s *Server) Bound(groupName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.bindings[groupName])
}

// Group returns the description of groupName and whether it exists.
func (s *Server) Group(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok {
		return "", false
	}
	return g.description, true
}

// User returns the display name and password of login and whether it exists.
func (s *Server) User(login string) (name, password string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[login]
	if !ok {
		return "", "", false
	}
	return u.name, u.password, true
}

// Memberships returns the sorted groups login belongs to.
func (s *Server) Memberships(login string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[login]
	if !ok {
		return nil
	}
	return sortedKeys(u.groups)
}

// Setting returns the value of a setting.
func (s *Server) Setting(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok
}

// Calls returns a copy of every recorded call.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls to path.
func (s *Server) CallsTo(path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Mutations returns the recorded POST calls.
func (s *Server) Mutations() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == http.MethodPost {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets every recorded call.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// === Middleware ===

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, _, _ := r.BasicAuth()
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Username: username})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			writeErrors(w, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, exists := s.users[username]
	return exists && u.password == password
}

// === Handlers ===

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	notReady := s.notReadyFor > 0
	if notReady {
		s.notReadyFor--
	}
	s.mu.Unlock()
	if notReady {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("10.4.1"))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"valid": s.authenticated(r)})
}

func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("key") == "" {
		writeErrors(w, http.StatusBadRequest, "The 'key' parameter is missing")
		return
	}
	s.mu.Lock()
	s.settings[q.Get("key")] = q.Get("value")
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchGroups(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	s.mu.Lock()
	var groups []map[string]interface{}
	for _, name := range sortedGroupNames(s.groups) {
		g := s.groups[name]
		if strings.Contains(strings.ToLower(g.name), q) {
			groups = append(groups, map[string]interface{}{"id": g.id, "name": g.name, "description": g.description})
		}
	}
	s.mu.Unlock()
	writeJSON(w, map[string]interface{}{"paging": paging(len(groups), pageSize(r)), "groups": emptyIfNil(groups)})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[name]; exists {
		writeErrors(w, http.StatusBadRequest, fmt.Sprintf("Group '%s' already exists", name))
		return
	}
	id := s.addGroupLocked(name, q.Get("description"))
	writeJSON(w, map[string]interface{}{"group": map[string]interface{}{"id": id, "name": name}})
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("id"))
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "Invalid group id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.id == id {
			if q.Has("description") {
				g.description = q.Get("description")
			}
			writeJSON(w, map[string]interface{}{"group": map[string]interface{}{"id": g.id, "name": g.name}})
			return
		}
	}
	writeErrors(w, http.StatusNotFound, fmt.Sprintf("Could not find a user group with id '%d'.", id))
}

// handleSearchTemplates filters templates by a case-insensitive substring of
// their name, like the real server. The catalog is always returned whole.
func (s *Server) handleSearchTemplates(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	s.mu.Lock()
	defer s.mu.Unlock()
	held := map[string]bool{}
	for _, perms := range s.bindings {
		for p := range perms {
			held[p] = true
		}
	}
	var templatePerms []map[string]string
	for _, p := range sortedKeys(held) {
		templatePerms = append(templatePerms, map[string]string{"key": p})
	}
	var catalog []map[string]string
	for _, p := range s.catalog {
		catalog = append(catalog, map[string]string{"key": p, "name": p, "description": p})
	}
	templates := []map[string]interface{}{}
	if strings.Contains(strings.ToLower(DefaultTemplateName), q) {
		templates = append(templates, map[string]interface{}{
			"id":          s.templateID,
			"name":        DefaultTemplateName,
			"description": "This permission template will be used as default",
			"permissions": emptyIfNilStrings(templatePerms),
		})
	}
	writeJSON(w, map[string]interface{}{
		"permissionTemplates": templates,
		"defaultTemplates":    []map[string]string{{"templateId": s.templateID, "qualifier": "TRK"}},
		"permissions":         emptyIfNilStrings(catalog),
	})
}

func (s *Server) templateCall(w http.ResponseWriter, r *http.Request) (groupName, permission string, ok bool) {
	q := r.URL.Query()
	groupName, permission = q.Get("groupName"), q.Get("permission")
	if q.Get("templateId") != s.templateID {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("Permission template with id '%s' is not found", q.Get("templateId")))
		return "", "", false
	}
	if _, exists := s.groups[groupName]; !exists {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("No group with name '%s'", groupName))
		return "", "", false
	}
	for _, p := range s.catalog {
		if p == permission {
			return groupName, permission, true
		}
	}
	writeErrors(w, http.StatusBadRequest, fmt.Sprintf("Value of parameter 'permission' (%s) must be one of the catalog", permission))
	return "", "", false
}

func (s *Server) handleAddGroupToTemplate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groupName, permission, ok := s.templateCall(w, r)
	if !ok {
		return
	}
	s.bindLocked(groupName, permission)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveGroupFromTemplate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groupName, permission, ok := s.templateCall(w, r)
	if !ok {
		return
	}
	delete(s.bindings[groupName], permission)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	s.mu.Lock()
	var users []map[string]string
	for _, login := range sortedUserLogins(s.users) {
		u := s.users[login]
		if strings.Contains(strings.ToLower(u.login), q) || strings.Contains(strings.ToLower(u.name), q) {
			users = append(users, map[string]string{"login": u.login, "name": u.name})
		}
	}
	s.mu.Unlock()
	writeJSON(w, map[string]interface{}{"paging": paging(len(users), pageSize(r)), "users": emptyIfNilStrings(users)})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	login := q.Get("login")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[login]; exists {
		writeErrors(w, http.StatusBadRequest, fmt.Sprintf("An active user with login '%s' already exists", login))
		return
	}
	s.users[login] = &user{
		login:    login,
		name:     q.Get("name"),
		password: q.Get("password"),
		groups:   map[string]bool{DefaultGroup: true},
		tokens:   map[string]bool{},
	}
	writeJSON(w, map[string]interface{}{"user": map[string]string{"login": login, "name": q.Get("name")}})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[q.Get("login")]
	if !ok {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("User '%s' doesn't exist", q.Get("login")))
		return
	}
	u.name = q.Get("name")
	writeJSON(w, map[string]interface{}{"user": map[string]string{"login": u.login, "name": u.name}})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[q.Get("login")]
	if !ok {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("User '%s' doesn't exist", q.Get("login")))
		return
	}
	if q.Has("previousPassword") && q.Get("previousPassword") != u.password {
		writeErrors(w, http.StatusBadRequest, "Incorrect password")
		return
	}
	u.password = q.Get("password")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserGroups(w http.ResponseWriter, r *http.Request) {
	login := r.URL.Query().Get("login")
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[login]
	if !ok {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("Unknown user: %s", login))
		return
	}
	size := pageSize(r)
	if s.userGroupsPageSize > 0 {
		size = s.userGroupsPageSize
	}
	names := sortedKeys(u.groups)
	total := len(names)
	if len(names) > size {
		names = names[:size]
	}
	groups := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		g := s.groups[name]
		id, description := 0, ""
		if g != nil {
			id, description = g.id, g.description
		}
		groups = append(groups, map[string]interface{}{
			"id": id, "name": name, "description": description, "selected": true, "default": name == DefaultGroup,
		})
	}
	writeJSON(w, map[string]interface{}{
		"paging": map[string]int{"pageIndex": 1, "pageSize": size, "total": total},
		"groups": groups,
	})
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	s.membership(w, r, true)
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	s.membership(w, r, false)
}

func (s *Server) membership(w http.ResponseWriter, r *http.Request, add bool) {
	q := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[q.Get("login")]
	if !ok {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("Unknown user: %s", q.Get("login")))
		return
	}
	if _, exists := s.groups[q.Get("name")]; !exists {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("No group with name '%s'", q.Get("name")))
		return
	}
	if add {
		u.groups[q.Get("name")] = true
	} else {
		delete(u.groups, q.Get("name"))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	login, name := q.Get("login"), q.Get("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[login]
	if !ok {
		writeErrors(w, http.StatusNotFound, fmt.Sprintf("User with login '%s' doesn't exist", login))
		return
	}
	if u.tokens[name] {
		writeErrors(w, http.StatusBadRequest, fmt.Sprintf("A user token for login '%s' and name '%s' already exists", login, name))
		return
	}
	u.tokens[name] = true
	writeJSON(w, map[string]string{"login": login, "name": name, "token": "squ_" + login + "_" + name})
}

// === Helpers ===

func pageSize(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("ps")); err == nil && n > 0 {
		return n
	}
	return 25
}

func paging(total, size int) map[string]int {
	return map[string]int{"pageIndex": 1, "pageSize": size, "total": total}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, msgs ...string) {
	body := struct {
		Errors []map[string]string `json:"errors"`
	}{Errors: []map[string]string{}}
	for _, m := range msgs {
		body.Errors = append(body.Errors, map[string]string{"msg": m})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedGroupNames(m map[string]*group) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedUserLogins(m map[string]*user) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func emptyIfNil(v []map[string]interface{}) []map[string]interface{} {
	if v == nil {
		return []map[string]interface{}{}
	}
	return v
}

func emptyIfNilStrings(v []map[string]string) []map[string]string {
	if v == nil {
		return []map[string]string{}
	}
	return v
}

package declarative

// ConfigurationFile is the YAML document driving a setup run. Every section is
// optional. String fields may contain ${VAR} placeholders, resolved by Resolve.
type ConfigurationFile struct {
	Admin      *AdminSpec     `yaml:"admin,omitempty"`
	Properties []PropertySpec `yaml:"properties,omitempty"`
	Groups     []GroupSpec    `yaml:"groups,omitempty"`
	Users      []UserSpec     `yaml:"users,omitempty"`
}

// AdminSpec describes the admin account.
type AdminSpec struct {
	Password *string `yaml:"password,omitempty"`
}

// PropertySpec is a server setting to force.
type PropertySpec struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// GroupSpec describes a group and the complete set of permissions it should
// hold in the default permission template.
type GroupSpec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Permissions []string `yaml:"permissions,omitempty"`
}

// UserSpec describes a local user and the complete set of groups it should
// belong to.
type UserSpec struct {
	Login    string   `yaml:"login"`
	Name     string   `yaml:"name"`
	Password *string  `yaml:"password,omitempty"` // nil leaves an existing password untouched
	Groups   []string `yaml:"groups,omitempty"`
}

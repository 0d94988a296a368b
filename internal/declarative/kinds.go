package declarative

// ResourceKind identifies a type of managed resource.
type ResourceKind int

// Resource kind constants, in the order the engine reconciles them.
const (
	KindProperty   ResourceKind = iota // server setting
	KindGroup                          // user group
	KindPermission                     // group binding in the default permission template
	KindUser                           // local user
	KindMembership                     // user-in-group
	KindAdmin                          // admin account password
)

// String returns a human-readable kebab-case name for the resource kind.
func (k ResourceKind) String() string {
	switch k {
	case KindProperty:
		return "property"
	case KindGroup:
		return "group"
	case KindPermission:
		return "permission"
	case KindUser:
		return "user"
	case KindMembership:
		return "membership"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Operation is the kind of mutating call recorded for a resource.
type Operation int

const (
	// OpSet overwrites a value unconditionally.
	OpSet Operation = iota
	// OpCreate creates a missing resource.
	OpCreate
	// OpUpdate updates an existing resource.
	OpUpdate
	// OpAdd binds a permission or a membership.
	OpAdd
	// OpRemove unbinds a permission or a membership.
	OpRemove
	// OpChangePassword replaces a password.
	OpChangePassword
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpSet:
		return "set"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpChangePassword:
		return "change-password"
	default:
		return "unknown"
	}
}

// pastTense is used by the text formatter for applied actions.
func (o Operation) pastTense() string {
	switch o {
	case OpSet:
		return "set"
	case OpCreate:
		return "created"
	case OpUpdate:
		return "updated"
	case OpAdd:
		return "added"
	case OpRemove:
		return "removed"
	case OpChangePassword:
		return "password changed"
	default:
		return "touched"
	}
}

// symbol is the one-character marker printed in front of an action.
func (o Operation) symbol() string {
	switch o {
	case OpCreate, OpAdd:
		return "+"
	case OpRemove:
		return "-"
	default:
		return "~"
	}
}

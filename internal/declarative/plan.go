package declarative

// Action is one mutating call issued (or, in a dry run, planned) against the
// server.
type Action struct {
	Operation    Operation
	ResourceKind ResourceKind
	ResourceName string // login, group or property name
	Detail       string // permission key or group name for bindings, empty otherwise
}

// Plan is the ordered record of a run. It is filled by the reconciliation
// engine in call order and never reordered.
type Plan struct {
	DryRun  bool
	Actions []Action
}

// Record appends an action.
func (p *Plan) Record(op Operation, kind ResourceKind, name, detail string) {
	if p == nil {
		return
	}
	p.Actions = append(p.Actions, Action{Operation: op, ResourceKind: kind, ResourceName: name, Detail: detail})
}

// Summary returns counts per operation.
func (p *Plan) Summary() PlanSummary {
	var s PlanSummary
	for _, a := range p.Actions {
		switch a.Operation {
		case OpSet:
			s.Sets++
		case OpCreate:
			s.Creates++
		case OpUpdate:
			s.Updates++
		case OpAdd:
			s.Adds++
		case OpRemove:
			s.Removes++
		case OpChangePassword:
			s.PasswordChanges++
		}
	}
	return s
}

// HasChanges returns true if the plan has any actions.
func (p *Plan) HasChanges() bool {
	return len(p.Actions) > 0
}

// PlanSummary holds counts of recorded operations.
type PlanSummary struct {
	Sets            int `json:"sets"`
	Creates         int `json:"creates"`
	Updates         int `json:"updates"`
	Adds            int `json:"adds"`
	Removes         int `json:"removes"`
	PasswordChanges int `json:"password_changes"`
}

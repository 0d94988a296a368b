package declarative

import (
	"encoding/json"
	"fmt"
	"io"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorDim    = "\033[2m"
)

// FormatText writes a human-readable plan to w.
// If noColor is true, ANSI codes are suppressed.
func FormatText(w io.Writer, plan *Plan, noColor bool) {
	c := func(code string) string {
		if noColor {
			return ""
		}
		return code
	}

	if !plan.HasChanges() {
		fmt.Fprintln(w, "No changes.")
		return
	}

	for _, a := range plan.Actions {
		color := colorYellow
		switch a.Operation {
		case OpCreate, OpAdd:
			color = colorGreen
		case OpRemove:
			color = colorRed
		}

		target := fmt.Sprintf("%s %q", a.ResourceKind, a.ResourceName)
		if a.Detail != "" {
			target += fmt.Sprintf(" [%s]", a.Detail)
		}
		verb := a.Operation.pastTense()
		if plan.DryRun {
			verb = "will be " + verb
			if a.Operation == OpChangePassword {
				verb = "password will be changed"
			}
		}
		fmt.Fprintf(w, "  %s%s%s %s %s\n", c(color), a.Operation.symbol(), c(colorReset), target, verb)
	}

	s := plan.Summary()
	label := "Applied:"
	if plan.DryRun {
		label = "Plan:"
	}
	fmt.Fprintf(w, "\n%s%s%s %d set, %d created, %d updated, %d added, %d removed, %d password change(s).\n",
		c(colorDim), label, c(colorReset), s.Sets, s.Creates, s.Updates, s.Adds, s.Removes, s.PasswordChanges)
}

// FormatJSON writes the plan as JSON to w.
func FormatJSON(w io.Writer, plan *Plan) error {
	type jsonAction struct {
		Operation    string `json:"operation"`
		ResourceType string `json:"resource_type"`
		ResourceName string `json:"resource_name"`
		Detail       string `json:"detail,omitempty"`
	}
	type jsonPlan struct {
		DryRun  bool         `json:"dry_run"`
		Actions []jsonAction `json:"actions"`
		Summary PlanSummary  `json:"summary"`
	}

	jp := jsonPlan{
		DryRun:  plan.DryRun,
		Actions: make([]jsonAction, 0, len(plan.Actions)),
		Summary: plan.Summary(),
	}
	for _, a := range plan.Actions {
		jp.Actions = append(jp.Actions, jsonAction{
			Operation:    a.Operation.String(),
			ResourceType: a.ResourceKind.String(),
			ResourceName: a.ResourceName,
			Detail:       a.Detail,
		})
	}

	data, err := json.MarshalIndent(jp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

package cli

import (
	"github.com/spf13/pflag"

	"sonar-setup/internal/reconcile"
)

// membershipFlag adapts reconcile.MembershipMode to pflag.Value.
type membershipFlag struct {
	mode *reconcile.MembershipMode
}

var _ pflag.Value = membershipFlag{}

func (f membershipFlag) String() string {
	if f.mode == nil {
		return reconcile.MembershipExact.String()
	}
	return f.mode.String()
}

func (f membershipFlag) Set(s string) error {
	m, err := reconcile.ParseMembershipMode(s)
	if err != nil {
		return err
	}
	*f.mode = m
	return nil
}

func (f membershipFlag) Type() string { return "exact|legacy" }

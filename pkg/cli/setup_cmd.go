package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sonar-setup/internal/config"
	"sonar-setup/internal/declarative"
	"sonar-setup/internal/reconcile"
	"sonar-setup/pkg/sonar"
)

// setupFlags are the inputs shared by setup and plan.
type setupFlags struct {
	file          string
	url           string
	adminPassword string
	attempts      int
	membership    reconcile.MembershipMode
}

func (f *setupFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path to the YAML configuration file")
	cmd.Flags().StringVarP(&f.url, "sonar-url", "s", "", "URL of SonarQube (default from SONAR_URL or the profile)")
	cmd.Flags().StringVarP(&f.adminPassword, "admin-password", "p", "", "Administrator password (default from ADMIN_PASSWORD, else admin)")
	cmd.Flags().IntVarP(&f.attempts, "attempts", "a", config.DefaultConnectAttempts, "Number of attempts to connect to the API (1s between attempts)")
	cmd.Flags().Var(membershipFlag{mode: &f.membership}, "membership", "Group membership reconciliation: exact (default, memberships become exactly the listed groups) or legacy")
	_ = cmd.MarkFlagRequired("file")
}

func newSetupCmd(g *globals) *cobra.Command {
	var (
		f      setupFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Setup from a file",
		Long: "Waits for the server, finds the working administrator password, then applies the\n" +
			"properties, groups, users and administrator password of the configuration file.\n\n" +
			"The administrator password candidates are tried in order: admin.password from the\n" +
			"file, then --admin-password, else ADMIN_PASSWORD, else the stock default.\n\n" +
			"Group memberships default to --membership exact: each user ends up in exactly the\n" +
			"listed groups plus sonar-users. --membership legacy restores the first-generation\n" +
			"behavior, which removes held groups that are listed and adds listed groups not held.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := runSetup(cmd, g, &f, dryRun)
			if err != nil {
				return err
			}
			return renderPlan(cmd.OutOrStdout(), g, plan)
		},
	}

	f.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Read the server state and report changes without applying them")

	return cmd
}

// runSetup loads the configuration, waits for the server, authenticates and
// reconciles. The returned plan lists every mutating call issued, or that
// would be issued when dryRun is set.
func runSetup(cmd *cobra.Command, g *globals, f *setupFlags, dryRun bool) (*declarative.Plan, error) {
	ctx := cmd.Context()

	// 1. Load, substitute and check the configuration before touching the server.
	doc, err := declarative.Load(f.file)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	state, err := declarative.Resolve(doc, declarative.ProcessEnv())
	if err != nil {
		return nil, err
	}
	if err := declarative.Precheck(state); err != nil {
		return nil, err
	}
	opts := reconcile.DefaultOptions()
	opts.Membership = f.membership
	opts.DryRun = dryRun
	if err := reconcile.CheckReserved(state, opts.AdminLogin); err != nil {
		return nil, err
	}

	serverURL, err := g.serverURL(cmd, f.url)
	if err != nil {
		return nil, err
	}
	client := g.newClient(serverURL, opts.AdminLogin, "")

	// 2. Block until the server answers.
	if err := client.WaitReady(ctx, g.connectAttempts(cmd, f.attempts)); err != nil {
		return nil, err
	}

	// 3. Pick the administrator password that currently works.
	var target *string
	if state.Admin != nil {
		target = state.Admin.Password
	}
	fallback := adminFallback(cmd, f.adminPassword, g.cfg)
	if err := client.ResolvePassword(ctx, sonar.PasswordOrFallback(target, fallback)); err != nil {
		return nil, err
	}

	// 4. Reconcile.
	engine := reconcile.New(client, opts, g.logger)
	if err := engine.Apply(ctx, state); err != nil {
		if n := len(engine.Plan().Actions); n > 0 && !dryRun {
			g.logger.Warn("run stopped after applying some changes; run again once the cause is fixed",
				"applied", n)
		}
		return nil, err
	}
	return engine.Plan(), nil
}

// adminFallback is the second password candidate: the flag when given, else
// ADMIN_PASSWORD, else the stock default.
func adminFallback(cmd *cobra.Command, flagValue string, cfg *config.Config) *string {
	switch {
	case cmd.Flags().Changed("admin-password"):
		return &flagValue
	case cfg.AdminPassword != nil:
		return cfg.AdminPassword
	default:
		p := reconcile.DefaultAdminPassword
		return &p
	}
}

func renderPlan(w io.Writer, g *globals, plan *declarative.Plan) error {
	if g.output == "json" {
		return declarative.FormatJSON(w, plan)
	}
	declarative.FormatText(w, plan, g.noColor)
	return nil
}

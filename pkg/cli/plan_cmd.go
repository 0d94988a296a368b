package cli

import (
	"github.com/spf13/cobra"
)

func newPlanCmd(g *globals) *cobra.Command {
	var f setupFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the calls setup would issue for the configuration file",
		Long: "Same as setup --dry-run: reads the server state and lists every mutating call setup\n" +
			"would issue, without changing anything. Properties, group updates and permission\n" +
			"bindings are always listed since setup issues them unconditionally.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := runSetup(cmd, g, &f, true)
			if err != nil {
				return err
			}
			return renderPlan(cmd.OutOrStdout(), g, plan)
		},
	}

	f.bind(cmd)

	return cmd
}

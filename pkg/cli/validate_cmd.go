package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sonar-setup/internal/declarative"
	"sonar-setup/internal/reconcile"
)

func newValidateCmd(g *globals) *cobra.Command {
	var (
		file               string
		allowUnknownFields bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file offline",
		Long:  "Loads the configuration file, resolves its ${VAR} placeholders and checks it for errors without contacting the server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// 1. Load and substitute.
			doc, err := declarative.LoadWithOptions(file, declarative.LoadOptions{
				AllowUnknownFields: allowUnknownFields,
			})
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			state, err := declarative.Resolve(doc, declarative.ProcessEnv())
			if err != nil {
				return err
			}

			// 2. Structural checks, then the reserved login.
			if err := declarative.Precheck(state); err != nil {
				return err
			}
			if err := reconcile.CheckReserved(state, reconcile.DefaultAdminLogin); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.output == "json" {
				return PrintJSON(out, map[string]interface{}{
					"valid":      true,
					"properties": len(state.Properties),
					"groups":     len(state.Groups),
					"users":      len(state.Users),
					"admin":      state.Admin != nil && state.Admin.Password != nil,
				})
			}
			_, _ = fmt.Fprintf(out, "Configuration is valid: %d properties, %d groups, %d users.\n",
				len(state.Properties), len(state.Groups), len(state.Users))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the YAML configuration file")
	cmd.Flags().BoolVar(&allowUnknownFields, "allow-unknown-fields", false, "Allow unknown YAML fields")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

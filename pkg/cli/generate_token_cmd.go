package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sonar-setup/internal/config"
	"sonar-setup/internal/reconcile"
	"sonar-setup/pkg/sonar"
)

func newGenerateTokenCmd(g *globals) *cobra.Command {
	var (
		name     string
		url      string
		username string
		password string
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "generate-token",
		Short: "Generate a user token",
		Long: "Waits for the server, authenticates as the given user and mints a token for that\n" +
			"same user. The token is printed on stdout. Use --password - to be prompted.",
		Example: "  sonar-setup generate-token -n ci -s http://localhost:9000 -u ci-bot -p -",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			serverURL, err := g.serverURL(cmd, url)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("username") && g.profile.Username != "" {
				username = g.profile.Username
			}
			if password == "-" {
				if !IsStdinTTY() {
					return errors.New("--password - requires an interactive terminal")
				}
				password, err = readPassword(cmd.ErrOrStderr(), fmt.Sprintf("Password for %s: ", username))
				if err != nil {
					return err
				}
			}

			client := g.newClient(serverURL, username, "")
			if err := client.WaitReady(ctx, g.connectAttempts(cmd, attempts)); err != nil {
				return err
			}
			if err := client.ResolvePassword(ctx, sonar.SpecificPassword(password)); err != nil {
				return err
			}

			token, err := client.GenerateToken(ctx, username, name)
			if err != nil {
				return err
			}

			if g.output == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]string{
					"login": username,
					"name":  name,
					"token": token,
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the generated token")
	cmd.Flags().StringVarP(&url, "sonar-url", "s", "", "URL of SonarQube (default from SONAR_URL or the profile)")
	cmd.Flags().StringVarP(&username, "username", "u", reconcile.DefaultAdminLogin, "Username")
	cmd.Flags().StringVarP(&password, "password", "p", reconcile.DefaultAdminPassword, "User password, or - to prompt")
	cmd.Flags().IntVarP(&attempts, "attempts", "a", config.DefaultConnectAttempts, "Number of attempts to connect to the API (1s between attempts)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"sonar-setup/internal/config"
	"sonar-setup/internal/domain"
	"sonar-setup/pkg/sonar"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	output, _ := rootCmd.PersistentFlags().GetString("output")
	reportError(rootCmd.OutOrStdout(), rootCmd.ErrOrStderr(), output, err)
	return 1
}

// reportError prints err as "Error: ..." on stderr, or as a JSON object on
// stdout when the JSON output format is selected.
func reportError(stdout, stderr io.Writer, output string, err error) {
	if output != "json" {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return
	}
	errObj := map[string]interface{}{
		"error": err.Error(),
		"kind":  errorKind(err),
	}
	var apiErr *sonar.APIError
	if errors.As(err, &apiErr) {
		errObj["http_status"] = apiErr.HTTPStatus
		errObj["messages"] = apiErr.Messages
	}
	var pre *domain.PrecheckError
	if errors.As(err, &pre) {
		errObj["violations"] = pre.Violations
	}
	_ = PrintJSON(stdout, errObj)
}

func errorKind(err error) string {
	var (
		unreachable *domain.UnreachableError
		auth        *domain.AuthenticationError
		apiErr      *sonar.APIError
		decode      *domain.DeserializationError
		conf        *domain.ConfigurationError
		pre         *domain.PrecheckError
	)
	switch {
	case errors.As(err, &unreachable):
		return "unreachable"
	case errors.As(err, &auth):
		return "authentication"
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &decode):
		return "deserialization"
	case errors.As(err, &conf):
		return "configuration"
	case errors.As(err, &pre):
		return "precheck"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// globals is the state resolved by the root command before any verb runs.
type globals struct {
	cfg       *config.Config
	profile   Profile
	logger    *slog.Logger
	output    string
	noColor   bool
	rateLimit float64
}

// newClient builds an API client carrying the resolved logger and throttle.
func (g *globals) newClient(url, username, password string) *sonar.Client {
	return sonar.NewClient(url, username, password,
		sonar.WithLogger(g.logger),
		sonar.WithRateLimit(g.rateLimit),
	)
}

// serverURL applies the precedence flag > SONAR_URL > profile.
func (g *globals) serverURL(cmd *cobra.Command, flagValue string) (string, error) {
	url := flagValue
	if !cmd.Flags().Changed("sonar-url") {
		switch {
		case g.cfg.SonarURL != "":
			url = g.cfg.SonarURL
		case g.profile.URL != "":
			url = g.profile.URL
		}
	}
	if url == "" {
		return "", domain.ErrConfiguration("server URL is required: use --sonar-url, SONAR_URL or a profile")
	}
	if err := validateServerURL(url); err != nil {
		return "", domain.ErrConfiguration("%v", err)
	}
	return url, nil
}

// connectAttempts applies the precedence flag > SONAR_CONNECT_ATTEMPTS.
func (g *globals) connectAttempts(cmd *cobra.Command, flagValue int) int {
	if cmd.Flags().Changed("attempts") {
		return flagValue
	}
	return g.cfg.ConnectAttempts
}

func newRootCmd() *cobra.Command {
	var (
		logLevel  string
		logFormat string
		envFile   string
		profile   string
	)
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "sonar-setup",
		Short: "Setup SonarQube from a configuration file",
		Long: "Reconciles a SonarQube server with a declarative YAML document: server properties,\n" +
			"groups and their permission template bindings, users and their memberships,\n" +
			"and the administrator password.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			// Profile file is optional
			userCfg, err := LoadUserConfig()
			if err != nil {
				userCfg = &UserConfig{Profiles: map[string]Profile{}}
			}
			g.profile = userCfg.ActiveProfile(profile)

			// Apply precedence: flag > env > profile > default
			flags := cmd.Flags()
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if !flags.Changed("rate-limit") {
				g.rateLimit = cfg.RateLimit
			}
			if !flags.Changed("output") && g.profile.Output != "" {
				g.output = g.profile.Output
			}
			if err := validateOutputFormat(g.output); err != nil {
				return err
			}
			if g.rateLimit < 0 {
				return fmt.Errorf("--rate-limit must not be negative, got %g", g.rateLimit)
			}

			g.cfg = cfg
			g.logger = newLogger(cmd.ErrOrStderr(), cfg)
			for _, w := range cfg.Warnings {
				g.logger.Warn(w)
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before the environment is read")
	pf.StringVar(&profile, "profile", "", "Config profile to use")
	pf.StringVarP(&g.output, "output", "o", "text", "Output format (text, json)")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	pf.Float64Var(&g.rateLimit, "rate-limit", 0, "Maximum API requests per second (0 = unlimited)")

	rootCmd.AddCommand(newSetupCmd(g))
	rootCmd.AddCommand(newPlanCmd(g))
	rootCmd.AddCommand(newGenerateTokenCmd(g))
	rootCmd.AddCommand(newValidateCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// newLogger writes structured logs to w in the configured format.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.JSONLogs() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}

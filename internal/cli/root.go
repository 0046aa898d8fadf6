// Package cli provides the salesdw command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salesdw/internal/config"
	"salesdw/internal/logging"
	_ "salesdw/internal/storage/all"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type configKey struct{}

type loggerKey struct{}

var newLogger = logging.New

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "salesdw",
		Short: "Load customer, product and sale extracts into the sales warehouse",
		Long: `salesdw verifies the raw customer, product and sale CSV extracts against
their column contracts, removes duplicate and out-of-range records, normalizes
column names and reloads the warehouse tables in dependency order.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			if cfg.File != "" {
				log.Debug("using config file", zap.String("path", cfg.File))
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, log)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./salesdw.yaml)")
	pf.String("warehouse", "", "warehouse kind (sqlite|postgres|mysql|mssql)")
	pf.String("dsn", "", "warehouse file path or connection string")
	pf.String("schema-file", "", "SQL script creating the warehouse tables")
	pf.String("customers", "", "customer extract path")
	pf.String("products", "", "product extract path")
	pf.String("sales", "", "sale extract path")
	pf.String("coercion-policy", "", "what a failed numeric conversion does (warn|abort)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (json|console)")
	pf.String("metrics", "", "metrics backend (none|pushgateway|datadog)")

	_ = rootCmd.RegisterFlagCompletionFunc("warehouse", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"sqlite", "postgres", "mysql", "mssql"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewSchemaCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command and prints any error to stderr. The caller
// exits non-zero when it returns an error.
func Execute() error {
	return executeRoot(NewRootCmd())
}

// executeRoot flushes the command's logger whether or not it failed; cobra
// skips post-run hooks after an error.
func executeRoot(root *cobra.Command) error {
	cmd, err := root.ExecuteC()
	if cmd != nil {
		_ = loggerFrom(cmd.Context()).Sync()
	}
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

func configFrom(ctx context.Context) (*config.Config, error) {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return nil, fmt.Errorf("configuration not loaded")
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

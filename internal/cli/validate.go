package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"salesdw/internal/config"
	"salesdw/internal/storage"
)

// errInvalidConfig is returned when validation finds at least one error.
var errInvalidConfig = errors.New("configuration is invalid")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without touching the warehouse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			if err := checkConfig(cmd, cfg); err != nil {
				return err
			}
			src := cfg.File
			if src == "" {
				src = "defaults"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (%s)\n", src)
			return nil
		},
	}
}

// checkConfig prints every issue to stderr and fails on errors.
func checkConfig(cmd *cobra.Command, cfg *config.Config) error {
	issues := config.Validate(cfg, storage.Kinds())
	for _, iss := range issues {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errInvalidConfig
	}
	return nil
}

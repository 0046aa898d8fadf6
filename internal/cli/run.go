package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"salesdw/internal/pipeline"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Verify, clean and load all three extracts",
		Long: `Run reads the customer, product and sale extracts, then for each in that
order verifies its column contract, removes duplicates and invalid records,
normalizes column names and replaces the table contents in one transaction.

The run stops at the first failure. Tables loaded before it stay committed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			log := loggerFrom(cmd.Context())

			if err := checkConfig(cmd, cfg); err != nil {
				return err
			}
			opt, err := pipeline.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}

			flush, err := setupMetrics(cfg.Metrics, log)
			if err != nil {
				return err
			}
			defer flush()

			sum, runErr := pipeline.New(opt, log).Run(cmd.Context(), pipeline.JobsFromConfig(cfg))
			if sum != nil && len(sum.Tables) > 0 {
				renderSummary(cmd.OutOrStdout(), sum)
			}
			return runErr
		},
	}
}

func renderSummary(w io.Writer, sum *pipeline.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("run " + sum.RunID)

	t.AppendHeader(table.Row{"Dataset", "Table", "Read", "Skipped", "Coercion failures", "Duplicates", "Invalid", "Deleted", "Loaded", "Dropped columns"})
	for _, ts := range sum.Tables {
		t.AppendRow(table.Row{
			ts.Dataset, ts.Table, ts.Read, ts.Skipped, ts.CoercionFailures,
			ts.Duplicates, ts.Invalid, ts.Deleted, ts.Loaded, strings.Join(ts.Dropped, ", "),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "", sum.Loaded(), ""})
	t.Render()

	_, _ = fmt.Fprintf(w, "elapsed %s\n", sum.Elapsed.Round(time.Millisecond))
}

package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"salesdw/internal/storage"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the warehouse tables if they are missing",
		Long: `Schema runs the configured schema script, or the built-in table
definitions, against the warehouse. Existing tables are never dropped or
altered. With --print the statements are shown instead of executed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			log := loggerFrom(cmd.Context())
			scfg := storage.Config{
				Kind:       cfg.Warehouse.Kind,
				DSN:        cfg.Warehouse.DSN,
				SchemaFile: cfg.Warehouse.SchemaFile,
			}
			out := cmd.OutOrStdout()

			if printOnly {
				d, err := storage.Lookup(scfg.Kind)
				if err != nil {
					return err
				}
				stmts, err := storage.NewSchemaManager(storage.NewWithDB(nil, d, scfg, log), log).Statements()
				if err != nil {
					return err
				}
				for _, s := range stmts {
					_, _ = fmt.Fprintf(out, "%s;\n\n", s)
				}
				return nil
			}

			ctx := cmd.Context()
			wh, err := storage.Open(ctx, scfg, log)
			if err != nil {
				return err
			}
			defer wh.Close()

			if err := storage.NewSchemaManager(wh, log).Ensure(ctx); err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Table", "Columns", "Rows"})
			for _, name := range []string{storage.TableCustomer, storage.TableProduct, storage.TableSale} {
				cols, err := wh.TableColumns(ctx, name)
				if err != nil {
					return err
				}
				n, err := wh.RowCount(ctx, name)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{name, len(cols), n})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the DDL without connecting")
	return cmd
}

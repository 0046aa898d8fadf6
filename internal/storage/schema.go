package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"salesdw/internal/dataset"
	"salesdw/internal/ddl"
	"salesdw/internal/etlerr"
)

// Warehouse table names.
const (
	TableCustomer = "customer"
	TableProduct  = "product"
	TableSale     = "sale"
)

// WarehouseTables returns the customer, product and sale definitions in
// creation order, typed for d.
func WarehouseTables(d Dialect) []ddl.TableDef {
	col := func(name string, t dataset.Type, pk bool) ddl.ColumnDef {
		return ddl.ColumnDef{Name: name, SQLType: d.MapType(t), Nullable: !pk, PrimaryKey: pk}
	}
	return []ddl.TableDef{
		{
			FQN: TableCustomer,
			Columns: []ddl.ColumnDef{
				col("customer_id", dataset.Integer, true),
				col("name", dataset.Text, false),
				col("region", dataset.Text, false),
				col("join_date", dataset.Temporal, false),
			},
		},
		{
			FQN: TableProduct,
			Columns: []ddl.ColumnDef{
				col("product_id", dataset.Integer, true),
				col("product_name", dataset.Text, false),
				col("category", dataset.Text, false),
			},
		},
		{
			FQN: TableSale,
			Columns: []ddl.ColumnDef{
				col("sale_id", dataset.Integer, true),
				col("customer_id", dataset.Integer, false),
				col("product_id", dataset.Integer, false),
				col("sale_amount", dataset.Real, false),
				col("sale_date", dataset.Temporal, false),
			},
			ForeignKeys: []ddl.ForeignKey{
				{Columns: []string{"customer_id"}, RefTable: TableCustomer, RefColumns: []string{"customer_id"}, OnDelete: d.OnDelete()},
				{Columns: []string{"product_id"}, RefTable: TableProduct, RefColumns: []string{"product_id"}, OnDelete: d.OnDelete()},
			},
		},
	}
}

// SchemaManager creates the warehouse tables. It never drops or alters an
// existing table.
type SchemaManager struct {
	wh  *Warehouse
	log *zap.Logger
}

// NewSchemaManager returns a manager writing through wh. A nil log discards.
func NewSchemaManager(wh *Warehouse, log *zap.Logger) *SchemaManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SchemaManager{wh: wh, log: log.Named("schema")}
}

// Statements returns the DDL EnsureSchema would run: the configured script
// split into statements, or the built-in definitions rendered for the
// dialect.
func (m *SchemaManager) Statements() ([]string, error) {
	if path := m.wh.cfg.SchemaFile; path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file: %w", err)
		}
		stmts := SplitStatements(string(b))
		if len(stmts) == 0 {
			return nil, fmt.Errorf("schema file %s has no statements", path)
		}
		return stmts, nil
	}

	defs := WarehouseTables(m.wh.dialect)
	out := make([]string, 0, len(defs))
	for _, t := range defs {
		s, err := ddl.BuildCreateTableSQL(t, m.wh.dialect.DDLStyle())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Ensure creates any missing warehouse table and then checks that all three
// exist. Every failure is a SchemaFault.
func (m *SchemaManager) Ensure(ctx context.Context) error {
	stmts, err := m.Statements()
	if err != nil {
		return etlerr.New(etlerr.SchemaFault, "", "ensure_schema", err)
	}
	for i, s := range stmts {
		if err := m.wh.Exec(ctx, s); err != nil {
			return etlerr.New(etlerr.SchemaFault, "", "ensure_schema", fmt.Errorf("statement %d: %w", i+1, err))
		}
	}

	var missing []string
	for _, t := range []string{TableCustomer, TableProduct, TableSale} {
		cols, err := m.wh.TableColumns(ctx, t)
		if err != nil {
			return etlerr.New(etlerr.SchemaFault, "", "ensure_schema", err)
		}
		if len(cols) == 0 {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return etlerr.New(etlerr.SchemaFault, "", "ensure_schema",
			fmt.Errorf("tables missing after schema creation"), missing...)
	}

	m.log.Info("schema ensured", zap.Int("statements", len(stmts)), zap.Bool("script", m.wh.cfg.SchemaFile != ""))
	return nil
}

// SplitStatements splits a SQL script on semicolons outside quotes and
// comments. Empty statements are dropped.
func SplitStatements(script string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	rs := []rune(script)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
			cur.WriteRune(r)
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
			cur.WriteRune('\n')
		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			i += 2
			for i+1 < len(rs) && !(rs[i] == '*' && rs[i+1] == '/') {
				i++
			}
			i++
			cur.WriteRune(' ')
		case r == ';':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// Package mssql is the SQL Server warehouse dialect.
//
// T-SQL has no CREATE TABLE IF NOT EXISTS, so table creation is wrapped in
// an IF OBJECT_ID(...) IS NULL guard. SQL Server checks foreign keys
// immediately and cannot defer them; referencing keys cascade on delete.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"salesdw/internal/dataset"
	"salesdw/internal/ddl"
	"salesdw/internal/storage"
)

func init() { storage.Register(Dialect{}) }

// Dialect implements storage.Dialect for SQL Server.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string       { return "mssql" }
func (Dialect) DriverName() string { return "sqlserver" }

func (Dialect) PrepareDSN(dsn string) (string, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

// Quote renders [schema].[table] style identifiers.
func (Dialect) Quote(ident string) string {
	parts := strings.Split(ident, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, "["+strings.ReplaceAll(p, "]", "]]")+"]")
		}
	}
	return strings.Join(out, ".")
}

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

func (Dialect) MapType(t dataset.Type) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Real:
		return "FLOAT"
	case dataset.Temporal:
		return "DATETIME2"
	default:
		return "NVARCHAR(MAX)"
	}
}

func (d Dialect) DDLStyle() ddl.Style {
	return ddl.Style{
		Quote: d.Quote,
		Wrap: func(table, stmt string) string {
			name := strings.ReplaceAll(d.Quote(table), "'", "''")
			return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n%s;\nEND", name, stmt)
		},
	}
}

// OnDelete cascades for the same reason as MySQL: constraints are immediate.
func (Dialect) OnDelete() string { return "CASCADE" }

func (Dialect) ColumnsQuery(table string) (string, []any) {
	schema, name := "", table
	if i := strings.LastIndex(table, "."); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}
	if schema == "" {
		return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1
ORDER BY ORDINAL_POSITION`, []any{name}
	}
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`, []any{schema, name}
}

// EnableForeignKeys is a no-op: SQL Server constraints are always checked
// unless disabled per table with NOCHECK, which this tool never does.
func (Dialect) EnableForeignKeys(context.Context, *sql.DB) error { return nil }

// CheckDeferred is a no-op: constraints are checked per statement.
func (Dialect) CheckDeferred(context.Context, *sql.Tx) error { return nil }

func (Dialect) BindValue(v any) any { return v }

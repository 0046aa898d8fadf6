// Package postgres is the Postgres warehouse dialect, opened through the
// pgx database/sql driver. Postgres always enforces foreign keys; they are
// declared DEFERRABLE INITIALLY DEFERRED so a dimension reload can replace
// referenced rows within one transaction.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"salesdw/internal/dataset"
	"salesdw/internal/ddl"
	"salesdw/internal/storage"
)

func init() { storage.Register(Dialect{}) }

// Dialect implements storage.Dialect for Postgres.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string       { return "postgres" }
func (Dialect) DriverName() string { return "pgx" }

// PrepareDSN validates a URL or keyword/value connection string.
func (Dialect) PrepareDSN(dsn string) (string, error) {
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

// Quote quotes a possibly schema-qualified name like "public.sale" as
// "public"."sale".
func (Dialect) Quote(ident string) string {
	parts := strings.Split(ident, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id.Sanitize()
}

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) MapType(t dataset.Type) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Real:
		return "DOUBLE PRECISION"
	case dataset.Temporal:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (d Dialect) DDLStyle() ddl.Style {
	return ddl.Style{
		Quote:       d.Quote,
		IfNotExists: true,
		FKSuffix:    "DEFERRABLE INITIALLY DEFERRED",
	}
}

func (Dialect) OnDelete() string { return "" }

func (Dialect) ColumnsQuery(table string) (string, []any) {
	schema, name := "", table
	if i := strings.LastIndex(table, "."); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}
	if schema == "" {
		return `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`, []any{name}
	}
	return `SELECT column_name FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, []any{schema, name}
}

// EnableForeignKeys confirms the connection is not in replica mode, which
// would skip constraint triggers.
func (Dialect) EnableForeignKeys(ctx context.Context, db *sql.DB) error {
	var role string
	if err := db.QueryRowContext(ctx, "SHOW session_replication_role").Scan(&role); err != nil {
		return fmt.Errorf("postgres: read session_replication_role: %w", err)
	}
	if role == "replica" {
		return fmt.Errorf("postgres: session_replication_role=replica disables foreign keys")
	}
	return nil
}

// CheckDeferred is a no-op: a failed Postgres COMMIT rolls back.
func (Dialect) CheckDeferred(context.Context, *sql.Tx) error { return nil }

func (Dialect) BindValue(v any) any { return v }

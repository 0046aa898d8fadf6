// Package mysql is the MySQL warehouse dialect. InnoDB checks foreign keys
// immediately and cannot defer them, so referencing keys cascade on delete.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"salesdw/internal/dataset"
	"salesdw/internal/ddl"
	"salesdw/internal/storage"
)

func init() { storage.Register(Dialect{}) }

// Dialect implements storage.Dialect for MySQL.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string       { return "mysql" }
func (Dialect) DriverName() string { return "mysql" }

// PrepareDSN parses the DSN and turns on parseTime so DATETIME columns scan
// into time.Time.
func (Dialect) PrepareDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (Dialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) MapType(t dataset.Type) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Real:
		return "DOUBLE"
	case dataset.Temporal:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func (d Dialect) DDLStyle() ddl.Style {
	return ddl.Style{
		Quote:        d.Quote,
		IfNotExists:  true,
		TableOptions: "ENGINE=InnoDB",
	}
}

// OnDelete cascades: foreign keys are checked per statement, so a dimension
// reload must take dependent sale rows with it.
func (Dialect) OnDelete() string { return "CASCADE" }

func (Dialect) ColumnsQuery(table string) (string, []any) {
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, []any{table}
}

func (Dialect) EnableForeignKeys(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil {
		return fmt.Errorf("mysql: enable foreign key checks: %w", err)
	}
	return nil
}

// CheckDeferred is a no-op: MySQL checks every statement immediately.
func (Dialect) CheckDeferred(context.Context, *sql.Tx) error { return nil }

func (Dialect) BindValue(v any) any { return v }

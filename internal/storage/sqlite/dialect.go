// Package sqlite is the default warehouse dialect: a single local file
// opened through the pure-Go modernc driver.
//
// SQLite does not enforce foreign keys unless asked. The DSN gets a
// foreign_keys pragma and EnableForeignKeys re-applies and verifies it on
// the warehouse's single connection. Foreign keys are declared DEFERRABLE
// INITIALLY DEFERRED, so a table reload may delete and re-insert referenced
// rows inside one transaction; CheckDeferred runs foreign_key_check before
// commit because a failed COMMIT leaves the sqlite transaction open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"salesdw/internal/dataset"
	"salesdw/internal/ddl"
	"salesdw/internal/storage"
)

func init() { storage.Register(Dialect{}) }

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string       { return "sqlite" }
func (Dialect) DriverName() string { return "sqlite" }

// PrepareDSN accepts a plain path, ":memory:" or a "file:" URI. The parent
// directory of a file path is created, and the foreign_keys pragma is added
// unless the DSN already sets it.
func (Dialect) PrepareDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	path, query, _ := strings.Cut(dsn, "?")
	path = strings.TrimPrefix(path, "file:")

	if path != "" && path != ":memory:" && !strings.HasPrefix(path, ":") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create warehouse directory: %w", err)
			}
		}
	}

	if strings.Contains(query, "foreign_keys") {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)", nil
}

func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Placeholder(int) string { return "?" }

// MapType uses SQLite affinities. Temporal values are stored as ISO-8601 text.
func (Dialect) MapType(t dataset.Type) string {
	switch t {
	case dataset.Integer:
		return "INTEGER"
	case dataset.Real:
		return "REAL"
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

// OnDelete is empty; deferred checking lets a reload re-insert parents.
func (Dialect) OnDelete() string { return "" }

func (Dialect) ColumnsQuery(table string) (string, []any) {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid", []any{table}
}

func (Dialect) EnableForeignKeys(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	var on int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on); err != nil {
		return fmt.Errorf("sqlite: read foreign_keys: %w", err)
	}
	if on != 1 {
		return fmt.Errorf("sqlite: foreign key enforcement is off")
	}
	return nil
}

// CheckDeferred returns a *storage.ForeignKeyError when any row references
// a missing parent.
func (Dialect) CheckDeferred(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("sqlite: foreign_key_check: %w", err)
	}
	defer rows.Close()

	var fk storage.ForeignKeyError
	for rows.Next() {
		var (
			table, parent string
			rowid         sql.NullInt64
			fkid          int64
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("sqlite: foreign_key_check: %w", err)
		}
		if fk.Count == 0 {
			fk.Child, fk.Parent, fk.RowID = table, parent, rowid.Int64
		}
		fk.Count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: foreign_key_check: %w", err)
	}
	if fk.Count > 0 {
		return &fk
	}
	return nil
}

// BindValue renders times as text: a date when the time is midnight UTC,
// otherwise RFC 3339.
func (Dialect) BindValue(v any) any {
	t, ok := v.(time.Time)
	if !ok {
		return v
	}
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format("2006-01-02")
	}
	return u.Format(time.RFC3339Nano)
}

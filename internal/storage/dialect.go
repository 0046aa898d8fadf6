// Package storage owns the warehouse connection and everything that writes
// through it: the dialect registry, the schema manager and the loader.
//
// Dialect packages (sqlite, postgres, mysql, mssql) register themselves at
// init time. Import internal/storage/all to enable every built-in dialect.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"salesdw/internal/dataset"
	"salesdw/internal/ddl"
)

// Dialect adapts the warehouse to one SQL backend.
type Dialect interface {
	// Name is the warehouse.kind selecting this dialect.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// PrepareDSN validates dsn and adds whatever the dialect needs.
	PrepareDSN(dsn string) (string, error)
	// Quote escapes an identifier.
	Quote(ident string) string
	// Placeholder returns the bind marker of the n-th parameter (1-based).
	Placeholder(n int) string
	// MapType maps a semantic column type to a SQL type.
	MapType(t dataset.Type) string
	// DDLStyle configures CREATE TABLE rendering.
	DDLStyle() ddl.Style
	// OnDelete is the referential action of the sale foreign keys, e.g.
	// "CASCADE". Empty leaves the backend default.
	OnDelete() string
	// ColumnsQuery returns a query listing the live columns of table in
	// ordinal order. It yields no rows when the table does not exist.
	ColumnsQuery(table string) (string, []any)
	// EnableForeignKeys turns on and verifies referential enforcement for
	// the connection.
	EnableForeignKeys(ctx context.Context, db *sql.DB) error
	// CheckDeferred reports deferred constraint violations inside tx before
	// commit. Dialects whose commit fails cleanly return nil.
	CheckDeferred(ctx context.Context, tx *sql.Tx) error
	// BindValue converts a cell to a driver argument.
	BindValue(v any) any
}

// ForeignKeyError reports child rows left without a parent at commit time.
type ForeignKeyError struct {
	// Child and Parent are table names; RowID is the first offending child row.
	Child, Parent string
	RowID         int64
	Count         int
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("foreign key constraint failed: %d violation(s), first: %s row %d references missing %s",
		e.Count, e.Child, e.RowID, e.Parent)
}

var (
	mu       sync.RWMutex
	dialects = map[string]Dialect{}
)

// Register registers (or replaces) a dialect under d.Name().
func Register(d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[d.Name()] = d
}

// Lookup returns the dialect registered for kind.
func Lookup(kind string) (Dialect, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported warehouse.kind=%s", kind)
	}
	return d, nil
}

// Kinds returns a sorted snapshot of the registered dialect names.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(dialects))
	for k := range dialects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

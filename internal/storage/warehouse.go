package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"salesdw/internal/etlerr"
)

// Config selects and locates the warehouse.
type Config struct {
	Kind string
	DSN  string
	// SchemaFile, when set, is a SQL script run by EnsureSchema instead of
	// the built-in table definitions.
	SchemaFile string
}

// Warehouse is the single, exclusively owned connection to the store. The
// pool is capped at one connection, so session settings such as sqlite
// pragmas hold for every statement. Close releases it.
type Warehouse struct {
	db      *sql.DB
	dialect Dialect
	cfg     Config
	log     *zap.Logger
}

// Open connects to the warehouse described by cfg and enables foreign key
// enforcement. The caller owns the result and must Close it.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Warehouse, error) {
	d, err := Lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Name())
	}
	dsn, err := d.PrepareDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: dsn: %w", d.Name(), err)
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Name(), err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, etlerr.New(etlerr.StoreFault, "", "connect", fmt.Errorf("%s: ping: %w", d.Name(), err))
	}
	if err := d.EnableForeignKeys(ctx, db); err != nil {
		db.Close()
		return nil, etlerr.New(etlerr.SchemaFault, "", "connect", err)
	}

	w := NewWithDB(db, d, cfg, log)
	w.log.Info("warehouse opened", zap.String("kind", d.Name()))
	return w, nil
}

// NewWithDB wraps an already opened handle. Foreign key setup is the
// caller's responsibility. A nil log discards.
func NewWithDB(db *sql.DB, d Dialect, cfg Config, log *zap.Logger) *Warehouse {
	if log == nil {
		log = zap.NewNop()
	}
	return &Warehouse{db: db, dialect: d, cfg: cfg, log: log.Named("warehouse")}
}

// Close releases the connection.
func (w *Warehouse) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.log.Debug("warehouse closed")
	return err
}

// DB returns the underlying handle.
func (w *Warehouse) DB() *sql.DB { return w.db }

// Dialect returns the active dialect.
func (w *Warehouse) Dialect() Dialect { return w.dialect }

// Exec runs a single statement.
func (w *Warehouse) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return errors.New("exec: empty statement")
	}
	if _, err := w.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: exec: %w", w.dialect.Name(), err)
	}
	return nil
}

// TableColumns lists the live columns of table in ordinal order. A missing
// table yields an empty slice and no error.
func (w *Warehouse) TableColumns(ctx context.Context, table string) ([]string, error) {
	q, args := w.dialect.ColumnsQuery(table)
	rows, err := w.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: columns of %s: %w", w.dialect.Name(), table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%s: columns of %s: %w", w.dialect.Name(), table, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// RowCount returns the number of rows in table.
func (w *Warehouse) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+w.dialect.Quote(table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: count %s: %w", w.dialect.Name(), table, err)
	}
	return n, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"salesdw/internal/dataset"
	"salesdw/internal/etlerr"
)

// LoadRequest binds one dataset to its target table.
type LoadRequest struct {
	Table       string
	Dataset     *dataset.Dataset
	DeleteFirst bool
}

// LoadResult reports one committed load.
type LoadResult struct {
	Table   string
	Deleted int64
	Loaded  int64
	// Dropped lists dataset columns absent from the table.
	Dropped []string
}

// Loader writes datasets into warehouse tables, one transaction per table.
type Loader struct {
	wh  *Warehouse
	log *zap.Logger
}

// NewLoader returns a Loader writing through wh. A nil log discards.
func NewLoader(wh *Warehouse, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{wh: wh, log: log.Named("loader")}
}

// Load appends req.Dataset to req.Table, first clearing the table when
// DeleteFirst is set. The delete and the insert share one transaction, so
// on any failure nothing is committed.
//
// Only columns present in the live table are written; the rest are reported
// in LoadResult.Dropped. A missing table is a SchemaFault; a failed
// statement is a StoreFault.
func (l *Loader) Load(ctx context.Context, req LoadRequest) (LoadResult, error) {
	res := LoadResult{Table: req.Table}
	ds := req.Dataset
	kind := string(ds.Kind)
	d := l.wh.dialect
	log := l.log.With(zap.String("dataset", kind), zap.String("table", req.Table))
	fault := func(k etlerr.Kind, err error, details ...string) (LoadResult, error) {
		return LoadResult{Table: req.Table}, etlerr.New(k, kind, "load", err, details...)
	}

	live, err := l.wh.TableColumns(ctx, req.Table)
	if err != nil {
		return fault(etlerr.StoreFault, err)
	}
	if len(live) == 0 {
		return fault(etlerr.SchemaFault, fmt.Errorf("table %q does not exist", req.Table))
	}

	keep, dropped := intersect(ds.Columns, live)
	res.Dropped = dropped
	if len(dropped) > 0 {
		log.Warn("columns not in target table dropped", zap.Strings("columns", dropped))
	}
	if len(keep) == 0 {
		return fault(etlerr.SchemaFault, fmt.Errorf("no dataset column matches table %q", req.Table), ds.Columns...)
	}

	start := time.Now()
	tx, err := l.wh.db.BeginTx(ctx, nil)
	if err != nil {
		return fault(etlerr.StoreFault, fmt.Errorf("begin tx: %w", err))
	}
	rollback := func(err error) (LoadResult, error) {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback failed", zap.Error(rbErr))
		}
		log.Error("load rolled back", zap.Error(err))
		return fault(etlerr.StoreFault, err)
	}

	if req.DeleteFirst {
		r, err := tx.ExecContext(ctx, "DELETE FROM "+d.Quote(req.Table))
		if err != nil {
			return rollback(fmt.Errorf("delete: %w", err))
		}
		if n, err := r.RowsAffected(); err == nil {
			res.Deleted = n
		}
	}

	if ds.Len() > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSQL(d, req.Table, keep))
		if err != nil {
			return rollback(fmt.Errorf("prepare insert: %w", err))
		}
		idx := make([]int, len(keep))
		for i, c := range keep {
			idx[i] = ds.Index(c)
		}
		args := make([]any, len(keep))
		for n, row := range ds.Rows {
			for i, j := range idx {
				args[i] = d.BindValue(row[j])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				stmt.Close()
				return rollback(fmt.Errorf("insert row %d: %w", n+1, err))
			}
			res.Loaded++
		}
		stmt.Close()
	}

	if err := d.CheckDeferred(ctx, tx); err != nil {
		return rollback(orphanHint(err, req.Table))
	}
	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return fault(etlerr.StoreFault, fmt.Errorf("commit: %w", err))
	}

	log.Info("table loaded",
		zap.Int64("deleted", res.Deleted),
		zap.Int64("rows", res.Loaded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// orphanHint explains a reload of table that would strand rows of another
// table, since those rows block every later reload of table until their own
// table is cleared or reloaded.
func orphanHint(err error, table string) error {
	var fk *ForeignKeyError
	if !errors.As(err, &fk) || fk.Child == table {
		return err
	}
	return fmt.Errorf("%w: %s rows reference %s rows absent from this extract; clear or reload %s first",
		err, fk.Child, fk.Parent, fk.Child)
}

// intersect keeps dataset columns found in live, in dataset order.
func intersect(cols, live []string) (keep, dropped []string) {
	set := make(map[string]struct{}, len(live))
	for _, c := range live {
		set[c] = struct{}{}
	}
	for _, c := range cols {
		if _, ok := set[c]; ok {
			keep = append(keep, c)
		} else {
			dropped = append(dropped, c)
		}
	}
	return keep, dropped
}

func insertSQL(d Dialect, table string, cols []string) string {
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.Quote(c)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}

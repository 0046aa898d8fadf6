package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/dataset"
	"salesdw/internal/etlerr"
	"salesdw/internal/storage"
	"salesdw/internal/storage/sqlite"
)

func openWarehouse(t *testing.T, schemaFile string) *storage.Warehouse {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "dw", "smart_sales.db")
	wh, err := storage.Open(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn, SchemaFile: schemaFile}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })
	return wh
}

func ensured(t *testing.T) *storage.Warehouse {
	t.Helper()
	wh := openWarehouse(t, "")
	require.NoError(t, storage.NewSchemaManager(wh, nil).Ensure(context.Background()))
	return wh
}

func customers(t *testing.T, ids ...int64) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(dataset.Customer, []string{"customer_id", "name", "region", "join_date", "age"})
	for _, id := range ids {
		require.NoError(t, ds.Append(dataset.Row{id, "A", "East", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), int64(30)}))
	}
	return ds
}

func products(t *testing.T, ids ...int64) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(dataset.Product, []string{"product_id", "product_name", "category"})
	for _, id := range ids {
		require.NoError(t, ds.Append(dataset.Row{id, "Widget", "Tools"}))
	}
	return ds
}

func sales(t *testing.T, rows ...dataset.Row) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(dataset.Sale, []string{"sale_id", "customer_id", "product_id", "sale_amount", "sale_date"})
	for _, r := range rows {
		require.NoError(t, ds.Append(r))
	}
	return ds
}

func count(t *testing.T, wh *storage.Warehouse, table string) int64 {
	t.Helper()
	n, err := wh.RowCount(context.Background(), table)
	require.NoError(t, err)
	return n
}

func load(t *testing.T, l *storage.Loader, table string, ds *dataset.Dataset, deleteFirst bool) storage.LoadResult {
	t.Helper()
	res, err := l.Load(context.Background(), storage.LoadRequest{Table: table, Dataset: ds, DeleteFirst: deleteFirst})
	require.NoError(t, err)
	return res
}

func TestPrepareDSN(t *testing.T) {
	dir := t.TempDir()
	d := sqlite.Dialect{}

	tests := []struct {
		in, want string
	}{
		{filepath.Join(dir, "a", "x.db"), filepath.Join(dir, "a", "x.db") + "?_pragma=foreign_keys(1)"},
		{":memory:", ":memory:?_pragma=foreign_keys(1)"},
		{"file:" + filepath.Join(dir, "y.db") + "?cache=shared", "file:" + filepath.Join(dir, "y.db") + "?cache=shared&_pragma=foreign_keys(1)"},
		{"z.db?_pragma=foreign_keys(0)", "z.db?_pragma=foreign_keys(0)"},
	}
	for _, tt := range tests {
		got, err := d.PrepareDSN(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := os.Stat(filepath.Join(dir, "a"))
	assert.NoError(t, err, "parent directory created")
}

func TestBindValue(t *testing.T) {
	d := sqlite.Dialect{}
	assert.Equal(t, "2021-03-04", d.BindValue(time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2021-03-04T10:30:00Z", d.BindValue(time.Date(2021, 3, 4, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, int64(5), d.BindValue(int64(5)))
	assert.Nil(t, d.BindValue(nil))
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	wh := openWarehouse(t, "")
	m := storage.NewSchemaManager(wh, nil)

	require.NoError(t, m.Ensure(ctx))
	load(t, storage.NewLoader(wh, nil), storage.TableCustomer, customers(t, 1), false)
	require.NoError(t, m.Ensure(ctx))

	assert.Equal(t, int64(1), count(t, wh, storage.TableCustomer), "existing rows survive")
	cols, err := wh.TableColumns(ctx, storage.TableSale)
	require.NoError(t, err)
	assert.Equal(t, []string{"sale_id", "customer_id", "product_id", "sale_amount", "sale_date"}, cols)
}

func TestEnsureSchema_ForeignKeysEnforced(t *testing.T) {
	wh := ensured(t)

	_, err := wh.DB().Exec(`INSERT INTO sale (sale_id, customer_id, product_id, sale_amount) VALUES (1, 99, 99, 1.0)`)
	assert.Error(t, err)

	var on int
	require.NoError(t, wh.DB().QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}

func TestEnsureSchema_Script(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "schema.sql")
	require.NoError(t, os.WriteFile(script, []byte(`
-- smart sales warehouse
CREATE TABLE IF NOT EXISTS customer (customer_id INTEGER PRIMARY KEY, name TEXT, region TEXT, join_date TEXT);
CREATE TABLE IF NOT EXISTS product (product_id INTEGER PRIMARY KEY, product_name TEXT, category TEXT);
CREATE TABLE IF NOT EXISTS sale (
  sale_id INTEGER PRIMARY KEY,
  customer_id INTEGER REFERENCES customer (customer_id),
  product_id INTEGER REFERENCES product (product_id),
  sale_amount REAL,
  sale_date TEXT
);
`), 0o644))

	wh := openWarehouse(t, script)
	m := storage.NewSchemaManager(wh, nil)
	stmts, err := m.Statements()
	require.NoError(t, err)
	assert.Len(t, stmts, 3)
	require.NoError(t, m.Ensure(context.Background()))
	require.NoError(t, m.Ensure(context.Background()))
}

func TestEnsureSchema_ScriptMissingTable(t *testing.T) {
	script := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(script, []byte("CREATE TABLE customer (customer_id INTEGER PRIMARY KEY);"), 0o644))

	err := storage.NewSchemaManager(openWarehouse(t, script), nil).Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, etlerr.IsKind(err, etlerr.SchemaFault))
	assert.Contains(t, err.Error(), "product")
	assert.Contains(t, err.Error(), "sale")
}

func TestEnsureSchema_ScriptUnreadable(t *testing.T) {
	err := storage.NewSchemaManager(openWarehouse(t, filepath.Join(t.TempDir(), "none.sql")), nil).Ensure(context.Background())
	assert.True(t, etlerr.IsKind(err, etlerr.SchemaFault))
}

func TestLoad_ReferentialScenario(t *testing.T) {
	ctx := context.Background()
	wh := ensured(t)
	l := storage.NewLoader(wh, nil)

	load(t, l, storage.TableCustomer, customers(t, 1), true)
	load(t, l, storage.TableProduct, products(t, 10), true)
	res := load(t, l, storage.TableSale, sales(t,
		dataset.Row{int64(100), int64(1), int64(10), 9.99, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
	), true)
	assert.Equal(t, int64(1), res.Loaded)

	var resolved int
	require.NoError(t, wh.DB().QueryRowContext(ctx, `
SELECT COUNT(*) FROM sale s
JOIN customer c ON c.customer_id = s.customer_id
JOIN product p ON p.product_id = s.product_id`).Scan(&resolved))
	assert.Equal(t, 1, resolved)

	var joined string
	require.NoError(t, wh.DB().QueryRowContext(ctx, `SELECT join_date FROM customer WHERE customer_id = 1`).Scan(&joined))
	assert.Equal(t, "2021-03-04", joined)
}

func TestLoad_DropsUnknownColumns(t *testing.T) {
	wh := ensured(t)
	ds := dataset.New(dataset.Customer, []string{"customer_id", "name", "Notes"})
	require.NoError(t, ds.Append(dataset.Row{int64(1), "A", "vip"}))

	res := load(t, storage.NewLoader(wh, nil), storage.TableCustomer, ds, true)

	assert.Equal(t, []string{"Notes"}, res.Dropped)
	assert.Equal(t, int64(1), res.Loaded)
	var name string
	require.NoError(t, wh.DB().QueryRow(`SELECT name FROM customer WHERE customer_id = 1`).Scan(&name))
	assert.Equal(t, "A", name)
}

func TestLoad_DeleteFirstIsIdempotent(t *testing.T) {
	wh := ensured(t)
	l := storage.NewLoader(wh, nil)

	load(t, l, storage.TableCustomer, customers(t, 1, 2), true)
	res := load(t, l, storage.TableCustomer, customers(t, 1, 2), true)

	assert.Equal(t, int64(2), res.Deleted)
	assert.Equal(t, int64(2), res.Loaded)
	assert.Equal(t, int64(2), count(t, wh, storage.TableCustomer))
}

func TestLoad_WithoutDeleteFirstConflicts(t *testing.T) {
	wh := ensured(t)
	l := storage.NewLoader(wh, nil)
	load(t, l, storage.TableCustomer, customers(t, 1), false)

	_, err := l.Load(context.Background(), storage.LoadRequest{Table: storage.TableCustomer, Dataset: customers(t, 1)})
	require.Error(t, err)
	assert.True(t, etlerr.IsKind(err, etlerr.StoreFault))
	assert.Equal(t, int64(1), count(t, wh, storage.TableCustomer))
}

func TestLoad_RollsBackDeleteOnInsertFailure(t *testing.T) {
	wh := ensured(t)
	l := storage.NewLoader(wh, nil)
	load(t, l, storage.TableCustomer, customers(t, 1, 2), true)

	_, err := l.Load(context.Background(), storage.LoadRequest{
		Table:       storage.TableCustomer,
		Dataset:     customers(t, 3, 3),
		DeleteFirst: true,
	})
	require.Error(t, err)
	assert.True(t, etlerr.IsKind(err, etlerr.StoreFault))
	assert.Contains(t, err.Error(), "dataset=customer stage=load")

	assert.Equal(t, int64(2), count(t, wh, storage.TableCustomer), "delete rolled back with the failed insert")
}

func TestLoad_DeferredForeignKeys(t *testing.T) {
	wh := ensured(t)
	l := storage.NewLoader(wh, nil)
	load(t, l, storage.TableCustomer, customers(t, 1, 2), true)
	load(t, l, storage.TableProduct, products(t, 10), true)
	load(t, l, storage.TableSale, sales(t, dataset.Row{int64(100), int64(1), int64(10), 9.99, nil}), true)

	// Reloading referenced rows within one transaction is legal.
	load(t, l, storage.TableCustomer, customers(t, 1, 2), true)
	assert.Equal(t, int64(1), count(t, wh, storage.TableSale))

	// Dropping a referenced customer is not.
	_, err := l.Load(context.Background(), storage.LoadRequest{
		Table:       storage.TableCustomer,
		Dataset:     customers(t, 2),
		DeleteFirst: true,
	})
	require.Error(t, err)
	assert.True(t, etlerr.IsKind(err, etlerr.StoreFault))
	var fk *storage.ForeignKeyError
	require.ErrorAs(t, err, &fk)
	assert.Equal(t, storage.ForeignKeyError{Child: "sale", Parent: "customer", RowID: 100, Count: 1}, *fk)
	assert.Contains(t, err.Error(), "sale rows reference customer rows absent from this extract; clear or reload sale first")

	assert.Equal(t, int64(2), count(t, wh, storage.TableCustomer))
	assert.Equal(t, int64(1), count(t, wh, storage.TableSale))

	// A fact row pointing at a missing dimension row is rejected.
	_, err = l.Load(context.Background(), storage.LoadRequest{
		Table:   storage.TableSale,
		Dataset: sales(t, dataset.Row{int64(101), int64(7), int64(10), 1.0, nil}),
	})
	assert.True(t, etlerr.IsKind(err, etlerr.StoreFault))
	assert.NotContains(t, err.Error(), "clear or reload")
	assert.Equal(t, int64(1), count(t, wh, storage.TableSale))
}

func TestLoad_MissingTable(t *testing.T) {
	wh := openWarehouse(t, "")

	_, err := storage.NewLoader(wh, nil).Load(context.Background(), storage.LoadRequest{
		Table:   storage.TableCustomer,
		Dataset: customers(t, 1),
	})
	require.Error(t, err)
	assert.True(t, etlerr.IsKind(err, etlerr.SchemaFault))
}

func TestLoad_NoMatchingColumns(t *testing.T) {
	wh := ensured(t)
	ds := dataset.New(dataset.Customer, []string{"CustomerID"})
	require.NoError(t, ds.Append(dataset.Row{int64(1)}))

	_, err := storage.NewLoader(wh, nil).Load(context.Background(), storage.LoadRequest{Table: storage.TableCustomer, Dataset: ds})
	assert.True(t, etlerr.IsKind(err, etlerr.SchemaFault))
}

func TestLoad_EmptyDatasetClearsTable(t *testing.T) {
	wh := ensured(t)
	l := storage.NewLoader(wh, nil)
	load(t, l, storage.TableProduct, products(t, 10, 11), true)

	res := load(t, l, storage.TableProduct, products(t), true)
	assert.Equal(t, int64(2), res.Deleted)
	assert.Zero(t, res.Loaded)
	assert.Zero(t, count(t, wh, storage.TableProduct))
}

package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"salesdw/internal/dataset"
)

func customerRow(id int64, name, region string, joined time.Time, age int64) dataset.Row {
	return dataset.Row{id, name, region, joined, age}
}

func validCustomers(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New(dataset.Customer, []string{"CustomerID", "Name", "Region", "JoinDate", "Age"})
	day := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ds.Append(customerRow(1, "A", "East", day, 30)))
	require.NoError(t, ds.Append(customerRow(2, "B", "West", day, 41)))
	return ds
}

func TestVerify_Success(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ck := NewChecker(zap.New(core))

	ok, violations := ck.Verify(validCustomers(t), Customers())

	assert.True(t, ok)
	assert.Empty(t, violations)
	assert.Equal(t, 1, logs.FilterMessage("columns and types verified").Len())
}

func TestVerify_MissingRegion(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ck := NewChecker(zap.New(core))

	ds := dataset.New(dataset.Customer, []string{"CustomerID", "Name", "JoinDate", "Age"})
	require.NoError(t, ds.Append(dataset.Row{int64(1), "A", time.Now(), int64(30)}))

	ok, violations := ck.Verify(ds, Customers())

	assert.False(t, ok)
	assert.Equal(t, []string{"Region"}, MissingColumns(violations))
	assert.Equal(t, ColumnCount, violations[0].Kind)

	entries := logs.FilterMessage("contract violation").FilterField(zap.String("column", "Region")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestVerify_ReportsEveryViolation(t *testing.T) {
	ck := NewChecker(nil)

	ds := dataset.New(dataset.Customer, []string{"CustomerID", "Name", "Region", "JoinDate", "Notes"})
	require.NoError(t, ds.Append(dataset.Row{"not-a-number", "A", "East", "2021-01-01", "x"}))

	ok, violations := ck.Verify(ds, Customers())
	require.False(t, ok)

	kinds := map[ViolationKind][]string{}
	for _, v := range violations {
		kinds[v.Kind] = append(kinds[v.Kind], v.Column)
	}
	assert.Equal(t, []string{"Age"}, kinds[MissingColumn])
	assert.Equal(t, []string{"Notes"}, kinds[UnexpectedColumn])
	assert.ElementsMatch(t, []string{"CustomerID", "JoinDate"}, kinds[TypeMismatch])
	assert.Empty(t, kinds[ColumnCount])
}

func TestCheckColumns_IgnoresCellTypes(t *testing.T) {
	ds := dataset.New(dataset.Customer, []string{"CustomerID", "Name", "JoinDate", "Age"})
	require.NoError(t, ds.Append(dataset.Row{"not-a-number", "A", "soon", "old"}))

	violations := CheckColumns(ds, Customers())

	require.Len(t, violations, 2)
	assert.Equal(t, Violation{Kind: ColumnCount, Expected: "5", Actual: "4"}, violations[0])
	assert.Equal(t, Violation{Kind: MissingColumn, Column: "Region", Expected: "text"}, violations[1])
	assert.Empty(t, CheckColumns(validCustomers(t), Customers()))
}

func TestVerify_TypeComparisonIsExact(t *testing.T) {
	ds := validCustomers(t)
	for _, r := range ds.Rows {
		r[4] = float64(r[4].(int64))
	}

	ok, violations := NewChecker(nil).Verify(ds, Customers())
	require.False(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, Violation{Kind: TypeMismatch, Column: "Age", Expected: "integer", Actual: "real"}, violations[0])
}

func TestVerify_TemporalIsNotCoerced(t *testing.T) {
	ds := validCustomers(t)
	for _, r := range ds.Rows {
		r[3] = "2021-03-04"
	}

	ok, violations := NewChecker(nil).Verify(ds, Customers())
	assert.False(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, "JoinDate", violations[0].Column)
	assert.Equal(t, "text", violations[0].Actual)
}

func TestCheck_IffProperty(t *testing.T) {
	c := Contract{Kind: dataset.Sale, Fields: []Field{
		{Name: "a", Type: dataset.Integer},
		{Name: "b", Type: dataset.Text},
	}}

	tests := []struct {
		name string
		cols []string
		row  dataset.Row
		want bool
	}{
		{"exact", []string{"a", "b"}, dataset.Row{int64(1), "x"}, true},
		{"reordered", []string{"b", "a"}, dataset.Row{"x", int64(1)}, true},
		{"extra", []string{"a", "b", "c"}, dataset.Row{int64(1), "x", "y"}, false},
		{"missing", []string{"a"}, dataset.Row{int64(1)}, false},
		{"renamed", []string{"a", "B"}, dataset.Row{int64(1), "x"}, false},
		{"wrong type", []string{"a", "b"}, dataset.Row{"1", "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := dataset.New(dataset.Sale, tt.cols)
			require.NoError(t, ds.Append(tt.row))
			assert.Equal(t, tt.want, len(Check(ds, c)) == 0)
		})
	}
}

func TestViolation_String(t *testing.T) {
	assert.Equal(t, `missing column "Region"`, Violation{Kind: MissingColumn, Column: "Region"}.String())
	assert.Equal(t,
		`incorrect type for column "Age": expected integer, found real`,
		Violation{Kind: TypeMismatch, Column: "Age", Expected: "integer", Actual: "real"}.String())
	assert.Equal(t,
		"incorrect number of columns: expected 5, found 4",
		Violation{Kind: ColumnCount, Expected: "5", Actual: "4"}.String())
}

func TestBuiltin(t *testing.T) {
	for _, k := range dataset.Kinds() {
		c, err := Builtin(k)
		require.NoError(t, err)
		assert.Equal(t, k, c.Kind)
		assert.NotZero(t, c.Len())
	}

	a := Customers()
	a.Fields[0].Name = "changed"
	assert.Equal(t, "CustomerID", Customers().Fields[0].Name)

	_, err := Builtin("inventory")
	assert.Error(t, err)
}

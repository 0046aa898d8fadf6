package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdw/internal/dataset"
	"salesdw/internal/schema"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CustomerID", "customer_id"},
		{"ProductName", "product_name"},
		{"SaleAmount", "sale_amount"},
		{"JoinDate", "join_date"},
		{"Name", "name"},
		{"HTTPServer", "http_server"},
		{"saleAmount", "sale_amount"},
		{"Address2Line", "address2_line"},
		{"Sale Amount", "saleamount"},
		{"unit-price ($)", "unitprice"},
		{"  Region  ", "region"},
		{"customer_id", "customer_id"},
		{"customer__id", "customer__id"},
		{"_id", "_id"},
		{"__Weird__Name__", "__weird__name__"},
		{"MixedUP_case99Value", "mixed_up_case99_value"},
		{"Región", "region"},
		{"ÉtatCivil", "etat_civil"},
		{"ID", "id"},
		{"", ""},
		{"$$$", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"CustomerID", "HTTPServerURL", "Sale Amount", "a__b", "X1Y2Z3",
		"WholesalePrice", "Región_Código", "already_snake_case", "MixedUP_case99Value",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
		assert.Regexp(t, `^[a-z0-9_]*$`, once)
	}
}

func TestNormalize_DropsPunctuationWithoutSeparating(t *testing.T) {
	// Only case changes separate.
	assert.Equal(t, Normalize("SaleAmount"), Normalize("Sale_Amount"))
	assert.Equal(t, "saleamount", Normalize("sale amount"))
	assert.Equal(t, "sale_amount", Normalize("sale_amount"))
}

func TestNormalizeColumns_HeaderOnly(t *testing.T) {
	ds := dataset.New(dataset.Customer, []string{"CustomerID", "Name"})
	require.NoError(t, ds.Append(dataset.Row{int64(1), "A"}))

	out := NormalizeColumns(ds)

	assert.Equal(t, []string{"customer_id", "name"}, out.Columns)
	assert.Equal(t, []string{"CustomerID", "Name"}, ds.Columns)
	assert.Equal(t, ds.Rows, out.Rows)
	assert.Equal(t, dataset.Customer, out.Kind)
}

func TestBuiltinContracts_NormalizeWithoutCollisions(t *testing.T) {
	for _, kind := range dataset.Kinds() {
		c, err := schema.Builtin(kind)
		require.NoError(t, err)

		seen := map[string]string{}
		for _, name := range c.Names() {
			n := Normalize(name)
			require.NotEmpty(t, n, "column %q normalizes to empty", name)
			prev, dup := seen[n]
			assert.False(t, dup, "%s: %q and %q both normalize to %q", kind, prev, name, n)
			seen[n] = name
		}
	}
}

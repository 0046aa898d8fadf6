package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kinds = []string{"mssql", "mysql", "postgres", "sqlite"}

// validConfig returns defaults with every source present on disk.
func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Datasets.Customer.Path = writeFile(t, dir, "c.csv", "CustomerID\n")
	cfg.Datasets.Product.Path = writeFile(t, dir, "p.csv", "ProductID\n")
	cfg.Datasets.Sale.Path = writeFile(t, dir, "s.csv", "SaleID\n")
	return cfg
}

func paths(issues []Issue, sev IssueSeverity) []string {
	var out []string
	for _, iss := range issues {
		if iss.Severity == sev {
			out = append(out, iss.Path)
		}
	}
	return out
}

func TestValidate_Clean(t *testing.T) {
	issues := Validate(validConfig(t), kinds)
	assert.Empty(t, issues)
	assert.False(t, HasErrors(issues))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errors   []string
		warnings []string
	}{
		{
			name:   "unknown warehouse",
			mutate: func(c *Config) { c.Warehouse.Kind = "oracle" },
			errors: []string{"warehouse.kind"},
		},
		{
			name:   "empty dsn and missing schema file",
			mutate: func(c *Config) { c.Warehouse.DSN = ""; c.Warehouse.SchemaFile = filepath.Join(t.TempDir(), "nope.sql") },
			errors: []string{"warehouse.dsn", "warehouse.schema_file"},
		},
		{
			name: "dataset problems",
			mutate: func(c *Config) {
				c.Datasets.Customer.Path = ""
				c.Datasets.Product.Path = "does/not/exist.csv"
				c.Datasets.Sale.Table = "customer"
				c.Datasets.Sale.DeleteFirst = false
			},
			errors:   []string{"datasets.customer.path", "datasets.sale.table"},
			warnings: []string{"datasets.product.path", "datasets.sale.delete_first"},
		},
		{
			name: "cleaning",
			mutate: func(c *Config) {
				c.Cleaning.AgeMin = 60
				c.Cleaning.AgeMax = 30
				c.Cleaning.CoercionPolicy = "ignore"
				c.Cleaning.DateLayouts = nil
			},
			errors:   []string{"cleaning.age_max", "cleaning.coercion_policy"},
			warnings: []string{"cleaning.date_layouts"},
		},
		{
			name:   "csv delimiter",
			mutate: func(c *Config) { c.CSV.Comma = ";;" },
			errors: []string{"csv.comma"},
		},
		{
			name: "header map",
			mutate: func(c *Config) {
				c.CSV.HeaderMap = map[string]string{"Cust ID": "CustomerID", "Client": "CustomerID", "Notes": ""}
			},
			errors: []string{"csv.header_map", "csv.header_map"},
		},
		{
			name:   "log",
			mutate: func(c *Config) { c.Log.Level = "chatty"; c.Log.Format = "xml" },
			errors: []string{"log.level", "log.format"},
		},
		{
			name:   "pushgateway without url",
			mutate: func(c *Config) { c.Metrics.Backend = "pushgateway" },
			errors: []string{"metrics.pushgateway_url"},
		},
		{
			name:     "datadog without addr or job",
			mutate:   func(c *Config) { c.Metrics.Backend = "datadog"; c.Metrics.Job = "" },
			errors:   []string{"metrics.datadog_addr"},
			warnings: []string{"metrics.job"},
		},
		{
			name:   "unknown metrics backend",
			mutate: func(c *Config) { c.Metrics.Backend = "statsd" },
			errors: []string{"metrics.backend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			issues := Validate(cfg, kinds)
			assert.ElementsMatch(t, tt.errors, paths(issues, SeverityError))
			assert.ElementsMatch(t, tt.warnings, paths(issues, SeverityWarning))
			assert.Equal(t, len(tt.errors) > 0, HasErrors(issues))
		})
	}
}

func TestIssue_Error(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "warehouse.dsn", Message: "empty"}
	assert.Equal(t, "error at warehouse.dsn: empty", iss.Error())
}

// Package config defines the run configuration and loads it from defaults, a
// YAML file, SALESDW_ environment variables and command-line flags.
//
// Example salesdw.yaml (trimmed):
//
//	warehouse:
//	  kind: sqlite
//	  dsn: data/dw/smart_sales.db
//	datasets:
//	  customer: { path: data/prepared/customers_data_prepared.csv, table: customer }
//	cleaning:
//	  age_min: 18
//	  age_max: 100
//	  coercion_policy: warn
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"salesdw/internal/dataset"
	"salesdw/internal/transformer/builtin"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore: SALESDW_WAREHOUSE__DSN sets warehouse.dsn.
const EnvPrefix = "SALESDW_"

// DefaultFiles are searched in the working directory when no file is given.
var DefaultFiles = []string{"salesdw.yaml", "salesdw.yml"}

// Config is the decoded run configuration.
type Config struct {
	Warehouse Warehouse `koanf:"warehouse"`
	Datasets  Datasets  `koanf:"datasets"`
	CSV       CSV       `koanf:"csv"`
	Cleaning  Cleaning  `koanf:"cleaning"`
	Log       Log       `koanf:"log"`
	Metrics   Metrics   `koanf:"metrics"`

	// File is the configuration file that was read, if any.
	File string `koanf:"-"`
}

// Warehouse locates the store.
type Warehouse struct {
	// Kind selects the dialect: sqlite, postgres, mysql or mssql.
	Kind string `koanf:"kind"`
	// DSN is a file path for sqlite and a connection string otherwise.
	DSN string `koanf:"dsn"`
	// SchemaFile optionally replaces the built-in DDL with a SQL script.
	SchemaFile string `koanf:"schema_file"`
}

// Dataset binds one source file to its target table.
type Dataset struct {
	Path        string `koanf:"path"`
	Table       string `koanf:"table"`
	DeleteFirst bool   `koanf:"delete_first"`
}

// Datasets holds one entry per dataset kind.
type Datasets struct {
	Customer Dataset `koanf:"customer"`
	Product  Dataset `koanf:"product"`
	Sale     Dataset `koanf:"sale"`
}

// For returns the entry of kind.
func (d Datasets) For(kind dataset.Kind) (Dataset, bool) {
	switch kind {
	case dataset.Customer:
		return d.Customer, true
	case dataset.Product:
		return d.Product, true
	case dataset.Sale:
		return d.Sale, true
	}
	return Dataset{}, false
}

// CSV configures the source reader.
type CSV struct {
	Comma      string   `koanf:"comma"`
	TrimSpace  bool     `koanf:"trim_space"`
	NullValues []string `koanf:"null_values"`
	// HeaderMap renames source headers before the column contract is
	// checked, e.g. {"Cust ID": "CustomerID"}. Keys are matched exactly.
	HeaderMap map[string]string `koanf:"header_map"`
}

// Cleaning parameterizes the record cleaner.
type Cleaning struct {
	AgeMin         int64    `koanf:"age_min"`
	AgeMax         int64    `koanf:"age_max"`
	CoercionPolicy string   `koanf:"coercion_policy"`
	DateLayouts    []string `koanf:"date_layouts"`
}

// Rules converts the age bounds for the cleaner.
func (c Cleaning) Rules() builtin.Rules {
	return builtin.Rules{AgeMin: c.AgeMin, AgeMax: c.AgeMax}
}

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is none, pushgateway or datadog.
	Backend          string   `koanf:"backend"`
	Job              string   `koanf:"job"`
	PushgatewayURL   string   `koanf:"pushgateway_url"`
	DatadogAddr      string   `koanf:"datadog_addr"`
	DatadogNamespace string   `koanf:"datadog_namespace"`
	DatadogTags      []string `koanf:"datadog_tags"`
}

// Defaults returns the flattened default values.
func Defaults() map[string]any {
	return map[string]any{
		"warehouse.kind":        "sqlite",
		"warehouse.dsn":         "data/dw/smart_sales.db",
		"warehouse.schema_file": "",

		"datasets.customer.path":         "data/prepared/customers_data_prepared.csv",
		"datasets.customer.table":        "customer",
		"datasets.customer.delete_first": true,
		"datasets.product.path":          "data/prepared/products_data_prepared.csv",
		"datasets.product.table":         "product",
		"datasets.product.delete_first":  true,
		"datasets.sale.path":             "data/prepared/sales_data_prepared.csv",
		"datasets.sale.table":            "sale",
		"datasets.sale.delete_first":     true,

		"csv.comma":       ",",
		"csv.trim_space":  true,
		"csv.null_values": []string{""},

		"cleaning.age_min":         builtin.DefaultRules().AgeMin,
		"cleaning.age_max":         builtin.DefaultRules().AgeMax,
		"cleaning.coercion_policy": string(builtin.PolicyWarn),
		"cleaning.date_layouts":    append([]string(nil), builtin.DefaultDateLayouts...),

		"log.level":  "info",
		"log.format": "json",

		"metrics.backend":           "none",
		"metrics.job":               "salesdw",
		"metrics.datadog_namespace": "salesdw.",
	}
}

// flagKeys maps command-line flag names onto configuration keys.
var flagKeys = map[string]string{
	"warehouse":       "warehouse.kind",
	"dsn":             "warehouse.dsn",
	"schema-file":     "warehouse.schema_file",
	"customers":       "datasets.customer.path",
	"products":        "datasets.product.path",
	"sales":           "datasets.sale.path",
	"coercion-policy": "cleaning.coercion_policy",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"metrics":         "metrics.backend",
}

// FlagKey returns the configuration key a flag overrides.
func FlagKey(name string) (string, bool) {
	k, ok := flagKeys[name]
	return k, ok
}

// Load builds the configuration. Precedence, highest first: changed flags,
// environment, file, defaults. cfgFile may be empty, in which case the
// DefaultFiles are tried; an explicit file that does not exist is an error.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	used, err := findFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = used
	return &cfg, nil
}

// envKey maps SALESDW_CLEANING__AGE_MIN onto cleaning.age_min.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

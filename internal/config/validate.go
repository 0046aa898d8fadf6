package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"salesdw/internal/dataset"
	"salesdw/internal/transformer/builtin"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is the dotted configuration key (e.g. "datasets.sale.path").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over cfg. warehouseKinds lists the
// registered dialects. It does not mutate cfg and never touches the
// warehouse; source files are only stat'ed.
func Validate(cfg *Config, warehouseKinds []string) []Issue {
	var issues []Issue
	issues = append(issues, validateWarehouse(cfg.Warehouse, warehouseKinds)...)
	issues = append(issues, validateDatasets(cfg.Datasets)...)
	issues = append(issues, validateCSV(cfg.CSV)...)
	issues = append(issues, validateCleaning(cfg.Cleaning)...)
	issues = append(issues, validateLog(cfg.Log)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	return issues
}

func errorf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

func warnf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

func validateWarehouse(w Warehouse, kinds []string) []Issue {
	var issues []Issue

	switch {
	case strings.TrimSpace(w.Kind) == "":
		issues = append(issues, errorf("warehouse.kind", "warehouse.kind must not be empty"))
	case len(kinds) > 0 && !slices.Contains(kinds, w.Kind):
		issues = append(issues, errorf("warehouse.kind", "unsupported warehouse kind %q (want one of %s)", w.Kind, strings.Join(kinds, ", ")))
	}
	if strings.TrimSpace(w.DSN) == "" {
		issues = append(issues, errorf("warehouse.dsn", "warehouse.dsn must not be empty"))
	}
	if w.SchemaFile != "" {
		if _, err := os.Stat(w.SchemaFile); err != nil {
			issues = append(issues, errorf("warehouse.schema_file", "schema file is not readable: %v", err))
		}
	}
	return issues
}

func validateDatasets(ds Datasets) []Issue {
	var issues []Issue
	tables := map[string]string{}

	for _, kind := range dataset.Kinds() {
		d, _ := ds.For(kind)
		base := "datasets." + string(kind)

		if strings.TrimSpace(d.Path) == "" {
			issues = append(issues, errorf(base+".path", "source path must not be empty"))
		} else if _, err := os.Stat(d.Path); err != nil {
			issues = append(issues, warnf(base+".path", "source file is not readable yet: %v", err))
		}

		if strings.TrimSpace(d.Table) == "" {
			issues = append(issues, errorf(base+".table", "target table must not be empty"))
		} else if prev, dup := tables[d.Table]; dup {
			issues = append(issues, errorf(base+".table", "table %q is already the target of datasets.%s", d.Table, prev))
		} else {
			tables[d.Table] = string(kind)
		}

		if !d.DeleteFirst {
			issues = append(issues, warnf(base+".delete_first", "without delete_first a re-run appends to existing rows and can violate primary keys"))
		}
	}
	return issues
}

func validateCSV(c CSV) []Issue {
	var issues []Issue
	if c.Comma != "" && utf8.RuneCountInString(c.Comma) != 1 {
		issues = append(issues, errorf("csv.comma", "delimiter must be a single character, got %q", c.Comma))
	}

	targets := make(map[string]string, len(c.HeaderMap))
	for _, k := range slices.Sorted(maps.Keys(c.HeaderMap)) {
		to := c.HeaderMap[k]
		switch prev, dup := targets[to]; {
		case to == "":
			issues = append(issues, errorf("csv.header_map", "header %q is renamed to an empty name", k))
		case dup:
			issues = append(issues, errorf("csv.header_map", "headers %q and %q are both renamed to %q", prev, k, to))
		default:
			targets[to] = k
		}
	}
	return issues
}

func validateCleaning(c Cleaning) []Issue {
	var issues []Issue

	if c.AgeMin < 0 {
		issues = append(issues, errorf("cleaning.age_min", "age_min must not be negative"))
	}
	if c.AgeMin > c.AgeMax {
		issues = append(issues, errorf("cleaning.age_max", "age_max (%d) is below age_min (%d); every customer would be dropped", c.AgeMax, c.AgeMin))
	}
	if _, err := builtin.ParsePolicy(c.CoercionPolicy); err != nil {
		issues = append(issues, errorf("cleaning.coercion_policy", "%v", err))
	}
	if len(c.DateLayouts) == 0 {
		issues = append(issues, warnf("cleaning.date_layouts", "no date layouts configured; temporal columns will fail verification"))
	}
	return issues
}

func validateLog(l Log) []Issue {
	var issues []Issue
	if l.Level != "" {
		if _, err := zap.ParseAtomicLevel(strings.ToLower(l.Level)); err != nil {
			issues = append(issues, errorf("log.level", "unknown log level %q", l.Level))
		}
	}
	switch strings.ToLower(l.Format) {
	case "", "json", "console":
	default:
		issues = append(issues, errorf("log.format", "unknown log format %q (want json|console)", l.Format))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch strings.ToLower(m.Backend) {
	case "", "none":
		return nil
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, errorf("metrics.pushgateway_url", "pushgateway backend requires a URL"))
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, errorf("metrics.datadog_addr", "datadog backend requires a DogStatsD address"))
		}
	default:
		issues = append(issues, errorf("metrics.backend", "unknown metrics backend %q (want none|pushgateway|datadog)", m.Backend))
	}
	if strings.TrimSpace(m.Job) == "" {
		issues = append(issues, warnf("metrics.job", "metrics.job is empty; metrics will be reported under the default job name"))
	}
	return issues
}

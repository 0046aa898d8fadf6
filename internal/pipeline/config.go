package pipeline

import (
	"fmt"
	"unicode/utf8"

	"salesdw/internal/config"
	"salesdw/internal/datasource/file"
	"salesdw/internal/dataset"
	csvparser "salesdw/internal/parser/csv"
	"salesdw/internal/storage"
	"salesdw/internal/transformer/builtin"
)

// JobsFromConfig returns one file-backed job per dataset kind.
func JobsFromConfig(cfg *config.Config) []Job {
	jobs := make([]Job, 0, len(dataset.Kinds()))
	for _, kind := range dataset.Kinds() {
		dc, _ := cfg.Datasets.For(kind)
		jobs = append(jobs, Job{
			Kind:        kind,
			Source:      file.NewLocal(dc.Path, string(kind)),
			Table:       dc.Table,
			DeleteFirst: dc.DeleteFirst,
		})
	}
	return jobs
}

// OptionsFromConfig translates cfg into driver options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := builtin.ParsePolicy(cfg.Cleaning.CoercionPolicy)
	if err != nil {
		return Options{}, err
	}

	var comma rune
	if cfg.CSV.Comma != "" {
		if utf8.RuneCountInString(cfg.CSV.Comma) != 1 {
			return Options{}, fmt.Errorf("csv.comma must be a single character, got %q", cfg.CSV.Comma)
		}
		comma, _ = utf8.DecodeRuneInString(cfg.CSV.Comma)
	}

	return Options{
		Warehouse: storage.Config{
			Kind:       cfg.Warehouse.Kind,
			DSN:        cfg.Warehouse.DSN,
			SchemaFile: cfg.Warehouse.SchemaFile,
		},
		Parser: csvparser.Options{
			Comma:      comma,
			TrimSpace:  cfg.CSV.TrimSpace,
			NullValues: cfg.CSV.NullValues,
			HeaderMap:  cfg.CSV.HeaderMap,
		},
		Rules:   cfg.Cleaning.Rules(),
		Policy:  policy,
		Layouts: cfg.Cleaning.DateLayouts,
		JobName: cfg.Metrics.Job,
	}, nil
}

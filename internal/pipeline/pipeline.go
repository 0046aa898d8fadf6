// Package pipeline runs the customer, product and sale extracts through
// prepare, verify, clean, normalize and load against one warehouse.
//
// A run is sequential. Every source is read before the warehouse is opened,
// so a missing extract aborts before anything is written. Each table is
// committed on its own: a failure stops the run, keeps the tables loaded
// before it and leaves the later ones untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"salesdw/internal/datasource/file"
	"salesdw/internal/dataset"
	"salesdw/internal/etlerr"
	"salesdw/internal/ident"
	"salesdw/internal/metrics"
	csvparser "salesdw/internal/parser/csv"
	"salesdw/internal/schema"
	"salesdw/internal/storage"
	"salesdw/internal/transformer/builtin"
)

// Step names used in logs, errors and metrics.
const (
	StepRead      = "read"
	StepSchema    = "ensure_schema"
	StepPrepare   = "prepare"
	StepVerify    = "verify"
	StepDedup     = "deduplicate"
	StepFilter    = "filter"
	StepNormalize = "normalize"
	StepLoad      = "load"
)

// Job binds one dataset kind to its source and target table.
type Job struct {
	Kind        dataset.Kind
	Source      file.Source
	Table       string
	DeleteFirst bool
}

// Options configure a Driver.
type Options struct {
	Warehouse storage.Config
	Parser    csvparser.Options
	Rules     builtin.Rules
	Policy    builtin.CoercionPolicy
	Layouts   []string
	// JobName labels metrics. Defaults to "salesdw".
	JobName string
}

// Driver sequences a full run. It holds no connection between runs.
type Driver struct {
	opt     Options
	log     *zap.Logger
	parser  *csvparser.Parser
	checker *schema.Checker
	coercer *builtin.Coercer
}

// New returns a Driver. A nil log discards.
func New(opt Options, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.JobName == "" {
		opt.JobName = "salesdw"
	}
	if opt.Layouts == nil {
		opt.Layouts = builtin.DefaultDateLayouts
	}
	if opt.Rules == (builtin.Rules{}) {
		opt.Rules = builtin.DefaultRules()
	}
	return &Driver{
		opt:     opt,
		log:     log,
		parser:  csvparser.NewParser(opt.Parser, log),
		checker: schema.NewChecker(log),
		coercer: builtin.NewCoercer(opt.Policy, opt.Layouts, log),
	}
}

// Run executes jobs, one per dataset kind, in load order. The returned
// summary covers every table that was processed, including a failed one, and
// is non-nil even when err is not.
func (d *Driver) Run(ctx context.Context, jobs []Job) (sum *Summary, err error) {
	sum = &Summary{RunID: uuid.NewString(), Started: time.Now()}
	log := d.log.With(zap.String("run_id", sum.RunID))
	defer func() {
		sum.Elapsed = time.Since(sum.Started)
		metrics.RecordRun(d.opt.JobName, err)
		if err != nil {
			log.Error("run aborted", zap.Error(err), zap.Duration("elapsed", sum.Elapsed))
			return
		}
		log.Info("run complete", zap.Int("tables", len(sum.Tables)), zap.Duration("elapsed", sum.Elapsed))
	}()

	ordered, err := orderJobs(jobs)
	if err != nil {
		return sum, err
	}

	type source struct {
		job   Job
		ds    *dataset.Dataset
		stats csvparser.Stats
	}
	sources := make([]source, 0, len(ordered))
	for _, job := range ordered {
		var (
			ds    *dataset.Dataset
			stats csvparser.Stats
		)
		err := d.step(string(job.Kind), StepRead, func() error {
			var err error
			ds, stats, err = d.read(ctx, job)
			return err
		})
		if err != nil {
			return sum, err
		}
		log.Info("source read",
			zap.String("dataset", string(job.Kind)),
			zap.String("path", job.Source.Name()),
			zap.Int("rows", stats.Rows),
			zap.Int("skipped", stats.Skipped),
		)
		sources = append(sources, source{job: job, ds: ds, stats: stats})
	}

	wh, err := storage.Open(ctx, d.opt.Warehouse, log)
	if err != nil {
		return sum, err
	}
	defer func() {
		if cerr := wh.Close(); cerr != nil {
			log.Warn("warehouse close failed", zap.Error(cerr))
		}
	}()

	err = d.step("warehouse", StepSchema, func() error {
		return storage.NewSchemaManager(wh, log).Ensure(ctx)
	})
	if err != nil {
		return sum, err
	}

	loader := storage.NewLoader(wh, log)
	for _, src := range sources {
		ts := TableSummary{
			Dataset: src.job.Kind,
			Table:   src.job.Table,
			Read:    src.stats.Rows,
			Skipped: src.stats.Skipped,
		}
		err := d.process(ctx, loader, src.job, src.ds, &ts)
		sum.Tables = append(sum.Tables, ts)
		d.recordRows(ts)
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// read opens and parses one source. An unparseable header means the extract
// cannot meet its contract.
func (d *Driver) read(ctx context.Context, job Job) (*dataset.Dataset, csvparser.Stats, error) {
	rc, err := job.Source.Open(ctx)
	if err != nil {
		return nil, csvparser.Stats{}, err
	}
	defer rc.Close()

	ds, stats, err := d.parser.Parse(rc, job.Kind)
	if err != nil {
		return nil, stats, etlerr.New(etlerr.ContractViolation, string(job.Kind), StepRead,
			fmt.Errorf("%s: %w", job.Source.Name(), err))
	}
	return ds, stats, nil
}

// process takes one parsed dataset through to its committed table.
func (d *Driver) process(ctx context.Context, loader *storage.Loader, job Job, ds *dataset.Dataset, ts *TableSummary) error {
	kind := string(job.Kind)
	contract, err := schema.Builtin(job.Kind)
	if err != nil {
		return err
	}

	err = d.step(kind, StepPrepare, func() error {
		out, results, err := d.coercer.Prepare(ds, contract)
		ts.CoercionFailures = builtin.TotalFailures(results)
		if err != nil {
			return err
		}
		ds = out
		return nil
	})
	if err != nil {
		// Verify never runs after an abort, so missing or extra columns are
		// reported here together with the coercion failure.
		if vs := d.columnViolations(ds, contract); len(vs) > 0 {
			return etlerr.New(etlerr.ContractViolation, kind, StepVerify, err, schema.Strings(vs)...)
		}
		return err
	}

	err = d.step(kind, StepVerify, func() error {
		ok, violations := d.checker.Verify(ds, contract)
		if !ok {
			return etlerr.New(etlerr.ContractViolation, kind, StepVerify,
				errors.New("dataset does not match its column contract"), schema.Strings(violations)...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	d.timed(kind, StepDedup, func() {
		ds, ts.Duplicates = builtin.Deduplicate(ds)
	})

	err = d.step(kind, StepFilter, func() error {
		keep, err := builtin.ForKind(job.Kind, d.opt.Rules)
		if err != nil {
			return err
		}
		ds, ts.Invalid = builtin.FilterDomainInvalid(ds, keep)
		return nil
	})
	if err != nil {
		return err
	}

	d.timed(kind, StepNormalize, func() {
		ds = ident.NormalizeColumns(ds)
	})

	return d.step(kind, StepLoad, func() error {
		res, err := loader.Load(ctx, storage.LoadRequest{
			Table:       job.Table,
			Dataset:     ds,
			DeleteFirst: job.DeleteFirst,
		})
		ts.Dropped = res.Dropped
		ts.Deleted = res.Deleted
		ts.Loaded = res.Loaded
		return err
	})
}

// step times fn and records it under scope/name.
func (d *Driver) step(scope, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(d.opt.JobName, scope, name, err, time.Since(start))
	return err
}

// timed records a step that cannot fail.
func (d *Driver) timed(scope, name string, fn func()) {
	start := time.Now()
	fn()
	metrics.RecordStep(d.opt.JobName, scope, name, nil, time.Since(start))
}

// columnViolations logs and returns the column-set violations of ds.
func (d *Driver) columnViolations(ds *dataset.Dataset, c schema.Contract) []schema.Violation {
	vs := schema.CheckColumns(ds, c)
	for _, v := range vs {
		d.log.Error("contract violation",
			zap.String("dataset", string(ds.Kind)),
			zap.String("violation", string(v.Kind)),
			zap.String("column", v.Column),
		)
	}
	return vs
}

func (d *Driver) recordRows(ts TableSummary) {
	job, kind := d.opt.JobName, string(ts.Dataset)
	metrics.RecordRow(job, kind, "read", int64(ts.Read))
	metrics.RecordRow(job, kind, "skipped", int64(ts.Skipped))
	metrics.RecordRow(job, kind, "coercion_failed", int64(ts.CoercionFailures))
	metrics.RecordRow(job, kind, "duplicates", int64(ts.Duplicates))
	metrics.RecordRow(job, kind, "invalid", int64(ts.Invalid))
	metrics.RecordRow(job, kind, "loaded", ts.Loaded)
}

// orderJobs returns exactly one job per dataset kind, in load order.
func orderJobs(jobs []Job) ([]Job, error) {
	byKind := make(map[dataset.Kind]Job, len(jobs))
	for _, j := range jobs {
		if _, err := dataset.ParseKind(string(j.Kind)); err != nil {
			return nil, err
		}
		if _, dup := byKind[j.Kind]; dup {
			return nil, fmt.Errorf("dataset %s configured more than once", j.Kind)
		}
		if j.Source == nil {
			return nil, fmt.Errorf("dataset %s has no source", j.Kind)
		}
		if j.Table == "" {
			return nil, fmt.Errorf("dataset %s has no target table", j.Kind)
		}
		byKind[j.Kind] = j
	}

	out := make([]Job, 0, len(byKind))
	for _, k := range dataset.Kinds() {
		j, ok := byKind[k]
		if !ok {
			return nil, fmt.Errorf("dataset %s is not configured", k)
		}
		out = append(out, j)
	}
	return out, nil
}

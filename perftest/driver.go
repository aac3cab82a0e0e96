package perftest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/ahmedtd/modelperf/toolbox"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoModules is returned when no registered module could be constructed
	// for the model.
	ErrNoModules = errors.New("no module could be constructed")
	// ErrResultSize is returned when a module produces a result whose length
	// is not the block size.
	ErrResultSize = errors.New("result size does not match block size")
)

// Config controls a benchmark run.
type Config struct {
	// BlockSize is the number of documents per block.  Zero means the whole
	// pool is one block.
	BlockSize int
	// Repetitions is how many times every module runs over every block.
	Repetitions int
	// KeepRemainder turns the documents past the last full block into a
	// short final block instead of dropping them.
	KeepRemainder bool

	// Canon enables cross-checking every module's output against the first
	// output seen for the same block.
	Canon        bool
	CanonEpsilon float64

	// Variants restricts the run to these registry keys.  Empty means all.
	Variants []string

	// ResultsPath receives the JSON summary.  Empty skips it.
	ResultsPath string
	// Report receives the text report.  Nil discards it.
	Report io.Writer
	// Logger receives diagnostics.  Nil discards them.
	Logger *slog.Logger
}

// Finding is a canon divergence attributed to the variant that produced it.
type Finding struct {
	Variant string
	Divergence
}

// Summary describes a completed run.
type Summary struct {
	Results  *Results
	Baseline Baseline
	// Excluded maps the keys of modules that failed to construct to their
	// errors.
	Excluded map[string]error
	Findings []Finding

	BlockCount int
	BlockSize  int
	Dropped    int
	// Setup is the time spent building block views, which is not part of
	// any timing sample.
	Setup time.Duration
}

// Run benchmarks every module in registry against data.  The whole run
// happens sequentially on one dedicated worker goroutine, locked to its OS
// thread, so timings of different modules stay comparable.
func Run(ctx context.Context, cfg Config, registry *Registry, model *toolbox.Network, data FeatureMatrix) (*Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(1)

	var summary *Summary
	g.Go(func() (err error) {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("benchmark worker panicked: %v", p)
			}
		}()

		summary, err = run(ctx, cfg, registry, model, data)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// step is one (module, layout) pair of the execution plan.
type step struct {
	key    string
	name   string
	module Module
	layout Layout
}

func run(ctx context.Context, cfg Config, registry *Registry, model *toolbox.Network, data FeatureMatrix) (*Summary, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	report := cfg.Report
	if report == nil {
		report = io.Discard
	}
	if cfg.Repetitions < 1 {
		return nil, fmt.Errorf("repetitions must be positive; got %d", cfg.Repetitions)
	}
	for _, key := range cfg.Variants {
		if !registry.Has(key) {
			return nil, fmt.Errorf("no module registered as %q", key)
		}
	}
	if got, want := data.FeatureCount(), model.InputSize(); got != want {
		return nil, fmt.Errorf("pool has %d features but the model takes %d", got, want)
	}

	setupStart := time.Now()
	partition, err := PartitionBlocks(data, cfg.BlockSize, cfg.KeepRemainder)
	if err != nil {
		return nil, fmt.Errorf("while partitioning pool: %w", err)
	}
	setup := time.Since(setupStart)
	logger.DebugContext(ctx, "Partitioned pool",
		"blocks", len(partition.Blocks),
		"block_size", partition.BlockSize,
		"features", data.FeatureCount(),
		"setup", setup)
	if partition.Dropped > 0 {
		logger.WarnContext(ctx, "Trailing documents are not in any block", "dropped", partition.Dropped)
	}

	entries, excluded := registry.ConstructAll(model, cfg.Variants, logger)
	baseline, ok := SelectBaseline(entries)
	if !ok {
		return nil, ErrNoModules
	}
	logger.InfoContext(ctx, "Selected baseline", "name", baseline.Name, "layout", baseline.Layout)

	results := NewResults()
	results.BaseResultName = baseline.Name

	var canon *Canon
	if cfg.Canon {
		epsilon := cfg.CanonEpsilon
		if epsilon <= 0 {
			epsilon = DefaultCanonEpsilon
		}
		canon = NewCanon(len(partition.Blocks), epsilon)
	}

	summary := &Summary{
		Results:    results,
		Baseline:   baseline,
		Excluded:   excluded,
		BlockCount: len(partition.Blocks),
		BlockSize:  partition.BlockSize,
		Dropped:    partition.Dropped,
		Setup:      setup,
	}

	plan := schedule(entries, baseline)
	for rep := 0; rep < cfg.Repetitions; rep++ {
		for _, s := range plan {
			logger.DebugContext(ctx, "Running module", "key", s.key, "name", s.name, "layout", s.layout)
			for _, b := range partition.Blocks {
				view := b.View(s.layout)

				start := time.Now()
				out := s.module.Do(s.layout, view)
				elapsed := time.Since(start)

				results.UpdateResult(s.name, elapsed.Seconds())

				if len(out) != b.Size {
					return nil, fmt.Errorf("%w: %s returned %d scores for block %d of %d documents", ErrResultSize, s.name, len(out), b.ID, b.Size)
				}
				if canon == nil {
					continue
				}
				divergences, err := canon.CheckOrSet(b.ID, out)
				if err != nil {
					return nil, fmt.Errorf("while checking %s against canon: %w", s.name, err)
				}
				for _, d := range divergences {
					logger.WarnContext(ctx, "Result diverges from canon",
						"variant", s.name,
						"block", d.Block,
						"index", d.Index,
						"got", d.Got,
						"want", d.Want,
						"delta", d.Delta)
					summary.Findings = append(summary.Findings, Finding{Variant: s.name, Divergence: d})
				}
			}
		}
		logger.DebugContext(ctx, "Finished repetition", "repetition", rep+1, "of", cfg.Repetitions)
	}

	if len(summary.Findings) > 0 {
		logger.WarnContext(ctx, "Canon check found divergences", "count", len(summary.Findings))
	}

	if err := results.OutputResults(report, cfg.ResultsPath); err != nil {
		return nil, fmt.Errorf("while writing results: %w", err)
	}
	return summary, nil
}

// schedule orders the (module, layout) pairs to run.  The baseline pair goes
// first so that it establishes the canon for every block; the rest follow in
// key order, ObjectsFirst before FeaturesFirst.
func schedule(entries []Entry, baseline Baseline) []step {
	var plan []step
	add := func(e Entry, layout Layout) {
		plan = append(plan, step{
			key:    e.Key,
			name:   e.Module.Name(layout),
			module: e.Module,
			layout: layout,
		})
	}

	base := entries[baseline.Index]
	add(base, baseline.Layout)
	for _, layout := range Layouts {
		if layout != baseline.Layout && base.Module.SupportsLayout(layout) {
			add(base, layout)
		}
	}
	for i, e := range entries {
		if i == baseline.Index {
			continue
		}
		for _, layout := range Layouts {
			if e.Module.SupportsLayout(layout) {
				add(e, layout)
			}
		}
	}
	return plan
}

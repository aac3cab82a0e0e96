package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/perftest/modules"
	"github.com/ahmedtd/modelperf/pool"
	"github.com/ahmedtd/modelperf/toolbox"
	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/viterin/vek/vek32"
)

type RunCommand struct {
	opts       RunOptions
	configFile string
}

var _ subcommands.Command = (*RunCommand)(nil)

func (*RunCommand) Name() string {
	return "run"
}

func (*RunCommand) Synopsis() string {
	return "Benchmark every scoring variant against a pool"
}

func (*RunCommand) Usage() string {
	return `run --pool-path=<pool> --model-path=<model.safetensors> [--cd=<pool.cd>] [flags]:
  Score the pool block by block with every registered variant and report
  per-variant timings relative to the baseline.
`
}

func (c *RunCommand) SetFlags(f *flag.FlagSet) {
	c.opts = defaultRunOptions()
	c.opts.bindFlags(f)
	f.StringVar(&c.configFile, "config", "", "YAML file with default values for the flags above")
}

func (c *RunCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx, f); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *RunCommand) executeErr(ctx context.Context, f *flag.FlagSet) error {
	opts, err := mergeRunOptions(c.configFile, f)
	if err != nil {
		return err
	}

	logger := newLogger(opts.Verbose).With("run", uuid.NewString())

	if opts.CPUProfile != "" {
		f, err := os.Create(opts.CPUProfile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	info := vek32.Info()
	logger.DebugContext(ctx, "CPU", "features", info.CPUFeatures, "accelerated", info.Acceleration)

	model, err := toolbox.LoadNetwork(opts.ModelPath)
	if err != nil {
		return fmt.Errorf("while loading model: %w", err)
	}
	logger.InfoContext(ctx, "Loaded model", "path", opts.ModelPath, "layers", len(model.Layers), "inputs", model.InputSize())

	data, err := loadPool(opts)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Loaded pool", "path", opts.PoolPath, "docs", data.ObjectCount(), "features", data.FeatureCount())

	summary, err := perftest.Run(ctx, perftest.Config{
		BlockSize:     opts.BlockSize,
		Repetitions:   opts.Repetitions,
		KeepRemainder: opts.KeepRemainder,
		Canon:         opts.Canon,
		CanonEpsilon:  opts.CanonEpsilon,
		Variants:      opts.Variants,
		ResultsPath:   opts.ResultsPath,
		Report:        os.Stdout,
		Logger:        logger,
	}, modules.Default(), model, data)
	if err != nil {
		return fmt.Errorf("while benchmarking: %w", err)
	}

	logger.InfoContext(ctx, "Benchmark finished",
		"baseline", summary.Baseline.Name,
		"results", len(summary.Results.Names()),
		"excluded", len(summary.Excluded),
		"divergences", len(summary.Findings),
		"blocks", summary.BlockCount,
		"setup", summary.Setup)
	return nil
}

func loadPool(opts RunOptions) (*pool.Pool, error) {
	delim, err := opts.delimiter()
	if err != nil {
		return nil, err
	}
	poolOpts := pool.Options{
		Delimiter: delim,
		HasHeader: opts.HasHeader,
	}
	if opts.CDPath != "" {
		poolOpts.ColumnDescription, err = pool.LoadColumnDescription(opts.CDPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := pool.Load(opts.PoolPath, poolOpts)
	if err != nil {
		return nil, fmt.Errorf("while loading pool: %w", err)
	}
	return data, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/perftest/modules"
	"github.com/ahmedtd/modelperf/toolbox"
	"github.com/google/subcommands"
)

type ModulesCommand struct {
	modelPath string
	verbose   bool
}

var _ subcommands.Command = (*ModulesCommand)(nil)

func (*ModulesCommand) Name() string {
	return "modules"
}

func (*ModulesCommand) Synopsis() string {
	return "List the registered scoring variants and which can score a model"
}

func (*ModulesCommand) Usage() string {
	return `modules --model-path=<model.safetensors>:
  Construct every registered variant for the model and print its layouts,
  priorities, and the baseline a run would use.
`
}

func (c *ModulesCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.modelPath, "model-path", "", "Path to the model (safetensors format)")
	f.BoolVar(&c.verbose, "verbose", false, "Log at debug level")
}

func (c *ModulesCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *ModulesCommand) executeErr(ctx context.Context) error {
	if c.modelPath == "" {
		return fmt.Errorf("--model-path is required")
	}
	model, err := toolbox.LoadNetwork(c.modelPath)
	if err != nil {
		return fmt.Errorf("while loading model: %w", err)
	}

	return listModules(os.Stdout, modules.Default(), model, newLogger(c.verbose))
}

func listModules(w io.Writer, registry *perftest.Registry, model *toolbox.Network, logger *slog.Logger) error {
	entries, excluded := registry.ConstructAll(model, nil, logger)

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "key\tlayout\tname\tpriority")
	for _, e := range entries {
		for _, layout := range perftest.Layouts {
			if !e.Module.SupportsLayout(layout) {
				fmt.Fprintf(tw, "%s\t%s\t-\tunsupported\n", e.Key, layout)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.Key, layout, e.Module.Name(layout), e.Module.ComparisonPriority(layout))
		}
	}
	for _, key := range registry.Keys() {
		if err, ok := excluded[key]; ok {
			fmt.Fprintf(tw, "%s\t-\t-\tunavailable: %v\n", key, err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("while writing module table: %w", err)
	}

	baseline, ok := perftest.SelectBaseline(entries)
	if !ok {
		return perftest.ErrNoModules
	}
	if _, err := fmt.Fprintf(w, "baseline: %s\n", baseline.Name); err != nil {
		return fmt.Errorf("while writing baseline: %w", err)
	}
	return nil
}

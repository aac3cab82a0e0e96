package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ahmedtd/modelperf/pool"
	"github.com/ahmedtd/modelperf/toolbox"
	"github.com/google/subcommands"
	"github.com/klauspost/compress/zstd"
)

type GenCommand struct {
	docs       int
	features   int
	hidden     string
	activation string
	seed       int64

	poolOut  string
	modelOut string
	cdOut    string
}

var _ subcommands.Command = (*GenCommand)(nil)

func (*GenCommand) Name() string {
	return "gen"
}

func (*GenCommand) Synopsis() string {
	return "Generate a random model and a pool to benchmark it on"
}

func (*GenCommand) Usage() string {
	return `gen [--docs=N] [--features=N] [--hidden=64,32] --pool-out=<pool> --model-out=<model.safetensors>:
  Write a randomly initialized dense network with a single output and a pool
  of uniformly random features.  A .npy pool is written with npyio; any other
  extension is written as tab separated values with a label column holding the
  model's scores, plus a column description.
`
}

func (c *GenCommand) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.docs, "docs", 10000, "Number of documents in the pool")
	f.IntVar(&c.features, "features", 50, "Number of features per document")
	f.StringVar(&c.hidden, "hidden", "64,32", "Comma-separated hidden layer widths; empty for a single linear layer")
	f.StringVar(&c.activation, "activation", "relu", "Activation of the hidden layers")
	f.Int64Var(&c.seed, "seed", 12345, "Random seed")

	f.StringVar(&c.poolOut, "pool-out", "pool.npy", "Path to write the pool (.npy or DSV, optionally .zst compressed)")
	f.StringVar(&c.modelOut, "model-out", "model.safetensors", "Path to write the model (safetensors format)")
	f.StringVar(&c.cdOut, "cd-out", "", "Path to write the column description of a DSV pool; defaults to <pool-out>.cd")
}

func (c *GenCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *GenCommand) executeErr(ctx context.Context) error {
	if c.docs < 1 || c.features < 1 {
		return fmt.Errorf("--docs and --features must be positive")
	}
	widths, err := parseWidths(c.hidden)
	if err != nil {
		return err
	}
	act, err := toolbox.ParseActivation(c.activation)
	if err != nil {
		return err
	}

	r := rand.New(rand.NewSource(c.seed))
	net := randomNetwork(c.features, widths, act, r)
	if err := toolbox.SaveNetwork(c.modelOut, net); err != nil {
		return fmt.Errorf("while saving model: %w", err)
	}
	log.Printf("Wrote model with %d layers to %s", len(net.Layers), c.modelOut)

	x := toolbox.MakeAF32(c.docs, c.features)
	for i := range x.V {
		x.V[i] = r.Float32()
	}
	rows := make([][]float32, c.docs)
	for k := range rows {
		rows[k] = x.Row(k)
	}
	p, err := pool.FromRows(rows)
	if err != nil {
		return fmt.Errorf("while building pool: %w", err)
	}

	switch filepath.Ext(strings.TrimSuffix(c.poolOut, ".zst")) {
	case ".npz":
		return fmt.Errorf("gen writes .npy or DSV pools, not .npz")
	case ".npy":
		if err := writeCompressed(c.poolOut, func(w io.Writer) error {
			return pool.WriteNPY(w, p)
		}); err != nil {
			return fmt.Errorf("while writing pool: %w", err)
		}
		log.Printf("Wrote %d documents to %s", c.docs, c.poolOut)
		return nil
	}

	scores := net.Apply(x)
	labels := make([]float64, c.docs)
	for k := range labels {
		labels[k] = float64(scores.At2(k, 0))
	}
	if err := writeCompressed(c.poolOut, func(w io.Writer) error {
		return pool.WriteDSV(w, p, labels)
	}); err != nil {
		return fmt.Errorf("while writing pool: %w", err)
	}

	cdOut := c.cdOut
	if cdOut == "" {
		cdOut = strings.TrimSuffix(c.poolOut, ".zst") + ".cd"
	}
	if err := writeCompressed(cdOut, pool.WriteColumnDescription); err != nil {
		return fmt.Errorf("while writing column description: %w", err)
	}
	log.Printf("Wrote %d documents to %s with column description %s", c.docs, c.poolOut, cdOut)
	return nil
}

func parseWidths(s string) ([]int, error) {
	var widths []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		w, err := strconv.Atoi(field)
		if err != nil || w < 1 {
			return nil, fmt.Errorf("bad hidden layer width %q", field)
		}
		widths = append(widths, w)
	}
	return widths, nil
}

// randomNetwork stacks dense layers of the given hidden widths and a final
// linear layer with one output.
func randomNetwork(inputs int, hidden []int, act toolbox.ActivationType, r *rand.Rand) *toolbox.Network {
	net := &toolbox.Network{}
	in := inputs
	for _, out := range hidden {
		net.Layers = append(net.Layers, toolbox.MakeDense(act, in, out, r))
		in = out
	}
	net.Layers = append(net.Layers, toolbox.MakeDense(toolbox.Linear, in, 1, r))
	return net
}

// writeCompressed creates path and hands write a writer for it, zstd
// compressing when the path ends in ".zst".
func writeCompressed(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if filepath.Ext(path) != ".zst" {
		if err := write(f); err != nil {
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("while opening zstd stream: %w", err)
	}
	if err := write(enc); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("while finishing zstd stream: %w", err)
	}
	return f.Close()
}

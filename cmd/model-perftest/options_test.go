package main

import (
	"bytes"
	"flag"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/perftest/modules"
	"github.com/ahmedtd/modelperf/toolbox"
	"github.com/google/go-cmp/cmp"
)

// parseRunFlags binds the run command's flags and parses args.
func parseRunFlags(t *testing.T, args ...string) (*RunCommand, *flag.FlagSet) {
	t.Helper()
	c := &RunCommand{}
	f := flag.NewFlagSet("run", flag.ContinueOnError)
	f.SetOutput(io.Discard)
	c.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return c, f
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return path
}

func TestMergeRunOptionsDefaults(t *testing.T) {
	c, f := parseRunFlags(t, "--pool-path=pool.npy", "--model-path=model.safetensors")
	got, err := mergeRunOptions(c.configFile, f)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := defaultRunOptions()
	want.PoolPath = "pool.npy"
	want.ModelPath = "model.safetensors"
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("(-got +want)\n%s", diff)
	}
}

func TestMergeRunOptionsFlagsOverrideConfig(t *testing.T) {
	config := writeFile(t, "perftest.yaml", `
pool-path: pool.tsv
cd: pool.cd
model-path: model.safetensors
block-size: 500
repetitions: 3
canon: false
variants: [naive, vek]
delimiter: ","
`)

	c, f := parseRunFlags(t, "--config="+config, "--repetitions=7", "--variants=blas")
	got, err := mergeRunOptions(c.configFile, f)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := defaultRunOptions()
	want.PoolPath = "pool.tsv"
	want.CDPath = "pool.cd"
	want.ModelPath = "model.safetensors"
	want.BlockSize = 500
	want.Repetitions = 7
	want.Canon = false
	want.Variants = stringList{"blas"}
	want.Delimiter = ","
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("(-got +want)\n%s", diff)
	}

	delim, err := got.delimiter()
	if err != nil || delim != ',' {
		t.Errorf("delimiter(); got %q, %v, want ','", delim, err)
	}
}

func TestMergeRunOptionsErrors(t *testing.T) {
	testCases := []struct {
		desc   string
		config string
		args   []string
	}{
		{
			desc: "missing pool",
			args: []string{"--model-path=m"},
		},
		{
			desc: "missing model",
			args: []string{"--pool-path=p.npy"},
		},
		{
			desc: "zero repetitions",
			args: []string{"--pool-path=p.npy", "--model-path=m", "--repetitions=0"},
		},
		{
			desc: "negative epsilon",
			args: []string{"--pool-path=p.npy", "--model-path=m", "--canon-epsilon=-1"},
		},
		{
			desc: "DSV without column description",
			args: []string{"--pool-path=p.tsv", "--model-path=m"},
		},
		{
			desc: "long delimiter",
			args: []string{"--pool-path=p.tsv", "--cd=p.cd", "--model-path=m", "--delimiter=ab"},
		},
		{
			desc:   "unknown config key",
			config: "pool-paht: p.npy\n",
			args:   []string{"--pool-path=p.npy", "--model-path=m"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			args := tc.args
			if tc.config != "" {
				args = append([]string{"--config=" + writeFile(t, "c.yaml", tc.config)}, args...)
			}
			c, f := parseRunFlags(t, args...)
			if _, err := mergeRunOptions(c.configFile, f); err == nil {
				t.Errorf("got nil error")
			}
		})
	}
}

func TestTabDelimiter(t *testing.T) {
	o := defaultRunOptions()
	delim, err := o.delimiter()
	if err != nil || delim != '\t' {
		t.Errorf("got %q, %v, want tab", delim, err)
	}
}

func TestParseWidths(t *testing.T) {
	got, err := parseWidths(" 64, 32 ,")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if diff := cmp.Diff(got, []int{64, 32}); diff != "" {
		t.Errorf("(-got +want)\n%s", diff)
	}
	if got, err := parseWidths(""); err != nil || len(got) != 0 {
		t.Errorf("empty; got %v, %v", got, err)
	}
	if _, err := parseWidths("8,zero"); err == nil {
		t.Errorf("got nil error")
	}
}

func TestListModules(t *testing.T) {
	r := rand.New(rand.NewSource(12345))
	net := randomNetwork(5, []int{4}, toolbox.ReLU, r)

	buf := &bytes.Buffer{}
	if err := listModules(buf, modules.Default(), net, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"naive-objects", "gonum-mat", "unsupported", "unavailable", "baseline: naive-objects"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing lacks %q:\n%s", want, out)
		}
	}
}

func TestGenThenRun(t *testing.T) {
	dir := t.TempDir()
	gen := &GenCommand{
		docs:       40,
		features:   6,
		hidden:     "5",
		activation: "relu",
		seed:       1,
		poolOut:    filepath.Join(dir, "pool.tsv.zst"),
		modelOut:   filepath.Join(dir, "model.safetensors"),
	}
	if err := gen.executeErr(t.Context()); err != nil {
		t.Fatalf("gen: %v", err)
	}

	opts := defaultRunOptions()
	opts.PoolPath = gen.poolOut
	opts.CDPath = filepath.Join(dir, "pool.tsv.cd")
	opts.ModelPath = gen.modelOut
	if err := opts.Validate(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	data, err := loadPool(opts)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	model, err := toolbox.LoadNetwork(opts.ModelPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	summary, err := perftest.Run(t.Context(), perftest.Config{
		BlockSize:   16,
		Repetitions: 2,
		Canon:       true,
		// float32 kernels sum in different orders.
		CanonEpsilon: 1e-4,
	}, modules.Default(), model, data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got, want := summary.Baseline.Name, "naive-objects"; got != want {
		t.Errorf("baseline; got %s, want %s", got, want)
	}
	if len(summary.Findings) != 0 {
		t.Errorf("variants disagree: %v", summary.Findings)
	}
	if got, want := summary.Dropped, 8; got != want {
		t.Errorf("Dropped; got %d, want %d", got, want)
	}
}

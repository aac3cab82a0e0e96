package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahmedtd/modelperf/perftest"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RunOptions configures the run command.  Every field can come from the YAML
// config file or from the flag of the same name; flags set on the command
// line win.
type RunOptions struct {
	PoolPath  string `yaml:"pool-path" validate:"required"`
	CDPath    string `yaml:"cd"`
	ModelPath string `yaml:"model-path" validate:"required"`

	BlockSize     int  `yaml:"block-size" validate:"gte=0"`
	Repetitions   int  `yaml:"repetitions" validate:"gte=1"`
	KeepRemainder bool `yaml:"keep-remainder"`

	Canon        bool    `yaml:"canon"`
	CanonEpsilon float64 `yaml:"canon-epsilon" validate:"gt=0"`

	Variants    stringList `yaml:"variants" validate:"dive,required"`
	ResultsPath string     `yaml:"results"`

	Delimiter string `yaml:"delimiter" validate:"required"`
	HasHeader bool   `yaml:"has-header"`

	Verbose    bool   `yaml:"verbose"`
	CPUProfile string `yaml:"cpu-profile"`
}

func defaultRunOptions() RunOptions {
	return RunOptions{
		Repetitions:  1,
		Canon:        true,
		CanonEpsilon: perftest.DefaultCanonEpsilon,
		ResultsPath:  perftest.DefaultResultsPath,
		Delimiter:    `\t`,
	}
}

func (o *RunOptions) bindFlags(f *flag.FlagSet) {
	f.StringVar(&o.PoolPath, "pool-path", o.PoolPath, "Path to the pool (DSV, .npy or .npz, optionally .zst compressed)")
	f.StringVar(&o.CDPath, "cd", o.CDPath, "Path to the column description; required for DSV pools")
	f.StringVar(&o.ModelPath, "model-path", o.ModelPath, "Path to the model (safetensors format)")

	f.IntVar(&o.BlockSize, "block-size", o.BlockSize, "Documents per block; 0 means the whole pool")
	f.IntVar(&o.Repetitions, "repetitions", o.Repetitions, "Number of passes over the pool per variant")
	f.BoolVar(&o.KeepRemainder, "keep-remainder", o.KeepRemainder, "Benchmark the trailing partial block instead of dropping it")

	f.BoolVar(&o.Canon, "canon", o.Canon, "Cross-check every variant's scores against the first result for each block")
	f.Float64Var(&o.CanonEpsilon, "canon-epsilon", o.CanonEpsilon, "Largest absolute score difference the canon check accepts")

	f.Var(&o.Variants, "variants", "Comma-separated variant keys to run; empty means all")
	f.StringVar(&o.ResultsPath, "results", o.ResultsPath, "Path to write the JSON results; empty skips it")

	f.StringVar(&o.Delimiter, "delimiter", o.Delimiter, `DSV field delimiter; \t means tab`)
	f.BoolVar(&o.HasHeader, "has-header", o.HasHeader, "Skip the first line of a DSV pool")

	f.BoolVar(&o.Verbose, "verbose", o.Verbose, "Log at debug level")
	f.StringVar(&o.CPUProfile, "cpu-profile", o.CPUProfile, "Write a CPU profile")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the ones that span fields.
func (o *RunOptions) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	if _, err := o.delimiter(); err != nil {
		return err
	}
	if o.CDPath == "" && !isArrayPool(o.PoolPath) {
		return fmt.Errorf("--cd is required for DSV pool %s", o.PoolPath)
	}
	return nil
}

func (o *RunOptions) delimiter() (rune, error) {
	switch d := []rune(o.Delimiter); {
	case o.Delimiter == `\t`:
		return '\t', nil
	case len(d) == 1:
		return d[0], nil
	default:
		return 0, fmt.Errorf("delimiter must be a single character; got %q", o.Delimiter)
	}
}

func isArrayPool(path string) bool {
	switch filepath.Ext(strings.TrimSuffix(path, ".zst")) {
	case ".npy", ".npz":
		return true
	}
	return false
}

// mergeRunOptions layers defaults, the optional config file, and the flags
// explicitly set in f, then validates the result.
func mergeRunOptions(configPath string, f *flag.FlagSet) (RunOptions, error) {
	opts := defaultRunOptions()
	if configPath != "" {
		if err := loadConfigFile(configPath, &opts); err != nil {
			return RunOptions{}, err
		}
	}

	overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
	overrides.SetOutput(io.Discard)
	opts.bindFlags(overrides)

	var err error
	f.Visit(func(fl *flag.Flag) {
		if err != nil || overrides.Lookup(fl.Name) == nil {
			return
		}
		if setErr := overrides.Set(fl.Name, fl.Value.String()); setErr != nil {
			err = fmt.Errorf("while applying --%s: %w", fl.Name, setErr)
		}
	})
	if err != nil {
		return RunOptions{}, err
	}

	if err := opts.Validate(); err != nil {
		return RunOptions{}, err
	}
	return opts, nil
}

func loadConfigFile(path string, opts *RunOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("while opening config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("while parsing config file %s: %w", path, err)
	}
	return nil
}

// stringList is a comma-separated flag value.
type stringList []string

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = nil
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*s = append(*s, item)
		}
	}
	return nil
}

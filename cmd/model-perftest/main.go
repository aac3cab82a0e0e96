// Command model-perftest benchmarks interchangeable implementations of model
// scoring against the same pool and cross-checks their outputs.
//
// To generate a synthetic model and pool: `go run ./cmd/model-perftest gen --pool-out=pool.npy --model-out=model.safetensors`
//
// To benchmark: `go run ./cmd/model-perftest run --pool-path=pool.npy --model-path=model.safetensors --block-size=1000 --repetitions=5`
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&RunCommand{}, "")
	subcommands.Register(&ModulesCommand{}, "")
	subcommands.Register(&GenCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

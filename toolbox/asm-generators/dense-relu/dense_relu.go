// Command dense-relu emits the AVX kernel behind toolbox.ReLUAsm.
//
// Run through `go generate ./toolbox/` with the avo build tag.
package main

import (
	"github.com/ahmedtd/modelperf/toolbox/asm-generators/genlib"
	. "github.com/mmcloughlin/avo/build"
)

func main() {
	Package("github.com/ahmedtd/modelperf/toolbox")
	ConstraintExpr("avo && amd64")

	TEXT("reluAVX", NOSPLIT, "func(n int, z []float32)")
	Doc("reluAVX clamps the first n elements of z to be non-negative.")

	n := Load(Param("n"), GP64())
	zPtr := Load(Param("z").Base(), GP64())

	genlib.GenReLU(n, zPtr, 6)

	RET()

	Generate()
}

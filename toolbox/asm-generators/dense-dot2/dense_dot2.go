// Command dense-dot2 emits the AVX2 kernel behind toolbox.DenseDot2Asm.
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

	TEXT("denseDot2AVX", NOSPLIT, "func(n int, x []float32, y []float32) float32")
	Doc("denseDot2AVX computes the dot product of the first n elements of x and y.")

	n := Load(Param("n"), GP64())
	xPtr := Load(Param("x").Base(), GP64())
	yPtr := Load(Param("y").Base(), GP64())

	result := genlib.GenSIMDDot2(n, xPtr, yPtr, 6)
	Store(result, ReturnIndex(0))

	RET()

	Generate()
}

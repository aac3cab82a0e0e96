//go:build avo && amd64

package toolbox

//go:generate go run ./asm-generators/dense-dot2 -out dense_dot2_amd64.s

// denseDot2AVX is implemented in dense_dot2_amd64.s, emitted by the avo
// program in asm-generators/dense-dot2.
//
//go:noescape
func denseDot2AVX(n int, x []float32, y []float32) float32

func DenseDot2Asm(x []float32, y []float32) float32 {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	return denseDot2AVX(len(x), x, y)
}

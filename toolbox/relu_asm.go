//go:build avo && amd64

package toolbox

//go:generate go run ./asm-generators/dense-relu -out dense_relu_amd64.s

// reluAVX is implemented in dense_relu_amd64.s.
//
//go:noescape
func reluAVX(n int, z []float32)

// ReLUAsm applies the ReLU activation to z in place.
func ReLUAsm(z []float32) {
	if len(z) == 0 {
		return
	}
	reluAVX(len(z), z)
}

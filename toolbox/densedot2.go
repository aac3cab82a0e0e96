package toolbox

func DenseDot2Naive(x []float32, y []float32) float32 {
	if len(x) != len(y) {
		panic("mismatched length")
	}
	var sum float32
	for i := range len(x) {
		sum += x[i] * y[i]
	}
	return sum
}

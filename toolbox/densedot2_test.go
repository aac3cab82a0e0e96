package toolbox

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/chewxy/math32"
)

func TestDenseDot2Naive(t *testing.T) {
	x := []float32{1, 2, 3, 4}
	y := []float32{4, 3, 2, 1}
	if got, want := DenseDot2Naive(x, y), float32(20); got != want {
		t.Errorf("DenseDot2Naive; got %v, want %v", got, want)
	}
}

func TestDenseDot2NaivePanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("DenseDot2Naive did not panic on mismatched lengths")
		}
	}()
	DenseDot2Naive([]float32{1, 2}, []float32{1})
}

// checkDot compares an accelerated kernel against the naive one over a range of
// sizes, including ones that exercise the vector tails.
func checkDot(t *testing.T, dot DotFunc) {
	t.Helper()
	r := rand.New(rand.NewSource(12345))
	for _, size := range []int{1, 7, 8, 31, 32, 33, 47, 48, 49, 100, 1000} {
		x := make([]float32, size)
		y := make([]float32, size)
		for i := range size {
			x[i] = r.Float32()
			y[i] = r.Float32()
		}
		got := dot(x, y)
		want := DenseDot2Naive(x, y)
		if math32.Abs(got-want) > 1e-3*float32(size) {
			t.Errorf("size=%d; got %v, want %v", size, got, want)
		}
	}
}

func BenchmarkDenseDot2(b *testing.B) {
	b.Run("impl=naive", func(b *testing.B) {
		for i := 8; i < 16; i++ {
			b.Run("size="+strconv.Itoa(2<<i), func(b *testing.B) {
				x := make([]float32, 2<<i)
				y := make([]float32, 2<<i)
				for i := range 2 << i {
					x[i] = rand.Float32()
					y[i] = rand.Float32()
				}
				for b.Loop() {
					_ = DenseDot2Naive(x, y)
				}
			})
		}
	})
}

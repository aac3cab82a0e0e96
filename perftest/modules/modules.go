// Package modules holds the built-in scoring variants benchmarked by
// model-perftest.
//
// Every variant scores the same toolbox.Network; they differ in kernel
// (plain loops, BLAS, SIMD) and in which block layouts they accept.
package modules

import (
	"fmt"

	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
)

type builtin struct {
	key  string
	ctor perftest.Constructor
}

// builtins is extended by init functions in build-tagged files.
var builtins = []builtin{
	{"blas", NewBLAS},
	{"gonum-mat", NewGonumMat},
	{"linear", NewLinear},
	{"naive", NewNaive},
	{"vek", NewVek},
}

// Default returns a registry holding every built-in variant compiled into
// this binary.
func Default() *perftest.Registry {
	r := perftest.NewRegistry()
	for _, b := range builtins {
		r.Register(b.key, b.ctor)
	}
	return r
}

// layouts implements the capability half of perftest.Module.  A layout is
// supported iff it has a priority.
type layouts struct {
	key      string
	priority map[perftest.Layout]int
}

func (l layouts) Name(layout perftest.Layout) string {
	switch layout {
	case perftest.ObjectsFirst:
		return l.key + "-objects"
	case perftest.FeaturesFirst:
		return l.key + "-features"
	default:
		return fmt.Sprintf("%s-%v", l.key, layout)
	}
}

func (l layouts) SupportsLayout(layout perftest.Layout) bool {
	_, ok := l.priority[layout]
	return ok
}

func (l layouts) ComparisonPriority(layout perftest.Layout) int {
	return l.priority[layout]
}

func unsupported(l layouts, layout perftest.Layout) string {
	return fmt.Sprintf("%s: unsupported layout %v", l.key, layout)
}

// grow returns (*buf)[:n], reallocating when the capacity is too small.
func grow(buf *[]float32, n int) []float32 {
	if cap(*buf) < n {
		*buf = make([]float32, n)
	}
	return (*buf)[:n]
}

// forwardRows scores one document per row with dot as the neuron kernel.
func forwardRows(net *toolbox.Network, dot toolbox.DotFunc, rows [][]float32, a0, a1 []float32) []float64 {
	out := make([]float64, len(rows))
	for k, x := range rows {
		out[k] = float64(net.Forward(dot, x, a0, a1))
	}
	return out
}

// axpyFunc computes dst += a*x.
type axpyFunc func(dst []float32, a float32, x []float32)

func axpyNaive(dst []float32, a float32, x []float32) {
	x = x[:len(dst)]
	for k, v := range x {
		dst[k] += a * v
	}
}

// columnScratch holds two ping-pong activation matrices for features-first
// scoring, each viewed as one row per neuron.
type columnScratch struct {
	bufs  [2][]float32
	views [2][][]float32
}

func (s *columnScratch) layer(slot, rows, docs int) [][]float32 {
	buf := grow(&s.bufs[slot], rows*docs)
	if cap(s.views[slot]) < rows {
		s.views[slot] = make([][]float32, rows)
	}
	v := s.views[slot][:rows]
	for i := range v {
		v[i] = buf[i*docs : (i+1)*docs]
	}
	return v
}

// forwardColumns scores a features-first block, keeping every intermediate
// activation in the same column-per-neuron orientation.
func forwardColumns(net *toolbox.Network, cols [][]float32, s *columnScratch, axpy axpyFunc) []float64 {
	docs := len(cols[0])
	in := cols
	for l, lay := range net.Layers {
		z := s.layer(l%2, lay.OutputSize, docs)
		for i, zi := range z {
			b := lay.B.At1(i)
			for k := range zi {
				zi[k] = b
			}
			w := lay.W.Row(i)
			for j, col := range in {
				axpy(zi, w[j], col)
			}
			toolbox.Activate(lay.Activation, zi)
		}
		in = z
	}

	out := make([]float64, docs)
	for k, v := range in[0] {
		out[k] = float64(v)
	}
	return out
}

//go:build goexperiment.simd && amd64

package modules

import (
	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
)

func init() {
	builtins = append(builtins, builtin{"simd", NewSIMD})
}

// simdModule runs the objects-first forward pass on the experimental simd
// package's AVX2 dot product.
type simdModule struct {
	layouts
	net    *toolbox.Network
	a0, a1 []float32
}

func NewSIMD(net *toolbox.Network) (perftest.Module, error) {
	return &simdModule{
		layouts: layouts{
			key: "simd",
			priority: map[perftest.Layout]int{
				perftest.ObjectsFirst: 30,
			},
		},
		net: net,
		a0:  make([]float32, net.MaxWidth()),
		a1:  make([]float32, net.MaxWidth()),
	}, nil
}

func (m *simdModule) Do(layout perftest.Layout, view [][]float32) []float64 {
	if layout != perftest.ObjectsFirst {
		panic(unsupported(m.layouts, layout))
	}
	return forwardRows(m.net, toolbox.DenseDot2SIMD, view, m.a0, m.a1)
}

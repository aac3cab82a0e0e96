//go:build avo && amd64

package modules

import (
	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
)

func init() {
	builtins = append(builtins, builtin{"asm", NewAsm})
}

// asmModule runs the objects-first forward pass on the avo-generated AVX2
// dot product and ReLU kernels.
type asmModule struct {
	layouts
	net    *toolbox.Network
	a0, a1 []float32
}

func NewAsm(net *toolbox.Network) (perftest.Module, error) {
	return &asmModule{
		layouts: layouts{
			key: "asm",
			priority: map[perftest.Layout]int{
				perftest.ObjectsFirst: 30,
			},
		},
		net: net,
		a0:  make([]float32, net.MaxWidth()),
		a1:  make([]float32, net.MaxWidth()),
	}, nil
}

func (m *asmModule) Do(layout perftest.Layout, view [][]float32) []float64 {
	if layout != perftest.ObjectsFirst {
		panic(unsupported(m.layouts, layout))
	}
	out := make([]float64, len(view))
	for k, x := range view {
		out[k] = float64(m.net.ForwardReLU(toolbox.DenseDot2Asm, toolbox.ReLUAsm, x, m.a0, m.a1))
	}
	return out
}

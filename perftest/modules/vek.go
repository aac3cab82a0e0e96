package modules

import (
	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
	"github.com/viterin/vek/vek32"
)

// vekModule uses the viterin/vek32 kernels, which dispatch to AVX2 when the
// CPU has it.
type vekModule struct {
	layouts
	net *toolbox.Network

	a0, a1 []float32
	cols   columnScratch
	tmp    []float32
}

func NewVek(net *toolbox.Network) (perftest.Module, error) {
	return &vekModule{
		layouts: layouts{
			key: "vek",
			priority: map[perftest.Layout]int{
				perftest.ObjectsFirst:  20,
				perftest.FeaturesFirst: 20,
			},
		},
		net: net,
		a0:  make([]float32, net.MaxWidth()),
		a1:  make([]float32, net.MaxWidth()),
	}, nil
}

func (m *vekModule) Do(layout perftest.Layout, view [][]float32) []float64 {
	switch layout {
	case perftest.ObjectsFirst:
		return forwardRows(m.net, vek32.Dot, view, m.a0, m.a1)
	case perftest.FeaturesFirst:
		return forwardColumns(m.net, view, &m.cols, m.axpy)
	default:
		panic(unsupported(m.layouts, layout))
	}
}

func (m *vekModule) axpy(dst []float32, a float32, x []float32) {
	tmp := grow(&m.tmp, len(x))
	vek32.MulNumber_Into(tmp, x, a)
	vek32.Add_Inplace(dst, tmp)
}

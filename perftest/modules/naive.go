package modules

import (
	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
)

// naive is the reference implementation: plain Go loops in both layouts.  It
// carries the highest priority so it is the baseline whenever it is present.
type naive struct {
	layouts
	net *toolbox.Network

	a0, a1 []float32
	cols   columnScratch
}

func NewNaive(net *toolbox.Network) (perftest.Module, error) {
	return &naive{
		layouts: layouts{
			key: "naive",
			priority: map[perftest.Layout]int{
				perftest.ObjectsFirst:  100,
				perftest.FeaturesFirst: 50,
			},
		},
		net: net,
		a0:  make([]float32, net.MaxWidth()),
		a1:  make([]float32, net.MaxWidth()),
	}, nil
}

func (m *naive) Do(layout perftest.Layout, view [][]float32) []float64 {
	switch layout {
	case perftest.ObjectsFirst:
		return forwardRows(m.net, toolbox.DenseDot2Naive, view, m.a0, m.a1)
	case perftest.FeaturesFirst:
		return forwardColumns(m.net, view, &m.cols, axpyNaive)
	default:
		panic(unsupported(m.layouts, layout))
	}
}

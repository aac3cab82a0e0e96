package modules

import (
	"fmt"

	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
)

// linear is specialised for a single linear layer: a weighted sum of the
// features with float64 accumulation.  Construction fails for any other
// network.
type linear struct {
	layouts
	w []float64
	b float64
}

func NewLinear(net *toolbox.Network) (perftest.Module, error) {
	if len(net.Layers) != 1 {
		return nil, fmt.Errorf("model has %d layers, want a single linear layer", len(net.Layers))
	}
	lay := net.Layers[0]
	if lay.Activation != toolbox.Linear {
		return nil, fmt.Errorf("model has %v activation, want linear", lay.Activation)
	}

	w := make([]float64, lay.InputSize)
	for j, v := range lay.W.Row(0) {
		w[j] = float64(v)
	}
	return &linear{
		layouts: layouts{
			key: "linear",
			priority: map[perftest.Layout]int{
				perftest.ObjectsFirst:  1,
				perftest.FeaturesFirst: 1,
			},
		},
		w: w,
		b: float64(lay.B.At1(0)),
	}, nil
}

func (m *linear) Do(layout perftest.Layout, view [][]float32) []float64 {
	switch layout {
	case perftest.ObjectsFirst:
		out := make([]float64, len(view))
		for k, x := range view {
			x = x[:len(m.w)]
			sum := m.b
			for j, v := range x {
				sum += m.w[j] * float64(v)
			}
			out[k] = sum
		}
		return out
	case perftest.FeaturesFirst:
		out := make([]float64, len(view[0]))
		for k := range out {
			out[k] = m.b
		}
		for j, col := range view {
			wj := m.w[j]
			col = col[:len(out)]
			for k, v := range col {
				out[k] += wj * float64(v)
			}
		}
		return out
	default:
		panic(unsupported(m.layouts, layout))
	}
}

package modules

import (
	"math"

	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
	"gonum.org/v1/gonum/mat"
)

// gonumMat scores in float64 with gonum/mat.  It only takes objects-first
// blocks, since a row per document is what mat.Dense stores.
type gonumMat struct {
	layouts
	net     *toolbox.Network
	weights []*mat.Dense // Shape (OutputSize, InputSize) per layer
	biases  [][]float64

	x   mat.Dense
	act [2]mat.Dense
}

func NewGonumMat(net *toolbox.Network) (perftest.Module, error) {
	m := &gonumMat{
		layouts: layouts{
			key: "gonum-mat",
			priority: map[perftest.Layout]int{
				perftest.ObjectsFirst: 5,
			},
		},
		net: net,
	}
	for _, lay := range net.Layers {
		w := make([]float64, len(lay.W.V))
		for i, v := range lay.W.V {
			w[i] = float64(v)
		}
		m.weights = append(m.weights, mat.NewDense(lay.OutputSize, lay.InputSize, w))

		b := make([]float64, lay.OutputSize)
		for i := range b {
			b[i] = float64(lay.B.At1(i))
		}
		m.biases = append(m.biases, b)
	}
	return m, nil
}

func (m *gonumMat) Do(layout perftest.Layout, view [][]float32) []float64 {
	if layout != perftest.ObjectsFirst {
		panic(unsupported(m.layouts, layout))
	}

	docs := len(view)
	inputSize := m.net.InputSize()
	m.x.Reset()
	m.x.ReuseAs(docs, inputSize)
	raw := m.x.RawMatrix()
	for k, row := range view {
		dst := raw.Data[k*raw.Stride : k*raw.Stride+inputSize]
		for j, v := range row {
			dst[j] = float64(v)
		}
	}

	var a mat.Matrix = &m.x
	for l, lay := range m.net.Layers {
		z := &m.act[l%2]
		z.Reset()
		z.Mul(a, m.weights[l].T())

		zRaw := z.RawMatrix()
		for k := 0; k < docs; k++ {
			row := zRaw.Data[k*zRaw.Stride : k*zRaw.Stride+lay.OutputSize]
			for i := range row {
				row[i] += m.biases[l][i]
			}
			activate64(lay.Activation, row)
		}
		a = z
	}

	out := make([]float64, docs)
	final := m.act[(len(m.net.Layers)-1)%2].RawMatrix()
	for k := range out {
		out[k] = final.Data[k*final.Stride]
	}
	return out
}

func activate64(activation toolbox.ActivationType, z []float64) {
	switch activation {
	case toolbox.ReLU:
		for i, v := range z {
			z[i] = math.Max(v, 0)
		}
	case toolbox.Linear:
	case toolbox.Sigmoid:
		for i, v := range z {
			z[i] = 1 / (1 + math.Exp(-v))
		}
	default:
		panic("unhandled activation function")
	}
}

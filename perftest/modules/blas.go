package modules

import (
	"github.com/ahmedtd/modelperf/perftest"
	"github.com/ahmedtd/modelperf/toolbox"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// blasModule packs each block into a dense matrix and scores a whole layer
// with one Sgemm call.
type blasModule struct {
	layouts
	net     *toolbox.Network
	weights []blas32.General // Shape (OutputSize, InputSize) per layer

	x   []float32
	act [2][]float32
}

func NewBLAS(net *toolbox.Network) (perftest.Module, error) {
	m := &blasModule{
		layouts: layouts{
			key: "blas",
			priority: map[perftest.Layout]int{
				perftest.ObjectsFirst:  10,
				perftest.FeaturesFirst: 10,
			},
		},
		net: net,
	}
	for _, lay := range net.Layers {
		m.weights = append(m.weights, blas32.General{
			Rows:   lay.OutputSize,
			Cols:   lay.InputSize,
			Stride: lay.InputSize,
			Data:   lay.W.V,
		})
	}
	return m, nil
}

func (m *blasModule) Do(layout perftest.Layout, view [][]float32) []float64 {
	switch layout {
	case perftest.ObjectsFirst:
		return m.objects(view)
	case perftest.FeaturesFirst:
		return m.features(view)
	default:
		panic(unsupported(m.layouts, layout))
	}
}

// objects computes Z = A * W^T layer by layer, with A shaped (docs, width).
func (m *blasModule) objects(rows [][]float32) []float64 {
	docs := len(rows)
	inputSize := m.net.InputSize()

	x := grow(&m.x, docs*inputSize)
	for k, row := range rows {
		copy(x[k*inputSize:(k+1)*inputSize], row)
	}
	a := blas32.General{Rows: docs, Cols: inputSize, Stride: inputSize, Data: x}

	for l, lay := range m.net.Layers {
		outputSize := lay.OutputSize
		z := blas32.General{
			Rows:   docs,
			Cols:   outputSize,
			Stride: outputSize,
			Data:   grow(&m.act[l%2], docs*outputSize),
		}
		blas32.Gemm(blas.NoTrans, blas.Trans, 1, a, m.weights[l], 0, z)
		for k := 0; k < docs; k++ {
			row := z.Data[k*outputSize : (k+1)*outputSize]
			for i := range row {
				row[i] += lay.B.At1(i)
			}
			toolbox.Activate(lay.Activation, row)
		}
		a = z
	}

	out := make([]float64, docs)
	for k := range out {
		out[k] = float64(a.Data[k*a.Stride])
	}
	return out
}

// features computes Z^T = W * A^T layer by layer, with A^T shaped
// (width, docs).
func (m *blasModule) features(cols [][]float32) []float64 {
	docs := len(cols[0])
	inputSize := len(cols)

	xt := grow(&m.x, inputSize*docs)
	for j, col := range cols {
		copy(xt[j*docs:(j+1)*docs], col)
	}
	a := blas32.General{Rows: inputSize, Cols: docs, Stride: docs, Data: xt}

	for l, lay := range m.net.Layers {
		outputSize := lay.OutputSize
		z := blas32.General{
			Rows:   outputSize,
			Cols:   docs,
			Stride: docs,
			Data:   grow(&m.act[l%2], outputSize*docs),
		}
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, m.weights[l], a, 0, z)
		for i := 0; i < outputSize; i++ {
			row := z.Data[i*docs : (i+1)*docs]
			b := lay.B.At1(i)
			for k := range row {
				row[k] += b
			}
			toolbox.Activate(lay.Activation, row)
		}
		a = z
	}

	out := make([]float64, docs)
	for k := range out {
		out[k] = float64(a.Data[k])
	}
	return out
}

package toolbox

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"slices"

	"github.com/chewxy/math32"
)

type ActivationType int

const (
	ReLU ActivationType = iota
	Linear
	Sigmoid
)

func (a ActivationType) String() string {
	switch a {
	case ReLU:
		return "relu"
	case Linear:
		return "linear"
	case Sigmoid:
		return "sigmoid"
	default:
		return fmt.Sprintf("ActivationType(%d)", int(a))
	}
}

func ParseActivation(s string) (ActivationType, error) {
	switch s {
	case "relu":
		return ReLU, nil
	case "linear":
		return Linear, nil
	case "sigmoid":
		return Sigmoid, nil
	default:
		return 0, fmt.Errorf("unknown activation %q", s)
	}
}

// ErrNotScalar is returned when a network does not produce exactly one output
// per sample, which is what scoring requires.
var ErrNotScalar = errors.New("network must have a single output")

// DotFunc computes the dot product of two equal-length vectors.
type DotFunc func(x, y []float32) float32

// Network is a dense feed-forward scoring model.
type Network struct {
	Layers []*Layer
}

type Layer struct {
	Activation ActivationType

	W *AF32 // Shape (OutputSize, InputSize)
	B *AF32 // Shape (OutputSize)

	InputSize  int
	OutputSize int
}

func MakeDense(activation ActivationType, inputSize, outputSize int, r *rand.Rand) *Layer {
	l := &Layer{
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		W:          MakeAF32(outputSize, inputSize),
		B:          MakeAF32(outputSize),
	}

	for i := 0; i < outputSize; i++ {
		for j := 0; j < inputSize; j++ {
			l.W.Set2(i, j, float32(r.NormFloat64())*0.1)
		}
		l.B.Set1(i, 0.1)
	}

	return l
}

// InputSize is the number of features the network consumes.
func (net *Network) InputSize() int {
	return net.Layers[0].InputSize
}

// MaxWidth is the widest activation vector produced while scoring, including
// the input.
func (net *Network) MaxWidth() int {
	width := net.Layers[0].InputSize
	for _, lay := range net.Layers {
		width = max(width, lay.OutputSize)
	}
	return width
}

func (net *Network) LoadTensors(tensors map[string]*AF32, metadata map[string]string) error {
	net.Layers = nil
	for l := 0; ; l++ {
		weightKey := fmt.Sprintf("net.%d.weights", l)
		weightTensor, ok := tensors[weightKey]
		if !ok {
			break
		}
		if len(weightTensor.Shape) != 2 {
			return fmt.Errorf("wrong shape for %s; got %v want (out, in)", weightKey, weightTensor.Shape)
		}
		outputSize, inputSize := weightTensor.Shape[0], weightTensor.Shape[1]
		if l > 0 && net.Layers[l-1].OutputSize != inputSize {
			return fmt.Errorf("layer %d consumes %d inputs but layer %d produces %d", l, inputSize, l-1, net.Layers[l-1].OutputSize)
		}

		biasKey := fmt.Sprintf("net.%d.biases", l)
		biasTensor, ok := tensors[biasKey]
		if !ok {
			return fmt.Errorf("no entry for %s", biasKey)
		}
		if !slices.Equal(biasTensor.Shape, []int{outputSize}) && !slices.Equal(biasTensor.Shape, []int{outputSize, 1}) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", biasKey, biasTensor.Shape, []int{outputSize})
		}

		net.Layers = append(net.Layers, &Layer{
			W:          weightTensor,
			B:          AF32Reshape(biasTensor, outputSize),
			InputSize:  inputSize,
			OutputSize: outputSize,
		})
	}

	if len(net.Layers) == 0 {
		return fmt.Errorf("no entry for net.0.weights")
	}

	for l, lay := range net.Layers {
		lay.Activation = ReLU
		if l == len(net.Layers)-1 {
			lay.Activation = Linear
		}
		if s, ok := metadata[fmt.Sprintf("net.%d.activation", l)]; ok {
			act, err := ParseActivation(s)
			if err != nil {
				return fmt.Errorf("while reading activation of layer %d: %w", l, err)
			}
			lay.Activation = act
		}
	}

	if out := net.Layers[len(net.Layers)-1].OutputSize; out != 1 {
		return fmt.Errorf("%w; got %d", ErrNotScalar, out)
	}

	return nil
}

func (net *Network) DumpTensors(tensors map[string]*AF32, metadata map[string]string) {
	for l := 0; l < len(net.Layers); l++ {
		tensors[fmt.Sprintf("net.%d.weights", l)] = net.Layers[l].W
		tensors[fmt.Sprintf("net.%d.biases", l)] = net.Layers[l].B
		metadata[fmt.Sprintf("net.%d.activation", l)] = net.Layers[l].Activation.String()
	}
}

// LoadNetwork reads a scoring network from a safetensors file.
func LoadNetwork(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening model file: %w", err)
	}
	defer f.Close()

	tensors, metadata, err := ReadSafeTensors(f)
	if err != nil {
		return nil, fmt.Errorf("while reading model tensors: %w", err)
	}

	net := &Network{}
	if err := net.LoadTensors(tensors, metadata); err != nil {
		return nil, fmt.Errorf("while restoring network: %w", err)
	}
	return net, nil
}

// SaveNetwork writes net to path in the safetensors format.
func SaveNetwork(path string, net *Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating model file: %w", err)
	}
	defer f.Close()

	tensors := map[string]*AF32{}
	metadata := map[string]string{}
	net.DumpTensors(tensors, metadata)

	if err := WriteSafeTensors(f, tensors, metadata); err != nil {
		return fmt.Errorf("while writing model tensors: %w", err)
	}
	return f.Close()
}

// x is the input.  Shape (batchSize, layers[0].InputSize)
func (net *Network) Apply(x *AF32) *AF32 {
	batchSize := x.Shape[0]

	// Collect max-sized layer output needed.
	maxOutputSize := x.Shape[1]
	for l := 0; l < len(net.Layers); l++ {
		if net.Layers[l].OutputSize > maxOutputSize {
			maxOutputSize = net.Layers[l].OutputSize
		}
	}

	// Make this in a weird way because we're going to keep resizing them as we
	// move forward through the layers.
	a0 := &AF32{
		V:     make([]float32, 0, batchSize*maxOutputSize),
		Shape: []int{0, 0},
	}
	a1 := &AF32{
		V:     make([]float32, 0, batchSize*maxOutputSize),
		Shape: []int{0, 0},
	}

	// Copy the input into a0
	a0.V = a0.V[:batchSize*x.Shape[1]]
	a0.Shape[0] = batchSize
	a0.Shape[1] = x.Shape[1]
	copy(a0.V, x.V)

	for l := 0; l < len(net.Layers); l++ {
		// Resize our outputs correctly for this layer.
		a1.V = a1.V[:batchSize*net.Layers[l].OutputSize]
		a1.Shape[0] = batchSize
		a1.Shape[1] = net.Layers[l].OutputSize

		net.Layers[l].Apply(a0, a1)

		// This layer's output becomes the input for the next layer.
		a0, a1 = a1, a0
	}

	return a0
}

// Forward scores a single sample x, using dot for every neuron.  a0 and a1 are
// scratch buffers of at least MaxWidth() elements.
func (net *Network) Forward(dot DotFunc, x, a0, a1 []float32) float32 {
	return net.ForwardReLU(dot, reluActivation, x, a0, a1)
}

// ForwardReLU is Forward with relu standing in for the ReLU activation.
func (net *Network) ForwardReLU(dot DotFunc, relu func(z []float32), x, a0, a1 []float32) float32 {
	in := x
	for _, lay := range net.Layers {
		out := a0[:lay.OutputSize]
		for i := 0; i < lay.OutputSize; i++ {
			out[i] = dot(lay.W.Row(i), in) + lay.B.At1(i)
		}
		if lay.Activation == ReLU {
			relu(out)
		} else {
			Activate(lay.Activation, out)
		}
		in = out
		a0, a1 = a1, a0
	}
	return in[0]
}

// Apply the layer in the forward direction.
//
// x (input) is the layer input.  Shape (batchSize, lay.InputSize)
// a (output) is the layer's forward output.  Shape (batchSize, lay.OutputSize)
func (lay *Layer) Apply(x, a *AF32) {
	batchSize := x.Shape[0]
	inputSize := lay.InputSize
	outputSize := lay.OutputSize

	if x.Shape[1] != inputSize {
		panic("dimension mismatch")
	}
	_ = x.At2(batchSize-1, inputSize-1)

	if a.Shape[0] != batchSize {
		panic("dimension mismatch")
	}
	if a.Shape[1] != outputSize {
		panic("dimension mismatch")
	}
	_ = a.At2(batchSize-1, outputSize-1)

	if lay.W.Shape[0] != outputSize {
		panic("dimension mismatch")
	}
	if lay.W.Shape[1] != inputSize {
		panic("dimension mismatch")
	}
	_ = lay.W.At2(outputSize-1, inputSize-1)

	if !slices.Equal(lay.B.Shape, []int{outputSize}) {
		panic("lay.B.Shape != {outputSize}")
	}
	_ = lay.B.At1(outputSize - 1)

	// Write the linear activations into a.  Equivalent to
	//
	// for k := 0; k < batchSize; k++ {
	// 	for i := 0; i < outputSize; i++ {
	// 		var z float32
	// 		for j := 0; j < inputSize; j++ {
	// 			z += lay.W.At(i, j) * x.At(k, j)
	// 		}
	// 		z += lay.B.At(i, 0)
	// 		a.Set(k, i, z)
	// 	}
	// }
	for k := 0; k < batchSize; k++ {
		for i := 0; i < outputSize; i++ {
			z := DenseDot2Naive(lay.W.V[i*inputSize:i*inputSize+inputSize], x.V[k*inputSize:k*inputSize+inputSize])
			z += lay.B.At1(i)
			a.Set2(k, i, z)
		}
	}

	Activate(lay.Activation, a.V)
}

// Activate applies the activation function to z elementwise.
func Activate(activation ActivationType, z []float32) {
	switch activation {
	case ReLU:
		reluActivation(z)
	case Linear:
		// linear activation is a no-op
	case Sigmoid:
		sigmoidActivation(z)
	default:
		panic("unhandled activation function")
	}
}

// z (input/output)
func reluActivation(z []float32) {
	for i := 0; i < len(z); i++ {
		if z[i] < 0 {
			z[i] = 0
		}
	}
}

func sigmoidActivation(z []float32) {
	for i := 0; i < len(z); i++ {
		z[i] = 1 / (1 + math32.Exp(-z[i]))
	}
}

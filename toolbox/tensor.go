package toolbox

import (
	"fmt"
	"unsafe"
)

// Verify bounds check elimination with
//
//   go build -gcflags="-d=ssa/check_bce" ./toolbox/

type AF32 struct {
	V     []float32
	Shape []int
}

func MakeAF32(shape ...int) *AF32 {
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
	}
	size := 1
	for _, s := range shape {
		size *= s
	}

	return &AF32{
		V:     make([]float32, size),
		Shape: shape,
	}
}

// AF32Reshape reshapes the input tensor.  The overall number of elements must
// be the same.  The returned tensor shares storage with the input tensor (no
// data is copied).
func AF32Reshape(a *AF32, shape ...int) *AF32 {
	newSize := 1
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
		newSize *= s
	}

	if newSize != len(a.V) {
		panic("invalid reshape")
	}

	return &AF32{
		V:     a.V,
		Shape: shape,
	}
}

func (a *AF32) At1(idx int) float32 {
	pBase := unsafe.Pointer(unsafe.SliceData(a.V))
	pElt := (*float32)(unsafe.Pointer(uintptr(pBase) + uintptr(idx*4)))
	return *pElt
	// return a.V[idx]
}

func (a *AF32) At2(idx0, idx1 int) float32 {
	if len(a.Shape) != 2 {
		panic("At2() invalid for len(shape) != 2")
	}
	return a.V[idx0*a.Shape[1]+idx1]
}

func (a *AF32) Set1(idx int, v float32) {
	pBase := unsafe.Pointer(unsafe.SliceData(a.V))
	pElt := (*float32)(unsafe.Pointer(uintptr(pBase) + uintptr(idx*4)))
	*pElt = v
	// a.V[idx] = v
}

func (a *AF32) Set2(idx0, idx1 int, v float32) {
	if len(a.Shape) != 2 {
		panic("Set2() invalid for len(shape) != 2")
	}
	a.V[idx0*a.Shape[1]+idx1] = v
}

// Row returns the idx0'th row of a 2D tensor, sharing storage.
func (a *AF32) Row(idx0 int) []float32 {
	if len(a.Shape) != 2 {
		panic("Row() invalid for len(shape) != 2")
	}
	return a.V[idx0*a.Shape[1] : idx0*a.Shape[1]+a.Shape[1]]
}

package genlib

import (
	. "github.com/mmcloughlin/avo/build"
	. "github.com/mmcloughlin/avo/operand"
	. "github.com/mmcloughlin/avo/reg"
)

// GenReLU emits an in-place max(z, 0) over n float32 elements starting at
// ptr.
func GenReLU(n Register, ptr Register, unroll int) {
	zeros := YMM()
	VXORPS(zeros, zeros, zeros)

	// Loop over blocks and process them with vector instructions.
	blockitems := 8 * unroll
	blocksize := 4 * blockitems

	Label("relublockloop")
	CMPQ(n, U32(blockitems))
	JL(LabelRef("relutail"))

	xs := make([]VecVirtual, unroll)
	for i := 0; i < unroll; i++ {
		xs[i] = YMM()
	}
	for i := 0; i < unroll; i++ {
		VMOVUPS(Mem{Base: ptr}.Offset(32*i), xs[i])
	}
	for i := 0; i < unroll; i++ {
		VMAXPS(zeros, xs[i], xs[i])
	}
	for i := 0; i < unroll; i++ {
		VMOVUPS(xs[i], Mem{Base: ptr}.Offset(32*i))
	}

	ADDQ(U32(blocksize), ptr)
	SUBQ(U32(blockitems), n)
	JMP(LabelRef("relublockloop"))

	// Process any trailing entries one at a time.
	Label("relutail")
	CMPQ(n, U32(0))
	JE(LabelRef("reludone"))

	x := XMM()
	VMOVSS(Mem{Base: ptr}, x)
	VMAXSS(zeros.AsX(), x, x)
	VMOVSS(x, Mem{Base: ptr})

	ADDQ(U32(4), ptr)
	DECQ(n)
	JMP(LabelRef("relutail"))

	Label("reludone")
}

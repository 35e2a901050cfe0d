//go:build linux && amd64

package x86asm

import (
	"bytes"
	"testing"

	"github.com/ascrivener/ghuloum/pkg/codebuffer"
)

func newTestEncoder(t *testing.T) (*Encoder, *codebuffer.Buffer) {
	t.Helper()
	buf := codebuffer.Init(64)
	t.Cleanup(buf.Deinit)
	return NewEncoder(codebuffer.NewBufferWriter(buf)), buf
}

func emitted(e *Encoder, buf *codebuffer.Buffer) []byte {
	out := make([]byte, e.W.Pos())
	for i := range out {
		out[i] = buf.At(i)
	}
	return out
}

// TestFixnumLiteral reproduces spec.md §8 scenario 1: (fixnum 123) -> b8
// ec 01 00 00 c3; result 492 = 123<<2.
func TestFixnumLiteral(t *testing.T) {
	e, buf := newTestEncoder(t)
	e.MovRegImm32(RAX, 492)
	e.Ret()
	want := []byte{0xb8, 0xec, 0x01, 0x00, 0x00, 0xc3}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

// TestAdd1 reproduces scenario 2: (add1 5) -> b8 14 00 00 00 05 04 00 00
// 00 c3; result 24 = encode_fixnum(5) + encode_fixnum(1).
func TestAdd1(t *testing.T) {
	e, buf := newTestEncoder(t)
	e.MovRegImm32(RAX, 20)
	e.AddRegImm32(RAX, 4)
	e.Ret()
	want := []byte{0xb8, 0x14, 0x00, 0x00, 0x00, 0x05, 0x04, 0x00, 0x00, 0x00, 0xc3}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

// TestPlus reproduces scenario 3: (+ 1 2) evaluates the second operand
// first, spills it to [rsp-8], evaluates the first operand into rax, then
// adds the spilled value back in.
func TestPlus(t *testing.T) {
	e, buf := newTestEncoder(t)
	e.MovRegImm32(RAX, 8) // encode_fixnum(2), the second operand
	e.MovRegToStack(RAX, -8)
	e.MovRegImm32(RAX, 4) // encode_fixnum(1), the first operand
	e.AddRegStack(RAX, -8)
	e.Ret()
	want := []byte{
		0xb8, 0x08, 0x00, 0x00, 0x00,
		0x48, 0x89, 0x44, 0x24, 0xf8,
		0xb8, 0x04, 0x00, 0x00, 0x00,
		0x48, 0x03, 0x44, 0x24, 0xf8,
		0xc3,
	}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

// TestIntegerToChar reproduces scenario 4: (integer->char 65) -> b8 04 01
// 00 00 48 c1 e0 06 48 0d 0f 00 00 00 c3.
func TestIntegerToChar(t *testing.T) {
	e, buf := newTestEncoder(t)
	e.MovRegImm32(RAX, 65<<2)
	e.ShlRegImm8(RAX, 6)
	e.OrRegImm32(RAX, 0x0f)
	e.Ret()
	want := []byte{
		0xb8, 0x04, 0x01, 0x00, 0x00,
		0x48, 0xc1, 0xe0, 0x06,
		0x48, 0x0d, 0x0f, 0x00, 0x00, 0x00,
		0xc3,
	}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestMovRegRegEncoding(t *testing.T) {
	e, buf := newTestEncoder(t)
	e.MovRegReg(RSI, RDI)
	want := []byte{0x48, 0x89, 0xfe}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestJmpThenCallBackpatchMatchesScenario6(t *testing.T) {
	e, buf := newTestEncoder(t)

	posAfterJump := e.Jmp()
	codePos := e.W.Pos()
	e.MovRegImm32(RAX, 20)
	e.Ret()
	e.W.BackpatchDisplacementImm32(posAfterJump)

	e.MovRegReg(RSI, RDI)
	e.Call(codePos)
	e.Ret()

	want := []byte{
		0xe9, 0x06, 0x00, 0x00, 0x00,
		0xb8, 0x14, 0x00, 0x00, 0x00,
		0xc3,
		0x48, 0x89, 0xfe,
		0xe8, 0xf2, 0xff, 0xff, 0xff,
		0xc3,
	}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestEncodeDisp8RejectsNonNegative(t *testing.T) {
	e, _ := newTestEncoder(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for a non-negative stack offset")
		}
	}()
	e.MovRegToStack(RAX, 0)
}

func TestMovRegDispToRaxHandlesBothBiases(t *testing.T) {
	e, buf := newTestEncoder(t)
	e.MovRegDispToRax(RAX, -1) // car bias
	e.MovRegDispToRax(RAX, 7)  // cdr bias
	want := []byte{
		0x48, 0x8b, 0x40, 0xff,
		0x48, 0x8b, 0x40, 0x07,
	}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestSetzALAndCmpEncoding(t *testing.T) {
	e, buf := newTestEncoder(t)
	e.CmpRegImm32(RAX, 0x1f)
	e.SetzAL()
	want := []byte{
		0x48, 0x3d, 0x1f, 0x00, 0x00, 0x00,
		0x0f, 0x94, 0xc0,
	}
	if got := emitted(e, buf); !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestJeBackpatch(t *testing.T) {
	e, buf := newTestEncoder(t)
	posAfterJe := e.Je()
	e.Ret() // then-arm, 1 byte
	e.W.BackpatchDisplacementImm32(posAfterJe)
	got := emitted(e, buf)
	disp := int32(got[2]) | int32(got[3])<<8 | int32(got[4])<<16 | int32(got[5])<<24
	if disp != 1 {
		t.Errorf("je displacement = %d, want 1", disp)
	}
}

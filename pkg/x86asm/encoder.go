// Package x86asm is the catalog of functions that emit specific x86-64
// instruction forms into a codebuffer.BufferWriter. Every encoding here is
// bit-exact and mirrors, byte for byte, the original Ghuloum-style
// compiler's Buffer_* functions, wrapped in the teacher's
// (jam/pkg/pvm/jit/x86asm.go) method-on-Assembler idiom.
package x86asm

import "github.com/ascrivener/ghuloum/pkg/codebuffer"

// Reg is an x86-64 general-purpose register number. This encoder only
// ever addresses rax-rdi (0-7): the spec's register set has no use for
// r8-r15, so no REX.R/X/B toggling is needed, only the fixed REX.W
// prefix some forms require.
type Reg byte

const (
	RAX Reg = 0
	RCX Reg = 1
	RDX Reg = 2
	RBX Reg = 3
	RSP Reg = 4
	RBP Reg = 5
	RSI Reg = 6
	RDI Reg = 7
)

// Encoder emits instructions into a BufferWriter.
type Encoder struct {
	W *codebuffer.BufferWriter
}

// NewEncoder wraps a writer for instruction emission.
func NewEncoder(w *codebuffer.BufferWriter) *Encoder {
	return &Encoder{W: w}
}

// encodeDisp8 converts a negative int8 displacement to its two's
// complement byte form; positive offsets are a precondition violation
// everywhere this encoder is used (stack slots are always si < 0).
func encodeDisp8(disp int8) byte {
	if disp >= 0 {
		panic("x86asm: positive stack offset unimplemented")
	}
	return byte(256 + int(disp))
}

// IncReg: inc r64 -> 48 ff c0+r
func (e *Encoder) IncReg(r Reg) {
	e.W.Write8(0x48)
	e.W.Write8(0xff)
	e.W.Write8(0xc0 + byte(r))
}

// DecReg: dec r64 -> 48 ff c8+r
func (e *Encoder) DecReg(r Reg) {
	e.W.Write8(0x48)
	e.W.Write8(0xff)
	e.W.Write8(0xc8 + byte(r))
}

// MovRegImm32: mov r32, imm32 -> b8+r imm32 (zero-extends into the
// 64-bit register, per spec §4.5's one encoding shortcut: destinations
// are always rax in this compiler).
func (e *Encoder) MovRegImm32(dst Reg, imm int32) {
	e.W.Write8(0xb8 + byte(dst))
	e.W.Write32(imm)
}

// MovRegReg: mov dst, src (64-bit) -> 48 89 (c0+dst+src*8)
func (e *Encoder) MovRegReg(dst, src Reg) {
	e.W.Write8(0x48)
	e.W.Write8(0x89)
	e.W.Write8(0xc0 + byte(dst) + byte(src)*8)
}

// AddRegImm32: add rax, imm32 -> 05 imm32; add r32 (not rax), imm32 ->
// 81 c0+r imm32.
func (e *Encoder) AddRegImm32(dst Reg, imm int32) {
	if dst == RAX {
		e.W.Write8(0x05)
	} else {
		e.W.Write8(0x81)
		e.W.Write8(0xc0 + byte(dst))
	}
	e.W.Write32(imm)
}

// SubRegImm32: sub rax, imm32 -> 2d imm32; sub r32 (not rax), imm32 ->
// 83 e8+r imm32.
func (e *Encoder) SubRegImm32(dst Reg, imm int32) {
	if dst == RAX {
		e.W.Write8(0x2d)
	} else {
		e.W.Write8(0x83)
		e.W.Write8(0xe8 + byte(dst))
	}
	e.W.Write32(imm)
}

// AndRegImm32: and r64, imm32 -> 48 25 imm32 for rax, else 48 81 e0+r imm32.
func (e *Encoder) AndRegImm32(dst Reg, imm int32) {
	e.W.Write8(0x48)
	if dst == RAX {
		e.W.Write8(0x25)
	} else {
		e.W.Write8(0x81)
		e.W.Write8(0xe0 + byte(dst))
	}
	e.W.Write32(imm)
}

// OrRegImm32: or r64, imm32 -> 48 0d imm32 for rax, else 48 81 c8+r imm32.
func (e *Encoder) OrRegImm32(dst Reg, imm int32) {
	e.W.Write8(0x48)
	if dst == RAX {
		e.W.Write8(0x0d)
	} else {
		e.W.Write8(0x81)
		e.W.Write8(0xc8 + byte(dst))
	}
	e.W.Write32(imm)
}

// CmpRegImm32: cmp r64, imm32 -> 48 3d imm32 for rax, else 48 81 f8+r imm32.
func (e *Encoder) CmpRegImm32(dst Reg, imm int32) {
	e.W.Write8(0x48)
	if dst == RAX {
		e.W.Write8(0x3d)
	} else {
		e.W.Write8(0x81)
		e.W.Write8(0xf8 + byte(dst))
	}
	e.W.Write32(imm)
}

// ShlRegImm8: shl r64, imm8 -> 48 c1 e0+r imm8. bits must be in [0,64).
func (e *Encoder) ShlRegImm8(dst Reg, bits byte) {
	if bits >= 64 {
		panic("x86asm: shift amount out of range")
	}
	e.W.Write8(0x48)
	e.W.Write8(0xc1)
	e.W.Write8(0xe0 + byte(dst))
	e.W.Write8(bits)
}

// SetzAL: setz al -> 0f 94 c0. Only the equal condition is defined.
func (e *Encoder) SetzAL() {
	e.W.Write8(0x0f)
	e.W.Write8(0x94)
	e.W.Write8(0xc0)
}

// Je writes `je rel32` with a placeholder displacement and returns the
// position immediately after it, for a later BackpatchDisplacementImm32.
func (e *Encoder) Je() (posAfterJump int) {
	e.W.Write8(0x0f)
	e.W.Write8(0x84)
	e.W.Write32(0x12345678)
	return e.W.Pos()
}

// Jmp writes `jmp rel32` with a placeholder displacement and returns the
// position immediately after it.
func (e *Encoder) Jmp() (posAfterJump int) {
	e.W.Write8(0xe9)
	e.W.Write32(0x1a2b3c4d)
	return e.W.Pos()
}

// Call writes `call rel32` to an already-known target absolute offset,
// computing rel32 = target - (site + 5) directly (labelcall targets are
// always known before the call is emitted, so no backpatch is needed
// here).
func (e *Encoder) Call(target int) {
	siteAfterOpcode := e.W.Pos() + 5
	disp := int32(target - siteAfterOpcode)
	e.W.Write8(0xe8)
	e.W.Write32(disp)
}

// Ret: ret -> c3
func (e *Encoder) Ret() {
	e.W.Write8(0xc3)
}

// regStackOpcodeByte picks the ModR/M + SIB byte pair for a [rsp+disp8] operand,
// matching the original's fixed encoding (0x04 or 0x44, offset by
// reg*8) rather than a general ModR/M builder, since rsp is always the
// base here.
func regStackOpcodeByte(reg Reg, offset int8) byte {
	base := byte(0x04)
	if offset != 0 {
		base = 0x44
	}
	return base + byte(reg)*8
}

// MovRegToStack: mov [rsp+disp8], r64 -> 48 89 (04+src*8 | 44+src*8) 24 disp8
func (e *Encoder) MovRegToStack(src Reg, offset int8) {
	e.W.Write8(0x48)
	e.W.Write8(0x89)
	e.W.Write8(regStackOpcodeByte(src, offset))
	e.W.Write8(0x24)
	e.W.Write8(encodeDisp8(offset))
}

// MovStackToReg: mov r64, [rsp+disp8] -> 48 8b (04+dst*8 | 44+dst*8) 24 disp8
func (e *Encoder) MovStackToReg(dst Reg, offset int8) {
	e.W.Write8(0x48)
	e.W.Write8(0x8b)
	e.W.Write8(regStackOpcodeByte(dst, offset))
	e.W.Write8(0x24)
	e.W.Write8(encodeDisp8(offset))
}

// AddRegStack: add r64, [rsp+disp8] -> 48 03 (04+dst*8 | 44+dst*8) 24 disp8
func (e *Encoder) AddRegStack(dst Reg, offset int8) {
	e.W.Write8(0x48)
	e.W.Write8(0x03)
	e.W.Write8(regStackOpcodeByte(dst, offset))
	e.W.Write8(0x24)
	e.W.Write8(encodeDisp8(offset))
}

// MovRaxToRegDisp: mov [r64+disp8], rax -> 48 89 40+r disp8
func (e *Encoder) MovRaxToRegDisp(dst Reg, disp int8) {
	e.W.Write8(0x48)
	e.W.Write8(0x89)
	e.W.Write8(0x40 + byte(dst))
	e.W.Write8(encodeDispSigned8(disp))
}

// MovRegDispToRax: mov rax, [r64+disp8] -> 48 8b 40+r disp8
func (e *Encoder) MovRegDispToRax(src Reg, disp int8) {
	e.W.Write8(0x48)
	e.W.Write8(0x8b)
	e.W.Write8(0x40 + byte(src))
	e.W.Write8(encodeDispSigned8(disp))
}

// encodeDispSigned8 is encodeDisp8 without the negative-only
// precondition: the cons/car/cdr heap-pointer offsets (-1, +7) span both
// signs because of the pair tag bias.
func encodeDispSigned8(disp int8) byte {
	if disp >= 0 {
		return byte(disp)
	}
	return byte(256 + int(disp))
}

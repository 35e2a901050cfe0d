//go:build linux && amd64

// Package codebuffer owns a region of memory that can be flipped between
// writable and executable, and a cursor (BufferWriter) for sequential and
// random-access writes into it. Grounded on the teacher's
// pkg/pvm/jit/execmem.go (mmap/mprotect lifecycle) and on the original
// Buffer/BufferWriter split in compiler.c.
package codebuffer

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// State is the Buffer's two-state machine: Writable is the initial state
// after allocation; MakeExecutable is a one-way transition to Executable.
type State int

const (
	Writable State = iota
	Executable
)

// Buffer is a fixed-size, mmap'd region of memory.
type Buffer struct {
	mem   []byte
	state State
}

// Init allocates an anonymous, read/write, private memory region of len
// bytes. A mapping failure is a precondition violation: it aborts rather
// than returning a recoverable error, per spec §7 category 3.
func Init(length int) *Buffer {
	mem, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		panic(fmt.Sprintf("codebuffer: mmap failed: %v", err))
	}
	return &Buffer{mem: mem, state: Writable}
}

// Deinit releases the underlying mapping. Safe to call once; the Buffer
// must not be used afterward.
func (b *Buffer) Deinit() {
	if b.mem == nil {
		return
	}
	if err := unix.Munmap(b.mem); err != nil {
		panic(fmt.Sprintf("codebuffer: munmap failed: %v", err))
	}
	b.mem = nil
}

// MakeExecutable drops write permission and adds execute permission,
// transitioning state to Executable. This transition is one-way for the
// buffer's lifetime.
func (b *Buffer) MakeExecutable() {
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		panic(fmt.Sprintf("codebuffer: mprotect failed: %v", err))
	}
	b.state = Executable
}

// State reports the buffer's current state.
func (b *Buffer) State() State {
	return b.state
}

// Len returns the buffer's fixed capacity in bytes.
func (b *Buffer) Len() int {
	return len(b.mem)
}

// AtPut writes a single byte at pos. Only valid in the Writable state;
// any other call is a precondition violation.
func (b *Buffer) AtPut(pos int, v byte) {
	if b.state != Writable {
		panic("codebuffer: write to non-writable buffer")
	}
	if pos < 0 || pos >= len(b.mem) {
		panic("codebuffer: write past buffer end")
	}
	b.mem[pos] = v
}

// At reads a single byte at pos, valid in either state (used to copy
// emitted bytes back out of the buffer).
func (b *Buffer) At(pos int) byte {
	return b.mem[pos]
}

// EntryPointer returns the address of the first byte of the mapping, for
// handing off to the invocation trampoline once the buffer is executable.
func (b *Buffer) EntryPointer() uintptr {
	return entryPointer(b.mem)
}

// Dump renders the bytes written so far (up to pos) as hex, mirroring
// the original's Buffer_dump used to inspect generated code.
func (b *Buffer) Dump(pos int) string {
	out := make([]byte, 0, pos*3)
	for i := 0; i < pos; i++ {
		out = append(out, fmt.Sprintf("%02x ", b.mem[i])...)
	}
	return string(out)
}

// BufferWriter is a monotonically non-decreasing cursor into a Buffer
// that additionally supports non-sequential backpatch writes.
type BufferWriter struct {
	buf *Buffer
	pos int
}

// NewBufferWriter creates a writer positioned at the start of buf.
func NewBufferWriter(buf *Buffer) *BufferWriter {
	return &BufferWriter{buf: buf}
}

// Pos returns the current cursor position.
func (w *BufferWriter) Pos() int {
	return w.pos
}

// Buffer returns the underlying Buffer.
func (w *BufferWriter) Buffer() *Buffer {
	return w.buf
}

// Write8 appends one byte and advances the cursor.
func (w *BufferWriter) Write8(b byte) {
	w.buf.AtPut(w.pos, b)
	w.pos++
}

// WriteArr appends a slice of bytes in order.
func (w *BufferWriter) WriteArr(bs []byte) {
	for _, b := range bs {
		w.Write8(b)
	}
}

// Write32 appends a little-endian 32-bit value.
func (w *BufferWriter) Write32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	w.WriteArr(tmp[:])
}

// BackpatchDisplacementImm32 overwrites the 4 bytes immediately before
// posAfterJump with (w.pos - posAfterJump) as a signed little-endian
// int32, turning a placeholder jump/call into an actual relative branch
// to the current emission point.
func (w *BufferWriter) BackpatchDisplacementImm32(posAfterJump int) {
	relative := int32(w.pos - posAfterJump)
	first := posAfterJump - 4
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(relative))
	for i, b := range tmp {
		w.buf.AtPut(first+i, b)
	}
}

//go:build linux && amd64

// Package trampoline crosses from Go into JIT-compiled machine code and
// back. Grounded on the teacher's pkg/pvm/jit/asm package (a pure Go
// assembly call stub kept separate from cgo to avoid mixing runtimes);
// here there is only one register to thread through, so the stub is a
// few-line ABI0 routine rather than a full interpreter re-entry point.
// The teacher's call_amd64.go additionally installs a SIGSEGV handler so
// a faulting JIT call can be recovered from; that machinery is dropped
// here; see DESIGN.md.
package trampoline

// Call invokes the machine code at entry with the heap base address in
// rdi, per the fixed calling convention, and returns the tagged result
// word from rax. Implemented in trampoline_amd64.s.
func Call(entry uintptr, heapBase uint64) uint64

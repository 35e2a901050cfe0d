//go:build linux && amd64

package codebuffer

import "unsafe"

// entryPointer returns the address of the first byte of an mmap'd slice.
func entryPointer(mem []byte) uintptr {
	if len(mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&mem[0]))
}

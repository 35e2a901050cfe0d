// Command ghuloum compiles and runs a single expression, following the
// teacher's cmd/jamzilla flag-driven, log.Fatal-on-misconfiguration CLI
// idiom (cmd/jamzilla/main.go), scaled down to this compiler's one job.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	goruntime "runtime"
	"unsafe"

	"github.com/ascrivener/ghuloum/pkg/cache"
	"github.com/ascrivener/ghuloum/pkg/runtime"
	"github.com/ascrivener/ghuloum/pkg/value"
)

func main() {
	sourcePath := flag.String("source", "", "path to a source file (default: read stdin)")
	codeSize := flag.Int("code-size", runtime.DefaultCodeSize, "executable buffer size in bytes")
	heapSize := flag.Int("heap-size", 1<<20, "scratch heap size in bytes, for cons/car/cdr")
	dump := flag.Bool("dump", false, "print the emitted machine code as hex instead of running it")
	cachePath := flag.String("cache-path", "", "optional path to a compiled-code cache directory")
	flag.Parse()

	source, err := readSource(*sourcePath)
	if err != nil {
		log.Fatalf("ghuloum: %v", err)
	}

	prog, err := compile(source, *codeSize, *cachePath)
	if err != nil {
		log.Fatalf("ghuloum: %v", err)
	}
	defer prog.Free()

	if *dump {
		fmt.Println(prog.Dump())
		return
	}

	heap := make([]byte, *heapSize)
	heapBase := uintptr(unsafe.Pointer(&heap[0]))
	result := prog.Call(heapBase)
	goruntime.KeepAlive(heap)

	fmt.Println(value.Format(result, peekFunc(heapBase, len(heap))))
}

func readSource(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func compile(source string, codeSize int, cachePath string) (*runtime.CompiledProgram, error) {
	if cachePath == "" {
		return runtime.Compile(source, codeSize)
	}
	c, err := cache.Open(cachePath)
	if err != nil {
		return nil, fmt.Errorf("opening cache at %s: %w", cachePath, err)
	}
	defer c.Close()
	return runtime.CompileCached(c, source, codeSize)
}

// peekFunc reads an 8-byte little-endian word at the given absolute heap
// address, for value.Format's pair traversal. addr is bounds-checked
// against the allocated heap region: an out-of-bounds read here means
// the compiled program produced a pointer outside its own heap, which is
// a bug in the compiler rather than something to recover from.
func peekFunc(base uintptr, size int) func(addr uint64) uint64 {
	return func(addr uint64) uint64 {
		offset := uintptr(addr) - base
		if offset+8 > uintptr(size) {
			panic("ghuloum: heap pointer out of range")
		}
		return *(*uint64)(unsafe.Pointer(base + offset))
	}
}

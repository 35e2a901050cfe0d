//go:build linux && amd64

package compiler

import (
	"bytes"
	"testing"

	"github.com/ascrivener/ghuloum/pkg/cerrors"
	"github.com/ascrivener/ghuloum/pkg/codebuffer"
	"github.com/ascrivener/ghuloum/pkg/reader"
	"github.com/ascrivener/ghuloum/pkg/x86asm"
)

// compileExprBytes compiles node as a bare expression (no entry prologue,
// no heap setup), appends a trailing ret, and returns the emitted bytes —
// matching the shape of spec.md §8's scenarios 1-4, which give no `mov
// rsi, rdi` prologue because none of them touch the heap.
func compileExprBytes(t *testing.T, source string) []byte {
	t.Helper()
	node, err := reader.Read(source)
	if err != nil {
		t.Fatalf("reader.Read(%q): %v", source, err)
	}
	buf := codebuffer.Init(64)
	defer buf.Deinit()
	w := codebuffer.NewBufferWriter(buf)
	enc := x86asm.NewEncoder(w)
	ctx := Context{Enc: enc}
	if err := CompileExpr(ctx, node, -8); err != nil {
		t.Fatalf("CompileExpr: %v", err)
	}
	enc.Ret()
	out := make([]byte, w.Pos())
	for i := range out {
		out[i] = buf.At(i)
	}
	return out
}

func mustHex(t *testing.T, hex ...byte) []byte { t.Helper(); return hex }

func TestCompileExprScenario1Fixnum(t *testing.T) {
	got := compileExprBytes(t, "123")
	want := []byte{0xb8, 0xec, 0x01, 0x00, 0x00, 0xc3}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestCompileExprScenario2Add1(t *testing.T) {
	got := compileExprBytes(t, "(add1 5)")
	want := []byte{0xb8, 0x14, 0x00, 0x00, 0x00, 0x05, 0x04, 0x00, 0x00, 0x00, 0xc3}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestCompileExprScenario3Plus(t *testing.T) {
	got := compileExprBytes(t, "(+ 1 2)")
	want := []byte{
		0xb8, 0x08, 0x00, 0x00, 0x00,
		0x48, 0x89, 0x44, 0x24, 0xf8,
		0xb8, 0x04, 0x00, 0x00, 0x00,
		0x48, 0x03, 0x44, 0x24, 0xf8,
		0xc3,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestCompileExprScenario4IntegerToChar(t *testing.T) {
	got := compileExprBytes(t, "(integer->char 65)")
	want := []byte{
		0xb8, 0x04, 0x01, 0x00, 0x00,
		0x48, 0xc1, 0xe0, 0x06,
		0x48, 0x0d, 0x0f, 0x00, 0x00, 0x00,
		0xc3,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestCompileProgramScenario6Labels(t *testing.T) {
	node, err := reader.Read("(labels ((const (code () 5))) (labelcall const))")
	if err != nil {
		t.Fatal(err)
	}
	buf := codebuffer.Init(64)
	defer buf.Deinit()
	w := codebuffer.NewBufferWriter(buf)
	enc := x86asm.NewEncoder(w)
	ctx := Context{Enc: enc}
	if err := CompileProgram(ctx, node); err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	got := make([]byte, w.Pos())
	for i := range got {
		got[i] = buf.At(i)
	}
	want := mustHex(t,
		0xe9, 0x06, 0x00, 0x00, 0x00,
		0xb8, 0x14, 0x00, 0x00, 0x00,
		0xc3,
		0x48, 0x89, 0xfe,
		0xe8, 0xf2, 0xff, 0xff, 0xff,
		0xc3,
	)
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestCompileExprUnboundVariable(t *testing.T) {
	node, err := reader.Read("x")
	if err != nil {
		t.Fatal(err)
	}
	buf := codebuffer.Init(64)
	defer buf.Deinit()
	enc := x86asm.NewEncoder(codebuffer.NewBufferWriter(buf))
	ctx := Context{Enc: enc}
	err = CompileExpr(ctx, node, -8)
	if err == nil || !cerrors.IsCompileError(err) {
		t.Fatalf("expected a CompileError for an unbound variable, got %v", err)
	}
}

func TestCompileCallUnboundLabelIsCompileError(t *testing.T) {
	node, err := reader.Read("(labelcall missing)")
	if err != nil {
		t.Fatal(err)
	}
	buf := codebuffer.Init(64)
	defer buf.Deinit()
	enc := x86asm.NewEncoder(codebuffer.NewBufferWriter(buf))
	ctx := Context{Enc: enc}
	err = CompileExpr(ctx, node, -8)
	if err == nil || !cerrors.IsCompileError(err) {
		t.Fatalf("expected a CompileError for an unbound label, got %v", err)
	}
}

func TestLetBindingOrder(t *testing.T) {
	// (let ((x 1) (y (add1 x))) (+ x y)) must compile without error, which
	// needs x visible while compiling y's initializer and the body.
	node, err := reader.Read("(let ((x 1) (y (add1 x))) (+ x y))")
	if err != nil {
		t.Fatal(err)
	}
	buf := codebuffer.Init(128)
	defer buf.Deinit()
	enc := x86asm.NewEncoder(codebuffer.NewBufferWriter(buf))
	ctx := Context{Enc: enc}
	if err := CompileExpr(ctx, node, -8); err != nil {
		t.Fatalf("CompileExpr(let): %v", err)
	}
}

func TestIfWithFixnumTestCompiles(t *testing.T) {
	node, err := reader.Read("(if 0 1 2)")
	if err != nil {
		t.Fatal(err)
	}
	buf := codebuffer.Init(64)
	defer buf.Deinit()
	enc := x86asm.NewEncoder(codebuffer.NewBufferWriter(buf))
	ctx := Context{Enc: enc}
	if err := CompileExpr(ctx, node, -8); err != nil {
		t.Fatalf("CompileExpr(if): %v", err)
	}
}

func TestDeterministicEmission(t *testing.T) {
	a := compileExprBytes(t, "(+ (add1 1) (sub1 2))")
	b := compileExprBytes(t, "(+ (add1 1) (sub1 2))")
	if !bytes.Equal(a, b) {
		t.Error("compiling the same tree twice must yield byte-identical output")
	}
}

func TestUnknownCallPanics(t *testing.T) {
	node, err := reader.Read("(frobnicate 1)")
	if err != nil {
		t.Fatal(err)
	}
	buf := codebuffer.Init(64)
	defer buf.Deinit()
	enc := x86asm.NewEncoder(codebuffer.NewBufferWriter(buf))
	ctx := Context{Enc: enc}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for an unknown primitive call")
		}
	}()
	CompileExpr(ctx, node, -8)
}

// Package compiler is the expression-directed code generator: it walks
// an ast.Node tree in post-order, emitting x86-64 machine code via
// pkg/x86asm into a pkg/codebuffer.BufferWriter. This is the core
// translated directly from compiler.c's AST_compile_* functions, in the
// teacher's (jam/pkg/pvm/jit) style of splitting code generation by
// concern across several files sharing one Compiler/Context type.
package compiler

import (
	"github.com/ascrivener/ghuloum/pkg/ast"
	"github.com/ascrivener/ghuloum/pkg/cerrors"
	"github.com/ascrivener/ghuloum/pkg/env"
	"github.com/ascrivener/ghuloum/pkg/value"
	"github.com/ascrivener/ghuloum/pkg/x86asm"
)

// wordSize is the size in bytes of one stack slot / heap word.
const wordSize = 8

// Context threads the shared encoder and the two scoped environments
// (locals, labels) through the recursive descent. with_locals/with_labels
// in the original produce a shallow copy with one field replaced;
// because Context is a plain Go value and Enc is a pointer, mutations
// through a derived Context are visible through the parent exactly as
// specified.
type Context struct {
	Enc    *x86asm.Encoder
	Labels *env.Env
	Locals *env.Env
}

// WithLocals returns a copy of ctx with Locals replaced.
func (ctx Context) WithLocals(locals *env.Env) Context {
	ctx.Locals = locals
	return ctx
}

// WithLabels returns a copy of ctx with Labels replaced.
func (ctx Context) WithLabels(labels *env.Env) Context {
	ctx.Labels = labels
	return ctx
}

// operand1/2/3 destructure a primcall's argument list. A malformed tree
// is a precondition violation (spec §7 category 1): an argument list that
// is too short ends in a nil-pointer dereference panic rather than an
// error. Extra arguments are ignored.
func operand1(args *ast.Node) *ast.Node { return args.Car }
func operand2(args *ast.Node) *ast.Node { return args.Cdr.Car }
func operand3(args *ast.Node) *ast.Node { return args.Cdr.Cdr.Car }

// CompileExpr compiles node so that its value is left in rax, at the
// given (always negative) stack index. It is a statement: callers may
// not assume any register or scratch stack slot survives across it
// except rax.
func CompileExpr(ctx Context, node *ast.Node, stackIndex int32) error {
	switch node.Kind {
	case ast.KindFixnum:
		ctx.Enc.MovRegImm32(x86asm.RAX, int32(value.EncodeFixnum(int64(node.Fixnum))))
		return nil
	case ast.KindCons:
		return compileCall(ctx, node.Car, node.Cdr, stackIndex)
	case ast.KindAtom:
		idx, ok := env.Lookup(ctx.Locals, node.Atom)
		if !ok {
			return cerrors.Unbound("variable", node.Atom)
		}
		ctx.Enc.MovStackToReg(x86asm.RAX, int8(idx))
		return nil
	default:
		panic("compiler: unhandled expression kind")
	}
}

// compileCall dispatches a cons `(head . args)` as a call: either a
// known primitive, or labelcall/let/if/code handled by their own
// functions below. Any other head atom is a fatal "unknown call" —
// a precondition violation, not a recoverable error.
func compileCall(ctx Context, head *ast.Node, args *ast.Node, stackIndex int32) error {
	if !head.IsAtom() {
		panic("compiler: call head must be an atom (no first-class functions)")
	}
	switch head.Atom {
	case "add1":
		if err := CompileExpr(ctx, operand1(args), stackIndex); err != nil {
			return err
		}
		ctx.Enc.AddRegImm32(x86asm.RAX, int32(value.EncodeFixnum(1)))
		return nil
	case "sub1":
		if err := CompileExpr(ctx, operand1(args), stackIndex); err != nil {
			return err
		}
		ctx.Enc.SubRegImm32(x86asm.RAX, int32(value.EncodeFixnum(1)))
		return nil
	case "integer->char":
		return compileIntegerToChar(ctx, operand1(args), stackIndex)
	case "zero?":
		return compileZeroP(ctx, operand1(args), stackIndex)
	case "+":
		return compilePlus(ctx, operand1(args), operand2(args), stackIndex)
	case "let":
		return compileLet(ctx, operand1(args), operand2(args), stackIndex)
	case "if":
		return compileIf(ctx, operand1(args), operand2(args), operand3(args), stackIndex)
	case "cons":
		return compileCons(ctx, operand1(args), operand2(args), stackIndex)
	case "car":
		return compileCar(ctx, operand1(args), stackIndex)
	case "cdr":
		return compileCdr(ctx, operand1(args), stackIndex)
	case "code":
		return compileCode(ctx, operand1(args), operand2(args))
	case "labelcall":
		label := operand1(args)
		if !label.IsAtom() {
			panic("compiler: labelcall target must be an atom")
		}
		codePos, ok := env.Lookup(ctx.Labels, label.Atom)
		if !ok {
			return cerrors.Unbound("label", label.Atom)
		}
		return compileLabelcall(ctx, codePos, args.Cdr, stackIndex)
	default:
		panic("compiler: unknown call `" + head.Atom + "'")
	}
}

// compileLet processes bindings sequentially: each sees those to its
// left. With no bindings remaining, it compiles body; each binding's
// scope ends when the enclosing let returns (Context is a value, so the
// caller's Locals is untouched).
func compileLet(ctx Context, bindings, body *ast.Node, stackIndex int32) error {
	if bindings.IsNil() {
		return CompileExpr(ctx, body, stackIndex)
	}
	first := bindings.Car
	name := first.Car
	if !name.IsAtom() {
		panic("compiler: let binding name must be an atom")
	}
	expr := first.Cdr.Car
	if err := CompileExpr(ctx, expr, stackIndex); err != nil {
		return err
	}
	ctx.Enc.MovRegToStack(x86asm.RAX, int8(stackIndex))
	newLocals := env.Push(name.Atom, stackIndex, ctx.Locals)
	newCtx := ctx.WithLocals(newLocals)
	return compileLet(newCtx, bindings.Cdr, body, stackIndex-wordSize)
}

// compileCode compiles a function body in the called frame. The call
// site (compileLabelcall) pushes arguments at [rsp-8], [rsp-16], ...;
// the callee binds them to those same offsets starting at si=-8.
func compileCode(ctx Context, formals, body *ast.Node) error {
	return compileCodeRec(ctx, formals, body, -wordSize)
}

func compileCodeRec(ctx Context, formals, body *ast.Node, stackIndex int32) error {
	if formals.IsNil() {
		if err := CompileExpr(ctx, body, stackIndex); err != nil {
			return err
		}
		ctx.Enc.Ret()
		return nil
	}
	name := formals.Car
	if !name.IsAtom() {
		panic("compiler: formal parameter must be an atom")
	}
	newLocals := env.Push(name.Atom, stackIndex, ctx.Locals)
	newCtx := ctx.WithLocals(newLocals)
	return compileCodeRec(newCtx, formals.Cdr, body, stackIndex-wordSize)
}

// compileLabelcall spills each argument in order, deepening the stack
// index by one word each time, then calls the already-known target
// offset. Arguments land exactly where `code` expects them relative to
// the new rsp after the call pushes the return address.
func compileLabelcall(ctx Context, codePos int32, args *ast.Node, stackIndex int32) error {
	if args.IsNil() {
		ctx.Enc.Call(int(codePos))
		return nil
	}
	arg := args.Car
	if err := CompileExpr(ctx, arg, stackIndex); err != nil {
		return err
	}
	ctx.Enc.MovRegToStack(x86asm.RAX, int8(stackIndex))
	return compileLabelcall(ctx, codePos, args.Cdr, stackIndex-wordSize)
}

// CompileEntry wraps a top-level expression: it copies the incoming
// heap-base argument (rdi) into rsi, the heap bump-allocator register,
// then compiles the expression and returns.
func CompileEntry(ctx Context, node *ast.Node) error {
	ctx.Enc.MovRegReg(x86asm.RSI, x86asm.RDI)
	if err := CompileExpr(ctx, node, -wordSize); err != nil {
		return err
	}
	ctx.Enc.Ret()
	return nil
}

// CompileProgram compiles a full top-level tree: if it is a
// `labels`-tagged form, it emits a placeholder jump over the label
// bodies, compiles each label in turn (binding it before compiling its
// body, so later labels may reference earlier ones — forward references
// are not supported, per spec §9), backpatches the jump, and compiles
// the entry prologue and body; otherwise node is compiled directly as a
// non-labels entry.
func CompileProgram(ctx Context, node *ast.Node) error {
	if node.Kind == ast.KindCons && !node.IsNil() && node.Car.IsAtom() && node.Car.Atom == "labels" {
		args := node.Cdr
		bindings := operand1(args)
		body := operand2(args)
		posAfterJump := ctx.Enc.Jmp()
		if err := compileLabelsThenEntry(ctx, bindings, body, posAfterJump); err != nil {
			return err
		}
		return nil
	}
	return CompileEntry(ctx, node)
}

func compileLabelsThenEntry(ctx Context, bindings, body *ast.Node, posAfterJump int) error {
	if bindings.IsNil() {
		ctx.Enc.W.BackpatchDisplacementImm32(posAfterJump)
		return CompileEntry(ctx, body)
	}
	binding := bindings.Car
	name := binding.Car
	if !name.IsAtom() {
		panic("compiler: label name must be an atom")
	}
	exp := binding.Cdr.Car
	newLabels := env.Push(name.Atom, int32(ctx.Enc.W.Pos()), ctx.Labels)
	newCtx := ctx.WithLabels(newLabels)
	if err := CompileExpr(newCtx, exp, -wordSize); err != nil {
		return err
	}
	return compileLabelsThenEntry(newCtx, bindings.Cdr, body, posAfterJump)
}

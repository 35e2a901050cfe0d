package compiler

import (
	"github.com/ascrivener/ghuloum/pkg/ast"
	"github.com/ascrivener/ghuloum/pkg/x86asm"
)

// compilePlus evaluates operand 2 first and spills it to the current
// stack slot, then evaluates operand 1 under a deepened stack index, and
// adds the spilled value back in. This ordering (second operand first)
// matches compiler.c's AST_compile_call `+` case exactly.
func compilePlus(ctx Context, a, b *ast.Node, stackIndex int32) error {
	if err := CompileExpr(ctx, b, stackIndex); err != nil {
		return err
	}
	ctx.Enc.MovRegToStack(x86asm.RAX, int8(stackIndex))
	if err := CompileExpr(ctx, a, stackIndex-wordSize); err != nil {
		return err
	}
	ctx.Enc.AddRegStack(x86asm.RAX, int8(stackIndex))
	return nil
}

package compiler

import (
	"github.com/ascrivener/ghuloum/pkg/ast"
	"github.com/ascrivener/ghuloum/pkg/value"
	"github.com/ascrivener/ghuloum/pkg/x86asm"
)

// compileIf compiles test, then branches: the test is "false iff the
// result equals the boolean `false` tag; any other value is truthy"
// (spec §4.5), including the fixnum 0. Two placeholder jumps (one
// conditional, one unconditional) are backpatched once both arms have
// been emitted.
func compileIf(ctx Context, test, then, els *ast.Node, stackIndex int32) error {
	if err := CompileExpr(ctx, test, stackIndex); err != nil {
		return err
	}
	ctx.Enc.CmpRegImm32(x86asm.RAX, int32(value.False))
	elseSite := ctx.Enc.Je()
	if err := CompileExpr(ctx, then, stackIndex); err != nil {
		return err
	}
	endSite := ctx.Enc.Jmp()
	ctx.Enc.W.BackpatchDisplacementImm32(elseSite)
	if err := CompileExpr(ctx, els, stackIndex); err != nil {
		return err
	}
	ctx.Enc.W.BackpatchDisplacementImm32(endSite)
	return nil
}

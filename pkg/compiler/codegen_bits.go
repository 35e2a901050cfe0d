package compiler

import (
	"github.com/ascrivener/ghuloum/pkg/ast"
	"github.com/ascrivener/ghuloum/pkg/value"
	"github.com/ascrivener/ghuloum/pkg/x86asm"
)

// charShiftDelta is the number of extra bits `integer->char` must shift
// by beyond what the fixnum encoding already applied: CharTag uses an
// 8-bit shift, fixnums a 2-bit shift, so the difference is 6.
const charShiftDelta = 6

// compileIntegerToChar changes an already-fixnum-tagged value into a
// character-tagged one in place: shl rax, 6; or rax, CharTag.
func compileIntegerToChar(ctx Context, x *ast.Node, stackIndex int32) error {
	if err := CompileExpr(ctx, x, stackIndex); err != nil {
		return err
	}
	ctx.Enc.ShlRegImm8(x86asm.RAX, charShiftDelta)
	ctx.Enc.OrRegImm32(x86asm.RAX, value.CharTag)
	return nil
}

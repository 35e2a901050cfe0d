package compiler

import (
	"github.com/ascrivener/ghuloum/pkg/ast"
	"github.com/ascrivener/ghuloum/pkg/value"
	"github.com/ascrivener/ghuloum/pkg/x86asm"
)

// compileZeroP tests a fixnum for equality with the untagged zero word
// (fixnum zero's tagged encoding is also 0, so no decode is needed),
// producing a tagged boolean result: cmp rax,0; mov eax,0; setz al;
// shl rax,7; or rax, BoolTag.
func compileZeroP(ctx Context, x *ast.Node, stackIndex int32) error {
	if err := CompileExpr(ctx, x, stackIndex); err != nil {
		return err
	}
	ctx.Enc.CmpRegImm32(x86asm.RAX, 0)
	ctx.Enc.MovRegImm32(x86asm.RAX, 0)
	ctx.Enc.SetzAL()
	ctx.Enc.ShlRegImm8(x86asm.RAX, 7)
	ctx.Enc.OrRegImm32(x86asm.RAX, value.BoolTag)
	return nil
}

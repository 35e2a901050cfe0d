package compiler

import (
	"github.com/ascrivener/ghuloum/pkg/ast"
	"github.com/ascrivener/ghuloum/pkg/x86asm"
)

// pairCarBias/pairCdrBias are the displacement corrections needed
// because a pair's tagged pointer is the heap address plus 1: the car
// therefore lives at [ptr-1], the cdr at [ptr+7].
const (
	pairCarBias int8 = -1
	pairCdrBias int8 = wordSize - 1
)

// compileCons maintains the invariant that rsi holds the next free
// (untagged) heap address. car is compiled under a deepened stack index
// so the cdr evaluator cannot clobber it; the car word is written first,
// then cdr, then the tagged pointer is materialized in rax and the heap
// pointer bumped by two words.
func compileCons(ctx Context, car, cdr *ast.Node, stackIndex int32) error {
	if err := CompileExpr(ctx, car, stackIndex-wordSize); err != nil {
		return err
	}
	ctx.Enc.MovRaxToRegDisp(x86asm.RSI, 0)
	if err := CompileExpr(ctx, cdr, stackIndex); err != nil {
		return err
	}
	ctx.Enc.MovRaxToRegDisp(x86asm.RSI, wordSize)
	ctx.Enc.MovRegReg(x86asm.RAX, x86asm.RSI)
	ctx.Enc.OrRegImm32(x86asm.RAX, 1)
	ctx.Enc.AddRegImm32(x86asm.RSI, 2*wordSize)
	return nil
}

// compileCar loads the pair's car field, accounting for the pointer tag
// bias.
func compileCar(ctx Context, p *ast.Node, stackIndex int32) error {
	if err := CompileExpr(ctx, p, stackIndex); err != nil {
		return err
	}
	ctx.Enc.MovRegDispToRax(x86asm.RAX, pairCarBias)
	return nil
}

// compileCdr loads the pair's cdr field, accounting for the pointer tag
// bias.
func compileCdr(ctx Context, p *ast.Node, stackIndex int32) error {
	if err := CompileExpr(ctx, p, stackIndex); err != nil {
		return err
	}
	ctx.Enc.MovRegDispToRax(x86asm.RAX, pairCdrBias)
	return nil
}

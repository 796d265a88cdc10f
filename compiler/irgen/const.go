package irgen

import (
	"tlog.app/go/errors"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ctype"
	"github.com/slowlang/scc/src/compiler/ir"
)

// evalConst runs the expression lowerer in constant context and
// checks that nothing was emitted, so the expression folded entirely.
// The result is an immediate integer or a global address.
func (g *gen) evalConst(e ast.Expr) (Term, error) {
	saveFn, saveBlk := g.b.Fn, g.b.Blk
	g.b.Fn, g.b.Blk = g.scratch, g.scratchBlk

	n := len(g.scratchBlk.Instrs)

	t, err := g.expr(e, constCtx)

	emitted := len(g.scratchBlk.Instrs) != n
	g.scratchBlk.Instrs = g.scratchBlk.Instrs[:n]
	g.b.Fn, g.b.Blk = saveFn, saveBlk

	if err != nil {
		return Term{}, err
	}
	if emitted {
		return Term{}, errors.New("not a constant expression")
	}

	switch t.Val.(type) {
	case ir.Imm, *ir.Global:
		return t, nil
	}

	return Term{}, errors.New("not a constant expression")
}

func (g *gen) evalConstInt(e ast.Expr) (int64, error) {
	t, err := g.evalConst(e)
	if err != nil {
		return 0, err
	}

	imm, ok := t.Val.(ir.Imm)
	if !ok || t.Type.Kind != ctype.Integer {
		return 0, errors.New("integer constant expression required")
	}

	return imm.X, nil
}

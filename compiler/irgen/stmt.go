package irgen

import (
	"tlog.app/go/errors"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ctype"
	"github.com/slowlang/scc/src/compiler/ir"
)

// stmt lowers one statement into the current block. Statements after a
// terminator open a fresh unreachable block so the one-terminator
// invariant holds; case and default labels manage their own blocks.
func (g *gen) stmt(s ast.Stmt) error {
	switch s.(type) {
	case *ast.Case, *ast.Default, *ast.Label:
	default:
		if g.b.Blk.Terminated() {
			g.b.AddBlock("dead")
		}
	}

	switch s := s.(type) {
	case *ast.Compound:
		g.pushScope()
		defer g.popScope()

		for i, it := range s.Items {
			err := g.stmt(it)
			if err != nil {
				return errors.Wrap(err, "statement %d", i)
			}
		}

		return nil
	case *ast.ExprStmt:
		if s.X == nil {
			return nil
		}

		_, err := g.expr(s.X, rvalue)

		return err
	case *ast.Decl:
		return g.localDecl(s)
	case *ast.If:
		return g.ifStmt(s)
	case *ast.While:
		return g.whileStmt(s)
	case *ast.DoWhile:
		return g.doWhileStmt(s)
	case *ast.For:
		return g.forStmt(s)
	case *ast.Switch:
		return g.switchStmt(s)
	case *ast.Case:
		return g.caseStmt(s)
	case *ast.Default:
		return g.defaultStmt(s)
	case *ast.Label:
		return g.labelStmt(s)
	case *ast.Goto:
		return g.gotoStmt(s)
	case *ast.Return:
		return g.returnStmt(s)
	case *ast.Break:
		if g.breakTo == nil {
			return errors.New("break outside of a loop or switch")
		}

		g.b.Branch(g.breakTo)

		return nil
	case *ast.Continue:
		if g.continueTo == nil {
			return errors.New("continue outside of a loop")
		}

		g.b.Branch(g.continueTo)

		return nil
	}

	bug("statement %T", s)
	return nil
}

func (g *gen) cond(e ast.Expr) (ir.Value, error) {
	t, err := g.expr(e, rvalue)
	if err != nil {
		return nil, err
	}

	return g.boolVal(t)
}

func (g *gen) ifStmt(s *ast.If) error {
	v, err := g.cond(s.Cond)
	if err != nil {
		return errors.Wrap(err, "condition")
	}

	then := g.b.NewBlock("if.then")

	var els *ir.Block
	if s.Else != nil {
		els = g.b.NewBlock("if.else")
	}

	after := g.b.NewBlock("if.after")

	target := after
	if els != nil {
		target = els
	}

	g.b.Cond(v, then, target)

	g.b.EnterBlock(then)

	err = g.stmt(s.Then)
	if err != nil {
		return err
	}

	if !g.b.Blk.Terminated() {
		g.b.Branch(after)
	}

	if els != nil {
		g.b.EnterBlock(els)

		err = g.stmt(s.Else)
		if err != nil {
			return err
		}

		if !g.b.Blk.Terminated() {
			g.b.Branch(after)
		}
	}

	g.b.EnterBlock(after)

	return nil
}

func (g *gen) whileStmt(s *ast.While) error {
	ph := g.b.NewBlock("while.ph")
	body := g.b.NewBlock("while.body")
	after := g.b.NewBlock("while.after")

	g.b.Branch(ph)
	g.b.EnterBlock(ph)

	v, err := g.cond(s.Cond)
	if err != nil {
		return errors.Wrap(err, "condition")
	}

	g.b.Cond(v, body, after)

	g.b.EnterBlock(body)

	err = g.loopBody(s.Body, after, ph)
	if err != nil {
		return err
	}

	if !g.b.Blk.Terminated() {
		g.b.Branch(ph)
	}

	g.b.EnterBlock(after)

	return nil
}

func (g *gen) doWhileStmt(s *ast.DoWhile) error {
	body := g.b.NewBlock("do_while.body")
	ph := g.b.NewBlock("do_while.ph")
	after := g.b.NewBlock("do_while.after")

	g.b.Branch(body)
	g.b.EnterBlock(body)

	err := g.loopBody(s.Body, after, ph)
	if err != nil {
		return err
	}

	if !g.b.Blk.Terminated() {
		g.b.Branch(ph)
	}

	g.b.EnterBlock(ph)

	v, err := g.cond(s.Cond)
	if err != nil {
		return errors.Wrap(err, "condition")
	}

	g.b.Cond(v, body, after)

	g.b.EnterBlock(after)

	return nil
}

func (g *gen) forStmt(s *ast.For) error {
	g.pushScope()
	defer g.popScope()

	switch {
	case s.InitDecl != nil:
		err := g.localDecl(s.InitDecl)
		if err != nil {
			return errors.Wrap(err, "init")
		}
	case s.InitExpr != nil:
		_, err := g.expr(s.InitExpr, rvalue)
		if err != nil {
			return errors.Wrap(err, "init")
		}
	}

	ph := g.b.NewBlock("for.ph")
	body := g.b.NewBlock("for.body")
	update := g.b.NewBlock("for.update")
	after := g.b.NewBlock("for.after")

	g.b.Branch(ph)
	g.b.EnterBlock(ph)

	v := ir.Value(ir.Imm{Typ: ir.I32, X: 1})

	if s.Cond != nil {
		var err error

		v, err = g.cond(s.Cond)
		if err != nil {
			return errors.Wrap(err, "condition")
		}
	}

	g.b.Cond(v, body, after)

	g.b.EnterBlock(body)

	err := g.loopBody(s.Body, after, update)
	if err != nil {
		return err
	}

	if !g.b.Blk.Terminated() {
		g.b.Branch(update)
	}

	g.b.EnterBlock(update)

	if s.Post != nil {
		_, err = g.expr(s.Post, rvalue)
		if err != nil {
			return errors.Wrap(err, "update")
		}
	}

	g.b.Branch(ph)

	g.b.EnterBlock(after)

	return nil
}

func (g *gen) loopBody(s ast.Stmt, brk, cont *ir.Block) error {
	saveBrk, saveCont := g.breakTo, g.continueTo
	g.breakTo, g.continueTo = brk, cont

	err := g.stmt(s)

	g.breakTo, g.continueTo = saveBrk, saveCont

	return err
}

func (g *gen) switchStmt(s *ast.Switch) error {
	t, err := g.expr(s.X, rvalue)
	if err != nil {
		return err
	}

	t = g.decay(t)

	if t.Type.Kind != ctype.Integer {
		return errors.New("integer switch expression required, got %v", t.Type)
	}

	// integer promotion: types narrower than int compare as int
	if t.Type.Rank < ctype.Int {
		t, err = g.convert(t, g.tenv.IntType())
		if err != nil {
			return err
		}
	}

	entry := g.b.Blk

	after := g.b.NewBlock("switch.after")

	saveCases, saveIn, saveBrk := g.cases, g.inSwitch, g.breakTo
	g.cases, g.inSwitch, g.breakTo = nil, true, after

	g.b.AddBlock("switch.body")

	err = g.stmt(s.Body)

	cases := g.cases
	g.cases, g.inSwitch, g.breakTo = saveCases, saveIn, saveBrk

	if err != nil {
		return err
	}

	if !g.b.Blk.Terminated() {
		g.b.Branch(after)
	}

	def := after
	ndef := 0

	var labels []switchCase

	for _, c := range cases {
		if c.Default {
			def = c.Block
			ndef++

			continue
		}

		for _, p := range labels {
			if p.Value == c.Value {
				return errors.New("duplicate case value: %d", c.Value)
			}
		}

		labels = append(labels, c)
	}

	if ndef > 1 {
		return errors.New("multiple default labels")
	}

	// The entry block was left open while the body was lowered. Build
	// the compare chain and terminate it now.
	g.b.Blk = entry

	for i, c := range labels {
		next := def
		if i+1 < len(labels) {
			next = g.b.NewBlock("switch.cmp")
		}

		cv := ir.Imm{Typ: t.Val.Type(), X: immTrunc(c.Value, t.Type)}
		v := g.b.CmpVal(ir.CmpEq, t.Val, cv)
		g.b.Cond(v, c.Block, next)

		if next != def {
			g.b.EnterBlock(next)
		}
	}

	if len(labels) == 0 {
		g.b.Branch(def)
	}

	g.b.EnterBlock(after)

	return nil
}

func (g *gen) caseStmt(s *ast.Case) error {
	if !g.inSwitch {
		return errors.New("case label outside of switch")
	}

	x, err := g.evalConstInt(s.X)
	if err != nil {
		return errors.Wrap(err, "case value")
	}

	blk := g.b.NewBlock("switch.case")

	if !g.b.Blk.Terminated() {
		g.b.Branch(blk)
	}

	g.b.EnterBlock(blk)

	g.cases = append(g.cases, switchCase{Value: x, Block: blk})

	return g.stmt(s.Body)
}

func (g *gen) defaultStmt(s *ast.Default) error {
	if !g.inSwitch {
		return errors.New("default label outside of switch")
	}

	blk := g.b.NewBlock("switch.default")

	if !g.b.Blk.Terminated() {
		g.b.Branch(blk)
	}

	g.b.EnterBlock(blk)

	g.cases = append(g.cases, switchCase{Block: blk, Default: true})

	return g.stmt(s.Body)
}

// labelStmt lowers a labeled statement. The label "default" is a case
// label (the grammar cannot tell them apart).
func (g *gen) labelStmt(s *ast.Label) error {
	if s.Name == "default" {
		return g.defaultStmt(&ast.Default{Body: s.Body})
	}

	blk := g.b.NewBlock(s.Name)

	if !g.b.Blk.Terminated() {
		g.b.Branch(blk)
	}

	g.b.EnterBlock(blk)

	g.labels = append(g.labels, gotoLabel{Name: s.Name, Fn: g.b.Fn, Block: blk})

	return g.stmt(s.Body)
}

func (g *gen) gotoStmt(s *ast.Goto) error {
	br := g.b.Branch(nil)

	g.fixups = append(g.fixups, gotoFixup{Name: s.Label, Fn: g.b.Fn, Br: br})

	g.b.AddBlock("goto.after")

	return nil
}

func (g *gen) returnStmt(s *ast.Return) error {
	ret := g.curFn.Ret

	if s.X == nil {
		if ret.Kind != ctype.Void {
			return errors.New("return value required")
		}

		g.b.RetVoid()

		return nil
	}

	if ret.Kind == ctype.Void {
		return errors.New("unexpected return value")
	}

	t, err := g.expr(s.X, rvalue)
	if err != nil {
		return err
	}

	t = g.decay(t)

	if ret.Kind == ctype.Struct {
		if !ctype.Eq(t.Type, ret) {
			return errors.New("cannot return %v as %v", t.Type, ret)
		}

		g.b.Memcpy(ir.Arg{Typ: ir.PtrType, Index: 0}, t.Val, ret.Size())
		g.b.RetVoid()

		return nil
	}

	t, err = g.convert(t, ret)
	if err != nil {
		return errors.Wrap(err, "return value")
	}

	g.b.Ret(t.Val)

	return nil
}

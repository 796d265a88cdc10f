package irgen

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ctype"
	"github.com/slowlang/scc/src/compiler/ir"
)

// expr lowers one expression. In lvalue context the result value is a
// pointer to the denoted storage; in rvalue context scalars are
// loaded while aggregates and functions stay as pointers; in constant
// context the expression must fold to an immediate or a global
// address.
func (g *gen) expr(e ast.Expr, ctx exprCtx) (Term, error) {
	switch e := e.(type) {
	case *ast.Ident:
		return g.identExpr(e, ctx)
	case *ast.IntLit:
		if ctx == lvalue {
			return Term{}, errors.New("literal is not an l-value")
		}

		t := g.literalType(e.Hint)

		return Term{Type: t, Val: ir.Imm{Typ: g.irType(t), X: immTrunc(e.X, t)}}, nil
	case *ast.StrLit:
		return g.stringLit(e), nil
	case *ast.Unary:
		return g.unary(e, ctx)
	case *ast.IncDec:
		return g.incDec(e, ctx)
	case *ast.Binary:
		return g.binary(e, ctx)
	case *ast.Assign:
		return g.assign(e, ctx)
	case *ast.CondExpr:
		return g.ternary(e, ctx)
	case *ast.Comma:
		if ctx == constCtx {
			return Term{}, errors.New("comma in a constant expression")
		}
		if ctx == lvalue {
			return Term{}, errors.New("comma is not an l-value")
		}

		_, err := g.expr(e.L, rvalue)
		if err != nil {
			return Term{}, err
		}

		return g.expr(e.R, rvalue)
	case *ast.Call:
		return g.call(e, ctx)
	case *ast.Index:
		return g.index(e, ctx)
	case *ast.Member:
		return g.member(e, ctx)
	case *ast.Cast:
		if ctx == lvalue {
			return Term{}, errors.New("cast is not an l-value")
		}

		to, err := g.typeName(e.Type)
		if err != nil {
			return Term{}, err
		}

		t, err := g.expr(e.X, ctx)
		if err != nil {
			return Term{}, err
		}

		return g.convert(g.decay(t), to)
	case *ast.SizeofExpr:
		return g.sizeofExpr(e)
	case *ast.SizeofType:
		t, err := g.typeName(e.Type)
		if err != nil {
			return Term{}, err
		}
		if !t.Complete() {
			return Term{}, errors.New("sizeof incomplete type %v", t)
		}

		return g.sizeTerm(t.Size()), nil
	case *ast.CompoundLit:
		return g.compoundLit(e, ctx)
	}

	bug("expression %T", e)
	return Term{}, nil
}

// fromLvalue applies the context adjustment to an l-value term.
func (g *gen) fromLvalue(t Term, ctx exprCtx) (Term, error) {
	if ctx == lvalue {
		return t, nil
	}

	switch t.Type.Kind {
	case ctype.Struct, ctype.Array, ctype.Function:
		return t, nil
	}

	if ctx == constCtx {
		return Term{}, errors.New("not a constant expression")
	}

	return g.load(t), nil
}

func (g *gen) load(t Term) Term {
	return Term{Type: t.Type, Val: g.b.Load(t.Val, g.irType(t.Type))}
}

// decay converts array terms to pointer-to-element and function terms
// to pointer-to-function. The value is a pointer already in both
// cases.
func (g *gen) decay(t Term) Term {
	switch t.Type.Kind {
	case ctype.Array:
		return Term{Type: g.tenv.Pointer(t.Type.Elem), Val: t.Val}
	case ctype.Function:
		return Term{Type: g.tenv.Pointer(t.Type), Val: t.Val}
	}

	return t
}

func (g *gen) identExpr(e *ast.Ident, ctx exprCtx) (Term, error) {
	b, ok := g.lookup(e.Name)
	if !ok {
		return Term{}, errors.New("unknown identifier: %v", e.Name)
	}

	if b.Const {
		if ctx == lvalue {
			return Term{}, errors.New("%v is not an l-value", e.Name)
		}

		return b.Term, nil
	}

	return g.fromLvalue(b.Term, ctx)
}

func (g *gen) literalType(hint string) *ctype.Type {
	switch hint {
	case "u":
		return g.tenv.Int(ctype.Int, false)
	case "l":
		return g.tenv.Long()
	case "ul", "lu":
		return g.tenv.Int(ctype.Long, false)
	case "ll":
		return g.tenv.LongLong()
	case "ull", "llu":
		return g.tenv.Int(ctype.LongLong, false)
	}

	// no suffix means int, the full value-dependent rule is not here yet
	return g.tenv.IntType()
}

func (g *gen) stringLit(e *ast.StrLit) Term {
	name := fmt.Sprintf("__string_literal_%x", g.nstr)
	g.nstr++

	ct := g.tenv.Array(g.tenv.Char(), int64(len(e.S)+1))
	mt := g.irType(ct)

	el := make([]*ir.Const, len(e.S)+1)
	for i, c := range e.S {
		el[i] = ir.IntConst(ir.I8, int64(c))
	}
	el[len(e.S)] = ir.IntConst(ir.I8, 0)

	glob := g.unit.AddVar(name, ir.Internal, mt)
	glob.Init = ir.ArrayConst(mt, el)

	return Term{Type: ct, Val: glob}
}

func (g *gen) sizeTerm(n int) Term {
	return Term{Type: g.tenv.SizeT(), Val: ir.Imm{Typ: ir.I64, X: int64(n)}}
}

// sizeofExpr lowers the operand into the scratch function, reads the
// type, and discards the emitted code, so sizeof never has effects.
func (g *gen) sizeofExpr(e *ast.SizeofExpr) (Term, error) {
	saveFn, saveBlk := g.b.Fn, g.b.Blk
	g.b.Fn, g.b.Blk = g.scratch, g.scratchBlk

	n := len(g.scratchBlk.Instrs)

	t, err := g.expr(e.X, rvalue)

	g.scratchBlk.Instrs = g.scratchBlk.Instrs[:n]
	g.scratch.Blocks = g.scratch.Blocks[:1]
	g.b.Fn, g.b.Blk = saveFn, saveBlk

	if err != nil {
		return Term{}, err
	}
	if !t.Type.Complete() {
		return Term{}, errors.New("sizeof incomplete type %v", t.Type)
	}

	return g.sizeTerm(t.Type.Size()), nil
}

func (g *gen) unary(e *ast.Unary, ctx exprCtx) (Term, error) {
	switch e.Op {
	case "&":
		if ctx == lvalue {
			return Term{}, errors.New("address-of is not an l-value")
		}

		t, err := g.expr(e.X, lvalue)
		if err != nil {
			return Term{}, err
		}

		if ctx == constCtx {
			if _, ok := t.Val.(*ir.Global); !ok {
				return Term{}, errors.New("not a constant expression")
			}
		}

		return Term{Type: g.tenv.Pointer(t.Type), Val: t.Val}, nil
	case "*":
		t, err := g.expr(e.X, ctxNonLvalue(ctx))
		if err != nil {
			return Term{}, err
		}

		t = g.decay(t)
		if t.Type.Kind != ctype.Pointer {
			return Term{}, errors.New("dereference of %v", t.Type)
		}

		return g.fromLvalue(Term{Type: t.Type.Pointee, Val: t.Val}, ctx)
	}

	if ctx == lvalue {
		return Term{}, errors.New("unary %v is not an l-value", e.Op)
	}

	t, err := g.expr(e.X, ctx)
	if err != nil {
		return Term{}, err
	}

	switch e.Op {
	case "+":
		if t.Type.Kind != ctype.Integer {
			return Term{}, errors.New("unary + of %v", t.Type)
		}

		return t, nil
	case "-", "~":
		if t.Type.Kind != ctype.Integer {
			return Term{}, errors.New("unary %v of %v", e.Op, t.Type)
		}

		if imm, ok := t.Val.(ir.Imm); ok {
			x := -imm.X
			if e.Op == "~" {
				x = ^imm.X
			}

			return Term{Type: t.Type, Val: ir.Imm{Typ: imm.Typ, X: immTrunc(x, t.Type)}}, nil
		}

		op := ir.OpNeg
		if e.Op == "~" {
			op = ir.OpNot
		}

		return Term{Type: t.Type, Val: g.b.Unary(op, t.Val)}, nil
	case "!":
		t = g.decay(t)

		v, err := g.zeroCmp(t, ir.CmpEq)
		if err != nil {
			return Term{}, err
		}

		return Term{Type: g.tenv.IntType(), Val: v}, nil
	}

	bug("unary %v", e.Op)
	return Term{}, nil
}

// ctxNonLvalue keeps constant context through subexpressions while
// everything else lowers operands as r-values.
func ctxNonLvalue(ctx exprCtx) exprCtx {
	if ctx == constCtx {
		return constCtx
	}

	return rvalue
}

func (g *gen) incDec(e *ast.IncDec, ctx exprCtx) (Term, error) {
	if ctx == constCtx {
		return Term{}, errors.New("increment in a constant expression")
	}
	if ctx == lvalue {
		return Term{}, errors.New("increment is not an l-value")
	}

	lhs, err := g.expr(e.X, lvalue)
	if err != nil {
		return Term{}, err
	}

	op := "+"
	if e.Dec {
		op = "-"
	}

	one := Term{Type: g.tenv.IntType(), Val: ir.Imm{Typ: ir.I32, X: 1}}

	nw, old, err := g.assignOp(op, lhs, one)
	if err != nil {
		return Term{}, err
	}

	if e.Post {
		return old, nil
	}

	return nw, nil
}

func (g *gen) binary(e *ast.Binary, ctx exprCtx) (Term, error) {
	switch e.Op {
	case "&&", "||":
		return g.logical(e, ctx)
	}

	if ctx == lvalue {
		return Term{}, errors.New("binary %v is not an l-value", e.Op)
	}

	sub := ctxNonLvalue(ctx)

	l, err := g.expr(e.L, sub)
	if err != nil {
		return Term{}, err
	}

	r, err := g.expr(e.R, sub)
	if err != nil {
		return Term{}, err
	}

	l, r = g.decay(l), g.decay(r)

	switch e.Op {
	case "+":
		return g.addTerms(l, r)
	case "-":
		return g.subTerms(l, r)
	case "==", "!=", "<", "<=", ">", ">=":
		return g.cmpTerms(e.Op, l, r)
	}

	return g.arith(e.Op, l, r)
}

func (g *gen) addTerms(l, r Term) (Term, error) {
	if l.Type.Kind == ctype.Integer && r.Type.Kind == ctype.Pointer {
		l, r = r, l
	}

	if l.Type.Kind == ctype.Pointer {
		if r.Type.Kind != ctype.Integer {
			return Term{}, errors.New("cannot add %v and %v", l.Type, r.Type)
		}

		return g.ptrAdd(l, r, false)
	}

	return g.arith("+", l, r)
}

func (g *gen) subTerms(l, r Term) (Term, error) {
	switch {
	case l.Type.Kind == ctype.Pointer && r.Type.Kind == ctype.Pointer:
		return g.ptrDiff(l, r)
	case l.Type.Kind == ctype.Pointer:
		if r.Type.Kind != ctype.Integer {
			return Term{}, errors.New("cannot subtract %v from %v", r.Type, l.Type)
		}

		return g.ptrAdd(l, r, true)
	}

	return g.arith("-", l, r)
}

// ptrAdd scales the index by the element size. A compile-time
// constant index becomes an indexed address instead of arithmetic.
func (g *gen) ptrAdd(p, idx Term, minus bool) (Term, error) {
	elem := p.Type.Pointee
	if !elem.Complete() {
		return Term{}, errors.New("pointer arithmetic on incomplete %v", elem)
	}

	esz := elem.Size()

	if imm, ok := idx.Val.(ir.Imm); ok {
		n := imm.X
		if minus {
			n = -n
		}

		at := ir.IncompleteArrayType(g.irType(elem))
		v := g.b.Field(p.Val, at, int(n))

		return Term{Type: p.Type, Val: v}, nil
	}

	iv := idx.Val
	if idx.Type.Size() < 8 {
		iv = g.b.Conv(ir.OpZext, iv, ir.I64)
	}

	off := g.b.Bin(ir.OpMul, iv, ir.Imm{Typ: ir.I64, X: int64(esz)})
	pi := g.b.Conv(ir.OpCast, p.Val, ir.I64)

	op := ir.OpAdd
	if minus {
		op = ir.OpSub
	}

	sum := g.b.Bin(op, pi, off)
	v := g.b.Conv(ir.OpCast, sum, ir.PtrType)

	return Term{Type: p.Type, Val: v}, nil
}

func (g *gen) ptrDiff(l, r Term) (Term, error) {
	if !ctype.Eq(l.Type, r.Type) {
		return Term{}, errors.New("subtraction of %v and %v", l.Type, r.Type)
	}

	elem := l.Type.Pointee
	if !elem.Complete() {
		return Term{}, errors.New("pointer arithmetic on incomplete %v", elem)
	}

	li := g.b.Conv(ir.OpCast, l.Val, ir.I64)
	ri := g.b.Conv(ir.OpCast, r.Val, ir.I64)
	d := g.b.Bin(ir.OpSub, li, ri)
	q := g.b.Bin(ir.OpDiv, d, ir.Imm{Typ: ir.I64, X: int64(elem.Size())})

	return Term{Type: g.tenv.Long(), Val: q}, nil
}

func (g *gen) arith(op string, l, r Term) (Term, error) {
	if l.Type.Kind != ctype.Integer || r.Type.Kind != ctype.Integer {
		return Term{}, errors.New("operator %v on %v and %v", op, l.Type, r.Type)
	}

	ct := commonType(l.Type, r.Type)

	l, err := g.convert(l, ct)
	if err != nil {
		return Term{}, err
	}

	r, err = g.convert(r, ct)
	if err != nil {
		return Term{}, err
	}

	if li, ok := l.Val.(ir.Imm); ok {
		if ri, ok := r.Val.(ir.Imm); ok {
			x, err := arithEval(op, ct, li.X, ri.X)
			if err != nil {
				return Term{}, err
			}

			return Term{Type: ct, Val: ir.Imm{Typ: li.Typ, X: x}}, nil
		}
	}

	v := g.b.Bin(opFor(op, ct.Signed), l.Val, r.Val)

	return Term{Type: ct, Val: v}, nil
}

func opFor(op string, signed bool) ir.Op {
	switch op {
	case "+":
		return ir.OpAdd
	case "-":
		return ir.OpSub
	case "*":
		return ir.OpMul
	case "/":
		if signed {
			return ir.OpDiv
		}

		return ir.OpUDiv
	case "%":
		if signed {
			return ir.OpRem
		}

		return ir.OpURem
	case "&":
		return ir.OpAnd
	case "|":
		return ir.OpOr
	case "^":
		return ir.OpXor
	case "<<":
		return ir.OpShl
	case ">>":
		// TODO: emit an arithmetic shift for signed operands
		return ir.OpShr
	}

	bug("operator %v", op)
	return 0
}

// commonType is the usual arithmetic conversion on two integer types.
func commonType(l, r *ctype.Type) *ctype.Type {
	if l.Signed == r.Signed {
		if l.Rank >= r.Rank {
			return l
		}

		return r
	}

	s, u := l, r
	if !l.Signed {
		s, u = r, l
	}

	if u.Rank >= s.Rank {
		return u
	}

	return s
}

func (g *gen) cmpTerms(op string, l, r Term) (Term, error) {
	it := g.tenv.IntType()

	lp := l.Type.Kind == ctype.Pointer
	rp := r.Type.Kind == ctype.Pointer

	switch {
	case lp && rp:
		if v, ok := foldPtrCmp(op, l.Val, r.Val); ok {
			return Term{Type: it, Val: ir.Imm{Typ: ir.I32, X: v}}, nil
		}

		return Term{Type: it, Val: g.cmpVal(cmpFor(op, false), l.Val, r.Val)}, nil
	case lp != rp:
		ptr, n := l, r
		if rp {
			ptr, n = r, l
		}

		imm, ok := n.Val.(ir.Imm)
		if !ok || n.Type.Kind != ctype.Integer || imm.X != 0 {
			return Term{}, errors.New("unimplemented: comparison of %v and %v", l.Type, r.Type)
		}

		null := ir.Imm{Typ: ir.PtrType, X: 0}

		if v, ok := foldPtrCmp(op, ptr.Val, null); ok {
			return Term{Type: it, Val: ir.Imm{Typ: ir.I32, X: v}}, nil
		}

		if rp {
			return Term{Type: it, Val: g.cmpVal(cmpFor(op, false), null, ptr.Val)}, nil
		}

		return Term{Type: it, Val: g.cmpVal(cmpFor(op, false), ptr.Val, null)}, nil
	}

	if l.Type.Kind != ctype.Integer || r.Type.Kind != ctype.Integer {
		return Term{}, errors.New("comparison of %v and %v", l.Type, r.Type)
	}

	ct := commonType(l.Type, r.Type)

	l, err := g.convert(l, ct)
	if err != nil {
		return Term{}, err
	}

	r, err = g.convert(r, ct)
	if err != nil {
		return Term{}, err
	}

	return Term{Type: it, Val: g.cmpVal(cmpFor(op, ct.Signed), l.Val, r.Val)}, nil
}

// foldPtrCmp folds address comparisons on constants. A global address
// is never null and two distinct globals never alias.
func foldPtrCmp(op string, l, r ir.Value) (int64, bool) {
	lg, lok := l.(*ir.Global)
	rg, rok := r.(*ir.Global)
	li, lim := l.(ir.Imm)
	ri, rim := r.(ir.Imm)

	switch {
	case lok && rok:
		switch op {
		case "==":
			return b2i(lg == rg), true
		case "!=":
			return b2i(lg != rg), true
		}

		return 0, false
	case lok && rim && ri.X == 0, rok && lim && li.X == 0:
		return b2i(op == "!="), true
	case lim && rim:
		switch op {
		case "==":
			return b2i(li.X == ri.X), true
		case "!=":
			return b2i(li.X != ri.X), true
		}
	}

	return 0, false
}

func b2i(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

// cmpFor maps a comparison operator to the cmp kind. Pointers and
// unsigned integers use the unsigned orderings.
func cmpFor(op string, signed bool) ir.Cmp {
	switch op {
	case "==":
		return ir.CmpEq
	case "!=":
		return ir.CmpNe
	case "<":
		if signed {
			return ir.CmpLt
		}

		return ir.CmpULt
	case "<=":
		if signed {
			return ir.CmpLe
		}

		return ir.CmpULe
	case ">":
		if signed {
			return ir.CmpGt
		}

		return ir.CmpUGt
	case ">=":
		if signed {
			return ir.CmpGe
		}

		return ir.CmpUGe
	}

	bug("comparison %v", op)
	return 0
}

// cmpVal emits a comparison, folding when both operands are
// immediates.
func (g *gen) cmpVal(c ir.Cmp, x, y ir.Value) ir.Value {
	if xi, ok := x.(ir.Imm); ok {
		if yi, ok := y.(ir.Imm); ok {
			return ir.Imm{Typ: ir.I32, X: cmpEval(c, xi.X, yi.X)}
		}
	}

	return g.b.CmpVal(c, x, y)
}

func cmpEval(c ir.Cmp, a, b int64) int64 {
	ua, ub := uint64(a), uint64(b)

	switch c {
	case ir.CmpEq:
		return b2i(a == b)
	case ir.CmpNe:
		return b2i(a != b)
	case ir.CmpLt:
		return b2i(a < b)
	case ir.CmpLe:
		return b2i(a <= b)
	case ir.CmpGt:
		return b2i(a > b)
	case ir.CmpGe:
		return b2i(a >= b)
	case ir.CmpULt:
		return b2i(ua < ub)
	case ir.CmpULe:
		return b2i(ua <= ub)
	case ir.CmpUGt:
		return b2i(ua > ub)
	case ir.CmpUGe:
		return b2i(ua >= ub)
	}

	bug("cmp %v", c)
	return 0
}

// zeroCmp compares a scalar term against zero. Pointer operands go
// through a pointer-sized integer.
func (g *gen) zeroCmp(t Term, c ir.Cmp) (ir.Value, error) {
	switch t.Type.Kind {
	case ctype.Integer:
		zero := ir.Imm{Typ: ir.IntType(t.Type.Size() * 8), X: 0}
		return g.cmpVal(c, t.Val, zero), nil
	case ctype.Pointer:
		if _, ok := t.Val.(*ir.Global); ok {
			return ir.Imm{Typ: ir.I32, X: cmpEval(c, 1, 0)}, nil
		}
		if imm, ok := t.Val.(ir.Imm); ok {
			return ir.Imm{Typ: ir.I32, X: cmpEval(c, imm.X, 0)}, nil
		}

		v := g.b.Conv(ir.OpCast, t.Val, ir.I64)

		return g.cmpVal(c, v, ir.Imm{Typ: ir.I64, X: 0}), nil
	}

	return nil, errors.New("scalar required, got %v", t.Type)
}

// boolVal lowers a condition to a 0-or-1 value.
func (g *gen) boolVal(t Term) (ir.Value, error) {
	return g.zeroCmp(g.decay(t), ir.CmpNe)
}

func (g *gen) logical(e *ast.Binary, ctx exprCtx) (Term, error) {
	if ctx != rvalue {
		return Term{}, errors.New("%v in this context is not supported", e.Op)
	}

	l, err := g.expr(e.L, rvalue)
	if err != nil {
		return Term{}, err
	}

	lb, err := g.boolVal(l)
	if err != nil {
		return Term{}, err
	}

	prefix := "and"
	if e.Op == "||" {
		prefix = "or"
	}

	lhsBlk := g.b.Blk
	rhs := g.b.NewBlock(prefix + ".rhs")
	after := g.b.NewBlock(prefix + ".after")

	short := int64(0)
	if e.Op == "||" {
		short = 1
		g.b.Cond(lb, after, rhs)
	} else {
		g.b.Cond(lb, rhs, after)
	}

	g.b.EnterBlock(rhs)

	r, err := g.expr(e.R, rvalue)
	if err != nil {
		return Term{}, err
	}

	rb, err := g.boolVal(r)
	if err != nil {
		return Term{}, err
	}

	rhsPred := g.b.Blk
	g.b.Branch(after)

	g.b.EnterBlock(after)

	phi := g.b.Phi(ir.I32, 2)
	ir.PhiSet(phi, 0, lhsBlk, ir.Imm{Typ: ir.I32, X: short})
	ir.PhiSet(phi, 1, rhsPred, rb)

	return Term{Type: g.tenv.IntType(), Val: phi}, nil
}

func (g *gen) ternary(e *ast.CondExpr, ctx exprCtx) (Term, error) {
	if ctx != rvalue {
		return Term{}, errors.New("?: in this context is not supported")
	}

	c, err := g.expr(e.C, rvalue)
	if err != nil {
		return Term{}, err
	}

	cb, err := g.boolVal(c)
	if err != nil {
		return Term{}, err
	}

	then := g.b.NewBlock("ternary.then")
	els := g.b.NewBlock("ternary.else")
	after := g.b.NewBlock("ternary.after")

	g.b.Cond(cb, then, els)

	g.b.EnterBlock(then)

	t1, err := g.expr(e.T, rvalue)
	if err != nil {
		return Term{}, err
	}

	t1 = g.decay(t1)
	thenPred := g.b.Blk

	g.b.EnterBlock(els)

	t2, err := g.expr(e.F, rvalue)
	if err != nil {
		return Term{}, err
	}

	t2 = g.decay(t2)
	elsPred := g.b.Blk

	if t1.Type.Kind == ctype.Void && t2.Type.Kind == ctype.Void {
		g.b.Blk = thenPred
		g.b.Branch(after)
		g.b.Blk = elsPred
		g.b.Branch(after)
		g.b.EnterBlock(after)

		return Term{Type: g.tenv.Void()}, nil
	}

	ct, err := g.ternaryType(t1, t2)
	if err != nil {
		return Term{}, err
	}

	// conversions land in the predecessor blocks, ahead of the
	// branches, so the phi inputs already share a type
	g.b.Blk = thenPred

	t1, err = g.convert(t1, ct)
	if err != nil {
		return Term{}, err
	}

	g.b.Branch(after)

	g.b.Blk = elsPred

	t2, err = g.convert(t2, ct)
	if err != nil {
		return Term{}, err
	}

	g.b.Branch(after)

	g.b.EnterBlock(after)

	phi := g.b.Phi(g.irType(ct), 2)
	ir.PhiSet(phi, 0, thenPred, t1.Val)
	ir.PhiSet(phi, 1, elsPred, t2.Val)

	return Term{Type: ct, Val: phi}, nil
}

func (g *gen) ternaryType(l, r Term) (*ctype.Type, error) {
	switch {
	case l.Type.Kind == ctype.Integer && r.Type.Kind == ctype.Integer:
		return commonType(l.Type, r.Type), nil
	case ctype.Eq(l.Type, r.Type):
		return l.Type, nil
	case l.Type.Kind == ctype.Pointer && isNullConst(r):
		return l.Type, nil
	case r.Type.Kind == ctype.Pointer && isNullConst(l):
		return r.Type, nil
	case l.Type.Kind == ctype.Struct && l.Type == r.Type:
		return l.Type, nil
	}

	return nil, errors.New("incompatible branches: %v and %v", l.Type, r.Type)
}

func isNullConst(t Term) bool {
	imm, ok := t.Val.(ir.Imm)
	return ok && t.Type.Kind == ctype.Integer && imm.X == 0
}

func (g *gen) assign(e *ast.Assign, ctx exprCtx) (Term, error) {
	if ctx == constCtx {
		return Term{}, errors.New("assignment in a constant expression")
	}
	if ctx == lvalue {
		return Term{}, errors.New("assignment is not an l-value")
	}

	lhs, err := g.expr(e.L, lvalue)
	if err != nil {
		return Term{}, err
	}

	if e.Op != "=" {
		r, err := g.expr(e.R, rvalue)
		if err != nil {
			return Term{}, err
		}

		nw, _, err := g.assignOp(e.Op[:len(e.Op)-1], lhs, g.decay(r))

		return nw, err
	}

	if lhs.Type.IsAggregate() {
		rhs, err := g.expr(e.R, rvalue)
		if err != nil {
			return Term{}, err
		}

		if !ctype.Eq(lhs.Type, rhs.Type) && lhs.Type != rhs.Type {
			return Term{}, errors.New("assignment of %v to %v", rhs.Type, lhs.Type)
		}

		g.b.Memcpy(lhs.Val, rhs.Val, lhs.Type.Size())

		return Term{Type: lhs.Type, Val: lhs.Val}, nil
	}

	rhs, err := g.expr(e.R, rvalue)
	if err != nil {
		return Term{}, err
	}

	conv, err := g.convert(g.decay(rhs), lhs.Type)
	if err != nil {
		return Term{}, err
	}

	g.b.Store(lhs.Val, conv.Val)

	return conv, nil
}

// assignOp applies a compound assignment: load the left side, apply
// the operator, convert, store. It returns the stored value and the
// value loaded before the update.
func (g *gen) assignOp(op string, lhs, r Term) (Term, Term, error) {
	if lhs.Type.IsAggregate() {
		return Term{}, Term{}, errors.New("operator %v= on %v", op, lhs.Type)
	}

	old := g.load(lhs)

	var res Term
	var err error

	switch {
	case op == "+":
		res, err = g.addTerms(old, r)
	case op == "-":
		res, err = g.subTerms(old, r)
	default:
		res, err = g.arith(op, old, r)
	}
	if err != nil {
		return Term{}, Term{}, err
	}

	conv, err := g.convert(res, lhs.Type)
	if err != nil {
		return Term{}, Term{}, err
	}

	g.b.Store(lhs.Val, conv.Val)

	return conv, old, nil
}

func (g *gen) call(e *ast.Call, ctx exprCtx) (Term, error) {
	if ctx == constCtx {
		return Term{}, errors.New("call in a constant expression")
	}
	if ctx == lvalue {
		return Term{}, errors.New("call is not an l-value")
	}

	if id, ok := e.Fn.(*ast.Ident); ok {
		switch id.Name {
		case "__builtin_va_start":
			if len(e.Args) != 1 {
				return Term{}, errors.New("__builtin_va_start takes one argument")
			}

			ap, err := g.expr(e.Args[0], lvalue)
			if err != nil {
				return Term{}, err
			}

			g.b.VaStart(ap.Val)

			return Term{Type: g.tenv.Void()}, nil
		case "__builtin_va_end":
			return Term{Type: g.tenv.Void()}, nil
		case "__builtin_va_arg":
			if len(e.Args) != 1 {
				return Term{}, errors.New("__builtin_va_arg takes one argument")
			}

			ap, err := g.expr(e.Args[0], lvalue)
			if err != nil {
				return Term{}, err
			}

			f := g.unit.Lookup("__builtin_va_arg_uint64")
			if f == nil {
				f = g.unit.AddFunc("__builtin_va_arg_uint64", ir.Extern, ir.I64, []*ir.Type{ir.PtrType}, false)
			}

			v := g.b.Call(f, ir.I64, []ir.Value{ap.Val})

			return Term{Type: g.tenv.Int(ctype.Long, false), Val: v}, nil
		}
	}

	callee, err := g.expr(e.Fn, rvalue)
	if err != nil {
		return Term{}, err
	}

	ft := callee.Type
	if ft.Kind == ctype.Pointer && ft.Pointee.Kind == ctype.Function {
		ft = ft.Pointee
	}
	if ft.Kind != ctype.Function {
		return Term{}, errors.New("called object has type %v", callee.Type)
	}

	if len(e.Args) < len(ft.Params) {
		return Term{}, errors.New("too few arguments to %v", ft)
	}
	if len(e.Args) > len(ft.Params) && !ft.Variadic {
		return Term{}, errors.New("too many arguments to %v", ft)
	}

	structRet := ft.Ret.Kind == ctype.Struct

	var args []ir.Value
	var retLocal ir.Value

	if structRet {
		retLocal = g.b.Local(g.irType(ft.Ret))
		args = append(args, retLocal)
	}

	for i, a := range e.Args {
		at, err := g.expr(a, rvalue)
		if err != nil {
			return Term{}, errors.Wrap(err, "argument %d", i)
		}

		at = g.decay(at)

		if i < len(ft.Params) {
			at, err = g.convert(at, ft.Params[i])
			if err != nil {
				return Term{}, errors.Wrap(err, "argument %d", i)
			}
		}

		args = append(args, at.Val)
	}

	if structRet {
		g.b.Call(callee.Val, ir.VoidType, args)

		return Term{Type: ft.Ret, Val: retLocal}, nil
	}

	v := g.b.Call(callee.Val, g.irType(ft.Ret), args)

	return Term{Type: ft.Ret, Val: v}, nil
}

func (g *gen) index(e *ast.Index, ctx exprCtx) (Term, error) {
	sub := ctxNonLvalue(ctx)

	x, err := g.expr(e.X, sub)
	if err != nil {
		return Term{}, err
	}

	i, err := g.expr(e.I, sub)
	if err != nil {
		return Term{}, err
	}

	x, i = g.decay(x), g.decay(i)

	if x.Type.Kind == ctype.Integer && i.Type.Kind == ctype.Pointer {
		x, i = i, x
	}

	if x.Type.Kind != ctype.Pointer || i.Type.Kind != ctype.Integer {
		return Term{}, errors.New("indexing %v with %v", x.Type, i.Type)
	}

	p, err := g.ptrAdd(x, i, false)
	if err != nil {
		return Term{}, err
	}

	return g.fromLvalue(Term{Type: x.Type.Pointee, Val: p.Val}, ctx)
}

func (g *gen) member(e *ast.Member, ctx exprCtx) (Term, error) {
	var st *ctype.Type
	var ptr ir.Value

	if e.Arrow {
		base, err := g.expr(e.X, ctxNonLvalue(ctx))
		if err != nil {
			return Term{}, err
		}

		base = g.decay(base)
		if base.Type.Kind != ctype.Pointer || base.Type.Pointee.Kind != ctype.Struct {
			return Term{}, errors.New("arrow access on %v", base.Type)
		}

		st, ptr = base.Type.Pointee, base.Val
	} else {
		sub := lvalue

		// aggregates returned by value are carried as pointers, so
		// call and compound-literal bases go through the r-value path
		switch e.X.(type) {
		case *ast.Call, *ast.CompoundLit:
			sub = rvalue
		}

		base, err := g.expr(e.X, sub)
		if err != nil {
			return Term{}, err
		}

		if base.Type.Kind != ctype.Struct {
			return Term{}, errors.New("member access on %v", base.Type)
		}

		st, ptr = base.Type, base.Val
	}

	if !st.Complete() {
		return Term{}, errors.New("member access on incomplete %v", st)
	}

	f, idx, ok := st.FieldByName(e.Name)
	if !ok {
		return Term{}, errors.New("no field %v in %v", e.Name, st)
	}

	addr := g.b.Field(ptr, g.irType(st), idx)

	return g.fromLvalue(Term{Type: f.Type, Val: addr}, ctx)
}

func (g *gen) compoundLit(e *ast.CompoundLit, ctx exprCtx) (Term, error) {
	if ctx == constCtx {
		return Term{}, errors.New("compound literal in a constant expression")
	}

	t, err := g.typeName(e.Type)
	if err != nil {
		return Term{}, err
	}

	ci, err := g.makeInit(t, e.Init, false)
	if err != nil {
		return Term{}, err
	}

	local := g.b.Local(g.irType(t))

	err = g.genLocalInit(local, t, ci)
	if err != nil {
		return Term{}, err
	}

	return g.fromLvalue(Term{Type: t, Val: local}, ctx)
}

// convert applies C conversion rules, folding immediates so constant
// expressions stay constant.
func (g *gen) convert(t Term, to *ctype.Type) (Term, error) {
	if t.Type == to || ctype.Eq(t.Type, to) {
		return Term{Type: to, Val: t.Val}, nil
	}

	from := t.Type

	switch {
	case to.Kind == ctype.Void:
		return Term{Type: to, Val: t.Val}, nil
	case from.Kind == ctype.Integer && to.Kind == ctype.Integer:
		return Term{Type: to, Val: g.convInt(t.Val, from, to)}, nil
	case from.Kind == ctype.Integer && to.Kind == ctype.Pointer:
		if imm, ok := t.Val.(ir.Imm); ok {
			return Term{Type: to, Val: ir.Imm{Typ: ir.PtrType, X: imm.X}}, nil
		}

		v := t.Val
		if from.Size() < 8 {
			v = g.b.Conv(ir.OpZext, v, ir.I64)
		}

		return Term{Type: to, Val: g.b.Conv(ir.OpCast, v, ir.PtrType)}, nil
	case from.Kind == ctype.Pointer && to.Kind == ctype.Integer:
		if imm, ok := t.Val.(ir.Imm); ok {
			return Term{Type: to, Val: ir.Imm{Typ: ir.IntType(to.Size() * 8), X: immTrunc(imm.X, to)}}, nil
		}

		v := g.b.Conv(ir.OpCast, t.Val, ir.I64)
		if to.Size() < 8 {
			v = g.b.Conv(ir.OpTrunc, v, ir.IntType(to.Size()*8))
		}

		return Term{Type: to, Val: v}, nil
	case to.Kind == ctype.Pointer:
		switch from.Kind {
		case ctype.Pointer, ctype.Array, ctype.Function:
			return Term{Type: to, Val: t.Val}, nil
		}
	}

	return Term{}, errors.New("cannot convert %v to %v", from, to)
}

func (g *gen) convInt(v ir.Value, from, to *ctype.Type) ir.Value {
	s1, s2 := from.Size(), to.Size()

	if imm, ok := v.(ir.Imm); ok {
		return ir.Imm{Typ: ir.IntType(s2 * 8), X: immTrunc(imm.X, to)}
	}

	switch {
	case s1 == s2:
		return v
	case s2 < s1:
		return g.b.Conv(ir.OpTrunc, v, ir.IntType(s2*8))
	case from.Signed:
		return g.b.Conv(ir.OpSext, v, ir.IntType(s2*8))
	}

	return g.b.Conv(ir.OpZext, v, ir.IntType(s2*8))
}

// immTrunc wraps an immediate into the representable range of t,
// keeping the signed representation canonical.
func immTrunc(x int64, t *ctype.Type) int64 {
	w := uint(t.Size() * 8)
	if w >= 64 {
		return x
	}

	m := int64(1)<<w - 1
	x &= m

	if t.Signed && x&(int64(1)<<(w-1)) != 0 {
		x |= ^m
	}

	return x
}

func arithEval(op string, t *ctype.Type, a, b int64) (int64, error) {
	var r int64

	switch op {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/", "%":
		if b == 0 {
			return 0, errors.New("division by zero in a constant expression")
		}

		if t.Signed {
			if op == "/" {
				r = a / b
			} else {
				r = a % b
			}
		} else {
			if op == "/" {
				r = int64(uint64(a) / uint64(b))
			} else {
				r = int64(uint64(a) % uint64(b))
			}
		}
	case "&":
		r = a & b
	case "|":
		r = a | b
	case "^":
		r = a ^ b
	case "<<", ">>":
		if b < 0 || b >= 64 {
			return 0, errors.New("shift amount %v out of range", b)
		}

		if op == "<<" {
			r = a << uint(b)
		} else {
			r = int64(uint64(a) >> uint(b))
		}
	default:
		bug("operator %v", op)
	}

	return immTrunc(r, t), nil
}

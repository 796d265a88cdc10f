package irgen

import (
	"tlog.app/go/errors"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ctype"
	"github.com/slowlang/scc/src/compiler/ir"
)

// cinit is the shape of one initialized object. A node is either a leaf
// holding a value or an aggregate with lazily allocated sub-elements.
// Unset slots stay nil and keep the zero representation.
type cinit struct {
	Type  *ctype.Type
	Leaf  *Term
	Elems []*cinit
}

// makeInit builds the initializer tree for an object of type t. In
// constant context leaves must fold to immediates or global addresses.
func (g *gen) makeInit(t *ctype.Type, init ast.Init, con bool) (*cinit, error) {
	switch init := init.(type) {
	case *ast.ExprInit:
		return g.exprInit(t, init.X, con)
	case *ast.BraceInit:
		return g.braceInit(t, init, con)
	}

	bug("initializer %T", init)
	return nil, nil
}

func (g *gen) exprInit(t *ctype.Type, e ast.Expr, con bool) (*cinit, error) {
	if s, ok := e.(*ast.StrLit); ok && t.Kind == ctype.Array {
		return g.stringInit(t, s)
	}

	switch t.Kind {
	case ctype.Array:
		return nil, errors.New("array initializer must be braced or a string literal")
	case ctype.Struct:
		if con {
			return nil, errors.New("constant aggregate initializer must be braced")
		}

		v, err := g.expr(e, rvalue)
		if err != nil {
			return nil, err
		}

		if !ctype.Eq(v.Type, t) {
			return nil, errors.New("cannot initialize %v with %v", t, v.Type)
		}

		return &cinit{Type: t, Leaf: &v}, nil
	}

	var v Term
	var err error

	if con {
		v, err = g.evalConst(e)
		if err != nil {
			return nil, err
		}

		if _, ok := v.Val.(*ir.Global); ok && t.Kind != ctype.Pointer {
			return nil, errors.New("address constant initializes a pointer, not %v", t)
		}
	} else {
		v, err = g.expr(e, rvalue)
		if err != nil {
			return nil, err
		}

		v, err = g.convert(g.decay(v), t)
		if err != nil {
			return nil, err
		}
	}

	return &cinit{Type: t, Leaf: &Term{Type: t, Val: v.Val}}, nil
}

func (g *gen) stringInit(t *ctype.Type, s *ast.StrLit) (*cinit, error) {
	if t.Elem.Kind != ctype.Integer || t.Elem.Size() != 1 {
		return nil, errors.New("string literal initializes a char array, not %v", t)
	}

	n := len(s.S) + 1

	switch {
	case t.Incomplete:
		g.completeArray(t, int64(n))
	case int64(len(s.S)) > t.Len:
		return nil, errors.New("string literal does not fit in %v", t)
	case int64(n) > t.Len:
		// no room for the terminator, chars only
		n = len(s.S)
	}

	ci := &cinit{Type: t, Elems: make([]*cinit, n)}

	for i := 0; i < n; i++ {
		var b int64
		if i < len(s.S) {
			b = int64(s.S[i])
		}

		ci.Elems[i] = &cinit{
			Type: t.Elem,
			Leaf: &Term{Type: t.Elem, Val: ir.Imm{Typ: ir.I8, X: b}},
		}
	}

	return ci, nil
}

func (g *gen) braceInit(t *ctype.Type, in *ast.BraceInit, con bool) (*cinit, error) {
	if t.Kind == ctype.Integer || t.Kind == ctype.Pointer {
		if len(in.Items) != 1 || len(in.Items[0].Designators) != 0 {
			return nil, errors.New("scalar initializer requires a single expression")
		}

		return g.makeInit(t, in.Items[0].Init, con)
	}

	if t.Kind != ctype.Struct && t.Kind != ctype.Array {
		return nil, errors.New("cannot initialize %v with braces", t)
	}

	if t.Kind == ctype.Struct && !t.Complete() {
		return nil, errors.New("initializer for incomplete type %v", t)
	}

	ci := &cinit{Type: t}

	pos := 0
	maxIdx := -1

	for i, it := range in.Items {
		if len(it.Designators) != 0 {
			idx, err := g.desigInit(ci, it.Designators, it.Init, con)
			if err != nil {
				return nil, errors.Wrap(err, "initializer %d", i)
			}

			pos = idx
		} else {
			et, err := g.initElemType(t, pos)
			if err != nil {
				return nil, errors.Wrap(err, "initializer %d", i)
			}

			sub, err := g.makeInit(et, it.Init, con)
			if err != nil {
				return nil, errors.Wrap(err, "initializer %d", i)
			}

			ci.setElem(pos, sub)
		}

		if pos > maxIdx {
			maxIdx = pos
		}

		pos++
	}

	if t.Kind == ctype.Array && t.Incomplete {
		g.completeArray(t, int64(maxIdx+1))
	}

	return ci, nil
}

// desigInit applies a designator chain and returns the index it consumed
// at the current nesting level, so positional walking resumes after it.
func (g *gen) desigInit(ci *cinit, ds []ast.Designator, init ast.Init, con bool) (int, error) {
	idx, et, err := g.desigIndex(ci.Type, ds[0])
	if err != nil {
		return 0, err
	}

	if len(ds) == 1 {
		sub, err := g.makeInit(et, init, con)
		if err != nil {
			return 0, err
		}

		ci.setElem(idx, sub)

		return idx, nil
	}

	sub := ci.elem(idx, et)

	_, err = g.desigInit(sub, ds[1:], init, con)
	if err != nil {
		return 0, err
	}

	return idx, nil
}

func (g *gen) desigIndex(t *ctype.Type, d ast.Designator) (int, *ctype.Type, error) {
	switch d := d.(type) {
	case ast.FieldDesignator:
		if t.Kind != ctype.Struct {
			return 0, nil, errors.New("field designator on %v", t)
		}

		f, i, ok := t.FieldByName(d.Name)
		if !ok {
			return 0, nil, errors.New("no field %v in %v", d.Name, t)
		}

		return i, f.Type, nil
	case *ast.IndexDesignator:
		if t.Kind != ctype.Array {
			return 0, nil, errors.New("index designator on %v", t)
		}

		x, err := g.evalConstInt(d.X)
		if err != nil {
			return 0, nil, err
		}

		if x < 0 || !t.Incomplete && x >= t.Len {
			return 0, nil, errors.New("index %d out of range of %v", x, t)
		}

		return int(x), t.Elem, nil
	}

	bug("designator %T", d)
	return 0, nil, nil
}

func (g *gen) initElemType(t *ctype.Type, pos int) (*ctype.Type, error) {
	switch t.Kind {
	case ctype.Array:
		if !t.Incomplete && int64(pos) >= t.Len {
			return nil, errors.New("too many initializers for %v", t)
		}

		return t.Elem, nil
	case ctype.Struct:
		if t.Union && pos > 0 || pos >= t.NumFields() {
			return nil, errors.New("too many initializers for %v", t)
		}

		return t.Fields[pos].Type, nil
	}

	bug("element of %v", t)
	return nil, nil
}

func (ci *cinit) setElem(idx int, sub *cinit) {
	ci.grow(idx)
	ci.Elems[idx] = sub
}

// elem returns the sub-node at idx, allocating an empty aggregate node
// on first touch.
func (ci *cinit) elem(idx int, et *ctype.Type) *cinit {
	ci.grow(idx)

	if ci.Elems[idx] == nil {
		ci.Elems[idx] = &cinit{Type: et}
	}

	return ci.Elems[idx]
}

func (ci *cinit) grow(idx int) {
	for len(ci.Elems) <= idx {
		ci.Elems = append(ci.Elems, nil)
	}
}

// constMirror lowers a constant-context tree into a static initializer,
// zero-filling unset slots.
func (g *gen) constMirror(ci *cinit) *ir.Const {
	it := g.irType(ci.Type)

	if ci.Leaf != nil {
		switch v := ci.Leaf.Val.(type) {
		case ir.Imm:
			if ci.Type.Kind == ctype.Pointer {
				return &ir.Const{Typ: ir.PtrType, X: v.X}
			}

			return ir.IntConst(it, immTrunc(v.X, ci.Type))
		case *ir.Global:
			return ir.GlobalConst(v)
		}

		bug("constant leaf %T", ci.Leaf.Val)
	}

	var n int
	var et func(i int) *ctype.Type

	switch ci.Type.Kind {
	case ctype.Array:
		n = int(ci.Type.Len)
		et = func(int) *ctype.Type { return ci.Type.Elem }
	case ctype.Struct:
		n = ci.Type.NumFields()
		et = func(i int) *ctype.Type { return ci.Type.Fields[i].Type }
	default:
		return ir.ZeroConst(it)
	}

	el := make([]*ir.Const, n)

	for i := 0; i < n; i++ {
		if i < len(ci.Elems) && ci.Elems[i] != nil {
			el[i] = g.constMirror(ci.Elems[i])
			continue
		}

		el[i] = ir.ZeroConst(g.irType(et(i)))
	}

	return &ir.Const{Typ: it, Elems: el}
}

// genLocalInit initializes automatic storage at ptr. Sparse trees get a
// single memset first, then populated slots are stored individually.
func (g *gen) genLocalInit(ptr ir.Value, t *ctype.Type, ci *cinit) error {
	if !ci.full() {
		g.b.Memset(ptr, 0, t.Size())
	}

	g.storeInit(ptr, ci)

	return nil
}

func (g *gen) storeInit(ptr ir.Value, ci *cinit) {
	if ci.Leaf != nil {
		v := *ci.Leaf

		if v.Type.Kind == ctype.Struct {
			g.b.Memcpy(ptr, v.Val, v.Type.Size())
			return
		}

		g.b.Store(ptr, v.Val)

		return
	}

	at := g.irType(ci.Type)

	for i, sub := range ci.Elems {
		if sub == nil {
			continue
		}

		f := g.b.Field(ptr, at, i)
		g.storeInit(f, sub)
	}
}

func (ci *cinit) full() bool {
	if ci.Leaf != nil {
		return true
	}

	var n int

	switch ci.Type.Kind {
	case ctype.Array:
		n = int(ci.Type.Len)
	case ctype.Struct:
		if ci.Type.Union {
			return false
		}

		n = ci.Type.NumFields()
	default:
		return false
	}

	if len(ci.Elems) < n {
		return false
	}

	for _, sub := range ci.Elems[:n] {
		if sub == nil || !sub.full() {
			return false
		}
	}

	return true
}

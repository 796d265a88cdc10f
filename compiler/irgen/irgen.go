package irgen

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ctype"
	"github.com/slowlang/scc/src/compiler/ir"
)

type (
	// Term is a typed value flowing through the lowerer. For l-value
	// terms Val is a pointer to storage of type Type. R-value terms
	// carry the value directly, except that aggregates and functions
	// stay as pointers.
	Term struct {
		Type *ctype.Type
		Val  ir.Value
	}

	Binding struct {
		Name  string
		Term  Term
		Const bool
	}

	Scope struct {
		parent *Scope
		bind   []Binding
	}

	exprCtx uint8

	switchCase struct {
		Value   int64
		Block   *ir.Block
		Default bool
	}

	gotoLabel struct {
		Name  string
		Fn    *ir.Func
		Block *ir.Block
	}

	gotoFixup struct {
		Name string
		Fn   *ir.Func
		Br   *ir.Instr
	}

	inlineDef struct {
		Name    string
		Type    *ctype.Type
		Def     *ast.FuncDef
		Emitted bool
	}

	// gen is the translation-unit lowering state, threaded through
	// every pass by pointer.
	gen struct {
		tr tlog.Span

		unit *ir.Unit
		b    *ir.Builder
		tenv *ctype.Env

		global *Scope
		scope  *Scope

		curFn *ctype.Type // return conversion and struct-return ABI

		cases      []switchCase
		inSwitch   bool
		labels     []gotoLabel
		fixups     []gotoFixup
		inlines    []*inlineDef
		breakTo    *ir.Block
		continueTo *ir.Block

		scratch    *ir.Func
		scratchBlk *ir.Block

		irt   map[*ctype.Type]*ir.Type
		enums []string
		nstr  int
		anon  int
	}
)

const (
	rvalue exprCtx = iota
	lvalue
	constCtx
)

// GenUnit lowers a translation unit to IR.
func GenUnit(ctx context.Context, tl []ast.Toplevel) (u *ir.Unit, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "gen_unit", "toplevels", len(tl))
	defer tr.Finish("err", &err)

	g := newGen(tr)

	for i, d := range tl {
		err = g.toplevel(d)
		if err != nil {
			return nil, errors.Wrap(err, "toplevel %d", i)
		}
	}

	err = g.resolveGotos()
	if err != nil {
		return nil, err
	}

	if tr.If("dump_ir") {
		tr.Printw("unit lowered", "dump", g.unit.Dump())
	}

	return g.unit, nil
}

func newGen(tr tlog.Span) *gen {
	u := ir.NewUnit()

	g := &gen{
		tr:     tr,
		unit:   u,
		b:      &ir.Builder{Unit: u},
		tenv:   ctype.NewEnv(),
		global: &Scope{},
		irt:    map[*ctype.Type]*ir.Type{},
	}

	g.scope = g.global

	g.scratch = ir.NewFunc("sizeof.scratch", ir.VoidType, nil, false)
	g.scratchBlk = &ir.Block{Name: "entry"}
	g.scratch.Blocks = append(g.scratch.Blocks, g.scratchBlk)

	return g
}

func (g *gen) pushScope() {
	g.scope = &Scope{parent: g.scope}
}

func (g *gen) popScope() {
	if g.scope.parent == nil {
		bug("popping global scope")
	}

	g.scope = g.scope.parent
}

func (g *gen) bind(name string, t Term, con bool) error {
	for _, b := range g.scope.bind {
		if b.Name == name {
			return errors.New("duplicate identifier: %v", name)
		}
	}

	g.scope.bind = append(g.scope.bind, Binding{Name: name, Term: t, Const: con})

	return nil
}

// rebind replaces a binding in the current scope, used when a global
// declaration is followed by its definition.
func (g *gen) rebind(name string, t Term, con bool) {
	for i, b := range g.scope.bind {
		if b.Name == name {
			g.scope.bind[i] = Binding{Name: name, Term: t, Const: con}
			return
		}
	}

	g.scope.bind = append(g.scope.bind, Binding{Name: name, Term: t, Const: con})
}

func (g *gen) lookup(name string) (Binding, bool) {
	for s := g.scope; s != nil; s = s.parent {
		for _, b := range s.bind {
			if b.Name == name {
				return b, true
			}
		}
	}

	return Binding{}, false
}

func (g *gen) lookupCurrent(name string) (Binding, bool) {
	for _, b := range g.scope.bind {
		if b.Name == name {
			return b, true
		}
	}

	return Binding{}, false
}

// irType maps a C type to its backing IR type. Array and aggregate
// mirrors are cached so that completing a C type completes its mirror.
func (g *gen) irType(t *ctype.Type) *ir.Type {
	switch t.Kind {
	case ctype.Void:
		return ir.VoidType
	case ctype.Integer:
		return ir.IntType(t.Size() * 8)
	case ctype.Pointer, ctype.Function:
		return ir.PtrType
	case ctype.Array:
		if m, ok := g.irt[t]; ok {
			return m
		}

		var m *ir.Type
		if t.Incomplete {
			m = ir.IncompleteArrayType(g.irType(t.Elem))
		} else {
			m = ir.ArrayType(g.irType(t.Elem), t.Len)
		}

		g.irt[t] = m

		return m
	case ctype.Struct:
		if m, ok := g.irt[t]; ok {
			return m
		}

		if !t.Complete() {
			bug("ir type of incomplete %v", t)
		}

		name := t.Tag
		if name == "" {
			g.anon++
			name = fmt.Sprintf("anon%d", g.anon)
		}

		fields := make([]*ir.Type, len(t.Fields))
		offsets := make([]int, len(t.Fields))

		for i, f := range t.Fields {
			fields[i] = g.irType(f.Type)
			offsets[i] = f.Offset
		}

		m := g.unit.AddStruct(name, fields, offsets, t.Size(), t.Align())
		g.irt[t] = m

		return m
	}

	bug("ir type of %v", t)
	return nil
}

// completeArray completes an inferred-length array and its IR mirror.
func (g *gen) completeArray(t *ctype.Type, n int64) {
	ctype.SetArrayLength(t, n)

	if m, ok := g.irt[t]; ok {
		ir.SetArrayLen(m, n)
	}
}

func (g *gen) resolveGotos() error {
	for _, fx := range g.fixups {
		var target *ir.Block

		for _, l := range g.labels {
			if l.Fn == fx.Fn && l.Name == fx.Name {
				if target != nil {
					return errors.New("duplicate label: %v", fx.Name)
				}

				target = l.Block
			}
		}

		if target == nil {
			return errors.New("unknown label: %v in %v", fx.Name, fx.Fn.Name)
		}

		fx.Br.Blocks[0] = target
	}

	return nil
}

func bug(f string, args ...interface{}) {
	panic(fmt.Sprintf("%v: %s", loc.Caller(1), fmt.Sprintf(f, args...)))
}

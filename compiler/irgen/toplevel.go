package irgen

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ctype"
	"github.com/slowlang/scc/src/compiler/ir"
)

func (g *gen) toplevel(d ast.Toplevel) error {
	switch d := d.(type) {
	case *ast.FuncDef:
		return g.funcDef(d)
	case *ast.Decl:
		return g.globalDecl(d)
	}

	bug("toplevel %T", d)
	return nil
}

func (g *gen) funcDef(d *ast.FuncDef) error {
	ds, err := g.specs(d.Specs)
	if err != nil {
		return err
	}

	switch ds.Storage {
	case "", "extern", "static":
	default:
		return errors.New("%v storage class on a function definition", ds.Storage)
	}

	name, t, err := g.declarator(ds.Base, d.Decl)
	if err != nil {
		return err
	}

	if t.Kind != ctype.Function {
		return errors.New("function body on %v", t)
	}
	if name == "" {
		return errors.New("function definition without a name")
	}
	if len(d.OldParams) != 0 {
		return errors.New("old-style parameter declarations are not supported")
	}

	g.tr.V("decl").Printw("function definition", "name", name, "type", t)

	if ds.Inline && ds.Storage != "extern" {
		// The body waits for an extern inline redeclaration. Declare
		// the symbol so calls resolve meanwhile.
		ret, params, _ := g.irSignature(t)
		gl := g.unit.AddFunc(name, ir.Extern, ret, params, t.Variadic)

		g.rebind(name, Term{Type: t, Val: gl}, false)

		g.inlines = append(g.inlines, &inlineDef{Name: name, Type: t, Def: d})

		return nil
	}

	lk := ir.External
	if ds.Storage == "static" {
		lk = ir.Internal
	}

	return g.emitFunc(name, lk, t, d)
}

// irSignature maps a C function type to the IR one. Struct returns go
// through an implicit pointer parameter, shifting argument indices by
// one.
func (g *gen) irSignature(t *ctype.Type) (ret *ir.Type, params []*ir.Type, argOff int) {
	if t.Ret.Kind == ctype.Struct {
		ret = ir.VoidType
		params = append(params, ir.PtrType)
		argOff = 1
	} else {
		ret = g.irType(t.Ret)
	}

	for _, p := range t.Params {
		params = append(params, g.irType(p))
	}

	return ret, params, argOff
}

func (g *gen) emitFunc(name string, lk ir.Linkage, t *ctype.Type, d *ast.FuncDef) (err error) {
	ret, params, argOff := g.irSignature(t)
	gl := g.unit.AddFunc(name, lk, ret, params, t.Variadic)

	g.rebind(name, Term{Type: t, Val: gl}, false)

	saveFn, saveBlk, saveCur := g.b.Fn, g.b.Blk, g.curFn
	g.b.Fn, g.curFn = gl.Func, t

	defer func() {
		g.b.Fn, g.b.Blk, g.curFn = saveFn, saveBlk, saveCur
	}()

	g.b.Blk = nil
	g.b.AddBlock("entry")

	g.pushScope()
	defer g.popScope()

	fd := funcDeclOf(d.Decl)
	if fd == nil {
		return errors.New("malformed function declarator")
	}

	_, names, err := g.paramTypes(fd)
	if err != nil {
		return err
	}

	for i, pt := range t.Params {
		if names[i] == "" {
			return errors.New("parameter %d name omitted", i)
		}

		it := g.irType(pt)
		local := g.b.Local(it)
		g.b.Store(local, ir.Arg{Typ: it, Index: i + argOff})

		err = g.bind(names[i], Term{Type: pt, Val: local}, false)
		if err != nil {
			return err
		}
	}

	err = g.stmt(d.Body)
	if err != nil {
		return errors.Wrap(err, "%v", name)
	}

	if !g.b.Blk.Terminated() {
		g.b.RetVoid()
	}

	return nil
}

func (g *gen) globalDecl(d *ast.Decl) error {
	ds, err := g.specs(d.Specs)
	if err != nil {
		return err
	}

	if ds.Storage == "typedef" {
		return g.typedefDecl(ds, d)
	}

	for i, id := range d.Inits {
		err = g.globalInitDecl(ds, id)
		if err != nil {
			return errors.Wrap(err, "declarator %d", i)
		}
	}

	return nil
}

func (g *gen) typedefDecl(ds declSpecs, d *ast.Decl) error {
	for i, id := range d.Inits {
		name, t, err := g.declarator(ds.Base, id.Decl)
		if err != nil {
			return errors.Wrap(err, "declarator %d", i)
		}

		if name == "" {
			return errors.New("typedef without a name")
		}
		if id.Init != nil {
			return errors.New("typedef %v with an initializer", name)
		}

		g.tenv.DefineTypedef(name, t)
	}

	return nil
}

func (g *gen) globalInitDecl(ds declSpecs, id ast.InitDeclarator) error {
	name, t, err := g.declarator(ds.Base, id.Decl)
	if err != nil {
		return err
	}

	if name == "" {
		return errors.New("declaration without a name")
	}

	if t.Kind == ctype.Function {
		if id.Init != nil {
			return errors.New("function %v with an initializer", name)
		}

		return g.funcDecl(ds, name, t)
	}

	lk := ir.External

	switch {
	case ds.Storage == "static":
		lk = ir.Internal
	case ds.Storage == "extern" && id.Init == nil:
		lk = ir.Extern
	}

	if id.Init == nil {
		if ex := g.unit.Lookup(name); ex != nil && ex.Func == nil {
			// redeclaration of an existing object keeps the definition
			g.rebind(name, Term{Type: t, Val: ex}, false)

			return nil
		}

		if !t.Complete() && lk != ir.Extern {
			return errors.New("definition of %v with incomplete type %v", name, t)
		}

		gl := g.unit.AddVar(name, lk, g.irType(t))
		if lk != ir.Extern {
			gl.Init = ir.ZeroConst(gl.Typ)
		}

		g.rebind(name, Term{Type: t, Val: gl}, false)

		return nil
	}

	ci, err := g.makeInit(t, id.Init, true)
	if err != nil {
		return errors.Wrap(err, "%v initializer", name)
	}

	gl := g.unit.AddVar(name, lk, g.irType(t))
	gl.Init = g.constMirror(ci)

	g.rebind(name, Term{Type: t, Val: gl}, false)

	return nil
}

func (g *gen) funcDecl(ds declSpecs, name string, t *ctype.Type) error {
	if ds.Inline && ds.Storage == "extern" {
		emitted, err := g.activateInline(name, t)
		if err != nil || emitted {
			return err
		}
	}

	if ex := g.unit.Lookup(name); ex != nil {
		g.rebind(name, Term{Type: t, Val: ex}, false)

		return nil
	}

	lk := ir.Extern
	if ds.Storage == "static" {
		lk = ir.Internal
	}

	ret, params, _ := g.irSignature(t)
	gl := g.unit.AddFunc(name, lk, ret, params, t.Variadic)

	g.rebind(name, Term{Type: t, Val: gl}, false)

	return nil
}

// activateInline emits a deferred inline body on its extern inline
// redeclaration.
func (g *gen) activateInline(name string, t *ctype.Type) (bool, error) {
	for _, id := range g.inlines {
		if id.Name != name {
			continue
		}

		if !ctype.Eq(id.Type, t) {
			return false, errors.New("conflicting types for %v: %v and %v", name, id.Type, t)
		}

		if id.Emitted {
			return true, nil
		}

		id.Emitted = true

		return true, g.emitFunc(name, ir.External, id.Type, id.Def)
	}

	return false, nil
}

func (g *gen) localDecl(d *ast.Decl) error {
	ds, err := g.specs(d.Specs)
	if err != nil {
		return err
	}

	if ds.Storage == "typedef" {
		return g.typedefDecl(ds, d)
	}

	for i, id := range d.Inits {
		err = g.localInitDecl(ds, id)
		if err != nil {
			return errors.Wrap(err, "declarator %d", i)
		}
	}

	return nil
}

func (g *gen) localInitDecl(ds declSpecs, id ast.InitDeclarator) error {
	name, t, err := g.declarator(ds.Base, id.Decl)
	if err != nil {
		return err
	}

	if name == "" {
		return errors.New("declaration without a name")
	}

	switch ds.Storage {
	case "extern":
		if id.Init != nil {
			return errors.New("extern local %v with an initializer", name)
		}

		return g.externLocal(name, t)
	case "static":
		return g.staticLocal(name, t, id.Init)
	}

	if t.Kind == ctype.Function {
		return g.externLocal(name, t)
	}

	if id.Init == nil {
		if !t.Complete() {
			return errors.New("local %v has incomplete type %v", name, t)
		}

		local := g.b.Local(g.irType(t))

		return g.bind(name, Term{Type: t, Val: local}, false)
	}

	ci, err := g.makeInit(t, id.Init, false)
	if err != nil {
		return errors.Wrap(err, "%v initializer", name)
	}

	local := g.b.Local(g.irType(t))

	err = g.bind(name, Term{Type: t, Val: local}, false)
	if err != nil {
		return err
	}

	return g.genLocalInit(local, t, ci)
}

func (g *gen) externLocal(name string, t *ctype.Type) error {
	gl := g.unit.Lookup(name)

	if gl == nil {
		if t.Kind == ctype.Function {
			ret, params, _ := g.irSignature(t)
			gl = g.unit.AddFunc(name, ir.Extern, ret, params, t.Variadic)
		} else {
			gl = g.unit.AddVar(name, ir.Extern, g.irType(t))
		}
	}

	return g.bind(name, Term{Type: t, Val: gl}, false)
}

// staticLocal allocates unit-level storage for a block-scope static.
// The symbol gets a suffix so shadowed statics do not collide.
func (g *gen) staticLocal(name string, t *ctype.Type, init ast.Init) error {
	g.anon++
	sym := fmt.Sprintf("%s.%d", name, g.anon)

	var c *ir.Const

	if init != nil {
		ci, err := g.makeInit(t, init, true)
		if err != nil {
			return errors.Wrap(err, "%v initializer", name)
		}

		c = g.constMirror(ci)
	}

	gl := g.unit.AddVar(sym, ir.Internal, g.irType(t))

	if c == nil {
		c = ir.ZeroConst(gl.Typ)
	}

	gl.Init = c

	return g.bind(name, Term{Type: t, Val: gl}, false)
}

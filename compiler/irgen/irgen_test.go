package irgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ir"
)

func genTest(t *testing.T, tl ...ast.Toplevel) *ir.Unit {
	t.Helper()

	u, err := GenUnit(context.Background(), tl)
	require.NoError(t, err)

	t.Logf("unit\n%s", u.Dump())

	return u
}

func genErr(t *testing.T, tl ...ast.Toplevel) error {
	t.Helper()

	_, err := GenUnit(context.Background(), tl)
	require.Error(t, err)

	t.Logf("error: %v", err)

	return err
}

func tInt() []ast.Spec  { return []ast.Spec{ast.TypeWord{Name: "int"}} }
func tChar() []ast.Spec { return []ast.Spec{ast.TypeWord{Name: "char"}} }
func tVoid() []ast.Spec { return []ast.Spec{ast.TypeWord{Name: "void"}} }

func id(n string) *ast.Ident  { return &ast.Ident{Name: n} }
func lit(x int64) *ast.IntLit { return &ast.IntLit{X: x} }

func param(sp []ast.Spec, d ast.Declarator) ast.ParamDecl {
	return ast.ParamDecl{Specs: sp, Decl: d}
}

func fndef(sp []ast.Spec, name string, params []ast.ParamDecl, body ...ast.Stmt) *ast.FuncDef {
	return &ast.FuncDef{
		Specs: sp,
		Decl: &ast.FuncDecl{
			Inner:  ast.IdentDecl{Name: name},
			Params: params,
		},
		Body: &ast.Compound{Items: body},
	}
}

func nullary() []ast.ParamDecl {
	return []ast.ParamDecl{param(tVoid(), ast.AbstractDecl{})}
}

func TestSimpleFunction(t *testing.T) {
	u := genTest(t,
		fndef(tInt(), "f",
			[]ast.ParamDecl{
				param(tInt(), ast.IdentDecl{Name: "a"}),
				param(tInt(), ast.IdentDecl{Name: "b"}),
			},
			&ast.Return{X: &ast.Binary{Op: "+", L: id("a"), R: id("b")}},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "function $f(i32, i32) i32 {")
	assert.Contains(t, d, "store %a0, %1")
	assert.Contains(t, d, "store %a1, %2")
	assert.Contains(t, d, "%5 = add i32 %3, %4")
	assert.Contains(t, d, "ret %5")
}

func TestPointerIndex(t *testing.T) {
	u := genTest(t,
		fndef(tInt(), "g",
			[]ast.ParamDecl{
				param(tInt(), &ast.PtrDecl{Inner: ast.IdentDecl{Name: "p"}}),
			},
			&ast.Return{X: &ast.Index{X: id("p"), I: lit(2)}},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "function $g(ptr) i32 {")
	assert.Contains(t, d, "%3 = field [? x i32], %2, 2")
	assert.Contains(t, d, "%4 = load i32, %3")
	assert.Contains(t, d, "ret %4")
}

func structS() *ast.StructSpec {
	return &ast.StructSpec{
		Tag:     "S",
		HasBody: true,
		Fields: []ast.FieldDecl{
			{Specs: tInt(), Decls: []ast.Declarator{ast.IdentDecl{Name: "a"}}},
			{Specs: tInt(), Decls: []ast.Declarator{ast.IdentDecl{Name: "b"}}},
		},
	}
}

func TestStructReturn(t *testing.T) {
	u := genTest(t,
		&ast.Decl{Specs: []ast.Spec{structS()}},
		fndef([]ast.Spec{&ast.StructSpec{Tag: "S"}}, "h", nullary(),
			&ast.Decl{
				Specs: []ast.Spec{&ast.StructSpec{Tag: "S"}},
				Inits: []ast.InitDeclarator{{Decl: ast.IdentDecl{Name: "s"}}},
			},
			&ast.Return{X: id("s")},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "type %S = { i32, i32 } ; size 8 align 4")
	assert.Contains(t, d, "function $h(ptr) void {")
	assert.Contains(t, d, "call ptr $memcpy(%a0, %1, 8)")
	assert.Contains(t, d, "declare $memcpy(ptr, ptr, i64) ptr")
	assert.Contains(t, d, "\n  ret\n")
}

func TestSwitchFallthrough(t *testing.T) {
	u := genTest(t,
		fndef(tInt(), "k",
			[]ast.ParamDecl{param(tInt(), ast.IdentDecl{Name: "x"})},
			&ast.Switch{
				X: id("x"),
				Body: &ast.Compound{Items: []ast.Stmt{
					&ast.Case{X: lit(1), Body: &ast.Case{X: lit(2), Body: &ast.Return{X: lit(10)}}},
					&ast.Default{Body: &ast.Return{X: lit(20)}},
				}},
			},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "cmp eq %2, 1")
	assert.Contains(t, d, "cmp eq %2, 2")
	assert.Contains(t, d, "@switch.case\n")
	assert.Contains(t, d, "branch @switch.case1")
	assert.Contains(t, d, "@switch.default\n")
	assert.Contains(t, d, "ret 10")
	assert.Contains(t, d, "ret 20")
}

func TestShortCircuit(t *testing.T) {
	u := genTest(t,
		fndef(tInt(), "m",
			[]ast.ParamDecl{
				param(tInt(), ast.IdentDecl{Name: "a"}),
				param(tInt(), ast.IdentDecl{Name: "b"}),
			},
			&ast.Return{X: &ast.Binary{Op: "&&", L: id("a"), R: id("b")}},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "cond %4, @and.rhs, @and.after")
	assert.Contains(t, d, "@and.rhs\n")
	assert.Contains(t, d, "phi i32 [@entry, 0], [@and.rhs, %6]")
}

func TestDesignatedInit(t *testing.T) {
	u := genTest(t,
		&ast.Decl{
			Specs: []ast.Spec{&ast.StructSpec{
				Tag:     "P",
				HasBody: true,
				Fields: []ast.FieldDecl{
					{Specs: tInt(), Decls: []ast.Declarator{
						ast.IdentDecl{Name: "x"},
						ast.IdentDecl{Name: "y"},
						ast.IdentDecl{Name: "z"},
					}},
				},
			}},
			Inits: []ast.InitDeclarator{{
				Decl: ast.IdentDecl{Name: "p"},
				Init: &ast.BraceInit{Items: []ast.InitItem{
					{
						Designators: []ast.Designator{ast.FieldDesignator{Name: "z"}},
						Init:        &ast.ExprInit{X: lit(7)},
					},
					{
						Designators: []ast.Designator{ast.FieldDesignator{Name: "x"}},
						Init:        &ast.ExprInit{X: lit(1)},
					},
				}},
			}},
		},
	)

	d := u.Dump()

	assert.Contains(t, d, "data $p : %P = { 1, 0, 7 }")
}

func TestIfPhiFree(t *testing.T) {
	u := genTest(t,
		fndef(tInt(), "abs",
			[]ast.ParamDecl{param(tInt(), ast.IdentDecl{Name: "x"})},
			&ast.If{
				Cond: &ast.Binary{Op: "<", L: id("x"), R: lit(0)},
				Then: &ast.Return{X: &ast.Unary{Op: "-", X: id("x")}},
			},
			&ast.Return{X: id("x")},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "cmp lt")
	assert.Contains(t, d, "@if.then\n")
	assert.Contains(t, d, "@if.after\n")
	assert.Contains(t, d, "neg i32")
	assert.NotContains(t, d, "phi")
}

func TestWhileLoop(t *testing.T) {
	// int s(int n) { int r = 0; while (n) { r += n; n -= 1; } return r; }
	u := genTest(t,
		fndef(tInt(), "s",
			[]ast.ParamDecl{param(tInt(), ast.IdentDecl{Name: "n"})},
			&ast.Decl{Specs: tInt(), Inits: []ast.InitDeclarator{{
				Decl: ast.IdentDecl{Name: "r"},
				Init: &ast.ExprInit{X: lit(0)},
			}}},
			&ast.While{
				Cond: id("n"),
				Body: &ast.Compound{Items: []ast.Stmt{
					&ast.ExprStmt{X: &ast.Assign{Op: "+=", L: id("r"), R: id("n")}},
					&ast.ExprStmt{X: &ast.Assign{Op: "-=", L: id("n"), R: lit(1)}},
				}},
			},
			&ast.Return{X: id("r")},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "@while.ph\n")
	assert.Contains(t, d, "@while.body\n")
	assert.Contains(t, d, "@while.after\n")
	assert.Contains(t, d, "branch @while.ph")
	assert.Contains(t, d, "cond")
	assert.Contains(t, d, "sub i32")
}

func TestForLoop(t *testing.T) {
	u := genTest(t,
		fndef(tVoid(), "loop", nullary(),
			&ast.For{
				InitDecl: &ast.Decl{Specs: tInt(), Inits: []ast.InitDeclarator{{
					Decl: ast.IdentDecl{Name: "i"},
					Init: &ast.ExprInit{X: lit(0)},
				}}},
				Cond: &ast.Binary{Op: "<", L: id("i"), R: lit(10)},
				Post: &ast.IncDec{X: id("i"), Post: true},
				Body: &ast.Compound{},
			},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "@for.ph\n")
	assert.Contains(t, d, "@for.body\n")
	assert.Contains(t, d, "@for.update\n")
	assert.Contains(t, d, "@for.after\n")
	assert.Contains(t, d, "branch @for.ph")
}

func TestGotoFixup(t *testing.T) {
	u := genTest(t,
		fndef(tVoid(), "jump", nullary(),
			&ast.Goto{Label: "out"},
			&ast.Label{Name: "out", Body: &ast.Return{}},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "branch @out")
	assert.Contains(t, d, "@out\n")
	assert.NotContains(t, d, "@?")
}

func TestGotoUnknownLabel(t *testing.T) {
	err := genErr(t,
		fndef(tVoid(), "jump", nullary(),
			&ast.Goto{Label: "nowhere"},
		),
	)

	assert.Contains(t, err.Error(), "unknown label")
}

func TestBreakOutsideLoop(t *testing.T) {
	err := genErr(t,
		fndef(tVoid(), "f", nullary(), &ast.Break{}),
	)

	assert.Contains(t, err.Error(), "break outside")
}

func TestDuplicateCase(t *testing.T) {
	err := genErr(t,
		fndef(tVoid(), "f",
			[]ast.ParamDecl{param(tInt(), ast.IdentDecl{Name: "x"})},
			&ast.Switch{
				X: id("x"),
				Body: &ast.Compound{Items: []ast.Stmt{
					&ast.Case{X: lit(1), Body: &ast.Break{}},
					&ast.Case{X: lit(1), Body: &ast.Break{}},
				}},
			},
		),
	)

	assert.Contains(t, err.Error(), "duplicate case")
}

func TestUnknownIdentifier(t *testing.T) {
	err := genErr(t,
		fndef(tInt(), "f", nullary(), &ast.Return{X: id("nope")}),
	)

	assert.Contains(t, err.Error(), "unknown identifier")
}

func TestTernary(t *testing.T) {
	u := genTest(t,
		fndef(tInt(), "max",
			[]ast.ParamDecl{
				param(tInt(), ast.IdentDecl{Name: "a"}),
				param(tInt(), ast.IdentDecl{Name: "b"}),
			},
			&ast.Return{X: &ast.CondExpr{
				C: &ast.Binary{Op: ">", L: id("a"), R: id("b")},
				T: id("a"),
				F: id("b"),
			}},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "@ternary.then\n")
	assert.Contains(t, d, "@ternary.else\n")
	assert.Contains(t, d, "@ternary.after\n")
	assert.Contains(t, d, "phi i32 [@ternary.then,")
}

func TestVariadicCall(t *testing.T) {
	// int printf(const char *, ...); void f(void) { printf("%d", 1); }
	u := genTest(t,
		&ast.Decl{
			Specs: tInt(),
			Inits: []ast.InitDeclarator{{
				Decl: &ast.FuncDecl{
					Inner: ast.IdentDecl{Name: "printf"},
					Params: []ast.ParamDecl{
						param(
							[]ast.Spec{ast.Qual{Name: "const"}, ast.TypeWord{Name: "char"}},
							&ast.PtrDecl{Inner: ast.AbstractDecl{}},
						),
					},
					Variadic: true,
				},
			}},
		},
		fndef(tVoid(), "f", nullary(),
			&ast.ExprStmt{X: &ast.Call{
				Fn:   id("printf"),
				Args: []ast.Expr{&ast.StrLit{S: []byte("%d")}, lit(1)},
			}},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "declare $printf(ptr, ...) i32")
	assert.Contains(t, d, "data local $__string_literal_0 : [3 x i8] = [ 37, 100, 0 ]")
	assert.Contains(t, d, "call i32 $printf($__string_literal_0, 1)")
}

func TestStaticLinkage(t *testing.T) {
	u := genTest(t,
		&ast.Decl{
			Specs: append([]ast.Spec{ast.Storage{Name: "static"}}, tInt()...),
			Inits: []ast.InitDeclarator{{Decl: ast.IdentDecl{Name: "counter"}}},
		},
		&ast.FuncDef{
			Specs: append([]ast.Spec{ast.Storage{Name: "static"}}, tInt()...),
			Decl: &ast.FuncDecl{
				Inner: ast.IdentDecl{Name: "bump"},
			},
			Body: &ast.Compound{Items: []ast.Stmt{
				&ast.Return{X: &ast.IncDec{X: id("counter"), Post: true}},
			}},
		},
	)

	d := u.Dump()

	assert.Contains(t, d, "data local $counter : i32 = 0")
	assert.Contains(t, d, "function local $bump() i32 {")
}

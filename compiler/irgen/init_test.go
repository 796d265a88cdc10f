package irgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slowlang/scc/src/compiler/ast"
)

func gvar(sp []ast.Spec, d ast.Declarator, init ast.Init) *ast.Decl {
	return &ast.Decl{
		Specs: sp,
		Inits: []ast.InitDeclarator{{Decl: d, Init: init}},
	}
}

func TestGlobalConstExpr(t *testing.T) {
	u := genTest(t,
		gvar(tInt(), ast.IdentDecl{Name: "x"}, &ast.ExprInit{
			X: &ast.Binary{Op: "+", L: lit(1), R: &ast.Binary{Op: "*", L: lit(2), R: lit(3)}},
		}),
	)

	assert.Contains(t, u.Dump(), "data $x : i32 = 7")
}

func TestGlobalStringArray(t *testing.T) {
	u := genTest(t,
		gvar(tChar(),
			&ast.ArrayDecl{Inner: ast.IdentDecl{Name: "s"}},
			&ast.ExprInit{X: &ast.StrLit{S: []byte("hi")}},
		),
	)

	assert.Contains(t, u.Dump(), "data $s : [3 x i8] = [ 104, 105, 0 ]")
}

func TestArrayIndexDesignator(t *testing.T) {
	// int a[] = {1, [3] = 4};
	u := genTest(t,
		gvar(tInt(),
			&ast.ArrayDecl{Inner: ast.IdentDecl{Name: "a"}},
			&ast.BraceInit{Items: []ast.InitItem{
				{Init: &ast.ExprInit{X: lit(1)}},
				{
					Designators: []ast.Designator{&ast.IndexDesignator{X: lit(3)}},
					Init:        &ast.ExprInit{X: lit(4)},
				},
			}},
		),
	)

	assert.Contains(t, u.Dump(), "data $a : [4 x i32] = [ 1, 0, 0, 4 ]")
}

func TestAddressInit(t *testing.T) {
	u := genTest(t,
		gvar(tInt(), ast.IdentDecl{Name: "g"}, nil),
		gvar(tInt(),
			&ast.PtrDecl{Inner: ast.IdentDecl{Name: "p"}},
			&ast.ExprInit{X: &ast.Unary{Op: "&", X: id("g")}},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "data $g : i32 = 0")
	assert.Contains(t, d, "data $p : ptr = $g")
}

func TestEnumConst(t *testing.T) {
	u := genTest(t,
		&ast.Decl{Specs: []ast.Spec{&ast.EnumSpec{
			HasBody: true,
			Items: []ast.Enumerator{
				{Name: "A", Value: lit(1)},
				{Name: "B"},
			},
		}}},
		gvar(tInt(), ast.IdentDecl{Name: "e"}, &ast.ExprInit{X: id("B")}),
	)

	assert.Contains(t, u.Dump(), "data $e : i32 = 2")
}

func TestTypedef(t *testing.T) {
	u := genTest(t,
		&ast.Decl{
			Specs: append([]ast.Spec{ast.Storage{Name: "typedef"}}, tInt()...),
			Inits: []ast.InitDeclarator{{Decl: ast.IdentDecl{Name: "myint"}}},
		},
		gvar([]ast.Spec{ast.TypeWord{Name: "myint"}}, ast.IdentDecl{Name: "v"}, nil),
	)

	assert.Contains(t, u.Dump(), "data $v : i32 = 0")
}

func TestSizeofInit(t *testing.T) {
	u := genTest(t,
		gvar(tInt(), ast.IdentDecl{Name: "z"}, &ast.ExprInit{
			X: &ast.SizeofType{Type: ast.TypeName{Specs: tInt(), Decl: ast.AbstractDecl{}}},
		}),
	)

	assert.Contains(t, u.Dump(), "data $z : i32 = 4")
}

func TestSparseLocalInit(t *testing.T) {
	// void f(void) { int a[4] = {1, 2}; }
	u := genTest(t,
		fndef(tVoid(), "f", nullary(),
			&ast.Decl{
				Specs: tInt(),
				Inits: []ast.InitDeclarator{{
					Decl: &ast.ArrayDecl{Inner: ast.IdentDecl{Name: "a"}, Len: lit(4)},
					Init: &ast.BraceInit{Items: []ast.InitItem{
						{Init: &ast.ExprInit{X: lit(1)}},
						{Init: &ast.ExprInit{X: lit(2)}},
					}},
				}},
			},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "call ptr $memset(%1, 0, 16)")
	assert.Contains(t, d, "field [4 x i32], %1, 0")
	assert.Contains(t, d, "store 1, %3")
	assert.Contains(t, d, "field [4 x i32], %1, 1")
	assert.Contains(t, d, "store 2, %4")
}

func TestFullLocalInitSkipsMemset(t *testing.T) {
	u := genTest(t,
		fndef(tVoid(), "f", nullary(),
			&ast.Decl{
				Specs: tInt(),
				Inits: []ast.InitDeclarator{{
					Decl: &ast.ArrayDecl{Inner: ast.IdentDecl{Name: "a"}, Len: lit(2)},
					Init: &ast.BraceInit{Items: []ast.InitItem{
						{Init: &ast.ExprInit{X: lit(1)}},
						{Init: &ast.ExprInit{X: lit(2)}},
					}},
				}},
			},
		),
	)

	assert.NotContains(t, u.Dump(), "memset")
}

func TestStaticLocal(t *testing.T) {
	u := genTest(t,
		fndef(tInt(), "f", nullary(),
			&ast.Decl{
				Specs: append([]ast.Spec{ast.Storage{Name: "static"}}, tInt()...),
				Inits: []ast.InitDeclarator{{
					Decl: ast.IdentDecl{Name: "n"},
					Init: &ast.ExprInit{X: lit(3)},
				}},
			},
			&ast.Return{X: id("n")},
		),
	)

	d := u.Dump()

	assert.Contains(t, d, "data local $n.1 : i32 = 3")
	assert.Contains(t, d, "load i32, $n.1")
}

func TestNonConstGlobalInit(t *testing.T) {
	err := genErr(t,
		gvar(tInt(), ast.IdentDecl{Name: "x"}, &ast.ExprInit{
			X: &ast.Call{Fn: id("f")},
		}),
	)

	assert.Contains(t, err.Error(), "constant")
}

func TestTooManyInitializers(t *testing.T) {
	err := genErr(t,
		gvar(tInt(),
			&ast.ArrayDecl{Inner: ast.IdentDecl{Name: "a"}, Len: lit(1)},
			&ast.BraceInit{Items: []ast.InitItem{
				{Init: &ast.ExprInit{X: lit(1)}},
				{Init: &ast.ExprInit{X: lit(2)}},
			}},
		),
	)

	assert.Contains(t, err.Error(), "too many initializers")
}

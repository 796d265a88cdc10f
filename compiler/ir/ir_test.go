package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBasics(t *testing.T) {
	u := NewUnit()
	g := u.AddFunc("f", External, I32, []*Type{I32}, false)

	b := &Builder{Unit: u, Fn: g.Func}
	b.AddBlock("entry")

	l := b.Local(I32)
	b.Store(l, Arg{Typ: I32, Index: 0})
	v := b.Load(l, I32)
	s := b.Bin(OpAdd, v, Imm{Typ: I32, X: 1})
	b.Ret(s)

	require.Len(t, g.Func.Blocks, 1)
	blk := g.Func.Blocks[0]
	require.True(t, blk.Terminated())

	dump := u.Dump()
	assert.Contains(t, dump, "function $f(i32) i32 {")
	assert.Contains(t, dump, "@entry")
	assert.Contains(t, dump, "%1 = local i32")
	assert.Contains(t, dump, "store %a0, %1")
	assert.Contains(t, dump, "%2 = load i32, %1")
	assert.Contains(t, dump, "%3 = add i32 %2, 1")
	assert.Contains(t, dump, "ret %3")
}

func TestBlockNamesUnique(t *testing.T) {
	u := NewUnit()
	g := u.AddFunc("f", External, VoidType, nil, false)

	b := &Builder{Unit: u, Fn: g.Func}
	e := b.AddBlock("entry")
	t1 := b.NewBlock("if.then")
	t2 := b.NewBlock("if.then")

	assert.Equal(t, "if.then", t1.Name)
	assert.Equal(t, "if.then1", t2.Name)
	assert.Equal(t, "entry", e.Name)
}

func TestLateAppend(t *testing.T) {
	u := NewUnit()
	g := u.AddFunc("f", External, VoidType, nil, false)

	b := &Builder{Unit: u, Fn: g.Func}
	b.AddBlock("entry")

	after := b.NewBlock("while.after")
	body := b.NewBlock("while.body")

	b.EnterBlock(body)
	b.Branch(after)
	b.EnterBlock(after)
	b.RetVoid()

	require.Len(t, g.Func.Blocks, 3)
	assert.Equal(t, "entry", g.Func.Blocks[0].Name)
	assert.Equal(t, "while.body", g.Func.Blocks[1].Name)
	assert.Equal(t, "while.after", g.Func.Blocks[2].Name)
}

func TestPhiDump(t *testing.T) {
	u := NewUnit()
	g := u.AddFunc("f", External, I32, nil, false)

	b := &Builder{Unit: u, Fn: g.Func}
	e := b.AddBlock("entry")
	j := b.AddBlock("join")

	phi := b.Phi(I32, 2)
	PhiSet(phi, 0, e, Imm{Typ: I32, X: 0})
	PhiSet(phi, 1, j, Imm{Typ: I32, X: 1})
	b.Ret(phi)

	assert.Contains(t, u.Dump(), "phi i32 [@entry, 0], [@join, 1]")
}

func TestGlobalRedefinitionKeepsHandle(t *testing.T) {
	u := NewUnit()

	decl := u.AddFunc("f", Extern, I32, nil, false)
	def := u.AddFunc("f", External, I32, nil, false)

	assert.Same(t, decl, def)
	assert.Len(t, u.Globals, 1)
	assert.Equal(t, External, def.Linkage)
}

func TestBuiltins(t *testing.T) {
	u := NewUnit()
	g := u.AddFunc("f", External, VoidType, nil, false)

	b := &Builder{Unit: u, Fn: g.Func}
	b.AddBlock("entry")

	p := b.Local(I64)
	q := b.Local(I64)
	b.Memset(p, 0, 8)
	b.Memcpy(p, q, 8)
	b.RetVoid()

	require.NotNil(t, u.Lookup("memset"))
	require.NotNil(t, u.Lookup("memcpy"))

	dump := u.Dump()
	assert.Contains(t, dump, "declare $memset(ptr, i32, i64) ptr")
	assert.Contains(t, dump, "call ptr $memcpy(%1, %2, 8)")
}

func TestConsts(t *testing.T) {
	u := NewUnit()

	at := ArrayType(I32, 3)
	g := u.AddVar("g", External, at)
	g.Init = ArrayConst(at, []*Const{
		IntConst(I32, 1),
		IntConst(I32, 0),
		IntConst(I32, 7),
	})

	assert.Contains(t, u.Dump(), "data $g : [3 x i32] = [ 1, 0, 7 ]")

	z := ZeroConst(at)
	require.Len(t, z.Elems, 3)
	assert.Equal(t, int64(0), z.Elems[2].X)
}

func TestTypeSizes(t *testing.T) {
	u := NewUnit()

	assert.Equal(t, 4, I32.Size())
	assert.Equal(t, 8, PtrType.Size())
	assert.Equal(t, 12, ArrayType(I32, 3).Size())

	s := u.AddStruct("S", []*Type{I32, I32}, []int{0, 4}, 8, 4)
	assert.Equal(t, 8, s.Size())
	assert.Equal(t, 4, s.Align())
	assert.Equal(t, "%S", s.String())
}

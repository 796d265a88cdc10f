package ctype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntern(t *testing.T) {
	e := NewEnv()

	assert.Same(t, e.IntType(), e.Int(Int, true))
	assert.Same(t, e.SizeT(), e.Int(Long, false))
	assert.Same(t, e.Pointer(e.Char()), e.Pointer(e.Char()))
	assert.NotSame(t, e.Pointer(e.Char()), e.Pointer(e.IntType()))
}

func TestSizes(t *testing.T) {
	e := NewEnv()

	assert.Equal(t, 1, e.Char().Size())
	assert.Equal(t, 2, e.Int(Short, true).Size())
	assert.Equal(t, 4, e.IntType().Size())
	assert.Equal(t, 8, e.Long().Size())
	assert.Equal(t, 8, e.LongLong().Size())
	assert.Equal(t, 8, e.Pointer(e.void).Size())
	assert.Equal(t, 12, e.Array(e.IntType(), 3).Size())
}

func TestStructLayout(t *testing.T) {
	e := NewEnv()

	s := e.DeclareTag("point", false)
	require.False(t, s.Complete())

	Complete(s, []Field{
		{Name: "c", Type: e.Char()},
		{Name: "x", Type: e.IntType()},
		{Name: "p", Type: e.Pointer(e.Char())},
	}, false)

	require.True(t, s.Complete())
	assert.Equal(t, 0, s.Fields[0].Offset)
	assert.Equal(t, 4, s.Fields[1].Offset)
	assert.Equal(t, 8, s.Fields[2].Offset)
	assert.Equal(t, 16, s.Size())
	assert.Equal(t, 8, s.Align())

	again := e.DeclareTag("point", false)
	assert.Same(t, s, again)
}

func TestPackedLayout(t *testing.T) {
	e := NewEnv()

	s := e.Anonymous(false)
	Complete(s, []Field{
		{Name: "c", Type: e.Char()},
		{Name: "x", Type: e.IntType()},
	}, true)

	assert.Equal(t, 0, s.Fields[0].Offset)
	assert.Equal(t, 1, s.Fields[1].Offset)
	assert.Equal(t, 5, s.Size())
	assert.Equal(t, 1, s.Align())
}

func TestUnionLayout(t *testing.T) {
	e := NewEnv()

	u := e.DeclareTag("v", true)
	Complete(u, []Field{
		{Name: "c", Type: e.Char()},
		{Name: "l", Type: e.Long()},
	}, false)

	assert.Equal(t, 0, u.Fields[0].Offset)
	assert.Equal(t, 0, u.Fields[1].Offset)
	assert.Equal(t, 8, u.Size())
	assert.Equal(t, 8, u.Align())
}

func TestArrayCompletion(t *testing.T) {
	e := NewEnv()

	a := e.IncompleteArray(e.Char())
	require.False(t, a.Complete())

	SetArrayLength(a, 6)
	require.True(t, a.Complete())
	assert.Equal(t, 6, a.Size())

	assert.Panics(t, func() { SetArrayLength(a, 7) })
}

func TestDecay(t *testing.T) {
	e := NewEnv()

	a := e.Array(e.IntType(), 4)
	assert.Same(t, e.Pointer(e.IntType()), e.Decay(a))

	f := e.Func(e.IntType(), nil, false)
	assert.Same(t, e.Pointer(f), e.Decay(f))

	assert.Same(t, e.IntType(), e.Decay(e.IntType()))
}

func TestEq(t *testing.T) {
	e := NewEnv()

	assert.True(t, Eq(e.Pointer(e.Char()), e.Pointer(e.Char())))
	assert.False(t, Eq(e.Char(), e.Int(Char, false)))

	f1 := e.Func(e.void, []*Type{e.IntType()}, false)
	f2 := e.Func(e.void, []*Type{e.IntType()}, false)
	assert.True(t, Eq(f1, f2))

	f3 := e.Func(e.void, []*Type{e.IntType()}, true)
	assert.False(t, Eq(f1, f3))
}

func TestString(t *testing.T) {
	e := NewEnv()

	assert.Equal(t, "unsigned long", e.SizeT().String())
	assert.Equal(t, "char*", e.Pointer(e.Char()).String())
	assert.Equal(t, "int[4]", e.Array(e.IntType(), 4).String())

	s := e.DeclareTag("node", false)
	assert.Equal(t, "struct node", s.String())

	f := e.Func(e.IntType(), []*Type{e.Pointer(e.Char())}, true)
	assert.Equal(t, "int (char*, ...)", f.String())
}

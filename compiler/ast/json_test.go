package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFunc(t *testing.T) {
	data := []byte(`[
		{"t": "funcdef",
		 "specs": [{"t": "type", "name": "int"}],
		 "decl": {"t": "func",
			"inner": {"t": "ident", "name": "f"},
			"params": [
				{"specs": [{"t": "type", "name": "int"}],
				 "decl": {"t": "ident", "name": "x"}}
			]},
		 "body": {"t": "compound", "items": [
			{"t": "return",
			 "x": {"t": "binary", "op": "+",
				"l": {"t": "ident", "name": "x"},
				"r": {"t": "int", "x": 1}}}
		 ]}}
	]`)

	tl, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, tl, 1)

	fd, ok := tl[0].(*FuncDef)
	require.True(t, ok)

	require.Len(t, fd.Specs, 1)
	assert.Equal(t, TypeWord{Name: "int"}, fd.Specs[0])

	fdecl, ok := fd.Decl.(*FuncDecl)
	require.True(t, ok)
	assert.Equal(t, IdentDecl{Name: "f"}, fdecl.Inner)
	require.Len(t, fdecl.Params, 1)

	require.Len(t, fd.Body.Items, 1)
	ret, ok := fd.Body.Items[0].(*Return)
	require.True(t, ok)

	bin, ok := ret.X.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, &IntLit{X: 1}, bin.R)
}

func TestDecodeDecl(t *testing.T) {
	data := []byte(`[
		{"t": "decl",
		 "specs": [
			{"t": "struct", "tag": "P", "has_body": true, "fields": [
				{"specs": [{"t": "type", "name": "int"}],
				 "decls": [{"t": "ident", "name": "x"}, {"t": "ident", "name": "y"}]}
			]}
		 ],
		 "inits": [
			{"decl": {"t": "ident", "name": "p"},
			 "init": {"t": "brace", "items": [
				{"designators": [{"t": "field", "name": "y"}],
				 "init": {"t": "expr", "x": {"t": "int", "x": 7}}}
			 ]}}
		 ]}
	]`)

	tl, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, tl, 1)

	d, ok := tl[0].(*Decl)
	require.True(t, ok)

	ss, ok := d.Specs[0].(*StructSpec)
	require.True(t, ok)
	assert.Equal(t, "P", ss.Tag)
	assert.True(t, ss.HasBody)
	require.Len(t, ss.Fields, 1)
	assert.Len(t, ss.Fields[0].Decls, 2)

	require.Len(t, d.Inits, 1)
	bi, ok := d.Inits[0].Init.(*BraceInit)
	require.True(t, ok)
	require.Len(t, bi.Items, 1)
	assert.Equal(t, FieldDesignator{Name: "y"}, bi.Items[0].Designators[0])
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`[{"t": "nonsense"}]`))
	require.Error(t, err)

	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}

package ir

import (
	"fmt"
)

type (
	TypeKind uint8

	// Type is an IR-level type. Integers carry a width, pointers are
	// opaque, arrays and aggregates carry layout. Aggregate types are
	// registered on the Unit so the dump can print their layout once.
	Type struct {
		Kind TypeKind

		Bits int // Int

		Elem       *Type // Arr
		Len        int64
		Incomplete bool

		Name    string // Aggr
		Fields  []*Type
		Offsets []int
		size    int
		align   int
	}

	// Value is anything an instruction can take as an operand:
	// immediates, function arguments, global addresses, and results
	// of value-producing instructions.
	Value interface {
		Type() *Type
	}

	Imm struct {
		Typ *Type
		X   int64
	}

	Arg struct {
		Typ   *Type
		Index int
	}

	Linkage uint8

	Global struct {
		Name    string
		Linkage Linkage

		Typ  *Type // contents type for vars, unused for funcs
		Init *Const

		Func *Func // non-nil for functions
	}

	// Const is a static initializer tree. Exactly one payload group is
	// used, selected by Typ's kind: integers carry X, pointers may
	// carry Ref, arrays and aggregates carry Elems.
	Const struct {
		Typ   *Type
		X     int64
		Ref   *Global
		Elems []*Const
	}

	Func struct {
		Name     string
		Ret      *Type
		Params   []*Type
		Variadic bool

		Blocks []*Block

		nreg   int
		nblock map[string]int
	}

	Block struct {
		Name   string
		Instrs []*Instr
	}

	Op uint8

	Cmp uint8

	Instr struct {
		Op   Op
		Typ  *Type // result type; nil or VoidType for instructions without a result
		Args []Value

		Cmp Cmp // OpCmp

		Aux   *Type // OpLocal: contents type, OpField: aggregate type
		Index int   // OpField: field or element index

		Blocks []*Block // branch: 1 target, cond: 2, phi: predecessors

		ID int // register number, assigned by the builder
	}

	// Unit is one translation unit's worth of IR.
	Unit struct {
		Globals []*Global
		Structs []*Type

		byName map[string]*Global
	}
)

const (
	Void TypeKind = iota
	Int
	Ptr
	Arr
	Aggr
)

const (
	External Linkage = iota
	Internal
	Extern // declared here, defined elsewhere
)

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpUDiv
	OpRem
	OpURem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpNeg
	OpNot

	OpTrunc
	OpZext
	OpSext
	OpCast // bit-identical retype between ptr and i64

	OpLocal
	OpLoad
	OpStore
	OpField

	OpCmp
	OpPhi
	OpCall
	OpVaStart

	OpBranch
	OpCond
	OpRet
	OpRetVoid
)

const (
	CmpEq Cmp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpULt
	CmpULe
	CmpUGt
	CmpUGe
)

const ptrSize = 8

var (
	VoidType = &Type{Kind: Void}
	PtrType  = &Type{Kind: Ptr}

	I8  = &Type{Kind: Int, Bits: 8}
	I16 = &Type{Kind: Int, Bits: 16}
	I32 = &Type{Kind: Int, Bits: 32}
	I64 = &Type{Kind: Int, Bits: 64}
)

func IntType(bits int) *Type {
	switch bits {
	case 8:
		return I8
	case 16:
		return I16
	case 32:
		return I32
	case 64:
		return I64
	}

	panic(bits)
}

func ArrayType(elem *Type, n int64) *Type {
	return &Type{Kind: Arr, Elem: elem, Len: n}
}

func IncompleteArrayType(elem *Type) *Type {
	return &Type{Kind: Arr, Elem: elem, Incomplete: true}
}

// SetArrayLen completes an array type whose length was inferred from
// an initializer.
func SetArrayLen(t *Type, n int64) {
	if t.Kind != Arr {
		panic(t.Kind)
	}

	t.Len = n
	t.Incomplete = false
}

func (t *Type) Size() int {
	switch t.Kind {
	case Void:
		return 0
	case Int:
		return t.Bits / 8
	case Ptr:
		return ptrSize
	case Arr:
		return t.Elem.Size() * int(t.Len)
	case Aggr:
		return t.size
	}

	panic(t.Kind)
}

func (t *Type) Align() int {
	switch t.Kind {
	case Void:
		return 1
	case Int:
		return t.Bits / 8
	case Ptr:
		return ptrSize
	case Arr:
		return t.Elem.Align()
	case Aggr:
		return t.align
	}

	panic(t.Kind)
}

func (x Imm) Type() *Type     { return x.Typ }
func (a Arg) Type() *Type     { return a.Typ }
func (g *Global) Type() *Type { return PtrType }
func (i *Instr) Type() *Type  { return i.Typ }

func NewUnit() *Unit {
	return &Unit{byName: map[string]*Global{}}
}

func (u *Unit) Lookup(name string) *Global {
	return u.byName[name]
}

func NewFunc(name string, ret *Type, params []*Type, variadic bool) *Func {
	return &Func{
		Name:     name,
		Ret:      ret,
		Params:   params,
		Variadic: variadic,
		nblock:   map[string]int{},
	}
}

func (u *Unit) AddFunc(name string, lk Linkage, ret *Type, params []*Type, variadic bool) *Global {
	return u.add(&Global{
		Name:    name,
		Linkage: lk,
		Func:    NewFunc(name, ret, params, variadic),
	})
}

func (u *Unit) AddVar(name string, lk Linkage, t *Type) *Global {
	return u.add(&Global{Name: name, Linkage: lk, Typ: t})
}

// add registers a global, keeping the handle stable when an extern
// declaration precedes the definition.
func (u *Unit) add(g *Global) *Global {
	if old, ok := u.byName[g.Name]; ok {
		*old = *g

		return old
	}

	u.Globals = append(u.Globals, g)
	u.byName[g.Name] = g

	return g
}

// AddStruct registers a named aggregate type with the unit.
func (u *Unit) AddStruct(name string, fields []*Type, offsets []int, size, align int) *Type {
	t := &Type{
		Kind:    Aggr,
		Name:    name,
		Fields:  fields,
		Offsets: offsets,
		size:    size,
		align:   align,
	}

	u.Structs = append(u.Structs, t)

	return t
}

func IntConst(t *Type, x int64) *Const        { return &Const{Typ: t, X: x} }
func GlobalConst(g *Global) *Const            { return &Const{Typ: PtrType, Ref: g} }
func ArrayConst(t *Type, el []*Const) *Const  { return &Const{Typ: t, Elems: el} }
func StructConst(t *Type, el []*Const) *Const { return &Const{Typ: t, Elems: el} }

// ZeroConst is the all-zero value of t, recursing into aggregates.
func ZeroConst(t *Type) *Const {
	switch t.Kind {
	case Int, Ptr:
		return &Const{Typ: t}
	case Arr:
		el := make([]*Const, t.Len)
		for i := range el {
			el[i] = ZeroConst(t.Elem)
		}

		return &Const{Typ: t, Elems: el}
	case Aggr:
		el := make([]*Const, len(t.Fields))
		for i := range el {
			el[i] = ZeroConst(t.Fields[i])
		}

		return &Const{Typ: t, Elems: el}
	}

	panic(fmt.Sprintf("zero of %v", t))
}

package ctype

import (
	"fmt"
	"strings"
)

type (
	Kind uint8

	Rank uint8

	// Type is one C type node. Nodes are allocated once per Env and
	// referenced by pointer, so identity comparison is meaningful for
	// interned types (builtins, cached pointer types).
	Type struct {
		Kind Kind

		// Integer
		Rank   Rank
		Signed bool

		// Pointer
		Pointee *Type

		// Array
		Elem       *Type
		Len        int64
		Incomplete bool // also Struct

		// Struct / union
		Tag    string
		Fields []Field
		Union  bool
		Packed bool
		size   int
		align  int

		// Function
		Ret      *Type
		Params   []*Type
		Variadic bool

		ptr *Type // cached pointer-to-this
	}

	Field struct {
		Name   string
		Type   *Type
		Offset int
	}
)

const (
	Void Kind = iota
	Integer
	Pointer
	Array
	Struct
	Function
)

const (
	Char Rank = iota
	Short
	Int
	Long
	LongLong
)

const ptrSize = 8

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Integer:
		return "integer"
	case Pointer:
		return "pointer"
	case Array:
		return "array"
	case Struct:
		return "struct"
	case Function:
		return "function"
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Size is the storage size in bytes. Incomplete types have no size;
// callers must check Complete first.
func (t *Type) Size() int {
	switch t.Kind {
	case Void:
		return 0
	case Integer:
		return t.Rank.size()
	case Pointer, Function:
		return ptrSize
	case Array:
		return t.Elem.Size() * int(t.Len)
	case Struct:
		return t.size
	}

	panic(t.Kind)
}

func (t *Type) Align() int {
	switch t.Kind {
	case Void:
		return 1
	case Integer:
		return t.Rank.size()
	case Pointer, Function:
		return ptrSize
	case Array:
		return t.Elem.Align()
	case Struct:
		return t.align
	}

	panic(t.Kind)
}

func (r Rank) size() int {
	switch r {
	case Char:
		return 1
	case Short:
		return 2
	case Int:
		return 4
	case Long, LongLong:
		return 8
	}

	panic(r)
}

func (t *Type) Complete() bool {
	switch t.Kind {
	case Array, Struct:
		return !t.Incomplete
	}

	return true
}

// NumFields is the number of initializable slots: fields for a struct,
// elements for an array.
func (t *Type) NumFields() int {
	switch t.Kind {
	case Struct:
		return len(t.Fields)
	case Array:
		return int(t.Len)
	}

	panic(t.Kind)
}

func (t *Type) FieldByName(name string) (Field, int, bool) {
	for i, f := range t.Fields {
		if f.Name == name {
			return f, i, true
		}
	}

	return Field{}, 0, false
}

// Eq is structural equality. Struct types compare by node identity
// since tagged types are interned per Env.
func Eq(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case Void:
		return true
	case Integer:
		return a.Rank == b.Rank && a.Signed == b.Signed
	case Pointer:
		return Eq(a.Pointee, b.Pointee)
	case Array:
		return a.Len == b.Len && a.Incomplete == b.Incomplete && Eq(a.Elem, b.Elem)
	case Struct:
		return false
	case Function:
		if len(a.Params) != len(b.Params) || a.Variadic != b.Variadic || !Eq(a.Ret, b.Ret) {
			return false
		}

		for i := range a.Params {
			if !Eq(a.Params[i], b.Params[i]) {
				return false
			}
		}

		return true
	}

	return false
}

func (t *Type) String() string {
	switch t.Kind {
	case Void:
		return "void"
	case Integer:
		var b strings.Builder

		if !t.Signed {
			b.WriteString("unsigned ")
		}

		switch t.Rank {
		case Char:
			b.WriteString("char")
		case Short:
			b.WriteString("short")
		case Int:
			b.WriteString("int")
		case Long:
			b.WriteString("long")
		case LongLong:
			b.WriteString("long long")
		}

		return b.String()
	case Pointer:
		return t.Pointee.String() + "*"
	case Array:
		if t.Incomplete {
			return t.Elem.String() + "[]"
		}

		return fmt.Sprintf("%v[%d]", t.Elem, t.Len)
	case Struct:
		kw := "struct"
		if t.Union {
			kw = "union"
		}

		if t.Tag != "" {
			return kw + " " + t.Tag
		}

		return kw
	case Function:
		var b strings.Builder

		b.WriteString(t.Ret.String())
		b.WriteString(" (")

		for i, p := range t.Params {
			if i != 0 {
				b.WriteString(", ")
			}

			b.WriteString(p.String())
		}

		if t.Variadic {
			if len(t.Params) != 0 {
				b.WriteString(", ")
			}

			b.WriteString("...")
		}

		b.WriteString(")")

		return b.String()
	}

	return t.Kind.String()
}

func AlignTo(x, align int) int {
	if align <= 1 {
		return x
	}

	return (x + align - 1) / align * align
}

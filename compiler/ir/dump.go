package ir

import (
	"fmt"
	"strings"
)

// Dump renders the translation unit in a stable textual form used by
// the CLI output and by tests.
func (u *Unit) Dump() string {
	var b strings.Builder

	for _, t := range u.Structs {
		fmt.Fprintf(&b, "type %v = {", t)

		for i, f := range t.Fields {
			if i != 0 {
				b.WriteString(",")
			}

			fmt.Fprintf(&b, " %v", f)
		}

		fmt.Fprintf(&b, " } ; size %d align %d\n", t.Size(), t.Align())
	}

	for _, g := range u.Globals {
		if g.Func != nil {
			continue
		}

		g.dumpVar(&b)
	}

	for _, g := range u.Globals {
		if g.Func == nil {
			continue
		}

		g.dumpFunc(&b)
	}

	return b.String()
}

func (g *Global) dumpVar(b *strings.Builder) {
	if g.Linkage == Extern {
		fmt.Fprintf(b, "extern $%s : %v\n", g.Name, g.Typ)
		return
	}

	b.WriteString("data ")

	if g.Linkage == Internal {
		b.WriteString("local ")
	}

	fmt.Fprintf(b, "$%s : %v = %s\n", g.Name, g.Typ, g.Init.String())
}

func (g *Global) dumpFunc(b *strings.Builder) {
	f := g.Func

	if g.Linkage == Extern || len(f.Blocks) == 0 {
		fmt.Fprintf(b, "declare $%s%s\n", g.Name, f.signature())
		return
	}

	b.WriteString("function ")

	if g.Linkage == Internal {
		b.WriteString("local ")
	}

	fmt.Fprintf(b, "$%s%s {\n", g.Name, f.signature())

	for _, blk := range f.Blocks {
		fmt.Fprintf(b, "@%s\n", blk.Name)

		for _, in := range blk.Instrs {
			b.WriteString("  ")
			b.WriteString(in.String())
			b.WriteString("\n")
		}
	}

	b.WriteString("}\n")
}

func (f *Func) signature() string {
	var b strings.Builder

	b.WriteString("(")

	for i, p := range f.Params {
		if i != 0 {
			b.WriteString(", ")
		}

		fmt.Fprintf(&b, "%v", p)
	}

	if f.Variadic {
		if len(f.Params) != 0 {
			b.WriteString(", ")
		}

		b.WriteString("...")
	}

	fmt.Fprintf(&b, ") %v", f.Ret)

	return b.String()
}

func (t *Type) String() string {
	if t == nil {
		return "void"
	}

	switch t.Kind {
	case Void:
		return "void"
	case Int:
		return fmt.Sprintf("i%d", t.Bits)
	case Ptr:
		return "ptr"
	case Arr:
		if t.Incomplete {
			return fmt.Sprintf("[? x %v]", t.Elem)
		}

		return fmt.Sprintf("[%d x %v]", t.Len, t.Elem)
	case Aggr:
		return "%" + t.Name
	}

	return fmt.Sprintf("type(%d)", int(t.Kind))
}

func (c *Const) String() string {
	switch {
	case c.Typ.Kind == Int:
		return fmt.Sprintf("%d", c.X)
	case c.Typ.Kind == Ptr && c.Ref != nil:
		return "$" + c.Ref.Name
	case c.Typ.Kind == Ptr:
		return "null"
	}

	var b strings.Builder

	op, cl := "{", "}"
	if c.Typ.Kind == Arr {
		op, cl = "[", "]"
	}

	b.WriteString(op)

	for i, e := range c.Elems {
		if i != 0 {
			b.WriteString(",")
		}

		b.WriteString(" ")
		b.WriteString(e.String())
	}

	b.WriteString(" ")
	b.WriteString(cl)

	return b.String()
}

func operand(v Value) string {
	switch x := v.(type) {
	case nil:
		return "?"
	case Imm:
		return fmt.Sprintf("%d", x.X)
	case Arg:
		return fmt.Sprintf("%%a%d", x.Index)
	case *Global:
		return "$" + x.Name
	case *Instr:
		return fmt.Sprintf("%%%d", x.ID)
	}

	panic(fmt.Sprintf("operand %T", v))
}

func blockRef(blk *Block) string {
	if blk == nil {
		return "@?"
	}

	return "@" + blk.Name
}

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpUDiv:
		return "udiv"
	case OpRem:
		return "rem"
	case OpURem:
		return "urem"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpShr:
		return "shr"
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	case OpTrunc:
		return "trunc"
	case OpZext:
		return "zext"
	case OpSext:
		return "sext"
	case OpCast:
		return "cast"
	case OpLocal:
		return "local"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpField:
		return "field"
	case OpCmp:
		return "cmp"
	case OpPhi:
		return "phi"
	case OpCall:
		return "call"
	case OpVaStart:
		return "va_start"
	case OpBranch:
		return "branch"
	case OpCond:
		return "cond"
	case OpRet:
		return "ret"
	case OpRetVoid:
		return "ret"
	}

	return fmt.Sprintf("op(%d)", int(o))
}

func (c Cmp) String() string {
	switch c {
	case CmpEq:
		return "eq"
	case CmpNe:
		return "ne"
	case CmpLt:
		return "lt"
	case CmpLe:
		return "le"
	case CmpGt:
		return "gt"
	case CmpGe:
		return "ge"
	case CmpULt:
		return "ult"
	case CmpULe:
		return "ule"
	case CmpUGt:
		return "ugt"
	case CmpUGe:
		return "uge"
	}

	return fmt.Sprintf("cmp(%d)", int(c))
}

func (i *Instr) String() string {
	switch i.Op {
	case OpLocal:
		return fmt.Sprintf("%%%d = local %v", i.ID, i.Aux)
	case OpLoad:
		return fmt.Sprintf("%%%d = load %v, %s", i.ID, i.Typ, operand(i.Args[0]))
	case OpStore:
		return fmt.Sprintf("store %s, %s", operand(i.Args[1]), operand(i.Args[0]))
	case OpField:
		return fmt.Sprintf("%%%d = field %v, %s, %d", i.ID, i.Aux, operand(i.Args[0]), i.Index)
	case OpCmp:
		return fmt.Sprintf("%%%d = cmp %v %s, %s", i.ID, i.Cmp, operand(i.Args[0]), operand(i.Args[1]))
	case OpPhi:
		var b strings.Builder

		fmt.Fprintf(&b, "%%%d = phi %v", i.ID, i.Typ)

		for j := range i.Args {
			if j != 0 {
				b.WriteString(",")
			}

			fmt.Fprintf(&b, " [%s, %s]", blockRef(i.Blocks[j]), operand(i.Args[j]))
		}

		return b.String()
	case OpCall:
		var b strings.Builder

		if i.Typ != nil && i.Typ.Kind != Void {
			fmt.Fprintf(&b, "%%%d = ", i.ID)
		}

		fmt.Fprintf(&b, "call %v %s(", i.Typ, operand(i.Args[0]))

		for j, a := range i.Args[1:] {
			if j != 0 {
				b.WriteString(", ")
			}

			b.WriteString(operand(a))
		}

		b.WriteString(")")

		return b.String()
	case OpVaStart:
		return fmt.Sprintf("va_start %s", operand(i.Args[0]))
	case OpBranch:
		return fmt.Sprintf("branch %s", blockRef(i.Blocks[0]))
	case OpCond:
		return fmt.Sprintf("cond %s, %s, %s", operand(i.Args[0]), blockRef(i.Blocks[0]), blockRef(i.Blocks[1]))
	case OpRet:
		return fmt.Sprintf("ret %s", operand(i.Args[0]))
	case OpRetVoid:
		return "ret"
	case OpTrunc, OpZext, OpSext, OpCast:
		return fmt.Sprintf("%%%d = %v %v %s", i.ID, i.Op, i.Typ, operand(i.Args[0]))
	case OpNeg, OpNot:
		return fmt.Sprintf("%%%d = %v %v %s", i.ID, i.Op, i.Typ, operand(i.Args[0]))
	}

	// binary ops
	return fmt.Sprintf("%%%d = %v %v %s, %s", i.ID, i.Op, i.Typ, operand(i.Args[0]), operand(i.Args[1]))
}

package irgen

import (
	"tlog.app/go/errors"

	"github.com/slowlang/scc/src/compiler/ast"
	"github.com/slowlang/scc/src/compiler/ctype"
	"github.com/slowlang/scc/src/compiler/ir"
)

type (
	declSpecs struct {
		Storage string // typedef extern static auto register, or empty
		Inline  bool
		Base    *ctype.Type
	}
)

// specs classifies a declaration-specifier list: qualifiers are
// skipped, storage class and inline are separated, the remaining type
// specifiers form the base type.
func (g *gen) specs(sp []ast.Spec) (ds declSpecs, err error) {
	var signed, unsigned bool
	var nvoid, nchar, nshort, nint, nlong int
	var named *ctype.Type

	for _, s := range sp {
		switch s := s.(type) {
		case ast.Qual:
			// const, restrict and volatile do not affect lowering
		case ast.Storage:
			if ds.Storage != "" {
				return ds, errors.New("multiple storage classes: %v and %v", ds.Storage, s.Name)
			}

			ds.Storage = s.Name
		case ast.FuncSpec:
			ds.Inline = true
		case ast.TypeWord:
			switch s.Name {
			case "void":
				nvoid++
			case "char":
				nchar++
			case "short":
				nshort++
			case "int":
				nint++
			case "long":
				nlong++
			case "signed":
				signed = true
			case "unsigned":
				unsigned = true
			default:
				t, ok := g.tenv.Typedef(s.Name)
				if !ok {
					return ds, errors.New("unknown type name: %v", s.Name)
				}

				named = t
			}
		case *ast.StructSpec:
			named, err = g.structSpec(s)
			if err != nil {
				return ds, err
			}
		case *ast.EnumSpec:
			named, err = g.enumSpec(s)
			if err != nil {
				return ds, err
			}
		}
	}

	words := nvoid + nchar + nshort + nint + nlong

	switch {
	case named != nil:
		if words != 0 || signed || unsigned {
			return ds, errors.New("type specifiers mixed with a named type")
		}

		ds.Base = named
	case signed && unsigned:
		return ds, errors.New("both signed and unsigned")
	case nvoid != 0:
		if words != nvoid || signed || unsigned {
			return ds, errors.New("void combined with other type specifiers")
		}

		ds.Base = g.tenv.Void()
	case nchar != 0:
		if nchar != 1 || nshort+nint+nlong != 0 {
			return ds, errors.New("invalid char combination")
		}

		ds.Base = g.tenv.Int(ctype.Char, !unsigned)
	case nshort != 0:
		if nshort != 1 || nlong != 0 || nint > 1 {
			return ds, errors.New("invalid short combination")
		}

		ds.Base = g.tenv.Int(ctype.Short, !unsigned)
	case nlong == 1:
		if nint > 1 {
			return ds, errors.New("invalid long combination")
		}

		ds.Base = g.tenv.Int(ctype.Long, !unsigned)
	case nlong == 2:
		if nint > 1 {
			return ds, errors.New("invalid long long combination")
		}

		ds.Base = g.tenv.Int(ctype.LongLong, !unsigned)
	case nlong != 0:
		return ds, errors.New("too many longs")
	default:
		// plain int, bare signed/unsigned, or no type specifier at all
		ds.Base = g.tenv.Int(ctype.Int, !unsigned)
	}

	return ds, nil
}

func (g *gen) structSpec(s *ast.StructSpec) (*ctype.Type, error) {
	var t *ctype.Type

	if s.Tag != "" {
		t = g.tenv.DeclareTag(s.Tag, s.Union)
		if t.Union != s.Union {
			return nil, errors.New("tag %v redeclared as a different kind", s.Tag)
		}
	} else {
		t = g.tenv.Anonymous(s.Union)
	}

	if !s.HasBody {
		return t, nil
	}

	if t.Complete() {
		return nil, errors.New("redefinition of %v", t)
	}

	var fields []ctype.Field

	for _, fd := range s.Fields {
		ds, err := g.specs(fd.Specs)
		if err != nil {
			return nil, errors.Wrap(err, "%v", t)
		}

		if ds.Storage != "" {
			return nil, errors.New("storage class in a field of %v", t)
		}

		for _, d := range fd.Decls {
			name, ft, err := g.declarator(ds.Base, d)
			if err != nil {
				return nil, errors.Wrap(err, "%v", t)
			}

			if !ft.Complete() {
				return nil, errors.New("field %v of %v has incomplete type %v", name, t, ft)
			}
			if ft.Kind == ctype.Function {
				return nil, errors.New("field %v of %v has function type", name, t)
			}

			fields = append(fields, ctype.Field{Name: name, Type: ft})
		}
	}

	ctype.Complete(t, fields, s.Packed)

	return t, nil
}

// enumSpec binds each enumerator as a compile-time constant int.
// Enum types themselves are aliases of int.
func (g *gen) enumSpec(s *ast.EnumSpec) (*ctype.Type, error) {
	it := g.tenv.IntType()

	if !s.HasBody {
		if s.Tag == "" || !g.enumTag(s.Tag) {
			return nil, errors.New("unknown enum tag: %v", s.Tag)
		}

		return it, nil
	}

	if s.Tag != "" {
		if g.enumTag(s.Tag) {
			return nil, errors.New("redefinition of enum %v", s.Tag)
		}

		g.enums = append(g.enums, s.Tag)
	}

	next := int64(0)

	for _, e := range s.Items {
		if e.Value != nil {
			v, err := g.evalConstInt(e.Value)
			if err != nil {
				return nil, errors.Wrap(err, "enumerator %v", e.Name)
			}

			next = v
		}

		term := Term{Type: it, Val: ir.Imm{Typ: ir.I32, X: next}}

		err := g.bind(e.Name, term, true)
		if err != nil {
			return nil, err
		}

		next++
	}

	return it, nil
}

func (g *gen) enumTag(tag string) bool {
	for _, t := range g.enums {
		if t == tag {
			return true
		}
	}

	return false
}

// declarator folds a declarator inside-out around the base type and
// yields the declared name, empty for abstract declarators.
func (g *gen) declarator(base *ctype.Type, d ast.Declarator) (string, *ctype.Type, error) {
	switch d := d.(type) {
	case ast.IdentDecl:
		return d.Name, base, nil
	case ast.AbstractDecl:
		return "", base, nil
	case *ast.PtrDecl:
		return g.declarator(g.tenv.Pointer(base), d.Inner)
	case *ast.ArrayDecl:
		var t *ctype.Type

		if d.Len != nil {
			n, err := g.evalConstInt(d.Len)
			if err != nil {
				return "", nil, errors.Wrap(err, "array length")
			}
			if n < 0 {
				return "", nil, errors.New("negative array length")
			}

			t = g.tenv.Array(base, n)
		} else {
			t = g.tenv.IncompleteArray(base)
		}

		return g.declarator(t, d.Inner)
	case *ast.FuncDecl:
		params, _, err := g.paramTypes(d)
		if err != nil {
			return "", nil, err
		}

		return g.declarator(g.tenv.Func(base, params, d.Variadic), d.Inner)
	}

	bug("declarator %T", d)
	return "", nil, nil
}

// paramTypes resolves a parameter list, applying the array-to-pointer
// and function-to-pointer adjustments. A single unnamed void parameter
// means the function is nullary.
func (g *gen) paramTypes(d *ast.FuncDecl) ([]*ctype.Type, []string, error) {
	var types []*ctype.Type
	var names []string

	for i, p := range d.Params {
		ds, err := g.specs(p.Specs)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parameter %d", i)
		}

		name, pt, err := g.declarator(ds.Base, p.Decl)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parameter %d", i)
		}

		switch pt.Kind {
		case ctype.Array:
			pt = g.tenv.Pointer(pt.Elem)
		case ctype.Function:
			pt = g.tenv.Pointer(pt)
		}

		types = append(types, pt)
		names = append(names, name)
	}

	if len(types) == 1 && types[0].Kind == ctype.Void && names[0] == "" {
		return nil, nil, nil
	}

	return types, names, nil
}

// funcDeclOf finds the function declarator directly wrapping the
// declared identifier, which carries the parameter names of a
// function definition.
func funcDeclOf(d ast.Declarator) *ast.FuncDecl {
	for {
		switch x := d.(type) {
		case *ast.PtrDecl:
			d = x.Inner
		case *ast.ArrayDecl:
			d = x.Inner
		case *ast.FuncDecl:
			if _, ok := x.Inner.(ast.IdentDecl); ok {
				return x
			}

			d = x.Inner
		default:
			return nil
		}
	}
}

// typeName resolves the operand of casts, sizeof, and compound
// literals.
func (g *gen) typeName(tn ast.TypeName) (*ctype.Type, error) {
	ds, err := g.specs(tn.Specs)
	if err != nil {
		return nil, err
	}
	if ds.Storage != "" {
		return nil, errors.New("storage class in a type name")
	}

	name, t, err := g.declarator(ds.Base, tn.Decl)
	if err != nil {
		return nil, err
	}
	if name != "" {
		return nil, errors.New("unexpected identifier %v in a type name", name)
	}

	return t, nil
}

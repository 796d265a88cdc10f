package ast

import (
	"encoding/json"

	"tlog.app/go/errors"
)

// Decode reads a translation unit from its JSON interchange form: an
// array of toplevel nodes, every node an object tagged by "t".
func Decode(data []byte) ([]Toplevel, error) {
	var raw []json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "translation unit")
	}

	tl := make([]Toplevel, len(raw))

	for i, m := range raw {
		tl[i], err = decodeToplevel(m)
		if err != nil {
			return nil, errors.Wrap(err, "toplevel %d", i)
		}
	}

	return tl, nil
}

func tag(m json.RawMessage) (string, error) {
	var head struct {
		T string `json:"t"`
	}

	err := json.Unmarshal(m, &head)
	if err != nil {
		return "", errors.Wrap(err, "node tag")
	}

	return head.T, nil
}

func decodeToplevel(m json.RawMessage) (Toplevel, error) {
	t, err := tag(m)
	if err != nil {
		return nil, err
	}

	switch t {
	case "funcdef":
		var n struct {
			Specs     []json.RawMessage `json:"specs"`
			Decl      json.RawMessage   `json:"decl"`
			OldParams []json.RawMessage `json:"old_params"`
			Body      json.RawMessage   `json:"body"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "funcdef")
		}

		d := &FuncDef{}

		if d.Specs, err = decodeSpecs(n.Specs); err != nil {
			return nil, err
		}
		if d.Decl, err = decodeDeclarator(n.Decl); err != nil {
			return nil, err
		}

		for _, pm := range n.OldParams {
			p, err := decodeDecl(pm)
			if err != nil {
				return nil, err
			}

			d.OldParams = append(d.OldParams, p)
		}

		body, err := decodeStmt(n.Body)
		if err != nil {
			return nil, err
		}

		comp, ok := body.(*Compound)
		if !ok {
			return nil, errors.New("funcdef body: expected compound")
		}

		d.Body = comp

		return d, nil
	case "decl":
		return decodeDecl(m)
	}

	return nil, errors.New("toplevel: unknown tag %q", t)
}

func decodeDecl(m json.RawMessage) (*Decl, error) {
	var n struct {
		Specs []json.RawMessage `json:"specs"`
		Inits []struct {
			Decl json.RawMessage `json:"decl"`
			Init json.RawMessage `json:"init"`
		} `json:"inits"`
	}

	err := json.Unmarshal(m, &n)
	if err != nil {
		return nil, errors.Wrap(err, "decl")
	}

	d := &Decl{}

	if d.Specs, err = decodeSpecs(n.Specs); err != nil {
		return nil, err
	}

	for _, im := range n.Inits {
		var id InitDeclarator

		if id.Decl, err = decodeDeclarator(im.Decl); err != nil {
			return nil, err
		}

		if len(im.Init) != 0 {
			if id.Init, err = decodeInit(im.Init); err != nil {
				return nil, err
			}
		}

		d.Inits = append(d.Inits, id)
	}

	return d, nil
}

func decodeSpecs(ms []json.RawMessage) ([]Spec, error) {
	sp := make([]Spec, len(ms))

	for i, m := range ms {
		s, err := decodeSpec(m)
		if err != nil {
			return nil, errors.Wrap(err, "specifier %d", i)
		}

		sp[i] = s
	}

	return sp, nil
}

func decodeSpec(m json.RawMessage) (Spec, error) {
	t, err := tag(m)
	if err != nil {
		return nil, err
	}

	switch t {
	case "storage", "qual", "funcspec", "type":
		var n struct {
			Name string `json:"name"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, t)
		}

		switch t {
		case "storage":
			return Storage(n), nil
		case "qual":
			return Qual(n), nil
		case "funcspec":
			return FuncSpec(n), nil
		}

		return TypeWord(n), nil
	case "struct":
		var n struct {
			Union   bool   `json:"union"`
			Tag     string `json:"tag"`
			HasBody bool   `json:"has_body"`
			Packed  bool   `json:"packed"`
			Fields  []struct {
				Specs []json.RawMessage `json:"specs"`
				Decls []json.RawMessage `json:"decls"`
			} `json:"fields"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "struct")
		}

		s := &StructSpec{Union: n.Union, Tag: n.Tag, HasBody: n.HasBody, Packed: n.Packed}

		for _, fm := range n.Fields {
			var f FieldDecl

			if f.Specs, err = decodeSpecs(fm.Specs); err != nil {
				return nil, err
			}

			for _, dm := range fm.Decls {
				d, err := decodeDeclarator(dm)
				if err != nil {
					return nil, err
				}

				f.Decls = append(f.Decls, d)
			}

			s.Fields = append(s.Fields, f)
		}

		return s, nil
	case "enum":
		var n struct {
			Tag     string `json:"tag"`
			HasBody bool   `json:"has_body"`
			Items   []struct {
				Name  string          `json:"name"`
				Value json.RawMessage `json:"value"`
			} `json:"items"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "enum")
		}

		s := &EnumSpec{Tag: n.Tag, HasBody: n.HasBody}

		for _, im := range n.Items {
			e := Enumerator{Name: im.Name}

			if len(im.Value) != 0 {
				if e.Value, err = decodeExpr(im.Value); err != nil {
					return nil, err
				}
			}

			s.Items = append(s.Items, e)
		}

		return s, nil
	}

	return nil, errors.New("specifier: unknown tag %q", t)
}

func decodeDeclarator(m json.RawMessage) (Declarator, error) {
	if len(m) == 0 {
		return AbstractDecl{}, nil
	}

	t, err := tag(m)
	if err != nil {
		return nil, err
	}

	switch t {
	case "ptr":
		var n struct {
			Inner json.RawMessage `json:"inner"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "ptr declarator")
		}

		inner, err := decodeDeclarator(n.Inner)
		if err != nil {
			return nil, err
		}

		return &PtrDecl{Inner: inner}, nil
	case "ident":
		var n struct {
			Name string `json:"name"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "ident declarator")
		}

		return IdentDecl(n), nil
	case "abstract":
		return AbstractDecl{}, nil
	case "array":
		var n struct {
			Inner json.RawMessage `json:"inner"`
			Len   json.RawMessage `json:"len"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "array declarator")
		}

		d := &ArrayDecl{}

		if d.Inner, err = decodeDeclarator(n.Inner); err != nil {
			return nil, err
		}

		if len(n.Len) != 0 {
			if d.Len, err = decodeExpr(n.Len); err != nil {
				return nil, err
			}
		}

		return d, nil
	case "func":
		var n struct {
			Inner    json.RawMessage `json:"inner"`
			Variadic bool            `json:"variadic"`
			Params   []struct {
				Specs []json.RawMessage `json:"specs"`
				Decl  json.RawMessage   `json:"decl"`
			} `json:"params"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "func declarator")
		}

		d := &FuncDecl{Variadic: n.Variadic}

		if d.Inner, err = decodeDeclarator(n.Inner); err != nil {
			return nil, err
		}

		for _, pm := range n.Params {
			var p ParamDecl

			if p.Specs, err = decodeSpecs(pm.Specs); err != nil {
				return nil, err
			}
			if p.Decl, err = decodeDeclarator(pm.Decl); err != nil {
				return nil, err
			}

			d.Params = append(d.Params, p)
		}

		return d, nil
	}

	return nil, errors.New("declarator: unknown tag %q", t)
}

func decodeInit(m json.RawMessage) (Init, error) {
	t, err := tag(m)
	if err != nil {
		return nil, err
	}

	switch t {
	case "expr":
		var n struct {
			X json.RawMessage `json:"x"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "expr initializer")
		}

		x, err := decodeExpr(n.X)
		if err != nil {
			return nil, err
		}

		return &ExprInit{X: x}, nil
	case "brace":
		return decodeBrace(m)
	}

	return nil, errors.New("initializer: unknown tag %q", t)
}

func decodeBrace(m json.RawMessage) (*BraceInit, error) {
	var n struct {
		Items []struct {
			Designators []json.RawMessage `json:"designators"`
			Init        json.RawMessage   `json:"init"`
		} `json:"items"`
	}

	err := json.Unmarshal(m, &n)
	if err != nil {
		return nil, errors.Wrap(err, "brace initializer")
	}

	b := &BraceInit{}

	for _, im := range n.Items {
		var it InitItem

		for _, dm := range im.Designators {
			d, err := decodeDesignator(dm)
			if err != nil {
				return nil, err
			}

			it.Designators = append(it.Designators, d)
		}

		if it.Init, err = decodeInit(im.Init); err != nil {
			return nil, err
		}

		b.Items = append(b.Items, it)
	}

	return b, nil
}

func decodeDesignator(m json.RawMessage) (Designator, error) {
	t, err := tag(m)
	if err != nil {
		return nil, err
	}

	switch t {
	case "field":
		var n struct {
			Name string `json:"name"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "field designator")
		}

		return FieldDesignator(n), nil
	case "index":
		var n struct {
			X json.RawMessage `json:"x"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "index designator")
		}

		x, err := decodeExpr(n.X)
		if err != nil {
			return nil, err
		}

		return &IndexDesignator{X: x}, nil
	}

	return nil, errors.New("designator: unknown tag %q", t)
}

func decodeTypeName(m json.RawMessage) (TypeName, error) {
	var n struct {
		Specs []json.RawMessage `json:"specs"`
		Decl  json.RawMessage   `json:"decl"`
	}

	err := json.Unmarshal(m, &n)
	if err != nil {
		return TypeName{}, errors.Wrap(err, "type name")
	}

	var tn TypeName

	if tn.Specs, err = decodeSpecs(n.Specs); err != nil {
		return TypeName{}, err
	}
	if tn.Decl, err = decodeDeclarator(n.Decl); err != nil {
		return TypeName{}, err
	}

	return tn, nil
}

func decodeStmt(m json.RawMessage) (Stmt, error) {
	t, err := tag(m)
	if err != nil {
		return nil, err
	}

	switch t {
	case "decl":
		return decodeDecl(m)
	case "compound":
		var n struct {
			Items []json.RawMessage `json:"items"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "compound")
		}

		c := &Compound{}

		for i, im := range n.Items {
			s, err := decodeStmt(im)
			if err != nil {
				return nil, errors.Wrap(err, "item %d", i)
			}

			c.Items = append(c.Items, s)
		}

		return c, nil
	case "exprstmt":
		var n struct {
			X json.RawMessage `json:"x"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "expression statement")
		}

		s := &ExprStmt{}

		if len(n.X) != 0 {
			if s.X, err = decodeExpr(n.X); err != nil {
				return nil, err
			}
		}

		return s, nil
	case "if":
		var n struct {
			Cond json.RawMessage `json:"cond"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "if")
		}

		s := &If{}

		if s.Cond, err = decodeExpr(n.Cond); err != nil {
			return nil, err
		}
		if s.Then, err = decodeStmt(n.Then); err != nil {
			return nil, err
		}

		if len(n.Else) != 0 {
			if s.Else, err = decodeStmt(n.Else); err != nil {
				return nil, err
			}
		}

		return s, nil
	case "while":
		var n struct {
			Cond json.RawMessage `json:"cond"`
			Body json.RawMessage `json:"body"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "while")
		}

		s := &While{}

		if s.Cond, err = decodeExpr(n.Cond); err != nil {
			return nil, err
		}
		if s.Body, err = decodeStmt(n.Body); err != nil {
			return nil, err
		}

		return s, nil
	case "dowhile":
		var n struct {
			Body json.RawMessage `json:"body"`
			Cond json.RawMessage `json:"cond"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "do-while")
		}

		s := &DoWhile{}

		if s.Body, err = decodeStmt(n.Body); err != nil {
			return nil, err
		}
		if s.Cond, err = decodeExpr(n.Cond); err != nil {
			return nil, err
		}

		return s, nil
	case "for":
		var n struct {
			InitDecl json.RawMessage `json:"init_decl"`
			InitExpr json.RawMessage `json:"init_expr"`
			Cond     json.RawMessage `json:"cond"`
			Post     json.RawMessage `json:"post"`
			Body     json.RawMessage `json:"body"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "for")
		}

		s := &For{}

		if len(n.InitDecl) != 0 {
			if s.InitDecl, err = decodeDecl(n.InitDecl); err != nil {
				return nil, err
			}
		}
		if len(n.InitExpr) != 0 {
			if s.InitExpr, err = decodeExpr(n.InitExpr); err != nil {
				return nil, err
			}
		}
		if len(n.Cond) != 0 {
			if s.Cond, err = decodeExpr(n.Cond); err != nil {
				return nil, err
			}
		}
		if len(n.Post) != 0 {
			if s.Post, err = decodeExpr(n.Post); err != nil {
				return nil, err
			}
		}
		if s.Body, err = decodeStmt(n.Body); err != nil {
			return nil, err
		}

		return s, nil
	case "switch":
		var n struct {
			X    json.RawMessage `json:"x"`
			Body json.RawMessage `json:"body"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "switch")
		}

		s := &Switch{}

		if s.X, err = decodeExpr(n.X); err != nil {
			return nil, err
		}
		if s.Body, err = decodeStmt(n.Body); err != nil {
			return nil, err
		}

		return s, nil
	case "case":
		var n struct {
			X    json.RawMessage `json:"x"`
			Body json.RawMessage `json:"body"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "case")
		}

		s := &Case{}

		if s.X, err = decodeExpr(n.X); err != nil {
			return nil, err
		}
		if s.Body, err = decodeStmt(n.Body); err != nil {
			return nil, err
		}

		return s, nil
	case "default":
		var n struct {
			Body json.RawMessage `json:"body"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "default")
		}

		body, err := decodeStmt(n.Body)
		if err != nil {
			return nil, err
		}

		return &Default{Body: body}, nil
	case "label":
		var n struct {
			Name string          `json:"name"`
			Body json.RawMessage `json:"body"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "label")
		}

		body, err := decodeStmt(n.Body)
		if err != nil {
			return nil, err
		}

		return &Label{Name: n.Name, Body: body}, nil
	case "goto":
		var n struct {
			Label string `json:"label"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "goto")
		}

		return &Goto{Label: n.Label}, nil
	case "break":
		return &Break{}, nil
	case "continue":
		return &Continue{}, nil
	case "return":
		var n struct {
			X json.RawMessage `json:"x"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "return")
		}

		s := &Return{}

		if len(n.X) != 0 {
			if s.X, err = decodeExpr(n.X); err != nil {
				return nil, err
			}
		}

		return s, nil
	}

	return nil, errors.New("statement: unknown tag %q", t)
}

func decodeExpr(m json.RawMessage) (Expr, error) {
	t, err := tag(m)
	if err != nil {
		return nil, err
	}

	switch t {
	case "ident":
		var n struct {
			Name string `json:"name"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "ident")
		}

		return &Ident{Name: n.Name}, nil
	case "int":
		var n struct {
			X    int64  `json:"x"`
			Hint string `json:"hint"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "int literal")
		}

		return &IntLit{X: n.X, Hint: n.Hint}, nil
	case "str":
		var n struct {
			S string `json:"s"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "string literal")
		}

		return &StrLit{S: []byte(n.S)}, nil
	case "unary":
		var n struct {
			Op string          `json:"op"`
			X  json.RawMessage `json:"x"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "unary")
		}

		x, err := decodeExpr(n.X)
		if err != nil {
			return nil, err
		}

		return &Unary{Op: n.Op, X: x}, nil
	case "incdec":
		var n struct {
			X    json.RawMessage `json:"x"`
			Dec  bool            `json:"dec"`
			Post bool            `json:"post"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "incdec")
		}

		x, err := decodeExpr(n.X)
		if err != nil {
			return nil, err
		}

		return &IncDec{X: x, Dec: n.Dec, Post: n.Post}, nil
	case "binary", "assign", "comma":
		var n struct {
			Op string          `json:"op"`
			L  json.RawMessage `json:"l"`
			R  json.RawMessage `json:"r"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, t)
		}

		l, err := decodeExpr(n.L)
		if err != nil {
			return nil, err
		}

		r, err := decodeExpr(n.R)
		if err != nil {
			return nil, err
		}

		switch t {
		case "binary":
			return &Binary{Op: n.Op, L: l, R: r}, nil
		case "assign":
			return &Assign{Op: n.Op, L: l, R: r}, nil
		}

		return &Comma{L: l, R: r}, nil
	case "cond":
		var n struct {
			C json.RawMessage `json:"c"`
			T json.RawMessage `json:"then"`
			F json.RawMessage `json:"else"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "conditional")
		}

		e := &CondExpr{}

		if e.C, err = decodeExpr(n.C); err != nil {
			return nil, err
		}
		if e.T, err = decodeExpr(n.T); err != nil {
			return nil, err
		}
		if e.F, err = decodeExpr(n.F); err != nil {
			return nil, err
		}

		return e, nil
	case "call":
		var n struct {
			Fn   json.RawMessage   `json:"fn"`
			Args []json.RawMessage `json:"args"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "call")
		}

		e := &Call{}

		if e.Fn, err = decodeExpr(n.Fn); err != nil {
			return nil, err
		}

		for i, am := range n.Args {
			a, err := decodeExpr(am)
			if err != nil {
				return nil, errors.Wrap(err, "argument %d", i)
			}

			e.Args = append(e.Args, a)
		}

		return e, nil
	case "index":
		var n struct {
			X json.RawMessage `json:"x"`
			I json.RawMessage `json:"i"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "index")
		}

		e := &Index{}

		if e.X, err = decodeExpr(n.X); err != nil {
			return nil, err
		}
		if e.I, err = decodeExpr(n.I); err != nil {
			return nil, err
		}

		return e, nil
	case "member":
		var n struct {
			X     json.RawMessage `json:"x"`
			Name  string          `json:"name"`
			Arrow bool            `json:"arrow"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "member")
		}

		x, err := decodeExpr(n.X)
		if err != nil {
			return nil, err
		}

		return &Member{X: x, Name: n.Name, Arrow: n.Arrow}, nil
	case "cast":
		var n struct {
			Type json.RawMessage `json:"type"`
			X    json.RawMessage `json:"x"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "cast")
		}

		e := &Cast{}

		if e.Type, err = decodeTypeName(n.Type); err != nil {
			return nil, err
		}
		if e.X, err = decodeExpr(n.X); err != nil {
			return nil, err
		}

		return e, nil
	case "sizeof_expr":
		var n struct {
			X json.RawMessage `json:"x"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "sizeof")
		}

		x, err := decodeExpr(n.X)
		if err != nil {
			return nil, err
		}

		return &SizeofExpr{X: x}, nil
	case "sizeof_type":
		var n struct {
			Type json.RawMessage `json:"type"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "sizeof")
		}

		tn, err := decodeTypeName(n.Type)
		if err != nil {
			return nil, err
		}

		return &SizeofType{Type: tn}, nil
	case "compound_lit":
		var n struct {
			Type json.RawMessage `json:"type"`
			Init json.RawMessage `json:"init"`
		}

		if err := json.Unmarshal(m, &n); err != nil {
			return nil, errors.Wrap(err, "compound literal")
		}

		e := &CompoundLit{}

		if e.Type, err = decodeTypeName(n.Type); err != nil {
			return nil, err
		}
		if e.Init, err = decodeBrace(n.Init); err != nil {
			return nil, err
		}

		return e, nil
	}

	return nil, errors.New("expression: unknown tag %q", t)
}

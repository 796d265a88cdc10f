package ast

type (
	// Toplevel is one external declaration of a translation unit.
	Toplevel interface {
		isToplevel()
	}

	FuncDef struct {
		Specs     []Spec
		Decl      Declarator
		OldParams []*Decl
		Body      *Compound
	}

	Decl struct {
		Specs []Spec
		Inits []InitDeclarator
	}

	// Spec is one declaration specifier: storage class, qualifier,
	// function specifier, or type specifier.
	Spec interface {
		isSpec()
	}

	Storage  struct{ Name string } // typedef extern static auto register
	Qual     struct{ Name string } // const restrict volatile
	FuncSpec struct{ Name string } // inline
	TypeWord struct{ Name string } // void char int ... or a typedef name

	StructSpec struct {
		Union   bool
		Tag     string
		Fields  []FieldDecl
		HasBody bool
		Packed  bool
	}

	EnumSpec struct {
		Tag     string
		Items   []Enumerator
		HasBody bool
	}

	FieldDecl struct {
		Specs []Spec
		Decls []Declarator
	}

	Enumerator struct {
		Name  string
		Value Expr // optional
	}

	// Declarator wraps an identifier in pointer, array, and function
	// derivations, innermost first.
	Declarator interface {
		isDeclarator()
	}

	PtrDecl   struct{ Inner Declarator }
	IdentDecl struct{ Name string }

	// AbstractDecl is the empty declarator of a parameter or type name.
	AbstractDecl struct{}

	ArrayDecl struct {
		Inner Declarator
		Len   Expr // nil for incomplete
	}

	FuncDecl struct {
		Inner    Declarator
		Params   []ParamDecl
		Variadic bool
	}

	ParamDecl struct {
		Specs []Spec
		Decl  Declarator
	}

	InitDeclarator struct {
		Decl Declarator
		Init Init // optional
	}

	// Init is an initializer: a plain expression or a brace list.
	Init interface {
		isInit()
	}

	ExprInit struct{ X Expr }

	BraceInit struct {
		Items []InitItem
	}

	InitItem struct {
		Designators []Designator
		Init        Init
	}

	Designator interface {
		isDesignator()
	}

	FieldDesignator struct{ Name string }
	IndexDesignator struct{ X Expr }

	// TypeName is the operand of casts, sizeof, and compound literals.
	TypeName struct {
		Specs []Spec
		Decl  Declarator
	}

	Stmt interface {
		isStmt()
	}

	Compound struct {
		Items []Stmt // declarations and statements
	}

	ExprStmt struct{ X Expr } // X nil for the empty statement

	If struct {
		Cond Expr
		Then Stmt
		Else Stmt // optional
	}

	While struct {
		Cond Expr
		Body Stmt
	}

	DoWhile struct {
		Body Stmt
		Cond Expr
	}

	For struct {
		InitDecl *Decl // either InitDecl or InitExpr, both optional
		InitExpr Expr
		Cond     Expr // optional, defaults to 1
		Post     Expr // optional
		Body     Stmt
	}

	Switch struct {
		X    Expr
		Body Stmt
	}

	Case struct {
		X    Expr
		Body Stmt
	}

	Default struct{ Body Stmt }

	Label struct {
		Name string
		Body Stmt
	}

	Goto struct{ Label string }

	Break    struct{}
	Continue struct{}

	Return struct{ X Expr } // X nil for void return

	Expr interface {
		isExpr()
	}

	Ident struct{ Name string }

	IntLit struct {
		X    int64
		Hint string // suffix-derived type hint, may be empty
	}

	StrLit struct{ S []byte }

	Unary struct {
		Op string // & * + - ~ !
		X  Expr
	}

	IncDec struct {
		X    Expr
		Dec  bool
		Post bool
	}

	Binary struct {
		Op   string // + - * / % & | ^ << >> < <= > >= == != && ||
		L, R Expr
	}

	Assign struct {
		Op   string // = += -= *= /= %= &= |= ^= <<= >>=
		L, R Expr
	}

	CondExpr struct {
		C, T, F Expr
	}

	Comma struct{ L, R Expr }

	Call struct {
		Fn   Expr
		Args []Expr
	}

	Index struct {
		X, I Expr
	}

	Member struct {
		X     Expr
		Name  string
		Arrow bool
	}

	Cast struct {
		Type TypeName
		X    Expr
	}

	SizeofExpr struct{ X Expr }
	SizeofType struct{ Type TypeName }

	CompoundLit struct {
		Type TypeName
		Init *BraceInit
	}
)

func (*FuncDef) isToplevel() {}
func (*Decl) isToplevel()    {}

func (Storage) isSpec()     {}
func (Qual) isSpec()        {}
func (FuncSpec) isSpec()    {}
func (TypeWord) isSpec()    {}
func (*StructSpec) isSpec() {}
func (*EnumSpec) isSpec()   {}

func (*PtrDecl) isDeclarator()    {}
func (IdentDecl) isDeclarator()   {}
func (AbstractDecl) isDeclarator() {}
func (*ArrayDecl) isDeclarator()  {}
func (*FuncDecl) isDeclarator()   {}

func (*ExprInit) isInit()  {}
func (*BraceInit) isInit() {}

func (FieldDesignator) isDesignator()  {}
func (*IndexDesignator) isDesignator() {}

func (*Decl) isStmt()     {}
func (*Compound) isStmt() {}
func (*ExprStmt) isStmt() {}
func (*If) isStmt()       {}
func (*While) isStmt()    {}
func (*DoWhile) isStmt()  {}
func (*For) isStmt()      {}
func (*Switch) isStmt()   {}
func (*Case) isStmt()     {}
func (*Default) isStmt()  {}
func (*Label) isStmt()    {}
func (*Goto) isStmt()     {}
func (*Break) isStmt()    {}
func (*Continue) isStmt() {}
func (*Return) isStmt()   {}

func (*Ident) isExpr()       {}
func (*IntLit) isExpr()      {}
func (*StrLit) isExpr()      {}
func (*Unary) isExpr()       {}
func (*IncDec) isExpr()      {}
func (*Binary) isExpr()      {}
func (*Assign) isExpr()      {}
func (*CondExpr) isExpr()    {}
func (*Comma) isExpr()       {}
func (*Call) isExpr()        {}
func (*Index) isExpr()       {}
func (*Member) isExpr()      {}
func (*Cast) isExpr()        {}
func (*SizeofExpr) isExpr()  {}
func (*SizeofType) isExpr()  {}
func (*CompoundLit) isExpr() {}

package ir

import (
	"fmt"
)

type (
	// Builder emits instructions into the current block of the current
	// function. The lowering code saves and restores Fn and Blk around
	// nested emission (branch bodies, sandboxed lowering).
	Builder struct {
		Unit *Unit
		Fn   *Func
		Blk  *Block
	}
)

// NewBlock allocates a block with a unique name within the current
// function without appending it to the block order. Blocks whose
// identity is needed early (break and continue targets) are allocated
// with NewBlock and appended later.
func (b *Builder) NewBlock(name string) *Block {
	if n := b.Fn.nblock[name]; n > 0 {
		b.Fn.nblock[name] = n + 1
		name = fmt.Sprintf("%s%d", name, n)
	} else {
		b.Fn.nblock[name] = 1
	}

	return &Block{Name: name}
}

func (b *Builder) AppendBlock(blk *Block) {
	b.Fn.Blocks = append(b.Fn.Blocks, blk)
}

// AddBlock allocates, appends, and switches emission to a new block.
func (b *Builder) AddBlock(name string) *Block {
	blk := b.NewBlock(name)
	b.AppendBlock(blk)
	b.Blk = blk

	return blk
}

// EnterBlock appends an already allocated block and switches emission
// to it.
func (b *Builder) EnterBlock(blk *Block) {
	b.AppendBlock(blk)
	b.Blk = blk
}

func (b *Builder) emit(i *Instr) *Instr {
	if b.Blk == nil {
		panic("emit outside a block")
	}

	if i.Typ != nil && i.Typ.Kind != Void {
		b.Fn.nreg++
		i.ID = b.Fn.nreg
	}

	b.Blk.Instrs = append(b.Blk.Instrs, i)

	return i
}

func (b *Builder) Local(t *Type) Value {
	return b.emit(&Instr{Op: OpLocal, Typ: PtrType, Aux: t})
}

func (b *Builder) Load(ptr Value, t *Type) Value {
	return b.emit(&Instr{Op: OpLoad, Typ: t, Args: []Value{ptr}})
}

func (b *Builder) Store(ptr, v Value) {
	b.emit(&Instr{Op: OpStore, Args: []Value{ptr, v}})
}

func (b *Builder) Bin(op Op, x, y Value) Value {
	return b.emit(&Instr{Op: op, Typ: x.Type(), Args: []Value{x, y}})
}

func (b *Builder) Unary(op Op, x Value) Value {
	return b.emit(&Instr{Op: op, Typ: x.Type(), Args: []Value{x}})
}

// Conv emits a width or kind conversion producing a value of type t.
func (b *Builder) Conv(op Op, x Value, t *Type) Value {
	return b.emit(&Instr{Op: op, Typ: t, Args: []Value{x}})
}

// CmpVal emits a comparison yielding 0 or 1 as an i32.
func (b *Builder) CmpVal(c Cmp, x, y Value) Value {
	return b.emit(&Instr{Op: OpCmp, Typ: I32, Cmp: c, Args: []Value{x, y}})
}

// Field yields the address of field or element idx of the aggregate
// pointed to by ptr.
func (b *Builder) Field(ptr Value, at *Type, idx int) Value {
	return b.emit(&Instr{Op: OpField, Typ: PtrType, Aux: at, Index: idx, Args: []Value{ptr}})
}

// Branch terminates the current block. A nil target is permitted for
// gotos and patched by the fixup pass.
func (b *Builder) Branch(target *Block) *Instr {
	return b.emit(&Instr{Op: OpBranch, Blocks: []*Block{target}})
}

func (b *Builder) Cond(v Value, then, els *Block) {
	b.emit(&Instr{Op: OpCond, Args: []Value{v}, Blocks: []*Block{then, els}})
}

// Phi allocates a merge with room for arity predecessors. Slots are
// filled with PhiSet before the block is left.
func (b *Builder) Phi(t *Type, arity int) *Instr {
	return b.emit(&Instr{Op: OpPhi, Typ: t, Args: make([]Value, arity), Blocks: make([]*Block, arity)})
}

func PhiSet(phi *Instr, i int, pred *Block, v Value) {
	if phi.Op != OpPhi {
		panic(phi.Op)
	}

	phi.Args[i] = v
	phi.Blocks[i] = pred
}

func (b *Builder) Call(callee Value, ret *Type, args []Value) Value {
	return b.emit(&Instr{Op: OpCall, Typ: ret, Args: append([]Value{callee}, args...)})
}

func (b *Builder) Ret(v Value) {
	b.emit(&Instr{Op: OpRet, Args: []Value{v}})
}

func (b *Builder) RetVoid() {
	b.emit(&Instr{Op: OpRetVoid})
}

func (b *Builder) VaStart(ptr Value) {
	b.emit(&Instr{Op: OpVaStart, Args: []Value{ptr}})
}

// Memcpy copies n bytes from src to dst through the runtime.
func (b *Builder) Memcpy(dst, src Value, n int) {
	f := b.runtimeFunc("memcpy", PtrType, []*Type{PtrType, PtrType, I64})
	b.Call(f, PtrType, []Value{dst, src, Imm{Typ: I64, X: int64(n)}})
}

// Memset fills n bytes at ptr with the byte value v.
func (b *Builder) Memset(ptr Value, v int64, n int) {
	f := b.runtimeFunc("memset", PtrType, []*Type{PtrType, I32, I64})
	b.Call(f, PtrType, []Value{ptr, Imm{Typ: I32, X: v}, Imm{Typ: I64, X: int64(n)}})
}

func (b *Builder) runtimeFunc(name string, ret *Type, params []*Type) *Global {
	if g := b.Unit.Lookup(name); g != nil {
		return g
	}

	return b.Unit.AddFunc(name, Extern, ret, params, false)
}

// Terminated reports whether the block already ends in a terminator.
func (blk *Block) Terminated() bool {
	if len(blk.Instrs) == 0 {
		return false
	}

	switch blk.Instrs[len(blk.Instrs)-1].Op {
	case OpBranch, OpCond, OpRet, OpRetVoid:
		return true
	}

	return false
}

package hir

import (
	"github.com/konteck/candor/compiler/arena"
	"github.com/konteck/candor/compiler/ast"
	"github.com/konteck/candor/compiler/set"
)

// Block is a basic block of the SSA graph. Each Func has its own root
// block; multiple roots coexist when nested function literals are
// visited, so Block ids are only unique within a Func.
type Block struct {
	ID    int
	DFSID int // -1 if unvisited by dominator construction

	Preds []*Block // at most 2
	Succs []*Block // at most 2

	Phis   []*Instruction
	Instrs []*Instruction

	Env *Env

	Loop      bool
	LoopDepth int

	Dom      *Block // immediate dominator
	DomDepth int

	// Lengauer-Tarjan scratch state, valid only during dom.Build.
	LTParent    *Block
	LTAncestor  *Block
	LTLabel     *Block
	LTSemi      *Block
	LTBucket    []*Block

	ReachableFrom set.Bitmap

	LIR interface{} // lowered block back-pointer, set once lowering has run
}

// Env is the per-block slot -> value environment. Slot stack_slots is
// reserved for short-circuit boolean logic (spec 3, "Environment").
type Env struct {
	Vals []*Instruction
	Phis []*Instruction // shadow map: a slot currently bound to an unresolved phi
}

// NewEnv allocates an environment sized for n+1 slots (n stack slots plus
// the reserved logic slot).
func NewEnv(n int) *Env {
	return &Env{
		Vals: make([]*Instruction, n+1),
		Phis: make([]*Instruction, n+1),
	}
}

// Copy returns an independent copy of e, used when a block inherits a
// single predecessor's environment.
func (e *Env) Copy() *Env {
	c := &Env{
		Vals: make([]*Instruction, len(e.Vals)),
		Phis: make([]*Instruction, len(e.Phis)),
	}

	copy(c.Vals, e.Vals)
	copy(c.Phis, e.Phis)

	return c
}

// LogicSlot is the index of the reserved short-circuit boolean slot.
func LogicSlot(stackSlots int) int { return stackSlots }

// addEdge keeps the CFG edges symmetric; the spec bounds both to 2.
func addEdge(pred, succ *Block) {
	pred.Succs = append(pred.Succs, succ)
	succ.Preds = append(succ.Preds, pred)
}

// Func is one compiled function body: its root block plus frame shape.
type Func struct {
	Name string

	StackSlots   int
	ContextSlots int
	NumArgs      int

	Root *Block

	Blocks []*Block // all blocks belonging to this func, in creation order

	NextInstrID int
	NextBlockID int

	Label string

	// blocks/instrs arena-allocate every node this Func owns, per spec 5
	// ("all IR nodes are arena-allocated from a per-compilation arena").
	// Lazily created so a Func built as a bare composite literal (as tests
	// and hand-built graphs do) still works without a constructor call.
	blocks *arena.Arena[Block]
	instrs *arena.Arena[Instruction]
}

func (f *Func) newBlock() *Block {
	if f.blocks == nil {
		f.blocks = arena.New[Block](32)
	}

	b := f.blocks.Alloc()
	b.ID = f.NextBlockID
	b.DFSID = -1
	f.NextBlockID++
	f.Blocks = append(f.Blocks, b)

	return b
}

func (f *Func) newInstr(op Opcode) *Instruction {
	if f.instrs == nil {
		f.instrs = arena.New[Instruction](256)
	}

	i := f.instrs.Alloc()
	i.ID = f.NextInstrID
	i.Opcode = op
	f.NextInstrID++

	return i
}

// Graph is the whole-compilation result: the functions built so far plus
// the FIFO work queue Build drains (it only ever holds the top function).
type Graph struct {
	Funcs []*Func

	pending []*ast.Function
}

// Package lir defines the low-level IR the allocator operates on: flat
// per-function instruction lists, uses, intervals, ranges and gaps, per
// spec 3 and grounded method-for-method on
// original_source/src/lir.cc's LInstruction/LUse/LInterval/LRange/LGap.
package lir

import (
	"github.com/konteck/candor/compiler/arena"
	"github.com/konteck/candor/compiler/hir"
)

// Opcode tags a LIR instruction. Unlike hir.Opcode this set also includes
// the synthetic control/move opcodes lowering introduces.
type Opcode int

const (
	LInvalid Opcode = iota

	LLabel
	LEntry
	LLoadArg
	LLoadVarArg
	LLiteral
	LLoadContext
	LStoreContext
	LLoadProperty
	LStoreProperty
	LDeleteProperty
	LBinOp
	LNot
	LAllocateArray
	LAllocateObject
	LStoreVarArg
	LSizeof
	LKeysof
	LTypeof
	LClone
	LAlignStack
	LCall
	LCollectGarbage
	LGetStackTrace

	LGoto
	LBranch
	LBranchNumber
	LReturn

	LMove // a single source -> target move, used standalone or inside a Gap
	LGap  // synthetic, odd-positioned: a bundle of parallel LMoves
)

func (op Opcode) String() string {
	switch op {
	case LLabel:
		return "Label"
	case LEntry:
		return "Entry"
	case LLoadArg:
		return "LoadArg"
	case LLoadVarArg:
		return "LoadVarArg"
	case LLiteral:
		return "Literal"
	case LLoadContext:
		return "LoadContext"
	case LStoreContext:
		return "StoreContext"
	case LLoadProperty:
		return "LoadProperty"
	case LStoreProperty:
		return "StoreProperty"
	case LDeleteProperty:
		return "DeleteProperty"
	case LBinOp:
		return "BinOp"
	case LNot:
		return "Not"
	case LAllocateArray:
		return "AllocateArray"
	case LAllocateObject:
		return "AllocateObject"
	case LStoreVarArg:
		return "StoreVarArg"
	case LSizeof:
		return "Sizeof"
	case LKeysof:
		return "Keysof"
	case LTypeof:
		return "Typeof"
	case LClone:
		return "Clone"
	case LAlignStack:
		return "AlignStack"
	case LCall:
		return "Call"
	case LCollectGarbage:
		return "CollectGarbage"
	case LGetStackTrace:
		return "GetStackTrace"
	case LGoto:
		return "Goto"
	case LBranch:
		return "Branch"
	case LBranchNumber:
		return "BranchNumber"
	case LReturn:
		return "Return"
	case LMove:
		return "Move"
	case LGap:
		return "Gap"
	default:
		return "Invalid"
	}
}

// Use records one operand slot of a LIR instruction: the interval it
// reads or writes, the kind of location required, and a back-pointer to
// the owning instruction (spec 3 "A use records...").
type Use struct {
	Interval *Interval
	Kind     UseKind
	Instr    *Instruction
	Pos      int
}

type UseKind int

const (
	UseAny UseKind = iota
	UseRegister
)

// Instruction is a flattened LIR instruction. Ids are even; LGap ids
// (held by a dedicated zero-Input Instruction of Opcode LGap) are odd.
type Instruction struct {
	ID     int
	Opcode Opcode

	Inputs   []Use
	Scratch  []Use
	Result   *Use
	HasCall  bool

	Block *Block
	HIR   *hir.Instruction // back-link to the source HIR instruction, if any

	// Gap payload: pairs of (source, target) uses describing parallel
	// moves, populated only when Opcode == LGap.
	Moves []Move

	// Control payload.
	TargetLabel  string
	TargetLabel2 string // false-branch target for LBranch

	Text string // literal/text payload for dumps
}

type Move struct {
	Src *Use
	Dst *Use
}

// Block mirrors hir.Block in flattened form: a straight-line list of LIR
// instructions (including embedded LGaps) with start/end ids.
type Block struct {
	ID      int
	Label   string
	Instrs  []*Instruction
	StartID int
	EndID   int

	Succs []*Block

	HIR *hir.Block
}

// Func is one function's flattened LIR plus its interval set.
type Func struct {
	Name   string
	Blocks []*Block

	NextID int // next even id to assign

	Intervals []*Interval

	// FixedRegisters holds one persistent Interval per physical
	// general-purpose register, Kind == KindFixedRegister, spanning the
	// whole function; BuildIntervals blocks them out at call sites.
	FixedRegisters []*Interval

	// Phi lowering scratch: the virtual interval standing in for each
	// hir phi once VisitGoto/VisitPhi have run.
	PhiIntervals map[*hir.Instruction]*Interval

	// NumSpillSlots is set by back.AllocateSpills once spill coloring runs.
	NumSpillSlots int

	// blocks/instrs arena-allocate every node this Func owns, per spec 5
	// ("all IR nodes are arena-allocated from a per-compilation arena").
	// Lazily created so a Func built as a bare composite literal (as tests
	// do) still works without a constructor call.
	blocks *arena.Arena[Block]
	instrs *arena.Arena[Instruction]
}

// AllocBlock hands out a zero-valued, arena-owned Block for a caller to
// populate directly.
func (f *Func) AllocBlock() *Block {
	if f.blocks == nil {
		f.blocks = arena.New[Block](32)
	}

	return f.blocks.Alloc()
}

func (f *Func) nextID() int {
	id := f.NextID
	f.NextID += 2

	return id
}

// AllocInstruction hands out a zero-valued, arena-owned Instruction for a
// caller to populate directly; used where an instruction's id and block
// come from position-based bookkeeping (gaps) rather than NewInstruction's
// sequential id assignment.
func (f *Func) AllocInstruction() *Instruction {
	if f.instrs == nil {
		f.instrs = arena.New[Instruction](256)
	}

	return f.instrs.Alloc()
}

// NewInstruction allocates and appends i to b, assigning it the next even id.
func (f *Func) NewInstruction(b *Block, op Opcode) *Instruction {
	i := f.AllocInstruction()
	i.ID, i.Opcode, i.Block = f.nextID(), op, b
	b.Instrs = append(b.Instrs, i)

	return i
}

// NewGap allocates a gap at the odd position immediately before the next
// real instruction id, per spec 3 ("gap ids are odd; real instructions
// occupy even ids").
func (f *Func) NewGap(b *Block) *Instruction {
	i := f.AllocInstruction()
	i.ID, i.Opcode, i.Block = f.NextID-1, LGap, b
	b.Instrs = append(b.Instrs, i)

	return i
}

package hir

import "github.com/konteck/candor/compiler/ast"

// Instruction is a node of the SSA graph. The same struct shape serves
// both ordinary instructions and phis: a phi is distinguished by Opcode ==
// OpPhi and lives in its block's Phis list rather than Instrs.
type Instruction struct {
	ID     int
	Opcode Opcode

	Args []*Instruction
	Uses []*Instruction // mirrors Args: every instruction naming this one

	Blk *Block

	Slot    ast.ScopeSlot // where this value is published, if any
	AST     ast.Node      // source back-pointer, nil if synthetic
	ASTSpan int           // offset into source text, -1 if none

	Pinned  bool
	Live    bool // DCE survivor flag
	Removed bool // folded away by GVN

	// Visit marks, one per pass family, so passes never need to clear
	// each other's bookkeeping.
	DCEMark   int
	GVNMark   int
	GCMMark   int
	AliasMark int // 0, 1 or 2 per spec 4.5

	EffectsIn  []*Instruction
	EffectsOut []*Instruction

	// Payload, populated per-opcode by hirgen.
	BinOp   BinOpKind
	Literal LiteralKind
	Index   int    // LoadArg/LoadContext/StoreContext index, Call argc
	Depth   int    // LoadContext/StoreContext depth
	Text    string // literal text (number/string/property name)

	// LIR back-pointer, set once lowering has run.
	LIR interface{}
}

// IsPhi reports whether i is a phi node living in Blk.Phis.
func (i *Instruction) IsPhi() bool { return i.Opcode == OpPhi }

// addUse records that i is used as an argument of user.
func (i *Instruction) addUse(user *Instruction) {
	i.Uses = append(i.Uses, user)
}

// ReplaceAllUsesWith rewrites every instruction that names i as an argument
// to instead name repl, and migrates the use list.
func (i *Instruction) ReplaceAllUsesWith(repl *Instruction) {
	for _, u := range i.Uses {
		for k, a := range u.Args {
			if a == i {
				u.Args[k] = repl
			}
		}

		repl.Uses = append(repl.Uses, u)
	}

	i.Uses = nil
}

// removeUse deletes user from i's use list. Used when an argument is
// rewritten or an instruction is removed from the graph.
func (i *Instruction) removeUse(user *Instruction) {
	for k, u := range i.Uses {
		if u == user {
			i.Uses = append(i.Uses[:k], i.Uses[k+1:]...)
			return
		}
	}
}

// SetArg replaces Args[k] and fixes up the corresponding use lists.
func (i *Instruction) SetArg(k int, v *Instruction) {
	if old := i.Args[k]; old != nil {
		old.removeUse(i)
	}

	i.Args[k] = v

	if v != nil {
		v.addUse(i)
	}
}

// NewArg appends v to Args and records the use.
func (i *Instruction) NewArg(v *Instruction) {
	i.Args = append(i.Args, v)

	if v != nil {
		v.addUse(i)
	}
}

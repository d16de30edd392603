package back

import "github.com/konteck/candor/compiler/lir"

// findBlock returns the block owning program position pos.
func findBlock(lf *lir.Func, pos int) *lir.Block {
	for _, b := range lf.Blocks {
		if pos >= b.StartID && pos <= b.EndID {
			return b
		}
	}

	return nil
}

// isBlockStart reports whether pos is the first id of some block, per
// lir.cc's IsBlockStart (Split avoids inserting a gap-move exactly on a
// block boundary since edge resolution handles that case instead).
func isBlockStart(lf *lir.Func, pos int) bool {
	for _, b := range lf.Blocks {
		if b.StartID == pos {
			return true
		}
	}

	return false
}

// GetGap finds or creates the LGap instruction at the given (odd)
// position within its owning block, per lir.cc's LGen::GetGap.
func GetGap(lf *lir.Func, pos int) *lir.Instruction {
	b := findBlock(lf, pos)
	if b == nil {
		return nil
	}

	for _, instr := range b.Instrs {
		if instr.ID == pos && instr.Opcode == lir.LGap {
			return instr
		}
	}

	gap := lf.AllocInstruction()
	gap.ID, gap.Opcode, gap.Block = pos, lir.LGap, b

	insertAt := len(b.Instrs)

	for k, instr := range b.Instrs {
		if instr.ID >= pos {
			insertAt = k

			break
		}
	}

	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[insertAt+1:], b.Instrs[insertAt:])
	b.Instrs[insertAt] = gap

	return gap
}

// addMove appends a source->target move to the gap at pos.
func addMove(lf *lir.Func, pos int, src, dst *lir.Use) {
	gap := GetGap(lf, pos)
	if gap == nil {
		return
	}

	gap.Moves = append(gap.Moves, lir.Move{Src: src, Dst: dst})
}

package opt

import (
	"testing"

	"github.com/konteck/candor/compiler/hir"
	"github.com/stretchr/testify/require"
)

func TestDCEDropsUnusedPureInstruction(t *testing.T) {
	blk := &hir.Block{ID: 0, DFSID: -1}
	fn := &hir.Func{Blocks: []*hir.Block{blk}, Root: blk}

	dead := &hir.Instruction{ID: 1, Opcode: hir.OpLiteral, Blk: blk}
	ret := &hir.Instruction{ID: 2, Opcode: hir.OpReturn, Blk: blk}
	kept := &hir.Instruction{ID: 3, Opcode: hir.OpLiteral, Blk: blk}
	ret.NewArg(kept)

	blk.Instrs = []*hir.Instruction{dead, kept, ret}

	DCE(fn)

	require.Len(t, blk.Instrs, 2)
	require.Contains(t, blk.Instrs, kept)
	require.Contains(t, blk.Instrs, ret)
	require.NotContains(t, blk.Instrs, dead)
}

func TestDCEKeepsSideEffectRootEvenUnused(t *testing.T) {
	blk := &hir.Block{ID: 0, DFSID: -1}
	fn := &hir.Func{Blocks: []*hir.Block{blk}, Root: blk}

	call := &hir.Instruction{ID: 1, Opcode: hir.OpCall, Blk: blk}
	blk.Instrs = []*hir.Instruction{call}

	DCE(fn)

	require.Contains(t, blk.Instrs, call)
}

package lower

import (
	"testing"

	"github.com/konteck/candor/compiler/hir"
	"github.com/konteck/candor/compiler/lir"
	"github.com/stretchr/testify/require"
)

// buildStraightLineFunc constructs the HIR add(a,b) { return a + b } by
// hand, mirroring what hirgen would have produced.
func buildStraightLineFunc() *hir.Func {
	blk := &hir.Block{ID: 0}

	la0 := &hir.Instruction{ID: 0, Opcode: hir.OpLoadArg, Index: 0, Blk: blk}
	la1 := &hir.Instruction{ID: 1, Opcode: hir.OpLoadArg, Index: 1, Blk: blk}
	add := &hir.Instruction{ID: 2, Opcode: hir.OpBinOp, BinOp: hir.BinAdd, Blk: blk}
	add.NewArg(la0)
	add.NewArg(la1)
	ret := &hir.Instruction{ID: 3, Opcode: hir.OpReturn, Blk: blk}
	ret.NewArg(add)

	blk.Instrs = []*hir.Instruction{la0, la1, add, ret}

	return &hir.Func{Name: "add", Root: blk, Blocks: []*hir.Block{blk}, NumArgs: 2}
}

func TestLowerStraightLine(t *testing.T) {
	fn := buildStraightLineFunc()

	lf, err := Lower(fn)
	require.NoError(t, err)
	require.Len(t, lf.Blocks, 1)

	lb := lf.Blocks[0]
	require.Len(t, lb.Instrs, 4)

	last := lb.Instrs[len(lb.Instrs)-1]
	require.Equal(t, lir.LReturn, last.Opcode)
	require.Len(t, last.Inputs, 1)
	require.NotNil(t, last.Inputs[0].Interval)
}

func TestLowerRejectsMissingTerminator(t *testing.T) {
	blk := &hir.Block{ID: 0}
	blk.Instrs = []*hir.Instruction{{ID: 0, Opcode: hir.OpLoadArg, Blk: blk}}

	fn := &hir.Func{Name: "bad", Root: blk, Blocks: []*hir.Block{blk}}

	_, err := Lower(fn)
	require.Error(t, err)
}

// A goto to a block with a phi must resolve into a gap move before the
// goto itself, per lowerTerminator's resolvePhis.
func TestLowerEmitsGapMoveForPhi(t *testing.T) {
	pre := &hir.Block{ID: 0}
	header := &hir.Block{ID: 1}

	seed := &hir.Instruction{ID: 0, Opcode: hir.OpLiteral, Literal: hir.LitNumber, Text: "0", Blk: pre}
	pre.Instrs = []*hir.Instruction{seed, {ID: 1, Opcode: hir.OpGoto, Blk: pre}}
	pre.Succs = []*hir.Block{header}
	header.Preds = []*hir.Block{pre}

	phi := &hir.Instruction{ID: 2, Opcode: hir.OpPhi, Blk: header}
	phi.Args = []*hir.Instruction{seed}
	header.Phis = []*hir.Instruction{phi}

	ret := &hir.Instruction{ID: 3, Opcode: hir.OpReturn, Blk: header}
	ret.NewArg(phi)
	header.Instrs = []*hir.Instruction{ret}

	fn := &hir.Func{Name: "loop", Root: pre, Blocks: []*hir.Block{pre, header}}

	lf, err := Lower(fn)
	require.NoError(t, err)

	preBlk := lf.Blocks[0]

	var sawGap bool

	for _, i := range preBlk.Instrs {
		if i.Opcode == lir.LGap {
			sawGap = true
			require.Len(t, i.Moves, 1)
		}
	}

	require.True(t, sawGap)
}

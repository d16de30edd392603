package back

import (
	"testing"

	"github.com/konteck/candor/compiler/hir"
	"github.com/konteck/candor/compiler/lir"
	"github.com/konteck/candor/compiler/lower"
	"github.com/stretchr/testify/require"
)

func buildAddFunc() *hir.Func {
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

func TestComputeLocalLiveSetsGenKill(t *testing.T) {
	lf, err := lower.Lower(buildAddFunc())
	require.NoError(t, err)

	sets := ComputeLocalLiveSets(lf)
	require.Len(t, sets, 1)

	bs := sets[lf.Blocks[0]]

	// LoadArg results are defined (killed) in this block, never used
	// before that definition, so gen must be empty for this single block.
	require.Equal(t, 0, bs.gen.Size())
	require.True(t, bs.kill.Size() > 0)
}

func TestBuildIntervalsAssignsEveryResult(t *testing.T) {
	lf, err := lower.Lower(buildAddFunc())
	require.NoError(t, err)

	sets := ComputeLocalLiveSets(lf)
	ComputeGlobalLiveSets(lf, sets)

	idx := IntervalIndex(lf)
	BuildIntervals(lf, sets, idx)

	for _, b := range lf.Blocks {
		for _, instr := range b.Instrs {
			if instr.Result == nil || instr.Result.Interval == nil {
				continue
			}

			iv := instr.Result.Interval
			require.NotEmpty(t, iv.Ranges, "instr %d result interval has no range", instr.ID)
		}
	}

	require.Len(t, lf.FixedRegisters, NumGeneralRegisters)
}

func TestEnsureFixedRegistersIdempotent(t *testing.T) {
	lf := &lir.Func{}

	ensureFixedRegisters(lf)
	first := len(lf.FixedRegisters)

	ensureFixedRegisters(lf)

	require.Equal(t, first, len(lf.FixedRegisters))
	require.Equal(t, NumGeneralRegisters, first)
}

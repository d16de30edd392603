package opt

import (
	"testing"

	"github.com/konteck/candor/compiler/hir"
	"github.com/stretchr/testify/require"
)

// A phi with both inputs equal collapses to that shared value and every
// use is rewritten to point at it directly.
func TestPrunePhisCollapsesTrivialPhi(t *testing.T) {
	blk := &hir.Block{ID: 0, DFSID: -1}
	fn := &hir.Func{Blocks: []*hir.Block{blk}, Root: blk}

	v := &hir.Instruction{ID: 1, Opcode: hir.OpLiteral, Blk: blk}
	phi := &hir.Instruction{ID: 2, Opcode: hir.OpPhi, Blk: blk}
	phi.Args = []*hir.Instruction{v, v}
	v.Uses = append(v.Uses, phi)

	use := &hir.Instruction{ID: 3, Opcode: hir.OpReturn, Blk: blk}
	use.NewArg(phi)

	blk.Phis = []*hir.Instruction{phi}
	blk.Instrs = []*hir.Instruction{use}

	PrunePhis(fn)

	require.Empty(t, blk.Phis)
	require.Equal(t, v, use.Args[0])
}

// A self-referential phi (loop back-edge feeding itself) also collapses,
// since its only real input is the other operand.
func TestPrunePhisCollapsesSelfReference(t *testing.T) {
	blk := &hir.Block{ID: 0, DFSID: -1}
	fn := &hir.Func{Blocks: []*hir.Block{blk}, Root: blk}

	seed := &hir.Instruction{ID: 1, Opcode: hir.OpLiteral, Blk: blk}
	phi := &hir.Instruction{ID: 2, Opcode: hir.OpPhi, Blk: blk}
	phi.Args = []*hir.Instruction{seed, phi}
	seed.Uses = append(seed.Uses, phi)

	blk.Phis = []*hir.Instruction{phi}

	PrunePhis(fn)

	require.Empty(t, blk.Phis)
}

// A used phi with genuinely distinct inputs survives.
func TestPrunePhisKeepsRealMerge(t *testing.T) {
	blk := &hir.Block{ID: 0, DFSID: -1}
	fn := &hir.Func{Blocks: []*hir.Block{blk}, Root: blk}

	a := &hir.Instruction{ID: 1, Opcode: hir.OpLiteral, Blk: blk}
	b := &hir.Instruction{ID: 2, Opcode: hir.OpLiteral, Blk: blk}
	phi := &hir.Instruction{ID: 3, Opcode: hir.OpPhi, Blk: blk}
	phi.Args = []*hir.Instruction{a, b}

	use := &hir.Instruction{ID: 4, Opcode: hir.OpReturn, Blk: blk}
	use.NewArg(phi)

	blk.Phis = []*hir.Instruction{phi}
	blk.Instrs = []*hir.Instruction{use}

	PrunePhis(fn)

	require.Len(t, blk.Phis, 1)
	require.Equal(t, phi, blk.Phis[0])
}

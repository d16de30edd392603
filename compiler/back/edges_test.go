package back

import (
	"testing"

	"github.com/konteck/candor/compiler/lir"
	"github.com/stretchr/testify/require"
)

func TestResolveDataFlowInsertsMoveOnLocationChange(t *testing.T) {
	pred := &lir.Block{ID: 0, StartID: 0, EndID: 4}
	succ := &lir.Block{ID: 1, StartID: 4, EndID: 8}
	pred.Succs = []*lir.Block{succ}

	root := lir.NewInterval(0, lir.KindVirtual)
	root.Allocated = true
	root.PhysicalIndex = 0
	root.AddRange(0, 4)

	child := lir.NewInterval(1, lir.KindVirtual)
	child.SplitParent = root
	child.Allocated = true
	child.PhysicalIndex = 1
	child.AddRange(4, 8)

	root.SplitChildren = []*lir.Interval{child}

	lf := &lir.Func{Blocks: []*lir.Block{pred, succ}, NextID: 8}

	ResolveDataFlow(lf, map[int]*lir.Interval{0: root, 1: child})

	var gap *lir.Instruction

	for _, i := range pred.Instrs {
		if i.Opcode == lir.LGap {
			gap = i
		}
	}

	require.NotNil(t, gap)
	require.Len(t, gap.Moves, 1)
	require.Equal(t, root, gap.Moves[0].Src.Interval)
	require.Equal(t, child, gap.Moves[0].Dst.Interval)
}

func TestResolveDataFlowSkipsSameLocation(t *testing.T) {
	pred := &lir.Block{ID: 0, StartID: 0, EndID: 4}
	succ := &lir.Block{ID: 1, StartID: 4, EndID: 8}
	pred.Succs = []*lir.Block{succ}

	iv := lir.NewInterval(0, lir.KindVirtual)
	iv.Allocated = true
	iv.PhysicalIndex = 2
	iv.AddRange(0, 8)

	lf := &lir.Func{Blocks: []*lir.Block{pred, succ}, NextID: 8}

	ResolveDataFlow(lf, map[int]*lir.Interval{0: iv})

	require.Empty(t, pred.Instrs)
}

func TestElideFallthroughGotos(t *testing.T) {
	a := &lir.Block{ID: 0}
	b := &lir.Block{ID: 1}
	a.Succs = []*lir.Block{b}
	a.Instrs = []*lir.Instruction{{ID: 1, Opcode: lir.LGoto, Block: a}}

	lf := &lir.Func{Blocks: []*lir.Block{a, b}}

	elideFallthroughGotos(lf)

	require.Empty(t, a.Instrs)
}

func TestElideFallthroughGotosKeepsNonAdjacentTarget(t *testing.T) {
	a := &lir.Block{ID: 0}
	b := &lir.Block{ID: 1}
	c := &lir.Block{ID: 2}
	a.Succs = []*lir.Block{c}
	a.Instrs = []*lir.Instruction{{ID: 1, Opcode: lir.LGoto, Block: a}}

	lf := &lir.Func{Blocks: []*lir.Block{a, b, c}}

	elideFallthroughGotos(lf)

	require.Len(t, a.Instrs, 1)
}

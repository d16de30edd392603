package back

import "github.com/konteck/candor/compiler/lir"

// ResolveDataFlow inserts a move on every CFG edge where a live interval
// occupies a different location on the predecessor side than on the
// successor side, per lir.cc's ResolveDataFlow. Must run after
// AllocateSpills so both endpoints have their final Kind/PhysicalIndex.
func ResolveDataFlow(lf *lir.Func, intervalByID map[int]*lir.Interval) {
	roots := make([]*lir.Interval, 0, len(intervalByID))

	for _, iv := range intervalByID {
		if iv.SplitParent == nil {
			roots = append(roots, iv)
		}
	}

	edgeGaps := map[[2]*lir.Block]*lir.Instruction{}

	for _, pred := range lf.Blocks {
		for _, succ := range pred.Succs {
			resolveEdge(lf, pred, succ, roots, edgeGaps)
		}
	}

	elideFallthroughGotos(lf)
}

// elideFallthroughGotos drops a block's trailing LGoto when its target is
// the very next block in emission order, per spec 4.11 ("if B falls
// through to S, drop B's goto").
func elideFallthroughGotos(lf *lir.Func) {
	for i, b := range lf.Blocks {
		if i+1 >= len(lf.Blocks) || len(b.Instrs) == 0 {
			continue
		}

		last := b.Instrs[len(b.Instrs)-1]
		if last.Opcode != lir.LGoto {
			continue
		}

		if lf.Blocks[i+1] == b.Succs[0] {
			b.Instrs = b.Instrs[:len(b.Instrs)-1]
		}
	}
}

func resolveEdge(lf *lir.Func, pred, succ *lir.Block, roots []*lir.Interval, edgeGaps map[[2]*lir.Block]*lir.Instruction) {
	if pred.EndID <= pred.StartID {
		return
	}

	tailPos := pred.EndID - 1
	headPos := succ.StartID

	for _, root := range roots {
		from := root.ChildAt(tailPos)
		to := root.ChildAt(headPos)

		if from == nil || to == nil || from == to {
			continue
		}

		if sameLocation(from, to) {
			continue
		}

		src := &lir.Use{Interval: from, Kind: lir.UseAny}
		dst := &lir.Use{Interval: to, Kind: lir.UseAny}

		gap := edgeGap(lf, pred, succ, edgeGaps)
		gap.Moves = append(gap.Moves, lir.Move{Src: src, Dst: dst})
		src.Instr, src.Pos = gap, gap.ID
		dst.Instr, dst.Pos = gap, gap.ID
	}
}

func sameLocation(a, b *lir.Interval) bool {
	return a.Kind == b.Kind && a.PhysicalIndex == b.PhysicalIndex
}

// edgeGap returns the gap carrying moves for the pred->succ edge: placed
// just before pred's final instruction for a simple goto (pred has one
// successor), or at the head of succ for a branch target. newEdgeGap gives
// each such gap a fresh odd id (lf.NextID-1) past the function's last
// position rather than an id between its neighbours.
func edgeGap(lf *lir.Func, pred, succ *lir.Block, edgeGaps map[[2]*lir.Block]*lir.Instruction) *lir.Instruction {
	key := [2]*lir.Block{pred, succ}

	if g, ok := edgeGaps[key]; ok {
		return g
	}

	var g *lir.Instruction

	if len(pred.Succs) == 1 {
		g = newEdgeGap(lf, pred, false)
	} else {
		g = newEdgeGap(lf, succ, true)
	}

	edgeGaps[key] = g

	return g
}

func newEdgeGap(lf *lir.Func, b *lir.Block, atHead bool) *lir.Instruction {
	id := lf.NextID - 1
	lf.NextID += 2

	gap := lf.AllocInstruction()
	gap.ID, gap.Opcode, gap.Block = id, lir.LGap, b

	if atHead {
		b.Instrs = append([]*lir.Instruction{gap}, b.Instrs...)

		return gap
	}

	n := len(b.Instrs)

	if n == 0 {
		b.Instrs = append(b.Instrs, gap)

		return gap
	}

	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[n:], b.Instrs[n-1:])
	b.Instrs[n-1] = gap

	return gap
}

// Package lower implements HIR -> LIR lowering: block flattening in a
// loop-respecting order, one-LIR-instruction-per-HIR-opcode emission, and
// phi resolution to parallel moves at predecessor tails, per spec 4.8 and
// grounded directly on original_source/src/lir.cc's
// LGen::FlattenBlocks/GenerateInstructions/VisitGoto/VisitPhi.
package lower

import (
	"github.com/konteck/candor/compiler/hir"
	"github.com/konteck/candor/compiler/lir"
	"github.com/nikandfor/errors"
)

type lowering struct {
	fn *hir.Func
	lf *lir.Func

	blockOf map[*hir.Block]*lir.Block
	valueOf map[*hir.Instruction]*lir.Interval

	nextIntervalID int
}

// Lower flattens fn and emits its LIR, returning the new function ready
// for liveness/interval construction.
func Lower(fn *hir.Func) (*lir.Func, error) {
	lf := &lir.Func{Name: fn.Name, PhiIntervals: map[*hir.Instruction]*lir.Interval{}}

	lw := &lowering{
		fn:      fn,
		lf:      lf,
		blockOf: map[*hir.Block]*lir.Block{},
		valueOf: map[*hir.Instruction]*lir.Interval{},
	}

	order := flattenBlocks(fn)

	for _, b := range order {
		lb := lf.AllocBlock()
		lb.ID, lb.Label, lb.HIR = b.ID, blockLabel(b), b
		lw.blockOf[b] = lb
		lf.Blocks = append(lf.Blocks, lb)
	}

	for _, b := range order {
		lb := lw.blockOf[b]
		lb.StartID = lf.NextID

		if err := lw.lowerBlock(b, lb); err != nil {
			return nil, errors.Wrap(err, "block %d", b.ID)
		}

		lb.EndID = lf.NextID
	}

	return lf, nil
}

func blockLabel(b *hir.Block) string {
	return "L" + itoa(b.ID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	i := len(buf)

	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[i:])
}

// flattenBlocks performs the work-queue BFS of spec 4.8: a block is
// emitted once all predecessors have been emitted, except loop headers,
// which are emitted on first visit.
func flattenBlocks(fn *hir.Func) []*hir.Block {
	remaining := map[*hir.Block]int{}

	for _, b := range fn.Blocks {
		remaining[b] = len(b.Preds)
	}

	visited := map[*hir.Block]bool{}

	var order []*hir.Block

	queue := []*hir.Block{fn.Root}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		if visited[b] {
			continue
		}

		visited[b] = true
		order = append(order, b)

		for _, s := range b.Succs {
			if visited[s] {
				continue
			}

			if s.Loop {
				queue = append(queue, s)

				continue
			}

			remaining[s]--

			if remaining[s] <= 0 {
				queue = append(queue, s)
			}
		}
	}

	return order
}

// Package opt implements the HIR optimization pipeline: phi-pruning, dead
// code elimination, effect analysis, global value numbering, and global
// code motion, run in that order per spec 4.3-4.7.
package opt

import (
	"github.com/konteck/candor/compiler/hir"
)

// PrunePhis extracts every phi from every block into a work queue and
// collapses trivial ones, re-enqueueing phi-shaped uses so a collapse can
// cascade (spec 4.3), grounded on original_source/src/hir.cc's
// HIRGen::PrunePhis.
func PrunePhis(fn *hir.Func) {
	queue := make([]*hir.Instruction, 0, 16)
	queued := map[*hir.Instruction]bool{}

	enqueue := func(p *hir.Instruction) {
		if p == nil || queued[p] {
			return
		}

		queued[p] = true
		queue = append(queue, p)
	}

	for _, b := range fn.Blocks {
		for _, p := range b.Phis {
			enqueue(p)
		}
	}

	removed := map[*hir.Instruction]bool{}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		queued[p] = false

		if removed[p] {
			continue
		}

		if len(p.Args) == 2 && (p.Args[1] == p || p.Args[0] == p.Args[1]) {
			p.Args = p.Args[:1]
		}

		switch len(p.Args) {
		case 0:
			p.Opcode = hir.OpLiteral
			p.Literal = hir.LitNil
			p.Pinned = false
		case 1:
			repl := p.Args[0]

			for _, u := range append([]*hir.Instruction(nil), p.Uses...) {
				if u.IsPhi() {
					enqueue(u)
				}
			}

			p.ReplaceAllUsesWith(repl)
			removeFromBlockPhis(p.Blk, p)
			removed[p] = true
		}
	}

	// Reinsert surviving, actually-used phis (spec 4.3 "Finally...").
	for _, b := range fn.Blocks {
		live := b.Phis[:0]

		for _, p := range b.Phis {
			if removed[p] || len(p.Uses) == 0 {
				continue
			}

			live = append(live, p)
		}

		b.Phis = live
	}
}

func removeFromBlockPhis(b *hir.Block, p *hir.Instruction) {
	for i, x := range b.Phis {
		if x == p {
			b.Phis = append(b.Phis[:i], b.Phis[i+1:]...)

			return
		}
	}
}

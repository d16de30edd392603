package opt

import "github.com/konteck/candor/compiler/hir"

// GCM implements Global Code Motion in the style of Click's algorithm:
// pin control/store/call/Entry/loop-back-edge instructions, schedule
// every free instruction as early as its inputs allow, then as late as
// its uses allow while preferring the shallowest loop depth, per spec 4.7.
func GCM(fn *hir.Func) {
	pinLoopBackedges(fn)

	all := allInstrs(fn)

	for _, i := range all {
		i.GCMMark = aliasUnvisited
	}

	for _, i := range all {
		scheduleEarly(fn, i)
	}

	for _, i := range all {
		i.GCMMark = aliasUnvisited
	}

	for _, i := range all {
		scheduleLate(i)
	}

	reinsert(fn, all)
}

func allInstrs(fn *hir.Func) []*hir.Instruction {
	var all []*hir.Instruction

	for _, b := range fn.Blocks {
		all = append(all, b.Instrs...)
	}

	return all
}

// pinLoopBackedges marks the second input of every loop-header phi
// pinned: it is the back-edge value, and moving it would change loop
// semantics (spec 4.7 "Pins").
func pinLoopBackedges(fn *hir.Func) {
	for _, b := range fn.Blocks {
		if !b.Loop {
			continue
		}

		for _, p := range b.Phis {
			if len(p.Args) == 2 && p.Args[1] != nil {
				p.Args[1].Pinned = true
			}
		}
	}
}

func deeper(a, b *hir.Block) *hir.Block {
	if b == nil {
		return a
	}

	if a == nil || b.DomDepth > a.DomDepth {
		return b
	}

	return a
}

func scheduleEarly(fn *hir.Func, i *hir.Instruction) {
	if i == nil || i.GCMMark == aliasDone {
		return
	}

	if i.GCMMark == aliasVisiting {
		return // loop-carried input cycle; current placement stands
	}

	i.GCMMark = aliasVisiting

	var target *hir.Block

	if i.Opcode.IsPinned() || i.Pinned {
		target = i.Blk
	} else if len(i.EffectsIn) > 0 {
		target = i.Blk
	} else {
		target = fn.Root
	}

	for _, a := range i.Args {
		scheduleEarly(fn, a)
		target = deeper(target, a.Blk)
	}

	i.Blk = target
	i.GCMMark = aliasDone
}

func scheduleLate(i *hir.Instruction) {
	if i == nil || i.GCMMark == aliasDone || i.GCMMark == aliasVisiting {
		return
	}

	i.GCMMark = aliasVisiting

	for _, u := range append([]*hir.Instruction(nil), i.Uses...) {
		scheduleLate(u)
	}

	if !i.Opcode.IsPinned() && !i.Pinned {
		var lca *hir.Block

		for _, u := range i.Uses {
			useBlk := useBlockFor(i, u)

			if lca == nil {
				lca = useBlk
			} else {
				lca = lcaBlocks(lca, useBlk)
			}
		}

		if lca != nil {
			i.Blk = pickShallowest(lca, i.Blk)
		}
	}

	i.GCMMark = aliasDone
}

// useBlockFor returns the block relevant to the use edge i->u: if u is a
// phi, the predecessor block supplying i as that phi's input; otherwise
// u's own block.
func useBlockFor(i, u *hir.Instruction) *hir.Block {
	if !u.IsPhi() {
		return u.Blk
	}

	for k, a := range u.Args {
		if a == i && k < len(u.Blk.Preds) {
			return u.Blk.Preds[k]
		}
	}

	return u.Blk
}

func lcaBlocks(a, b *hir.Block) *hir.Block {
	for a.DomDepth > b.DomDepth {
		a = a.Dom
	}

	for b.DomDepth > a.DomDepth {
		b = b.Dom
	}

	for a != b && a != nil && b != nil {
		a = a.Dom
		b = b.Dom
	}

	return a
}

// pickShallowest walks from lca up to early (inclusive) along dominators
// and returns the ancestor with the smallest loop depth, matching spec
// 4.7's schedule-late rule. Per spec.md's Open Questions note, the source
// block itself is a valid candidate.
func pickShallowest(lca, early *hir.Block) *hir.Block {
	best := lca
	cur := lca

	for {
		if cur.LoopDepth < best.LoopDepth {
			best = cur
		}

		if cur == early || cur.Dom == nil {
			break
		}

		cur = cur.Dom
	}

	return best
}

// reinsert walks all instructions in reverse and places each into its
// final block: control instructions at the tail, everything else at the
// head, per spec 4.7's "Reinsert" step.
func reinsert(fn *hir.Func, all []*hir.Instruction) {
	for _, b := range fn.Blocks {
		b.Instrs = nil
	}

	for k := len(all) - 1; k >= 0; k-- {
		i := all[k]
		b := i.Blk

		if i.Opcode.IsControl() {
			b.Instrs = append(b.Instrs, i)
		} else {
			b.Instrs = append([]*hir.Instruction{i}, b.Instrs...)
		}
	}
}

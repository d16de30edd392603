package opt

import "github.com/konteck/candor/compiler/hir"

// effects reports whether u "effects" its argument a: a must be ordered
// before any other observer of u's side effect. Per spec 4.5, a phi
// effects its inputs and a call effects its arguments; stores are folded
// in here too since they are the other source of ordering constraints
// DCE already treats as roots.
func effects(u *hir.Instruction) bool {
	switch u.Opcode {
	case hir.OpPhi, hir.OpCall, hir.OpStoreContext, hir.OpStoreProperty,
		hir.OpDeleteProperty, hir.OpStoreVarArg:
		return true
	default:
		return false
	}
}

const (
	aliasUnvisited = 0
	aliasVisiting  = 1
	aliasDone      = 2
)

// AnalyzeEffects computes effects_in/effects_out for every instruction of
// fn using two passes with distinct visit marks, per spec 4.5.
func AnalyzeEffects(fn *hir.Func) {
	computeEffectsOut(fn)
	computeEffectsIn(fn)
}

// computeEffectsOut propagates use -> def: each use contributes its own
// effects_out plus itself if it effects the definition.
func computeEffectsOut(fn *hir.Func) {
	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			i.AliasMark = aliasUnvisited
		}

		for _, p := range b.Phis {
			p.AliasMark = aliasUnvisited
		}
	}

	var visit func(i *hir.Instruction)

	visit = func(i *hir.Instruction) {
		if i.AliasMark == aliasDone || i.AliasMark == aliasVisiting {
			return
		}

		i.AliasMark = aliasVisiting

		dedup := map[int]bool{}

		var out []*hir.Instruction

		add := func(e *hir.Instruction) {
			if e == nil || dedup[e.ID] {
				return
			}

			dedup[e.ID] = true
			out = append(out, e)
		}

		for _, u := range i.Uses {
			visit(u)

			for _, e := range u.EffectsOut {
				add(e)
			}

			if effects(u) {
				add(u)
			}
		}

		i.EffectsOut = out
		i.AliasMark = aliasDone
	}

	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			visit(i)
		}

		for _, p := range b.Phis {
			visit(p)
		}
	}
}

// computeEffectsIn propagates def -> use, filtered by the
// ordered-reachability relation: effect e qualifies for effects_in(i)
// only if e.Blk is reachable from i.Blk, or they share a block and
// e.ID < i.ID.
func computeEffectsIn(fn *hir.Func) {
	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			i.AliasMark = aliasUnvisited
		}

		for _, p := range b.Phis {
			p.AliasMark = aliasUnvisited
		}
	}

	qualifies := func(e, i *hir.Instruction) bool {
		if e.Blk == i.Blk {
			return e.ID < i.ID
		}

		if i.Blk.ReachableFrom.Size() == 0 && e.Blk.DFSID < 0 {
			return false
		}

		return e.Blk.ReachableFrom.IsSet(i.Blk.DFSID)
	}

	var visit func(i *hir.Instruction)

	visit = func(i *hir.Instruction) {
		if i.AliasMark == aliasDone || i.AliasMark == aliasVisiting {
			return
		}

		i.AliasMark = aliasVisiting

		dedup := map[int]bool{}

		var in []*hir.Instruction

		add := func(e *hir.Instruction) {
			if e == nil || dedup[e.ID] || !qualifies(e, i) {
				return
			}

			dedup[e.ID] = true
			in = append(in, e)
		}

		for _, a := range i.Args {
			if a == nil {
				continue
			}

			visit(a)

			for _, e := range a.EffectsIn {
				add(e)
			}

			if effects(i) {
				add(a)
			}
		}

		i.EffectsIn = in
		i.AliasMark = aliasDone
	}

	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			visit(i)
		}

		for _, p := range b.Phis {
			visit(p)
		}
	}
}

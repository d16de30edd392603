package opt

import "github.com/konteck/candor/compiler/hir"

// DCE performs the backward-reachability dead code elimination of spec
// 4.4: instructions with side effects are roots, transitively marking
// their arguments live; everything else is dropped.
func DCE(fn *hir.Func) {
	var stack []*hir.Instruction

	mark := func(i *hir.Instruction) {
		if i == nil || i.Live {
			return
		}

		i.Live = true
		stack = append(stack, i)
	}

	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			i.Live = false
		}

		for _, p := range b.Phis {
			p.Live = false
		}
	}

	for _, b := range fn.Blocks {
		for _, i := range b.Instrs {
			if i.Opcode.HasSideEffects() {
				mark(i)
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, a := range i.Args {
			mark(a)
		}
	}

	for _, b := range fn.Blocks {
		kept := b.Instrs[:0]

		for _, i := range b.Instrs {
			if i.Live {
				kept = append(kept, i)
			}
		}

		b.Instrs = kept

		keptPhis := b.Phis[:0]

		for _, p := range b.Phis {
			if p.Live {
				keptPhis = append(keptPhis, p)
			}
		}

		b.Phis = keptPhis
	}
}

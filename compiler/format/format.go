// Package format renders HIR and LIR graphs as the block-by-block dumps
// spec 6 describes ("# Block N", "# dom: M", phis as "iK = Phi(...)",
// successors), grounded on the teacher's format/format.go
// app/hfmt.Appendf idiom.
package format

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/konteck/candor/compiler/hir"
)

// HIR renders one function's graph. Called both post-build ("fullgen",
// before any optimization pass has run) and post-optimization, per spec
// 6's three independent dump toggles.
func HIR(b []byte, fn *hir.Func) []byte {
	b = hfmt.Appendf(b, "func %s\n", fn.Name)

	for _, blk := range fn.Blocks {
		b = hirBlock(b, blk)
	}

	return b
}

func hirBlock(b []byte, blk *hir.Block) []byte {
	b = hfmt.Appendf(b, "\n# Block %d", blk.ID)

	if blk.Loop {
		b = append(b, " (loop)"...)
	}

	b = append(b, '\n')

	if blk.Dom != nil {
		b = hfmt.Appendf(b, "# dom: %d\n", blk.Dom.ID)
	}

	for _, p := range blk.Phis {
		b = hirInstr(b, p)
	}

	for _, i := range blk.Instrs {
		b = hirInstr(b, i)
	}

	if len(blk.Succs) > 0 {
		b = append(b, "# succ:"...)

		for _, s := range blk.Succs {
			b = hfmt.Appendf(b, " %d", s.ID)
		}

		b = append(b, '\n')
	}

	return b
}

func hirInstr(b []byte, i *hir.Instruction) []byte {
	if i.Removed {
		return b
	}

	b = hfmt.Appendf(b, "i%d = %v(", i.ID, i.Opcode)

	for k, a := range i.Args {
		if k != 0 {
			b = append(b, ", "...)
		}

		if a == nil {
			b = append(b, "nil"...)

			continue
		}

		b = hfmt.Appendf(b, "i%d", a.ID)
	}

	b = append(b, ')')

	if i.Text != "" {
		b = hfmt.Appendf(b, " %q", i.Text)
	}

	b = append(b, '\n')

	return b
}

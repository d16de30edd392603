package format

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/konteck/candor/compiler/lir"
)

// LIR renders one function's flattened instruction list, block by block.
func LIR(b []byte, lf *lir.Func) []byte {
	b = hfmt.Appendf(b, "func %s\n", lf.Name)

	for _, blk := range lf.Blocks {
		b = lirBlock(b, blk)
	}

	return b
}

func lirBlock(b []byte, blk *lir.Block) []byte {
	b = hfmt.Appendf(b, "\n# %s [%d,%d)\n", blk.Label, blk.StartID, blk.EndID)

	for _, i := range blk.Instrs {
		b = lirInstr(b, i)
	}

	if len(blk.Succs) > 0 {
		b = append(b, "# succ:"...)

		for _, s := range blk.Succs {
			b = hfmt.Appendf(b, " %s", s.Label)
		}

		b = append(b, '\n')
	}

	return b
}

func lirInstr(b []byte, i *lir.Instruction) []byte {
	if i.Opcode == lir.LGap {
		if len(i.Moves) == 0 {
			return b
		}

		b = hfmt.Appendf(b, "%d: gap ", i.ID)

		for k, m := range i.Moves {
			if k != 0 {
				b = append(b, ", "...)
			}

			b = appendUse(b, m.Src)
			b = append(b, "->"...)
			b = appendUse(b, m.Dst)
		}

		b = append(b, '\n')

		return b
	}

	b = hfmt.Appendf(b, "%d: ", i.ID)

	if i.Result != nil {
		b = appendUse(b, i.Result)
		b = append(b, " = "...)
	}

	b = hfmt.Appendf(b, "%v(", i.Opcode)

	for k := range i.Inputs {
		if k != 0 {
			b = append(b, ", "...)
		}

		b = appendUse(b, &i.Inputs[k])
	}

	b = append(b, ')')

	if i.HasCall {
		b = append(b, " [call]"...)
	}

	if i.TargetLabel != "" {
		b = hfmt.Appendf(b, " -> %s", i.TargetLabel)
	}

	if i.TargetLabel2 != "" {
		b = hfmt.Appendf(b, ", %s", i.TargetLabel2)
	}

	if i.Text != "" {
		b = hfmt.Appendf(b, " %q", i.Text)
	}

	b = append(b, '\n')

	return b
}

func appendUse(b []byte, u *lir.Use) []byte {
	if u == nil || u.Interval == nil {
		return append(b, '-')
	}

	return appendInterval(b, u.Interval)
}

func appendInterval(b []byte, iv *lir.Interval) []byte {
	switch iv.Kind {
	case lir.KindFixedRegister:
		return hfmt.Appendf(b, "r%d", iv.PhysicalIndex)
	case lir.KindStackSlot:
		return hfmt.Appendf(b, "s%d", iv.PhysicalIndex)
	case lir.KindConst:
		return hfmt.Appendf(b, "#%s", iv.ConstText)
	default:
		if iv.Allocated {
			return hfmt.Appendf(b, "i%d(r%d)", iv.ID, iv.PhysicalIndex)
		}

		return hfmt.Appendf(b, "i%d", iv.ID)
	}
}

// IntervalMap renders the interval-coverage visualization spec 6
// describes: one row per interval, one character per program position,
// grouped into '|'-separated block segments. '.' marks a position
// outside the interval's ranges, '_' a covered position with no use
// there, 'r'/'a' a register/any-kind use, 'R'/'A' a use at the
// interval's definition point, per original_source/src/lir.cc's
// PrintIntervals.
func IntervalMap(b []byte, lf *lir.Func) []byte {
	for _, iv := range lf.Intervals {
		b = hfmt.Appendf(b, "i%-4d ", iv.ID)

		for _, blk := range lf.Blocks {
			for pos := blk.StartID; pos < blk.EndID; pos++ {
				b = append(b, intervalChar(iv, pos))
			}

			b = append(b, '|')
		}

		b = append(b, '\n')
	}

	return b
}

func intervalChar(iv *lir.Interval, pos int) byte {
	if !iv.Covers(pos) {
		return '.'
	}

	u := iv.UseAt(pos)
	if u == nil {
		return '_'
	}

	isDef := len(iv.Ranges) > 0 && pos == iv.Ranges[0].Start

	switch {
	case isDef && u.Kind == lir.UseRegister:
		return 'R'
	case isDef:
		return 'A'
	case u.Kind == lir.UseRegister:
		return 'r'
	default:
		return 'a'
	}
}

package format

import (
	"strings"
	"testing"

	"github.com/konteck/candor/compiler/hir"
	"github.com/konteck/candor/compiler/lir"
	"github.com/stretchr/testify/require"
)

func TestHIRDumpsOpcodesAndBlockHeader(t *testing.T) {
	blk := &hir.Block{ID: 0}
	lit := &hir.Instruction{ID: 0, Opcode: hir.OpLiteral, Literal: hir.LitNumber, Text: "1", Blk: blk}
	ret := &hir.Instruction{ID: 1, Opcode: hir.OpReturn, Blk: blk}
	ret.NewArg(lit)
	blk.Instrs = []*hir.Instruction{lit, ret}

	fn := &hir.Func{Name: "f", Blocks: []*hir.Block{blk}}

	out := string(HIR(nil, fn))

	require.Contains(t, out, "func f")
	require.Contains(t, out, "# Block 0")
	require.Contains(t, out, "Return")
}

func TestFullgenDelegatesToHIR(t *testing.T) {
	fn := &hir.Func{Name: "g"}

	require.Equal(t, string(HIR(nil, fn)), string(Fullgen(nil, fn)))
}

func TestLIRRendersResultRegisterAndText(t *testing.T) {
	blk := &lir.Block{ID: 0, Label: "L0", StartID: 0, EndID: 4}

	reg := lir.NewInterval(0, lir.KindVirtual)
	reg.Allocated = true
	reg.PhysicalIndex = 1

	instr := &lir.Instruction{ID: 0, Opcode: lir.LLiteral, Block: blk, Text: "1"}
	instr.Result = &lir.Use{Interval: reg}
	blk.Instrs = []*lir.Instruction{instr}

	lf := &lir.Func{Name: "f", Blocks: []*lir.Block{blk}}

	out := string(LIR(nil, lf))

	require.Contains(t, out, "i0(r1)")
	require.Contains(t, out, "Literal")
	require.Contains(t, out, `"1"`)
}

func TestIntervalMapMarksDefAndUseCharacters(t *testing.T) {
	blk := &lir.Block{ID: 0, Label: "L0", StartID: 0, EndID: 4}

	iv := lir.NewInterval(0, lir.KindVirtual)
	iv.AddRange(0, 4)
	iv.AddUse(&lir.Use{Pos: 0, Kind: lir.UseAny})
	iv.AddUse(&lir.Use{Pos: 2, Kind: lir.UseRegister})

	lf := &lir.Func{Name: "f", Blocks: []*lir.Block{blk}, Intervals: []*lir.Interval{iv}}

	out := string(IntervalMap(nil, lf))
	line := strings.SplitN(out, "\n", 2)[0]

	require.Contains(t, line, "i0")
	require.Contains(t, out, "A_r_|")
}

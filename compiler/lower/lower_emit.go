package lower

import (
	"github.com/konteck/candor/compiler/hir"
	"github.com/konteck/candor/compiler/lir"
	"github.com/nikandfor/errors"
)

var opcodeMap = map[hir.Opcode]lir.Opcode{
	hir.OpEntry:           lir.LEntry,
	hir.OpLoadArg:         lir.LLoadArg,
	hir.OpLoadVarArg:      lir.LLoadVarArg,
	hir.OpLoadContext:     lir.LLoadContext,
	hir.OpStoreContext:    lir.LStoreContext,
	hir.OpLoadProperty:    lir.LLoadProperty,
	hir.OpStoreProperty:   lir.LStoreProperty,
	hir.OpDeleteProperty:  lir.LDeleteProperty,
	hir.OpBinOp:           lir.LBinOp,
	hir.OpNot:             lir.LNot,
	hir.OpAllocateArray:   lir.LAllocateArray,
	hir.OpAllocateObject:  lir.LAllocateObject,
	hir.OpStoreVarArg:     lir.LStoreVarArg,
	hir.OpSizeof:          lir.LSizeof,
	hir.OpKeysof:          lir.LKeysof,
	hir.OpTypeof:          lir.LTypeof,
	hir.OpClone:           lir.LClone,
	hir.OpAlignStack:      lir.LAlignStack,
	hir.OpCall:             lir.LCall,
	hir.OpCollectGarbage:  lir.LCollectGarbage,
	hir.OpGetStackTrace:   lir.LGetStackTrace,
}

// hasCallOpcodes may clobber caller-saved registers: the runtime
// allocator and GC hooks are real calls in the original implementation.
var hasCallOpcodes = map[hir.Opcode]bool{
	hir.OpCall:            true,
	hir.OpAllocateArray:   true,
	hir.OpAllocateObject:  true,
	hir.OpCollectGarbage:  true,
	hir.OpGetStackTrace:   true,
}

// producesResult reports whether op's LIR form has a result use.
func producesResult(op hir.Opcode) bool {
	switch op {
	case hir.OpStoreContext, hir.OpStoreProperty, hir.OpDeleteProperty,
		hir.OpStoreVarArg, hir.OpAlignStack:
		return false
	default:
		return true
	}
}

func (lw *lowering) lowerBlock(b *hir.Block, lb *lir.Block) error {
	if len(b.Instrs) == 0 {
		return errors.New("block %d has no instructions (missing terminator)", b.ID)
	}

	term := b.Instrs[len(b.Instrs)-1]
	if !term.Opcode.IsControl() {
		return errors.New("block %d does not end in a control instruction, got %v", b.ID, term.Opcode)
	}

	for _, i := range b.Instrs[:len(b.Instrs)-1] {
		if err := lw.lowerInstr(i, lb); err != nil {
			return errors.Wrap(err, "instr %d (%v)", i.ID, i.Opcode)
		}
	}

	return lw.lowerTerminator(b, term, lb)
}

func (lw *lowering) lowerInstr(i *hir.Instruction, lb *lir.Block) error {
	if i.Opcode == hir.OpLiteral {
		iv := lw.newInterval(lir.KindConst)
		iv.Rematerialize = true
		iv.ConstText = i.Text
		iv.HIRText = i.Opcode.String()
		lw.valueOf[i] = iv

		li := lw.lf.NewInstruction(lb, lir.LLiteral)
		li.HIR = i
		li.Text = i.Text
		li.Result = &lir.Use{Interval: iv, Kind: lir.UseAny, Instr: li, Pos: li.ID}

		return nil
	}

	lop, ok := opcodeMap[i.Opcode]
	if !ok {
		return errors.New("unsupported hir opcode %v", i.Opcode)
	}

	li := lw.lf.NewInstruction(lb, lop)
	li.HIR = i
	li.HasCall = hasCallOpcodes[i.Opcode]
	li.Text = i.Text

	for _, a := range i.Args {
		u, err := lw.useFor(a, li)
		if err != nil {
			return err
		}

		li.Inputs = append(li.Inputs, u)
	}

	if producesResult(i.Opcode) {
		iv := lw.newInterval(lir.KindVirtual)
		iv.HIRText = i.Opcode.String()
		lw.valueOf[i] = iv
		li.Result = &lir.Use{Interval: iv, Kind: lir.UseAny, Instr: li, Pos: li.ID}
	}

	return nil
}

func (lw *lowering) useFor(a *hir.Instruction, li *lir.Instruction) (lir.Use, error) {
	if a == nil {
		return lir.Use{}, nil
	}

	iv, ok := lw.valueOf[a]
	if !ok {
		return lir.Use{}, errors.New("value %d used before definition", a.ID)
	}

	u := lir.Use{Interval: iv, Kind: lir.UseAny, Instr: li}
	if li != nil {
		u.Pos = li.ID
	}

	return u, nil
}

func (lw *lowering) newInterval(kind lir.IntervalKind) *lir.Interval {
	id := lw.nextIntervalID
	lw.nextIntervalID++

	iv := lir.NewInterval(id, kind)
	lw.lf.Intervals = append(lw.lf.Intervals, iv)

	return iv
}

// lowerTerminator emits phi-resolution moves into the predecessor just
// before its goto/branch, then the control instruction itself, per spec
// 4.8's "phi lowering" and lir.cc's VisitGoto.
func (lw *lowering) lowerTerminator(b *hir.Block, term *hir.Instruction, lb *lir.Block) error {
	switch term.Opcode {
	case hir.OpGoto:
		target := b.Succs[0]

		if err := lw.resolvePhis(b, target, lb); err != nil {
			return err
		}

		lt := lw.lf.NewInstruction(lb, lir.LGoto)
		lt.HIR = term
		lt.TargetLabel = blockLabel(target)
		lb.Succs = append(lb.Succs, lw.blockOf[target])

	case hir.OpIf:
		tBlk, fBlk := b.Succs[0], b.Succs[1]

		if err := lw.resolvePhis(b, tBlk, lb); err != nil {
			return err
		}

		if err := lw.resolvePhis(b, fBlk, lb); err != nil {
			return err
		}

		u, err := lw.useFor(term.Args[0], nil)
		if err != nil {
			return err
		}

		lt := lw.lf.NewInstruction(lb, lir.LBranch)
		lt.HIR = term
		u.Instr = lt
		u.Pos = lt.ID
		lt.Inputs = append(lt.Inputs, u)
		lt.TargetLabel = blockLabel(tBlk)
		lt.TargetLabel2 = blockLabel(fBlk)
		lb.Succs = append(lb.Succs, lw.blockOf[tBlk], lw.blockOf[fBlk])

	case hir.OpReturn:
		u, err := lw.useFor(term.Args[0], nil)
		if err != nil {
			return err
		}

		lt := lw.lf.NewInstruction(lb, lir.LReturn)
		lt.HIR = term
		u.Instr = lt
		u.Pos = lt.ID
		lt.Inputs = append(lt.Inputs, u)

	default:
		return errors.New("block %d terminator is not control: %v", b.ID, term.Opcode)
	}

	return nil
}

// resolvePhis ensures every phi of target has an LIR virtual interval
// (creating one on first reference from any predecessor), then emits an
// LMove from b's corresponding input into that interval.
func (lw *lowering) resolvePhis(b, target *hir.Block, lb *lir.Block) error {
	if len(target.Phis) == 0 {
		return nil
	}

	predIdx := -1

	for k, p := range target.Preds {
		if p == b {
			predIdx = k

			break
		}
	}

	if predIdx == -1 {
		return errors.New("block %d is not a recorded predecessor of block %d", b.ID, target.ID)
	}

	var moves []lir.Move

	for _, phi := range target.Phis {
		if predIdx >= len(phi.Args) {
			continue
		}

		arg := phi.Args[predIdx]
		if arg == nil {
			continue
		}

		phiIv, ok := lw.lf.PhiIntervals[phi]
		if !ok {
			phiIv = lw.newInterval(lir.KindVirtual)
			phiIv.HIRText = "Phi"
			lw.lf.PhiIntervals[phi] = phiIv
			lw.valueOf[phi] = phiIv
		}

		srcIv, ok := lw.valueOf[arg]
		if !ok {
			return errors.New("phi input %d used before definition", arg.ID)
		}

		src := &lir.Use{Interval: srcIv, Kind: lir.UseAny}
		dst := &lir.Use{Interval: phiIv, Kind: lir.UseAny}

		moves = append(moves, lir.Move{Src: src, Dst: dst})
	}

	if len(moves) == 0 {
		return nil
	}

	gap := lw.lf.NewGap(lb)
	gap.Moves = moves

	for _, m := range moves {
		m.Src.Instr = gap
		m.Src.Pos = gap.ID
		m.Dst.Instr = gap
		m.Dst.Pos = gap.ID
	}

	return nil
}

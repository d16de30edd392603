package back

import (
	"github.com/konteck/candor/compiler/lir"
	"nikand.dev/go/heap"
)

const maxPos = int(^uint(0) >> 1)

// Allocator runs linear-scan register allocation with live-range
// splitting over one function's intervals, grounded directly on
// original_source/src/lir.cc's WalkIntervals/TryAllocateFreeReg/
// AllocateBlockedReg/LGen::Split.
type Allocator struct {
	lf      *lir.Func
	numRegs int

	unhandled heap.Heap[*lir.Interval]
	active    []*lir.Interval
	inactive  []*lir.Interval
	handled   []*lir.Interval

	nextSplitID int
}

func intervalLess(d []*lir.Interval, i, j int) bool {
	return d[i].Start() < d[j].Start()
}

// NewAllocator prepares an allocator for lf; BuildIntervals must already
// have populated lf.Intervals and lf.FixedRegisters.
func NewAllocator(lf *lir.Func) *Allocator {
	a := &Allocator{
		lf:        lf,
		numRegs:   NumGeneralRegisters,
		unhandled: heap.Heap[*lir.Interval]{Less: intervalLess},
	}

	maxID := 0
	for _, iv := range lf.Intervals {
		if iv.ID > maxID {
			maxID = iv.ID
		}
	}

	a.nextSplitID = maxID + 1

	return a
}

// Run walks every interval to completion, assigning each a physical
// register or marking it Spilled, per spec 4.10.
func (a *Allocator) Run() error {
	a.rematerializeConstants()

	for _, iv := range a.lf.Intervals {
		if iv.Kind != lir.KindVirtual || len(iv.Ranges) == 0 {
			continue
		}

		a.unhandled.Push(iv)
	}

	for _, fr := range a.lf.FixedRegisters {
		if len(fr.Ranges) > 0 {
			a.inactive = append(a.inactive, fr)
		}
	}

	for a.unhandled.Len() != 0 {
		current := a.unhandled.Pop()
		pos := current.Start()

		a.shuffle(pos)

		ok := a.tryAllocateFreeReg(current)
		if !ok {
			a.allocateBlockedReg(current)
		}

		if current.Allocated {
			a.active = append(a.active, current)
		} else {
			a.handled = append(a.handled, current)
		}
	}

	return nil
}

// shuffle moves active intervals no longer live at pos to handled, active
// intervals that have gone quiet (a lifetime hole) to inactive, and
// inactive intervals that have become live again back to active, per
// lir.cc's ShuffleIntervals.
func (a *Allocator) shuffle(pos int) {
	var stillActive []*lir.Interval

	for _, iv := range a.active {
		switch {
		case iv.End() <= pos:
			a.handled = append(a.handled, iv)
		case !iv.Covers(pos):
			a.inactive = append(a.inactive, iv)
		default:
			stillActive = append(stillActive, iv)
		}
	}

	a.active = stillActive

	var stillInactive []*lir.Interval

	for _, iv := range a.inactive {
		switch {
		case iv.End() <= pos:
			a.handled = append(a.handled, iv)
		case iv.Covers(pos):
			a.active = append(a.active, iv)
		default:
			stillInactive = append(stillInactive, iv)
		}
	}

	a.inactive = stillInactive
}

// tryAllocateFreeReg attempts to place current in a register free for its
// whole range, splitting it if only a prefix is free, per
// lir.cc's TryAllocateFreeReg.
func (a *Allocator) tryAllocateFreeReg(current *lir.Interval) bool {
	freeUntil := make([]int, a.numRegs)
	for r := range freeUntil {
		freeUntil[r] = maxPos
	}

	for _, iv := range a.active {
		if iv.Fixed || iv.Allocated {
			freeUntil[iv.PhysicalIndex] = 0
		}
	}

	for _, iv := range a.inactive {
		if !(iv.Fixed || iv.Allocated) {
			continue
		}

		if pos, ok := iv.FindIntersection(current); ok && pos < freeUntil[iv.PhysicalIndex] {
			freeUntil[iv.PhysicalIndex] = pos
		}
	}

	reg := -1

	if h := current.RegisterHint; h != nil && h.Interval != nil && h.Interval.Allocated {
		hint := h.Interval.PhysicalIndex
		if freeUntil[hint] > current.Start() {
			reg = hint
		}
	}

	if reg == -1 {
		reg = argmax(freeUntil)
	}

	if freeUntil[reg] <= current.Start() {
		return false
	}

	current.PhysicalIndex = reg
	current.Allocated = true

	if freeUntil[reg] < current.End() {
		splitPos := oddBefore(freeUntil[reg])
		if splitPos > current.Start() {
			child := a.split(current, splitPos)
			a.unhandled.Push(child)
		}
	}

	return true
}

// allocateBlockedReg evicts the interval with the farthest next use when
// every register is blocked, spilling current itself if nothing is free
// soon enough, per lir.cc's AllocateBlockedReg.
func (a *Allocator) allocateBlockedReg(current *lir.Interval) {
	nextUse := make([]int, a.numRegs)
	blockedAt := make([]int, a.numRegs)

	for r := range nextUse {
		nextUse[r] = maxPos
		blockedAt[r] = maxPos
	}

	for _, iv := range a.active {
		if !(iv.Fixed || iv.Allocated) {
			continue
		}

		r := iv.PhysicalIndex

		if iv.Fixed {
			blockedAt[r] = 0
			nextUse[r] = 0

			continue
		}

		if u := iv.UseAfter(current.Start(), lir.UseRegister); u != nil {
			nextUse[r] = u.Pos
		} else {
			nextUse[r] = maxPos
		}
	}

	for _, iv := range a.inactive {
		if !(iv.Fixed || iv.Allocated) {
			continue
		}

		pos, ok := iv.FindIntersection(current)
		if !ok {
			continue
		}

		r := iv.PhysicalIndex

		if iv.Fixed {
			if pos < blockedAt[r] {
				blockedAt[r] = pos
			}

			if pos < nextUse[r] {
				nextUse[r] = pos
			}

			continue
		}

		if u := iv.UseAfter(current.Start(), lir.UseRegister); u != nil && u.Pos < nextUse[r] {
			nextUse[r] = u.Pos
		}
	}

	reg := argmax(nextUse)

	firstRegUse := current.UseAfter(current.Start(), lir.UseRegister)

	if firstRegUse == nil {
		current.Spilled = true

		return
	}

	if firstRegUse.Pos > nextUse[reg] || blockedAt[reg] <= current.Start() {
		current.Spilled = true

		if firstRegUse.Pos > current.Start()+1 {
			splitPos := oddBefore(firstRegUse.Pos)
			if splitPos > current.Start() {
				child := a.split(current, splitPos)
				a.unhandled.Push(child)
			}
		}

		return
	}

	current.PhysicalIndex = reg
	current.Allocated = true

	if blockedAt[reg] < current.End() {
		splitPos := oddBefore(blockedAt[reg])
		if splitPos > current.Start() {
			child := a.split(current, splitPos)
			a.unhandled.Push(child)
		}
	}

	a.evictFromRegister(reg, current)
}

// evictFromRegister splits every active/inactive interval occupying reg
// and intersecting current at or after current's start, so reg is free
// for current from that point on.
func (a *Allocator) evictFromRegister(reg int, current *lir.Interval) {
	process := func(ivs []*lir.Interval) []*lir.Interval {
		var kept []*lir.Interval

		for _, iv := range ivs {
			if iv.Fixed || !iv.Allocated || iv.PhysicalIndex != reg {
				kept = append(kept, iv)

				continue
			}

			pos, ok := iv.FindIntersection(current)
			if !ok {
				kept = append(kept, iv)

				continue
			}

			splitAt := oddBefore(pos)
			if u := iv.UseAfter(current.Start(), lir.UseRegister); u != nil && u.Pos < splitAt {
				splitAt = oddBefore(u.Pos)
			}

			if splitAt <= iv.Start() {
				kept = append(kept, iv)

				continue
			}

			child := a.split(iv, splitAt)
			a.unhandled.Push(child)
		}

		return kept
	}

	a.active = process(a.active)
	a.inactive = process(a.inactive)
}

func argmax(v []int) int {
	best := 0
	for r := 1; r < len(v); r++ {
		if v[r] > v[best] {
			best = r
		}
	}

	return best
}

// oddBefore returns the largest odd position strictly less than pos, the
// gap id immediately preceding it, per lir.cc's convention that splits
// always land on a gap.
func oddBefore(pos int) int {
	if pos%2 == 0 {
		return pos - 1
	}

	return pos - 2
}

// split divides parent at pos into [start,pos) kept on parent and
// [pos,end) moved to a fresh child, inserting a gap-move between them
// unless pos lands exactly on a block boundary (edge resolution handles
// that case instead), per lir.cc's LGen::Split.
func (a *Allocator) split(parent *lir.Interval, pos int) *lir.Interval {
	root := parent
	for root.SplitParent != nil {
		root = root.SplitParent
	}

	child := lir.NewInterval(a.nextSplitID, parent.Kind)
	a.nextSplitID++

	child.SplitParent = root
	child.Rematerialize = parent.Rematerialize
	child.ConstText = parent.ConstText
	child.HIRText = parent.HIRText
	root.SplitChildren = append(root.SplitChildren, child)

	var keptRanges []lir.Range

	for _, r := range parent.Ranges {
		switch {
		case r.End <= pos:
			keptRanges = append(keptRanges, r)
		case r.Start >= pos:
			child.Ranges = append(child.Ranges, r)
		default:
			keptRanges = append(keptRanges, lir.Range{Start: r.Start, End: pos})
			child.Ranges = append(child.Ranges, lir.Range{Start: pos, End: r.End})
		}
	}

	parent.Ranges = keptRanges

	var keptUses []*lir.Use

	for _, u := range parent.Uses {
		if u.Pos >= pos {
			u.Interval = child
			child.Uses = append(child.Uses, u)
		} else {
			keptUses = append(keptUses, u)
		}
	}

	parent.Uses = keptUses

	if !isBlockStart(a.lf, pos) {
		src := &lir.Use{Interval: parent, Kind: lir.UseAny}
		dst := &lir.Use{Interval: child, Kind: lir.UseAny}
		addMove(a.lf, pos, src, dst)
	}

	return child
}

// rematerializeConstants rewrites every register-kind use of a constant
// interval into a fresh virtual loaded by a gap-move immediately before
// the use, rather than letting the constant itself compete for a
// register across its whole range, per lir.cc's constant handling in
// WalkIntervals.
func (a *Allocator) rematerializeConstants() {
	for _, iv := range a.lf.Intervals {
		if iv.Kind != lir.KindConst {
			continue
		}

		uses := iv.Uses
		iv.Uses = nil

		for _, u := range uses {
			if u.Kind != lir.UseRegister {
				iv.Uses = append(iv.Uses, u)

				continue
			}

			child := lir.NewInterval(a.nextSplitID, lir.KindVirtual)
			a.nextSplitID++
			child.Rematerialize = true
			child.ConstText = iv.ConstText
			child.HIRText = iv.HIRText
			child.AddRange(u.Pos-1, u.Pos)

			src := &lir.Use{Interval: iv, Kind: lir.UseAny}
			dst := &lir.Use{Interval: child, Kind: lir.UseAny}
			addMove(a.lf, u.Pos-1, src, dst)

			u.Interval = child
			child.AddUse(u)

			// Run pushes every virtual interval in lf.Intervals onto unhandled.
			a.lf.Intervals = append(a.lf.Intervals, child)
		}
	}
}

package back

import (
	"testing"

	"github.com/konteck/candor/compiler/lir"
	"github.com/stretchr/testify/require"
)

func TestAllocateSpillsReusesFreedSlot(t *testing.T) {
	a := lir.NewInterval(0, lir.KindVirtual)
	a.Spilled = true
	a.AddRange(0, 10)

	b := lir.NewInterval(1, lir.KindVirtual)
	b.Spilled = true
	b.AddRange(10, 20)

	lf := &lir.Func{Intervals: []*lir.Interval{a, b}}

	AllocateSpills(lf)

	require.Equal(t, lir.KindStackSlot, a.Kind)
	require.Equal(t, lir.KindStackSlot, b.Kind)
	require.Equal(t, a.PhysicalIndex, b.PhysicalIndex, "b should reuse a's slot once a's range has ended")
	require.Equal(t, 1, lf.NumSpillSlots)
}

func TestAllocateSpillsGivesOverlappingIntervalsDistinctSlots(t *testing.T) {
	a := lir.NewInterval(0, lir.KindVirtual)
	a.Spilled = true
	a.AddRange(0, 10)

	b := lir.NewInterval(1, lir.KindVirtual)
	b.Spilled = true
	b.AddRange(5, 15)

	lf := &lir.Func{Intervals: []*lir.Interval{a, b}}

	AllocateSpills(lf)

	require.NotEqual(t, a.PhysicalIndex, b.PhysicalIndex)
	require.Equal(t, 2, lf.NumSpillSlots)
}

func TestAllocateSpillsSkipsAllocatedIntervals(t *testing.T) {
	a := lir.NewInterval(0, lir.KindVirtual)
	a.Allocated = true
	a.PhysicalIndex = 3
	a.AddRange(0, 10)

	lf := &lir.Func{Intervals: []*lir.Interval{a}}

	AllocateSpills(lf)

	require.Equal(t, lir.KindVirtual, a.Kind)
	require.Equal(t, 0, lf.NumSpillSlots)
}

package back

import (
	"testing"

	"github.com/konteck/candor/compiler/lir"
	"github.com/konteck/candor/compiler/lower"
	"github.com/stretchr/testify/require"
)

func allocateAddFunc(t *testing.T) *lir.Func {
	lf, err := lower.Lower(buildAddFunc())
	require.NoError(t, err)

	sets := ComputeLocalLiveSets(lf)
	ComputeGlobalLiveSets(lf, sets)

	idx := IntervalIndex(lf)
	BuildIntervals(lf, sets, idx)

	alloc := NewAllocator(lf)
	require.NoError(t, alloc.Run())

	return lf
}

// allIntervals flattens lf.Intervals plus every split child reachable from
// them, since the allocator replaces a parent with its children once a
// split occurs.
func allIntervals(lf *lir.Func) []*lir.Interval {
	var all []*lir.Interval

	var walk func(iv *lir.Interval)

	walk = func(iv *lir.Interval) {
		all = append(all, iv)

		for _, c := range iv.SplitChildren {
			walk(c)
		}
	}

	for _, iv := range lf.Intervals {
		walk(iv)
	}

	return all
}

func TestAllocatorAssignsRegistersInRange(t *testing.T) {
	lf := allocateAddFunc(t)

	for _, iv := range allIntervals(lf) {
		if len(iv.Ranges) == 0 || iv.Kind != lir.KindVirtual {
			continue
		}

		require.True(t, iv.Allocated || iv.Spilled, "interval %d got neither a register nor a spill slot", iv.ID)

		if iv.Allocated {
			require.GreaterOrEqual(t, iv.PhysicalIndex, 0)
			require.Less(t, iv.PhysicalIndex, NumGeneralRegisters)
		}
	}
}

// Two simultaneously live virtual intervals (the two LoadArg results, both
// alive up to the BinOp that consumes them) must never land on the same
// register.
func TestAllocatorNeverDoubleBooksARegister(t *testing.T) {
	lf := allocateAddFunc(t)

	intervals := allIntervals(lf)

	for pos := 0; pos < lf.NextID; pos++ {
		seen := map[int]int{}

		for _, iv := range intervals {
			if iv.Kind != lir.KindVirtual || !iv.Allocated || !iv.Covers(pos) {
				continue
			}

			if prev, ok := seen[iv.PhysicalIndex]; ok {
				t.Fatalf("register r%d double-booked by intervals %d and %d at pos %d", iv.PhysicalIndex, prev, iv.ID, pos)
			}

			seen[iv.PhysicalIndex] = iv.ID
		}
	}
}

func TestAllocateSpillsAssignsDisjointSlots(t *testing.T) {
	lf := allocateAddFunc(t)

	AllocateSpills(lf)

	for pos := 0; pos < lf.NextID; pos++ {
		seen := map[int]int{}

		for _, iv := range allIntervals(lf) {
			if iv.Kind != lir.KindStackSlot || !iv.Covers(pos) {
				continue
			}

			if prev, ok := seen[iv.PhysicalIndex]; ok {
				t.Fatalf("slot s%d double-booked by intervals %d and %d at pos %d", iv.PhysicalIndex, prev, iv.ID, pos)
			}

			seen[iv.PhysicalIndex] = iv.ID
		}
	}
}

package back

import (
	"sort"

	"github.com/konteck/candor/compiler/lir"
)

// AllocateSpills assigns a stack-slot index to every interval the
// register allocator marked Spilled, reusing a slot once its previous
// occupant's range has ended and falling back to a fresh slot otherwise,
// per lir.cc's AllocateSpills.
func AllocateSpills(lf *lir.Func) {
	var spilled []*lir.Interval

	collect := func(iv *lir.Interval) {
		if iv.Spilled && !iv.Allocated && len(iv.Ranges) > 0 {
			spilled = append(spilled, iv)
		}
	}

	for _, iv := range lf.Intervals {
		collect(iv)

		for _, c := range iv.SplitChildren {
			collect(c)
		}
	}

	sort.Slice(spilled, func(i, j int) bool { return spilled[i].Start() < spilled[j].Start() })

	type freeSlot struct {
		end  int
		slot int
	}

	var free []freeSlot

	numSlots := 0

	for _, iv := range spilled {
		bestIdx, bestSlot := -1, -1

		for idx, fs := range free {
			if fs.end > iv.Start() {
				continue
			}

			if bestSlot == -1 || fs.slot < bestSlot {
				bestSlot = fs.slot
				bestIdx = idx
			}
		}

		var slot int

		if bestIdx != -1 {
			slot = bestSlot
			free = append(free[:bestIdx], free[bestIdx+1:]...)
		} else {
			slot = numSlots
			numSlots++
		}

		iv.Kind = lir.KindStackSlot
		iv.PhysicalIndex = slot

		free = append(free, freeSlot{end: iv.End(), slot: slot})
	}

	lf.NumSpillSlots = numSlots
}

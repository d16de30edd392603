// Package back implements liveness, interval construction, linear-scan
// register allocation with live-range splitting, CFG-edge data-flow
// resolution and spill-slot coloring, per spec 4.9-4.11. Every algorithm
// here is grounded method-for-method on
// original_source/src/lir.cc's LGen, per the system's guidance to follow
// the pre-distillation original when the spec's distillation is silent on
// a detail.
package back

import (
	"github.com/konteck/candor/compiler/lir"
	"github.com/konteck/candor/compiler/set"
)

// NumGeneralRegisters is the size of the abstract physical register file
// the allocator targets; the target-specific assembler maps indices to
// real machine registers (spec 1, "out of scope").
const NumGeneralRegisters = 8

type blockSets struct {
	gen, kill set.Bits[int]
	in, out   set.Bits[int]
}

// ComputeLocalLiveSets computes live_gen/live_kill per block: uses before
// any local kill are gen; result and scratch definitions are kill, per
// spec 4.9 and lir.cc's ComputeLocalLiveSets.
func ComputeLocalLiveSets(lf *lir.Func) map[*lir.Block]*blockSets {
	sets := make(map[*lir.Block]*blockSets, len(lf.Blocks))

	for _, b := range lf.Blocks {
		bs := &blockSets{gen: set.MakeBits(0), kill: set.MakeBits(0)}
		sets[b] = bs

		for _, instr := range b.Instrs {
			for _, u := range instr.Inputs {
				if u.Interval == nil || bs.kill.IsSet(u.Interval.ID) {
					continue
				}

				bs.gen.Set(u.Interval.ID)
			}

			for _, u := range instr.Scratch {
				if u.Interval != nil {
					bs.kill.Set(u.Interval.ID)
				}
			}

			if instr.Result != nil && instr.Result.Interval != nil {
				bs.kill.Set(instr.Result.Interval.ID)
			}

			if instr.Opcode == lir.LGap {
				for _, m := range instr.Moves {
					if m.Src.Interval != nil && !bs.kill.IsSet(m.Src.Interval.ID) {
						bs.gen.Set(m.Src.Interval.ID)
					}

					if m.Dst.Interval != nil {
						bs.kill.Set(m.Dst.Interval.ID)
					}
				}
			}
		}
	}

	return sets
}

// ComputeGlobalLiveSets iterates live_out(B) = union(succ.live_in),
// live_in(B) = gen(B) | (live_out(B) \ kill(B)) to a fixed point, per
// spec 4.9 and lir.cc's ComputeGlobalLiveSets.
func ComputeGlobalLiveSets(lf *lir.Func, sets map[*lir.Block]*blockSets) {
	for _, bs := range sets {
		bs.in = bs.gen.Copy()
		bs.out = set.MakeBits(0)
	}

	for {
		changed := false

		for _, b := range lf.Blocks {
			bs := sets[b]

			newOut := set.MakeBits(0)

			for _, s := range b.Succs {
				newOut.Merge(sets[s].in)
			}

			newIn := newOut.Copy()
			newIn.Substract(bs.kill)
			newIn.Merge(bs.gen)

			if !bitsEqual(newOut, bs.out) || !bitsEqual(newIn, bs.in) {
				changed = true
			}

			bs.out = newOut
			bs.in = newIn
		}

		if !changed {
			break
		}
	}
}

func bitsEqual(a, b set.Bits[int]) bool {
	if a.Size() != b.Size() {
		return false
	}

	eq := true

	a.Range(func(k int) bool {
		if !b.IsSet(k) {
			eq = false

			return false
		}

		return true
	})

	return eq
}

// BuildIntervals walks blocks in reverse order building ranges from the
// global liveness sets and the instructions themselves, per spec 4.9 and
// lir.cc's BuildIntervals.
func BuildIntervals(lf *lir.Func, sets map[*lir.Block]*blockSets, intervalByID map[int]*lir.Interval) {
	ensureFixedRegisters(lf)

	for bi := len(lf.Blocks) - 1; bi >= 0; bi-- {
		b := lf.Blocks[bi]
		bs := sets[b]

		bs.out.Range(func(id int) bool {
			if iv := intervalByID[id]; iv != nil {
				iv.AddRange(b.StartID, b.EndID+2)
			}

			return true
		})

		for ii := len(b.Instrs) - 1; ii >= 0; ii-- {
			instr := b.Instrs[ii]

			if instr.HasCall {
				for _, fr := range lf.FixedRegisters {
					fr.AddRange(instr.ID, instr.ID+1)
					fr.AddUse(&lir.Use{Interval: fr, Kind: lir.UseRegister, Instr: instr, Pos: instr.ID})
				}
			}

			if instr.Result != nil && instr.Result.Interval != nil {
				iv := instr.Result.Interval

				if len(iv.Ranges) > 0 && !bs.in.IsSet(iv.ID) {
					iv.Ranges[0].Start = instr.ID
				} else if len(iv.Ranges) == 0 {
					iv.AddRange(instr.ID, instr.ID+1)
				}

				iv.AddUse(instr.Result)
			}

			for k := range instr.Scratch {
				u := &instr.Scratch[k]

				if u.Interval != nil {
					u.Interval.AddRange(instr.ID-1, instr.ID)
					u.Interval.AddUse(u)
				}
			}

			for k := range instr.Inputs {
				u := &instr.Inputs[k]

				if u.Interval != nil {
					u.Interval.AddRange(b.StartID, instr.ID)
					u.Interval.AddUse(u)
				}
			}

			if instr.Opcode == lir.LGap {
				for _, m := range instr.Moves {
					if m.Src.Interval != nil {
						m.Src.Interval.AddRange(b.StartID, instr.ID)
						m.Src.Interval.AddUse(m.Src)
					}

					if m.Dst.Interval != nil {
						if len(m.Dst.Interval.Ranges) > 0 {
							m.Dst.Interval.Ranges[0].Start = instr.ID
						} else {
							m.Dst.Interval.AddRange(instr.ID, instr.ID+1)
						}

						m.Dst.Interval.AddUse(m.Dst)
					}
				}
			}
		}
	}
}

func ensureFixedRegisters(lf *lir.Func) {
	if len(lf.FixedRegisters) > 0 {
		return
	}

	for r := 0; r < NumGeneralRegisters; r++ {
		fr := lir.NewInterval(-1000-r, lir.KindFixedRegister)
		fr.Fixed = true
		fr.PhysicalIndex = r
		lf.FixedRegisters = append(lf.FixedRegisters, fr)
	}
}

// IntervalIndex builds the id -> *Interval lookup BuildIntervals needs.
func IntervalIndex(lf *lir.Func) map[int]*lir.Interval {
	idx := make(map[int]*lir.Interval, len(lf.Intervals))

	for _, iv := range lf.Intervals {
		idx[iv.ID] = iv
	}

	return idx
}

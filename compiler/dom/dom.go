// Package dom computes dominator trees and reachable-from bitsets over
// the blocks of one or more HIR function roots, using the Lengauer-Tarjan
// algorithm exactly as the original (hir.cc's DeriveDominators/
// EnumerateDFS) does, generalized to cope with multiple roots (nested
// function literals) in a single pass.
package dom

import (
	"github.com/konteck/candor/compiler/hir"
	"github.com/konteck/candor/compiler/set"
)

// Build computes dfs-ids, immediate dominators, dominator depths, and
// reachable-from bitsets for every block reachable from any of roots.
// Unreachable blocks (DFSID left at -1) are left untouched, per spec 4.2.
func Build(roots []*hir.Block) {
	blocks := enumerateDFS(roots)

	deriveDominators(blocks)

	computeReachability(blocks)
}

// ltState is the Lengauer-Tarjan scratch bookkeeping for one block,
// addressed by dfs-id rather than stored back on hir.Block directly so
// the algorithm reads the same as the textbook presentation.
type ltState struct {
	block    *hir.Block
	semi     int // dfs-id of semidominator
	parent   int
	ancestor int
	label    int
	idom     int
	bucket   []int
}

// enumerateDFS assigns dfs-ids via a pre-order DFS from each root in turn,
// skipping blocks already visited by an earlier root (shared only through
// nested-function edges, which don't exist in this model, but the skip
// keeps multi-root traversal correct regardless).
func enumerateDFS(roots []*hir.Block) []*ltState {
	var order []*ltState

	var visit func(b *hir.Block, parent int)

	visit = func(b *hir.Block, parent int) {
		if b.DFSID != -1 {
			return
		}

		b.DFSID = len(order)
		st := &ltState{block: b, semi: b.DFSID, parent: parent, ancestor: -1, label: b.DFSID, idom: -1}
		order = append(order, st)

		for _, s := range b.Succs {
			visit(s, b.DFSID)
		}
	}

	for _, r := range roots {
		visit(r, -1)
	}

	return order
}

func deriveDominators(order []*ltState) {
	n := len(order)
	if n == 0 {
		return
	}

	pred := make([][]int, n)

	for _, st := range order {
		for _, s := range st.block.Succs {
			if s.DFSID == -1 {
				continue
			}

			pred[s.DFSID] = append(pred[s.DFSID], st.block.DFSID)
		}
	}

	link := func(v, w int) {
		order[w].ancestor = v
	}

	var compress func(v int)

	compress = func(v int) {
		a := order[v].ancestor
		if a == -1 || order[a].ancestor == -1 {
			return
		}

		compress(a)

		if order[order[a].label].semi < order[order[v].label].semi {
			order[v].label = order[a].label
		}

		order[v].ancestor = order[a].ancestor
	}

	eval := func(v int) int {
		if order[v].ancestor == -1 {
			return v
		}

		compress(v)

		return order[v].label
	}

	for i := n - 1; i >= 1; i-- {
		w := i

		if order[w].parent == -1 {
			continue
		}

		for _, v := range pred[w] {
			u := eval(v)

			if order[u].semi < order[w].semi {
				order[w].semi = order[u].semi
			}
		}

		order[order[w].semi].bucket = append(order[order[w].semi].bucket, w)

		link(order[w].parent, w)

		pbucket := order[order[w].parent].bucket
		order[order[w].parent].bucket = nil

		for _, v := range pbucket {
			u := eval(v)

			if order[u].semi < order[v].semi {
				order[v].idom = u
			} else {
				order[v].idom = order[w].parent
			}
		}
	}

	for i := 1; i < n; i++ {
		if order[i].idom != order[i].semi && order[i].idom != -1 {
			order[i].idom = order[order[i].idom].idom
		}
	}

	order[0].idom = -1

	for i := 0; i < n; i++ {
		st := order[i]

		if st.idom >= 0 {
			st.block.Dom = order[st.idom].block
			st.block.DomDepth = order[st.idom].block.DomDepth + 1
		} else {
			st.block.Dom = nil
			st.block.DomDepth = 0
		}
	}
}

// computeReachability runs the fixed-point sweep from spec 4.2: each
// block's reachable-from set is the union of its predecessors' sets plus
// their ids, iterated until no bit is added in a full pass.
func computeReachability(order []*ltState) {
	for _, st := range order {
		st.block.ReachableFrom = set.MakeBitmap(len(order))
	}

	for {
		changed := false

		for _, st := range order {
			b := st.block

			for _, p := range b.Preds {
				if p.DFSID == -1 {
					continue
				}

				before := b.ReachableFrom.Size()

				b.ReachableFrom.Set(p.DFSID)
				b.ReachableFrom.Or(p.ReachableFrom)

				if b.ReachableFrom.Size() != before {
					changed = true
				}
			}
		}

		if !changed {
			break
		}
	}
}

// Dominates reports whether a dominates b (inclusive: a dominates itself).
func Dominates(a, b *hir.Block) bool {
	for c := b; c != nil; c = c.Dom {
		if c == a {
			return true
		}
	}

	return a == b
}

// LCA returns the lowest common ancestor of a and b in the dominator tree.
func LCA(a, b *hir.Block) *hir.Block {
	for a.DomDepth > b.DomDepth {
		a = a.Dom
	}

	for b.DomDepth > a.DomDepth {
		b = b.Dom
	}

	for a != b {
		a = a.Dom
		b = b.Dom
	}

	return a
}

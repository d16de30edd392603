package dom

import (
	"testing"

	"github.com/konteck/candor/compiler/hir"
	"github.com/stretchr/testify/require"
)

func newBlock(id int) *hir.Block { return &hir.Block{ID: id, DFSID: -1} }

// diamond builds root -> {then, els} -> join, the shape buildIf emits.
func diamond() (root, then, els, join *hir.Block) {
	root = newBlock(0)
	then = newBlock(1)
	els = newBlock(2)
	join = newBlock(3)

	link(root, then)
	link(root, els)
	link(then, join)
	link(els, join)

	return root, then, els, join
}

func link(p, s *hir.Block) {
	p.Succs = append(p.Succs, s)
	s.Preds = append(s.Preds, p)
}

func TestDominatesDiamond(t *testing.T) {
	root, then, els, join := diamond()

	Build([]*hir.Block{root})

	require.True(t, Dominates(root, join))
	require.True(t, Dominates(root, then))
	require.False(t, Dominates(then, join))
	require.False(t, Dominates(els, join))
	require.Equal(t, root, join.Dom)
}

func TestLCADiamond(t *testing.T) {
	root, then, els, _ := diamond()

	Build([]*hir.Block{root})

	require.Equal(t, root, LCA(then, els))
	require.Equal(t, then, LCA(then, then))
}

func TestReachableFromLinearChain(t *testing.T) {
	a := newBlock(0)
	b := newBlock(1)
	c := newBlock(2)

	link(a, b)
	link(b, c)

	Build([]*hir.Block{a})

	require.True(t, c.ReachableFrom.IsSet(a.DFSID))
	require.True(t, c.ReachableFrom.IsSet(b.DFSID))
	require.False(t, a.ReachableFrom.IsSet(c.DFSID))
}

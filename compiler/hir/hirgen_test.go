package hir

import (
	"context"
	"testing"

	"github.com/konteck/candor/compiler/ast"
	"github.com/stretchr/testify/require"
)

func slot(i int) ast.ScopeSlot { return ast.ScopeSlot{Kind: ast.StackSlot, Index: i} }

// add(a, b) { return a + b } has one block and a single BinOp feeding Return.
func TestBuildStraightLine(t *testing.T) {
	a, b := slot(0), slot(1)

	top := &ast.Function{
		Name:       "add",
		StackSlots: 2,
		Args:       []ast.ScopeSlot{a, b},
		Body: []ast.Node{
			ast.Return{
				Value: ast.BinOp{Subtype: ast.BinAdd, Left: ast.Value{Slot: a}, Right: ast.Value{Slot: b}},
			},
		},
	}

	g, err := Build(context.Background(), top)
	require.NoError(t, err)
	require.Len(t, g.Funcs, 1)

	fn := g.Funcs[0]
	require.Equal(t, "add", fn.Name)
	require.Len(t, fn.Blocks, 1)

	var sawBinOp, sawReturn bool

	for _, i := range fn.Root.Instrs {
		switch i.Opcode {
		case OpBinOp:
			sawBinOp = true
			require.Equal(t, BinAdd, i.BinOp)
		case OpReturn:
			sawReturn = true
		}
	}

	require.True(t, sawBinOp)
	require.True(t, sawReturn)
}

// max(a, b) { if (a > b) { return a } else { return b } } must produce a join-free
// diamond: both then and else terminate in a Return, so spec 4.1's "both
// branches terminate" rule means no join block with a phi is emitted.
func TestBuildIfBothBranchesReturn(t *testing.T) {
	a, b := slot(0), slot(1)

	top := &ast.Function{
		Name:       "max",
		StackSlots: 2,
		Args:       []ast.ScopeSlot{a, b},
		Body: []ast.Node{
			ast.If{
				Cond: ast.BinOp{Subtype: ast.BinGt, Left: ast.Value{Slot: a}, Right: ast.Value{Slot: b}},
				Then: []ast.Node{ast.Return{Value: ast.Value{Slot: a}}},
				Else: []ast.Node{ast.Return{Value: ast.Value{Slot: b}}},
			},
		},
	}

	g, err := Build(context.Background(), top)
	require.NoError(t, err)

	fn := g.Funcs[0]

	// root, then, else: no join block since both paths return.
	require.Len(t, fn.Blocks, 3)

	returns := 0

	for _, blk := range fn.Blocks {
		for _, i := range blk.Instrs {
			if i.Opcode == OpReturn {
				returns++
			}
		}
	}

	require.Equal(t, 2, returns)
}

// A slot reassigned in one if-branch and left alone in the other must be
// bound by a phi in the join block once control merges.
func TestBuildIfJoinPhi(t *testing.T) {
	a, b := slot(0), slot(1)

	top := &ast.Function{
		Name:       "pick",
		StackSlots: 2,
		Args:       []ast.ScopeSlot{a, b},
		Body: []ast.Node{
			ast.If{
				Cond: ast.BinOp{Subtype: ast.BinGt, Left: ast.Value{Slot: a}, Right: ast.Value{Slot: b}},
				Then: []ast.Node{ast.Assign{Slot: a, Val: ast.Value{Slot: b}}},
			},
			ast.Return{Value: ast.Value{Slot: a}},
		},
	}

	g, err := Build(context.Background(), top)
	require.NoError(t, err)

	fn := g.Funcs[0]

	var join *Block

	for _, blk := range fn.Blocks {
		if len(blk.Preds) == 2 {
			join = blk
		}
	}

	require.NotNil(t, join)
	require.Len(t, join.Phis, 1)
}

// sum(a) { while (a > 0) { a = a - 1 } return a } must seed the loop
// header's slot-0 phi from the preheader and patch its back-edge input
// from the latch once the body closes, per spec 4.1's loop-header rule.
func TestBuildWhileLoopPhi(t *testing.T) {
	a := slot(0)

	top := &ast.Function{
		Name:       "sum",
		StackSlots: 1,
		Args:       []ast.ScopeSlot{a},
		Body: []ast.Node{
			ast.While{
				Cond: ast.BinOp{Subtype: ast.BinGt, Left: ast.Value{Slot: a}, Right: ast.Number{Text: "0"}},
				Body: []ast.Node{
					ast.Assign{
						Slot: a,
						Val:  ast.BinOp{Subtype: ast.BinSub, Left: ast.Value{Slot: a}, Right: ast.Number{Text: "1"}},
					},
				},
			},
			ast.Return{Value: ast.Value{Slot: a}},
		},
	}

	g, err := Build(context.Background(), top)
	require.NoError(t, err)

	fn := g.Funcs[0]

	var header *Block

	for _, blk := range fn.Blocks {
		if blk.Loop {
			header = blk
		}
	}

	require.NotNil(t, header)
	require.Len(t, header.Phis, fn.StackSlots+1)

	phi := header.Phis[a.Index]
	require.Len(t, phi.Args, 2)
	require.NotNil(t, phi.Args[0], "preheader seed must be set")
	require.NotNil(t, phi.Args[1], "back-edge input must be patched by closeLoopBackedge")
}

// findIfBlock returns the block holding fn's OpIf instruction, assuming
// exactly one exists.
func findIfBlock(t *testing.T, fn *Func) *Block {
	t.Helper()

	for _, blk := range fn.Blocks {
		for _, i := range blk.Instrs {
			if i.Opcode == OpIf {
				return blk
			}
		}
	}

	t.Fatal("no block with OpIf found")

	return nil
}

func hasBinOp(blk *Block, op BinOpKind) bool {
	for _, i := range blk.Instrs {
		if i.Opcode == OpBinOp && i.BinOp == op {
			return true
		}
	}

	return false
}

// return a && (a + 1): && must evaluate the right operand on the If's
// true branch and short-circuit to left, unevaluated, on the false
// branch (original_source/src/hir.cc:512-528 VisitBinOp).
func TestBuildShortCircuitAnd(t *testing.T) {
	a := slot(0)

	top := &ast.Function{
		Name:       "andf",
		StackSlots: 1,
		Args:       []ast.ScopeSlot{a},
		Body: []ast.Node{
			ast.Return{
				Value: ast.BinOp{
					Subtype: ast.BinAnd,
					Left:    ast.Value{Slot: a},
					Right:   ast.BinOp{Subtype: ast.BinAdd, Left: ast.Value{Slot: a}, Right: ast.Number{Text: "1"}},
				},
			},
		},
	}

	g, err := Build(context.Background(), top)
	require.NoError(t, err)

	fromCond := findIfBlock(t, g.Funcs[0])
	require.Len(t, fromCond.Succs, 2)

	trueBlk, falseBlk := fromCond.Succs[0], fromCond.Succs[1]

	require.True(t, hasBinOp(trueBlk, BinAdd), "&& must evaluate the right operand on the true branch")
	require.False(t, hasBinOp(falseBlk, BinAdd), "&& must not evaluate the right operand on the false branch")
}

// return a || (a + 1): || is the reverse of && — it short-circuits to
// left on the true branch and only evaluates the right operand on the
// false branch.
func TestBuildShortCircuitOr(t *testing.T) {
	a := slot(0)

	top := &ast.Function{
		Name:       "orf",
		StackSlots: 1,
		Args:       []ast.ScopeSlot{a},
		Body: []ast.Node{
			ast.Return{
				Value: ast.BinOp{
					Subtype: ast.BinOr,
					Left:    ast.Value{Slot: a},
					Right:   ast.BinOp{Subtype: ast.BinAdd, Left: ast.Value{Slot: a}, Right: ast.Number{Text: "1"}},
				},
			},
		},
	}

	g, err := Build(context.Background(), top)
	require.NoError(t, err)

	fromCond := findIfBlock(t, g.Funcs[0])
	require.Len(t, fromCond.Succs, 2)

	trueBlk, falseBlk := fromCond.Succs[0], fromCond.Succs[1]

	require.False(t, hasBinOp(trueBlk, BinAdd), "|| must short-circuit to left on the true branch")
	require.True(t, hasBinOp(falseBlk, BinAdd), "|| must only evaluate the right operand on the false branch")
}

// return f(...rest) with no positional args exercises the vararg spread
// path: Sizeof(rest) feeds the argc arithmetic, StoreVarArg stashes the
// spread value, and AlignStack/Call see the recomputed total (spec 4.1
// Call, "vararg argc arithmetic").
func TestBuildCallVararg(t *testing.T) {
	f, rest := slot(0), slot(1)

	top := &ast.Function{
		Name:       "spread",
		StackSlots: 2,
		Args:       []ast.ScopeSlot{f, rest},
		Body: []ast.Node{
			ast.Return{
				Value: ast.Call{
					Callee: ast.Value{Slot: f},
					Vararg: ast.Value{Slot: rest},
				},
			},
		},
	}

	g, err := Build(context.Background(), top)
	require.NoError(t, err)

	var sizeofI, storeVarArg, align, call *Instruction

	for _, i := range g.Funcs[0].Root.Instrs {
		switch i.Opcode {
		case OpSizeof:
			sizeofI = i
		case OpStoreVarArg:
			storeVarArg = i
		case OpAlignStack:
			align = i
		case OpCall:
			call = i
		}
	}

	require.NotNil(t, sizeofI, "a vararg spread call must compute Sizeof(vararg)")
	require.NotNil(t, storeVarArg, "a vararg spread call must StoreVarArg the spread value")
	require.NotNil(t, align, "a call must AlignStack before dispatch")
	require.NotNil(t, call)

	require.Len(t, align.Args, 1)
	total := align.Args[0]
	require.Equal(t, OpBinOp, total.Opcode)
	require.Equal(t, BinAdd, total.BinOp)
	require.Contains(t, total.Args, sizeofI)

	require.Equal(t, 0, call.Index, "baseArgc is 0: no positional args precede the spread")
}

package main

import "github.com/konteck/candor/compiler/ast"

// demo builds a small in-memory *ast.Function by name. There is no
// source-text front end in this module's scope (spec 1's "AST in"), so
// candorc's subcommands exercise the pipeline against a fixed set of
// hand-built trees; an embedder driving real input calls compiler.Compile
// directly with the AST its own front end produced.
func demo(name string) *ast.Function {
	switch name {
	case "max":
		return demoMax()
	default:
		return demoAdd()
	}
}

// demoAdd: function(a, b) { return a + b }
func demoAdd() *ast.Function {
	a := ast.ScopeSlot{Kind: ast.StackSlot, Index: 0}
	bSlot := ast.ScopeSlot{Kind: ast.StackSlot, Index: 1}

	return &ast.Function{
		Name:       "add",
		StackSlots: 2,
		Args:       []ast.ScopeSlot{a, bSlot},
		Body: []ast.Node{
			ast.Return{
				Value: ast.BinOp{
					Subtype: ast.BinAdd,
					Left:    ast.Value{Slot: a},
					Right:   ast.Value{Slot: bSlot},
				},
			},
		},
	}
}

// demoMax: function(a, b) { if (a > b) { return a } return b }
// exercises the branch and join-block paths of dump-hir; no slot is
// reassigned, so the join block carries no phi.
func demoMax() *ast.Function {
	a := ast.ScopeSlot{Kind: ast.StackSlot, Index: 0}
	b := ast.ScopeSlot{Kind: ast.StackSlot, Index: 1}

	return &ast.Function{
		Name:       "max",
		StackSlots: 2,
		Args:       []ast.ScopeSlot{a, b},
		Body: []ast.Node{
			ast.If{
				Cond: ast.BinOp{
					Subtype: ast.BinGt,
					Left:    ast.Value{Slot: a},
					Right:   ast.Value{Slot: b},
				},
				Then: []ast.Node{
					ast.Return{Value: ast.Value{Slot: a}},
				},
			},
			ast.Return{Value: ast.Value{Slot: b}},
		},
	}
}

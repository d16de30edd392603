/*

Package compiler orchestrates the middle-end pipeline, grounded on the
teacher's compiler/compiler.go Compile staged-errors.Wrap style but
retargeted from source-text-in/object-bytes-out to an *ast.Function
already in hand (no lexer/parser in this scope, per spec 1):

Abstract Syntax Tree (ast) ->
	hir.Build ->
High-level IR (hir), SSA form ->
	dom.Build, opt (phiprune, dce, effects, gvn, gcm) ->
Optimized HIR ->
	lower.Lower ->
Low-level IR (lir), flattened, with live-range intervals ->
	back (liveness, linear-scan allocation, spill coloring, edge resolution) ->
Allocated LIR, ready for a target-specific assembler (out of scope here)

*/
package compiler

package format

import "github.com/konteck/candor/compiler/hir"

// Fullgen renders the graph exactly as hirgen produced it, before any of
// phi-pruning/DCE/GVN/GCM has run. It is the same renderer as HIR; the
// distinct name mirrors spec 6's three independent dump toggles ("Fullgen
// (non-optimizing variant)") being wired to different pipeline stages by
// compiler/config, not to a different graph shape.
func Fullgen(b []byte, fn *hir.Func) []byte {
	return HIR(b, fn)
}

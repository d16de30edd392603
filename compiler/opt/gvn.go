package opt

import (
	"fmt"
	"strings"

	"github.com/konteck/candor/compiler/hir"
)

// GVN hash-conses pure instructions per function root and redirects
// redundant copies to a single representative, per spec 4.6. Instructions
// with GVN side effects are never merged (conservatively: allocation,
// property load/store, call, control-flow, and context load/store, per
// spec.md's Open Questions note). Args are always already processed by
// the time an instruction is visited: GVN runs before GCM, so the builder's
// block order is still a dominance-respecting order and every argument
// was emitted strictly before its user.
func GVN(fn *hir.Func) {
	table := map[string]*hir.Instruction{}

	for _, b := range fn.Blocks {
		kept := b.Instrs[:0]

		for _, i := range b.Instrs {
			if i.Opcode.HasGVNSideEffects() {
				kept = append(kept, i)

				continue
			}

			key := gvnKey(i)

			if rep, ok := table[key]; ok {
				i.ReplaceAllUsesWith(rep)
				i.Removed = true

				continue
			}

			table[key] = i
			kept = append(kept, i)
		}

		b.Instrs = kept
	}
}

func gvnKey(i *hir.Instruction) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d:%d:%d:%s", i.Opcode, i.BinOp, i.Literal, i.Text)

	for _, a := range i.Args {
		if a == nil {
			sb.WriteString(":nil")

			continue
		}

		fmt.Fprintf(&sb, ":%d", a.ID)
	}

	return sb.String()
}

package hir

import (
	"context"

	"github.com/konteck/candor/compiler/ast"
	"github.com/nikandfor/errors"
	"tlog.app/go/tlog"
)

// breakContinueInfo tracks the fresh blocks break/continue should route
// into, allocated lazily so each break gets its own block (spec 4.1).
type breakContinueInfo struct {
	breakBlock    *Block
	continueBlock *Block
}

func (bc *breakContinueInfo) GetBreak(b *builder) *Block {
	if bc.breakBlock == nil {
		bc.breakBlock = b.fn.newBlock()
	}

	return bc.breakBlock
}

func (bc *breakContinueInfo) GetContinue(b *builder) *Block {
	if bc.continueBlock == nil {
		bc.continueBlock = b.fn.newBlock()
	}

	return bc.continueBlock
}

type builder struct {
	ctx context.Context
	g   *Graph
	fn  *Func
	cur *Block

	loops []*breakContinueInfo
}

// Build walks top's AST body and produces its HIR graph, building the
// functions in g.pending in FIFO order until the queue is empty. Nothing
// but top is ever queued: the builder has no case for a nested function
// literal and reports one as an unsupported node, so the result holds top
// alone.
func Build(ctx context.Context, top *ast.Function) (*Graph, error) {
	g := &Graph{}
	g.pending = append(g.pending, top)

	for len(g.pending) > 0 {
		next := g.pending[0]
		g.pending = g.pending[1:]

		fn, err := buildOne(ctx, g, next)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", next.Name)
		}

		g.Funcs = append(g.Funcs, fn)
	}

	return g, nil
}

func buildOne(ctx context.Context, g *Graph, src *ast.Function) (*Func, error) {
	tr := tlog.SpanFromContext(ctx)

	fn := &Func{
		Name:         src.Name,
		StackSlots:   src.StackSlots,
		ContextSlots: src.ContextSlots,
		NumArgs:      len(src.Args),
		Label:        src.Label,
	}

	fn.Root = fn.newBlock()
	fn.Root.Env = NewEnv(fn.StackSlots)

	b := &builder{ctx: ctx, g: g, fn: fn, cur: fn.Root}

	entry := b.emit(OpEntry)
	entry.Index = fn.ContextSlots
	b.pin(entry)

	varargSeen := false
	argAdj := 0 // cumulative Sizeof-driven additive adjustment once a vararg formal is seen

	for idx, slot := range src.Args {
		if !varargSeen {
			ld := b.emit(OpLoadArg)
			ld.Index = idx
			b.pin(ld)
			b.publish(slot, ld)
		} else {
			ld := b.emit(OpLoadVarArg)
			ld.Index = argAdj
			ld.Depth = len(src.Args) - idx - 1 // rest count
			b.pin(ld)
			b.publish(slot, ld)
			argAdj++
		}
	}

	tr.Printw("hir build start", "func", fn.Name, "stack_slots", fn.StackSlots, "context_slots", fn.ContextSlots)

	terminated, err := b.buildStmts(src.Body)
	if err != nil {
		return nil, err
	}

	if !terminated {
		ret := b.emit(OpReturn)
		nilv := b.literal(LitNil, "")
		ret.NewArg(nilv)
		b.pin(ret)
	}

	tr.Printw("hir build done", "func", fn.Name, "blocks", len(fn.Blocks), "instrs", fn.NextInstrID)

	return fn, nil
}

// --- environment helpers ---

func (b *builder) emit(op Opcode) *Instruction {
	i := b.fn.newInstr(op)
	i.Blk = b.cur
	i.Live = true
	b.cur.Instrs = append(b.cur.Instrs, i)

	return i
}

func (b *builder) pin(i *Instruction) { i.Pinned = true }

func (b *builder) literal(kind LiteralKind, text string) *Instruction {
	i := b.emit(OpLiteral)
	i.Literal = kind
	i.Text = text

	return i
}

// publish binds slot to v in the current block's environment.
func (b *builder) publish(slot ast.ScopeSlot, v *Instruction) {
	if slot.Kind != ast.StackSlot {
		return
	}

	b.cur.Env.Vals[slot.Index] = v
	b.cur.Env.Phis[slot.Index] = nil
}

// load returns the current value of slot, materializing a phi if this
// block has not seen a definition for it yet (in any block, the entry
// included).
func (b *builder) load(slot ast.ScopeSlot) *Instruction {
	if slot.Kind == ast.ContextSlot {
		i := b.emit(OpLoadContext)
		i.Index = slot.Index
		i.Depth = slot.Depth

		return i
	}

	if v := b.cur.Env.Vals[slot.Index]; v != nil {
		return v
	}

	if p := b.cur.Env.Phis[slot.Index]; p != nil {
		return p
	}

	// No definition visible yet in this block: materialize an input-less
	// phi and publish it as the slot's value; loop-header seeding fills
	// its inputs in later where the block is a loop header.
	p := b.emit(OpPhi)
	b.cur.Phis = append(b.cur.Phis, p)
	b.cur.Instrs = b.cur.Instrs[:len(b.cur.Instrs)-1] // phis live in Phis, not Instrs
	b.cur.Env.Phis[slot.Index] = p
	b.cur.Env.Vals[slot.Index] = p

	return p
}

// enterBlock switches the builder to b2, inheriting or merging env from
// pred0/pred1 per spec 4.1's per-slot environment rule.
func (b *builder) enterBlock(b2 *Block, preds ...*Block) {
	for _, p := range preds {
		addEdge(p, b2)
	}

	switch len(preds) {
	case 0:
		// caller supplies env (root, or pre-seeded loop header)
	case 1:
		b2.Env = preds[0].Env.Copy()
	default:
		b2.Env = NewEnv(b.fn.StackSlots)

		p0, p1 := preds[0], preds[1]

		for slot := 0; slot <= b.fn.StackSlots; slot++ {
			v0 := p0.Env.Vals[slot]
			v1 := p1.Env.Vals[slot]

			if v0 == v1 {
				b2.Env.Vals[slot] = v0

				continue
			}

			phi := b.fn.newInstr(OpPhi)
			phi.Blk = b2
			phi.Live = true
			phi.Args = []*Instruction{v0, v1}

			if v0 != nil {
				v0.addUse(phi)
			}

			if v1 != nil {
				v1.addUse(phi)
			}

			b2.Phis = append(b2.Phis, phi)
			b2.Env.Vals[slot] = phi
		}
	}

	b.cur = b2
}

// markPreLoop nil-fills any slot never seen yet, so the upcoming loop
// header has a stable set of slots to seed phis for.
func (b *builder) markPreLoop() {
	if b.cur.Env == nil {
		b.cur.Env = NewEnv(b.fn.StackSlots)
	}
}

// markLoop creates a phi for every stack slot in the header, seeded with
// the preheader value; the back-edge input is patched in once the loop
// body has been built.
func (b *builder) markLoop(header, preheader *Block) []*Instruction {
	header.Loop = true
	header.Env = NewEnv(b.fn.StackSlots)

	phis := make([]*Instruction, b.fn.StackSlots+1)

	for slot := 0; slot <= b.fn.StackSlots; slot++ {
		phi := b.fn.newInstr(OpPhi)
		phi.Blk = header
		phi.Live = true

		seed := preheader.Env.Vals[slot]
		phi.Args = []*Instruction{seed, nil} // input 1 patched on back-edge close

		if seed != nil {
			seed.addUse(phi)
		}

		header.Phis = append(header.Phis, phi)
		header.Env.Vals[slot] = phi
		phis[slot] = phi
	}

	return phis
}

// closeLoopBackedge patches the back-edge input (index 1, pinned per GCM
// rules) of every header phi with the latch block's final value.
func closeLoopBackedge(header, latch *Block, phis []*Instruction) {
	addEdge(latch, header)

	for slot, phi := range phis {
		if phi == nil {
			continue
		}

		v := latch.Env.Vals[slot]
		phi.Args[1] = v

		if v != nil {
			v.addUse(phi)
		}
	}
}

package hir

import (
	"github.com/konteck/candor/compiler/ast"
	"github.com/nikandfor/errors"
)

// buildStmts walks a statement list, returning true if control flow is
// known to have terminated (a Return was emitted) so the caller can skip
// appending an implicit trailer.
func (b *builder) buildStmts(stmts []ast.Node) (terminated bool, err error) {
	for _, s := range stmts {
		terminated, err = b.buildStmt(s)
		if err != nil {
			return false, err
		}

		if terminated {
			break
		}
	}

	return terminated, nil
}

func (b *builder) buildStmt(s ast.Node) (terminated bool, err error) {
	switch s := s.(type) {
	case ast.Return:
		ret := b.emit(OpReturn)
		b.pin(ret)

		if s.Value != nil {
			v, err := b.buildExpr(s.Value)
			if err != nil {
				return false, errors.Wrap(err, "return value")
			}

			ret.NewArg(v)
		} else {
			ret.NewArg(b.literal(LitNil, ""))
		}

		return true, nil

	case ast.Assign:
		return false, b.buildAssign(s)

	case ast.If:
		return b.buildIf(s)

	case ast.While:
		return b.buildWhile(s)

	case ast.Break:
		if len(b.loops) == 0 {
			return false, errors.New("break outside loop")
		}

		info := b.loops[len(b.loops)-1]
		target := info.GetBreak(b)
		b.enterBlock(target, b.cur)

		return true, nil

	case ast.Continue:
		if len(b.loops) == 0 {
			return false, errors.New("continue outside loop")
		}

		info := b.loops[len(b.loops)-1]
		target := info.GetContinue(b)
		b.enterBlock(target, b.cur)

		return true, nil

	default:
		_, err := b.buildExpr(s)

		return false, err
	}
}

func (b *builder) buildAssign(s ast.Assign) error {
	v, err := b.buildExpr(s.Val)
	if err != nil {
		return errors.Wrap(err, "rhs")
	}

	switch {
	case s.Recv != nil:
		recv, err := b.buildExpr(s.Recv)
		if err != nil {
			return errors.Wrap(err, "recv")
		}

		key, err := b.buildExpr(s.Key)
		if err != nil {
			return errors.Wrap(err, "key")
		}

		st := b.emit(OpStoreProperty)
		b.pin(st)
		st.NewArg(recv)
		st.NewArg(key)
		st.NewArg(v)

	case s.Slot.Kind == ast.ContextSlot:
		st := b.emit(OpStoreContext)
		st.Index = s.Slot.Index
		st.Depth = s.Slot.Depth
		b.pin(st)
		st.NewArg(v)

	default:
		b.publish(s.Slot, v)
	}

	return nil
}

func (b *builder) buildIf(s ast.If) (terminated bool, err error) {
	cond, err := b.buildExpr(s.Cond)
	if err != nil {
		return false, errors.Wrap(err, "cond")
	}

	ifi := b.emit(OpIf)
	b.pin(ifi)
	ifi.NewArg(cond)

	fromIf := b.cur

	thenBlk := b.fn.newBlock()
	elseBlk := b.fn.newBlock()

	b.enterBlock(thenBlk, fromIf)
	thenTerm, err := b.buildStmts(s.Then)
	if err != nil {
		return false, errors.Wrap(err, "then")
	}

	thenEnd := b.cur

	b.enterBlock(elseBlk, fromIf)
	elseTerm, err := b.buildStmts(s.Else)
	if err != nil {
		return false, errors.Wrap(err, "else")
	}

	elseEnd := b.cur

	if thenTerm && elseTerm {
		return true, nil
	}

	join := b.fn.newBlock()

	var preds []*Block

	if !thenTerm {
		g := b.fn.newInstr(OpGoto)
		g.Blk, g.Live, g.Pinned = thenEnd, true, true
		thenEnd.Instrs = append(thenEnd.Instrs, g)
		preds = append(preds, thenEnd)
	}

	if !elseTerm {
		g := b.fn.newInstr(OpGoto)
		g.Blk, g.Live, g.Pinned = elseEnd, true, true
		elseEnd.Instrs = append(elseEnd.Instrs, g)
		preds = append(preds, elseEnd)
	}

	b.enterBlock(join, preds...)

	return false, nil
}

func (b *builder) buildWhile(s ast.While) (terminated bool, err error) {
	preheader := b.cur
	b.markPreLoop()

	header := b.fn.newBlock()
	addEdge(preheader, header)

	phis := b.markLoop(header, preheader)

	b.cur = header

	cond, err := b.buildExpr(s.Cond)
	if err != nil {
		return false, errors.Wrap(err, "cond")
	}

	ifi := b.emit(OpIf)
	b.pin(ifi)
	ifi.NewArg(cond)

	headerEnd := b.cur

	info := &breakContinueInfo{}
	b.loops = append(b.loops, info)

	body := b.fn.newBlock()
	b.enterBlock(body, headerEnd)

	bodyTerm, err := b.buildStmts(s.Body)
	if err != nil {
		return false, errors.Wrap(err, "body")
	}

	if !bodyTerm {
		if info.continueBlock != nil {
			g := b.fn.newInstr(OpGoto)
			g.Blk, g.Live, g.Pinned = b.cur, true, true
			b.cur.Instrs = append(b.cur.Instrs, g)
			b.enterBlock(info.continueBlock, b.cur)
		}

		closeLoopBackedge(header, b.cur, phis)
	} else if info.continueBlock != nil {
		b.enterBlock(info.continueBlock)
		closeLoopBackedge(header, info.continueBlock, phis)
	}

	b.loops = b.loops[:len(b.loops)-1]

	post := info.breakBlock
	if post == nil {
		post = b.fn.newBlock()
	}

	b.enterBlock(post, headerEnd)

	return false, nil
}

func (b *builder) buildExpr(n ast.Node) (*Instruction, error) {
	switch n := n.(type) {
	case ast.Nil:
		return b.literal(LitNil, ""), nil
	case ast.True:
		return b.literal(LitTrue, ""), nil
	case ast.False:
		return b.literal(LitFalse, ""), nil
	case ast.Number:
		return b.literal(LitNumber, n.Text), nil
	case ast.String:
		return b.literal(LitString, n.Text), nil
	case ast.Property:
		return b.literal(LitProperty, n.Name), nil

	case ast.Value:
		return b.load(n.Slot), nil

	case ast.Self:
		return b.load(ast.ScopeSlot{Kind: ast.StackSlot, Index: 0}), nil

	case ast.Member:
		recv, err := b.buildExpr(n.Recv)
		if err != nil {
			return nil, errors.Wrap(err, "recv")
		}

		key, err := b.buildExpr(n.Key)
		if err != nil {
			return nil, errors.Wrap(err, "key")
		}

		ld := b.emit(OpLoadProperty)
		b.pin(ld)
		ld.NewArg(recv)
		ld.NewArg(key)

		return ld, nil

	case ast.Delete:
		recv, err := b.buildExpr(n.Recv)
		if err != nil {
			return nil, errors.Wrap(err, "recv")
		}

		key, err := b.buildExpr(n.Key)
		if err != nil {
			return nil, errors.Wrap(err, "key")
		}

		del := b.emit(OpDeleteProperty)
		b.pin(del)
		del.NewArg(recv)
		del.NewArg(key)

		return b.literal(LitNil, ""), nil

	case ast.Call:
		return b.buildCall(n)

	case ast.UnOp:
		return b.buildUnOp(n)

	case ast.BinOp:
		return b.buildBinOp(n)

	case ast.Typeof:
		x, err := b.buildExpr(n.X)
		if err != nil {
			return nil, err
		}

		i := b.emit(OpTypeof)
		i.NewArg(x)

		return i, nil

	case ast.Sizeof:
		x, err := b.buildExpr(n.X)
		if err != nil {
			return nil, err
		}

		i := b.emit(OpSizeof)
		i.NewArg(x)

		return i, nil

	case ast.Keysof:
		x, err := b.buildExpr(n.X)
		if err != nil {
			return nil, err
		}

		i := b.emit(OpKeysof)
		i.NewArg(x)

		return i, nil

	case ast.Clone:
		x, err := b.buildExpr(n.X)
		if err != nil {
			return nil, err
		}

		i := b.emit(OpClone)
		i.NewArg(x)

		return i, nil

	case ast.ObjectLiteral:
		obj := b.emit(OpAllocateObject)
		b.pin(obj)

		for idx := range n.Keys {
			k, err := b.buildExpr(n.Keys[idx])
			if err != nil {
				return nil, errors.Wrap(err, "key %d", idx)
			}

			v, err := b.buildExpr(n.Values[idx])
			if err != nil {
				return nil, errors.Wrap(err, "value %d", idx)
			}

			st := b.emit(OpStoreProperty)
			b.pin(st)
			st.NewArg(obj)
			st.NewArg(k)
			st.NewArg(v)
		}

		return obj, nil

	case ast.ArrayLiteral:
		arr := b.emit(OpAllocateArray)
		b.pin(arr)
		arr.Index = len(n.Items)

		for idx := range n.Items {
			v, err := b.buildExpr(n.Items[idx])
			if err != nil {
				return nil, errors.Wrap(err, "item %d", idx)
			}

			k := b.literal(LitNumber, itoa(idx))

			st := b.emit(OpStoreProperty)
			b.pin(st)
			st.NewArg(arr)
			st.NewArg(k)
			st.NewArg(v)
		}

		return arr, nil

	default:
		return nil, errors.New("unsupported ast node: %T", n)
	}
}

func (b *builder) buildUnOp(n ast.UnOp) (*Instruction, error) {
	switch n.Subtype {
	case ast.UnNot:
		x, err := b.buildExpr(n.X)
		if err != nil {
			return nil, err
		}

		i := b.emit(OpNot)
		i.NewArg(x)

		return i, nil

	case ast.UnPlus:
		x, err := b.buildExpr(n.X)
		if err != nil {
			return nil, err
		}

		zero := b.literal(LitNumber, "0")
		i := b.emit(OpBinOp)
		i.BinOp = BinAdd
		i.NewArg(zero)
		i.NewArg(x)

		return i, nil

	case ast.UnMinus:
		x, err := b.buildExpr(n.X)
		if err != nil {
			return nil, err
		}

		zero := b.literal(LitNumber, "0")
		i := b.emit(OpBinOp)
		i.BinOp = BinSub
		i.NewArg(zero)
		i.NewArg(x)

		return i, nil

	case ast.UnPreInc, ast.UnPreDec, ast.UnPostInc, ast.UnPostDec:
		return b.buildIncDec(n)

	default:
		return nil, errors.New("unsupported unop subtype: %v", n.Subtype)
	}
}

func (b *builder) buildIncDec(n ast.UnOp) (*Instruction, error) {
	v, ok := n.X.(ast.Value)
	if !ok {
		return nil, errors.New("inc/dec target must be a value, got %T", n.X)
	}

	old, err := b.buildExpr(v)
	if err != nil {
		return nil, err
	}

	op := BinAdd
	if n.Subtype == ast.UnPreDec || n.Subtype == ast.UnPostDec {
		op = BinSub
	}

	one := b.literal(LitNumber, "1")
	updated := b.emit(OpBinOp)
	updated.BinOp = op
	updated.NewArg(old)
	updated.NewArg(one)

	switch v.Slot.Kind {
	case ast.ContextSlot:
		st := b.emit(OpStoreContext)
		st.Index = v.Slot.Index
		st.Depth = v.Slot.Depth
		b.pin(st)
		st.NewArg(updated)
	default:
		b.publish(v.Slot, updated)
	}

	if n.Subtype == ast.UnPreInc || n.Subtype == ast.UnPreDec {
		return updated, nil
	}

	return old, nil
}

func (b *builder) buildBinOp(n ast.BinOp) (*Instruction, error) {
	switch n.Subtype {
	case ast.BinAnd, ast.BinOr:
		return b.buildShortCircuit(n)
	}

	left, err := b.buildExpr(n.Left)
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}

	right, err := b.buildExpr(n.Right)
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}

	i := b.emit(OpBinOp)
	i.BinOp = binOpKind(n.Subtype)
	i.NewArg(left)
	i.NewArg(right)

	return i, nil
}

// enterShortCircuitArm builds one arm of a short-circuit branch: either
// evaluating the right operand (isRHS) or passing left straight through,
// publishing the result to logicSlot either way.
func (b *builder) enterShortCircuitArm(blk, fromCond *Block, isRHS bool, left *Instruction, rhs ast.Node, logicSlot ast.ScopeSlot) (*Block, error) {
	b.enterBlock(blk, fromCond)

	if isRHS {
		right, err := b.buildExpr(rhs)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		b.publish(logicSlot, right)
	} else {
		b.publish(logicSlot, left)
	}

	return b.cur, nil
}

// buildShortCircuit lowers && / || via control flow into the reserved
// logic slot, then reads it back through a phi (spec 4.1 BinOp, 4.1
// "Concrete scenarios" i = 0; return i && 1). && evaluates the right
// operand on the If's true branch and short-circuits to left on the
// false branch; || is the reverse — it short-circuits to left when true
// and only evaluates right when left is false (original_source/src/
// hir.cc:512-528 VisitBinOp).
func (b *builder) buildShortCircuit(n ast.BinOp) (*Instruction, error) {
	logicSlot := ast.ScopeSlot{Kind: ast.StackSlot, Index: LogicSlot(b.fn.StackSlots)}

	left, err := b.buildExpr(n.Left)
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}

	fromCond := b.cur

	ifi := b.emit(OpIf)
	b.pin(ifi)
	ifi.NewArg(left)

	rhsBlk := b.fn.newBlock()
	skipBlk := b.fn.newBlock()

	trueBlk, falseBlk := rhsBlk, skipBlk
	trueIsRHS, falseIsRHS := true, false

	if n.Subtype == ast.BinOr {
		trueBlk, falseBlk = skipBlk, rhsBlk
		trueIsRHS, falseIsRHS = false, true
	}

	trueEnd, err := b.enterShortCircuitArm(trueBlk, fromCond, trueIsRHS, left, n.Right, logicSlot)
	if err != nil {
		return nil, err
	}

	falseEnd, err := b.enterShortCircuitArm(falseBlk, fromCond, falseIsRHS, left, n.Right, logicSlot)
	if err != nil {
		return nil, err
	}

	join := b.fn.newBlock()
	b.enterBlock(join, trueEnd, falseEnd)

	return b.load(logicSlot), nil
}

func binOpKind(k ast.BinOpKind) BinOpKind {
	switch k {
	case ast.BinAdd:
		return BinAdd
	case ast.BinSub:
		return BinSub
	case ast.BinMul:
		return BinMul
	case ast.BinDiv:
		return BinDiv
	case ast.BinMod:
		return BinMod
	case ast.BinEq:
		return BinEq
	case ast.BinNe:
		return BinNe
	case ast.BinLt:
		return BinLt
	case ast.BinLe:
		return BinLe
	case ast.BinGt:
		return BinGt
	case ast.BinGe:
		return BinGe
	default:
		return BinAdd
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	neg := n < 0
	if neg {
		n = -n
	}

	var buf [20]byte
	i := len(buf)

	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}

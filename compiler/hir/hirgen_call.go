package hir

import (
	"github.com/konteck/candor/compiler/ast"
	"github.com/nikandfor/errors"
)

// buildCall lowers a call expression, handling the two special intrinsics,
// method-call self-desugaring, and vararg argc arithmetic (spec 4.1 Call).
func (b *builder) buildCall(n ast.Call) (*Instruction, error) {
	if name, ok := intrinsicName(n.Callee); ok {
		switch name {
		case "__$gc":
			i := b.emit(OpCollectGarbage)
			b.pin(i)

			return b.literal(LitNil, ""), nil
		case "__$trace":
			i := b.emit(OpGetStackTrace)
			b.pin(i)

			return i, nil
		}
	}

	var selfVal *Instruction

	callee := n.Callee

	if n.Self != nil {
		recv, err := b.buildExpr(n.Self)
		if err != nil {
			return nil, errors.Wrap(err, "self recv")
		}

		prop, ok := callee.(ast.Property)
		if !ok {
			return nil, errors.New("method call callee must be a property name, got %T", callee)
		}

		key := b.literal(LitProperty, prop.Name)

		ld := b.emit(OpLoadProperty)
		b.pin(ld)
		ld.NewArg(recv)
		ld.NewArg(key)

		selfVal = recv

		// calleeVal becomes the loaded method; recv is prepended as arg 0.
		return b.buildCallArgs(ld, selfVal, n.Args, n.Vararg)
	}

	calleeVal, err := b.buildExpr(callee)
	if err != nil {
		return nil, errors.Wrap(err, "callee")
	}

	return b.buildCallArgs(calleeVal, nil, n.Args, n.Vararg)
}

func intrinsicName(n ast.Node) (string, bool) {
	p, ok := n.(ast.Property)
	if !ok {
		return "", false
	}

	switch p.Name {
	case "__$gc", "__$trace":
		return p.Name, true
	default:
		return "", false
	}
}

// buildCallArgs computes argument values, handles a single trailing
// vararg spread via AllocateArray/StoreVarArg/Sizeof argc adjustment, and
// emits AlignStack + per-arg stores + Call per spec 4.1.
func (b *builder) buildCallArgs(callee, self *Instruction, args []ast.Node, vararg ast.Node) (*Instruction, error) {
	var argVals []*Instruction

	if self != nil {
		argVals = append(argVals, self)
	}

	baseArgc := len(argVals)

	for _, a := range args {
		v, err := b.buildExpr(a)
		if err != nil {
			return nil, errors.Wrap(err, "arg")
		}

		argVals = append(argVals, v)
		baseArgc++
	}

	var sizeofVararg *Instruction

	if vararg != nil {
		vv, err := b.buildExpr(vararg)
		if err != nil {
			return nil, errors.Wrap(err, "vararg")
		}

		sz := b.emit(OpSizeof)
		sz.NewArg(vv)
		sizeofVararg = sz

		sva := b.emit(OpStoreVarArg)
		b.pin(sva)
		sva.NewArg(vv)

		argVals = append(argVals, sva)
	}

	align := b.emit(OpAlignStack)
	b.pin(align)

	if sizeofVararg != nil {
		// total argc = base-argc + Sizeof(varg); arithmetic on the
		// sizeof result recomputes arg indices per spec 4.1.
		total := b.emit(OpBinOp)
		total.BinOp = BinAdd
		base := b.literal(LitNumber, itoa(baseArgc))
		total.NewArg(base)
		total.NewArg(sizeofVararg)
		align.NewArg(total)
	} else {
		align.NewArg(b.literal(LitNumber, itoa(baseArgc)))
	}

	call := b.emit(OpCall)
	b.pin(call)
	call.Index = baseArgc
	call.NewArg(callee)

	for _, v := range argVals {
		call.NewArg(v)
	}

	return call, nil
}

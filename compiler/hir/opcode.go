package hir

// Opcode tags every HIR instruction. The set is closed; hirgen, opt and
// lower all switch over it exhaustively.
type Opcode int

const (
	OpInvalid Opcode = iota

	OpEntry
	OpLoadArg
	OpLoadVarArg
	OpReturn
	OpGoto
	OpIf

	OpPhi

	OpLiteral // Nil, True, False, Number, String, Property canonical ids

	OpLoadContext
	OpStoreContext
	OpLoadProperty
	OpStoreProperty
	OpDeleteProperty

	OpBinOp
	OpNot

	OpAllocateArray
	OpAllocateObject
	OpStoreVarArg
	OpSizeof
	OpKeysof
	OpTypeof
	OpClone

	OpAlignStack
	OpCall

	OpCollectGarbage
	OpGetStackTrace
)

func (op Opcode) String() string {
	switch op {
	case OpEntry:
		return "Entry"
	case OpLoadArg:
		return "LoadArg"
	case OpLoadVarArg:
		return "LoadVarArg"
	case OpReturn:
		return "Return"
	case OpGoto:
		return "Goto"
	case OpIf:
		return "If"
	case OpPhi:
		return "Phi"
	case OpLiteral:
		return "Literal"
	case OpLoadContext:
		return "LoadContext"
	case OpStoreContext:
		return "StoreContext"
	case OpLoadProperty:
		return "LoadProperty"
	case OpStoreProperty:
		return "StoreProperty"
	case OpDeleteProperty:
		return "DeleteProperty"
	case OpBinOp:
		return "BinOp"
	case OpNot:
		return "Not"
	case OpAllocateArray:
		return "AllocateArray"
	case OpAllocateObject:
		return "AllocateObject"
	case OpStoreVarArg:
		return "StoreVarArg"
	case OpSizeof:
		return "Sizeof"
	case OpKeysof:
		return "Keysof"
	case OpTypeof:
		return "Typeof"
	case OpClone:
		return "Clone"
	case OpAlignStack:
		return "AlignStack"
	case OpCall:
		return "Call"
	case OpCollectGarbage:
		return "CollectGarbage"
	case OpGetStackTrace:
		return "GetStackTrace"
	default:
		return "Invalid"
	}
}

// HasSideEffects reports whether op is a DCE root: it must survive even
// with no uses.
func (op Opcode) HasSideEffects() bool {
	switch op {
	case OpEntry, OpReturn, OpGoto, OpIf,
		OpStoreContext, OpStoreProperty, OpDeleteProperty, OpStoreVarArg,
		OpCall, OpAlignStack,
		OpCollectGarbage, OpGetStackTrace,
		OpLoadProperty: // may trigger a getter; conservatively effectful
		return true
	default:
		return false
	}
}

// HasGVNSideEffects reports whether op must never be merged by GVN.
// Per spec.md's Open Questions note, allocation, property load/store,
// call, and control-flow are all treated conservatively as GVN-effectful.
func (op Opcode) HasGVNSideEffects() bool {
	switch op {
	case OpAllocateArray, OpAllocateObject,
		OpLoadProperty, OpStoreProperty, OpDeleteProperty,
		OpCall,
		OpEntry, OpReturn, OpGoto, OpIf,
		OpLoadContext, OpStoreContext,
		OpCollectGarbage, OpGetStackTrace:
		return true
	default:
		return false
	}
}

// IsControl reports whether op terminates a block.
func (op Opcode) IsControl() bool {
	switch op {
	case OpGoto, OpIf, OpReturn:
		return true
	default:
		return false
	}
}

// IsPinned reports whether GCM must leave op where the builder placed it.
func (op Opcode) IsPinned() bool {
	if op.IsControl() {
		return true
	}

	switch op {
	case OpEntry, OpStoreContext, OpStoreProperty, OpDeleteProperty,
		OpStoreVarArg, OpCall, OpAlignStack,
		OpCollectGarbage, OpGetStackTrace:
		return true
	default:
		return false
	}
}

// BinOpKind mirrors ast.BinOpKind so hir stays independent of ast's exact
// representation while carrying the same arithmetic/comparison/logical
// subtype tag through lowering.
type BinOpKind int

const (
	BinAdd BinOpKind = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

// LiteralKind distinguishes the canonical root-table literal forms.
type LiteralKind int

const (
	LitNil LiteralKind = iota
	LitTrue
	LitFalse
	LitNumber
	LitString
	LitProperty
)

// Package rtbuild translates a ScriptFunction's bytecode opcodes into the
// runtime's executable form (spec.md §3.7, §4.3): a bump-allocated chain of
// variable-length RuntimeOpcode records, each carrying a dispatch-resolved
// exec function, a pre-computed successor pointer, and a run-length hint the
// interpreter's inner loop uses to avoid per-opcode dispatch overhead.
//
// This is the direct generalization of lang/ypeep's line-pattern peephole
// fuser (classify, scan runs, emit fused forms) crossed with
// lang/ygen/emit.go's operand-size-driven emission: the same classify/scan/
// emit shape, but the fixed catalogue below replaces assembly mnemonic
// patterns, and the output is a runtime opcode chain instead of re-emitted
// assembly text.
package rtbuild

import (
	"fmt"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/lmerr"
	"github.com/gmofishsauce/lemonscript/internal/lmmodule"
	"github.com/gmofishsauce/lemonscript/internal/opcode"
)

// MaxParamBytes bounds a single runtime opcode's parameter block (spec.md
// §3.7: "variable (0..~0xc0 bytes)"). A build exceeding this is a build
// error rather than a silently truncated opcode.
const MaxParamBytes = 0xc0

// ExecFunc runs one runtime opcode against a VM-owned execution context.
// internal/vm supplies every concrete ExecFunc value through a Dispatcher;
// this package only threads the function pointers through, never calls one.
type ExecFunc func(ctx ExecContext)

// ExecContext is the minimal surface an ExecFunc needs, satisfied by
// internal/vm's ControlFlow. Keeping it here (rather than importing vm, which
// would cycle back to rtbuild) lets rtbuild type the exec_fn field without
// depending on the package that implements it.
type ExecContext interface {
	PushValue(v uint64)
	PopValue() uint64
	PeekValue(depth int) uint64
	Opcode() *RuntimeOpcode
}

// RuntimeOpcode is the variable-length record spec.md §3.7 lays out:
//
//	[ exec_fn ptr | next ptr | type | size | flags | successive_count | ...params... ]
//
// exec_fn and next are represented as direct Go pointers/function values
// rather than raw addresses; size is len(Params) plus the fixed header
// fields, not stored separately since Go doesn't need it for layout.
type RuntimeOpcode struct {
	Exec            ExecFunc
	Next            *RuntimeOpcode
	JumpTarget      *RuntimeOpcode // non-nil for Jump/JumpConditional
	Type            opcode.Type
	DType           datatype.ID
	Flags           opcode.Flags
	SuccessiveCount byte
	Params          []byte
}

// RuntimeFunction is one ScriptFunction's built form: the record chain plus
// its entry point.
type RuntimeFunction struct {
	Entry   *RuntimeOpcode
	Opcodes []*RuntimeOpcode
}

// buildError reports a fatal failure translating one opcode as an
// lmerr.BuildError, the shared type spec.md §7 says latches the runtime's
// encountered_build_error state and halts further execution.
func buildError(fn *lmmodule.ScriptFunction, idx int, op opcode.Opcode, reason string) error {
	return &lmerr.BuildError{
		Function: fmt.Sprintf("func#%d", fn.ID),
		Message:  fmt.Sprintf("opcode %d (%s): %s", idx, op.Type, reason),
	}
}

// Nativizer optionally recognizes a precomputed native implementation for a
// run of opcodes starting at index i (spec.md §4.3 step 1) — e.g. a whole
// library routine's body replaced by one direct call. Returning consumed==0
// means no match.
type Nativizer interface {
	Match(ops []opcode.Opcode, i int) (exec ExecFunc, params []byte, consumed int, ok bool)
}

// MemoryHints answers whether an address the fuser wants to fold into a
// fixed-address memory access maps directly into host memory, and if so
// whether the bytes there need endian-swapping (spec.md §4.3's
// PUSH_CONSTANT+READ_MEMORY / PUSH_CONSTANT+WRITE_MEMORY fusions).
type MemoryHints interface {
	DirectAddress(addr uint64) (direct, swap bool)
}

// Dispatcher supplies exec functions: the default generated table (11 base
// types x 36 opcode types per spec.md §4.3 step 3) and the fixed fused-
// pattern variants. internal/vm implements this once it owns ControlFlow
// and the memory/variable handlers the exec functions close over.
type Dispatcher interface {
	Default(t opcode.Type, dtype datatype.ID) ExecFunc
	Fused(shape FusedShape, t opcode.Type, dtype datatype.ID, varKind opcode.VariableKind) ExecFunc
}

// FusedShape names one of the fixed fusions spec.md §4.3 lists. Each spans
// two source opcodes except ShapeExternalAddConstant, which spans three.
type FusedShape byte

const (
	ShapeConstArith FusedShape = iota
	ShapeSetDiscard
	ShapeWriteDiscard
	ShapeReadFixedAddr
	ShapeReadFixedAddrDirect
	ShapeWriteFixedAddr
	ShapeWriteFixedAddrDirect
	ShapeExternalAddConstant
)

// Build translates fn's bytecode into its runtime form. registry is passed
// through to the fuser, whose current patterns do not consult it; mem may be
// nil, in which case the direct-pointer fusion variants are never chosen.
func Build(fn *lmmodule.ScriptFunction, disp Dispatcher, nat Nativizer, mem MemoryHints, registry *datatype.Registry) (*RuntimeFunction, error) {
	ops := fn.Opcodes
	records := make([]*RuntimeOpcode, 0, len(ops))
	// indexToRecord maps a source opcode index to the record position (in
	// records) that index's translation landed in, so jump targets (bytecode
	// opcode indices) can be rewritten to runtime-opcode pointers once every
	// record exists.
	indexToRecord := make([]int, len(ops))
	// recordStart is the source opcode index each record began consuming
	// from, kept alongside records (which are indexed by their own position,
	// not a source index) so computeSuccessiveCounts can look at the source
	// opcode immediately before a record's span rather than before its
	// record position.
	recordStart := make([]int, 0, len(ops))

	i := 0
	for i < len(ops) {
		start := i

		if nat != nil {
			if exec, params, consumed, ok := nat.Match(ops, i); ok && consumed > 0 {
				if len(params) > MaxParamBytes {
					return nil, buildError(fn, i, ops[i], "nativized params exceed MaxParamBytes")
				}
				rec := &RuntimeOpcode{Exec: exec, Type: ops[i].Type, DType: ops[i].DType, Flags: ops[i].Flags, Params: params}
				records = append(records, rec)
				recordStart = append(recordStart, start)
				markRange(indexToRecord, start, consumed, len(records)-1)
				i += consumed
				continue
			}
		}

		if rec, consumed, ok := tryFuse(ops, i, disp, mem, registry); ok {
			if len(rec.Params) > MaxParamBytes {
				return nil, buildError(fn, i, ops[i], "fused params exceed MaxParamBytes")
			}
			records = append(records, rec)
			recordStart = append(recordStart, start)
			markRange(indexToRecord, start, consumed, len(records)-1)
			i += consumed
			continue
		}

		rec, err := defaultRecord(fn, ops[i], i, disp)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		recordStart = append(recordStart, start)
		markRange(indexToRecord, start, 1, len(records)-1)
		i++
	}

	rewriteJumpTargets(ops, indexToRecord, records)
	computeSuccessiveCounts(ops, recordStart, records)
	linkNext(records)

	var entry *RuntimeOpcode
	if len(records) > 0 {
		entry = records[0]
	}
	return &RuntimeFunction{Entry: entry, Opcodes: records}, nil
}

func markRange(indexToRecord []int, start, count, recIdx int) {
	for k := 0; k < count; k++ {
		indexToRecord[start+k] = recIdx
	}
}

// defaultRecord emits the one-opcode-per-record fallback (spec.md §4.3 step
// 3): exec_fn chosen by opcode type + data type from the generated dispatch
// table, parameterized directly by the source opcode's immediate.
func defaultRecord(fn *lmmodule.ScriptFunction, op opcode.Opcode, idx int, disp Dispatcher) (*RuntimeOpcode, error) {
	exec := disp.Default(op.Type, op.DType)
	if exec == nil {
		return nil, buildError(fn, idx, op, "no dispatch entry for this opcode/type pair")
	}
	params := EncodeImmediate(op.Param)
	if len(params) > MaxParamBytes {
		return nil, buildError(fn, idx, op, "immediate exceeds MaxParamBytes")
	}
	return &RuntimeOpcode{Exec: exec, Type: op.Type, DType: op.DType, Flags: op.Flags, Params: params}, nil
}

// rewriteJumpTargets resolves Jump/JumpConditional Param fields (bytecode
// opcode indices) to the runtime-opcode record they now point at (spec.md
// §4.3 "Post-processing"). JumpSwitch's multi-way table is not modeled here:
// nothing upstream of rtbuild currently emits it, so its Param is left
// untouched rather than rewritten against an invented table layout.
func rewriteJumpTargets(ops []opcode.Opcode, indexToRecord []int, records []*RuntimeOpcode) {
	for i, op := range ops {
		if op.Type != opcode.Jump && op.Type != opcode.JumpConditional {
			continue
		}
		target := int(int64(op.Param))
		if target < 0 || target >= len(indexToRecord) {
			continue
		}
		rec := records[indexToRecord[i]]
		rec.JumpTarget = records[indexToRecord[target]]
	}
}

// computeSuccessiveCounts implements spec.md §4.3's backward sweep: 0 for
// control-flow opcodes, 1 for an opcode immediately following a conditional
// jump (a fresh basic block even though it isn't itself a jump target),
// otherwise one more than the next opcode's count, saturating at 255.
func computeSuccessiveCounts(ops []opcode.Opcode, recordStart []int, records []*RuntimeOpcode) {
	n := len(records)
	for i := n - 1; i >= 0; i-- {
		if records[i].Flags&opcode.CtrlFlow != 0 {
			records[i].SuccessiveCount = 0
			continue
		}
		if src := recordStart[i]; src > 0 && ops[src-1].Type == opcode.JumpConditional {
			records[i].SuccessiveCount = 1
			continue
		}
		next := 0
		if i+1 < n {
			next = int(records[i+1].SuccessiveCount)
		}
		v := next + 1
		if v > 255 {
			v = 255
		}
		records[i].SuccessiveCount = byte(v)
	}
}

// linkNext fills Next with the following record, then short-circuits any
// chain of forward unconditional jumps up to 5 hops (spec.md §4.3
// "Post-processing"); a backward jump is never skipped since its step-budget
// check must fire on every loop iteration.
func linkNext(records []*RuntimeOpcode) {
	pos := make(map[*RuntimeOpcode]int, len(records))
	for i, r := range records {
		pos[r] = i
	}
	for i, r := range records {
		if i+1 < len(records) {
			r.Next = records[i+1]
		} else {
			r.Next = nil
		}
	}
	for _, r := range records {
		target := r.Next
		for hops := 0; hops < 5 && target != nil; hops++ {
			if target.Type != opcode.Jump || target.JumpTarget == nil {
				break
			}
			if pos[target.JumpTarget] <= pos[target] {
				break // backward or self edge: loop step-budget check must fire
			}
			target = target.JumpTarget
		}
		r.Next = target
	}
}

// paramTag prefixes an encoded immediate so EncodeImmediate's 4-byte case
// can tell a sign-extended i32 apart from a zero-extended u32 — a
// distinction the smallest-fit-wins byte count alone can't carry, unlike
// internal/lmmodule's wire format, which can afford a separate kind nibble
// in its opcode header word.
type paramTag byte

const (
	tagI8 paramTag = iota
	tagI16
	tagI32
	tagU32
	tagI64
)

// EncodeImmediate packs a 64-bit parameter into its smallest exact byte
// form, mirroring the same smallest-fit-wins policy internal/lmmodule's
// wire encoder and lang/yld/output.go both use, since the rule belongs to
// this package's own record layout rather than anything lmmodule owns.
// Exported so internal/vm's dispatch closures can decode the Params bytes
// back into a value at exec time.
func EncodeImmediate(v uint64) []byte {
	sv := int64(v)
	switch {
	case v == 0:
		return nil
	case sv >= -128 && sv <= 127:
		return []byte{byte(tagI8), byte(sv)}
	case sv >= -32768 && sv <= 32767:
		return []byte{byte(tagI16), byte(sv), byte(sv >> 8)}
	case sv >= -(1<<31) && sv <= (1<<31)-1:
		uv := uint32(sv)
		return []byte{byte(tagI32), byte(uv), byte(uv >> 8), byte(uv >> 16), byte(uv >> 24)}
	case v <= 0xFFFFFFFF:
		return []byte{byte(tagU32), byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	default:
		out := make([]byte, 9)
		out[0] = byte(tagI64)
		for i := 0; i < 8; i++ {
			out[1+i] = byte(v >> (8 * i))
		}
		return out
	}
}

// DecodeImmediate reverses EncodeImmediate.
func DecodeImmediate(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	switch paramTag(b[0]) {
	case tagI8:
		return uint64(int64(int8(b[1])))
	case tagI16:
		v := uint16(b[1]) | uint16(b[2])<<8
		return uint64(int64(int16(v)))
	case tagI32:
		v := uint32(b[1]) | uint32(b[2])<<8 | uint32(b[3])<<16 | uint32(b[4])<<24
		return uint64(int64(int32(v)))
	case tagU32:
		return uint64(uint32(b[1]) | uint32(b[2])<<8 | uint32(b[3])<<16 | uint32(b[4])<<24)
	case tagI64:
		var v uint64
		for i := 0; i < 8; i++ {
			v |= uint64(b[1+i]) << (8 * i)
		}
		return v
	default:
		return 0
	}
}

// EncodeU32 packs a raw little-endian u32, used for fields (like a
// fused-pattern's variable id) that are always exactly 4 bytes rather than
// smallest-fit.
func EncodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// DecodeU32 reverses EncodeU32.
func DecodeU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

package chain

import (
	"fmt"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
)

// ResultKind tags the small closed set of value kinds a contract
// invocation can produce. Replaces the host-polymorphic return value
// the original engine exposed (see DESIGN.md's redesign notes) with a
// tagged variant so callers can switch on Kind instead of type-asserting
// an any.
type ResultKind int

const (
	KindInt ResultKind = iota
	KindBytes
	KindAddress
	KindBool
	KindArray
)

func (k ResultKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	case KindAddress:
		return "address"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Result is the tagged-variant value a VM leaves on top of its stack
// after running a script. Only the field matching Kind is meaningful.
type Result struct {
	Kind    ResultKind
	Int     int64
	Bytes   []byte
	Address crypto.Address
	Bool    bool
	Array   []Result
}

// IntResult, BytesResult, AddressResult, BoolResult, and ArrayResult are
// convenience constructors for the respective Result kind.
func IntResult(v int64) Result            { return Result{Kind: KindInt, Int: v} }
func BytesResult(v []byte) Result         { return Result{Kind: KindBytes, Bytes: v} }
func AddressResult(v crypto.Address) Result { return Result{Kind: KindAddress, Address: v} }
func BoolResult(v bool) Result             { return Result{Kind: KindBool, Bool: v} }
func ArrayResult(v []Result) Result        { return Result{Kind: KindArray, Array: v} }

// Script is an opaque, VM-specific compiled call. The core never
// inspects it — it only threads it from ScriptBuilder to VM.
type Script interface{}

// ScriptBuilder builds a call-script invoking method on the contract
// bound at target, with the given arguments.
type ScriptBuilder interface {
	BuildCall(target crypto.Address, method string, args []Result) (Script, error)
}

// VM executes a Script against a chain and its change-set, returning the
// value left on top of its stack.
type VM interface {
	Run(c *Chain, cs *kv.ChangeSet, script Script) (Result, error)
}

// Nexus is the external registry of sibling chains and plugin
// notification hooks. The core depends only on this query/notify
// surface — it never owns or iterates the full chain set itself.
type Nexus interface {
	ContainsChain(c *Chain) bool
	PluginTriggerBlock(c *Chain, b *Block)
}

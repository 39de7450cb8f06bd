package chain

import (
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/events"
	"github.com/nexusforge/corechain/kv"
)

// EventSink receives notifications emitted while a block is being
// ingested. *events.Emitter satisfies this directly; Block.Notify may
// also be nil, in which case notifications are silently dropped.
type EventSink interface {
	Emit(events.Event)
}

func emit(sink EventSink, ev events.Event) {
	if sink == nil {
		return
	}
	sink.Emit(ev)
}

// Transaction is the opaque unit of work a Block carries. The core never
// interprets a transaction's payload — it only calls these capabilities,
// supplied by the external VM (spec out of scope: script interpretation).
type Transaction interface {
	// Hash returns the transaction's stable identifier.
	Hash() crypto.Hash
	// IsValid reports whether the transaction may be executed against c,
	// without mutating anything.
	IsValid(c *Chain) bool
	// Execute runs the transaction against cs, the block's change-set, and
	// reports whether it succeeded. A false return causes the entire
	// block to be rejected and cs discarded unapplied.
	Execute(c *Chain, b *Block, cs *kv.ChangeSet, sink EventSink) bool
	// SetBlock records the block a transaction was ultimately included in.
	SetBlock(b *Block)
}

// Block is an immutable batch of transactions linked to its predecessor
// by hash. Heights are consecutive starting at 0 for a chain's genesis
// block.
type Block struct {
	Height       int64
	Hash         crypto.Hash
	PreviousHash crypto.Hash
	Transactions []Transaction
	Notify       EventSink
}

// NewBlock constructs an immutable Block. Callers compute Hash
// externally (it is derived elsewhere by hashing, per the core's
// cryptography collaborator contract) before calling AddBlock.
func NewBlock(height int64, hash, previousHash crypto.Hash, txs []Transaction, notify EventSink) *Block {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return &Block{
		Height:       height,
		Hash:         hash,
		PreviousHash: previousHash,
		Transactions: out,
		Notify:       notify,
	}
}

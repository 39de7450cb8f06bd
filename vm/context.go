// Package vm is the concrete virtual machine the core's Transaction/VM
// collaborator interfaces are written against: a registry-dispatch
// interpreter for block transactions, plus a method-call interpreter for
// the chain's synchronous contract-invocation path.
package vm

import (
	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
)

// Context is passed to every transaction Handler. It exposes the chain,
// the block being ingested, the staged change-set transaction mutations
// must go through, and the event sink for the block.
type Context struct {
	Chain     *chain.Chain
	Block     *chain.Block
	ChangeSet *kv.ChangeSet
	Sink      chain.EventSink
	From      crypto.Address
	TxHash    crypto.Hash
}

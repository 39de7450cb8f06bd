// Package nexus implements chain.Nexus: a process-local directory of
// sibling chains sharing a node, plus the plugin-notify fan-out every
// committed block triggers — narrowed from general peer-to-peer
// broadcast to a single notify-on-commit hook.
package nexus

import (
	"sync"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
)

// Notifier is the transport a Registry fans plugin-notify events out
// over. *gossip.Hub satisfies this; a nil Notifier makes PluginTriggerBlock
// a no-op.
type Notifier interface {
	NotifyBlock(chainAddress, blockHash string, height int64) error
}

// Registry is the concrete chain.Nexus every chain on a node shares: it
// tracks every chain that node hosts and fans out a notification each
// time any of them commits a block.
type Registry struct {
	hub Notifier

	mu     sync.RWMutex
	chains map[crypto.Address]*chain.Chain
}

// NewRegistry creates an empty Registry. hub may be nil, in which case
// PluginTriggerBlock sends nothing; Add/Remove/ContainsChain still work.
func NewRegistry(hub Notifier) *Registry {
	return &Registry{hub: hub, chains: make(map[crypto.Address]*chain.Chain)}
}

// Add registers c as one of the chains this node hosts.
func (r *Registry) Add(c *chain.Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[c.Address()] = c
}

// Remove deregisters a chain, e.g. after it is torn down.
func (r *Registry) Remove(addr crypto.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.chains, addr)
}

// ContainsChain reports whether c is registered with this node.
func (r *Registry) ContainsChain(c *chain.Chain) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.chains[c.Address()]
	return ok
}

// PluginTriggerBlock fans a block-committed notification out over the
// Registry's Notifier, chain.Nexus's second capability alongside
// ContainsChain. Notifier errors are not surfaced here — plugin delivery
// is best-effort, never something a block commit should roll back for.
func (r *Registry) PluginTriggerBlock(c *chain.Chain, b *chain.Block) {
	if r.hub == nil {
		return
	}
	_ = r.hub.NotifyBlock(c.Address().String(), b.Hash.String(), b.Height)
}

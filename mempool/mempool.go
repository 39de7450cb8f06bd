// Package mempool implements the pending-transaction pool feeding a
// builder's block assembly loop: an insertion-ordered slice plus a
// map for lookup, keyed by transaction hash.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
)

// DefaultMaxSize bounds the number of pending transactions a Pool holds
// before Add starts rejecting new ones.
const DefaultMaxSize = 10_000

// Pool is a thread-safe pending-transaction pool keyed by hash.
type Pool struct {
	maxSize int

	mu  sync.RWMutex
	txs map[crypto.Hash]chain.Transaction
	ord []crypto.Hash // insertion order, for deterministic Pending()
}

// New creates an empty Pool with DefaultMaxSize capacity.
func New() *Pool {
	return NewWithCapacity(DefaultMaxSize)
}

// NewWithCapacity creates an empty Pool bounded at maxSize pending
// transactions.
func NewWithCapacity(maxSize int) *Pool {
	return &Pool{maxSize: maxSize, txs: make(map[crypto.Hash]chain.Transaction)}
}

// Add validates tx against c and inserts it. Some mempools also enforce
// a signature-timestamp admission window, but chain.Transaction's opaque
// contract exposes only Hash/IsValid/Execute and carries no timestamp,
// so structural validity via IsValid is the only admission check here.
func (p *Pool) Add(c *chain.Chain, tx chain.Transaction) error {
	if !tx.IsValid(c) {
		return errors.New("mempool: transaction failed validation")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.txs) >= p.maxSize {
		return fmt.Errorf("mempool: full (%d pending)", p.maxSize)
	}
	h := tx.Hash()
	if _, exists := p.txs[h]; exists {
		return errors.New("mempool: transaction already pending")
	}
	p.txs[h] = tx
	p.ord = append(p.ord, h)
	return nil
}

// Get returns a pending transaction by hash.
func (p *Pool) Get(h crypto.Hash) (chain.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx, ok := p.txs[h]
	return tx, ok
}

// Pending returns up to n pending transactions in insertion order. n<=0
// means "no limit".
func (p *Pool) Pending(n int) []chain.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n <= 0 || n > len(p.ord) {
		n = len(p.ord)
	}
	result := make([]chain.Transaction, 0, n)
	for _, h := range p.ord {
		tx, ok := p.txs[h]
		if !ok {
			continue
		}
		result = append(result, tx)
		if len(result) >= n {
			break
		}
	}
	return result
}

// Remove deletes transactions by hash, called after their containing
// block commits.
func (p *Pool) Remove(hashes []crypto.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := make(map[crypto.Hash]bool, len(hashes))
	for _, h := range hashes {
		delete(p.txs, h)
		removed[h] = true
	}
	filtered := p.ord[:0]
	for _, h := range p.ord {
		if !removed[h] {
			filtered = append(filtered, h)
		}
	}
	p.ord = filtered
}

// Size returns the current number of pending transactions.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.txs)
}

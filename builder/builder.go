// Package builder implements the single-writer block-assembly loop:
// pull pending transactions, hash them into a block, execute against the
// chain, commit, and drain the mempool. Validator rotation and
// proposer-signature verification are dropped — validator selection and
// consensus voting are out of scope, and the single-writer model needs
// exactly one driver per chain, never an elected one.
package builder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/mempool"
)

// DefaultMaxBlockTxs bounds how many pending transactions a single
// ProduceBlock call pulls from the pool.
const DefaultMaxBlockTxs = 500

// Builder drives block assembly for exactly one chain.
type Builder struct {
	c           *chain.Chain
	pool        *mempool.Pool
	maxBlockTxs int
	notify      chain.EventSink
}

// New creates a Builder assembling blocks for c from pool.
func New(c *chain.Chain, pool *mempool.Pool) *Builder {
	return &Builder{c: c, pool: pool, maxBlockTxs: DefaultMaxBlockTxs}
}

// SetEventSink wires an EventSink that receives notifications for
// transactions executed in blocks this Builder produces.
func (b *Builder) SetEventSink(sink chain.EventSink) {
	b.notify = sink
}

// SetMaxBlockTxs overrides the default per-block transaction cap.
func (b *Builder) SetMaxBlockTxs(n int) {
	if n > 0 {
		b.maxBlockTxs = n
	}
}

// ProduceBlock pulls pending transactions, assembles the next block,
// commits it via chain.AddBlock, and drains the included transactions
// from the pool. A (nil, nil) return means there was nothing pending.
func (b *Builder) ProduceBlock() (*chain.Block, error) {
	txs := b.pool.Pending(b.maxBlockTxs)
	if len(txs) == 0 {
		return nil, nil
	}

	var prevHash crypto.Hash
	nextHeight := int64(0)
	if tip, ok := b.c.LastBlock(); ok {
		prevHash = tip.Hash
		nextHeight = tip.Height + 1
	}

	hash := computeBlockHash(nextHeight, prevHash, txs)
	block := chain.NewBlock(nextHeight, hash, prevHash, txs, b.notify)

	accepted, err := b.c.AddBlock(block)
	if err != nil {
		return nil, fmt.Errorf("builder: add block: %w", err)
	}
	if !accepted {
		return nil, fmt.Errorf("builder: block rejected: %s", b.c.LastRejectReason())
	}

	hashes := make([]crypto.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	b.pool.Remove(hashes)

	return block, nil
}

// computeBlockHash derives a block's identifier from its height,
// predecessor, and the concatenation of its transaction hashes, folding
// height and predecessor into the digest too since here the hash IS the
// block's identity rather than a field alongside it.
func computeBlockHash(height int64, prevHash crypto.Hash, txs []chain.Transaction) crypto.Hash {
	var buf bytes.Buffer
	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], uint64(height))
	buf.Write(heightBuf[:])
	buf.Write(prevHash.Bytes())
	for _, tx := range txs {
		h := tx.Hash()
		buf.Write(h.Bytes())
	}
	return crypto.Sha256(buf.Bytes())
}

// Run starts the block-production loop with the given interval. It
// blocks until done is closed.
func (b *Builder) Run(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, err := b.ProduceBlock(); err != nil {
				log.Printf("[builder] produce block error: %v", err)
			}
		}
	}
}

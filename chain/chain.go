// Package chain implements the per-chain ledger core: block ingestion,
// reorg (delete_blocks/merge_blocks), token sheets, the NFT content
// registry, and the parent/child chain tree.
package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/events"
	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/nft"
	"github.com/nexusforge/corechain/token"
)

// ValidateName reports whether name is an allowed chain name: length 3
// to 19 inclusive, characters restricted to lowercase letters, digits,
// and underscore.
func ValidateName(name string) bool {
	if len(name) < 3 || len(name) > 19 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// Chain is the orchestrator composing the KV store, token sheets, NFT
// registry, and block log for one node in the chain tree. It owns its
// store, sheets, registry, and block indexes exclusively; it holds only
// a back-reference to its parent, never ownership.
//
// Locking model: mu serializes block ingestion (AddBlock/DeleteBlocks/
// MergeBlocks) against each other and guards the block-log indexes and
// the children map. AddBlock holds it while transactions execute, so the
// sheet/registry operations they reach never acquire mu themselves,
// because those are reached both from top-level calls and from within an
// already-locked AddBlock — sheet
// reads/writes go straight to the (independently thread-safe) KV store,
// the token registry is guarded by its own tokensMu, the NFT registry by
// its own dedicated mutex, and supply-sheet lazy materialization by its
// own supplyMu. This mirrors spec's dedicated-mutex treatment of the NFT
// registry, generalized to every structure touched from both ingestion
// and top-level API callers.
type Chain struct {
	name    string
	address crypto.Address
	owner   crypto.Address

	parent      *Chain
	parentBlock *Block

	contractAddr  crypto.Address
	vm            VM
	scriptBuilder ScriptBuilder
	nexus         Nexus

	store    kv.Store
	registry *nft.Registry

	tokensMu sync.RWMutex
	tokens   map[token.TokenID]token.Token

	supplyMu sync.Mutex

	mu             sync.RWMutex
	children       map[string]*Chain
	blocksByHeight map[int64]*Block
	blocksByHash   map[crypto.Hash]*Block
	txBlock        map[crypto.Hash]*Block
	txByHash       map[crypto.Hash]Transaction
	changeSets     map[crypto.Hash]*kv.ChangeSet
	lastBlock      *Block
	txCount        int

	lastRejectReason string
}

// LastRejectReason returns a human-readable explanation of the most
// recent AddBlock call that returned (false, nil), or "" if no block has
// been rejected since the last accepted one. An AddBlock that returns a
// non-nil error leaves it unchanged. This is a diagnostic addition beyond the
// literal boolean accept/reject surface, so tests and RPC callers can
// report *why* without re-deriving it; it is not part of the
// accept/reject contract itself.
func (c *Chain) LastRejectReason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRejectReason
}

func newChain(name string, owner crypto.Address, store kv.Store, vmExec VM, sb ScriptBuilder, nexus Nexus, contractAddr crypto.Address, parent *Chain, parentBlock *Block) (*Chain, error) {
	if !ValidateName(name) {
		return nil, newArgumentError(fmt.Sprintf("invalid chain name %q", name))
	}
	return &Chain{
		name:           name,
		address:        crypto.AddressFromHash(crypto.Sha256([]byte(strings.ToLower(name)))),
		owner:          owner,
		parent:         parent,
		parentBlock:    parentBlock,
		contractAddr:   contractAddr,
		vm:             vmExec,
		scriptBuilder:  sb,
		nexus:          nexus,
		store:          store,
		registry:       nft.NewRegistry(),
		tokens:         make(map[token.TokenID]token.Token),
		children:       make(map[string]*Chain),
		blocksByHeight: make(map[int64]*Block),
		blocksByHash:   make(map[crypto.Hash]*Block),
		txBlock:        make(map[crypto.Hash]*Block),
		txByHash:       make(map[crypto.Hash]Transaction),
		changeSets:     make(map[crypto.Hash]*kv.ChangeSet),
	}, nil
}

// NewRootChain constructs a chain with no parent.
func NewRootChain(name string, owner crypto.Address, store kv.Store, vmExec VM, sb ScriptBuilder, nexus Nexus, contractAddr crypto.Address) (*Chain, error) {
	return newChain(name, owner, store, vmExec, sb, nexus, contractAddr, nil, nil)
}

// NewChildChain constructs a chain anchored to parentBlock on parent,
// and registers it under name in parent's children map. Names must be
// unique among parent's existing children.
func NewChildChain(parent *Chain, name string, owner crypto.Address, parentBlock *Block, store kv.Store, vmExec VM, sb ScriptBuilder, contractAddr crypto.Address) (*Chain, error) {
	if parent == nil {
		return nil, newArgumentError("child chain requires a non-nil parent")
	}
	if parentBlock == nil {
		return nil, newArgumentError("child chain requires a parent block")
	}
	child, err := newChain(name, owner, store, vmExec, sb, parent.nexus, contractAddr, parent, parentBlock)
	if err != nil {
		return nil, err
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()
	if _, exists := parent.children[name]; exists {
		return nil, ErrDuplicateChildName
	}
	parent.children[name] = child
	return child, nil
}

// Name, Address, Owner, IsRoot, Store, and Parent expose the chain's
// immutable identity; none require locking since these fields never
// change after construction.
func (c *Chain) Name() string          { return c.name }
func (c *Chain) Address() crypto.Address { return c.address }
func (c *Chain) Owner() crypto.Address { return c.owner }
func (c *Chain) IsRoot() bool          { return c.parent == nil }
func (c *Chain) Store() kv.Store       { return c.store }
func (c *Chain) Parent() (*Chain, bool) {
	if c.parent == nil {
		return nil, false
	}
	return c.parent, true
}
func (c *Chain) ParentBlock() (*Block, bool) {
	if c.parentBlock == nil {
		return nil, false
	}
	return c.parentBlock, true
}

// RegisterToken records tok's metadata (flags, max supply, id
// generation) with the chain. Sheets themselves carry no such metadata —
// it is looked up here whenever supply borrowing or NFT minting needs it.
func (c *Chain) RegisterToken(tok token.Token) {
	c.tokensMu.Lock()
	defer c.tokensMu.Unlock()
	c.tokens[tok.ID()] = tok
}

func (c *Chain) lookupToken(id token.TokenID) (token.Token, bool) {
	c.tokensMu.RLock()
	defer c.tokensMu.RUnlock()
	tok, ok := c.tokens[id]
	return tok, ok
}

// TokenByID returns the metadata a collaborator (a transaction handler,
// an RPC query) previously registered for id via RegisterToken.
func (c *Chain) TokenByID(id token.TokenID) (token.Token, bool) {
	return c.lookupToken(id)
}

// GetTokenBalance returns addr's balance of a fungible token.
func (c *Chain) GetTokenBalance(id token.TokenID, addr crypto.Address) (uint64, error) {
	return token.NewBalanceSheet(id).Get(c.store, addr)
}

// GetOwnedTokens returns the set of NFT item IDs addr owns under token id.
func (c *Chain) GetOwnedTokens(id token.TokenID, addr crypto.Address) ([]token.ItemID, error) {
	return token.NewOwnershipSheet(id).Get(c.store, addr)
}

// GetNFT returns the content stored for item id under token tokenID.
func (c *Chain) GetNFT(tokenID token.TokenID, id token.ItemID) ([]byte, bool, error) {
	return c.registry.Get(c.store, tokenID, id)
}

// CreateNFT mints a fresh item under tokenID, storing data against s — the
// chain's own store for intra-engine use, or the active block's
// change-set when called from within transaction execution, so creation
// is undone on rollback exactly like any other sheet mutation.
func (c *Chain) CreateNFT(s kv.Store, tokenID token.TokenID, data []byte) (token.ItemID, error) {
	tok, ok := c.lookupToken(tokenID)
	if !ok {
		return "", ErrUnknownToken
	}
	return c.registry.Create(s, tok, data)
}

// DestroyNFT removes item id's content under tokenID via s, reporting
// whether removal occurred.
func (c *Chain) DestroyNFT(s kv.Store, tokenID token.TokenID, id token.ItemID) (bool, error) {
	return c.registry.Destroy(s, tokenID, id)
}

// InitSupplySheet creates a capped token's supply sheet at a root chain
// with (local_balance=0, circulating=0, max_supply). Only valid on a
// root chain — children materialize their supply sheet lazily by
// borrowing from the parent (see SupplySheet).
func (c *Chain) InitSupplySheet(id token.TokenID, maxSupply uint64) error {
	if !c.IsRoot() {
		return newArgumentError("init_supply_sheet is only valid on a root chain")
	}
	c.supplyMu.Lock()
	defer c.supplyMu.Unlock()
	if err := token.NewSupplySheet(id).InitRoot(c.store, maxSupply); err != nil {
		return newInvariantError(err)
	}
	return nil
}

// SupplySheet returns the current supply state for id, lazily borrowing
// from the parent chain's sheet on first access if this chain is not a
// root chain. supplyMu serializes the check-then-borrow sequence to
// avoid a double-borrow race, the same way the NFT registry gets its own
// dedicated mutex.
func (c *Chain) SupplySheet(id token.TokenID) (token.SupplyState, error) {
	sheet := token.NewSupplySheet(id)

	c.supplyMu.Lock()
	defer c.supplyMu.Unlock()

	st, ok, err := sheet.Get(c.store)
	if err != nil {
		return token.SupplyState{}, err
	}
	if ok {
		return st, nil
	}
	if c.IsRoot() {
		return token.SupplyState{}, token.ErrSupplyNotInitialized
	}

	tok, ok := c.lookupToken(id)
	if !ok {
		return token.SupplyState{}, ErrUnknownToken
	}

	c.parent.supplyMu.Lock()
	defer c.parent.supplyMu.Unlock()
	return sheet.BorrowFromParent(c.parent.store, c.store, tok.MaxSupply())
}

// AddBlock validates linkage, validates and executes every transaction
// against a fresh change-set, and on success commits it and updates the
// block-log indexes. A false return with a nil error is a soft rejection
// (linkage/validation/execution failure) — no state changed, no error
// kind is needed since nothing is broken. A non-nil error indicates a
// hard failure applying the committed change-set.
func (c *Chain) AddBlock(b *Block) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addBlockLocked(b)
}

func (c *Chain) addBlockLocked(b *Block) (bool, error) {
	if c.lastBlock != nil {
		if b.Height != c.lastBlock.Height+1 || b.PreviousHash != c.lastBlock.Hash {
			c.lastRejectReason = fmt.Sprintf("block %s at height %d does not extend the current tip (height %d, hash %s)", b.Hash, b.Height, c.lastBlock.Height, c.lastBlock.Hash)
			return false, nil
		}
	} else if b.Height != 0 {
		c.lastRejectReason = fmt.Sprintf("genesis block must be at height 0, got %d", b.Height)
		return false, nil
	}

	for _, tx := range b.Transactions {
		if !tx.IsValid(c) {
			c.lastRejectReason = fmt.Sprintf("transaction %s failed validation", tx.Hash())
			return false, nil
		}
	}

	cs := kv.NewChangeSet(c.store)
	for _, tx := range b.Transactions {
		if !tx.Execute(c, b, cs, b.Notify) {
			c.lastRejectReason = fmt.Sprintf("transaction %s failed execution", tx.Hash())
			return false, nil
		}
	}

	if err := cs.Apply(); err != nil {
		return false, newInvariantError(err)
	}

	c.blocksByHeight[b.Height] = b
	c.blocksByHash[b.Hash] = b
	c.changeSets[b.Hash] = cs
	for _, tx := range b.Transactions {
		tx.SetBlock(b)
		c.txBlock[tx.Hash()] = b
		c.txByHash[tx.Hash()] = tx
	}
	c.txCount += len(b.Transactions)
	c.lastBlock = b
	c.lastRejectReason = ""

	if c.nexus != nil {
		c.nexus.PluginTriggerBlock(c, b)
	}
	emit(b.Notify, events.Event{Type: events.EventBlockCommit, BlockHeight: b.Height})
	return true, nil
}

// DeleteBlocks rewinds the chain until its tip is targetHash, undoing
// each block's change-set in reverse commit order. targetHash must name
// a block already present in the chain; if it is already the tip, this
// is a no-op.
func (c *Chain) DeleteBlocks(targetHash crypto.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteBlocksLocked(targetHash)
}

func (c *Chain) deleteBlocksLocked(targetHash crypto.Hash) error {
	if _, ok := c.blocksByHash[targetHash]; !ok {
		return &ArgumentError{Reason: fmt.Sprintf("delete_blocks: unknown target hash %s", targetHash), Err: ErrUnknownBlock}
	}

	for c.lastBlock != nil && c.lastBlock.Hash != targetHash {
		tip := c.lastBlock
		cs, ok := c.changeSets[tip.Hash]
		if !ok {
			return newInvariantError(fmt.Errorf("missing change-set for block %s", tip.Hash))
		}
		if err := cs.Undo(); err != nil {
			return newInvariantError(err)
		}

		delete(c.blocksByHash, tip.Hash)
		delete(c.blocksByHeight, tip.Height)
		delete(c.changeSets, tip.Hash)
		for _, tx := range tip.Transactions {
			delete(c.txBlock, tx.Hash())
			delete(c.txByHash, tx.Hash())
		}
		c.txCount -= len(tip.Transactions)

		if predecessor, ok := c.blocksByHash[tip.PreviousHash]; ok {
			c.lastBlock = predecessor
		} else {
			c.lastBlock = nil
		}
	}
	return nil
}

// MergeBlocks walks entries (consecutive heights starting at
// entries[0].Height) against the current chain: heights already present
// and matching are skipped, a divergent height triggers a rewind past
// the fork point and a restart from that entry, and heights beyond the
// current tip are appended as AddBlock would. The chain's write lock is
// held for the whole walk.
func (c *Chain) MergeBlocks(entries []*Block) error {
	if len(entries) == 0 {
		return ErrEmptyMergeEntries
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	currentCount := int64(len(c.blocksByHash))
	if entries[0].Height+int64(len(entries)) <= currentCount {
		return ErrMergeTooShort
	}

	for i := 0; i < len(entries); {
		entry := entries[i]

		local, haveLocal := c.blocksByHeight[entry.Height]
		tipHeight := int64(len(c.blocksByHash)) - 1

		if haveLocal && entry.Height <= tipHeight {
			if local.Hash == entry.Hash {
				i++
				continue
			}
			// Divergence: rewind past the fork point (to the block
			// before the one that disagrees) and retry this entry.
			if err := c.deleteBlocksLocked(local.PreviousHash); err != nil {
				return err
			}
			continue
		}

		accepted, err := c.addBlockLocked(entry)
		if err != nil {
			return err
		}
		if !accepted {
			return newArgumentError(fmt.Sprintf("merge_blocks: block at height %d rejected", entry.Height))
		}
		i++
	}
	return nil
}

// FindBlockByHash returns the block with the given hash, if present.
func (c *Chain) FindBlockByHash(h crypto.Hash) (*Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocksByHash[h]
	return b, ok
}

// FindBlockByHeight returns the block at the given height, if present.
func (c *Chain) FindBlockByHeight(height int64) (*Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocksByHeight[height]
	return b, ok
}

// FindTransactionByHash returns the transaction with the given hash, if
// it was ever included in a still-present block.
func (c *Chain) FindTransactionByHash(h crypto.Hash) (Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tx, ok := c.txByHash[h]
	return tx, ok
}

// FindTransactionBlock returns the block containing tx, if any.
func (c *Chain) FindTransactionBlock(tx Transaction) (*Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.txBlock[tx.Hash()]
	return b, ok
}

// Blocks returns every block currently in the chain, ordered by height.
func (c *Chain) Blocks() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Block, 0, len(c.blocksByHash))
	for h := int64(0); h < int64(len(c.blocksByHash)); h++ {
		if b, ok := c.blocksByHeight[h]; ok {
			out = append(out, b)
		}
	}
	return out
}

// BlockHeight returns the number of blocks currently accepted onto the
// chain.
func (c *Chain) BlockHeight() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.blocksByHash))
}

// TransactionCount returns the total number of transactions across every
// block currently in the chain.
func (c *Chain) TransactionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.txCount
}

// LastBlock returns the current tip, if any.
func (c *Chain) LastBlock() (*Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastBlock == nil {
		return nil, false
	}
	return c.lastBlock, true
}

// FindChildChain performs a depth-first search of the subtree rooted at
// c for a chain whose address matches addr. The Null address is
// rejected as an argument error; a normal miss returns (nil, nil).
func (c *Chain) FindChildChain(addr crypto.Address) (*Chain, error) {
	if addr.IsNull() {
		return nil, ErrNullAddress
	}
	return c.findChildChain(addr), nil
}

func (c *Chain) findChildChain(addr crypto.Address) *Chain {
	c.mu.RLock()
	children := make([]*Chain, 0, len(c.children))
	for _, ch := range c.children {
		children = append(children, ch)
	}
	c.mu.RUnlock()

	for _, ch := range children {
		if ch.address == addr {
			return ch
		}
		if found := ch.findChildChain(addr); found != nil {
			return found
		}
	}
	return nil
}

// GetRoot follows parent links to the chain with no parent.
func (c *Chain) GetRoot() *Chain {
	cur := c
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// InvokeContract builds a call-script for method on the chain's bound
// contract, runs it through a throwaway change-set, and returns the
// VM's result. The change-set is never applied: this is a read-only
// convenience path, and any writes the VM buffered are discarded.
func (c *Chain) InvokeContract(method string, args []Result) (Result, error) {
	if c.scriptBuilder == nil || c.vm == nil {
		return Result{}, newArgumentError("chain has no bound contract/VM")
	}
	script, err := c.scriptBuilder.BuildCall(c.contractAddr, method, args)
	if err != nil {
		return Result{}, err
	}
	cs := kv.NewChangeSet(c.store)
	return c.vm.Run(c, cs, script)
}

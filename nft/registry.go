// Package nft implements the per-chain NFT content registry: a map from
// non-fungible token identifier to the opaque payload bytes minted
// under it.
package nft

import (
	"fmt"
	"sync"

	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/token"
)

// Registry is the per-chain NFT content store. Unlike the token sheets
// it carries its own dedicated mutex: its reads are reached from
// arbitrary code paths (RPC queries, VM execution) that are not already
// serialized by a chain-wide write lock, so create/destroy/get all
// serialize on Registry.mu regardless of which lock, if any, the caller
// already holds. Content itself lives in the same kv.Store/ChangeSet as
// every other sheet, so creation and destruction performed during block
// execution are undone by ChangeSet.Undo() exactly like a balance or
// ownership mutation — there is no direct-mutation path that bypasses
// the change-set.
type Registry struct {
	mu sync.Mutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func contentKey(tok token.TokenID, id token.ItemID) []byte {
	return []byte(fmt.Sprintf("nft:content:%s:%s", tok, id))
}

// Create mints a fresh identifier from tok (monotonic, never reused),
// stores data under it, and returns the identifier.
func (r *Registry) Create(s kv.Store, tok token.Token, data []byte) (token.ItemID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := tok.GenerateID()
	buf := make([]byte, len(data))
	copy(buf, data)
	if err := s.Put(contentKey(tok.ID(), id), buf); err != nil {
		return "", err
	}
	return id, nil
}

// Destroy removes id's content, if present, and reports whether removal
// occurred.
func (r *Registry) Destroy(s kv.Store, tok token.TokenID, id token.ItemID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := contentKey(tok, id)
	ok, err := s.Contains(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.Delete(key); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns id's content, or ok=false if it does not exist.
func (r *Registry) Get(s kv.Store, tok token.TokenID, id token.ItemID) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := s.Get(contentKey(tok, id))
	if err == kv.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

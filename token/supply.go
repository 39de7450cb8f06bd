package token

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nexusforge/corechain/kv"
)

// ErrSupplyAlreadyInitialized is returned by InitRoot when a supply sheet
// already exists for the token.
var ErrSupplyAlreadyInitialized = errors.New("token: supply sheet already initialized")

// ErrSupplyNotInitialized is returned by Mint/Burn/BorrowFromParent when no
// supply sheet exists yet for the token.
var ErrSupplyNotInitialized = errors.New("token: supply sheet not initialized")

// ErrSupplyCapExceeded is returned when a root mint would push circulating
// supply past max_supply.
var ErrSupplyCapExceeded = errors.New("token: mint would exceed max supply")

// ErrLocalBalanceExceeded is returned when a non-root mint would push
// circulating supply past the chain's borrowed local_balance.
var ErrLocalBalanceExceeded = errors.New("token: mint would exceed local balance")

// ErrBurnExceedsCirculating is returned when Burn's amount exceeds the
// current circulating supply.
var ErrBurnExceedsCirculating = errors.New("token: burn exceeds circulating supply")

// SupplyState is the (local_balance, circulating, max_supply) triple
// a capped-supply sheet tracks, satisfying 0 ≤ circulating ≤
// local_balance ≤ max_supply at every step.
type SupplyState struct {
	LocalBalance uint64 `json:"local_balance"`
	Circulating  uint64 `json:"circulating"`
	MaxSupply    uint64 `json:"max_supply"`
}

// SupplySheet is the per-capped-token supply ledger. Like the other
// sheets it holds no state of its own — it is a view over whichever
// kv.Store/ChangeSet it is handed.
type SupplySheet struct {
	token TokenID
}

// NewSupplySheet returns the SupplySheet view for token.
func NewSupplySheet(token TokenID) SupplySheet {
	return SupplySheet{token: token}
}

func (s SupplySheet) key() []byte {
	return []byte(fmt.Sprintf("supply:%s", s.token))
}

// Get returns the current supply state, or ok=false if the sheet has
// never been initialized (neither InitRoot nor BorrowFromParent has run).
func (s SupplySheet) Get(store kv.Store) (SupplyState, bool, error) {
	raw, err := store.Get(s.key())
	if err == kv.ErrNotFound {
		return SupplyState{}, false, nil
	}
	if err != nil {
		return SupplyState{}, false, err
	}
	var st SupplyState
	if err := json.Unmarshal(raw, &st); err != nil {
		return SupplyState{}, false, fmt.Errorf("token: decode supply state: %w", err)
	}
	return st, true, nil
}

func (s SupplySheet) put(store kv.Store, st SupplyState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return store.Put(s.key(), data)
}

// InitRoot creates the supply sheet at a root chain: (local_balance=0,
// circulating=0, max_supply). Root local_balance grows lazily as Mint is
// called with isRoot=true, rather than starting pre-funded to max_supply.
func (s SupplySheet) InitRoot(store kv.Store, maxSupply uint64) error {
	if _, ok, err := s.Get(store); err != nil {
		return err
	} else if ok {
		return ErrSupplyAlreadyInitialized
	}
	return s.put(store, SupplyState{MaxSupply: maxSupply})
}

// BorrowFromParent materializes this sheet at a child chain by borrowing
// the parent's entire current local_balance: the child's initial
// local_balance equals the parent's local_balance at this moment, and the
// parent's own local_balance is reduced by the same amount — the parent
// symbolically hands its whole local headroom to the child. parentStore
// and childStore may be the same kv.Store only when parent and child
// happen to share a backend; callers are expected to pass the respective
// chains' own stores.
func (s SupplySheet) BorrowFromParent(parentStore, childStore kv.Store, maxSupply uint64) (SupplyState, error) {
	parent, ok, err := s.Get(parentStore)
	if err != nil {
		return SupplyState{}, err
	}
	if !ok {
		return SupplyState{}, ErrSupplyNotInitialized
	}

	borrowed := parent.LocalBalance
	parent.LocalBalance = 0
	if err := s.put(parentStore, parent); err != nil {
		return SupplyState{}, err
	}

	child := SupplyState{LocalBalance: borrowed, Circulating: 0, MaxSupply: maxSupply}
	if err := s.put(childStore, child); err != nil {
		return SupplyState{}, err
	}
	return child, nil
}

// Mint increases circulating by amount. On a root chain (isRoot) the mint
// also grows local_balance to cover the new circulating total, bounded by
// max_supply — the root is the ultimate source of new supply. On a child
// chain, minting only draws down the already-borrowed local_balance
// headroom and never grows it.
func (s SupplySheet) Mint(store kv.Store, amount uint64, isRoot bool) error {
	st, ok, err := s.Get(store)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSupplyNotInitialized
	}

	newCirculating := st.Circulating + amount
	if isRoot {
		if newCirculating > st.MaxSupply {
			return ErrSupplyCapExceeded
		}
		if newCirculating > st.LocalBalance {
			st.LocalBalance = newCirculating
		}
	} else if newCirculating > st.LocalBalance {
		return ErrLocalBalanceExceeded
	}
	st.Circulating = newCirculating
	return s.put(store, st)
}

// Burn decreases circulating by amount. amount must not exceed the
// current circulating supply. local_balance is never reduced by a burn.
func (s SupplySheet) Burn(store kv.Store, amount uint64) error {
	st, ok, err := s.Get(store)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSupplyNotInitialized
	}
	if amount > st.Circulating {
		return ErrBurnExceedsCirculating
	}
	st.Circulating -= amount
	return s.put(store, st)
}

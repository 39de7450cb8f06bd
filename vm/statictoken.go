package vm

import (
	"fmt"
	"sync/atomic"

	"github.com/nexusforge/corechain/token"
)

// StaticToken is the concrete token.Token every registered token on a
// corechain node uses: fixed flags and max supply declared once at
// registration, plus a monotonic in-memory item-id counter for NFT
// collections — a lightweight declared "class of asset" narrowed to
// exactly the metadata the Token contract asks for.
type StaticToken struct {
	id    token.TokenID
	flags token.Flags
	max   uint64
	next  uint64
}

// NewStaticToken declares a token with the given id and flags. max is
// meaningful only when flags includes FlagCapped.
func NewStaticToken(id token.TokenID, flags token.Flags, max uint64) *StaticToken {
	return &StaticToken{id: id, flags: flags, max: max}
}

func (t *StaticToken) ID() token.TokenID  { return t.id }
func (t *StaticToken) Flags() token.Flags { return t.flags }
func (t *StaticToken) IsFungible() bool   { return t.flags&token.FlagFungible != 0 }
func (t *StaticToken) IsCapped() bool     { return t.flags&token.FlagCapped != 0 }
func (t *StaticToken) MaxSupply() uint64  { return t.max }

// GenerateID hands out a monotonic item identifier of the form
// "<token_id>-<n>", never reused within one process. The counter is
// process-local: a node restart resets it, and nft.Registry.Create does
// not check for an existing entry, so ids issued before a restart can be
// issued again.
func (t *StaticToken) GenerateID() token.ItemID {
	n := atomic.AddUint64(&t.next, 1)
	return token.ItemID(fmt.Sprintf("%s-%d", t.id, n))
}

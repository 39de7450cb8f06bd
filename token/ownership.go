package token

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
)

// ItemID identifies one non-fungible item minted under a Token.
type ItemID string

// ErrAlreadyOwned is returned by Give when the item already has an owner.
var ErrAlreadyOwned = errors.New("token: item already owned")

// ErrNotOwned is returned by Take when address does not currently own the
// item.
var ErrNotOwned = errors.New("token: item not owned by address")

// OwnershipSheet is a per-NFT-token mapping from account address to the set
// of item identifiers it owns, plus the reverse index from item to owner.
// Like BalanceSheet it holds no state of its own — both indexes are
// encoded into whichever kv.Store/ChangeSet it is handed, so forward and
// reverse updates commit or undo together as one unit.
type OwnershipSheet struct {
	token TokenID
}

// NewOwnershipSheet returns the OwnershipSheet view for token.
func NewOwnershipSheet(token TokenID) OwnershipSheet {
	return OwnershipSheet{token: token}
}

func (o OwnershipSheet) fwdKey(addr crypto.Address) []byte {
	return []byte(fmt.Sprintf("own:fwd:%s:%s", o.token, addr.String()))
}

func (o OwnershipSheet) revKey(id ItemID) []byte {
	return []byte(fmt.Sprintf("own:rev:%s:%s", o.token, id))
}

// Get returns the set of item IDs addr currently owns.
func (o OwnershipSheet) Get(s kv.Store, addr crypto.Address) ([]ItemID, error) {
	return o.readList(s, addr)
}

// OwnerOf returns the current owner of id, and false if it is unowned.
func (o OwnershipSheet) OwnerOf(s kv.Store, id ItemID) (crypto.Address, bool, error) {
	raw, err := s.Get(o.revKey(id))
	if err == kv.ErrNotFound {
		return crypto.Address{}, false, nil
	}
	if err != nil {
		return crypto.Address{}, false, err
	}
	addr, err := crypto.AddressFromHex(string(raw))
	if err != nil {
		return crypto.Address{}, false, err
	}
	return addr, true, nil
}

// Give assigns id to addr. It fails if id is already owned by anyone.
func (o OwnershipSheet) Give(s kv.Store, addr crypto.Address, id ItemID) error {
	_, owned, err := o.OwnerOf(s, id)
	if err != nil {
		return err
	}
	if owned {
		return ErrAlreadyOwned
	}
	list, err := o.readList(s, addr)
	if err != nil {
		return err
	}
	list = append(list, id)
	if err := o.writeList(s, addr, list); err != nil {
		return err
	}
	return s.Put(o.revKey(id), []byte(addr.String()))
}

// Take removes id from addr's ownership. It fails if addr does not
// currently own id.
func (o OwnershipSheet) Take(s kv.Store, addr crypto.Address, id ItemID) error {
	owner, owned, err := o.OwnerOf(s, id)
	if err != nil {
		return err
	}
	if !owned || owner != addr {
		return ErrNotOwned
	}
	list, err := o.readList(s, addr)
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, existing := range list {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	if err := o.writeList(s, addr, filtered); err != nil {
		return err
	}
	return s.Delete(o.revKey(id))
}

func (o OwnershipSheet) readList(s kv.Store, addr crypto.Address) ([]ItemID, error) {
	raw, err := s.Get(o.fwdKey(addr))
	if err == kv.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []ItemID
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("token: decode ownership list: %w", err)
	}
	return list, nil
}

func (o OwnershipSheet) writeList(s kv.Store, addr crypto.Address, list []ItemID) error {
	if len(list) == 0 {
		return s.Delete(o.fwdKey(addr))
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.Put(o.fwdKey(addr), data)
}

package token

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
)

// ErrNegativeAmount is returned when Add/Subtract is called with a
// negative amount.
var ErrNegativeAmount = errors.New("token: amount must be non-negative")

// ErrInsufficientBalance is returned when Subtract would drive a balance
// below zero.
var ErrInsufficientBalance = errors.New("token: insufficient balance")

// ErrBalanceOverflow is returned when Add would overflow a uint64 balance.
var ErrBalanceOverflow = errors.New("token: balance overflow")

// BalanceSheet is a per-token mapping from account address to a
// non-negative integer balance. It has no state of its own: balances are
// encoded as entries under a token-scoped key prefix in whichever
// kv.Store it is handed, so the same methods serve both direct,
// intra-engine mutation and change-set-routed mutation during block
// execution — callers pass a *kv.ChangeSet wherever the mutation must be
// reversible.
type BalanceSheet struct {
	token TokenID
}

// NewBalanceSheet returns the BalanceSheet view for token. Sheets carry no
// state of their own, so "creation" is just constructing this value —
// callers may do so lazily on first access without any init race.
func NewBalanceSheet(token TokenID) BalanceSheet {
	return BalanceSheet{token: token}
}

func (b BalanceSheet) key(addr crypto.Address) []byte {
	return []byte(fmt.Sprintf("bal:%s:%s", b.token, addr.String()))
}

// Get returns addr's balance, or zero if the address has never held any.
func (b BalanceSheet) Get(s kv.Store, addr crypto.Address) (uint64, error) {
	raw, err := s.Get(b.key(addr))
	if err == kv.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (b BalanceSheet) put(s kv.Store, addr crypto.Address, balance uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], balance)
	return s.Put(b.key(addr), buf[:])
}

// Add increases addr's balance by amount. amount must be non-negative.
func (b BalanceSheet) Add(s kv.Store, addr crypto.Address, amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	cur, err := b.Get(s, addr)
	if err != nil {
		return err
	}
	if cur > math.MaxUint64-uint64(amount) {
		return ErrBalanceOverflow
	}
	return b.put(s, addr, cur+uint64(amount))
}

// Subtract decreases addr's balance by amount. amount must be
// non-negative and must not drive the balance below zero.
func (b BalanceSheet) Subtract(s kv.Store, addr crypto.Address, amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	cur, err := b.Get(s, addr)
	if err != nil {
		return err
	}
	if uint64(amount) > cur {
		return ErrInsufficientBalance
	}
	return b.put(s, addr, cur-uint64(amount))
}

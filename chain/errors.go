package chain

import (
	"errors"
	"fmt"
)

// ArgumentError reports a caller mistake: a null address where one is
// required, a chain name outside the allowed length/character set, an
// unknown chain, or an absent block passed to delete_blocks. These are
// distinct from invariant violations — they indicate bad input, not
// corrupted state. Err, when set, is a sentinel the error unwraps to
// (e.g. ErrUnknownBlock) so callers can also match it with errors.Is.
type ArgumentError struct {
	Reason string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("chain: invalid argument: %s", e.Reason)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

func newArgumentError(reason string) error {
	return &ArgumentError{Reason: reason}
}

// InvariantError reports a broken ledger invariant surfaced by a
// direct (non-transaction) chain mutation: a negative balance, a
// double-owned NFT, supply minted over its cap, or similar. The core
// makes no attempt to auto-repair — it aborts the operation and wraps
// the underlying sheet error so callers can still inspect it with
// errors.Is/As.
type InvariantError struct {
	Err error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("chain: invariant violation: %v", e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func newInvariantError(err error) error {
	return &InvariantError{Err: err}
}

var (
	// ErrNullAddress is returned where an address argument must not be
	// the null address.
	ErrNullAddress = errors.New("chain: null address not allowed")
	// ErrUnknownChain is returned when a lookup or operation references a
	// chain address that is not reachable from the nexus/chain tree.
	ErrUnknownChain = errors.New("chain: unknown chain")
	// ErrUnknownBlock is returned by delete_blocks when target_hash does
	// not name a block present in the chain.
	ErrUnknownBlock = errors.New("chain: unknown block hash")
	// ErrDuplicateChildName is returned when registering a child chain
	// whose name is already taken under the same parent.
	ErrDuplicateChildName = errors.New("chain: duplicate child chain name")
	// ErrEmptyMergeEntries is returned by merge_blocks when given no
	// entries.
	ErrEmptyMergeEntries = errors.New("chain: merge_blocks requires at least one entry")
	// ErrMergeTooShort is returned when the merge candidate does not
	// extend past the chain's current height.
	ErrMergeTooShort = errors.New("chain: merge sequence does not exceed current height")
	// ErrUnknownToken is returned when an operation names a token that
	// was never registered with the chain.
	ErrUnknownToken = errors.New("chain: unknown token")
)

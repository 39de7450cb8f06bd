package chain

import (
	"errors"
	"strings"
	"testing"

	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/token"
)

func testHash(t *testing.T, seed byte) crypto.Hash {
	t.Helper()
	var h crypto.Hash
	h[0] = seed
	return h
}

func testAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	return crypto.AddressFromHash(testHash(t, seed))
}

// capToken is a minimal token.Token for the capped fungible token used
// across these tests.
type capToken struct {
	id  token.TokenID
	max uint64
}

func (c capToken) ID() token.TokenID       { return c.id }
func (c capToken) Flags() token.Flags      { return token.FlagFungible | token.FlagCapped }
func (c capToken) IsFungible() bool        { return true }
func (c capToken) IsCapped() bool          { return true }
func (c capToken) MaxSupply() uint64       { return c.max }
func (c capToken) GenerateID() token.ItemID { return "" }

// mintTx mints amount of token to `to`, routed through the block's
// change-set and the SupplySheet's root/child-aware Mint.
type mintTx struct {
	hash   crypto.Hash
	token  token.TokenID
	to     crypto.Address
	amount uint64
	block  *Block
}

func (tx *mintTx) Hash() crypto.Hash { return tx.hash }
func (tx *mintTx) IsValid(c *Chain) bool { return true }
func (tx *mintTx) SetBlock(b *Block)  { tx.block = b }
func (tx *mintTx) Execute(c *Chain, b *Block, cs *kv.ChangeSet, sink EventSink) bool {
	if err := token.NewSupplySheet(tx.token).Mint(cs, tx.amount, c.IsRoot()); err != nil {
		return false
	}
	if err := token.NewBalanceSheet(tx.token).Add(cs, tx.to, int64(tx.amount)); err != nil {
		return false
	}
	return true
}

// transferTx moves amount of token from `from` to `to`.
type transferTx struct {
	hash   crypto.Hash
	token  token.TokenID
	from   crypto.Address
	to     crypto.Address
	amount uint64
	block  *Block
}

func (tx *transferTx) Hash() crypto.Hash { return tx.hash }
func (tx *transferTx) IsValid(c *Chain) bool { return true }
func (tx *transferTx) SetBlock(b *Block)  { tx.block = b }
func (tx *transferTx) Execute(c *Chain, b *Block, cs *kv.ChangeSet, sink EventSink) bool {
	sheet := token.NewBalanceSheet(tx.token)
	if err := sheet.Subtract(cs, tx.from, int64(tx.amount)); err != nil {
		return false
	}
	if err := sheet.Add(cs, tx.to, int64(tx.amount)); err != nil {
		return false
	}
	return true
}

// failingTx always fails execution, to exercise all-or-nothing rollback.
type failingTx struct {
	hash  crypto.Hash
	block *Block
}

func (tx *failingTx) Hash() crypto.Hash          { return tx.hash }
func (tx *failingTx) IsValid(c *Chain) bool      { return true }
func (tx *failingTx) SetBlock(b *Block)          { tx.block = b }
func (tx *failingTx) Execute(c *Chain, b *Block, cs *kv.ChangeSet, sink EventSink) bool {
	return false
}

func newTestRootChain(t *testing.T) *Chain {
	t.Helper()
	c, err := NewRootChain("root", testAddr(t, 0xAA), kv.NewMemStore(), nil, nil, nil, crypto.Address{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestValidateName(t *testing.T) {
	cases := map[string]bool{
		"ab":                    false, // too short (2 chars)
		"abc":                   true,  // minimum length (3 chars)
		"a_b9":                  true,
		"UPPER":                 false, // uppercase not allowed
		"has space":             false,
		"this-name-has-dash":    false, // dash not allowed
		"012345678901234567890": false, // 21 chars, too long
		strings.Repeat("a", 19): true,  // maximum length (19 chars)
		strings.Repeat("a", 20): false, // one over the maximum length
	}
	for name, want := range cases {
		if got := ValidateName(name); got != want {
			t.Errorf("ValidateName(%q) = %v, want %v", name, got, want)
		}
	}
}

// TestScenarioS1 mirrors spec scenario S1.
func TestScenarioS1(t *testing.T) {
	c := newTestRootChain(t)
	tok := capToken{id: "T", max: 1000}
	c.RegisterToken(tok)
	if err := c.InitSupplySheet(tok.ID(), tok.max); err != nil {
		t.Fatal(err)
	}

	a := testAddr(t, 1)
	genesis := NewBlock(0, testHash(t, 1), crypto.Hash{}, []Transaction{
		&mintTx{hash: testHash(t, 0x10), token: tok.ID(), to: a, amount: 100},
	}, nil)

	accepted, err := c.AddBlock(genesis)
	if err != nil || !accepted {
		t.Fatalf("expected genesis accepted, got accepted=%v err=%v", accepted, err)
	}

	bal, err := c.GetTokenBalance(tok.ID(), a)
	if err != nil || bal != 100 {
		t.Fatalf("expected balance 100, got %d err %v", bal, err)
	}
	supply, err := c.SupplySheet(tok.ID())
	if err != nil || supply.Circulating != 100 {
		t.Fatalf("expected circulating 100, got %+v err %v", supply, err)
	}
	if c.BlockHeight() != 1 {
		t.Fatalf("expected block height 1, got %d", c.BlockHeight())
	}
}

// TestScenarioS2AndS3 mirrors spec scenarios S2 and S3.
func TestScenarioS2AndS3(t *testing.T) {
	c := newTestRootChain(t)
	tok := capToken{id: "T", max: 1000}
	c.RegisterToken(tok)
	c.InitSupplySheet(tok.ID(), tok.max)

	a := testAddr(t, 1)
	b := testAddr(t, 2)

	b1Hash := testHash(t, 1)
	genesis := NewBlock(0, b1Hash, crypto.Hash{}, []Transaction{
		&mintTx{hash: testHash(t, 0x10), token: tok.ID(), to: a, amount: 100},
	}, nil)
	if accepted, err := c.AddBlock(genesis); err != nil || !accepted {
		t.Fatalf("genesis rejected: accepted=%v err=%v", accepted, err)
	}

	b2Hash := testHash(t, 2)
	b2 := NewBlock(1, b2Hash, b1Hash, []Transaction{
		&transferTx{hash: testHash(t, 0x20), token: tok.ID(), from: a, to: b, amount: 30},
	}, nil)
	if accepted, err := c.AddBlock(b2); err != nil || !accepted {
		t.Fatalf("B2 rejected: accepted=%v err=%v", accepted, err)
	}

	balA, _ := c.GetTokenBalance(tok.ID(), a)
	balB, _ := c.GetTokenBalance(tok.ID(), b)
	if balA != 70 || balB != 30 {
		t.Fatalf("expected (70,30), got (%d,%d)", balA, balB)
	}
	supply, _ := c.SupplySheet(tok.ID())
	if supply.Circulating != 100 {
		t.Fatalf("expected circulating still 100, got %d", supply.Circulating)
	}

	// S3: delete_blocks(B1.hash) rewinds past B2.
	if err := c.DeleteBlocks(b1Hash); err != nil {
		t.Fatal(err)
	}
	if c.BlockHeight() != 1 {
		t.Fatalf("expected height 1 after rewind, got %d", c.BlockHeight())
	}
	balA, _ = c.GetTokenBalance(tok.ID(), a)
	balB, _ = c.GetTokenBalance(tok.ID(), b)
	if balA != 100 || balB != 0 {
		t.Fatalf("expected (100,0) after rewind, got (%d,%d)", balA, balB)
	}
	if _, ok := c.FindBlockByHash(b2Hash); ok {
		t.Fatal("expected B2 to be gone after rewind")
	}
}

// TestScenarioS4 mirrors spec scenario S4: child chain supply borrowing.
func TestScenarioS4(t *testing.T) {
	root := newTestRootChain(t)
	tok := capToken{id: "T", max: 1000}
	root.RegisterToken(tok)
	root.InitSupplySheet(tok.ID(), tok.max)

	a := testAddr(t, 1)
	b1Hash := testHash(t, 1)
	genesis := NewBlock(0, b1Hash, crypto.Hash{}, []Transaction{
		&mintTx{hash: testHash(t, 0x10), token: tok.ID(), to: a, amount: 100},
	}, nil)
	if accepted, err := root.AddBlock(genesis); err != nil || !accepted {
		t.Fatalf("genesis rejected: accepted=%v err=%v", accepted, err)
	}
	parentBlock, _ := root.FindBlockByHash(b1Hash)

	child, err := NewChildChain(root, "child", testAddr(t, 2), parentBlock, kv.NewMemStore(), nil, nil, crypto.Address{})
	if err != nil {
		t.Fatal(err)
	}
	child.RegisterToken(tok)

	st, err := child.SupplySheet(tok.ID())
	if err != nil {
		t.Fatal(err)
	}
	if st.LocalBalance != 100 || st.Circulating != 0 || st.MaxSupply != 1000 {
		t.Fatalf("expected (100,0,1000), got %+v", st)
	}

	if err := token.NewSupplySheet(tok.ID()).Mint(child.Store(), 50, child.IsRoot()); err != nil {
		t.Fatal(err)
	}
	if err := token.NewSupplySheet(tok.ID()).Mint(child.Store(), 60, child.IsRoot()); err != token.ErrLocalBalanceExceeded {
		t.Fatalf("expected ErrLocalBalanceExceeded, got %v", err)
	}
}

// TestScenarioS5 mirrors spec scenario S5: NFT create/assign/destroy.
func TestScenarioS5(t *testing.T) {
	c := newTestRootChain(t)
	nftTok := &counterNFTToken{id: "N"}
	c.RegisterToken(nftTok)

	a := testAddr(t, 1)
	id1, err := c.CreateNFT(c.Store(), "N", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := c.CreateNFT(c.Store(), "N", []byte("y"))
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatal("expected distinct ids")
	}

	if err := token.NewOwnershipSheet("N").Give(c.Store(), a, id1); err != nil {
		t.Fatal(err)
	}
	owned, err := c.GetOwnedTokens("N", a)
	if err != nil || len(owned) != 1 || owned[0] != id1 {
		t.Fatalf("expected exactly [id1], got %v err %v", owned, err)
	}

	removed, err := c.DestroyNFT(c.Store(), "N", id1)
	if err != nil || !removed {
		t.Fatalf("expected first destroy true, got %v err %v", removed, err)
	}
	removed, err = c.DestroyNFT(c.Store(), "N", id1)
	if err != nil || removed {
		t.Fatalf("expected second destroy false, got %v err %v", removed, err)
	}
}

type counterNFTToken struct {
	id   token.TokenID
	next uint64
}

func (c *counterNFTToken) ID() token.TokenID  { return c.id }
func (c *counterNFTToken) Flags() token.Flags { return 0 }
func (c *counterNFTToken) IsFungible() bool   { return false }
func (c *counterNFTToken) IsCapped() bool     { return false }
func (c *counterNFTToken) MaxSupply() uint64  { return 0 }
func (c *counterNFTToken) GenerateID() token.ItemID {
	c.next++
	return token.ItemID(string(rune('a' + int(c.next))))
}

func TestAddBlockRejectsBadLinkage(t *testing.T) {
	c := newTestRootChain(t)
	bad := NewBlock(1, testHash(t, 1), crypto.Hash{}, nil, nil) // height should be 0 for genesis
	accepted, err := c.AddBlock(bad)
	if err != nil || accepted {
		t.Fatalf("expected rejection, got accepted=%v err=%v", accepted, err)
	}
	if c.BlockHeight() != 0 {
		t.Fatalf("expected height 0, got %d", c.BlockHeight())
	}
}

func TestAddBlockAllOrNothingOnExecutionFailure(t *testing.T) {
	c := newTestRootChain(t)
	tok := capToken{id: "T", max: 1000}
	c.RegisterToken(tok)
	c.InitSupplySheet(tok.ID(), tok.max)

	a := testAddr(t, 1)
	b1Hash := testHash(t, 1)
	b := NewBlock(0, b1Hash, crypto.Hash{}, []Transaction{
		&mintTx{hash: testHash(t, 0x10), token: tok.ID(), to: a, amount: 100},
		&failingTx{hash: testHash(t, 0x11)},
	}, nil)

	accepted, err := c.AddBlock(b)
	if err != nil || accepted {
		t.Fatalf("expected rejection, got accepted=%v err=%v", accepted, err)
	}
	bal, _ := c.GetTokenBalance(tok.ID(), a)
	if bal != 0 {
		t.Fatalf("expected no mutation from rejected block, got balance %d", bal)
	}
	if c.BlockHeight() != 0 {
		t.Fatalf("expected height 0 after rejection, got %d", c.BlockHeight())
	}
}

func TestFindChildChainRejectsNullAddress(t *testing.T) {
	c := newTestRootChain(t)
	if _, err := c.FindChildChain(crypto.NullAddress); err != ErrNullAddress {
		t.Fatalf("expected ErrNullAddress, got %v", err)
	}
}

func TestFindChildChainDFS(t *testing.T) {
	root := newTestRootChain(t)
	b1Hash := testHash(t, 1)
	genesis := NewBlock(0, b1Hash, crypto.Hash{}, nil, nil)
	root.AddBlock(genesis)
	parentBlock, _ := root.FindBlockByHash(b1Hash)

	mid, err := NewChildChain(root, "mid", testAddr(t, 2), parentBlock, kv.NewMemStore(), nil, nil, crypto.Address{})
	if err != nil {
		t.Fatal(err)
	}
	midGenesis := NewBlock(0, testHash(t, 3), crypto.Hash{}, nil, nil)
	mid.AddBlock(midGenesis)
	midParentBlock, _ := mid.FindBlockByHeight(0)

	leaf, err := NewChildChain(mid, "leaf", testAddr(t, 3), midParentBlock, kv.NewMemStore(), nil, nil, crypto.Address{})
	if err != nil {
		t.Fatal(err)
	}

	found, err := root.FindChildChain(leaf.Address())
	if err != nil || found != leaf {
		t.Fatalf("expected to find leaf via DFS, got %v err %v", found, err)
	}
	if root.GetRoot() != root || leaf.GetRoot() != root {
		t.Fatal("expected GetRoot to resolve to root from any depth")
	}
}

func TestDeleteBlocksUnknownHashReturnsErrUnknownBlock(t *testing.T) {
	c := newTestRootChain(t)
	genesis := NewBlock(0, testHash(t, 1), crypto.Hash{}, nil, nil)
	if accepted, err := c.AddBlock(genesis); err != nil || !accepted {
		t.Fatalf("genesis rejected: accepted=%v err=%v", accepted, err)
	}

	err := c.DeleteBlocks(testHash(t, 0xFF))
	if err == nil {
		t.Fatal("expected error for unknown target hash")
	}
	if !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("expected errors.Is(err, ErrUnknownBlock), got %v", err)
	}
}

func TestNewChildChainDuplicateNameRejected(t *testing.T) {
	root := newTestRootChain(t)
	genesis := NewBlock(0, testHash(t, 1), crypto.Hash{}, nil, nil)
	root.AddBlock(genesis)
	parentBlock, _ := root.FindBlockByHeight(0)

	if _, err := NewChildChain(root, "dup", testAddr(t, 2), parentBlock, kv.NewMemStore(), nil, nil, crypto.Address{}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewChildChain(root, "dup", testAddr(t, 3), parentBlock, kv.NewMemStore(), nil, nil, crypto.Address{}); err != ErrDuplicateChildName {
		t.Fatalf("expected ErrDuplicateChildName, got %v", err)
	}
}

package nftmod

import (
	"testing"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/token"
	"github.com/nexusforge/corechain/vm"
)

func newTestChain(t *testing.T) *chain.Chain {
	t.Helper()
	owner := crypto.AddressFromHash(crypto.Sha256([]byte("owner")))
	c, err := chain.NewRootChain("root", owner, kv.NewMemStore(), vm.NewInterpVM(), vm.NewCallBuilder(), nil, crypto.Address{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func mustKeyPair(t *testing.T) (crypto.PrivateKey, crypto.PublicKey) {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return priv, pub
}

func addBlock(t *testing.T, c *chain.Chain, height int64, prevHash crypto.Hash, txs []chain.Transaction) chain.Block {
	t.Helper()
	var h crypto.Hash
	h[0] = byte(height + 1)
	h[1] = 0xFF
	b := chain.NewBlock(height, h, prevHash, txs, nil)
	ok, err := c.AddBlock(b)
	if err != nil || !ok {
		t.Fatalf("AddBlock height %d: accepted=%v err=%v", height, ok, err)
	}
	return *b
}

// TestCreateAssignDestroy exercises the full ScriptTx → registry → nftmod
// handler path: create assigns to an owner, a non-owner's destroy attempt
// is rejected, and the real owner's destroy succeeds.
func TestCreateAssignDestroy(t *testing.T) {
	c := newTestChain(t)
	tok := vm.NewStaticToken("art", 0, 0)
	c.RegisterToken(tok)

	creatorPriv, creatorPub := mustKeyPair(t)
	ownerPriv, ownerPub := mustKeyPair(t)

	createTx, err := vm.NewScriptTx(vm.TxCreateNFT, creatorPub, 0, CreatePayload{
		TokenID: tok.ID(), To: ownerPub.Address().String(), Data: []byte("artwork-1"),
	}, creatorPriv)
	if err != nil {
		t.Fatal(err)
	}
	b0 := addBlock(t, c, 0, crypto.Hash{}, []chain.Transaction{createTx})

	owned, err := c.GetOwnedTokens(tok.ID(), ownerPub.Address())
	if err != nil || len(owned) != 1 {
		t.Fatalf("expected exactly one owned item, got %v err %v", owned, err)
	}
	id := owned[0]

	content, ok, err := c.GetNFT(tok.ID(), id)
	if err != nil || !ok || string(content) != "artwork-1" {
		t.Fatalf("expected content %q, got %q ok=%v err=%v", "artwork-1", content, ok, err)
	}

	// Destroy signed by the creator (not the owner) must fail the
	// transaction, and all-or-nothing means nothing else in the block
	// applies either.
	badDestroyTx, err := vm.NewScriptTx(vm.TxDestroyNFT, creatorPub, 1, DestroyPayload{
		TokenID: tok.ID(), ItemID: id,
	}, creatorPriv)
	if err != nil {
		t.Fatal(err)
	}
	b1 := chain.NewBlock(1, crypto.Hash{2}, b0.Hash, []chain.Transaction{badDestroyTx}, nil)
	accepted, err := c.AddBlock(b1)
	if err != nil || accepted {
		t.Fatalf("expected destroy by non-owner to be rejected, got accepted=%v err=%v", accepted, err)
	}

	destroyTx, err := vm.NewScriptTx(vm.TxDestroyNFT, ownerPub, 0, DestroyPayload{
		TokenID: tok.ID(), ItemID: id,
	}, ownerPriv)
	if err != nil {
		t.Fatal(err)
	}
	addBlock(t, c, 1, b0.Hash, []chain.Transaction{destroyTx})

	if _, ok, _ := c.GetNFT(tok.ID(), id); ok {
		t.Fatal("expected item content gone after destroy")
	}
	if owned, _ := c.GetOwnedTokens(tok.ID(), ownerPub.Address()); len(owned) != 0 {
		t.Fatalf("expected no owned items after destroy, got %v", owned)
	}
}

// TestTransferMovesOwnership exercises transfer_nft end to end.
func TestTransferMovesOwnership(t *testing.T) {
	c := newTestChain(t)
	tok := vm.NewStaticToken("art", 0, 0)
	c.RegisterToken(tok)

	creatorPriv, creatorPub := mustKeyPair(t)
	alicePriv, alicePub := mustKeyPair(t)
	_, bobPub := mustKeyPair(t)

	createTx, err := vm.NewScriptTx(vm.TxCreateNFT, creatorPub, 0, CreatePayload{
		TokenID: tok.ID(), To: alicePub.Address().String(), Data: []byte("piece"),
	}, creatorPriv)
	if err != nil {
		t.Fatal(err)
	}
	b0 := addBlock(t, c, 0, crypto.Hash{}, []chain.Transaction{createTx})

	owned, _ := c.GetOwnedTokens(tok.ID(), alicePub.Address())
	id := owned[0]

	transferTx, err := vm.NewScriptTx(vm.TxTransferNFT, alicePub, 0, TransferPayload{
		TokenID: tok.ID(), ItemID: id, To: bobPub.Address().String(),
	}, alicePriv)
	if err != nil {
		t.Fatal(err)
	}
	addBlock(t, c, 1, b0.Hash, []chain.Transaction{transferTx})

	aliceOwned, _ := c.GetOwnedTokens(tok.ID(), alicePub.Address())
	bobOwned, _ := c.GetOwnedTokens(tok.ID(), bobPub.Address())
	if len(aliceOwned) != 0 || len(bobOwned) != 1 || bobOwned[0] != id {
		t.Fatalf("expected ownership moved to bob, got alice=%v bob=%v", aliceOwned, bobOwned)
	}
}

// TestInvokeContractOwnerOfQuery exercises the read-only invoke_contract
// path against the owner_of query handler.
func TestInvokeContractOwnerOfQuery(t *testing.T) {
	c := newTestChain(t)
	tok := vm.NewStaticToken("art", 0, 0)
	c.RegisterToken(tok)

	creatorPriv, creatorPub := mustKeyPair(t)
	_, ownerPub := mustKeyPair(t)

	createTx, err := vm.NewScriptTx(vm.TxCreateNFT, creatorPub, 0, CreatePayload{
		TokenID: tok.ID(), To: ownerPub.Address().String(), Data: []byte("x"),
	}, creatorPriv)
	if err != nil {
		t.Fatal(err)
	}
	addBlock(t, c, 0, crypto.Hash{}, []chain.Transaction{createTx})

	owned, _ := c.GetOwnedTokens(tok.ID(), ownerPub.Address())
	id := owned[0]

	result, err := c.InvokeContract("owner_of", []chain.Result{
		chain.BytesResult([]byte(tok.ID())),
		chain.BytesResult([]byte(id)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Kind != chain.KindAddress || result.Address != ownerPub.Address() {
		t.Fatalf("expected owner address result, got %+v", result)
	}
}

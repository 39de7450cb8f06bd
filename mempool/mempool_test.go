package mempool

import (
	"testing"

	"github.com/nexusforge/corechain/chain"
	"github.com/nexusforge/corechain/crypto"
	"github.com/nexusforge/corechain/kv"
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

func mustTx(t *testing.T, nonce uint64) *vm.ScriptTx {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	tx, err := vm.NewScriptTx(vm.TxTransferFungible, pub, nonce, map[string]any{"to": "x", "amount": 1}, priv)
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestAddGetPending(t *testing.T) {
	c := newTestChain(t)
	p := New()

	tx1 := mustTx(t, 0)
	tx2 := mustTx(t, 1)

	if err := p.Add(c, tx1); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(c, tx2); err != nil {
		t.Fatal(err)
	}
	if p.Size() != 2 {
		t.Fatalf("expected size 2, got %d", p.Size())
	}

	got, ok := p.Get(tx1.Hash())
	if !ok || got.Hash() != tx1.Hash() {
		t.Fatal("expected to find tx1 by hash")
	}

	pending := p.Pending(0)
	if len(pending) != 2 || pending[0].Hash() != tx1.Hash() || pending[1].Hash() != tx2.Hash() {
		t.Fatalf("expected insertion order [tx1, tx2], got %v", pending)
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	c := newTestChain(t)
	p := New()
	tx := mustTx(t, 0)
	if err := p.Add(c, tx); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(c, tx); err == nil {
		t.Fatal("expected a duplicate add to fail")
	}
}

func TestAddRejectsFullPool(t *testing.T) {
	c := newTestChain(t)
	p := NewWithCapacity(1)
	if err := p.Add(c, mustTx(t, 0)); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(c, mustTx(t, 1)); err == nil {
		t.Fatal("expected add beyond capacity to fail")
	}
}

func TestRemovePrunesByHash(t *testing.T) {
	c := newTestChain(t)
	p := New()
	tx1 := mustTx(t, 0)
	tx2 := mustTx(t, 1)
	p.Add(c, tx1)
	p.Add(c, tx2)

	p.Remove([]crypto.Hash{tx1.Hash()})
	if p.Size() != 1 {
		t.Fatalf("expected size 1 after remove, got %d", p.Size())
	}
	if _, ok := p.Get(tx1.Hash()); ok {
		t.Fatal("expected tx1 removed")
	}
	pending := p.Pending(0)
	if len(pending) != 1 || pending[0].Hash() != tx2.Hash() {
		t.Fatalf("expected only tx2 remaining, got %v", pending)
	}
}

package token

import (
	"testing"

	"github.com/nexusforge/corechain/kv"
)

func TestSupplySheetInitRoot(t *testing.T) {
	store := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")

	if err := sheet.InitRoot(store, 1000); err != nil {
		t.Fatal(err)
	}
	st, ok, err := sheet.Get(store)
	if err != nil || !ok {
		t.Fatalf("expected initialized sheet, ok=%v err=%v", ok, err)
	}
	if st.LocalBalance != 0 || st.Circulating != 0 || st.MaxSupply != 1000 {
		t.Fatalf("expected (0,0,1000), got %+v", st)
	}

	if err := sheet.InitRoot(store, 1000); err != ErrSupplyAlreadyInitialized {
		t.Fatalf("expected ErrSupplyAlreadyInitialized, got %v", err)
	}
}

// TestSupplySheetRootMintGrowsLocalBalance mirrors spec scenario S1: a
// root mint of 100 under a 1000 cap leaves circulating=100.
func TestSupplySheetRootMintGrowsLocalBalance(t *testing.T) {
	store := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")
	sheet.InitRoot(store, 1000)

	if err := sheet.Mint(store, 100, true); err != nil {
		t.Fatal(err)
	}
	st, _, _ := sheet.Get(store)
	if st.LocalBalance != 100 || st.Circulating != 100 || st.MaxSupply != 1000 {
		t.Fatalf("expected (100,100,1000), got %+v", st)
	}
}

func TestSupplySheetRootMintCapEnforced(t *testing.T) {
	store := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")
	sheet.InitRoot(store, 1000)
	sheet.Mint(store, 900, true)

	if err := sheet.Mint(store, 200, true); err != ErrSupplyCapExceeded {
		t.Fatalf("expected ErrSupplyCapExceeded, got %v", err)
	}
}

// TestSupplySheetBorrowFromParent mirrors spec scenario S4: after the
// parent mints 100 of a 1000-cap token, a freshly materialized child
// sheet reads local_balance=100, circulating=0, max_supply=1000.
func TestSupplySheetBorrowFromParent(t *testing.T) {
	parentStore := kv.NewMemStore()
	childStore := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")

	sheet.InitRoot(parentStore, 1000)
	sheet.Mint(parentStore, 100, true)

	child, err := sheet.BorrowFromParent(parentStore, childStore, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if child.LocalBalance != 100 || child.Circulating != 0 || child.MaxSupply != 1000 {
		t.Fatalf("expected (100,0,1000), got %+v", child)
	}

	parent, _, _ := sheet.Get(parentStore)
	if parent.LocalBalance != 0 {
		t.Fatalf("expected parent local_balance drained to 0, got %d", parent.LocalBalance)
	}
}

func TestSupplySheetChildMintBoundedByLocalBalance(t *testing.T) {
	parentStore := kv.NewMemStore()
	childStore := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")
	sheet.InitRoot(parentStore, 1000)
	sheet.Mint(parentStore, 100, true)
	sheet.BorrowFromParent(parentStore, childStore, 1000)

	if err := sheet.Mint(childStore, 50, false); err != nil {
		t.Fatal(err)
	}
	if err := sheet.Mint(childStore, 60, false); err != ErrLocalBalanceExceeded {
		t.Fatalf("expected ErrLocalBalanceExceeded minting past borrowed headroom, got %v", err)
	}
}

func TestSupplySheetBurn(t *testing.T) {
	store := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")
	sheet.InitRoot(store, 1000)
	sheet.Mint(store, 100, true)

	if err := sheet.Burn(store, 40); err != nil {
		t.Fatal(err)
	}
	st, _, _ := sheet.Get(store)
	if st.Circulating != 60 || st.LocalBalance != 100 {
		t.Fatalf("expected circulating=60 local_balance unchanged=100, got %+v", st)
	}

	if err := sheet.Burn(store, 1000); err != ErrBurnExceedsCirculating {
		t.Fatalf("expected ErrBurnExceedsCirculating, got %v", err)
	}
}

func TestSupplySheetMintBeforeInitFails(t *testing.T) {
	store := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")
	if err := sheet.Mint(store, 1, true); err != ErrSupplyNotInitialized {
		t.Fatalf("expected ErrSupplyNotInitialized, got %v", err)
	}
}

func TestSupplySheetChangeSetRoutedMintUndoes(t *testing.T) {
	store := kv.NewMemStore()
	sheet := NewSupplySheet("CAPPED")
	sheet.InitRoot(store, 1000)

	cs := kv.NewChangeSet(store)
	if err := sheet.Mint(cs, 100, true); err != nil {
		t.Fatal(err)
	}
	if err := cs.Apply(); err != nil {
		t.Fatal(err)
	}
	if err := cs.Undo(); err != nil {
		t.Fatal(err)
	}

	st, _, _ := sheet.Get(store)
	if st.Circulating != 0 || st.LocalBalance != 0 {
		t.Fatalf("expected mint fully undone, got %+v", st)
	}
}

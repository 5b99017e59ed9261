package state

import (
	"math/big"
	"testing"

	"escrowmarket/native/catalog"
	"escrowmarket/native/escrow"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestProductSequenceAndIndex(t *testing.T) {
	m := NewManager()
	alice := addr(0x01)
	for i := 1; i <= 3; i++ {
		id, err := m.ProductAppend(&catalog.Product{Seller: alice, Name: "p", Price: big.NewInt(int64(i))})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if id != uint64(i) {
			t.Fatalf("expected id %d, got %d", i, id)
		}
	}
	if m.ProductCount() != 3 {
		t.Fatalf("count: %d", m.ProductCount())
	}
	listings, err := m.ProductsBySeller(alice)
	if err != nil {
		t.Fatalf("by seller: %v", err)
	}
	if len(listings) != 3 || listings[0].ID != 1 || listings[2].ID != 3 {
		t.Fatalf("unexpected index: %+v", listings)
	}
}

func TestPurchaseIDsNotReusedAfterDelete(t *testing.T) {
	m := NewManager()
	p := &escrow.Purchase{
		Buyer:    addr(0x01),
		Seller:   addr(0x02),
		Quantity: 1,
		State:    escrow.StateInterested,
	}
	first, err := m.PurchaseAppend(p)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.PurchaseDelete(first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := m.PurchaseGet(first); ok {
		t.Fatal("deleted purchase still readable")
	}
	second, err := m.PurchaseAppend(p)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if second != first+1 {
		t.Fatalf("expected id %d, got %d", first+1, second)
	}
}

func TestPurchasesAllAscending(t *testing.T) {
	m := NewManager()
	p := &escrow.Purchase{Buyer: addr(0x01), Seller: addr(0x02), Quantity: 1, State: escrow.StateInterested}
	for i := 0; i < 5; i++ {
		if _, err := m.PurchaseAppend(p); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := m.PurchaseDelete(3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err := m.PurchasesAll()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	want := []uint64{1, 2, 4, 5}
	if len(all) != len(want) {
		t.Fatalf("expected %d purchases, got %d", len(want), len(all))
	}
	for i, purchase := range all {
		if purchase.ID != want[i] {
			t.Fatalf("position %d: want id %d, got %d", i, want[i], purchase.ID)
		}
	}
}

func TestStoredRecordsAreIsolated(t *testing.T) {
	m := NewManager()
	p := &escrow.Purchase{
		Buyer:           addr(0x01),
		Seller:          addr(0x02),
		Quantity:        1,
		State:           escrow.StateInterested,
		HeldSellerFunds: big.NewInt(400),
	}
	id, err := m.PurchaseAppend(p)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	p.HeldSellerFunds.SetInt64(0)
	stored, _ := m.PurchaseGet(id)
	if stored.HeldSellerFunds.Cmp(big.NewInt(400)) != 0 {
		t.Fatal("stored record aliased the caller's instance")
	}
	stored.State = escrow.StateComplete
	again, _ := m.PurchaseGet(id)
	if again.State != escrow.StateInterested {
		t.Fatal("returned record aliased the stored instance")
	}
}

func TestPauseView(t *testing.T) {
	m := NewManager()
	if m.IsPaused("escrow") {
		t.Fatal("modules start unpaused")
	}
	m.SetPaused("escrow", true)
	if !m.IsPaused("escrow") {
		t.Fatal("pause not recorded")
	}
	m.SetPaused("escrow", false)
	if m.IsPaused("escrow") {
		t.Fatal("unpause not recorded")
	}
}

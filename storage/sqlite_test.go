package storage

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"escrowmarket/core/types"
	"escrowmarket/native/catalog"
	"escrowmarket/native/escrow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "market.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAddr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestStoreProductRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seller := testAddr(0x01)
	id, err := store.ProductAppend(&catalog.Product{
		Seller:      seller,
		Name:        "widget",
		Description: "a widget",
		Category:    "tools",
		Price:       big.NewInt(100),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	product, ok := store.ProductGet(id)
	require.True(t, ok)
	require.Equal(t, "widget", product.Name)
	require.Equal(t, seller, product.Seller)
	require.Zero(t, product.Price.Cmp(big.NewInt(100)))
	require.Equal(t, uint64(1), store.ProductCount())

	_, ok = store.ProductGet(2)
	require.False(t, ok)
}

func TestStoreProductSellerIndex(t *testing.T) {
	store := openTestStore(t)
	alice, bob := testAddr(0x01), testAddr(0x02)
	_, err := store.ProductAppend(&catalog.Product{Seller: alice, Name: "a", Price: big.NewInt(1)})
	require.NoError(t, err)
	_, err = store.ProductAppend(&catalog.Product{Seller: bob, Name: "b", Price: big.NewInt(2)})
	require.NoError(t, err)
	_, err = store.ProductAppend(&catalog.Product{Seller: alice, Name: "c", Price: big.NewInt(3)})
	require.NoError(t, err)

	listings, err := store.ProductsBySeller(alice)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	require.Equal(t, uint64(1), listings[0].ID)
	require.Equal(t, uint64(3), listings[1].ID)

	all, err := store.ProductsAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestStorePurchaseSequenceSurvivesDelete(t *testing.T) {
	store := openTestStore(t)
	purchase := &escrow.Purchase{
		Buyer:           testAddr(0x01),
		Seller:          testAddr(0x02),
		ProductID:       1,
		Quantity:        2,
		State:           escrow.StateInterested,
		BuyerDeposit:    big.NewInt(600),
		SellerDeposit:   big.NewInt(400),
		HeldBuyerFunds:  big.NewInt(0),
		HeldSellerFunds: big.NewInt(0),
	}
	first, err := store.PurchaseAppend(purchase)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)

	require.NoError(t, store.PurchaseDelete(first))
	_, ok := store.PurchaseGet(first)
	require.False(t, ok)

	second, err := store.PurchaseAppend(purchase)
	require.NoError(t, err)
	require.Equal(t, uint64(2), second, "ids must never be reused")
}

func TestStorePurchaseUpdate(t *testing.T) {
	store := openTestStore(t)
	purchase := &escrow.Purchase{
		Buyer:           testAddr(0x01),
		Seller:          testAddr(0x02),
		ProductID:       1,
		Quantity:        2,
		State:           escrow.StateInterested,
		BuyerDeposit:    big.NewInt(600),
		SellerDeposit:   big.NewInt(400),
		HeldBuyerFunds:  big.NewInt(0),
		HeldSellerFunds: big.NewInt(0),
	}
	id, err := store.PurchaseAppend(purchase)
	require.NoError(t, err)

	purchase.ID = id
	purchase.State = escrow.StateCreated
	purchase.HeldSellerFunds = big.NewInt(400)
	require.NoError(t, store.PurchasePut(purchase))

	loaded, ok := store.PurchaseGet(id)
	require.True(t, ok)
	require.Equal(t, escrow.StateCreated, loaded.State)
	require.Zero(t, loaded.HeldSellerFunds.Cmp(big.NewInt(400)))

	missing := purchase.Clone()
	missing.ID = 99
	require.Error(t, store.PurchasePut(missing))
}

func TestStoreAccountRoundTrip(t *testing.T) {
	store := openTestStore(t)
	addr := testAddr(0x07)

	acc, err := store.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, acc.Balance.Sign(), "unknown accounts start at zero")

	require.NoError(t, store.PutAccount(addr, &types.Account{Nonce: 3, Balance: big.NewInt(1234)}))
	acc, err = store.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(3), acc.Nonce)
	require.Zero(t, acc.Balance.Cmp(big.NewInt(1234)))
}

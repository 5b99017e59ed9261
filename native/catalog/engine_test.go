package catalog

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
)

type mockState struct {
	products []*Product
	bySeller map[[20]byte][]uint64
}

func newMockState() *mockState {
	return &mockState{bySeller: make(map[[20]byte][]uint64)}
}

func (m *mockState) ProductAppend(p *Product) (uint64, error) {
	id := uint64(len(m.products)) + 1
	clone := p.Clone()
	clone.ID = id
	m.products = append(m.products, clone)
	m.bySeller[clone.Seller] = append(m.bySeller[clone.Seller], id)
	return id, nil
}

func (m *mockState) ProductGet(id uint64) (*Product, bool) {
	if id == 0 || id > uint64(len(m.products)) {
		return nil, false
	}
	return m.products[id-1], true
}

func (m *mockState) ProductCount() uint64 { return uint64(len(m.products)) }

func (m *mockState) ProductsBySeller(seller [20]byte) ([]*Product, error) {
	out := make([]*Product, 0)
	for _, id := range m.bySeller[seller] {
		out = append(out, m.products[id-1])
	}
	return out, nil
}

func (m *mockState) ProductsAll() ([]*Product, error) {
	return append([]*Product(nil), m.products...), nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	return engine, state
}

func TestCreateProductAssignsSequentialIDs(t *testing.T) {
	engine, _ := newTestEngine(t)
	seller := newTestAddress(0x01)
	for want := uint64(1); want <= 3; want++ {
		id, err := engine.CreateProduct(seller, "widget", big.NewInt(100), "a widget", "img", "tools")
		if err != nil {
			t.Fatalf("create product: %v", err)
		}
		if id != want {
			t.Fatalf("expected id %d, got %d", want, id)
		}
	}
}

func TestCreateProductAcceptsZeroPrice(t *testing.T) {
	engine, _ := newTestEngine(t)
	id, err := engine.CreateProduct(newTestAddress(0x01), "freebie", big.NewInt(0), "", "", "")
	if err != nil {
		t.Fatalf("create zero-price product: %v", err)
	}
	product, err := engine.GetProduct(id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Price.Sign() != 0 {
		t.Fatalf("expected zero price, got %s", product.Price)
	}
}

func TestCreateProductRejectsEmptyName(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.CreateProduct(newTestAddress(0x01), "   ", big.NewInt(5), "", "", ""); err == nil {
		t.Fatal("expected empty name to be rejected")
	}
}

func TestGetProductBounds(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.CreateProduct(newTestAddress(0x01), "widget", big.NewInt(100), "", "", ""); err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, id := range []uint64{0, 2, 99} {
		if _, err := engine.GetProduct(id); !errors.Is(err, ErrProductNotFound) {
			t.Fatalf("id %d: expected ErrProductNotFound, got %v", id, err)
		}
	}
}

func TestGetProductReturnsClone(t *testing.T) {
	engine, state := newTestEngine(t)
	id, err := engine.CreateProduct(newTestAddress(0x01), "widget", big.NewInt(100), "", "", "")
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	product, err := engine.GetProduct(id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	product.Price.SetInt64(999)
	stored, _ := state.ProductGet(id)
	if stored.Price.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("stored price mutated through returned clone: %s", stored.Price)
	}
}

func TestListBySellerReturnsCreationOrder(t *testing.T) {
	engine, _ := newTestEngine(t)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	if _, err := engine.CreateProduct(alice, "first", big.NewInt(1), "", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.CreateProduct(bob, "other", big.NewInt(2), "", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.CreateProduct(alice, "second", big.NewInt(3), "", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	listings, err := engine.ListBySeller(alice)
	if err != nil {
		t.Fatalf("list by seller: %v", err)
	}
	if len(listings) != 2 || listings[0].ID != 1 || listings[1].ID != 3 {
		t.Fatalf("unexpected seller listings: %+v", listings)
	}
	all, err := engine.ListProducts()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(all))
	}
}

type pauseAll struct{}

func (pauseAll) IsPaused(string) bool { return true }

func TestCreateProductRespectsPause(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.SetPauses(pauseAll{})
	if _, err := engine.CreateProduct(newTestAddress(0x01), "widget", big.NewInt(1), "", "", ""); err == nil {
		t.Fatal("expected paused module to reject creation")
	}
}

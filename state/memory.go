package state

import (
	"fmt"
	"sort"
	"sync"

	"escrowmarket/core/types"
	"escrowmarket/native/catalog"
	"escrowmarket/native/escrow"
)

// Manager is the in-memory state backend. It implements the state interfaces
// of the catalog engine, the escrow engine and the bank ledger, and is the
// backend unit tests and ephemeral deployments run against.
//
// Records are cloned at the boundary in both directions so callers can never
// alias stored instances. Ids are assigned sequentially from 1 and never
// reused, even after a purchase is discarded.
type Manager struct {
	mu sync.RWMutex

	products        []*catalog.Product
	productBySeller map[[20]byte][]uint64

	purchases      map[uint64]*escrow.Purchase
	nextPurchaseID uint64

	accounts map[[20]byte]*types.Account

	paused map[string]bool
}

// NewManager constructs an empty state manager.
func NewManager() *Manager {
	return &Manager{
		productBySeller: make(map[[20]byte][]uint64),
		purchases:       make(map[uint64]*escrow.Purchase),
		nextPurchaseID:  1,
		accounts:        make(map[[20]byte]*types.Account),
		paused:          make(map[string]bool),
	}
}

// --- catalog state ---

// ProductAppend stores a listing under the next sequential id.
func (m *Manager) ProductAppend(p *catalog.Product) (uint64, error) {
	if p == nil {
		return 0, fmt.Errorf("state: nil product")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := p.Clone()
	clone.ID = uint64(len(m.products)) + 1
	m.products = append(m.products, clone)
	m.productBySeller[clone.Seller] = append(m.productBySeller[clone.Seller], clone.ID)
	return clone.ID, nil
}

// ProductGet returns the listing stored under the id, when present.
func (m *Manager) ProductGet(id uint64) (*catalog.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id == 0 || id > uint64(len(m.products)) {
		return nil, false
	}
	return m.products[id-1].Clone(), true
}

// ProductCount reports how many listings exist.
func (m *Manager) ProductCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.products))
}

// ProductsBySeller returns the seller's listings in creation order.
func (m *Manager) ProductsBySeller(seller [20]byte) ([]*catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.productBySeller[seller]
	out := make([]*catalog.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.products[id-1].Clone())
	}
	return out, nil
}

// ProductsAll returns every listing in creation order.
func (m *Manager) ProductsAll() ([]*catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*catalog.Product, 0, len(m.products))
	for _, product := range m.products {
		out = append(out, product.Clone())
	}
	return out, nil
}

// --- escrow state ---

// PurchaseAppend stores a purchase under the next sequential id.
func (m *Manager) PurchaseAppend(p *escrow.Purchase) (uint64, error) {
	if p == nil {
		return 0, fmt.Errorf("state: nil purchase")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := p.Clone()
	clone.ID = m.nextPurchaseID
	m.nextPurchaseID++
	m.purchases[clone.ID] = clone
	return clone.ID, nil
}

// PurchaseGet returns the purchase stored under the id, when present.
func (m *Manager) PurchaseGet(id uint64) (*escrow.Purchase, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	purchase, ok := m.purchases[id]
	if !ok {
		return nil, false
	}
	return purchase.Clone(), true
}

// PurchasePut overwrites the purchase stored under its id.
func (m *Manager) PurchasePut(p *escrow.Purchase) error {
	if p == nil || p.ID == 0 {
		return fmt.Errorf("state: purchase id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.purchases[p.ID]; !ok {
		return fmt.Errorf("state: purchase %d does not exist", p.ID)
	}
	m.purchases[p.ID] = p.Clone()
	return nil
}

// PurchaseDelete removes a purchase record. The id is not reused: the
// sequence counter only grows.
func (m *Manager) PurchaseDelete(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.purchases[id]; !ok {
		return fmt.Errorf("state: purchase %d does not exist", id)
	}
	delete(m.purchases, id)
	return nil
}

// PurchasesAll returns every live purchase in ascending id order.
func (m *Manager) PurchasesAll() ([]*escrow.Purchase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint64, 0, len(m.purchases))
	for id := range m.purchases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*escrow.Purchase, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.purchases[id].Clone())
	}
	return out, nil
}

// --- account state ---

// GetAccount returns the account stored under the address; a never-seen
// address yields a zero-balance account.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[addr]; ok {
		return acc.Clone(), nil
	}
	return (&types.Account{}).Clone(), nil
}

// PutAccount overwrites the account stored under the address.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[addr] = account.Clone()
	return nil
}

// --- pause view ---

// SetPaused freezes or unfreezes a named module.
func (m *Manager) SetPaused(module string, paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[module] = paused
}

// IsPaused implements the engines' pause view.
func (m *Manager) IsPaused(module string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused[module]
}

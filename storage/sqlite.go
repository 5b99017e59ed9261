package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"escrowmarket/core/types"
	"escrowmarket/native/catalog"
	"escrowmarket/native/escrow"
)

// productRow persists a catalog listing. Products are append-only, so the
// sqlite rowid doubles as the sequential product id.
type productRow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Seller      string `gorm:"size:40;index;not null"`
	Name        string `gorm:"size:256;not null"`
	Description string `gorm:"type:text"`
	Image       string `gorm:"type:text"`
	Category    string `gorm:"size:128"`
	Price       string `gorm:"size:78;not null"`
}

func (productRow) TableName() string { return "products" }

// purchaseRow persists an escrow purchase. Ids come from the counters table
// rather than autoincrement so a discarded purchase never frees its id.
type purchaseRow struct {
	ID              uint64 `gorm:"primaryKey"`
	Buyer           string `gorm:"size:40;index;not null"`
	Seller          string `gorm:"size:40;index;not null"`
	ProductID       uint64 `gorm:"not null"`
	Quantity        uint64 `gorm:"not null"`
	State           uint8  `gorm:"index;not null"`
	BuyerDeposit    string `gorm:"size:78;not null"`
	SellerDeposit   string `gorm:"size:78;not null"`
	HeldBuyerFunds  string `gorm:"size:78;not null"`
	HeldSellerFunds string `gorm:"size:78;not null"`
}

func (purchaseRow) TableName() string { return "purchases" }

type accountRow struct {
	Address string `gorm:"primaryKey;size:40"`
	Nonce   uint64
	Balance string `gorm:"size:78;not null"`
}

func (accountRow) TableName() string { return "accounts" }

type counterRow struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value uint64 `gorm:"not null"`
}

func (counterRow) TableName() string { return "counters" }

const purchaseSeqCounter = "purchase_seq"

// Store is the sqlite-backed state backend used by the daemon. It implements
// the same engine state interfaces as the in-memory manager.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the sqlite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&productRow{}, &purchaseRow{}, &accountRow{}, &counterRow{}); err != nil {
		return nil, fmt.Errorf("storage: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func encodeAddr(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

func decodeAddr(encoded string) ([20]byte, error) {
	var addr [20]byte
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return addr, fmt.Errorf("storage: decode address %q: %w", encoded, err)
	}
	if len(raw) != 20 {
		return addr, fmt.Errorf("storage: address %q has %d bytes", encoded, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func encodeAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decodeAmount(encoded string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(encoded, 10)
	if !ok {
		return nil, fmt.Errorf("storage: decode amount %q", encoded)
	}
	return v, nil
}

// --- catalog state ---

func toProductRow(p *catalog.Product) *productRow {
	return &productRow{
		ID:          p.ID,
		Seller:      encodeAddr(p.Seller),
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Category:    p.Category,
		Price:       encodeAmount(p.Price),
	}
}

func fromProductRow(row *productRow) (*catalog.Product, error) {
	seller, err := decodeAddr(row.Seller)
	if err != nil {
		return nil, err
	}
	price, err := decodeAmount(row.Price)
	if err != nil {
		return nil, err
	}
	return &catalog.Product{
		ID:          row.ID,
		Seller:      seller,
		Name:        row.Name,
		Description: row.Description,
		Image:       row.Image,
		Category:    row.Category,
		Price:       price,
	}, nil
}

// ProductAppend stores a listing; sqlite assigns the next sequential id.
func (s *Store) ProductAppend(p *catalog.Product) (uint64, error) {
	if p == nil {
		return 0, fmt.Errorf("storage: nil product")
	}
	row := toProductRow(p)
	row.ID = 0
	if err := s.db.Create(row).Error; err != nil {
		return 0, fmt.Errorf("storage: insert product: %w", err)
	}
	return row.ID, nil
}

// ProductGet returns the listing stored under the id, when present.
func (s *Store) ProductGet(id uint64) (*catalog.Product, bool) {
	var row productRow
	err := s.db.First(&row, "id = ?", id).Error
	if err != nil {
		return nil, false
	}
	product, err := fromProductRow(&row)
	if err != nil {
		return nil, false
	}
	return product, true
}

// ProductCount reports how many listings exist.
func (s *Store) ProductCount() uint64 {
	var count int64
	if err := s.db.Model(&productRow{}).Count(&count).Error; err != nil {
		return 0
	}
	return uint64(count)
}

// ProductsBySeller returns the seller's listings in creation order.
func (s *Store) ProductsBySeller(seller [20]byte) ([]*catalog.Product, error) {
	var rows []productRow
	if err := s.db.Where("seller = ?", encodeAddr(seller)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: list products by seller: %w", err)
	}
	return productsFromRows(rows)
}

// ProductsAll returns every listing in creation order.
func (s *Store) ProductsAll() ([]*catalog.Product, error) {
	var rows []productRow
	if err := s.db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: list products: %w", err)
	}
	return productsFromRows(rows)
}

func productsFromRows(rows []productRow) ([]*catalog.Product, error) {
	out := make([]*catalog.Product, 0, len(rows))
	for i := range rows {
		product, err := fromProductRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, nil
}

// --- escrow state ---

func toPurchaseRow(p *escrow.Purchase) *purchaseRow {
	return &purchaseRow{
		ID:              p.ID,
		Buyer:           encodeAddr(p.Buyer),
		Seller:          encodeAddr(p.Seller),
		ProductID:       p.ProductID,
		Quantity:        p.Quantity,
		State:           uint8(p.State),
		BuyerDeposit:    encodeAmount(p.BuyerDeposit),
		SellerDeposit:   encodeAmount(p.SellerDeposit),
		HeldBuyerFunds:  encodeAmount(p.HeldBuyerFunds),
		HeldSellerFunds: encodeAmount(p.HeldSellerFunds),
	}
}

func fromPurchaseRow(row *purchaseRow) (*escrow.Purchase, error) {
	buyer, err := decodeAddr(row.Buyer)
	if err != nil {
		return nil, err
	}
	seller, err := decodeAddr(row.Seller)
	if err != nil {
		return nil, err
	}
	purchase := &escrow.Purchase{
		ID:        row.ID,
		Buyer:     buyer,
		Seller:    seller,
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		State:     escrow.PurchaseState(row.State),
	}
	if purchase.BuyerDeposit, err = decodeAmount(row.BuyerDeposit); err != nil {
		return nil, err
	}
	if purchase.SellerDeposit, err = decodeAmount(row.SellerDeposit); err != nil {
		return nil, err
	}
	if purchase.HeldBuyerFunds, err = decodeAmount(row.HeldBuyerFunds); err != nil {
		return nil, err
	}
	if purchase.HeldSellerFunds, err = decodeAmount(row.HeldSellerFunds); err != nil {
		return nil, err
	}
	return purchase, nil
}

// PurchaseAppend stores a purchase under the next sequence value. The counter
// row guarantees ids survive deletions.
func (s *Store) PurchaseAppend(p *escrow.Purchase) (uint64, error) {
	if p == nil {
		return 0, fmt.Errorf("storage: nil purchase")
	}
	var id uint64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var counter counterRow
		err := tx.First(&counter, "name = ?", purchaseSeqCounter).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			counter = counterRow{Name: purchaseSeqCounter, Value: 0}
		case err != nil:
			return err
		}
		counter.Value++
		if err := tx.Save(&counter).Error; err != nil {
			return err
		}
		row := toPurchaseRow(p)
		row.ID = counter.Value
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		id = row.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: insert purchase: %w", err)
	}
	return id, nil
}

// PurchaseGet returns the purchase stored under the id, when present.
func (s *Store) PurchaseGet(id uint64) (*escrow.Purchase, bool) {
	var row purchaseRow
	if err := s.db.First(&row, "id = ?", id).Error; err != nil {
		return nil, false
	}
	purchase, err := fromPurchaseRow(&row)
	if err != nil {
		return nil, false
	}
	return purchase, true
}

// PurchasePut overwrites the purchase stored under its id.
func (s *Store) PurchasePut(p *escrow.Purchase) error {
	if p == nil || p.ID == 0 {
		return fmt.Errorf("storage: purchase id required")
	}
	row := toPurchaseRow(p)
	result := s.db.Model(&purchaseRow{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"buyer":             row.Buyer,
		"seller":            row.Seller,
		"product_id":        row.ProductID,
		"quantity":          row.Quantity,
		"state":             row.State,
		"buyer_deposit":     row.BuyerDeposit,
		"seller_deposit":    row.SellerDeposit,
		"held_buyer_funds":  row.HeldBuyerFunds,
		"held_seller_funds": row.HeldSellerFunds,
	})
	if result.Error != nil {
		return fmt.Errorf("storage: update purchase %d: %w", p.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("storage: purchase %d does not exist", p.ID)
	}
	return nil
}

// PurchaseDelete removes a purchase row; the sequence counter is untouched so
// the id is never reused.
func (s *Store) PurchaseDelete(id uint64) error {
	result := s.db.Delete(&purchaseRow{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("storage: delete purchase %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("storage: purchase %d does not exist", id)
	}
	return nil
}

// PurchasesAll returns every live purchase in ascending id order.
func (s *Store) PurchasesAll() ([]*escrow.Purchase, error) {
	var rows []purchaseRow
	if err := s.db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: list purchases: %w", err)
	}
	out := make([]*escrow.Purchase, 0, len(rows))
	for i := range rows {
		purchase, err := fromPurchaseRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, purchase)
	}
	return out, nil
}

// --- account state ---

// GetAccount returns the account stored under the address; a never-seen
// address yields a zero-balance account.
func (s *Store) GetAccount(addr [20]byte) (*types.Account, error) {
	var row accountRow
	err := s.db.First(&row, "address = ?", encodeAddr(addr)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load account: %w", err)
	}
	balance, err := decodeAmount(row.Balance)
	if err != nil {
		return nil, err
	}
	return &types.Account{Nonce: row.Nonce, Balance: balance}, nil
}

// PutAccount overwrites the account stored under the address.
func (s *Store) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("storage: nil account")
	}
	row := accountRow{
		Address: encodeAddr(addr),
		Nonce:   account.Nonce,
		Balance: encodeAmount(account.Balance),
	}
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("storage: save account: %w", err)
	}
	return nil
}

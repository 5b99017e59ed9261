package catalog

import (
	"fmt"
	"math/big"
	"strings"
)

// Product is a catalog listing. Records are immutable after creation: the
// engine never updates or deletes them, and ids are assigned sequentially
// starting at 1.
type Product struct {
	ID          uint64
	Seller      [20]byte
	Name        string
	Description string
	Image       string
	Category    string
	Price       *big.Int
}

// Clone returns a deep copy of the product so callers can safely mutate the
// copy without affecting the stored instance.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Price != nil {
		clone.Price = new(big.Int).Set(p.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// SanitizeProduct validates and normalises the supplied listing, returning a
// cloned instance with a trimmed name and a non-nil price. A zero price is
// accepted; a negative one is not.
func SanitizeProduct(p *Product) (*Product, error) {
	if p == nil {
		return nil, fmt.Errorf("nil product")
	}
	clone := p.Clone()
	clone.Name = strings.TrimSpace(clone.Name)
	if clone.Name == "" {
		return nil, fmt.Errorf("product name required")
	}
	if clone.Price.Sign() < 0 {
		return nil, fmt.Errorf("product price must be non-negative")
	}
	return clone, nil
}

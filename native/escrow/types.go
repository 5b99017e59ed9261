package escrow

import (
	"fmt"
	"math/big"
)

// PurchaseState represents the lifecycle states of a purchase managed by the
// escrow engine. The graph is strictly monotonic: Interested -> Created ->
// Locked -> Released -> Complete, with Inactive absorbing the two abort
// branches. Interested is the sole initial state; Complete and Inactive are
// terminal.
type PurchaseState uint8

const (
	StateInterested PurchaseState = iota + 1
	StateCreated
	StateLocked
	StateReleased
	StateComplete
	StateInactive
)

// Deposit multipliers, fixed at purchase creation from the product price in
// effect at that time. The buyer over-collateralises at 3x and the seller at
// 2x, so a completed sale nets the seller exactly one unit price per item.
const (
	buyerDepositMultiplier  = 3
	sellerDepositMultiplier = 2
)

// Valid reports whether the state value is within the supported range.
func (s PurchaseState) Valid() bool {
	switch s {
	case StateInterested, StateCreated, StateLocked, StateReleased, StateComplete, StateInactive:
		return true
	default:
		return false
	}
}

func (s PurchaseState) String() string {
	switch s {
	case StateInterested:
		return "interested"
	case StateCreated:
		return "created"
	case StateLocked:
		return "locked"
	case StateReleased:
		return "released"
	case StateComplete:
		return "complete"
	case StateInactive:
		return "inactive"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Terminal reports whether no further transition leaves the state.
func (s PurchaseState) Terminal() bool {
	return s == StateComplete || s == StateInactive
}

// Purchase captures a single escrowed sale between a buyer and a seller. The
// required deposits are computed once, at creation; the held fields track the
// funds currently in engine custody for each leg.
type Purchase struct {
	ID              uint64
	Buyer           [20]byte
	Seller          [20]byte
	ProductID       uint64
	Quantity        uint64
	State           PurchaseState
	BuyerDeposit    *big.Int
	SellerDeposit   *big.Int
	HeldBuyerFunds  *big.Int
	HeldSellerFunds *big.Int
}

// Clone returns a deep copy of the purchase so callers can safely mutate the
// copy without affecting the stored instance.
func (p *Purchase) Clone() *Purchase {
	if p == nil {
		return nil
	}
	clone := *p
	clone.BuyerDeposit = cloneBigInt(p.BuyerDeposit)
	clone.SellerDeposit = cloneBigInt(p.SellerDeposit)
	clone.HeldBuyerFunds = cloneBigInt(p.HeldBuyerFunds)
	clone.HeldSellerFunds = cloneBigInt(p.HeldSellerFunds)
	return &clone
}

// SanitizePurchase validates the supplied record, returning a cloned instance
// with non-nil amount fields. The function does not mutate the original value.
func SanitizePurchase(p *Purchase) (*Purchase, error) {
	if p == nil {
		return nil, fmt.Errorf("nil purchase")
	}
	clone := p.Clone()
	if !clone.State.Valid() {
		return nil, fmt.Errorf("invalid purchase state: %d", clone.State)
	}
	if clone.Quantity == 0 {
		return nil, fmt.Errorf("purchase quantity must be at least one")
	}
	if clone.Buyer == clone.Seller {
		return nil, fmt.Errorf("purchase buyer and seller must differ")
	}
	for _, amount := range []*big.Int{clone.BuyerDeposit, clone.SellerDeposit, clone.HeldBuyerFunds, clone.HeldSellerFunds} {
		if amount.Sign() < 0 {
			return nil, fmt.Errorf("purchase amounts must be non-negative")
		}
	}
	return clone, nil
}

// BuyerDepositFor computes the buyer collateral requirement for the given unit
// price and quantity.
func BuyerDepositFor(price *big.Int, quantity uint64) *big.Int {
	return depositFor(price, quantity, buyerDepositMultiplier)
}

// SellerDepositFor computes the seller collateral requirement for the given
// unit price and quantity.
func SellerDepositFor(price *big.Int, quantity uint64) *big.Int {
	return depositFor(price, quantity, sellerDepositMultiplier)
}

func depositFor(price *big.Int, quantity uint64, multiplier int64) *big.Int {
	if price == nil {
		return big.NewInt(0)
	}
	deposit := new(big.Int).Mul(price, new(big.Int).SetUint64(quantity))
	return deposit.Mul(deposit, big.NewInt(multiplier))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

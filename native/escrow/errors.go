package escrow

import "errors"

// The engine surfaces a distinct, named error per rejected condition so
// callers can programmatically distinguish wrong state from wrong amount from
// wrong caller. Every error is detected before any mutation; a failed call
// leaves the purchase and fund custody untouched.
var (
	// ErrPurchaseNotFound is returned for an unknown or already-discarded
	// purchase id.
	ErrPurchaseNotFound = errors.New("escrow: purchase not found")

	// ErrOnlyBuyer rejects a buyer-gated transition attempted by anyone but
	// the recorded buyer.
	ErrOnlyBuyer = errors.New("escrow: caller must be the purchase buyer")

	// ErrOnlySeller rejects a seller-gated transition attempted by anyone but
	// the recorded seller.
	ErrOnlySeller = errors.New("escrow: caller must be the purchase seller")

	// ErrNotOwner rejects the privileged aggregate queries for any caller
	// other than the engine owner fixed at construction.
	ErrNotOwner = errors.New("escrow: caller is not the engine owner")

	// ErrInvalidStateTransition rejects an operation attempted outside its
	// required source state.
	ErrInvalidStateTransition = errors.New("escrow: invalid state transition")

	// ErrDepositMismatch rejects any tendered amount other than the exact
	// requirement. Overpayment is rejected the same as underpayment; there is
	// no implicit refund of excess.
	ErrDepositMismatch = errors.New("escrow: deposit amount mismatch")

	// ErrSelfPurchaseForbidden rejects purchase creation when the buyer is
	// the product's seller.
	ErrSelfPurchaseForbidden = errors.New("escrow: seller cannot purchase own product")

	// ErrInvalidQuantity rejects purchase creation with a zero quantity.
	ErrInvalidQuantity = errors.New("escrow: quantity must be at least one")

	// ErrVaultParticipant rejects purchase creation when the buyer or the
	// product's seller is the custody vault itself; the vault holding a side
	// of a purchase would let deposits cancel against custody.
	ErrVaultParticipant = errors.New("escrow: vault account cannot participate in a purchase")
)

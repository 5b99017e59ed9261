package escrow

import (
	"encoding/hex"
	"strconv"

	"escrowmarket/core/types"
)

const (
	EventTypePurchaseCreated      = "escrow.purchase.created"
	EventTypePurchaseAcknowledged = "escrow.purchase.acknowledged"
	EventTypePurchaseDiscarded    = "escrow.purchase.discarded"
	EventTypePurchaseAborted      = "escrow.purchase.aborted"
	EventTypePurchaseConfirmed    = "escrow.purchase.confirmed"
	EventTypePurchaseReleased     = "escrow.purchase.released"
	EventTypePurchaseCompleted    = "escrow.purchase.completed"
)

// NewPurchaseCreatedEvent returns the canonical event payload for a newly
// created purchase.
func NewPurchaseCreatedEvent(p *Purchase) *types.Event {
	return newPurchaseEvent(EventTypePurchaseCreated, p)
}

// NewPurchaseAcknowledgedEvent returns the payload emitted when the seller
// deposits collateral and acknowledges the purchase.
func NewPurchaseAcknowledgedEvent(p *Purchase) *types.Event {
	return newPurchaseEvent(EventTypePurchaseAcknowledged, p)
}

// NewPurchaseDiscardedEvent returns the payload emitted when the buyer
// discards an unacknowledged purchase.
func NewPurchaseDiscardedEvent(p *Purchase) *types.Event {
	return newPurchaseEvent(EventTypePurchaseDiscarded, p)
}

// NewPurchaseAbortedEvent returns the payload emitted when the seller aborts
// the purchase, before or after acknowledgment.
func NewPurchaseAbortedEvent(p *Purchase) *types.Event {
	return newPurchaseEvent(EventTypePurchaseAborted, p)
}

// NewPurchaseConfirmedEvent returns the payload emitted when the buyer
// deposits collateral and locks the purchase.
func NewPurchaseConfirmedEvent(p *Purchase) *types.Event {
	return newPurchaseEvent(EventTypePurchaseConfirmed, p)
}

// NewPurchaseReleasedEvent returns the payload emitted when the buyer confirms
// receipt and the seller's deposit is reimbursed.
func NewPurchaseReleasedEvent(p *Purchase) *types.Event {
	return newPurchaseEvent(EventTypePurchaseReleased, p)
}

// NewPurchaseCompletedEvent returns the payload emitted on final settlement.
func NewPurchaseCompletedEvent(p *Purchase) *types.Event {
	return newPurchaseEvent(EventTypePurchaseCompleted, p)
}

func newPurchaseEvent(eventType string, p *Purchase) *types.Event {
	attrs := make(map[string]string)
	if p == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized := p.Clone()
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["buyer"] = hex.EncodeToString(sanitized.Buyer[:])
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["productId"] = strconv.FormatUint(sanitized.ProductID, 10)
	attrs["quantity"] = strconv.FormatUint(sanitized.Quantity, 10)
	attrs["state"] = sanitized.State.String()
	attrs["buyerDeposit"] = sanitized.BuyerDeposit.String()
	attrs["sellerDeposit"] = sanitized.SellerDeposit.String()
	attrs["heldBuyerFunds"] = sanitized.HeldBuyerFunds.String()
	attrs["heldSellerFunds"] = sanitized.HeldSellerFunds.String()
	return &types.Event{Type: eventType, Attributes: attrs}
}

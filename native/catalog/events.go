package catalog

import (
	"encoding/hex"
	"strconv"

	"escrowmarket/core/types"
)

const (
	// EventTypeProductCreated is emitted once per listing, at creation.
	EventTypeProductCreated = "catalog.created"
)

// NewProductCreatedEvent returns the canonical event payload for a new
// listing.
func NewProductCreatedEvent(p *Product) *types.Event {
	attrs := make(map[string]string)
	if p == nil {
		return &types.Event{Type: EventTypeProductCreated, Attributes: attrs}
	}
	sanitized := p.Clone()
	attrs["id"] = strconv.FormatUint(sanitized.ID, 10)
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["name"] = sanitized.Name
	attrs["category"] = sanitized.Category
	attrs["price"] = sanitized.Price.String()
	return &types.Event{Type: EventTypeProductCreated, Attributes: attrs}
}

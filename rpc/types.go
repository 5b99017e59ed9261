package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"escrowmarket/crypto"
	"escrowmarket/native/catalog"
	"escrowmarket/native/escrow"
)

// productJSON is the wire shape of a catalog product. Amounts travel as
// decimal strings so callers never lose precision to float parsing.
type productJSON struct {
	ID          uint64 `json:"id"`
	Seller      string `json:"seller"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Category    string `json:"category,omitempty"`
	Price       string `json:"price"`
}

func productToJSON(p *catalog.Product) *productJSON {
	if p == nil {
		return nil
	}
	return &productJSON{
		ID:          p.ID,
		Seller:      crypto.NewAddress(crypto.MktPrefix, p.Seller).String(),
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Category:    p.Category,
		Price:       amountString(p.Price),
	}
}

type purchaseJSON struct {
	ID              uint64 `json:"id"`
	Buyer           string `json:"buyer"`
	Seller          string `json:"seller"`
	ProductID       uint64 `json:"productId"`
	Quantity        uint64 `json:"quantity"`
	State           string `json:"state"`
	BuyerDeposit    string `json:"buyerDeposit"`
	SellerDeposit   string `json:"sellerDeposit"`
	HeldBuyerFunds  string `json:"heldBuyerFunds"`
	HeldSellerFunds string `json:"heldSellerFunds"`
}

func purchaseToJSON(p *escrow.Purchase) *purchaseJSON {
	if p == nil {
		return nil
	}
	return &purchaseJSON{
		ID:              p.ID,
		Buyer:           crypto.NewAddress(crypto.MktPrefix, p.Buyer).String(),
		Seller:          crypto.NewAddress(crypto.MktPrefix, p.Seller).String(),
		ProductID:       p.ProductID,
		Quantity:        p.Quantity,
		State:           p.State.String(),
		BuyerDeposit:    amountString(p.BuyerDeposit),
		SellerDeposit:   amountString(p.SellerDeposit),
		HeldBuyerFunds:  amountString(p.HeldBuyerFunds),
		HeldSellerFunds: amountString(p.HeldSellerFunds),
	}
}

func purchasesToJSON(list []*escrow.Purchase) []*purchaseJSON {
	out := make([]*purchaseJSON, 0, len(list))
	for _, p := range list {
		out = append(out, purchaseToJSON(p))
	}
	return out
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// parseAddress decodes a bech32 identity from RPC params into raw bytes.
func parseAddress(field, value string) ([20]byte, *RPCError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("%s: %v", field, err)}
	}
	return addr.Raw(), nil
}

// parseAmount decodes a decimal string amount. Empty means zero.
func parseAmount(field, value string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("%s: invalid decimal amount %q", field, value)}
	}
	return amount, nil
}

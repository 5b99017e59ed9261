package rpc

import "escrowmarket/native/escrow"

type expressInterestParams struct {
	Buyer     string `json:"buyer"`
	ProductID uint64 `json:"productId"`
	Quantity  uint64 `json:"quantity"`
}

func (s *Server) handleExpressInterest(req *RPCRequest) (interface{}, *RPCError) {
	var params expressInterestParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	buyer, rpcErr := parseAddress("buyer", params.Buyer)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.escrow.ExpressInterest(params.ProductID, params.Quantity, buyer)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]uint64{"id": id}, nil
}

type purchaseActionParams struct {
	PurchaseID uint64 `json:"purchaseId"`
	Caller     string `json:"caller"`
	// Deposit is only consumed by the funding transitions.
	Deposit string `json:"deposit,omitempty"`
}

func (s *Server) decodeAction(req *RPCRequest) (uint64, [20]byte, string, *RPCError) {
	var params purchaseActionParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return 0, [20]byte{}, "", rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return 0, [20]byte{}, "", rpcErr
	}
	return params.PurchaseID, caller, params.Deposit, nil
}

func (s *Server) handleSellerAcknowledge(req *RPCRequest) (interface{}, *RPCError) {
	id, caller, depositStr, rpcErr := s.decodeAction(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	deposit, rpcErr := parseAmount("deposit", depositStr)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.SellerAcknowledge(id, caller, deposit); err != nil {
		return nil, errorFor(err)
	}
	return s.purchaseResult(id)
}

func (s *Server) handleBuyerDiscard(req *RPCRequest) (interface{}, *RPCError) {
	id, caller, _, rpcErr := s.decodeAction(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.BuyerDiscard(id, caller); err != nil {
		return nil, errorFor(err)
	}
	return map[string]bool{"discarded": true}, nil
}

// handleSellerAbort routes to the pre- or post-acknowledgement abort based
// on the purchase's current state; the engine still enforces role and
// transition legality.
func (s *Server) handleSellerAbort(req *RPCRequest) (interface{}, *RPCError) {
	id, caller, _, rpcErr := s.decodeAction(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	purchase, err := s.escrow.GetPurchase(id)
	if err != nil {
		return nil, errorFor(err)
	}
	if purchase.State == escrow.StateCreated {
		err = s.escrow.SellerAbortAfterAck(id, caller)
	} else {
		err = s.escrow.SellerAbortBeforeAck(id, caller)
	}
	if err != nil {
		return nil, errorFor(err)
	}
	return s.purchaseResult(id)
}

func (s *Server) handleBuyerConfirm(req *RPCRequest) (interface{}, *RPCError) {
	id, caller, depositStr, rpcErr := s.decodeAction(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	deposit, rpcErr := parseAmount("deposit", depositStr)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.BuyerConfirm(id, caller, deposit); err != nil {
		return nil, errorFor(err)
	}
	return s.purchaseResult(id)
}

func (s *Server) handleBuyerConfirmReceipt(req *RPCRequest) (interface{}, *RPCError) {
	id, caller, _, rpcErr := s.decodeAction(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.BuyerConfirmReceipt(id, caller); err != nil {
		return nil, errorFor(err)
	}
	return s.purchaseResult(id)
}

func (s *Server) handleSellerReclaim(req *RPCRequest) (interface{}, *RPCError) {
	id, caller, _, rpcErr := s.decodeAction(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.SellerReclaim(id, caller); err != nil {
		return nil, errorFor(err)
	}
	return s.purchaseResult(id)
}

func (s *Server) purchaseResult(id uint64) (interface{}, *RPCError) {
	purchase, err := s.escrow.GetPurchase(id)
	if err != nil {
		return nil, errorFor(err)
	}
	return purchaseToJSON(purchase), nil
}

type purchaseIDParams struct {
	PurchaseID uint64 `json:"purchaseId"`
}

func (s *Server) handleGetPurchase(req *RPCRequest) (interface{}, *RPCError) {
	var params purchaseIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	return s.purchaseResult(params.PurchaseID)
}

type buyerParams struct {
	Buyer string `json:"buyer"`
}

func (s *Server) handlePurchasesByBuyer(req *RPCRequest) (interface{}, *RPCError) {
	var params buyerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	buyer, rpcErr := parseAddress("buyer", params.Buyer)
	if rpcErr != nil {
		return nil, rpcErr
	}
	list, err := s.escrow.PurchasesByBuyer(buyer)
	if err != nil {
		return nil, errorFor(err)
	}
	return purchasesToJSON(list), nil
}

func (s *Server) handlePurchasesBySeller(req *RPCRequest) (interface{}, *RPCError) {
	var params sellerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	seller, rpcErr := parseAddress("seller", params.Seller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	list, err := s.escrow.PurchasesBySeller(seller)
	if err != nil {
		return nil, errorFor(err)
	}
	return purchasesToJSON(list), nil
}

type aggregateParams struct {
	Caller string `json:"caller"`
	Party  string `json:"party"`
}

func (s *Server) handleRevenue(req *RPCRequest) (interface{}, *RPCError) {
	caller, party, rpcErr := s.decodeAggregate(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	total, err := s.escrow.TotalRevenueForSeller(caller, party)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]string{"total": amountString(total)}, nil
}

func (s *Server) handleSpending(req *RPCRequest) (interface{}, *RPCError) {
	caller, party, rpcErr := s.decodeAggregate(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	total, err := s.escrow.TotalSpendingForBuyer(caller, party)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]string{"total": amountString(total)}, nil
}

func (s *Server) decodeAggregate(req *RPCRequest) ([20]byte, [20]byte, *RPCError) {
	var params aggregateParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return [20]byte{}, [20]byte{}, rpcErr
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		return [20]byte{}, [20]byte{}, rpcErr
	}
	party, rpcErr := parseAddress("party", params.Party)
	if rpcErr != nil {
		return [20]byte{}, [20]byte{}, rpcErr
	}
	return caller, party, nil
}

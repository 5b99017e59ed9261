package rpc

type balanceParams struct {
	Address string `json:"address"`
}

func (s *Server) handleBankBalance(req *RPCRequest) (interface{}, *RPCError) {
	var params balanceParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.ledger.Balance(addr)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]string{"balance": amountString(balance)}, nil
}

type mintParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Server) handleBankMint(req *RPCRequest) (interface{}, *RPCError) {
	var params mintParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.ledger.Mint(addr, amount); err != nil {
		return nil, errorFor(err)
	}
	balance, err := s.ledger.Balance(addr)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]string{"balance": amountString(balance)}, nil
}

package rpc

type createProductParams struct {
	Seller      string `json:"seller"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

func (s *Server) handleCatalogCreate(req *RPCRequest) (interface{}, *RPCError) {
	var params createProductParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	seller, rpcErr := parseAddress("seller", params.Seller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	price, rpcErr := parseAmount("price", params.Price)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.catalog.CreateProduct(seller, params.Name, price, params.Description, params.Image, params.Category)
	if err != nil {
		return nil, errorFor(err)
	}
	return map[string]uint64{"id": id}, nil
}

type productIDParams struct {
	ID uint64 `json:"id"`
}

func (s *Server) handleCatalogGet(req *RPCRequest) (interface{}, *RPCError) {
	var params productIDParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	product, err := s.catalog.GetProduct(params.ID)
	if err != nil {
		return nil, errorFor(err)
	}
	return productToJSON(product), nil
}

func (s *Server) handleCatalogList(req *RPCRequest) (interface{}, *RPCError) {
	if len(req.Params) != 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "catalog_list takes no params"}
	}
	products, err := s.catalog.ListProducts()
	if err != nil {
		return nil, errorFor(err)
	}
	out := make([]*productJSON, 0, len(products))
	for _, p := range products {
		out = append(out, productToJSON(p))
	}
	return out, nil
}

type sellerParams struct {
	Seller string `json:"seller"`
}

func (s *Server) handleCatalogListBySeller(req *RPCRequest) (interface{}, *RPCError) {
	var params sellerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	seller, rpcErr := parseAddress("seller", params.Seller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	products, err := s.catalog.ListBySeller(seller)
	if err != nil {
		return nil, errorFor(err)
	}
	out := make([]*productJSON, 0, len(products))
	for _, p := range products {
		out = append(out, productToJSON(p))
	}
	return out, nil
}

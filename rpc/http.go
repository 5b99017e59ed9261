package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrowmarket/native/bank"
	"escrowmarket/native/catalog"
	nativecommon "escrowmarket/native/common"
	"escrowmarket/native/escrow"
	"escrowmarket/observability/metrics"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001

	codeNotFound        = -32020
	codeForbidden       = -32021
	codeInvalidState    = -32022
	codeDepositMismatch = -32023
	codeSelfPurchase    = -32024
	codeModulePaused    = -32025
	codeQuotaExceeded   = -32026
)

const maxRequestBytes = 1 << 20

// RPCRequest is a JSON-RPC 2.0 request envelope. Params carries
// positional parameters; every method here takes at most one object.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ServerConfig carries the knobs the HTTP layer needs beyond its engines.
// AuthToken, when non-empty, gates every mutating method behind a static
// bearer token.
type ServerConfig struct {
	AuthToken string

	// Quota bounds mutating calls per client address per window. A zero
	// value disables rate limiting.
	Quota nativecommon.Quota
}

// Server exposes the catalog, escrow and bank engines over JSON-RPC.
// Mutating methods are serialised by mu so the engines can stay
// lock-free.
type Server struct {
	catalog *catalog.Engine
	escrow  *escrow.Engine
	ledger  *bank.Ledger

	cfg ServerConfig
	hub *EventHub
	log *slog.Logger

	mu    sync.Mutex
	quota map[string]nativecommon.QuotaNow
}

func NewServer(cat *catalog.Engine, esc *escrow.Engine, ledger *bank.Ledger, hub *EventHub, cfg ServerConfig) *Server {
	if cfg.Quota.WindowSeconds == 0 {
		cfg.Quota.WindowSeconds = 60
	}
	return &Server{
		catalog: cat,
		escrow:  esc,
		ledger:  ledger,
		cfg:     cfg,
		hub:     hub,
		log:     slog.Default().With("component", "rpc"),
		quota:   make(map[string]nativecommon.QuotaNow),
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint at /, a
// liveness probe, Prometheus metrics and the websocket event stream.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		r.Get("/ws/events", s.hub.ServeHTTP)
	}
	return r
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request body", nil)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		return
	}
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "jsonrpc must be \"2.0\" and method must be set", nil)
		return
	}

	log := s.log.With("request_id", reqID, "method", req.Method)
	metrics.RPC().ObserveRequest(req.Method)

	if s.mutating(req.Method) {
		if !s.authorized(r) {
			log.Warn("rejected unauthorized mutation")
			metrics.RPC().ObserveError(req.Method, codeUnauthorized)
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "missing or invalid bearer token", nil)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.consumeQuota(clientKey(r)); err != nil {
			log.Warn("rejected rate-limited mutation")
			metrics.RPC().ObserveError(req.Method, codeQuotaExceeded)
			writeError(w, http.StatusTooManyRequests, req.ID, codeQuotaExceeded, err.Error(), nil)
			return
		}
	}

	result, rpcErr := s.dispatch(&req)
	if rpcErr != nil {
		log.Info("rpc error", "code", rpcErr.Code, "message", rpcErr.Message)
		metrics.RPC().ObserveError(req.Method, rpcErr.Code)
		writeError(w, statusFor(rpcErr.Code), req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(req *RPCRequest) (interface{}, *RPCError) {
	switch req.Method {
	case "catalog_create":
		return s.handleCatalogCreate(req)
	case "catalog_get":
		return s.handleCatalogGet(req)
	case "catalog_list":
		return s.handleCatalogList(req)
	case "catalog_listBySeller":
		return s.handleCatalogListBySeller(req)
	case "escrow_expressInterest":
		return s.handleExpressInterest(req)
	case "escrow_sellerAcknowledge":
		return s.handleSellerAcknowledge(req)
	case "escrow_buyerDiscard":
		return s.handleBuyerDiscard(req)
	case "escrow_sellerAbort":
		return s.handleSellerAbort(req)
	case "escrow_buyerConfirm":
		return s.handleBuyerConfirm(req)
	case "escrow_buyerConfirmReceipt":
		return s.handleBuyerConfirmReceipt(req)
	case "escrow_sellerReclaim":
		return s.handleSellerReclaim(req)
	case "escrow_getPurchase":
		return s.handleGetPurchase(req)
	case "escrow_purchasesByBuyer":
		return s.handlePurchasesByBuyer(req)
	case "escrow_purchasesBySeller":
		return s.handlePurchasesBySeller(req)
	case "escrow_revenue":
		return s.handleRevenue(req)
	case "escrow_spending":
		return s.handleSpending(req)
	case "bank_balance":
		return s.handleBankBalance(req)
	case "bank_mint":
		return s.handleBankMint(req)
	default:
		return nil, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

func (s *Server) mutating(method string) bool {
	switch method {
	case "catalog_create",
		"escrow_expressInterest",
		"escrow_sellerAcknowledge",
		"escrow_buyerDiscard",
		"escrow_sellerAbort",
		"escrow_buyerConfirm",
		"escrow_buyerConfirmReceipt",
		"escrow_sellerReclaim",
		"bank_mint":
		return true
	}
	return false
}

// consumeQuota charges one mutation against the caller's window. The caller
// must hold s.mu.
func (s *Server) consumeQuota(client string) error {
	if s.cfg.Quota.MaxRequestsPerWindow == 0 {
		return nil
	}
	window := uint64(time.Now().Unix()) / uint64(s.cfg.Quota.WindowSeconds)
	next, err := nativecommon.CheckQuota(s.cfg.Quota, window, s.quota[client], 1)
	if err != nil {
		return err
	}
	s.quota[client] = next
	return nil
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1
}

func decodeParams(req *RPCRequest, dst interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	dec := json.NewDecoder(strings.NewReader(string(req.Params[0])))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

// errorFor maps the engines' error taxonomy onto JSON-RPC codes.
func errorFor(err error) *RPCError {
	switch {
	case errors.Is(err, escrow.ErrPurchaseNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return &RPCError{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, escrow.ErrOnlyBuyer),
		errors.Is(err, escrow.ErrOnlySeller),
		errors.Is(err, escrow.ErrNotOwner):
		return &RPCError{Code: codeForbidden, Message: err.Error()}
	case errors.Is(err, escrow.ErrInvalidStateTransition):
		return &RPCError{Code: codeInvalidState, Message: err.Error()}
	case errors.Is(err, escrow.ErrDepositMismatch):
		return &RPCError{Code: codeDepositMismatch, Message: err.Error()}
	case errors.Is(err, escrow.ErrSelfPurchaseForbidden):
		return &RPCError{Code: codeSelfPurchase, Message: err.Error()}
	case errors.Is(err, nativecommon.ErrModulePaused):
		return &RPCError{Code: codeModulePaused, Message: err.Error()}
	case errors.Is(err, escrow.ErrInvalidQuantity),
		errors.Is(err, escrow.ErrVaultParticipant),
		errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, bank.ErrNegativeAmount):
		return &RPCError{Code: codeInvalidParams, Message: err.Error()}
	default:
		return &RPCError{Code: codeServerError, Message: err.Error()}
	}
}

func statusFor(code int) int {
	switch code {
	case codeUnauthorized:
		return http.StatusUnauthorized
	case codeNotFound:
		return http.StatusNotFound
	case codeForbidden:
		return http.StatusForbidden
	case codeMethodNotFound:
		return http.StatusNotFound
	case codeInvalidParams, codeInvalidRequest, codeParseError,
		codeInvalidState, codeDepositMismatch, codeSelfPurchase:
		return http.StatusBadRequest
	case codeModulePaused:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

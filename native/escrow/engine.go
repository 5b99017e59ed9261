package escrow

import (
	"errors"
	"fmt"
	"math/big"

	"escrowmarket/core/events"
	"escrowmarket/core/types"
	"escrowmarket/native/catalog"
	nativecommon "escrowmarket/native/common"
	"escrowmarket/observability/metrics"
)

var (
	errNilState   = errors.New("escrow engine: state not configured")
	errNilCatalog = errors.New("escrow engine: catalog not configured")
	errNilLedger  = errors.New("escrow engine: ledger not configured")
)

const escrowModuleName = "escrow"

type engineState interface {
	PurchaseAppend(*Purchase) (uint64, error)
	PurchaseGet(id uint64) (*Purchase, bool)
	PurchasePut(*Purchase) error
	PurchaseDelete(id uint64) error
	PurchasesAll() ([]*Purchase, error)
}

// ProductSource resolves catalog listings. The catalog engine satisfies it;
// tests can substitute a fixture.
type ProductSource interface {
	GetProduct(id uint64) (*catalog.Product, error)
}

// Ledger executes the fund movements the engine instructs. Transitions compute
// a payout (recipient, amount) and hand it to the ledger, so the state machine
// can be tested without a real transfer mechanism.
type Ledger interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine owns the purchase ledger. It creates purchase records from catalog
// lookups, validates deposits, advances or aborts purchase state and disburses
// held funds. Custody lives in the vault account; funds move exactly once per
// transition because the source state a payout requires is no longer current
// after the first successful call.
//
// The engine performs no internal locking: the surrounding environment must
// serialise calls against a given purchase id (the RPC server does so with a
// single writer lock).
type Engine struct {
	state   engineState
	catalog ProductSource
	ledger  Ledger
	emitter events.Emitter
	pauses  nativecommon.PauseView
	owner   [20]byte
	vault   [20]byte
}

// NewEngine creates an escrow engine with a no-op emitter. The owner identity
// gates the aggregate reports and is immutable after construction; the vault
// is the custody account deposits are held in.
func NewEngine(owner, vault [20]byte) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		owner:   owner,
		vault:   vault,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCatalog configures the product source used for purchase creation and the
// owner aggregates.
func (e *Engine) SetCatalog(source ProductSource) { e.catalog = source }

// SetLedger configures the fund transfer collaborator.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the operator pause view consulted before mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// Owner returns the identity allowed to run the aggregate reports.
func (e *Engine) Owner() [20]byte { return e.owner }

// Vault returns the custody account address.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.catalog == nil {
		return errNilCatalog
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) loadPurchase(id uint64) (*Purchase, error) {
	purchase, ok := e.state.PurchaseGet(id)
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	return purchase.Clone(), nil
}

// ExpressInterest creates a purchase record in state Interested for the given
// product and quantity. Both required deposits are fixed here from the
// product's current price; later price changes do not affect the record.
func (e *Engine) ExpressInterest(productID, quantity uint64, buyer [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return 0, err
	}
	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	product, err := e.catalog.GetProduct(productID)
	if err != nil {
		return 0, err
	}
	if buyer == product.Seller {
		return 0, ErrSelfPurchaseForbidden
	}
	if buyer == e.vault || product.Seller == e.vault {
		return 0, ErrVaultParticipant
	}
	purchase := &Purchase{
		Buyer:           buyer,
		Seller:          product.Seller,
		ProductID:       productID,
		Quantity:        quantity,
		State:           StateInterested,
		BuyerDeposit:    BuyerDepositFor(product.Price, quantity),
		SellerDeposit:   SellerDepositFor(product.Price, quantity),
		HeldBuyerFunds:  big.NewInt(0),
		HeldSellerFunds: big.NewInt(0),
	}
	id, err := e.state.PurchaseAppend(purchase)
	if err != nil {
		return 0, err
	}
	purchase.ID = id
	metrics.Escrow().ObserveTransition("express_interest")
	e.emit(NewPurchaseCreatedEvent(purchase))
	return id, nil
}

// SellerAcknowledge commits the seller to the purchase. The tendered deposit
// must equal the seller requirement exactly; it is pulled into the vault and
// the purchase moves from Interested to Created.
func (e *Engine) SellerAcknowledge(purchaseID uint64, caller [20]byte, deposit *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	purchase, err := e.loadPurchase(purchaseID)
	if err != nil {
		return err
	}
	if caller != purchase.Seller {
		return ErrOnlySeller
	}
	if purchase.State != StateInterested {
		return fmt.Errorf("%w: cannot acknowledge in state %s", ErrInvalidStateTransition, purchase.State)
	}
	if deposit == nil || deposit.Cmp(purchase.SellerDeposit) != 0 {
		return fmt.Errorf("%w: seller requirement is %s", ErrDepositMismatch, purchase.SellerDeposit)
	}
	if err := e.ledger.Transfer(purchase.Seller, e.vault, deposit); err != nil {
		return err
	}
	purchase.HeldSellerFunds = cloneBigInt(deposit)
	purchase.State = StateCreated
	if err := e.state.PurchasePut(purchase); err != nil {
		// Undo the deposit pull so a store failure leaves custody unchanged.
		if rbErr := e.ledger.Transfer(e.vault, purchase.Seller, deposit); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	metrics.Escrow().ObserveTransition("seller_acknowledge")
	metrics.Escrow().AddHeldFunds(deposit)
	e.emit(NewPurchaseAcknowledgedEvent(purchase))
	return nil
}

// BuyerDiscard deletes a purchase the seller has not yet acknowledged. No
// funds were ever held, so there is nothing to return. The id is never reused.
func (e *Engine) BuyerDiscard(purchaseID uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	purchase, err := e.loadPurchase(purchaseID)
	if err != nil {
		return err
	}
	if caller != purchase.Buyer {
		return ErrOnlyBuyer
	}
	if purchase.State != StateInterested {
		return fmt.Errorf("%w: cannot discard in state %s", ErrInvalidStateTransition, purchase.State)
	}
	if err := e.state.PurchaseDelete(purchaseID); err != nil {
		return err
	}
	metrics.Escrow().ObserveTransition("buyer_discard")
	e.emit(NewPurchaseDiscardedEvent(purchase))
	return nil
}

// SellerAbortBeforeAck moves an unacknowledged purchase to Inactive. The
// seller never deposited, so nothing is returned.
func (e *Engine) SellerAbortBeforeAck(purchaseID uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	purchase, err := e.loadPurchase(purchaseID)
	if err != nil {
		return err
	}
	if caller != purchase.Seller {
		return ErrOnlySeller
	}
	if purchase.State != StateInterested {
		return fmt.Errorf("%w: cannot abort in state %s", ErrInvalidStateTransition, purchase.State)
	}
	purchase.State = StateInactive
	if err := e.state.PurchasePut(purchase); err != nil {
		return err
	}
	metrics.Escrow().ObserveTransition("seller_abort_before_ack")
	e.emit(NewPurchaseAbortedEvent(purchase))
	return nil
}

// SellerAbortAfterAck aborts an acknowledged purchase before the buyer has
// confirmed: the seller's held deposit is paid back out of the vault and the
// purchase becomes Inactive.
func (e *Engine) SellerAbortAfterAck(purchaseID uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	purchase, err := e.loadPurchase(purchaseID)
	if err != nil {
		return err
	}
	if caller != purchase.Seller {
		return ErrOnlySeller
	}
	if purchase.State != StateCreated {
		return fmt.Errorf("%w: cannot abort in state %s", ErrInvalidStateTransition, purchase.State)
	}
	refund := cloneBigInt(purchase.HeldSellerFunds)
	if err := e.ledger.Transfer(e.vault, purchase.Seller, refund); err != nil {
		return err
	}
	purchase.HeldSellerFunds = big.NewInt(0)
	purchase.State = StateInactive
	if err := e.state.PurchasePut(purchase); err != nil {
		if rbErr := e.ledger.Transfer(purchase.Seller, e.vault, refund); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	metrics.Escrow().ObserveTransition("seller_abort_after_ack")
	metrics.Escrow().SubHeldFunds(refund)
	e.emit(NewPurchaseAbortedEvent(purchase))
	return nil
}

// BuyerConfirm locks the purchase. The tendered deposit must equal the buyer
// requirement exactly; it joins the seller's deposit in the vault and the
// purchase moves from Created to Locked.
func (e *Engine) BuyerConfirm(purchaseID uint64, caller [20]byte, deposit *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	purchase, err := e.loadPurchase(purchaseID)
	if err != nil {
		return err
	}
	if caller != purchase.Buyer {
		return ErrOnlyBuyer
	}
	if purchase.State != StateCreated {
		return fmt.Errorf("%w: cannot confirm in state %s", ErrInvalidStateTransition, purchase.State)
	}
	if deposit == nil || deposit.Cmp(purchase.BuyerDeposit) != 0 {
		return fmt.Errorf("%w: buyer requirement is %s", ErrDepositMismatch, purchase.BuyerDeposit)
	}
	if err := e.ledger.Transfer(purchase.Buyer, e.vault, deposit); err != nil {
		return err
	}
	purchase.HeldBuyerFunds = cloneBigInt(deposit)
	purchase.State = StateLocked
	if err := e.state.PurchasePut(purchase); err != nil {
		if rbErr := e.ledger.Transfer(e.vault, purchase.Buyer, deposit); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	metrics.Escrow().ObserveTransition("buyer_confirm")
	metrics.Escrow().AddHeldFunds(deposit)
	e.emit(NewPurchaseConfirmedEvent(purchase))
	return nil
}

// BuyerConfirmReceipt records delivery. The seller's held deposit is paid out
// to the buyer (the reimbursement leg of the collateral scheme; final
// settlement happens in SellerReclaim) and the purchase moves to Released.
func (e *Engine) BuyerConfirmReceipt(purchaseID uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	purchase, err := e.loadPurchase(purchaseID)
	if err != nil {
		return err
	}
	if caller != purchase.Buyer {
		return ErrOnlyBuyer
	}
	if purchase.State != StateLocked {
		return fmt.Errorf("%w: cannot confirm receipt in state %s", ErrInvalidStateTransition, purchase.State)
	}
	payout := cloneBigInt(purchase.HeldSellerFunds)
	if err := e.ledger.Transfer(e.vault, purchase.Buyer, payout); err != nil {
		return err
	}
	purchase.HeldSellerFunds = big.NewInt(0)
	purchase.State = StateReleased
	if err := e.state.PurchasePut(purchase); err != nil {
		if rbErr := e.ledger.Transfer(purchase.Buyer, e.vault, payout); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	metrics.Escrow().ObserveTransition("buyer_confirm_receipt")
	metrics.Escrow().SubHeldFunds(payout)
	e.emit(NewPurchaseReleasedEvent(purchase))
	return nil
}

// SellerReclaim settles the purchase: the buyer's held deposit is paid out to
// the seller and the record becomes Complete, after which no transition is
// accepted.
func (e *Engine) SellerReclaim(purchaseID uint64, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, escrowModuleName); err != nil {
		return err
	}
	purchase, err := e.loadPurchase(purchaseID)
	if err != nil {
		return err
	}
	if caller != purchase.Seller {
		return ErrOnlySeller
	}
	if purchase.State != StateReleased {
		return fmt.Errorf("%w: cannot reclaim in state %s", ErrInvalidStateTransition, purchase.State)
	}
	payout := cloneBigInt(purchase.HeldBuyerFunds)
	if err := e.ledger.Transfer(e.vault, purchase.Seller, payout); err != nil {
		return err
	}
	purchase.HeldBuyerFunds = big.NewInt(0)
	purchase.State = StateComplete
	if err := e.state.PurchasePut(purchase); err != nil {
		if rbErr := e.ledger.Transfer(purchase.Seller, e.vault, payout); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	metrics.Escrow().ObserveTransition("seller_reclaim")
	metrics.Escrow().SubHeldFunds(payout)
	e.emit(NewPurchaseCompletedEvent(purchase))
	return nil
}

// GetPurchase returns the record stored under the supplied id.
func (e *Engine) GetPurchase(purchaseID uint64) (*Purchase, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadPurchase(purchaseID)
}

// PurchasesByBuyer returns every purchase whose buyer field equals the queried
// identity, in ascending id order. The filter matches by value; any caller may
// query any identity.
func (e *Engine) PurchasesByBuyer(buyer [20]byte) ([]*Purchase, error) {
	return e.filterPurchases(func(p *Purchase) bool { return p.Buyer == buyer })
}

// PurchasesBySeller returns every purchase whose seller field equals the
// queried identity, in ascending id order.
func (e *Engine) PurchasesBySeller(seller [20]byte) ([]*Purchase, error) {
	return e.filterPurchases(func(p *Purchase) bool { return p.Seller == seller })
}

func (e *Engine) filterPurchases(match func(*Purchase) bool) ([]*Purchase, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	purchases, err := e.state.PurchasesAll()
	if err != nil {
		return nil, err
	}
	out := make([]*Purchase, 0)
	for _, purchase := range purchases {
		if match(purchase) {
			out = append(out, purchase.Clone())
		}
	}
	return out, nil
}

// TotalRevenueForSeller sums quantity times the product's current catalog
// price over the seller's Complete purchases. Only the engine owner may call
// it.
func (e *Engine) TotalRevenueForSeller(caller, seller [20]byte) (*big.Int, error) {
	return e.aggregateCompleted(caller, func(p *Purchase) ([20]byte, uint64) { return p.Seller, p.ProductID }, seller)
}

// TotalSpendingForBuyer sums quantity times the product's current catalog
// price over the buyer's Complete purchases. Only the engine owner may call
// it.
func (e *Engine) TotalSpendingForBuyer(caller, buyer [20]byte) (*big.Int, error) {
	return e.aggregateCompleted(caller, func(p *Purchase) ([20]byte, uint64) { return p.Buyer, p.ProductID }, buyer)
}

func (e *Engine) aggregateCompleted(caller [20]byte, party func(*Purchase) ([20]byte, uint64), identity [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if caller != e.owner {
		return nil, ErrNotOwner
	}
	purchases, err := e.state.PurchasesAll()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, purchase := range purchases {
		if purchase.State != StateComplete {
			continue
		}
		who, productID := party(purchase)
		if who != identity {
			continue
		}
		product, err := e.catalog.GetProduct(productID)
		if err != nil {
			return nil, fmt.Errorf("escrow: aggregate over purchase %d: %w", purchase.ID, err)
		}
		lineTotal := new(big.Int).Mul(product.Price, new(big.Int).SetUint64(purchase.Quantity))
		total.Add(total, lineTotal)
	}
	return total, nil
}

package catalog

import (
	"errors"
	"fmt"
	"math/big"

	"escrowmarket/core/events"
	"escrowmarket/core/types"
	nativecommon "escrowmarket/native/common"
)

var (
	errNilState = errors.New("catalog engine: state not configured")

	// ErrProductNotFound is returned when a product id is outside the range
	// of listings created so far.
	ErrProductNotFound = errors.New("catalog: product not found")
)

const catalogModuleName = "catalog"

type engineState interface {
	ProductAppend(*Product) (uint64, error)
	ProductGet(id uint64) (*Product, bool)
	ProductCount() uint64
	ProductsBySeller(seller [20]byte) ([]*Product, error)
	ProductsAll() ([]*Product, error)
}

type catalogEvent struct {
	evt *types.Event
}

func (e catalogEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e catalogEvent) Event() *types.Event { return e.evt }

// Engine owns the product table. It is a leaf component: the escrow engine
// queries it for prices and seller identities but it never calls back out.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a catalog engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(catalogEvent{evt: event})
}

// CreateProduct stores a new listing under the next sequential id and indexes
// it under the seller. The price may be zero; the catalog does not police
// pricing.
func (e *Engine) CreateProduct(seller [20]byte, name string, price *big.Int, description, image, category string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, catalogModuleName); err != nil {
		return 0, err
	}
	product, err := SanitizeProduct(&Product{
		Seller:      seller,
		Name:        name,
		Description: description,
		Image:       image,
		Category:    category,
		Price:       price,
	})
	if err != nil {
		return 0, fmt.Errorf("catalog: %w", err)
	}
	id, err := e.state.ProductAppend(product)
	if err != nil {
		return 0, err
	}
	product.ID = id
	e.emit(NewProductCreatedEvent(product))
	return id, nil
}

// GetProduct returns the listing stored under the supplied id.
func (e *Engine) GetProduct(id uint64) (*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if id == 0 || id > e.state.ProductCount() {
		return nil, ErrProductNotFound
	}
	product, ok := e.state.ProductGet(id)
	if !ok {
		return nil, ErrProductNotFound
	}
	return product.Clone(), nil
}

// ListProducts returns every listing in creation order.
func (e *Engine) ListProducts() ([]*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	products, err := e.state.ProductsAll()
	if err != nil {
		return nil, err
	}
	return cloneProducts(products), nil
}

// ListBySeller returns the seller's listings in creation order.
func (e *Engine) ListBySeller(seller [20]byte) ([]*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	products, err := e.state.ProductsBySeller(seller)
	if err != nil {
		return nil, err
	}
	return cloneProducts(products), nil
}

func cloneProducts(products []*Product) []*Product {
	out := make([]*Product, 0, len(products))
	for _, product := range products {
		out = append(out, product.Clone())
	}
	return out
}

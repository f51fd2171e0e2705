package cartengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/batgear/batstore-backend/internal/pricing"
	"github.com/shopspring/decimal"
)

// Engine holds one shopper's cart. It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	store  Store
	key    string
	items  []CartItem
	index  map[uint]int
	ledger map[uint]int
}

type Option func(*Engine)

// WithKey overrides the storage key, e.g. to keep one cart per account.
func WithKey(key string) Option {
	return func(e *Engine) {
		if key != "" {
			e.key = key
		}
	}
}

// New restores the cart from store. Stock ceilings of restored items come
// from their stockAtAdd values until fresher stock is registered.
func New(ctx context.Context, store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:  store,
		key:    StorageKey,
		index:  make(map[uint]int),
		ledger: make(map[uint]int),
	}
	for _, opt := range opts {
		opt(e)
	}

	state, err := store.Load(ctx, e.key)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if state != nil {
		for _, item := range state.Items {
			if item.Quantity <= 0 {
				continue
			}
			if i, dup := e.index[item.ProductID]; dup {
				e.items[i].Quantity = min(e.items[i].Quantity+item.Quantity, e.ledger[item.ProductID])
				continue
			}
			// a stored line never exceeds its own ceiling
			if item.Quantity > item.StockAtAdd {
				item.Quantity = item.StockAtAdd
			}
			if item.Quantity <= 0 {
				continue
			}
			e.index[item.ProductID] = len(e.items)
			e.items = append(e.items, item)
			e.ledger[item.ProductID] = item.StockAtAdd
		}
	}
	return e, nil
}

// SetInitialStock records the stock ceiling for a product.
func (e *Engine) SetInitialStock(productID uint, stock int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger[productID] = stock
}

// AvailableStock is the ceiling minus what is already in the cart. Unknown
// products report 0. The result may be negative when stock dropped below
// the carted quantity.
func (e *Engine) AvailableStock(productID uint) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available(productID)
}

func (e *Engine) available(productID uint) int {
	ceiling, ok := e.ledger[productID]
	if !ok {
		return 0
	}
	return ceiling - e.quantity(productID)
}

func (e *Engine) quantity(productID uint) int {
	if i, ok := e.index[productID]; ok {
		return e.items[i].Quantity
	}
	return 0
}

// AddToCart adds one unit of product. It returns false and changes nothing,
// ledger included, when no stock is left. Products not yet in the ledger are
// registered with the DTO's stock once the add is accepted. A non-nil error
// means the cart could not be persisted and the change was undone.
func (e *Engine) AddToCart(ctx context.Context, product ProductDTO) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ceiling, known := e.ledger[product.ID]
	if !known {
		ceiling = product.Stock
	}
	if ceiling-e.quantity(product.ID) <= 0 {
		return false, nil
	}
	if !known {
		e.ledger[product.ID] = ceiling
	}

	prev := e.snapshot()
	if i, ok := e.index[product.ID]; ok {
		e.items[i].Quantity++
	} else {
		item := CartItem{
			ProductID:  product.ID,
			Name:       product.Name,
			UnitPrice:  product.UnitPrice,
			Quantity:   1,
			StockAtAdd: e.ledger[product.ID],
		}
		if len(product.Images) > 0 {
			item.Image = product.Images[0]
		}
		e.index[product.ID] = len(e.items)
		e.items = append(e.items, item)
	}

	if err := e.persist(ctx); err != nil {
		e.restore(prev)
		return false, err
	}
	return true, nil
}

// UpdateQuantity sets the quantity of an item already in the cart. Setting
// zero or less removes it. Quantities above the stock ceiling fail with
// ErrInsufficientStock and leave the cart as it was.
func (e *Engine) UpdateQuantity(ctx context.Context, productID uint, quantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.index[productID]
	if !ok {
		return nil
	}
	if quantity <= 0 {
		return e.removeLocked(ctx, productID)
	}

	ceiling, known := e.ledger[productID]
	if !known {
		ceiling = e.items[i].StockAtAdd
	}
	if quantity > ceiling {
		return fmt.Errorf("%w for %s: requested %d, available %d",
			ErrInsufficientStock, e.items[i].Name, quantity, ceiling)
	}
	if quantity == e.items[i].Quantity {
		return nil
	}

	prev := e.snapshot()
	e.items[i].Quantity = quantity
	if err := e.persist(ctx); err != nil {
		e.restore(prev)
		return err
	}
	return nil
}

// RemoveFromCart drops the item. Removing an absent item is not an error.
func (e *Engine) RemoveFromCart(ctx context.Context, productID uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(ctx, productID)
}

func (e *Engine) removeLocked(ctx context.Context, productID uint) error {
	if _, ok := e.index[productID]; !ok {
		return nil
	}
	prev := e.snapshot()

	kept := e.items[:0]
	for _, item := range e.items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	e.items = kept
	e.reindex()

	if err := e.persist(ctx); err != nil {
		e.restore(prev)
		return err
	}
	return nil
}

// ClearCart empties the cart.
func (e *Engine) ClearCart(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.snapshot()
	e.items = nil
	e.index = make(map[uint]int)
	if err := e.persist(ctx); err != nil {
		e.restore(prev)
		return err
	}
	return nil
}

// Items returns a copy of the cart in insertion order.
func (e *Engine) Items() []CartItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// ItemsCount is the number of units across all items.
func (e *Engine) ItemsCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, item := range e.items {
		n += item.Quantity
	}
	return n
}

func (e *Engine) IsInCart(productID uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.index[productID]
	return ok
}

func (e *Engine) ItemQuantity(productID uint) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quantity(productID)
}

func (e *Engine) CartTotal() decimal.Decimal    { return e.Totals().Subtotal }
func (e *Engine) TaxAmount() decimal.Decimal    { return e.Totals().Tax }
func (e *Engine) ShippingCost() decimal.Decimal { return e.Totals().Shipping }
func (e *Engine) FinalTotal() decimal.Decimal   { return e.Totals().Total }

// Totals computes subtotal, tax, shipping and grand total in one pass.
func (e *Engine) Totals() pricing.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return pricing.Compute(e.lines())
}

func (e *Engine) lines() []pricing.Line {
	lines := make([]pricing.Line, len(e.items))
	for i, item := range e.items {
		lines[i] = pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}
	return lines
}

func (e *Engine) snapshot() []CartItem {
	out := make([]CartItem, len(e.items))
	copy(out, e.items)
	return out
}

func (e *Engine) restore(items []CartItem) {
	e.items = items
	e.reindex()
}

func (e *Engine) reindex() {
	e.index = make(map[uint]int, len(e.items))
	for i, item := range e.items {
		e.index[item.ProductID] = i
	}
}

func (e *Engine) persist(ctx context.Context) error {
	if err := e.store.Save(ctx, e.key, State{Items: e.snapshot()}); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

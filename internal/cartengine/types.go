// Package cartengine is the shopper-side cart: a stock-aware item list with
// derived totals that persists itself after every change.
package cartengine

import (
	"errors"

	"github.com/shopspring/decimal"
)

// StorageKey is the namespace the cart is persisted under.
const StorageKey = "batstore-cart"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
)

// ProductDTO is the product shape the engine accepts. It is produced by
// decoding and validating a product detail response.
type ProductDTO struct {
	ID        uint            `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Stock     int             `json:"stock" validate:"gte=0"`
	Images    []string        `json:"images"`
}

type CartItem struct {
	ProductID  uint            `json:"productId"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	StockAtAdd int             `json:"stockAtAdd"`
	Image      string          `json:"image,omitempty"`
}

// State is the persisted blob.
type State struct {
	Items []CartItem `json:"items"`
}

type ShippingAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Phone   string `json:"phone"`
}

type OrderLine struct {
	Product  uint `json:"product"`
	Quantity int  `json:"quantity"`
}

type PaymentDetails struct {
	Method string `json:"method"`
}

// OrderRequest is the checkout submission. Totals are informational; the
// server recomputes them.
type OrderRequest struct {
	Items           []OrderLine     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Payment         PaymentDetails  `json:"payment"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
}

// OrderReceipt is what the server hands back for a finalized order.
type OrderReceipt struct {
	ID          uint            `json:"id" validate:"required"`
	OrderNumber string          `json:"orderNumber" validate:"required"`
	Status      string          `json:"status" validate:"required"`
	Total       decimal.Decimal `json:"total"`
}

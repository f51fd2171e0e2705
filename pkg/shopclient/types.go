package shopclient

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// envelope is the common API response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type productImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type productPayload struct {
	ID     uint            `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
	Images []productImage  `json:"images"`
}

type productEnvelope struct {
	Product productPayload `json:"product"`
}

type orderEnvelope struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID          uint            `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
}

// OrderSummary is one row of the shopper's order history
type OrderSummary struct {
	ID          uint            `json:"id" validate:"required"`
	OrderNumber string          `json:"orderNumber" validate:"required"`
	Status      string          `json:"status" validate:"required"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalOrders int  `json:"totalOrders"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

type OrderList struct {
	Orders     []OrderSummary `json:"orders" validate:"dive"`
	Pagination Pagination     `json:"pagination"`
}

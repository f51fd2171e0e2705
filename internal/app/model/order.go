package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type PaymentMethod string
type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
	PaymentMethodCOD        PaymentMethod = "cod"

	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// position along the fulfilment track; cancelled sits outside it
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusConfirmed: 1,
	OrderStatusShipped:   2,
	OrderStatusDelivered: 3,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
// Forward moves may skip steps. Cancelling is allowed until the order ships.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == OrderStatusCancelled || s == next {
		return false
	}
	if next == OrderStatusCancelled {
		return s == OrderStatusPending || s == OrderStatusConfirmed
	}
	from, okFrom := orderStatusRank[s]
	to, okTo := orderStatusRank[next]
	return okFrom && okTo && to > from
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodPayPal, PaymentMethodCOD:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

type ShippingAddress struct {
	Name    string `gorm:"type:varchar(100)" json:"name"`
	Street  string `gorm:"type:varchar(255)" json:"street"`
	City    string `gorm:"type:varchar(100)" json:"city"`
	State   string `gorm:"type:varchar(100)" json:"state"`
	ZipCode string `gorm:"type:varchar(20)" json:"zipCode"`
	Phone   string `gorm:"type:varchar(30)" json:"phone"`
}

// Complete reports whether every address field is filled in.
func (a ShippingAddress) Complete() bool {
	return a.Name != "" && a.Street != "" && a.City != "" &&
		a.State != "" && a.ZipCode != "" && a.Phone != ""
}

type OrderPayment struct {
	Method PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
}

// Order is written once at checkout. Afterwards only Status, Payment.Status
// and the history rows change.
type Order struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"orderNumber"`
	UserID          uint            `gorm:"not null;index" json:"userId"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	Payment         OrderPayment    `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	Shipping        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status          OrderStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	User    *User                `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items   []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"statusHistory"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem freezes the product as it was when the order was placed.
type OrderItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"-"`
	ProductID uint            `gorm:"not null;index" json:"productId"`
	Name      string          `gorm:"not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

type OrderStatusHistory struct {
	ID        uint        `gorm:"primarykey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"-"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	ActorID   *uint       `json:"actorId,omitempty"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"timestamp"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

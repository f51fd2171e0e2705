package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a user's server-side cart. UnitPrice is the product
// price at the moment the line was first added.
type CartItem struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"userId"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"productId"`
	Quantity  int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`

	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// LineTotal is UnitPrice multiplied by Quantity.
func (c *CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

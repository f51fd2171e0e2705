package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductImage struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type ProductRating struct {
	Average float64 `gorm:"default:0" json:"average"` // 0..5
	Count   int     `gorm:"default:0" json:"count"`
}

// Product is a catalog entry. Products are never hard deleted; deactivating
// hides them from the storefront while past order snapshots stay readable.
type Product struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	Name          string           `gorm:"not null;index" json:"name"`
	Description   string           `gorm:"type:text;not null" json:"description"`
	Price         decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	OriginalPrice *decimal.Decimal `gorm:"type:numeric(12,2)" json:"originalPrice,omitempty"`
	Category      string           `gorm:"type:varchar(50);not null;index" json:"category"`
	Brand         string           `gorm:"type:varchar(100)" json:"brand"`
	Images        []ProductImage   `gorm:"serializer:json;type:text" json:"images"`
	Stock         int              `gorm:"not null;default:0" json:"stock"`
	InStock       bool             `gorm:"-" json:"inStock"`
	Rating        ProductRating    `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	IsActive      bool             `gorm:"not null;default:true;index" json:"isActive"`
	Tags          []string         `gorm:"serializer:json;type:text" json:"tags"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) AfterFind(tx *gorm.DB) error {
	p.InStock = p.Stock > 0
	return nil
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.InStock = p.Stock > 0
	return nil
}

// PrimaryImage returns the first image URL or an empty string.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/tax"
)

// Product is a sellable good or service.
// Implements the Ownable interface for ownership-based authorization.
type Product struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the owner of this product (for multi-tenant isolation)
	UserID    uint `gorm:"index;not null;uniqueIndex:idx_product_user_code" json:"user_id"`
	User      User `gorm:"foreignKey:UserID" json:"-"`
	CompanyID uint `gorm:"index;not null" json:"company_id"`

	Code        string       `gorm:"size:50;not null;uniqueIndex:idx_product_user_code" json:"code"`
	Name        string       `gorm:"size:255;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	UnitPrice   float64      `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TaxCategory tax.Category `gorm:"size:20;not null;default:'taxed15'" json:"tax_category"`
	IsActive    bool         `gorm:"not null" json:"is_active"`
}

// GetUserID implements the Ownable interface for authorization.
func (p *Product) GetUserID() uint {
	return p.UserID
}

// TaxAmount returns the ISV charged on one unit.
func (p *Product) TaxAmount() float64 {
	return tax.Truncate2(p.UnitPrice * p.TaxCategory.Rate())
}

// PriceWithTax returns the unit price including ISV.
func (p *Product) PriceWithTax() float64 {
	return tax.Truncate2(p.UnitPrice + p.TaxAmount())
}

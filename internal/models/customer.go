package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Customer is an invoice recipient.
// Implements the Ownable interface for ownership-based authorization.
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the owner of this customer (for multi-tenant isolation)
	UserID    uint `gorm:"index;not null" json:"user_id"`
	User      User `gorm:"foreignKey:UserID" json:"-"`
	CompanyID uint `gorm:"index;not null" json:"company_id"`

	Name string `gorm:"size:255;not null" json:"name"`
	// RTN is optional: consumers without a tax id are invoiced as final consumers.
	RTN     string `gorm:"size:14" json:"rtn,omitempty"`
	Email   string `gorm:"size:255" json:"email,omitempty"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Address string `gorm:"size:500" json:"address,omitempty"`
	City    string `gorm:"size:100" json:"city,omitempty"`

	Invoices []Invoice `gorm:"foreignKey:CustomerID" json:"invoices,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (c *Customer) GetUserID() uint {
	return c.UserID
}

// FullAddress joins address and city on two lines.
func (c *Customer) FullAddress() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{c.Address, c.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// DisplayRTN returns the RTN or the final-consumer label used on printed invoices.
func (c *Customer) DisplayRTN() string {
	if c.RTN == "" {
		return "Consumidor Final"
	}
	return c.RTN
}

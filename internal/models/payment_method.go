package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentMethod is a way a customer settles an invoice (cash, transfer, card...).
type PaymentMethod struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID    uint   `gorm:"index;not null" json:"user_id"`
	CompanyID uint   `gorm:"not null;uniqueIndex:idx_payment_method_company_name" json:"company_id"`
	Name      string `gorm:"size:100;not null;uniqueIndex:idx_payment_method_company_name" json:"name"`
	IsActive  bool   `gorm:"not null" json:"is_active"`
}

func (p *PaymentMethod) GetUserID() uint {
	return p.UserID
}

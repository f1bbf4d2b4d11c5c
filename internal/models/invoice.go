package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/tax"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	}
	return false
}

// Invoice represents a billing invoice.
// Implements the Ownable interface for ownership-based authorization.
type Invoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the owner of this invoice (for multi-tenant isolation)
	UserID    uint `gorm:"index;not null" json:"user_id"`
	User      User `gorm:"foreignKey:UserID" json:"-"`
	CompanyID uint `gorm:"index;not null" json:"company_id"`

	// Number and CAI are assigned when the invoice is issued. Drafts have an
	// empty number; uniqueness of issued numbers is enforced by a partial index.
	Number  string `gorm:"size:30;index" json:"number,omitempty"`
	CAIID   *uint  `json:"cai_id,omitempty"`
	CAICode string `gorm:"size:37" json:"cai_code,omitempty"`

	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	PaymentMethodID *uint          `json:"payment_method_id,omitempty"`
	PaymentMethod   *PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`

	IssueDate time.Time  `gorm:"not null" json:"issue_date"`
	DueDate   time.Time  `gorm:"not null" json:"due_date"`
	PaidDate  *time.Time `json:"paid_date,omitempty"`

	Status InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	Notes  string        `gorm:"type:text" json:"notes,omitempty"`

	// Stored tax summary, recomputed whenever items change.
	Subtotal   float64 `gorm:"type:decimal(14,2);not null;default:0" json:"subtotal"`
	Discount   float64 `gorm:"type:decimal(14,2);not null;default:0" json:"discount"`
	Exempt     float64 `gorm:"type:decimal(14,2);not null;default:0" json:"exempt"`
	Exonerated float64 `gorm:"type:decimal(14,2);not null;default:0" json:"exonerated"`
	Taxed15    float64 `gorm:"column:taxed15;type:decimal(14,2);not null;default:0" json:"taxed15"`
	Taxed18    float64 `gorm:"column:taxed18;type:decimal(14,2);not null;default:0" json:"taxed18"`
	ISV15      float64 `gorm:"column:isv15;type:decimal(14,2);not null;default:0" json:"isv15"`
	ISV18      float64 `gorm:"column:isv18;type:decimal(14,2);not null;default:0" json:"isv18"`
	Total      float64 `gorm:"type:decimal(14,2);not null;default:0" json:"total"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uint {
	return i.UserID
}

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// CanEdit returns true if the invoice can still be edited.
func (i *Invoice) CanEdit() bool {
	return i.Status == InvoiceStatusDraft
}

// CanTransition reports whether the lifecycle allows moving to next.
// draft -> issued -> paid; issued and paid may be voided.
func (i *Invoice) CanTransition(next InvoiceStatus) bool {
	switch next {
	case InvoiceStatusIssued:
		return i.Status == InvoiceStatusDraft
	case InvoiceStatusPaid:
		return i.Status == InvoiceStatusIssued
	case InvoiceStatusVoid:
		return i.Status == InvoiceStatusIssued || i.Status == InvoiceStatusPaid
	}
	return false
}

// TaxLines converts the items to tax lines.
func (i *Invoice) TaxLines() []tax.Line {
	lines := make([]tax.Line, len(i.Items))
	for k, it := range i.Items {
		lines[k] = it.TaxLine()
	}
	return lines
}

// ApplySummary copies a computed summary into the stored columns.
func (i *Invoice) ApplySummary(s tax.Summary) {
	i.Subtotal = s.Subtotal
	i.Discount = s.Discount
	i.Exempt = s.Exempt
	i.Exonerated = s.Exonerated
	i.Taxed15 = s.Taxed15
	i.Taxed18 = s.Taxed18
	i.ISV15 = s.ISV15
	i.ISV18 = s.ISV18
	i.Total = s.Total
}

// Summary returns the stored summary columns.
func (i *Invoice) Summary() tax.Summary {
	return tax.Summary{
		Subtotal:   i.Subtotal,
		Discount:   i.Discount,
		Exempt:     i.Exempt,
		Exonerated: i.Exonerated,
		Taxed15:    i.Taxed15,
		Taxed18:    i.Taxed18,
		ISV15:      i.ISV15,
		ISV18:      i.ISV18,
		Total:      i.Total,
	}
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Parent invoice
	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	// Optional product reference (can be null for custom items)
	ProductID *uint    `gorm:"index" json:"product_id,omitempty"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"-"`

	// Item details (copied from product or custom)
	Description string       `gorm:"size:500;not null" json:"description"`
	Quantity    float64      `gorm:"type:decimal(12,3);not null;default:1" json:"quantity"`
	UnitPrice   float64      `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Discount    float64      `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	TaxCategory tax.Category `gorm:"size:20;not null" json:"tax_category"`

	// Position for ordering
	Position int `gorm:"default:0" json:"position"`
}

// TaxLine converts the item to its tax-calculation input.
func (item *InvoiceItem) TaxLine() tax.Line {
	return tax.Line{
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		Discount:  item.Discount,
		Category:  item.TaxCategory,
	}
}

// Amount returns the net line amount before tax.
func (item *InvoiceItem) Amount() float64 {
	return tax.Truncate2(item.TaxLine().Net())
}

package services

import (
	"context"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/diewo77/go-facturas/internal/models"
)

// InvoiceRow is one line of the invoice CSV export.
type InvoiceRow struct {
	Number     string  `csv:"numero"`
	CAI        string  `csv:"cai"`
	IssueDate  string  `csv:"fecha_emision"`
	DueDate    string  `csv:"fecha_vencimiento"`
	Status     string  `csv:"estado"`
	Customer   string  `csv:"cliente"`
	RTN        string  `csv:"rtn"`
	Exempt     float64 `csv:"exento"`
	Exonerated float64 `csv:"exonerado"`
	Taxed15    float64 `csv:"gravado_15"`
	Taxed18    float64 `csv:"gravado_18"`
	ISV15      float64 `csv:"isv_15"`
	ISV18      float64 `csv:"isv_18"`
	Discount   float64 `csv:"descuento"`
	Total      float64 `csv:"total"`
}

func newInvoiceRow(inv models.Invoice) InvoiceRow {
	row := InvoiceRow{
		Number:     inv.Number,
		CAI:        inv.CAICode,
		IssueDate:  inv.IssueDate.Format(DateLayout),
		DueDate:    inv.DueDate.Format(DateLayout),
		Status:     string(inv.Status),
		Exempt:     inv.Exempt,
		Exonerated: inv.Exonerated,
		Taxed15:    inv.Taxed15,
		Taxed18:    inv.Taxed18,
		ISV15:      inv.ISV15,
		ISV18:      inv.ISV18,
		Discount:   inv.Discount,
		Total:      inv.Total,
	}
	if inv.Customer != nil {
		row.Customer = inv.Customer.Name
		row.RTN = inv.Customer.DisplayRTN()
	}
	return row
}

// ExportCSV writes every invoice matching q (ignoring pagination) as CSV.
// Drafts are left out unless q asks for them explicitly.
func (s *InvoiceService) ExportCSV(ctx context.Context, userID uint, q InvoiceQuery, w io.Writer) (int, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID).Preload("Customer")
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	} else {
		tx = tx.Where("status <> ?", models.InvoiceStatusDraft)
	}
	if q.CustomerID != 0 {
		tx = tx.Where("customer_id = ?", q.CustomerID)
	}
	var invoices []models.Invoice
	if err := tx.Order("issue_date ASC, id ASC").Find(&invoices).Error; err != nil {
		return 0, err
	}
	rows := make([]*InvoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		row := newInvoiceRow(inv)
		rows = append(rows, &row)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, err
	}
	return len(rows), nil
}

package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/tax"
	"github.com/diewo77/go-facturas/validation"
)

// InvoiceInput is the header of a draft invoice. Items, when not nil,
// replace the current lines.
type InvoiceInput struct {
	CustomerID      uint        `json:"customer_id"`
	PaymentMethodID *uint       `json:"payment_method_id"`
	IssueDate       string      `json:"issue_date"` // YYYY-MM-DD, defaults to today
	DueDate         string      `json:"due_date"`   // YYYY-MM-DD, defaults to the issue date
	Notes           string      `json:"notes"`
	Items           []ItemInput `json:"items"`
}

// ItemInput is one invoice line. With a ProductID, empty fields are copied
// from the product.
type ItemInput struct {
	ProductID   *uint   `json:"product_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	TaxCategory string  `json:"tax_category"`
}

// InvoiceQuery filters the invoice list.
type InvoiceQuery struct {
	ListQuery
	Status     models.InvoiceStatus
	CustomerID uint
}

type InvoiceService struct {
	db   *gorm.DB
	cais *CAIService
	Now  func() time.Time
}

func NewInvoiceService(db *gorm.DB, cais *CAIService) *InvoiceService {
	return &InvoiceService{db: db, cais: cais, Now: time.Now}
}

// List returns the user's invoices, newest first. Search matches the invoice
// number and the customer name.
func (s *InvoiceService) List(ctx context.Context, userID uint, q InvoiceQuery) (Page[models.Invoice], error) {
	tx := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("user_id = ?", userID)
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.CustomerID != 0 {
		tx = tx.Where("customer_id = ?", q.CustomerID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := likePattern(term)
		tx = tx.Where(`(LOWER(number) LIKE ? ESCAPE '\' OR customer_id IN (SELECT id FROM customers WHERE user_id = ? AND LOWER(name) LIKE ? ESCAPE '\'))`,
			pattern, userID, pattern)
	}
	return paginate[models.Invoice](tx, q.ListQuery, "issue_date DESC, id DESC", "Customer")
}

// Get loads an invoice with its customer, payment method and ordered items.
func (s *InvoiceService) Get(ctx context.Context, userID, id uint) (*models.Invoice, error) {
	return s.load(s.db.WithContext(ctx), userID, id)
}

func (s *InvoiceService) load(tx *gorm.DB, userID, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Where("user_id = ?", userID).
		Preload("Customer").
		Preload("PaymentMethod").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&inv, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// CreateDraft creates a draft invoice, with optional lines.
func (s *InvoiceService) CreateDraft(ctx context.Context, userID uint, in InvoiceInput) (*models.Invoice, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := requireCompany(tx, userID)
		if err != nil {
			return err
		}
		inv := &models.Invoice{UserID: userID, CompanyID: company.ID, Status: models.InvoiceStatusDraft}
		if err := s.applyHeader(tx, userID, inv, in); err != nil {
			return err
		}
		items, err := s.buildItems(tx, userID, in.Items)
		if err != nil {
			return err
		}
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		if err := s.replaceItems(tx, inv, items); err != nil {
			return err
		}
		id = inv.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Update changes the header of a draft and, when in.Items is not nil, its lines.
func (s *InvoiceService) Update(ctx context.Context, userID, id uint, in InvoiceInput) (*models.Invoice, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.draft(tx, userID, id)
		if err != nil {
			return err
		}
		if err := s.applyHeader(tx, userID, inv, in); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(inv).Error; err != nil {
			return err
		}
		if in.Items == nil {
			return nil
		}
		items, err := s.buildItems(tx, userID, in.Items)
		if err != nil {
			return err
		}
		return s.replaceItems(tx, inv, items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Delete removes a draft and its lines.
func (s *InvoiceService) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.draft(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, inv.ID).Error
	})
}

// AddItem appends a line to a draft and recomputes its summary.
func (s *InvoiceService) AddItem(ctx context.Context, userID, id uint, in ItemInput) (*models.Invoice, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.draft(tx, userID, id)
		if err != nil {
			return err
		}
		items, err := s.buildItems(tx, userID, []ItemInput{in})
		if err != nil {
			return err
		}
		item := items[0]
		item.InvoiceID = inv.ID
		item.Position = nextPosition(inv.Items)
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return s.recompute(tx, inv.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// RemoveItem deletes one line of a draft and recomputes its summary.
func (s *InvoiceService) RemoveItem(ctx context.Context, userID, id, itemID uint) (*models.Invoice, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.draft(tx, userID, id)
		if err != nil {
			return err
		}
		res := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}, itemID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return s.recompute(tx, inv.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Issue assigns the next number of the active CAI to a non-empty draft.
func (s *InvoiceService) Issue(ctx context.Context, userID, id uint) (*models.Invoice, error) {
	now := s.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.draft(tx, userID, id)
		if err != nil {
			return err
		}
		if len(inv.Items) == 0 {
			return ErrEmptyInvoice
		}
		cai, err := s.cais.active(tx, userID, now)
		if err != nil {
			return err
		}
		number, err := s.cais.NextNumber(tx, cai, now)
		if err != nil {
			return err
		}
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", inv.ID, models.InvoiceStatusDraft).
			Updates(map[string]any{
				"status":   models.InvoiceStatusIssued,
				"number":   number,
				"cai_id":   cai.ID,
				"cai_code": cai.Code,
			})
		if res.Error != nil {
			return duplicate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotDraft
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// MarkPaid moves an issued invoice to paid. A zero paidAt means now.
func (s *InvoiceService) MarkPaid(ctx context.Context, userID, id uint, paidAt time.Time) (*models.Invoice, error) {
	if paidAt.IsZero() {
		paidAt = s.Now()
	}
	return s.transition(ctx, userID, id, models.InvoiceStatusPaid, map[string]any{"paid_date": paidAt})
}

// Void cancels an issued or paid invoice. The number stays consumed.
func (s *InvoiceService) Void(ctx context.Context, userID, id uint) (*models.Invoice, error) {
	return s.transition(ctx, userID, id, models.InvoiceStatusVoid, nil)
}

func (s *InvoiceService) transition(ctx context.Context, userID, id uint, next models.InvoiceStatus, extra map[string]any) (*models.Invoice, error) {
	inv, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !inv.CanTransition(next) {
		return nil, ErrInvalidTransition
	}
	updates := map[string]any{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", inv.ID, inv.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// status changed concurrently
		return nil, ErrInvalidTransition
	}
	return s.Get(ctx, userID, id)
}

// Revenue sums the totals of the user's paid invoices.
func (s *InvoiceService) Revenue(ctx context.Context, userID uint) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("COALESCE(SUM(total), 0)").
		Where("user_id = ? AND status = ?", userID, models.InvoiceStatusPaid).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return tax.Truncate2(total), nil
}

// StatusCounts returns how many invoices the user has per status.
func (s *InvoiceService) StatusCounts(ctx context.Context, userID uint) (map[models.InvoiceStatus]int64, error) {
	var rows []struct {
		Status models.InvoiceStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[models.InvoiceStatus]int64{
		models.InvoiceStatusDraft:  0,
		models.InvoiceStatusIssued: 0,
		models.InvoiceStatusPaid:   0,
		models.InvoiceStatusVoid:   0,
	}
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}

// draft loads an invoice inside tx and checks it is still editable.
func (s *InvoiceService) draft(tx *gorm.DB, userID, id uint) (*models.Invoice, error) {
	inv, err := s.load(tx, userID, id)
	if err != nil {
		return nil, err
	}
	if !inv.CanEdit() {
		return nil, ErrNotDraft
	}
	return inv, nil
}

func (s *InvoiceService) applyHeader(tx *gorm.DB, userID uint, inv *models.Invoice, in InvoiceInput) error {
	v := validation.Violations{}
	if in.CustomerID == 0 {
		v.Add("customer_id", validation.CodeRequired)
	} else if err := owned(tx, &models.Customer{}, userID, in.CustomerID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		v.Add("customer_id", "not_found")
	}
	if in.PaymentMethodID != nil {
		if err := owned(tx, &models.PaymentMethod{}, userID, *in.PaymentMethodID); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			v.Add("payment_method_id", "not_found")
		}
	}

	today := s.Now()
	issue := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if d := strings.TrimSpace(in.IssueDate); d != "" {
		parsed, err := time.Parse(DateLayout, d)
		if err != nil {
			v.Add("issue_date", validation.CodeInvalidDate)
		}
		issue = parsed
	}
	due := issue
	if d := strings.TrimSpace(in.DueDate); d != "" {
		parsed, err := time.Parse(DateLayout, d)
		switch {
		case err != nil:
			v.Add("due_date", validation.CodeInvalidDate)
		case parsed.Before(issue):
			v.Add("due_date", validation.CodeOutOfRange)
		}
		due = parsed
	}
	if err := invalid(v); err != nil {
		return err
	}

	inv.CustomerID = in.CustomerID
	inv.PaymentMethodID = in.PaymentMethodID
	inv.IssueDate = issue
	inv.DueDate = due
	inv.Notes = strings.TrimSpace(in.Notes)
	return nil
}

// buildItems validates lines and fills product defaults. Violation keys are
// prefixed with the line index, e.g. "items.0.quantity".
func (s *InvoiceService) buildItems(tx *gorm.DB, userID uint, in []ItemInput) ([]models.InvoiceItem, error) {
	v := validation.Violations{}
	items := make([]models.InvoiceItem, 0, len(in))
	for i, it := range in {
		field := func(name string) string { return "items." + strconv.Itoa(i) + "." + name }
		item := models.InvoiceItem{
			ProductID:   it.ProductID,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Position:    i + 1,
		}
		category := strings.TrimSpace(it.TaxCategory)

		if it.ProductID != nil {
			var p models.Product
			err := tx.Where("user_id = ?", userID).First(&p, *it.ProductID).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				v.Add(field("product_id"), "not_found")
			case err != nil:
				return nil, err
			default:
				if item.Description == "" {
					item.Description = p.Name
				}
				if item.UnitPrice == 0 {
					item.UnitPrice = p.UnitPrice
				}
				if category == "" {
					category = string(p.TaxCategory)
				}
			}
		}

		validation.Required(field("description"), item.Description, v)
		validation.MaxLen(field("description"), item.Description, 500, v)
		validation.PositiveFloat(field("quantity"), item.Quantity, v)
		validation.NonNegativeFloat(field("unit_price"), item.UnitPrice, v)
		validation.NonNegativeFloat(field("discount"), item.Discount, v)
		if item.Discount > 0 && item.Discount > item.TaxLine().Gross() {
			v.Add(field("discount"), "discount_too_high")
		}
		if category == "" {
			v.Add(field("tax_category"), validation.CodeRequired)
		} else if c, err := tax.ParseCategory(category); err != nil {
			v.Add(field("tax_category"), validation.CodeOutOfRange)
		} else {
			item.TaxCategory = c
		}
		items = append(items, item)
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *InvoiceService) replaceItems(tx *gorm.DB, inv *models.Invoice, items []models.InvoiceItem) error {
	if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InvoiceID = inv.ID
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	return s.recompute(tx, inv.ID)
}

// recompute reloads the lines of an invoice and stores its tax summary.
func (s *InvoiceService) recompute(tx *gorm.DB, invoiceID uint) error {
	var items []models.InvoiceItem
	if err := tx.Where("invoice_id = ?", invoiceID).Find(&items).Error; err != nil {
		return err
	}
	inv := models.Invoice{Items: items}
	sum, err := tax.Compute(inv.TaxLines())
	if err != nil {
		return err
	}
	inv.ApplySummary(sum)
	return tx.Model(&models.Invoice{}).Where("id = ?", invoiceID).Updates(map[string]any{
		"subtotal":   inv.Subtotal,
		"discount":   inv.Discount,
		"exempt":     inv.Exempt,
		"exonerated": inv.Exonerated,
		"taxed15":    inv.Taxed15,
		"taxed18":    inv.Taxed18,
		"isv15":      inv.ISV15,
		"isv18":      inv.ISV18,
		"total":      inv.Total,
	}).Error
}

func owned(tx *gorm.DB, model any, userID, id uint) error {
	var count int64
	if err := tx.Model(model).Where("user_id = ? AND id = ?", userID, id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func nextPosition(items []models.InvoiceItem) int {
	last := 0
	for _, it := range items {
		if it.Position > last {
			last = it.Position
		}
	}
	return last + 1
}

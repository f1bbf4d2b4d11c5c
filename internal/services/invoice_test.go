package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/tax"
)

func TestInvoiceService_CreateDraftWithProductDefaults(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Constructora Maya")
	cement := f.product(t, "CEM", 250, "taxed15")
	beer := f.product(t, "CERV", 30, "taxed18")

	inv, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{
		CustomerID: c.ID,
		DueDate:    "2026-04-09",
		Items: []ItemInput{
			{ProductID: &cement.ID, Quantity: 2, Discount: 50},
			{ProductID: &beer.ID, Quantity: 6},
			{Description: "Flete", Quantity: 1, UnitPrice: 100, TaxCategory: "exempt"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Empty(t, inv.Number)
	assert.Equal(t, f.company.ID, inv.CompanyID)
	assert.Equal(t, "2026-03-10", inv.IssueDate.Format(DateLayout), "issue date defaults to today")
	require.Len(t, inv.Items, 3)
	assert.Equal(t, "Producto CEM", inv.Items[0].Description)
	assert.Equal(t, 250.0, inv.Items[0].UnitPrice)
	assert.Equal(t, tax.Taxed18, inv.Items[1].TaxCategory)
	require.NotNil(t, inv.Customer)
	assert.Equal(t, "Constructora Maya", inv.Customer.Name)

	// 450 @15%, 180 @18%, 100 exempt
	assert.Equal(t, 780.0, inv.Subtotal)
	assert.Equal(t, 50.0, inv.Discount)
	assert.Equal(t, 450.0, inv.Taxed15)
	assert.Equal(t, 180.0, inv.Taxed18)
	assert.Equal(t, 100.0, inv.Exempt)
	assert.Equal(t, 67.5, inv.ISV15)
	assert.Equal(t, 32.4, inv.ISV18)
	assert.Equal(t, 829.9, inv.Total)
}

func TestInvoiceService_CreateDraftValidation(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Cliente")

	_, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{
		CustomerID: 9999,
		IssueDate:  "2026-03-10",
		DueDate:    "2026-03-01",
		Items: []ItemInput{
			{Description: "", Quantity: 0, UnitPrice: -1, TaxCategory: "taxed15"},
			{Description: "Caro", Quantity: 1, UnitPrice: 10, Discount: 20, TaxCategory: "vat"},
		},
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "not_found", verr.Violations["customer_id"])
	assert.Equal(t, "out_of_range", verr.Violations["due_date"])

	_, err = f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{
		CustomerID: c.ID,
		Items: []ItemInput{
			{Description: "", Quantity: 0, UnitPrice: -1, TaxCategory: "taxed15"},
			{Description: "Caro", Quantity: 1, UnitPrice: 10, Discount: 20, TaxCategory: "vat"},
			{Description: "Sin categoría", Quantity: 1, UnitPrice: 10},
		},
	})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required", verr.Violations["items.0.description"])
	assert.Equal(t, "must_be_positive", verr.Violations["items.0.quantity"])
	assert.Equal(t, "must_not_be_negative", verr.Violations["items.0.unit_price"])
	assert.Equal(t, "discount_too_high", verr.Violations["items.1.discount"])
	assert.Equal(t, "out_of_range", verr.Violations["items.1.tax_category"])
	assert.Equal(t, "required", verr.Violations["items.2.tax_category"])

	var count int64
	f.db.Model(&models.Invoice{}).Count(&count)
	assert.Zero(t, count, "nothing written on validation failure")
}

func TestInvoiceService_Items(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Cliente")
	inv, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{CustomerID: c.ID})
	require.NoError(t, err)
	assert.Zero(t, inv.Total)

	inv, err = f.invoices.AddItem(f.ctx, f.userID, inv.ID, ItemInput{Description: "A", Quantity: 3, UnitPrice: 0.99, TaxCategory: "taxed15"})
	require.NoError(t, err)
	inv, err = f.invoices.AddItem(f.ctx, f.userID, inv.ID, ItemInput{Description: "B", Quantity: 1, UnitPrice: 10, TaxCategory: "exonerated"})
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, 1, inv.Items[0].Position)
	assert.Equal(t, 2, inv.Items[1].Position)
	// 2.97 taxed15 -> isv 0.44 (0.4455 truncated)
	assert.Equal(t, 0.44, inv.ISV15)
	assert.Equal(t, 13.41, inv.Total)

	inv, err = f.invoices.RemoveItem(f.ctx, f.userID, inv.ID, inv.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 10.0, inv.Total)
	assert.Zero(t, inv.ISV15)

	_, err = f.invoices.RemoveItem(f.ctx, f.userID, inv.ID, 424242)
	assert.ErrorIs(t, err, ErrNotFound)

	inv, err = f.invoices.Update(f.ctx, f.userID, inv.ID, InvoiceInput{CustomerID: c.ID, Notes: "Entrega a domicilio", Items: []ItemInput{}})
	require.NoError(t, err)
	assert.Empty(t, inv.Items, "empty slice clears lines")
	assert.Equal(t, "Entrega a domicilio", inv.Notes)
	assert.Zero(t, inv.Total)
}

func TestInvoiceService_IssueLifecycle(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Cliente")
	draft, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{CustomerID: c.ID})
	require.NoError(t, err)

	_, err = f.invoices.Issue(f.ctx, f.userID, draft.ID)
	assert.ErrorIs(t, err, ErrEmptyInvoice)

	_, err = f.invoices.AddItem(f.ctx, f.userID, draft.ID, ItemInput{Description: "Consulta", Quantity: 1, UnitPrice: 500, TaxCategory: "taxed15"})
	require.NoError(t, err)

	_, err = f.invoices.Issue(f.ctx, f.userID, draft.ID)
	assert.ErrorIs(t, err, ErrNoActiveCAI)

	cai := f.cai(t, 1, 100, "2026-12-31")
	issued, err := f.invoices.Issue(f.ctx, f.userID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusIssued, issued.Status)
	assert.Equal(t, "000-001-01-00000001", issued.Number)
	assert.Equal(t, cai.Code, issued.CAICode)
	require.NotNil(t, issued.CAIID)
	assert.Equal(t, cai.ID, *issued.CAIID)

	_, err = f.invoices.Issue(f.ctx, f.userID, draft.ID)
	assert.ErrorIs(t, err, ErrNotDraft)
	_, err = f.invoices.Update(f.ctx, f.userID, draft.ID, InvoiceInput{CustomerID: c.ID})
	assert.ErrorIs(t, err, ErrNotDraft)
	_, err = f.invoices.AddItem(f.ctx, f.userID, draft.ID, ItemInput{Description: "x", Quantity: 1, UnitPrice: 1, TaxCategory: "exempt"})
	assert.ErrorIs(t, err, ErrNotDraft)
	assert.ErrorIs(t, f.invoices.Delete(f.ctx, f.userID, draft.ID), ErrNotDraft)

	paidAt := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	paid, err := f.invoices.MarkPaid(f.ctx, f.userID, draft.ID, paidAt)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
	assert.True(t, paid.PaidDate.Equal(paidAt))

	_, err = f.invoices.MarkPaid(f.ctx, f.userID, draft.ID, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	revenue, err := f.invoices.Revenue(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 575.0, revenue)

	voided, err := f.invoices.Void(f.ctx, f.userID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusVoid, voided.Status)
	assert.Equal(t, "000-001-01-00000001", voided.Number, "number stays consumed")

	revenue, err = f.invoices.Revenue(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Zero(t, revenue)

	second, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{CustomerID: c.ID, Items: []ItemInput{
		{Description: "Otra", Quantity: 1, UnitPrice: 1, TaxCategory: "exempt"},
	}})
	require.NoError(t, err)
	second, err = f.invoices.Issue(f.ctx, f.userID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "000-001-01-00000002", second.Number)

	counts, err := f.invoices.StatusCounts(f.ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.InvoiceStatusVoid])
	assert.Equal(t, int64(1), counts[models.InvoiceStatusIssued])
	assert.Equal(t, int64(0), counts[models.InvoiceStatusDraft])
}

func TestInvoiceService_IssueExhaustsRange(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Cliente")
	f.cai(t, 1, 3, "2026-12-31")

	const n = 5
	ids := make([]uint, n)
	for i := range ids {
		inv, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{CustomerID: c.ID, Items: []ItemInput{
			{Description: "x", Quantity: 1, UnitPrice: 1, TaxCategory: "exempt"},
		}})
		require.NoError(t, err)
		ids[i] = inv.ID
	}

	numbers := map[string]bool{}
	failures := 0
	for _, id := range ids {
		inv, err := f.invoices.Issue(f.ctx, f.userID, id)
		if err != nil {
			assert.ErrorIs(t, err, ErrCAIExhausted)
			failures++
			continue
		}
		assert.False(t, numbers[inv.Number], "duplicate number %s", inv.Number)
		numbers[inv.Number] = true
	}
	assert.Len(t, numbers, 3)
	assert.Equal(t, 2, failures)
}

func TestInvoiceService_ListAndExport(t *testing.T) {
	f := newFixture(t)
	maya := f.customer(t, "Constructora Maya")
	lenca := f.customer(t, "Cooperativa Lenca")
	f.cai(t, 1, 100, "2026-12-31")

	for _, c := range []*models.Customer{maya, lenca, maya} {
		inv, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{CustomerID: c.ID, Items: []ItemInput{
			{Description: "Bloques", Quantity: 10, UnitPrice: 15, TaxCategory: "taxed15"},
		}})
		require.NoError(t, err)
		_, err = f.invoices.Issue(f.ctx, f.userID, inv.ID)
		require.NoError(t, err)
	}
	_, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{CustomerID: lenca.ID})
	require.NoError(t, err)

	page, err := f.invoices.List(f.ctx, f.userID, InvoiceQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	require.NotNil(t, page.Items[0].Customer, "customer preloaded")

	page, err = f.invoices.List(f.ctx, f.userID, InvoiceQuery{ListQuery: ListQuery{Search: "maya"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = f.invoices.List(f.ctx, f.userID, InvoiceQuery{ListQuery: ListQuery{Search: "00000002"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, lenca.ID, page.Items[0].CustomerID)

	page, err = f.invoices.List(f.ctx, f.userID, InvoiceQuery{Status: models.InvoiceStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.invoices.List(f.ctx, f.userID, InvoiceQuery{CustomerID: lenca.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	var buf bytes.Buffer
	n, err := f.invoices.ExportCSV(f.ctx, f.userID, InvoiceQuery{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "drafts excluded")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "numero,cai,fecha_emision"))
	assert.Contains(t, lines[1], "000-001-01-00000001")
	assert.Contains(t, lines[1], "Constructora Maya")
	assert.Contains(t, lines[1], "Consumidor Final")
	assert.Contains(t, lines[1], "172.5")
}

func TestInvoiceService_DeleteDraft(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Cliente")
	inv, err := f.invoices.CreateDraft(f.ctx, f.userID, InvoiceInput{CustomerID: c.ID, Items: []ItemInput{
		{Description: "x", Quantity: 1, UnitPrice: 1, TaxCategory: "exempt"},
	}})
	require.NoError(t, err)
	require.NoError(t, f.invoices.Delete(f.ctx, f.userID, inv.ID))

	_, err = f.invoices.Get(f.ctx, f.userID, inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var items int64
	f.db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&items)
	assert.Zero(t, items)
}

package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/metrics"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/validation"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	guard    Authorizer
}

// NewInvoiceHandler builds the handler. guard may be nil when route
// middleware is the only check.
func NewInvoiceHandler(invoices *services.InvoiceService, guard Authorizer) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, guard: guard}
}

// invoiceQuery reads the list filters: q, page, limit, status, customer_id.
func invoiceQuery(r *http.Request) (services.InvoiceQuery, validation.Violations) {
	q := services.InvoiceQuery{ListQuery: listQuery(r)}
	v := validation.Violations{}
	qs := r.URL.Query()
	if s := qs.Get("status"); s != "" {
		q.Status = models.InvoiceStatus(s)
		if !q.Status.Valid() {
			v.Add("status", validation.CodeOutOfRange)
		}
	}
	if c := qs.Get("customer_id"); c != "" {
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			v.Add("customer_id", validation.CodeOutOfRange)
		}
		q.CustomerID = uint(id)
	}
	return q, v
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q, v := invoiceQuery(r)
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}
	page, err := h.invoices.List(r.Context(), currentUser(r), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// load fetches the invoice of the path and runs the ownership check for action.
func (h *InvoiceHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.Invoice, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	inv, err := h.invoices.Get(r.Context(), currentUser(r), id)
	if err == nil && h.guard != nil {
		err = h.guard.Authorize(r.Context(), action, db.ResourceInvoice, inv)
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return inv, true
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if inv, ok := h.load(w, r, gate.ActionView); ok {
		httpx.JSON(w, http.StatusOK, inv)
	}
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.CreateDraft(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.InvoiceInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.Update(r.Context(), currentUser(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.invoices.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ItemInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.AddItem(r.Context(), currentUser(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}
	inv, err := h.invoices.RemoveItem(r.Context(), currentUser(r), id, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Issue assigns the next CAI number and freezes the invoice.
func (h *InvoiceHandler) Issue(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, func(ctx context.Context, uid, id uint) (*models.Invoice, error) {
		inv, err := h.invoices.Issue(ctx, uid, id)
		if err == nil {
			metrics.RecordInvoiceIssued()
			middleware.Logger(ctx).Info("invoice issued",
				zap.Uint("invoice_id", inv.ID), zap.String("number", inv.Number))
		}
		return inv, err
	})
}

type payRequest struct {
	PaidDate string `json:"paid_date"`
}

// Pay marks the invoice paid. The body is optional; paid_date defaults to today.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := httpx.Decode(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	paidAt := time.Now()
	if req.PaidDate != "" {
		d, err := time.Parse(services.DateLayout, req.PaidDate)
		if err != nil {
			httpx.ValidationError(w, r, validation.Violations{"paid_date": validation.CodeInvalidDate})
			return
		}
		paidAt = d
	}
	h.lifecycle(w, r, func(ctx context.Context, uid, id uint) (*models.Invoice, error) {
		return h.invoices.MarkPaid(ctx, uid, id, paidAt)
	})
}

// Void cancels an issued or paid invoice; its number stays consumed.
func (h *InvoiceHandler) Void(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.invoices.Void)
}

func (h *InvoiceHandler) lifecycle(w http.ResponseWriter, r *http.Request, step func(ctx context.Context, uid, id uint) (*models.Invoice, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := step(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Export streams the filtered invoices as CSV.
func (h *InvoiceHandler) Export(w http.ResponseWriter, r *http.Request) {
	q, v := invoiceQuery(r)
	if !v.Empty() {
		httpx.ValidationError(w, r, v)
		return
	}
	var buf bytes.Buffer
	n, err := h.invoices.ExportCSV(r.Context(), currentUser(r), q, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="facturas.csv"`)
	w.Header().Set("X-Total-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

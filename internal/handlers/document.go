package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/metrics"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/pdf"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/view"
)

// PDFGenerator renders invoices and returns a download link. *pdf.Service implements it.
type PDFGenerator interface {
	Generate(ctx context.Context, req pdf.RenderRequest) (*pdf.Result, error)
}

// DocumentHandler produces the printable forms of an invoice: the stored PDF
// and the HTML print view.
type DocumentHandler struct {
	invoices  *services.InvoiceService
	companies *services.CompanyService
	cais      *services.CAIService
	generator PDFGenerator
	guard     Authorizer
}

func NewDocumentHandler(invoices *services.InvoiceService, companies *services.CompanyService, cais *services.CAIService, generator PDFGenerator, guard Authorizer) *DocumentHandler {
	return &DocumentHandler{invoices: invoices, companies: companies, cais: cais, generator: generator, guard: guard}
}

// request loads everything printed on the invoice of the path.
func (h *DocumentHandler) request(w http.ResponseWriter, r *http.Request) (*pdf.RenderRequest, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	ctx, uid := r.Context(), currentUser(r)
	inv, err := h.invoices.Get(ctx, uid, id)
	if err == nil && h.guard != nil {
		err = h.guard.Authorize(ctx, gate.ActionRender, db.ResourceInvoice, inv)
	}
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	company, err := h.companies.Get(ctx, uid)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	var cai *models.CAI
	if inv.CAIID != nil {
		if cai, err = h.cais.Get(ctx, uid, *inv.CAIID); err != nil && !errors.Is(err, services.ErrNotFound) {
			writeError(w, r, err)
			return nil, false
		}
	}
	return &pdf.RenderRequest{
		Company:  pdf.NewCompanyData(company),
		Invoices: []pdf.InvoiceData{pdf.NewInvoiceData(inv, cai)},
	}, true
}

// PDF renders the invoice and answers with a presigned link.
func (h *DocumentHandler) PDF(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		httpx.Error(w, r, http.StatusServiceUnavailable, "pdf_render_failed")
		return
	}
	req, ok := h.request(w, r)
	if !ok {
		return
	}
	res, err := h.generator.Generate(r.Context(), *req)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, pdf.ErrNoRenderedInvoices) {
			outcome = metrics.OutcomeEmpty
		}
		metrics.RecordPDF(outcome)
		middleware.Logger(r.Context()).Error("pdf generation failed",
			zap.Uint("invoice_id", req.Invoices[0].ID), zap.Error(err))
		httpx.Error(w, r, http.StatusBadGateway, "pdf_render_failed")
		return
	}
	metrics.RecordPDF(metrics.OutcomeOK)
	httpx.JSON(w, http.StatusOK, res)
}

// Print renders the HTML print view of the invoice.
func (h *DocumentHandler) Print(w http.ResponseWriter, r *http.Request) {
	req, ok := h.request(w, r)
	if !ok {
		return
	}
	err := view.Render(w, r, "invoice_print.html", map[string]any{
		"Company": req.Company,
		"Invoice": req.Invoices[0],
	})
	if err != nil {
		writeError(w, r, err)
	}
}

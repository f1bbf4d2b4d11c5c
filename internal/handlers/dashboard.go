package handlers

import (
	"net/http"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/view"
)

const recentInvoices = 5

type DashboardHandler struct {
	companies *services.CompanyService
	invoices  *services.InvoiceService
	cais      *services.CAIService
	expiry    services.ExpiryOptions
}

func NewDashboardHandler(companies *services.CompanyService, invoices *services.InvoiceService, cais *services.CAIService, expiry services.ExpiryOptions) *DashboardHandler {
	return &DashboardHandler{companies: companies, invoices: invoices, cais: cais, expiry: expiry}
}

type dashboard struct {
	Company  *models.Company                `json:"company"`
	Revenue  float64                        `json:"revenue"`
	Counts   map[models.InvoiceStatus]int64 `json:"counts"`
	Recent   []models.Invoice               `json:"recent"`
	Expiring []services.CAIStatus           `json:"expiring_cais"`
}

// Show renders the dashboard, or returns its data to JSON clients.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), currentUser(r)
	var d dashboard
	var err error
	if d.Company, err = h.companies.Get(ctx, uid); err != nil {
		writeError(w, r, err)
		return
	}
	if d.Revenue, err = h.invoices.Revenue(ctx, uid); err != nil {
		writeError(w, r, err)
		return
	}
	if d.Counts, err = h.invoices.StatusCounts(ctx, uid); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.invoices.List(ctx, uid, services.InvoiceQuery{ListQuery: services.ListQuery{Limit: recentInvoices}})
	if err != nil {
		writeError(w, r, err)
		return
	}
	d.Recent = page.Items
	if d.Expiring, err = h.cais.Expiring(ctx, uid, h.expiry); err != nil {
		writeError(w, r, err)
		return
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, d)
		return
	}
	if err := view.Render(w, r, "dashboard.html", map[string]any{"Dashboard": d}); err != nil {
		writeError(w, r, err)
	}
}

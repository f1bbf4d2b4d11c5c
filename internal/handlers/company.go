package handlers

import (
	"net/http"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/services"
)

// CompanyHandler serves the issuing company settings.
type CompanyHandler struct {
	companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// Get returns the company, or {"company": null} before the first save.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.companies.Get(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"company": c})
}

// Update creates or updates the company.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.CompanyInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.companies.Save(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"company": c})
}

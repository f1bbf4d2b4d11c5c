package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/services"
)

// CAIHandler manages the tax authority numbering authorizations.
type CAIHandler struct {
	cais     *services.CAIService
	defaults services.ExpiryOptions
}

func NewCAIHandler(cais *services.CAIService, defaults services.ExpiryOptions) *CAIHandler {
	return &CAIHandler{cais: cais, defaults: defaults}
}

func (h *CAIHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.cais.List(r.Context(), currentUser(r), listQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// Get returns the CAI with its renewal diagnostics.
func (h *CAIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.cais.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, services.Evaluate(*c, h.cais.Now(), h.defaults))
}

func (h *CAIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CAIInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.cais.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// Update only succeeds while no number of the range has been used.
func (h *CAIHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.CAIInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.cais.Update(r.Context(), currentUser(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Delete only succeeds while no number of the range has been used.
func (h *CAIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.cais.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Expiring lists the CAIs needing renewal. ?days= and ?threshold= override
// the configured defaults.
func (h *CAIHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	opts := h.defaults
	qs := r.URL.Query()
	if d, err := strconv.Atoi(qs.Get("days")); err == nil && d >= 0 {
		opts.WithinDays = d
	}
	if t, err := strconv.ParseFloat(qs.Get("threshold"), 64); err == nil && t > 0 && t <= 1 {
		opts.Threshold = t
	}
	list, err := h.cais.Expiring(r.Context(), currentUser(r), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "within_days": opts.WithinDays, "threshold": opts.Threshold})
}

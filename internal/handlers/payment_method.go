package handlers

import (
	"net/http"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/services"
)

type PaymentMethodHandler struct {
	methods *services.PaymentMethodService
}

func NewPaymentMethodHandler(methods *services.PaymentMethodService) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: methods}
}

func (h *PaymentMethodHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.methods.List(r.Context(), currentUser(r), listQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *PaymentMethodHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pm, err := h.methods.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pm)
}

func (h *PaymentMethodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.PaymentMethodInput
	if !decode(w, r, &in) {
		return
	}
	pm, err := h.methods.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pm)
}

func (h *PaymentMethodHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.PaymentMethodInput
	if !decode(w, r, &in) {
		return
	}
	pm, err := h.methods.Update(r.Context(), currentUser(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pm)
}

func (h *PaymentMethodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.methods.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

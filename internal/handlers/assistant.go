package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/assistant"
	"github.com/diewo77/go-facturas/internal/metrics"
	"github.com/diewo77/go-facturas/internal/middleware"
)

// Asker answers a question. *assistant.Service implements it.
type Asker interface {
	Ask(ctx context.Context, query string) (*assistant.Answer, error)
}

type AssistantHandler struct {
	asker Asker
}

// NewAssistantHandler accepts a nil asker; the endpoint then answers 503.
func NewAssistantHandler(asker Asker) *AssistantHandler {
	return &AssistantHandler{asker: asker}
}

type askRequest struct {
	Query string `json:"query"`
}

func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil {
		httpx.Error(w, r, http.StatusServiceUnavailable, "assistant_unavailable")
		return
	}
	var req askRequest
	if !decode(w, r, &req) {
		return
	}
	start := time.Now()
	ans, err := h.asker.Ask(r.Context(), req.Query)
	switch {
	case errors.Is(err, assistant.ErrEmptyQuery):
		httpx.Error(w, r, http.StatusUnprocessableEntity, "empty_query")
	case errors.Is(err, assistant.ErrQueryTooLong):
		httpx.Error(w, r, http.StatusUnprocessableEntity, "query_too_long")
	case err != nil:
		outcome := metrics.OutcomeError
		if errors.Is(err, assistant.ErrEmptyResponse) {
			outcome = metrics.OutcomeEmpty
		}
		metrics.RecordAssistant(outcome, time.Since(start))
		middleware.Logger(r.Context()).Error("assistant query failed", zap.Error(err))
		httpx.Error(w, r, http.StatusBadGateway, "assistant_unavailable")
	default:
		metrics.RecordAssistant(metrics.OutcomeOK, time.Since(start))
		httpx.JSON(w, http.StatusOK, ans)
	}
}

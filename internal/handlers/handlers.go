// Package handlers holds the HTTP handlers. They speak JSON, except for the
// login/signup pages, the dashboard and the invoice print view, which render
// HTML for browsers.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/services"
)

// Authorizer checks an action on a loaded record. *policy.AuthGate implements it.
type Authorizer interface {
	Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error
}

// errorStatus maps service sentinels to HTTP statuses.
var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrDuplicate, http.StatusConflict},
	{services.ErrInUse, http.StatusConflict},
	{services.ErrCompanyRequired, http.StatusConflict},
	{services.ErrNotDraft, http.StatusConflict},
	{services.ErrInvalidTransition, http.StatusConflict},
	{services.ErrEmptyInvoice, http.StatusUnprocessableEntity},
	{services.ErrNoActiveCAI, http.StatusConflict},
	{services.ErrCAIExpired, http.StatusConflict},
	{services.ErrCAIExhausted, http.StatusConflict},
}

// writeError sends the response for a service error. Unknown errors are
// logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		httpx.ValidationError(w, r, verr.Violations)
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			httpx.Error(w, r, e.status, e.err.Error())
			return
		}
	}
	switch {
	case errors.Is(err, gate.ErrUnauthorized):
		httpx.Error(w, r, http.StatusUnauthorized, "unauthorized")
		return
	case errors.Is(err, gate.ErrNoProfile):
		httpx.Error(w, r, http.StatusForbidden, "no_profile")
		return
	case errors.Is(err, gate.ErrForbidden):
		httpx.Error(w, r, http.StatusForbidden, "forbidden")
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	middleware.Logger(r.Context()).Error("request failed",
		zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	httpx.Error(w, r, http.StatusInternalServerError, "internal_error")
}

func currentUser(r *http.Request) uint {
	uid, _ := auth.UserIDFromContext(r.Context())
	return uid
}

// pathID parses the {name} path value. Malformed ids answer 404 since no
// record can match them.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		httpx.Error(w, r, http.StatusNotFound, "not_found")
		return 0, false
	}
	return uint(id), true
}

// decode reads the JSON body into dst, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.Decode(r, dst); err != nil {
		httpx.Error(w, r, http.StatusBadRequest, "invalid_request")
		return false
	}
	return true
}

// listQuery reads q, page and limit from the query string.
func listQuery(r *http.Request) services.ListQuery {
	qs := r.URL.Query()
	page, _ := strconv.Atoi(qs.Get("page"))
	limit, _ := strconv.Atoi(qs.Get("limit"))
	return services.ListQuery{Search: qs.Get("q"), Page: page, Limit: limit}
}

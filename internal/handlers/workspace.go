package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/workspace"
)

// Snapshots serves the per-user workspace. *workspace.Service implements it.
type Snapshots interface {
	Get(ctx context.Context, userID uint) (*workspace.Snapshot, error)
	Refresh(ctx context.Context, userID uint) (*workspace.Snapshot, error)
}

// WorkspaceHandler returns company, customers, products and invoices in one call.
type WorkspaceHandler struct {
	snapshots Snapshots
}

func NewWorkspaceHandler(snapshots Snapshots) *WorkspaceHandler {
	return &WorkspaceHandler{snapshots: snapshots}
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.snapshots.Get)
}

// Refresh bypasses the cache.
func (h *WorkspaceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.snapshots.Refresh)
}

func (h *WorkspaceHandler) serve(w http.ResponseWriter, r *http.Request, fetch func(context.Context, uint) (*workspace.Snapshot, error)) {
	snap, err := fetch(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

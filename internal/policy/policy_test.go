package policy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	require.NoError(t, db.Seed(context.Background(), gdb))
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, email, profile string) uint {
	t.Helper()
	u := models.User{Email: email, Password: "hash"}
	require.NoError(t, gdb.Create(&u).Error)
	if profile != "" {
		require.NoError(t, db.AssignProfile(context.Background(), gdb, email, profile))
	}
	return u.ID
}

func asUser(r *http.Request, uid uint) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), uid))
}

type owned struct{ uid uint }

func (o owned) GetUserID() uint { return o.uid }

func TestOwnershipPolicy(t *testing.T) {
	p := NewOwnershipPolicy()
	ctx := context.Background()
	assert.True(t, p.Can(ctx, 42, gate.ActionView, owned{42}))
	assert.False(t, p.Can(ctx, 99, gate.ActionUpdate, owned{42}))
	assert.False(t, p.Can(ctx, 42, gate.ActionView, struct{ ID uint }{1}), "non-ownable denied")
	assert.True(t, p.Can(ctx, 7, gate.ActionView, &models.Invoice{UserID: 7}))
}

func TestDBProfileResolver(t *testing.T) {
	gdb := setupTestDB(t)
	cashier := createUser(t, gdb, "cajero@example.hn", models.ProfileCashier)
	bare := createUser(t, gdb, "nadie@example.hn", "")
	r := NewDBProfileResolver(gdb)
	ctx := context.Background()

	p, err := r.Resolve(ctx, cashier)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.ProfileCashier, p.Name())
	assert.True(t, p.HasPermission(gate.NewPermission(db.ResourceInvoice, gate.ActionIssue)))
	assert.False(t, p.HasPermission(gate.NewPermission(db.ResourceInvoice, gate.ActionVoid)))

	p, err = r.Resolve(ctx, bare)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = r.Resolve(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, p, "deleted users have no profile")
}

func TestAuthGate_Authorize(t *testing.T) {
	gdb := setupTestDB(t)
	ag := NewAuthGate(gdb, time.Minute)
	ag.RegisterPolicy(db.ResourceInvoice, NewOwnershipPolicy())
	owner := createUser(t, gdb, "owner@example.hn", models.ProfileOwner)
	other := createUser(t, gdb, "other@example.hn", models.ProfileOwner)

	ctx := auth.WithUserID(context.Background(), owner)
	mine := &models.Invoice{UserID: owner}
	theirs := &models.Invoice{UserID: other}
	assert.NoError(t, ag.Authorize(ctx, gate.ActionVoid, db.ResourceInvoice, mine))
	assert.ErrorIs(t, ag.Authorize(ctx, gate.ActionVoid, db.ResourceInvoice, theirs), gate.ErrForbidden)
	assert.ErrorIs(t, ag.Authorize(context.Background(), gate.ActionView, db.ResourceInvoice, mine), gate.ErrUnauthorized)
	assert.True(t, ag.CanProfile(ctx, gate.ActionAsk, db.ResourceAssistant))
	assert.False(t, ag.CanProfile(ctx, gate.ActionList, db.ResourceProfile))
	assert.False(t, ag.IsAdmin(ctx))
}

func TestAuthGate_RequirePermission(t *testing.T) {
	gdb := setupTestDB(t)
	ag := NewAuthGate(gdb, time.Minute)
	viewer := createUser(t, gdb, "viewer@example.hn", models.ProfileViewer)
	bare := createUser(t, gdb, "bare@example.hn", "")

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	list := ag.RequirePermission(db.ResourceInvoice, gate.ActionList)(ok)
	issue := ag.RequirePermission(db.ResourceInvoice, gate.ActionIssue)(ok)

	tests := []struct {
		name   string
		h      http.Handler
		uid    uint
		status int
		code   string
	}{
		{"anonymous", list, 0, http.StatusUnauthorized, "unauthorized"},
		{"viewer lists", list, viewer, http.StatusNoContent, ""},
		{"viewer cannot issue", issue, viewer, http.StatusForbidden, `"forbidden"`},
		{"no profile", list, bare, http.StatusForbidden, `"no_profile"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/invoices", nil)
			if tt.uid != 0 {
				r = asUser(r, tt.uid)
			}
			w := httptest.NewRecorder()
			tt.h.ServeHTTP(w, r)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestAuthGate_RequireAdminAndInvalidate(t *testing.T) {
	gdb := setupTestDB(t)
	ag := NewAuthGate(gdb, time.Hour)
	uid := createUser(t, gdb, "jefe@example.hn", models.ProfileOwner)

	h := ag.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	serve := func() int {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodGet, "/admin/profiles", nil), uid))
		return w.Code
	}
	assert.Equal(t, http.StatusForbidden, serve())

	require.NoError(t, db.PromoteAdmin(context.Background(), gdb, "jefe@example.hn"))
	assert.Equal(t, http.StatusForbidden, serve(), "cached profile still in use")

	ag.InvalidateUser(uid)
	assert.Equal(t, http.StatusOK, serve())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

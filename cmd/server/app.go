package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/httpx"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/metrics"
	"github.com/diewo77/go-facturas/internal/middleware"
	"github.com/diewo77/go-facturas/internal/policy"
	"github.com/diewo77/go-facturas/view"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	limiter   *middleware.RateLimiter
	handler   http.Handler
}

// NewApp creates a new application with all routes configured. limiter
// throttles the assistant; nil disables throttling.
func NewApp(gdb *gorm.DB, routerCfg *policy.RouterConfig, limiter *middleware.RateLimiter) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        gdb,
		routerCfg: routerCfg,
		limiter:   limiter,
	}
	// Templates ask these callbacks so the view package does not depend on policy.
	view.SetCanProfileResolver(func(r *http.Request, resource, action string) bool {
		return routerCfg.AuthGate.CanProfile(r.Context(), gate.Action(action), resource)
	})
	view.SetIsAdminResolver(func(r *http.Request) bool {
		return routerCfg.AuthGate.IsAdmin(r.Context())
	})
	app.setupRoutes()

	// innermost first; metrics sit next to the mux to see the matched pattern
	var h http.Handler = metrics.InstrumentHandler(app.mux)
	h = routerCfg.Workspace.InvalidateOnWrite(h)
	h = middleware.Recover(h)
	h = middleware.AccessLog(h)
	h = auth.Middleware(h)
	h = middleware.Prefs(h)
	app.handler = middleware.RequestID(h)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	cfg := a.routerCfg

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.Handle("GET /metrics", metrics.Handler())
	a.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	ah := cfg.AuthHandler
	guest := auth.RedirectIfAuthenticated("/dashboard")
	a.mux.Handle("GET /login", guest(http.HandlerFunc(ah.LoginPage)))
	a.mux.Handle("POST /login", guest(http.HandlerFunc(ah.Login)))
	a.mux.Handle("GET /signup", guest(http.HandlerFunc(ah.SignupPage)))
	a.mux.Handle("POST /signup", guest(http.HandlerFunc(ah.Signup)))
	a.mux.HandleFunc("POST /logout", ah.Logout)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes
	// ─────────────────────────────────────────────────────────────────────────
	needsCompany := auth.RequireCompany(cfg.Companies.Exists, "/settings")
	a.mux.Handle("GET /dashboard", auth.RequireAuth(needsCompany(http.HandlerFunc(cfg.DashboardHandler.Show))))

	wh := cfg.WorkspaceHandler
	a.mux.Handle("GET /workspace", auth.RequireAuth(http.HandlerFunc(wh.Get)))
	a.mux.Handle("POST /workspace/refresh", auth.RequireAuth(http.HandlerFunc(wh.Refresh)))

	sh := cfg.CompanyHandler
	a.protect("GET /settings", db.ResourceCompany, gate.ActionView, sh.Get)
	a.protect("PUT /settings", db.ResourceCompany, gate.ActionUpdate, sh.Update)

	ch := cfg.CustomerHandler
	a.crud("/customers", db.ResourceCustomer, ch.List, ch.Create, ch.Get, ch.Update, ch.Delete)
	ph := cfg.ProductHandler
	a.crud("/products", db.ResourceProduct, ph.List, ph.Create, ph.Get, ph.Update, ph.Delete)
	mh := cfg.PaymentMethodHandler
	a.crud("/payment-methods", db.ResourcePaymentMethod, mh.List, mh.Create, mh.Get, mh.Update, mh.Delete)
	caih := cfg.CAIHandler
	a.crud("/cais", db.ResourceCAI, caih.List, caih.Create, caih.Get, caih.Update, caih.Delete)
	a.protect("GET /cais/expiring", db.ResourceCAI, gate.ActionList, caih.Expiring)

	// Invoices
	ih := cfg.InvoiceHandler
	a.crud("/invoices", db.ResourceInvoice, ih.List, ih.Create, ih.Get, ih.Update, ih.Delete)
	a.protect("GET /invoices/export.csv", db.ResourceInvoice, gate.ActionExport, ih.Export)
	a.protect("POST /invoices/{id}/items", db.ResourceInvoice, gate.ActionUpdate, ih.AddItem)
	a.protect("DELETE /invoices/{id}/items/{item_id}", db.ResourceInvoice, gate.ActionUpdate, ih.RemoveItem)
	a.protect("POST /invoices/{id}/issue", db.ResourceInvoice, gate.ActionIssue, ih.Issue)
	a.protect("POST /invoices/{id}/pay", db.ResourceInvoice, gate.ActionPay, ih.Pay)
	a.protect("POST /invoices/{id}/void", db.ResourceInvoice, gate.ActionVoid, ih.Void)

	dh := cfg.DocumentHandler
	a.protect("POST /invoices/{id}/pdf", db.ResourceInvoice, gate.ActionRender, dh.PDF)
	a.protect("GET /invoices/{id}/print", db.ResourceInvoice, gate.ActionRender, dh.Print)

	var ask http.Handler = http.HandlerFunc(cfg.AssistantHandler.Ask)
	if a.limiter != nil {
		ask = a.limiter.Handler(ask)
	}
	a.mux.Handle("POST /assistant",
		auth.RequireAuth(cfg.AuthGate.RequirePermission(db.ResourceAssistant, gate.ActionAsk)(ask)))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (superadmin only)
	// ─────────────────────────────────────────────────────────────────────────
	aph := cfg.AdminProfileHandler
	auph := cfg.AdminUserProfileHandler
	a.admin("GET /admin/profiles", aph.List)
	a.admin("POST /admin/profiles", aph.Create)
	a.admin("PUT /admin/profiles/{id}", aph.Update)
	a.admin("DELETE /admin/profiles/{id}", aph.Delete)
	a.admin("PUT /admin/profiles/{id}/permissions", aph.SavePermissions)
	a.admin("GET /admin/permissions", aph.ListPermissions)
	a.admin("GET /admin/users", auph.List)
	a.admin("PUT /admin/users/{id}/profile", auph.AssignProfile)
}

// protect registers h behind the session check and the profile permission.
func (a *App) protect(pattern, resource string, action gate.Action, h http.HandlerFunc) {
	a.mux.Handle(pattern, auth.RequireAuth(a.routerCfg.AuthGate.RequirePermission(resource, action)(h)))
}

// crud registers the five standard routes of a resource under base.
func (a *App) crud(base, resource string, list, create, get, update, del http.HandlerFunc) {
	a.protect("GET "+base, resource, gate.ActionList, list)
	a.protect("POST "+base, resource, gate.ActionCreate, create)
	a.protect("GET "+base+"/{id}", resource, gate.ActionView, get)
	a.protect("PUT "+base+"/{id}", resource, gate.ActionUpdate, update)
	a.protect("DELETE "+base+"/{id}", resource, gate.ActionDelete, del)
}

func (a *App) admin(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, auth.RequireAuth(a.routerCfg.AuthGate.RequireAdmin()(h)))
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx, a.db); err != nil {
		middleware.Logger(r.Context()).Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

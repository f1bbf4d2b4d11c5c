package policy

import (
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/internal/cache"
	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/handlers"
	"github.com/diewo77/go-facturas/internal/services"
	"github.com/diewo77/go-facturas/internal/workspace"
)

// Deps are the collaborators built from configuration outside this package.
// A nil PDF or Assistant makes the matching endpoint answer 503.
type Deps struct {
	PDF       handlers.PDFGenerator
	Assistant handlers.Asker
	// Cache backs the workspace snapshots; nil keeps them in memory.
	Cache       cache.Store
	SnapshotTTL time.Duration
	Expiry      services.ExpiryOptions
	// PermissionTTL is how long a user's profile stays cached. Zero means 5 minutes.
	PermissionTTL time.Duration
}

// RouterConfig holds configured handlers and middleware for the application.
type RouterConfig struct {
	// AuthGate provides authorization checks and middleware
	AuthGate *AuthGate

	// Admin handlers
	AdminProfileHandler     *handlers.AdminProfileHandler
	AdminUserProfileHandler *handlers.AdminUserProfileHandler

	AuthHandler *handlers.AuthHandler

	// Business handlers
	CompanyHandler       *handlers.CompanyHandler
	CustomerHandler      *handlers.CustomerHandler
	ProductHandler       *handlers.ProductHandler
	PaymentMethodHandler *handlers.PaymentMethodHandler
	CAIHandler           *handlers.CAIHandler
	InvoiceHandler       *handlers.InvoiceHandler
	DocumentHandler      *handlers.DocumentHandler
	DashboardHandler     *handlers.DashboardHandler
	WorkspaceHandler     *handlers.WorkspaceHandler
	AssistantHandler     *handlers.AssistantHandler

	// Services
	Companies *services.CompanyService
	CAIs      *services.CAIService
	Invoices  *services.InvoiceService
	Workspace *workspace.Service
}

// ownedResources are checked against the record owner in addition to the profile.
var ownedResources = []string{
	db.ResourceCompany,
	db.ResourceCustomer,
	db.ResourceProduct,
	db.ResourcePaymentMethod,
	db.ResourceCAI,
	db.ResourceInvoice,
}

// NewRouterConfig wires the authorization gate, the services and every handler.
func NewRouterConfig(gdb *gorm.DB, deps Deps) *RouterConfig {
	ttl := deps.PermissionTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	authGate := NewAuthGate(gdb, ttl)

	ownershipPolicy := NewOwnershipPolicy()
	for _, resource := range ownedResources {
		authGate.RegisterPolicy(resource, ownershipPolicy)
	}

	companies := services.NewCompanyService(gdb)
	customers := services.NewCustomerService(gdb)
	products := services.NewProductService(gdb)
	methods := services.NewPaymentMethodService(gdb)
	cais := services.NewCAIService(gdb)
	invoices := services.NewInvoiceService(gdb, cais)

	store := deps.Cache
	if store == nil {
		store = cache.NewMemory()
	}
	snapshots := workspace.NewService(workspace.NewLoader(companies, customers, products, invoices), store, deps.SnapshotTTL)

	return &RouterConfig{
		AuthGate:                authGate,
		AdminProfileHandler:     handlers.NewAdminProfileHandler(gdb, authGate.CacheResolver),
		AdminUserProfileHandler: handlers.NewAdminUserProfileHandler(gdb, authGate.CacheResolver),
		AuthHandler:             handlers.NewAuthHandler(gdb),
		CompanyHandler:          handlers.NewCompanyHandler(companies),
		CustomerHandler:         handlers.NewCustomerHandler(customers),
		ProductHandler:          handlers.NewProductHandler(products),
		PaymentMethodHandler:    handlers.NewPaymentMethodHandler(methods),
		CAIHandler:              handlers.NewCAIHandler(cais, deps.Expiry),
		InvoiceHandler:          handlers.NewInvoiceHandler(invoices, authGate),
		DocumentHandler:         handlers.NewDocumentHandler(invoices, companies, cais, deps.PDF, authGate),
		DashboardHandler:        handlers.NewDashboardHandler(companies, invoices, cais, deps.Expiry),
		WorkspaceHandler:        handlers.NewWorkspaceHandler(snapshots),
		AssistantHandler:        handlers.NewAssistantHandler(deps.Assistant),
		Companies:               companies,
		CAIs:                    cais,
		Invoices:                invoices,
		Workspace:               snapshots,
	}
}

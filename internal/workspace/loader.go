// Package workspace assembles the per-user data snapshot loaded when the app
// opens: company, customers, products and invoices, fetched concurrently.
package workspace

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/diewo77/go-facturas/internal/models"
	"github.com/diewo77/go-facturas/internal/services"
)

// Slice names, as reported in Snapshot.Failed.
const (
	SliceCompany   = "company"
	SliceCustomers = "customers"
	SliceProducts  = "products"
	SliceInvoices  = "invoices"
)

type CompanySource interface {
	Get(ctx context.Context, userID uint) (*models.Company, error)
}

type CustomerSource interface {
	List(ctx context.Context, userID uint, q services.ListQuery) (services.Page[models.Customer], error)
}

type ProductSource interface {
	List(ctx context.Context, userID uint, q services.ProductQuery) (services.Page[models.Product], error)
}

type InvoiceSource interface {
	List(ctx context.Context, userID uint, q services.InvoiceQuery) (services.Page[models.Invoice], error)
}

// Snapshot is everything the client needs to render its first screen.
// Each slice is owned by one fetch; a failed fetch leaves it empty and is
// named in Failed.
type Snapshot struct {
	Company   *models.Company   `json:"company"`
	Customers []models.Customer `json:"customers"`
	Products  []models.Product  `json:"products"`
	Invoices  []models.Invoice  `json:"invoices"`
	LoadedAt  time.Time         `json:"loaded_at"`
	Failed    []string          `json:"failed,omitempty"`
}

// Complete reports whether every fetch succeeded.
func (s *Snapshot) Complete() bool { return len(s.Failed) == 0 }

type Loader struct {
	company   CompanySource
	customers CustomerSource
	products  ProductSource
	invoices  InvoiceSource
	now       func() time.Time
}

func NewLoader(company CompanySource, customers CustomerSource, products ProductSource, invoices InvoiceSource) *Loader {
	return &Loader{
		company:   company,
		customers: customers,
		products:  products,
		invoices:  invoices,
		now:       time.Now,
	}
}

// Load runs the four fetches in parallel and waits for all of them. A failing
// fetch never cancels the others. The only error returned is the context's.
func (l *Loader) Load(ctx context.Context, userID uint) (*Snapshot, error) {
	snap := &Snapshot{
		Customers: []models.Customer{},
		Products:  []models.Product{},
		Invoices:  []models.Invoice{},
	}
	var (
		mu     sync.Mutex
		failed []string
	)
	fail := func(slice string, err error) {
		zap.L().Warn("workspace fetch failed",
			zap.String("slice", slice), zap.Uint("user_id", userID), zap.Error(err))
		mu.Lock()
		failed = append(failed, slice)
		mu.Unlock()
	}
	page := services.ListQuery{Limit: services.MaxLimit}

	var g errgroup.Group
	g.Go(func() error {
		c, err := l.company.Get(ctx, userID)
		if err != nil {
			fail(SliceCompany, err)
			return nil
		}
		snap.Company = c
		return nil
	})
	g.Go(func() error {
		p, err := l.customers.List(ctx, userID, page)
		if err != nil {
			fail(SliceCustomers, err)
			return nil
		}
		snap.Customers = p.Items
		return nil
	})
	g.Go(func() error {
		p, err := l.products.List(ctx, userID, services.ProductQuery{ListQuery: page})
		if err != nil {
			fail(SliceProducts, err)
			return nil
		}
		snap.Products = p.Items
		return nil
	})
	g.Go(func() error {
		p, err := l.invoices.List(ctx, userID, services.InvoiceQuery{ListQuery: page})
		if err != nil {
			fail(SliceInvoices, err)
			return nil
		}
		snap.Invoices = p.Items
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(failed)
	snap.Failed = failed
	snap.LoadedAt = l.now()
	return snap, nil
}

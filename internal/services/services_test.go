package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-facturas/internal/db"
	"github.com/diewo77/go-facturas/internal/models"
)

const (
	testRTN     = "08011999123456"
	testCAICode = "A1B2C3-D4E5F6-123456-ABCDEF-000000-7F"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, email string) uint {
	t.Helper()
	u := models.User{Email: email, Password: "hash"}
	require.NoError(t, gdb.Create(&u).Error)
	return u.ID
}

// fixture is a user with a company, ready to invoice.
type fixture struct {
	db       *gorm.DB
	ctx      context.Context
	userID   uint
	company  *models.Company
	cais     *CAIService
	invoices *InvoiceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := setupTestDB(t)
	ctx := context.Background()
	uid := createUser(t, gdb, "owner@example.hn")
	company, err := NewCompanyService(gdb).Save(ctx, uid, CompanyInput{Name: "Ferretería El Martillo", RTN: testRTN})
	require.NoError(t, err)

	cais := NewCAIService(gdb)
	cais.Now = func() time.Time { return testNow }
	invoices := NewInvoiceService(gdb, cais)
	invoices.Now = func() time.Time { return testNow }
	return &fixture{db: gdb, ctx: ctx, userID: uid, company: company, cais: cais, invoices: invoices}
}

func (f *fixture) customer(t *testing.T, name string) *models.Customer {
	t.Helper()
	c, err := NewCustomerService(f.db).Create(f.ctx, f.userID, CustomerInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, code string, price float64, category string) *models.Product {
	t.Helper()
	p, err := NewProductService(f.db).Create(f.ctx, f.userID, ProductInput{Code: code, Name: "Producto " + code, UnitPrice: price, TaxCategory: category})
	require.NoError(t, err)
	return p
}

func (f *fixture) cai(t *testing.T, start, end int64, deadline string) *models.CAI {
	t.Helper()
	c, err := f.cais.Create(f.ctx, f.userID, CAIInput{Code: testCAICode, Prefix: "000-001-01", RangeStart: start, RangeEnd: end, Deadline: deadline})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }

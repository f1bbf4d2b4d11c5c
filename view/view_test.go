package view

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/i18n"
	"github.com/diewo77/go-facturas/internal/pdf"
	"github.com/diewo77/go-facturas/internal/tax"
)

func TestMoney(t *testing.T) {
	tests := map[float64]string{
		0:          "L 0.00",
		5.5:        "L 5.50",
		999.99:     "L 999.99",
		1000:       "L 1,000.00",
		1234567.8:  "L 1,234,567.80",
		-2500.25:   "-L 2,500.25",
	}
	for in, want := range tests {
		assert.Equal(t, want, Money(in), "Money(%v)", in)
	}
	assert.Equal(t, "1.5", Quantity(1.5))
	assert.Equal(t, "3", Quantity(3))
}

func TestRender_LoginUsesLayout(t *testing.T) {
	SetSource(nil, false)
	r := httptest.NewRequest(http.MethodGet, "/login", nil)
	r = r.WithContext(i18n.WithLang(r.Context(), "en"))
	w := httptest.NewRecorder()

	require.NoError(t, RenderStatus(w, r, http.StatusUnauthorized, "login.html", map[string]any{"Email": "a@b.hn", "Error": "Invalid email or password"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `<html lang="en">`)
	assert.Contains(t, body, "<title>Iniciar sesión</title>")
	assert.Contains(t, body, `value="a@b.hn"`)
	assert.Contains(t, body, "Invalid email or password")
	assert.NotContains(t, body, "Salir", "anonymous users get no nav")
}

func TestRender_PrintIsStandalone(t *testing.T) {
	SetSource(nil, false)
	r := httptest.NewRequest(http.MethodGet, "/invoices/1/print", nil)
	w := httptest.NewRecorder()
	data := map[string]any{
		"Company": pdf.CompanyData{Name: "Pulpería Doña Tina", RTN: "08011999123456"},
		"Invoice": pdf.InvoiceData{
			Number: "000-001-01-00000007", Status: "issued", Date: "2026-03-10", DueDate: "2026-03-10",
			CAIRange: "000-001-01-00000001 al 000-001-01-00000100", CAIDeadline: "2026-12-31",
			Client: pdf.ClientData{Name: "Consumidor Final", RTN: "00000000000000"},
			Items: []pdf.InvoiceItem{
				{Description: "Café", Quantity: 2, UnitPrice: 1250, TaxCategory: tax.Taxed15, Total: 2500},
			},
			Summary: tax.Summary{Subtotal: 2500, Taxed15: 2500, ISV15: 375, Total: 2875},
		},
	}
	require.NoError(t, Render(w, r, "invoice_print.html", data))
	body := w.Body.String()
	assert.Contains(t, body, "FACTURA N.º 000-001-01-00000007")
	assert.Contains(t, body, "L 2,875.00")
	assert.Contains(t, body, "000-001-01-00000001 al 000-001-01-00000100")
	assert.NotContains(t, body, "<header>", "print view skips the layout")
}

func TestRender_DashboardResolvers(t *testing.T) {
	SetSource(nil, false)
	SetIsAdminResolver(func(*http.Request) bool { return true })
	defer func() { isAdminResolver = nil }()

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r = r.WithContext(auth.WithUserID(r.Context(), 3))
	w := httptest.NewRecorder()
	require.NoError(t, Render(w, r, "dashboard.html", map[string]any{
		"Dashboard": map[string]any{"Revenue": 1500.0},
	}))
	body := w.Body.String()
	assert.Contains(t, body, "L 1,500.00")
	assert.Contains(t, body, `href="/admin/profiles"`)
	assert.Contains(t, body, "Salir")
}

func TestRender_ErrorsWriteNothing(t *testing.T) {
	SetSource(fstest.MapFS{
		"layout.html": {Data: []byte(`<!DOCTYPE html>{{template "content" .}}`)},
		"broken.html": {Data: []byte(`{{define "content"}}{{.Missing.Field}}{{end}}`)},
	}, true)
	defer SetSource(mustSub(embedded, "templates"), false)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	assert.Error(t, Render(w, r, "nope.html", nil))
	assert.Error(t, Render(w, r, "broken.html", map[string]any{"Missing": 1}))
	assert.Zero(t, w.Body.Len())
	assert.Empty(t, w.Header().Get("Content-Type"))
}

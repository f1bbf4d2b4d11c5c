package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_UsesPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := InstrumentHandler(mux)

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/invoices/{id}", "418"))
	for _, id := range []string{"1", "2", "3"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/invoices/{id}", "418"))
	assert.Equal(t, 3.0, after-before)
}

func TestRouteLabel_Fallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil)
	assert.Equal(t, "/static", routeLabel(r))
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "/", routeLabel(r))
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(pdfRenders.WithLabelValues(OutcomeEmpty))
	RecordPDF(OutcomeEmpty)
	assert.Equal(t, before+1, testutil.ToFloat64(pdfRenders.WithLabelValues(OutcomeEmpty)))

	RecordAssistant(OutcomeOK, 250*time.Millisecond)
	SetCAIExpiring(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(caiExpiring))
	RecordInvoiceIssued()
}

func TestHandler_Exposes(t *testing.T) {
	RecordPDF(OutcomeOK)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	assert.True(t, strings.Contains(string(body), "facturas_pdf_renders_total"))
}

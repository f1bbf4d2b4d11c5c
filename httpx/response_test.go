package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/go-facturas/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONError(t *testing.T) {
	rr := httptest.NewRecorder()
	JSONError(rr, http.StatusNotFound, "not_found", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"not_found"}`, rr.Body.String())
}

func TestValidationError_Translated(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/customers", nil)
	req = req.WithContext(i18n.WithLang(req.Context(), "en"))
	rr := httptest.NewRecorder()

	ValidationError(rr, req, map[string]string{"rtn": "invalid_rtn"})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body struct {
		Error   string `json:"error"`
		Details struct {
			Codes    map[string]string `json:"codes"`
			Messages map[string]string `json:"messages"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, "invalid_rtn", body.Details.Codes["rtn"])
	assert.Equal(t, "RTN must have 14 digits", body.Details.Messages["rtn"])
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	assert.True(t, WantsJSON(req))

	req.Header.Set("Accept", "text/html,application/json")
	assert.False(t, WantsJSON(req))
}

func TestDecode(t *testing.T) {
	var dst struct{ Name string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"Acme"}`))
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, "Acme", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorIs(t, Decode(req, &dst), ErrEmptyBody)
}

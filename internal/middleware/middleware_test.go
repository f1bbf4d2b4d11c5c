package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/i18n"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	undo := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(undo)
	return logs
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
}

func TestAccessLog(t *testing.T) {
	logs := observe(t)
	h := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})))
	req := httptest.NewRequest(http.MethodPost, "/invoices/1/pdf", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), 5))
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, zap.ErrorLevel, e.Level)
	fields := e.ContextMap()
	assert.Equal(t, int64(http.StatusBadGateway), fields["status"])
	assert.Equal(t, "/invoices/1/pdf", fields["path"])
	assert.Equal(t, uint64(5), fields["user_id"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRecover(t *testing.T) {
	logs := observe(t)
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, rr.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic serving request").Len())
}

func TestPrefs(t *testing.T) {
	var lang string
	h := Prefs(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang = i18n.LangFromContext(r.Context())
	}))

	for _, tt := range []struct {
		name       string
		url        string
		cookie     string
		accept     string
		want       string
		wantCookie bool
	}{
		{"default", "/", "", "", "es", false},
		{"accept-language", "/", "", "en-US,en;q=0.9", "en", false},
		{"cookie beats header", "/", "es", "en", "es", false},
		{"query beats cookie", "/?lang=en", "es", "", "en", true},
		{"unknown query ignored", "/?lang=fr", "", "", "es", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, lang)
			assert.Equal(t, tt.wantCookie, len(rr.Result().Cookies()) > 0)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	_ = observe(t)
	rl := NewRateLimiter(60, 2)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Handler(http.HandlerFunc(ok))

	call := func(uid uint) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/assistant", nil)
		if uid != 0 {
			req = req.WithContext(auth.WithUserID(req.Context(), uid))
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, call(1).Code)
	assert.Equal(t, http.StatusOK, call(1).Code)
	rr := call(1)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), `"rate_limited"`)

	assert.Equal(t, http.StatusOK, call(2).Code, "buckets are per user")
	assert.Equal(t, http.StatusOK, call(0).Code, "anonymous keyed by ip")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, call(1).Code, "refilled after a second")

	assert.Equal(t, 3, rl.size())
	now = now.Add(time.Hour)
	rl.Cleanup(time.Minute)
	assert.Zero(t, rl.size())
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sessionCookie(t *testing.T, uid uint) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, CreateSession(rr, uid))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	Configure("test-secret", time.Hour, false)
	c := sessionCookie(t, 42)
	assert.Equal(t, "session", c.Name)
	assert.True(t, c.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	uid, ok := ParseSession(req)
	require.True(t, ok)
	assert.Equal(t, uint(42), uid)
}

func TestParseToken_Rejects(t *testing.T) {
	Configure("test-secret", time.Hour, false)

	expired, err := IssueToken(7, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err, "expired token must be rejected")

	good, err := IssueToken(7, time.Now())
	require.NoError(t, err)
	Configure("other-secret", time.Hour, false)
	_, err = ParseToken(good)
	assert.Error(t, err, "token signed with another secret must be rejected")

	_, err = ParseToken("garbage")
	assert.Error(t, err)
}

func TestMiddlewareAndRequireAuth(t *testing.T) {
	Configure("test-secret", time.Hour, false)
	SetUserVerifier(nil)
	h := Middleware(RequireAuth(okHandler()))

	t.Run("anonymous html redirects", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	})

	t.Run("anonymous json gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
		req.Header.Set("Accept", "application/json")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid session passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
		req.AddCookie(sessionCookie(t, 3))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("verifier rejects deleted user", func(t *testing.T) {
		SetUserVerifier(func(_ context.Context, uid uint) bool { return uid != 3 })
		defer SetUserVerifier(nil)
		req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
		req.AddCookie(sessionCookie(t, 3))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		// cookie cleared
		cleared := rr.Result().Cookies()
		require.NotEmpty(t, cleared)
		assert.Equal(t, "", cleared[0].Value)
	})
}

func TestRedirectIfAuthenticated(t *testing.T) {
	h := RedirectIfAuthenticated("/dashboard")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req = req.WithContext(WithUserID(req.Context(), 1))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req = req.WithContext(WithUserID(req.Context(), 1))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireCompany(t *testing.T) {
	companies := map[uint]bool{1: true}
	h := RequireCompany(func(_ context.Context, uid uint) (bool, error) {
		return companies[uid], nil
	}, "/settings")(okHandler())

	for _, tt := range []struct {
		name string
		uid  uint
		path string
		want int
	}{
		{"with company", 1, "/dashboard", http.StatusOK},
		{"without company", 2, "/dashboard", http.StatusSeeOther},
		{"settings itself", 2, "/settings", http.StatusOK},
		{"anonymous", 0, "/dashboard", http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.uid != 0 {
				req = req.WithContext(WithUserID(req.Context(), tt.uid))
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

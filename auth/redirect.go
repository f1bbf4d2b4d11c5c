package auth

import (
	"context"
	"net/http"
)

// RedirectIfAuthenticated sends logged-in users away from guest pages such
// as /login and /signup. Only safe methods are redirected so a POST to
// /login still reaches the handler.
func RedirectIfAuthenticated(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); ok && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CompanyChecker reports whether the user has completed the company setup.
type CompanyChecker func(ctx context.Context, uid uint) (bool, error)

// RequireCompany redirects authenticated users that have no company yet to
// target (the settings page). Errors from the checker let the request through.
func RequireCompany(has CompanyChecker, target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := UserIDFromContext(r.Context())
			if ok && r.URL.Path != target {
				if found, err := has(r.Context(), uid); err == nil && !found {
					http.Redirect(w, r, target, http.StatusSeeOther)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

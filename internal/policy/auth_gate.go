package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-facturas/auth"
	"github.com/diewo77/go-facturas/gate"
	"github.com/diewo77/go-facturas/httpx"
)

// AuthGate holds the configured HybridGate with caching.
// It is the single authorization point of the application.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate creates an authorization gate backed by the database profiles,
// caching each user's profile for cacheTTL.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	return newAuthGate(NewDBProfileResolver(db), cacheTTL)
}

func newAuthGate(resolver gate.ProfileResolver[uint], cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](resolver, cacheTTL)
	return &AuthGate{
		Gate:          gate.NewHybridGate[uint](cached),
		CacheResolver: cached,
	}
}

// RegisterPolicy adds an ownership policy for a resource type.
func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.Gate.Register(resourceType, p)
}

// Authorize checks if the current user can perform an action on a resource.
// Returns nil if authorized.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

// Can is a convenience method that returns bool instead of error.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// CanProfile checks only profile permissions (no ownership check).
func (ag *AuthGate) CanProfile(ctx context.Context, action gate.Action, resourceType string) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Gate.CanProfile(ctx, userID, action, resourceType)
}

// IsAdmin reports whether the current user holds the "*:*" permission.
func (ag *AuthGate) IsAdmin(ctx context.Context) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	profile, err := ag.CacheResolver.Resolve(ctx, userID)
	return err == nil && profile != nil && profile.HasPermission(gate.PermissionSuperAdmin)
}

// InvalidateUser clears the cache for a specific user.
// Call this when a user's profile is changed.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// InvalidateAll clears the entire profile cache.
// Call this when profile permissions are modified.
func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// RequirePermission returns middleware that checks the profile permission
// before the handler loads any record.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.Error(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !ag.Gate.CanProfile(r.Context(), userID, action, resourceType) {
				Deny(w, r, ag.denial(r.Context(), userID))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns middleware that only allows users with the "*:*"
// superadmin permission.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				httpx.Error(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !ag.IsAdmin(r.Context()) {
				httpx.Error(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// denial tells apart a user without profile from a missing permission so the
// client can show a useful message.
func (ag *AuthGate) denial(ctx context.Context, userID uint) error {
	profile, err := ag.CacheResolver.Resolve(ctx, userID)
	if err == nil && profile == nil {
		return gate.ErrNoProfile
	}
	return gate.ErrForbidden
}

// Deny writes the HTTP response for an Authorize error.
func Deny(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gate.ErrUnauthorized):
		httpx.Error(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, gate.ErrNoProfile):
		httpx.Error(w, r, http.StatusForbidden, "no_profile")
	default:
		httpx.Error(w, r, http.StatusForbidden, "forbidden")
	}
}

package policy

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/auth"
	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/httpx"
)

// AuthGate holds the configured HybridGate with caching.
// It is the single authorization point of the application and satisfies the
// capability interface of the offer service.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate creates a fully configured authorization gate.
// - db: GORM database connection for profile lookups
// - cacheTTL: how long to cache user profiles (e.g., 5*time.Minute)
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cachedResolver := gate.NewCachedResolver[uint](NewDBProfileResolver(db), cacheTTL)
	return &AuthGate{
		Gate:          gate.NewHybridGate[uint](cachedResolver),
		CacheResolver: cachedResolver,
	}
}

// ResourceAddress is the gate resource type of address book entries.
const ResourceAddress = "address"

// NewAppGate builds the gate used by the server: database profiles cached for
// ttl, and owner-only address book entries with an admin bypass.
func NewAppGate(db *gorm.DB, ttl time.Duration) *AuthGate {
	ag := NewAuthGate(db, ttl)
	ag.RegisterPolicy(ResourceAddress, NewAdminBypassPolicy(NewOwnershipPolicy(), ag.IsAdmin))
	return ag
}

// RegisterPolicy adds a resource policy, e.g. ownership for "address".
func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[uint]) {
	ag.Gate.Register(resourceType, p)
}

// Authorize checks if the current user can perform an action on a resource.
// Returns nil if authorized, gate.ErrUnauthorized otherwise.
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

// HasCapability reports whether userID holds perm.
func (ag *AuthGate) HasCapability(ctx context.Context, userID uint, perm gate.Permission) bool {
	return ag.Gate.HasCapability(ctx, userID, perm)
}

// Allowed checks perm for the user of the request context.
func (ag *AuthGate) Allowed(ctx context.Context, perm gate.Permission) bool {
	userID, ok := auth.UserIDFromContext(ctx)
	return ok && ag.HasCapability(ctx, userID, perm)
}

// IsAdmin reports whether the user holds the "*:*" superadmin permission.
func (ag *AuthGate) IsAdmin(ctx context.Context, userID uint) bool {
	profile, err := ag.CacheResolver.Resolve(ctx, userID)
	return err == nil && profile != nil && profile.HasPermission(gate.PermissionSuperAdmin)
}

// Capabilities lists the effective permissions of a user, nil without a profile.
func (ag *AuthGate) Capabilities(ctx context.Context, userID uint) []gate.Permission {
	profile, err := ag.CacheResolver.Resolve(ctx, userID)
	if err != nil || profile == nil {
		return nil
	}
	return profile.Permissions()
}

// InvalidateUser clears the cache for the given users.
// Call this when a user's profile or overrides change.
func (ag *AuthGate) InvalidateUser(userIDs ...uint) {
	ag.CacheResolver.Invalidate(userIDs...)
}

// InvalidateAll clears the entire profile cache.
// Call this when profile permissions are modified.
func (ag *AuthGate) InvalidateAll() {
	ag.CacheResolver.InvalidateAll()
}

// RequireCapability returns middleware that lets the request through when the
// user holds any of perms.
func (ag *AuthGate) RequireCapability(perms ...gate.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			for _, p := range perms {
				if ag.Allowed(r.Context(), p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.JSONError(w, http.StatusForbidden, "forbidden", map[string]any{"required": perms})
		})
	}
}

// RequireAdmin returns middleware that only allows users with admin profile.
// Uses the "*:*" superadmin permission check.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !ag.IsAdmin(r.Context(), userID) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

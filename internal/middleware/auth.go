// Package middleware authenticates callers by static API key and role header
// and enforces per-route role requirements.
package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"slices"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/web"
)

const (
	HeaderAPIKey = "x-api-key"
	HeaderRole   = "x-role"
)

// Role is the caller role resolved from the request headers.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type contextKey string

const rolesContextKey = contextKey("roles")

// WithRoles stores the caller roles in ctx.
func WithRoles(ctx context.Context, roles ...Role) context.Context {
	return context.WithValue(ctx, rolesContextKey, roles)
}

// ContextRoles retrieves the caller roles from the context.
func ContextRoles(ctx context.Context) []Role {
	roles, _ := ctx.Value(rolesContextKey).([]Role)
	return roles
}

// APIKey checks the x-api-key header against the key of the role named in x-role.
// The admin role needs the admin key, the user role the public key. On success
// the role is added to the request context; otherwise it answers 401.
func APIKey(keys config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(HeaderAPIKey)
			if apiKey == "" {
				unauthorized(w, r, logger, "Missing API key")
				return
			}

			var role Role
			switch Role(r.Header.Get(HeaderRole)) {
			case RoleAdmin:
				if !keyEqual(apiKey, keys.AdminKey) {
					unauthorized(w, r, logger, "Invalid API key for admin")
					return
				}
				role = RoleAdmin
			case RoleUser:
				if !keyEqual(apiKey, keys.PublicKey) {
					unauthorized(w, r, logger, "Invalid API key for all users")
					return
				}
				role = RoleUser
			default:
				unauthorized(w, r, logger, "Invalid role")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRoles(r.Context(), role)))
		})
	}
}

// RequireRoles lets the request through only if the caller holds one of allowed.
// It must run after APIKey.
func RequireRoles(logger *slog.Logger, allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles := ContextRoles(r.Context())
			if len(roles) == 0 {
				forbidden(w, r, logger, "User roles not found")
				return
			}
			if !slices.ContainsFunc(roles, func(role Role) bool { return slices.Contains(allowed, role) }) {
				forbidden(w, r, logger, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func keyEqual(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string) {
	logger.WarnContext(r.Context(), "Request rejected", "reason", message, "path", r.URL.Path)
	web.RespondNOK(w, logger, http.StatusUnauthorized, message, nil)
}

func forbidden(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string) {
	logger.WarnContext(r.Context(), "Request forbidden", "reason", message, "path", r.URL.Path)
	web.RespondNOK(w, logger, http.StatusForbidden, message, nil)
}

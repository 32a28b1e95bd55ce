// Package rbac gates routes on the caller's role.
package rbac

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
)

// RoleChecker answers whether a user holds the admin role. Unknown users
// must yield (false, nil); a non-nil error means the store failed.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AdminGuard loads the signed-in user and requires the admin role.
// It must run after middleware.RequireSignIn.
type AdminGuard struct {
	Roles RoleChecker
}

// RequireAdmin returns the admin guard.
func RequireAdmin(roles RoleChecker) *AdminGuard {
	return &AdminGuard{Roles: roles}
}

func (g *AdminGuard) Check(r *http.Request) (middleware.Decision, *http.Request) {
	userID, ok := middleware.SubjectFromCtx(r.Context())
	if !ok {
		return middleware.Unauthorized, nil
	}

	admin, err := g.Roles.IsAdmin(r.Context(), userID)
	if err != nil {
		logger.WithCtx(r.Context()).Error("rbac: role lookup failed", "user_id", userID, "error", err)
		return middleware.Failed, nil
	}
	if !admin {
		return middleware.Forbidden, nil
	}

	return middleware.Authorized, r
}

package middleware

import (
	"context"

	"github.com/lonchera-pe/cantina-backend/internal/scope"
)

type contextKey string

const (
	ctxAccess   contextKey = "access"
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxSchoolID contextKey = "school_id"
)

// AccessFromContext returns the caller identity seeded by the Auth
// middleware.
func AccessFromContext(ctx context.Context) (scope.Access, bool) {
	if ctx == nil {
		return scope.Access{}, false
	}
	access, ok := ctx.Value(ctxAccess).(scope.Access)
	return access, ok
}

// WithAccess injects a caller identity, mainly for tests.
func WithAccess(ctx context.Context, access scope.Access) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAccess, access)
	ctx = context.WithValue(ctx, ctxUserID, access.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(access.Role))
	if access.SchoolID != nil {
		ctx = context.WithValue(ctx, ctxSchoolID, access.SchoolID.String())
	}
	return ctx
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func SchoolIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSchoolID).(string); ok {
		return v
	}
	return ""
}

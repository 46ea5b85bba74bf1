package middleware

import (
	"net/http"
	"strings"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	pkgauth "github.com/lonchera-pe/cantina-backend/pkg/auth"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// caller's scope. Non-admin claims must carry a school id.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if !claims.Role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role"))
				return
			}

			access := scope.Access{
				UserID:   claims.UserID,
				Role:     claims.Role,
				SchoolID: claims.SchoolID,
			}
			if !access.Admin() && access.SchoolID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token carries no school"))
				return
			}

			ctx := WithAccess(r.Context(), access)
			if logg != nil {
				ctx = logg.WithUserID(ctx, access.UserID.String())
				ctx = logg.WithActorRole(ctx, string(access.Role))
				if access.SchoolID != nil {
					ctx = logg.WithSchoolID(ctx, access.SchoolID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

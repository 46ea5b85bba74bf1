package controllers

import (
	"net/http"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

// AdminTopDebtors ranks free accounts by outstanding debt.
func AdminTopDebtors(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.TopDebtors(r.Context(), access, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminVerifyBalance recomputes an account's balance from its ledger and
// compares it to the stored column.
func AdminVerifyBalance(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := queryAccountRef(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.VerifyBalance(r.Context(), access, ref); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "consistent"})
	}
}

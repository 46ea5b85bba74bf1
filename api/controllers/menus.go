package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/menus"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

// MenusByRange returns the menus scheduled between from and to.
func MenusByRange(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		now := time.Now()
		from, err := queryDate(r, "from", now)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := queryDate(r, "to", now.AddDate(0, 0, 7))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.MenusByRange(r.Context(), access, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// SearchMenus matches menus by dish text.
func SearchMenus(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), 120)
		if query == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter q is required"))
			return
		}
		rows, err := svc.SearchMenus(r.Context(), access, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ListCategories(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListCategories(r.Context(), access)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type categoryRequest struct {
	SchoolID uuid.UUID        `json:"school_id" validate:"required"`
	Name     string           `json:"name" validate:"required"`
	Audience string           `json:"audience" validate:"required"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

func (c categoryRequest) toInput() menus.CategoryInput {
	return menus.CategoryInput{
		SchoolID: c.SchoolID,
		Name:     c.Name,
		Audience: enums.MenuAudience(c.Audience),
		Price:    c.Price,
	}
}

func CreateCategory(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.CreateCategory(r.Context(), access, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func UpdateCategory(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.UpdateCategory(r.Context(), access, id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func DeactivateCategory(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateCategory(r.Context(), access, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

type menuRequest struct {
	CategoryID uuid.UUID        `json:"category_id" validate:"required"`
	MenuDate   string           `json:"menu_date" validate:"required"`
	Dishes     types.MenuDishes `json:"dishes"`
	Published  bool             `json:"published"`
}

// UpsertMenu creates or replaces the menu for one category and date.
func UpsertMenu(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body menuRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		menuDate, err := time.Parse(dateLayout, body.MenuDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "menu_date must be YYYY-MM-DD"))
			return
		}
		row, err := svc.UpsertMenu(r.Context(), access, menus.MenuInput{
			CategoryID: body.CategoryID,
			MenuDate:   menuDate,
			Dishes:     body.Dishes,
			Published:  body.Published,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func PublishMenu(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "menuId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.PublishMenu(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

type importMenusRequest struct {
	CategoryID uuid.UUID `json:"category_id" validate:"required"`
	Rows       []struct {
		Date   string           `json:"date" validate:"required"`
		Dishes types.MenuDishes `json:"dishes"`
	} `json:"rows" validate:"required,min=1"`
}

// ImportMenus loads a batch of already-parsed spreadsheet rows.
func ImportMenus(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body importMenusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows := make([]menus.ImportRow, 0, len(body.Rows))
		for _, row := range body.Rows {
			rows = append(rows, menus.ImportRow{Date: row.Date, Dishes: row.Dishes})
		}
		imported, err := svc.ImportMenus(r.Context(), access, body.CategoryID, rows)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"imported": imported})
	}
}

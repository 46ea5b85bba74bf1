package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lonchera-pe/cantina-backend/api/controllers"
	"github.com/lonchera-pe/cantina-backend/api/middleware"
	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/auth"
	"github.com/lonchera-pe/cantina-backend/internal/billing"
	"github.com/lonchera-pe/cantina-backend/internal/inventory"
	"github.com/lonchera-pe/cantina-backend/internal/lunchorders"
	"github.com/lonchera-pe/cantina-backend/internal/menus"
	"github.com/lonchera-pe/cantina-backend/internal/recharges"
	"github.com/lonchera-pe/cantina-backend/internal/schools"
	"github.com/lonchera-pe/cantina-backend/internal/users"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
	"github.com/lonchera-pe/cantina-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth        auth.Service
	Users       users.Service
	Schools     schools.Service
	Accounts    accounts.Service
	Recharges   recharges.Service
	LunchOrders lunchorders.Service
	Menus       menus.Service
	Billing     billing.Service
	Inventory   inventory.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/login", controllers.AuthLogin(svcs.Auth, logg))
	})

	r.Route("/api/v1/parent", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleParent, enums.UserRoleTeacher))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/students", controllers.ParentStudents(svcs.Accounts, logg))
		r.Get("/balance", controllers.ParentBalance(svcs.Accounts, logg))
		r.Get("/debt", controllers.ParentDebt(svcs.Accounts, logg))
		r.Get("/limits", controllers.ParentLimits(svcs.Accounts, logg))
		r.Get("/transactions", controllers.ParentTransactions(svcs.Accounts, logg))

		r.Get("/recharges", controllers.ParentRecharges(svcs.Recharges, logg))
		r.Post("/recharges", controllers.ParentSubmitRecharge(svcs.Recharges, svcs.Accounts, logg))

		r.Get("/orders", controllers.ParentOrders(svcs.LunchOrders, svcs.Accounts, logg))
		r.Post("/orders", controllers.ParentPlaceOrder(svcs.LunchOrders, logg))
		r.Post("/orders/{orderId}/cancel", controllers.ParentCancelOrder(svcs.LunchOrders, logg))
		r.Post("/orders/{orderId}/postpone", controllers.ParentPostponeOrder(svcs.LunchOrders, logg))

		r.Get("/menus", controllers.MenusByRange(svcs.Menus, logg))
		r.Get("/menus/search", controllers.SearchMenus(svcs.Menus, logg))
	})

	r.Route("/api/v1/staff", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleStaff, enums.UserRoleKitchen, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/recharges", controllers.StaffRecharges(svcs.Recharges, logg))
		r.Post("/recharges/{rechargeId}/approve", controllers.StaffApproveRecharge(svcs.Recharges, logg))
		r.Post("/recharges/{rechargeId}/reject", controllers.StaffRejectRecharge(svcs.Recharges, logg))

		r.Get("/orders", controllers.StaffOrdersForDate(svcs.LunchOrders, logg))
		r.Post("/orders/no-order-delivery", controllers.StaffDeliverWithoutOrder(svcs.LunchOrders, logg))
		r.Post("/orders/{orderId}/deliver", controllers.StaffDeliverOrder(svcs.LunchOrders, logg))
		r.Post("/orders/{orderId}/cancel", controllers.StaffCancelOrder(svcs.LunchOrders, logg))
		r.Post("/orders/{orderId}/postpone", controllers.StaffPostponeOrder(svcs.LunchOrders, logg))

		r.Get("/menus", controllers.MenusByRange(svcs.Menus, logg))
		r.Post("/menus", controllers.UpsertMenu(svcs.Menus, logg))
		r.Post("/menus/import", controllers.ImportMenus(svcs.Menus, logg))
		r.Post("/menus/{menuId}/publish", controllers.PublishMenu(svcs.Menus, logg))

		r.Get("/categories", controllers.ListCategories(svcs.Menus, logg))
		r.Post("/categories", controllers.CreateCategory(svcs.Menus, logg))
		r.Put("/categories/{categoryId}", controllers.UpdateCategory(svcs.Menus, logg))
		r.Delete("/categories/{categoryId}", controllers.DeactivateCategory(svcs.Menus, logg))
	})

	r.Route("/api/v1/logistics", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleStaff, enums.UserRoleKitchen, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/products", controllers.ListProducts(svcs.Inventory, logg))
		r.Post("/products", controllers.CreateProduct(svcs.Inventory, logg))
		r.Put("/products/{productId}", controllers.UpdateProduct(svcs.Inventory, logg))
		r.Post("/products/{productId}/school-price", controllers.SetSchoolPrice(svcs.Inventory, logg))

		r.Get("/items", controllers.ListInventoryItems(svcs.Inventory, logg))
		r.Post("/items", controllers.CreateInventoryItem(svcs.Inventory, logg))
		r.Get("/items/{itemId}/stock", controllers.GetStock(svcs.Inventory, logg))
		r.Post("/items/{itemId}/adjust", controllers.AdjustStock(svcs.Inventory, logg))

		r.Get("/supply-requests", controllers.ListSupplyRequests(svcs.Inventory, logg))
		r.Post("/supply-requests", controllers.SubmitSupplyRequest(svcs.Inventory, logg))
		r.Get("/supply-requests/{requestId}", controllers.GetSupplyRequest(svcs.Inventory, logg))
		r.Post("/supply-requests/{requestId}/approve", controllers.ApproveSupplyRequest(svcs.Inventory, logg))
		r.Post("/supply-requests/{requestId}/reject", controllers.RejectSupplyRequest(svcs.Inventory, logg))
		r.Post("/supply-requests/{requestId}/fulfill", controllers.FulfillSupplyRequest(svcs.Inventory, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.AdminProvisionUser(svcs.Users, logg))
			r.Get("/", controllers.AdminListUsers(svcs.Users, logg))
			r.Get("/{userId}", controllers.AdminGetUser(svcs.Users, logg))
			r.Patch("/{userId}", controllers.AdminUpdateUser(svcs.Users, logg))
			r.Delete("/{userId}", controllers.AdminDeactivateUser(svcs.Users, logg))
			r.Post("/{userId}/reset-password", controllers.AdminResetPassword(svcs.Users, logg))
		})

		r.Route("/schools", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateSchool(svcs.Schools, logg))
			r.Get("/", controllers.AdminListSchools(svcs.Schools, logg))
			r.Get("/{schoolId}", controllers.AdminGetSchool(svcs.Schools, logg))
			r.Patch("/{schoolId}", controllers.AdminUpdateSchool(svcs.Schools, logg))
			r.Get("/{schoolId}/lunch-configuration", controllers.AdminGetLunchConfiguration(svcs.Schools, logg))
			r.Put("/{schoolId}/lunch-configuration", controllers.AdminUpdateLunchConfiguration(svcs.Schools, logg))
		})

		r.Route("/students", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateStudent(svcs.Accounts, logg))
			r.Get("/", controllers.AdminListStudents(svcs.Accounts, logg))
			r.Patch("/{studentId}", controllers.AdminUpdateStudent(svcs.Accounts, logg))
			r.Delete("/{studentId}", controllers.AdminDeactivateStudent(svcs.Accounts, logg))
		})

		r.Route("/teacher-profiles", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateTeacherProfile(svcs.Accounts, logg))
			r.Get("/", controllers.AdminListTeacherProfiles(svcs.Accounts, logg))
		})

		r.Route("/billing/periods", func(r chi.Router) {
			r.Post("/", controllers.AdminOpenBillingPeriod(svcs.Billing, cfg.Billing, logg))
			r.Get("/", controllers.AdminListBillingPeriods(svcs.Billing, logg))
			r.Post("/{periodId}/close", controllers.AdminCloseBillingPeriod(svcs.Billing, logg))
			r.Get("/{periodId}/summary", controllers.AdminBillingPeriodSummary(svcs.Billing, logg))
			r.Post("/{periodId}/payments", controllers.AdminApplyBillingPayment(svcs.Billing, logg))
			r.Get("/{periodId}/payments", controllers.AdminListBillingPayments(svcs.Billing, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/top-debtors", controllers.AdminTopDebtors(svcs.Accounts, logg))
			r.Get("/verify-balance", controllers.AdminVerifyBalance(svcs.Accounts, logg))
		})
	})

	return r
}

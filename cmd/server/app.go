package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/go-offers/auth"
	"github.com/diewo77/go-offers/gate"
	"github.com/diewo77/go-offers/internal/config"
	"github.com/diewo77/go-offers/internal/handlers"
	"github.com/diewo77/go-offers/internal/logging"
	"github.com/diewo77/go-offers/internal/offers"
	"github.com/diewo77/go-offers/internal/policy"
	"github.com/diewo77/go-offers/internal/services"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	db      *gorm.DB
	gate    *policy.AuthGate
	offers  *offers.Service
	handler http.Handler

	auth          *handlers.AuthHandler
	products      *handlers.ProductHandler
	offerH        *handlers.OfferHandler
	review        *handlers.ReviewHandler
	addresses     *handlers.AddressHandler
	notifications *handlers.NotificationHandler
	staff         *handlers.StaffHandler
	exports       *handlers.ExportHandler
	adminProfiles *handlers.AdminProfileHandler
	adminUsers    *handlers.AdminUserProfileHandler
}

// NewApp wires services and handlers on top of db and configures all routes.
func NewApp(db *gorm.DB, cfg *config.Config, logger zerolog.Logger) *App {
	ttl := cfg.App.ProfileCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	ag := policy.NewAppGate(db, ttl)

	activity := services.NewActivityService(db)
	notifications := services.NewNotificationService(db)
	accounts := services.NewAccountService(db, ag, activity)
	staff := services.NewStaffService(db, ag, activity)
	catalogue := services.NewCatalogueService(db)
	addresses := services.NewAddressService(db)
	favorites := services.NewFavoriteService(db)

	offerSvc := offers.NewService(offers.Deps{
		DB:       db,
		Caps:     ag,
		Notifier: notifications,
		Activity: activity,
	}, offers.Config{
		HighValueThreshold:  cfg.Offers.HighValueThreshold,
		HighDiscountPercent: cfg.Offers.HighDiscountPercent,
	})

	app := &App{
		mux:    http.NewServeMux(),
		db:     db,
		gate:   ag,
		offers: offerSvc,

		auth:          handlers.NewAuthHandler(accounts, ag),
		products:      handlers.NewProductHandler(catalogue, favorites),
		offerH:        handlers.NewOfferHandler(offerSvc, favorites, activity),
		review:        handlers.NewReviewHandler(offerSvc),
		addresses:     handlers.NewAddressHandler(addresses, ag),
		notifications: handlers.NewNotificationHandler(notifications),
		staff:         handlers.NewStaffHandler(staff, accounts),
		exports:       handlers.NewExportHandler(offerSvc, catalogue),
		adminProfiles: handlers.NewAdminProfileHandler(db, ag),
		adminUsers:    handlers.NewAdminUserProfileHandler(accounts, ag),
	}
	app.setupRoutes()
	app.handler = logging.Middleware(logger)(auth.Middleware(app.mux))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", handlers.Health)
	a.mux.HandleFunc("GET /healthz", handlers.Ready(a.db))

	ah := a.auth
	a.mux.HandleFunc("POST /api/auth/login", ah.Login)
	a.mux.HandleFunc("POST /api/auth/signup", ah.Signup)
	a.mux.HandleFunc("POST /api/auth/logout", ah.Logout)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (require logged-in user)
	// ─────────────────────────────────────────────────────────────────────────
	a.handle("GET /api/auth/me", ah.Me)
	a.handle("POST /api/auth/password", ah.ChangePassword)

	nh := a.notifications
	a.handle("GET /api/notifications", nh.List)
	a.handle("POST /api/notifications/{id}/read", nh.MarkRead)
	a.handle("POST /api/notifications/read-all", nh.MarkAllRead)

	adh := a.addresses
	a.handle("GET /api/addresses", adh.List)
	a.handle("POST /api/addresses", adh.Create)
	a.handle("GET /api/addresses/{id}", adh.View)
	a.handle("PUT /api/addresses/{id}", adh.Update)
	a.handle("POST /api/addresses/{id}/default", adh.SetDefault)
	a.handle("DELETE /api/addresses/{id}", adh.Delete)

	// ─────────────────────────────────────────────────────────────────────────
	// Product catalogue
	// ─────────────────────────────────────────────────────────────────────────
	ph := a.products
	a.handle("GET /api/products", ph.List)
	a.handle("GET /api/products/{id}", ph.View)
	a.handle("POST /api/products", ph.Create, policy.CapProductCreate)
	a.handle("PUT /api/products/{id}", ph.Update, policy.CapProductUpdate)
	a.handle("PUT /api/products/{id}/price", ph.UpdatePrice, policy.CapProductUpdatePrice)
	a.handle("DELETE /api/products/{id}", ph.Delete, policy.CapProductDelete)
	a.handle("POST /api/products/import", ph.Import, policy.CapProductImport)
	a.handle("POST /api/products/{id}/favorite", ph.ToggleFavorite)
	a.handle("GET /api/favorites/products", ph.Favorites)

	// ─────────────────────────────────────────────────────────────────────────
	// Offers: cart, lifecycle and queries. The offer service checks the
	// fine-grained capabilities; routes only filter the obvious cases.
	// ─────────────────────────────────────────────────────────────────────────
	oh := a.offerH
	a.handle("GET /api/cart", oh.Cart, policy.CapOfferCreate)
	a.handle("POST /api/cart/items", oh.AddItem, policy.CapOfferCreate)
	a.handle("PUT /api/items/{item_id}", oh.UpdateItem)
	a.handle("DELETE /api/items/{item_id}", oh.RemoveItem)

	a.handle("GET /api/offers", oh.List)
	a.handle("GET /api/offers/stats", oh.Stats)
	a.handle("GET /api/offers/{id}", oh.View)
	a.handle("DELETE /api/offers/{id}", oh.Delete)
	a.handle("GET /api/offers/{id}/history", oh.History)
	a.handle("GET /api/offers/{id}/activity", oh.Activity)
	a.handle("POST /api/offers/{id}/activate", oh.Activate, policy.CapOfferCreate)
	a.handle("POST /api/offers/{id}/submit", oh.Submit,
		policy.CapOfferSend, policy.CapOfferSendHighValue, policy.CapOfferManagerApprove)
	a.handle("POST /api/offers/{id}/revise", oh.Revise,
		policy.CapOfferRevise, policy.CapOfferEditAll, policy.CapOfferManagerApprove)
	a.handle("PUT /api/offers/{id}/delivery", oh.AssignDelivery)
	a.handle("POST /api/offers/{id}/favorite", oh.ToggleFavorite)
	a.handle("GET /api/favorites/drafts", oh.FavoriteDrafts)

	// ─────────────────────────────────────────────────────────────────────────
	// Review: manager approval on the supplier side, pharmacy decisions,
	// discounts and invoice data
	// ─────────────────────────────────────────────────────────────────────────
	rh := a.review
	a.handle("GET /api/manager/pending", rh.PendingManager, policy.CapOfferManagerApprove)
	a.handle("POST /api/offers/{id}/manager-approve", rh.ManagerApprove, policy.CapOfferManagerApprove)
	a.handle("POST /api/offers/{id}/manager-reject", rh.ManagerReject, policy.CapOfferManagerApprove)

	a.handle("GET /api/inbox", rh.Inbox)
	a.handle("POST /api/offers/{id}/approve", rh.Approve, policy.CapOfferApprove, policy.CapOfferApproveHigh)
	a.handle("POST /api/offers/{id}/reject", rh.Reject)
	a.handle("PUT /api/offers/{id}/discounts", rh.Discounts, policy.CapDiscountApply, policy.CapDiscountApplyHigh)
	a.handle("PUT /api/offers/{id}/invoice", rh.Invoice, policy.CapInvoiceEnter)
	a.handle("POST /api/offers/{id}/invoice/revision", rh.RequestInvoiceRevision, policy.CapInvoiceEnter)
	a.handle("POST /api/offers/{id}/invoice/revision/approve", rh.ApproveInvoiceRevision, policy.CapInvoiceApproveRevision)
	a.handle("POST /api/offers/{id}/invoice/revision/reject", rh.RejectInvoiceRevision, policy.CapInvoiceApproveRevision)

	// ─────────────────────────────────────────────────────────────────────────
	// Exports
	// ─────────────────────────────────────────────────────────────────────────
	eh := a.exports
	a.handle("GET /api/offers/{id}/pdf", eh.OfferPDF)
	a.handle("GET /api/offers/{id}/xlsx", eh.OfferExcel)
	a.handle("GET /api/exports/offers", eh.Offers, policy.CapReportExport)
	a.handle("GET /api/exports/products", eh.Products, policy.CapReportExport)

	// ─────────────────────────────────────────────────────────────────────────
	// Team management (managers)
	// ─────────────────────────────────────────────────────────────────────────
	sh := a.staff
	a.handle("GET /api/staff", sh.Team, policy.CapStaffUpdate)
	a.handle("GET /api/staff/capabilities", sh.Grantable, policy.CapStaffUpdate)
	a.handle("PUT /api/staff/{id}/capabilities", sh.SetCapability, policy.CapStaffUpdate)
	a.handle("DELETE /api/staff/{id}/capabilities/{perm}", sh.ResetCapability, policy.CapStaffUpdate)
	a.handle("PUT /api/staff/{id}/active", sh.SetActive, policy.CapStaffUpdate)

	// Managers approve their own staff; the account service enforces the scope.
	uh := a.adminUsers
	a.handle("GET /api/users", uh.List, policy.CapUserApprove, policy.CapStaffUpdate)
	a.handle("POST /api/users/{id}/approve", uh.Approve, policy.CapUserApprove, policy.CapStaffUpdate)
	a.handle("POST /api/users/{id}/reject", uh.Reject, policy.CapUserApprove, policy.CapStaffUpdate)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (require admin profile)
	// ─────────────────────────────────────────────────────────────────────────
	aph := a.adminProfiles
	a.admin("GET /api/admin/profiles", aph.List)
	a.admin("POST /api/admin/profiles", aph.Create)
	a.admin("PUT /api/admin/profiles/{id}", aph.Update)
	a.admin("DELETE /api/admin/profiles/{id}", aph.Delete)
	a.admin("PUT /api/admin/profiles/{id}/permissions", aph.SetPermissions)
	a.admin("GET /api/admin/permissions", aph.ListPermissions)

	a.admin("PUT /api/admin/users/{id}/profile", uh.AssignProfile)
	a.admin("PUT /api/admin/users/{id}/active", uh.SetActive)
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// handle registers an authenticated route. With perms, the caller must hold
// at least one of them.
func (a *App) handle(pattern string, h http.HandlerFunc, perms ...gate.Permission) {
	var next http.Handler = h
	if len(perms) > 0 {
		next = a.gate.RequireCapability(perms...)(next)
	}
	a.mux.Handle(pattern, auth.RequireAuth(next))
}

// admin registers a route reserved to the admin profile.
func (a *App) admin(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, auth.RequireAuth(a.gate.RequireAdmin()(h)))
}

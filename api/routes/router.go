package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakkart/peakkart-backend/api/controllers"
	"github.com/peakkart/peakkart-backend/api/middleware"
	"github.com/peakkart/peakkart-backend/internal/auth"
	"github.com/peakkart/peakkart-backend/internal/cart"
	"github.com/peakkart/peakkart-backend/internal/coupons"
	"github.com/peakkart/peakkart-backend/internal/notifications"
	"github.com/peakkart/peakkart-backend/internal/orders"
	"github.com/peakkart/peakkart-backend/internal/payments"
	"github.com/peakkart/peakkart-backend/internal/products"
	"github.com/peakkart/peakkart-backend/internal/routing"
	"github.com/peakkart/peakkart-backend/internal/tenants"
	"github.com/peakkart/peakkart-backend/internal/wishlist"
	"github.com/peakkart/peakkart-backend/pkg/config"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	"github.com/peakkart/peakkart-backend/pkg/logger"
	pkgredis "github.com/peakkart/peakkart-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on. Optional
// dependencies (redis, prometheus gatherer) may be nil and their routes
// degrade gracefully.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	Redis    *pkgredis.Client
	Pingers  []controllers.Pinger
	Gatherer prometheus.Gatherer

	Auth          auth.Service
	Orders        orders.Service
	Routing       routing.Service
	Coupons       coupons.Service
	Tenants       tenants.Service
	Products      products.Service
	Cart          cart.Service
	Wishlist      wishlist.Service
	Notifications notifications.Service
	Payments      payments.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Pingers...))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		if p.Redis != nil {
			r.With(middleware.Idempotency(p.Redis, logg)).
				Post("/register", controllers.AuthRegister(p.Auth, logg))
		} else {
			r.Post("/register", controllers.AuthRegister(p.Auth, logg))
		}
		r.Post("/login", controllers.AuthLogin(p.Auth, logg))
	})

	// Catalog reads are public.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.Products, logg))
		r.Get("/{productId}", controllers.GetProduct(p.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(p.Orders, logg))
			r.Post("/booking", controllers.CreateBooking(p.Orders, logg))
			r.Get("/", controllers.ListOrders(p.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(p.Orders, logg))
			r.Put("/{orderId}/cancel", controllers.CancelOrder(p.Orders, logg))

			r.With(middleware.RequireRole(enums.RoleAdmin.String(), logg)).
				Put("/{orderId}/status", controllers.UpdateOrderStatus(p.Orders, logg))
			r.With(middleware.RequireRole(enums.RoleAdmin.String(), logg)).
				Post("/{orderId}/assign-tenant", controllers.AssignTenant(p.Routing, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleTenant.String(), logg))
				r.Get("/my-orders", controllers.TenantOrders(p.Routing, logg))
				r.Put("/{orderId}/tenant-status", controllers.UpdateTenantOrderStatus(p.Orders, logg))
				r.Post("/{orderId}/accept", controllers.AcceptOrder(p.Routing, logg))
			})
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/validate", controllers.ValidateCoupon(p.Coupons, logg))
			r.Post("/use", controllers.UseCoupon(p.Coupons, logg))
		})

		r.Post("/tenants/apply", controllers.TenantApply(p.Tenants, logg))

		r.Route("/tenant/products", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleTenant.String(), logg))
			r.Get("/", controllers.TenantProducts(p.Products, logg))
			r.Post("/", controllers.CreateProduct(p.Products, logg))
			r.Put("/{productId}", controllers.UpdateProduct(p.Products, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(p.Cart, logg))
			r.Post("/items", controllers.AddCartItem(p.Cart, logg))
			r.Put("/items/{itemId}", controllers.UpdateCartItem(p.Cart, logg))
			r.Delete("/items/{itemId}", controllers.RemoveCartItem(p.Cart, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.ListWishlist(p.Wishlist, logg))
			r.Post("/", controllers.AddWishlistItem(p.Wishlist, logg))
			r.Delete("/{productId}", controllers.RemoveWishlistItem(p.Wishlist, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
		})

		r.Post("/payments/verify", controllers.VerifyPayment(p.Payments, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))
		if p.Redis != nil {
			r.Use(middleware.Idempotency(p.Redis, logg))
		}

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", controllers.TenantList(p.Tenants, logg))
			r.Get("/{tenantId}", controllers.TenantGet(p.Tenants, logg))
			r.Post("/{tenantId}/approve", controllers.TenantApprove(p.Tenants, logg))
			r.Post("/{tenantId}/reject", controllers.TenantReject(p.Tenants, logg))
			r.Post("/{tenantId}/suspend", controllers.TenantSuspend(p.Tenants, logg))
			r.Post("/{tenantId}/reactivate", controllers.TenantReactivate(p.Tenants, logg))
		})

		r.Get("/orders", controllers.ListAllOrders(p.Orders, logg))

		r.Post("/products", controllers.CreateProduct(p.Products, logg))
		r.Put("/products/{productId}", controllers.UpdateProduct(p.Products, logg))
	})

	return r
}

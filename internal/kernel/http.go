// Package kernel assembles the storefront HTTP handler from already
// connected infrastructure. It opens no connections itself, so tests and
// the CLI can build it over in-memory stores.
package kernel

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shashiranjanraj/storefront/app/controllers"
	appgraphql "github.com/shashiranjanraj/storefront/app/graphql"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/event"
	"github.com/shashiranjanraj/storefront/pkg/graphql"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/payment"
	"github.com/shashiranjanraj/storefront/pkg/reqid"
	"github.com/shashiranjanraj/storefront/pkg/response"
	"github.com/shashiranjanraj/storefront/pkg/router"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

// Deps is the infrastructure the HTTP kernel runs on.
type Deps struct {
	Stores  *repositories.Stores
	Ledger  repositories.ReconciliationRepository
	Gateway payment.Gateway
	Disk    storage.Disk
	Locker  services.Locker
	Limiter middleware.Limiter
	Tokens  *auth.TokenService
	// Checks back /health; every probe must pass for a 200.
	Checks map[string]func(ctx context.Context) error
}

// Options are the HTTP-level settings.
type Options struct {
	ForbiddenStatus int
	RequestTimeout  time.Duration
	CORSOrigins     string
	MaxPhotoBytes   int64
	Checkout        services.CheckoutConfig
}

// HTTP is the assembled application.
type HTTP struct {
	Router *router.Router
	Hub    *ws.Hub
	Events *event.Bus

	Auth           *services.AuthService
	Users          *services.UserService
	Categories     *services.CategoryService
	Products       *services.ProductService
	Orders         *services.OrderService
	Checkout       *services.CheckoutService
	Reconciliation *services.ReconciliationService
}

// New wires services, controllers and routes. The returned hub must be
// started with Hub.Run before websocket clients connect.
func New(d Deps, opts Options) (*HTTP, error) {
	k := &HTTP{
		Router: router.New(),
		Hub:    ws.NewHub(),
		Events: event.NewBus(),
	}

	k.Auth = services.NewAuthService(d.Stores.Users, d.Tokens)
	k.Users = services.NewUserService(d.Stores.Users)
	k.Categories = services.NewCategoryService(d.Stores.Categories)
	k.Products = services.NewProductService(d.Stores.Products, d.Stores.Categories, d.Disk, opts.MaxPhotoBytes)
	k.Orders = services.NewOrderService(d.Stores.Orders, d.Stores.Products, d.Stores.Users, k.Events)
	k.Checkout = services.NewCheckoutService(d.Gateway, d.Stores.Orders, d.Stores.Products, d.Ledger, d.Locker, opts.Checkout)
	k.Reconciliation = services.NewReconciliationService(d.Ledger)

	k.Events.Listen(services.EventOrderStatusUpdated, k.pushStatus)

	schema, err := appgraphql.NewSchema(k.Categories, k.Products)
	if err != nil {
		return nil, err
	}

	r := k.Router
	// Global middleware, outermost first. Metrics wraps everything so the
	// latency is total; the request id exists before anything logs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.CORSFromOrigins(opts.CORSOrigins)))
	if d.Limiter != nil {
		r.Use(middleware.RateLimit(d.Limiter))
	}
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { response.NotFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	// No auth on /metrics and /health.
	r.Handle(http.MethodGet, "/metrics", "metrics", metrics.Handler())
	r.Get("/health", "health", health(d.Checks))

	routes.RegisterAPI(r, routes.Controllers{
		Auth:       controllers.NewAuthController(k.Auth),
		Users:      controllers.NewUserController(k.Users),
		Categories: controllers.NewCategoryController(k.Categories),
		Products:   controllers.NewProductController(k.Products, opts.MaxPhotoBytes),
		Payments:   controllers.NewPaymentController(k.Checkout),
		Orders:     controllers.NewOrderController(k.Orders, k.Hub),
		GraphQL:    graphql.Handler(schema),
	}, routes.Guards{
		Tokens:          d.Tokens,
		Roles:           k.Auth,
		ForbiddenStatus: opts.ForbiddenStatus,
	})

	return k, nil
}

func (k *HTTP) Handler() http.Handler { return k.Router.Handler() }

// pushStatus forwards status changes to the buyer's open websockets.
func (k *HTTP) pushStatus(ctx context.Context, payload any) {
	ev, ok := payload.(services.OrderStatusUpdated)
	if !ok {
		return
	}
	data, err := json.Marshal(map[string]any{"event": services.EventOrderStatusUpdated, "data": ev})
	if err != nil {
		logger.WithCtx(ctx).Error("ws: encode event", "error", err)
		return
	}
	k.Hub.SendTo(ev.BuyerID, data)
}

func health(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for name, probe := range checks {
			if err := probe(ctx); err != nil {
				logger.WithCtx(ctx).Warn("health: probe failed", "check", name, "error", err)
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}

		if !healthy {
			response.Write(w, http.StatusServiceUnavailable, false, "unhealthy", response.M{"checks": status})
			return
		}
		response.OK(w, "ok", response.M{"checks": status})
	}
}

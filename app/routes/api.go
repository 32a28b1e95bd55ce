package routes

import (
	"net/http"

	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/rbac"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

// Controllers are the handlers mounted by RegisterAPI.
type Controllers struct {
	Auth       *controllers.AuthController
	Users      *controllers.UserController
	Categories *controllers.CategoryController
	Products   *controllers.ProductController
	Payments   *controllers.PaymentController
	Orders     *controllers.OrderController
	GraphQL    http.Handler
}

// Guards configures the auth middleware chain.
type Guards struct {
	Tokens middleware.TokenVerifier
	Roles  rbac.RoleChecker
	// ForbiddenStatus is written for signed-in non-admins: 403, or 401
	// for clients of the legacy contract.
	ForbiddenStatus int
}

func RegisterAPI(r *router.Router, h Controllers, g Guards) {
	signIn := middleware.RequireSignIn(g.Tokens)
	signedIn := router.Middleware(middleware.Protect(g.ForbiddenStatus, signIn))
	admin := router.Middleware(middleware.Protect(g.ForbiddenStatus, signIn, rbac.RequireAdmin(g.Roles)))

	// Browsers cannot set headers on a websocket handshake.
	wsSignIn := &middleware.SignInGuard{Tokens: g.Tokens, AllowQuery: true}
	wsSignedIn := router.Middleware(middleware.Protect(g.ForbiddenStatus, wsSignIn))

	api := r.Group("/api/v1")

	// ─── Auth ────────────────────────────────────────────────────────────
	a := api.Group("/auth")
	a.Post("/register", "auth.register", ctx.Wrap(h.Auth.Register))
	a.Post("/login", "auth.login", ctx.Wrap(h.Auth.Login))
	a.Post("/forgot-password", "auth.forgot_password", ctx.Wrap(h.Auth.ForgotPassword))
	a.Get("/test", "auth.test", ctx.Wrap(h.Auth.Test), admin)
	a.Get("/user-auth", "auth.user", ctx.Wrap(h.Auth.Check), signedIn)
	a.Get("/admin-auth", "auth.admin", ctx.Wrap(h.Auth.Check), admin)
	a.Put("/update-profile", "auth.update_profile", ctx.Wrap(h.Auth.UpdateProfile), signedIn)

	a.Get("/orders", "orders.mine", ctx.Wrap(h.Orders.Mine), signedIn)
	a.Get("/all-orders", "orders.all", ctx.Wrap(h.Orders.All), admin)
	a.Put("/order-status/{orderId}", "orders.status", ctx.Wrap(h.Orders.UpdateStatus), admin)

	a.Get("/all-users", "users.all", ctx.Wrap(h.Users.All), admin)
	a.Delete("/delete-user/{uId}", "users.delete", ctx.Wrap(h.Users.Delete), admin)
	a.Get("/users-count", "users.count", ctx.Wrap(h.Users.Count), admin)
	a.Get("/users-list/{page}", "users.page", ctx.Wrap(h.Users.Page), admin)
	a.Get("/search-user/{keyword}", "users.search", ctx.Wrap(h.Users.Search), admin)

	// ─── Categories ──────────────────────────────────────────────────────
	c := api.Group("/category")
	c.Post("/create-category", "category.create", ctx.Wrap(h.Categories.Create), admin)
	c.Put("/update-category/{id}", "category.update", ctx.Wrap(h.Categories.Update), admin)
	c.Get("/get-category", "category.index", ctx.Wrap(h.Categories.Index))
	c.Get("/get-category/{slug}", "category.show", ctx.Wrap(h.Categories.Show))
	c.Delete("/delete-category/{id}", "category.delete", ctx.Wrap(h.Categories.Delete), admin)

	// ─── Products ────────────────────────────────────────────────────────
	p := api.Group("/product")
	p.Post("/create-product", "product.create", ctx.Wrap(h.Products.Create), admin)
	p.Put("/update-product/{pid}", "product.update", ctx.Wrap(h.Products.Update), admin)
	p.Get("/get-product", "product.index", ctx.Wrap(h.Products.Index))
	p.Get("/get-product/{slug}", "product.show", ctx.Wrap(h.Products.Show))
	p.Get("/product-photo/{id}", "product.photo", ctx.Wrap(h.Products.Photo))
	p.Delete("/delete-product/{pid}", "product.delete", ctx.Wrap(h.Products.Delete), admin)
	p.Post("/filter-product", "product.filter", ctx.Wrap(h.Products.Filter))
	p.Get("/product-count", "product.count", ctx.Wrap(h.Products.Count))
	p.Get("/product-list/{page}", "product.page", ctx.Wrap(h.Products.Page))
	p.Get("/search-product/{keyword}", "product.search", ctx.Wrap(h.Products.Search))
	p.Get("/related-product/{pid}/{cid}", "product.related", ctx.Wrap(h.Products.Related))
	p.Get("/product-category/{slug}", "product.by_category", ctx.Wrap(h.Products.ByCategory))

	p.Get("/braintree/token", "payment.token", ctx.Wrap(h.Payments.Token))
	p.Post("/braintree/payment", "payment.checkout", ctx.Wrap(h.Payments.Pay), signedIn)

	// ─── Extras ──────────────────────────────────────────────────────────
	api.Handle(http.MethodPost, "/graphql", "graphql.query", h.GraphQL)
	api.Handle(http.MethodGet, "/graphql", "graphql.query_get", h.GraphQL)
	api.Get("/ws/orders", "ws.orders", ctx.Wrap(h.Orders.Stream), wsSignedIn)
}

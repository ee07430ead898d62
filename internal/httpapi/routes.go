package httpapi

import (
	"net/http"

	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/obs"
)

// access is the authorization rule of a route.
type access struct {
	public bool
	roles  []auth.Role
}

var (
	public        = access{public: true}
	authenticated = access{roles: auth.AllRoles}
)

func only(roles ...auth.Role) access { return access{roles: roles} }

type route struct {
	pattern string
	access  access
	handler http.HandlerFunc
	limiter *ipLimiter
}

// routes is the authorization matrix of the API. Every protected route
// runs Authenticate then Authorize with its allow-list.
func (a *API) routes() []route {
	var (
		superadmin = only(auth.RoleSuperadmin)
		editors    = only(auth.RoleSuperadmin, auth.RoleAdmin)
		staff      = only(auth.RoleSuperadmin, auth.RoleAdmin, auth.RoleManager)
	)
	return []route{
		{pattern: "POST /login", access: public, handler: a.handleLogin},
		{pattern: "POST /register", access: superadmin, handler: a.handleRegister},
		{pattern: "GET /users", access: superadmin, handler: a.handleListAccounts},
		{pattern: "PUT /users/{id}", access: superadmin, handler: a.handleUpdateAccount},
		{pattern: "DELETE /users/{id}", access: superadmin, handler: a.handleDeleteAccount},
		{pattern: "PUT /profile", access: authenticated, handler: a.handleUpdateProfile},

		{pattern: "POST /auth/register", access: public, handler: a.handleCustomerRegister},
		{pattern: "POST /auth/login", access: public, handler: a.handleCustomerLogin},
		{pattern: "GET /auth/me", access: only(auth.RoleCustomer), handler: a.handleCustomerMe},

		{pattern: "GET /stats", access: staff, handler: a.handleStats, limiter: a.analyticsLimit},
		{pattern: "GET /system-overview", access: superadmin, handler: a.handleSystemOverview, limiter: a.analyticsLimit},

		{pattern: "GET /system-logs", access: superadmin, handler: a.handleListLogs},
		{pattern: "GET /system-logs/{id}", access: superadmin, handler: a.handleGetLog},
		{pattern: "PATCH /system-logs/archive/{id}", access: superadmin, handler: a.handleArchiveLog},
		{pattern: "GET /system-logs/stream", access: superadmin, handler: a.handleLogStream},

		{pattern: "GET /products", access: public, handler: a.handleListProducts},
		{pattern: "GET /products/{id}", access: public, handler: a.handleGetProduct},
		{pattern: "POST /products", access: editors, handler: a.handleCreateProduct},
		{pattern: "PUT /products/{id}", access: editors, handler: a.handleUpdateProduct},
		{pattern: "DELETE /products/{id}", access: editors, handler: a.handleDeleteProduct},

		{pattern: "POST /orders", access: public, handler: a.handleCreateOrder},
		{pattern: "GET /orders", access: staff, handler: a.handleListOrders},
		{pattern: "PUT /orders/{id}", access: staff, handler: a.handleUpdateOrderStatus},

		{pattern: "GET /healthz", access: public, handler: a.Healthz},
		{pattern: "GET /readyz", access: public, handler: a.Ready},
	}
}

func (a *API) mount() {
	authenticate := Authenticate(a.tokens)
	for _, rt := range a.routes() {
		var h http.Handler = rt.handler
		if !rt.access.public {
			h = authenticate(Authorize(rt.access.roles...)(h))
		}
		if rt.limiter != nil {
			h = rt.limiter.Middleware(h)
		}
		a.mux.Handle(rt.pattern, h)
	}
	a.mux.Handle("GET /metrics", obs.Handler())
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Route not found.")
	})
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/bengobox/church-admin/internal/httpapi/handlers"
	"github.com/bengobox/church-admin/internal/httpapi/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps defines router construction dependencies. Nil handlers leave
// their routes unmounted.
type RouterDeps struct {
	HealthHandler      http.HandlerFunc
	ReadyHandler       http.HandlerFunc
	MetricsHandler     http.Handler
	RequireAuthHandler func(http.Handler) http.Handler
	RateLimitLogin     func(http.Handler) http.Handler
	RateLimitReset     func(http.Handler) http.Handler
	AllowedOrigins     []string
	RequestTimeout     time.Duration

	Auth     *handlers.AuthHandler
	Churches *handlers.ChurchHandler
	Users    *handlers.UserHandler
	Products *handlers.ProductHandler
	Stock    *handlers.StockHandler
	Orders   *handlers.OrderHandler
	Audit    *handlers.AuditHandler
	Stats    *handlers.StatsHandler
}

type crudHandler interface {
	Create(http.ResponseWriter, *http.Request)
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

// NewRouter wires HTTP routes.
func NewRouter(deps RouterDeps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	if deps.HealthHandler != nil {
		r.Get("/healthz", deps.HealthHandler)
	}
	if deps.ReadyHandler != nil {
		r.Get("/readyz", deps.ReadyHandler)
	}
	if deps.MetricsHandler != nil {
		r.Method("GET", "/metrics", deps.MetricsHandler)
	}
	r.Get("/docs/*", handlers.SwaggerUI)

	requireAuth := deps.RequireAuthHandler
	if requireAuth == nil {
		requireAuth = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.json", handlers.OpenAPIJSON)

		if deps.Auth != nil {
			r.With(optional(deps.RateLimitLogin)).Post("/users/login", deps.Auth.Login)
			r.With(optional(deps.RateLimitLogin)).Post("/register", deps.Auth.Register)
			r.Route("/auth/password-reset", func(r chi.Router) {
				r.Use(optional(deps.RateLimitReset))
				r.Post("/request", deps.Auth.RequestPasswordReset)
				r.Post("/confirm", deps.Auth.ConfirmPasswordReset)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			if deps.Auth != nil {
				r.Get("/users/me", deps.Auth.Me)
				r.Put("/users/me/password", deps.Auth.ChangePassword)
				r.Post("/users/logout", deps.Auth.Logout)
			}
			if deps.Churches != nil {
				mountCRUD(r, "/igrejas", deps.Churches)
			}
			if deps.Users != nil {
				mountCRUD(r, "/users", deps.Users)
			}
			if deps.Products != nil {
				mountCRUD(r, "/products", deps.Products)
			}
			if deps.Stock != nil {
				mountCRUD(r, "/stock", deps.Stock)
			}
			if deps.Orders != nil {
				mountCRUD(r, "/orders", deps.Orders)
			}
			if deps.Audit != nil {
				r.Get("/audit", deps.Audit.List)
			}
			if deps.Stats != nil {
				r.Get("/stats", deps.Stats.Summary)
			}
		})
	})

	return r
}

func mountCRUD(r chi.Router, path string, h crudHandler) {
	r.Get(path, h.List)
	r.Post(path, h.Create)
	r.Get(path+"/{id}", h.Get)
	r.Put(path+"/{id}", h.Update)
	r.Delete(path+"/{id}", h.Delete)
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bookon-app/bookon/internal/api/middlewares"
	"github.com/bookon-app/bookon/internal/config"
)

type CustomRouter struct {
	router *chi.Mux
	logger *slog.Logger
	cfg    *config.Config
}

func New(cfg *config.Config, log *slog.Logger) *CustomRouter {
	router := &CustomRouter{
		router: chi.NewRouter(),
		logger: log,
		cfg:    cfg,
	}

	return router
}

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type BookingHandler interface {
	CreateBooking(w http.ResponseWriter, r *http.Request)
	GetBookings(w http.ResponseWriter, r *http.Request)
	CancelBooking(w http.ResponseWriter, r *http.Request)
	ProviderCancelBooking(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
	GetCredits(w http.ResponseWriter, r *http.Request)
	GetRefunds(w http.ResponseWriter, r *http.Request)
}

type HealthHandler interface {
	Ping(w http.ResponseWriter, r *http.Request)
}

type Handler interface {
	AuthHandler
	BookingHandler
	WalletHandler
	HealthHandler
}

func (cr *CustomRouter) SetRouter(h Handler) {
	var secret []byte
	if cr.cfg != nil {
		secret = []byte(cr.cfg.SecretKey)
	}
	authn := middlewares.Authentication(secret, cr.logger)

	cr.router.Route("/api/parent", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Route("/bookings", func(r chi.Router) {
				r.With(middleware.AllowContentType("application/json")).
					Post("/", h.CreateBooking)
				r.Get("/", h.GetBookings)
				r.Post("/{bookingID}/cancel", h.CancelBooking)
			})

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.GetWallet)
				r.Get("/credits", h.GetCredits)
			})
			r.Get("/refunds", h.GetRefunds)
		})
	})

	cr.router.Route("/api/provider", func(r chi.Router) {
		r.Use(authn)
		r.With(middleware.AllowContentType("application/json")).
			Post("/bookings/{bookingID}/cancel", h.ProviderCancelBooking)
	})

	cr.router.Get("/ping", h.Ping)

	cr.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w,
			http.StatusText(http.StatusMethodNotAllowed),
			http.StatusMethodNotAllowed)
	})
}

func (cr *CustomRouter) GetRouter() *chi.Mux {
	return cr.router
}

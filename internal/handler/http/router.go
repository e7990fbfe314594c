package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(sessions *SessionLoader, customers *CustomerHandler, orders *OrderHandler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	router.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)
		customers.RegisterRoutes(r)
		orders.RegisterRoutes(r)
	})

	return router
}

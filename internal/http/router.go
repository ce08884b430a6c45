package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/invoicely/internal/http/assistant"
	"github.com/MrJamesThe3rd/invoicely/internal/http/category"
	"github.com/MrJamesThe3rd/invoicely/internal/http/income"
	"github.com/MrJamesThe3rd/invoicely/internal/http/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/http/recurring"
	"github.com/MrJamesThe3rd/invoicely/internal/http/summary"
)

type Handlers struct {
	Invoices   *invoice.Handler
	Income     *income.Handler
	Categories *category.Handler
	Recurring  *recurring.Handler
	Summary    *summary.Handler
	Assistant  *assistant.Handler
}

// New builds the API router. Every /api/v1 route runs behind authenticate.
func New(h Handlers, authenticate func(http.Handler) http.Handler, allowedOrigins []string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/invoices", h.Invoices.Routes)
		r.Route("/income", h.Income.Routes)
		r.Route("/categories", h.Categories.Routes)
		r.Route("/recurring", h.Recurring.Routes)
		r.Route("/summary", h.Summary.Routes)
		r.Route("/assistant", h.Assistant.Routes)
	})

	return router
}

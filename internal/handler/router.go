package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/avdeyev/score-ledger-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса баллов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Post("/api/session", h.CreateSession)
	r.Get("/ping", h.Ping)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/score", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/balance", h.GetBalance)
		r.Get("/balance/reconcile", h.GetReconciliation)
		r.Get("/transactions", h.GetTransactions)

		r.Post("/credit", h.Credit)
		r.Post("/debit", h.Debit)
		r.Post("/transfer", h.Transfer)

		r.Post("/activity/reserve", h.ReserveActivity)

		r.Get("/ranking", h.GetRanking)
		r.Get("/ranking/self", h.GetSelfRank)
	})

	r.Route("/api/envelope", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/", h.CreateEnvelope)
		r.Get("/{id}", h.GetEnvelope)
		r.Post("/{id}/claim", h.ClaimEnvelope)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

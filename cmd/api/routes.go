package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chefia-terminal-api/internal/cache"
	"chefia-terminal-api/internal/config"
	"chefia-terminal-api/internal/events"
	"chefia-terminal-api/internal/gateway"
	"chefia-terminal-api/internal/handlers"
	"chefia-terminal-api/internal/middleware"
	"chefia-terminal-api/internal/services"
)

func SetupRoutes(log *zap.Logger, gw gateway.API, requestCache *cache.Cache, bus *events.Bus, cfg config.Config) (*chi.Mux, *services.CashierService) {
	r := chi.NewRouter()

	r.Use(middleware.ExtractToken)

	// --- Services ---
	cashierService := services.NewCashierService(gw, requestCache, bus, cfg, log)

	// --- Handlers ---
	cashierHandler := handlers.NewCashierHandler(cashierService)

	// --- Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/cashier", func(r chi.Router) {
		r.Get("/status", cashierHandler.GetStatus)
		r.Get("/state", cashierHandler.GetState)
		r.Post("/open", cashierHandler.Open)
		r.Post("/close", cashierHandler.Close)
		r.Post("/withdrawal", cashierHandler.Withdraw)
		r.Post("/deposit", cashierHandler.Deposit)
		r.Get("/summary", cashierHandler.GetSummary)
		r.Get("/operations", cashierHandler.GetOperations)
		r.Post("/error/clear", cashierHandler.ClearError)
	})

	r.Route("/terminal", func(r chi.Router) {
		r.Get("/config", cashierHandler.GetConfig)
		r.Get("/contingency", cashierHandler.GetContingency)
	})

	return r, cashierService
}

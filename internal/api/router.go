package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Stock-Ledger-Backend/internal/api/middleware"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/config"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/service"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/version"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	accountService *service.AccountService,
	portfolioService *service.PortfolioService,
	cfg *config.Config,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService, version.Version)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/quote", func(r chi.Router) {
			quoteHandler := handlers.NewQuoteHandler(portfolioService)
			r.Get("/{symbol}", quoteHandler.Quote)
		})

		r.Route("/account", func(r chi.Router) {
			accountHandler := handlers.NewAccountHandler(accountService)
			portfolioHandler := handlers.NewPortfolioHandler(portfolioService)

			r.Post("/", accountHandler.CreateAccount)
			r.Get("/check", accountHandler.CheckUsername)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/cash", portfolioHandler.Cash)
				r.Get("/holdings", portfolioHandler.Holdings)
				r.Get("/portfolio", portfolioHandler.Portfolio)
				r.Get("/transactions", portfolioHandler.Transactions)
				r.Post("/buy", portfolioHandler.Buy)
				r.Post("/sell", portfolioHandler.Sell)
			})
		})
	})

	return r
}

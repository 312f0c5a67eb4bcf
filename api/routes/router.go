package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradepost/tradepost-backend/api/controllers"
	"github.com/tradepost/tradepost-backend/api/middleware"
	"github.com/tradepost/tradepost-backend/internal/pricing"
	"github.com/tradepost/tradepost-backend/internal/quotes"
	"github.com/tradepost/tradepost-backend/pkg/config"
	"github.com/tradepost/tradepost-backend/pkg/logger"
	"github.com/tradepost/tradepost-backend/pkg/metrics"
)

// Params carries everything the router wires. Redis and RateStore are nil
// when Redis is not configured.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateStore   middleware.RateLimitStore
	Quotes      quotes.Service
	Pricing     pricing.Service
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    p.DB,
			"redis": p.Redis,
		}))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	quotePolicy := middleware.NewRateLimitPolicy("quotes", cfg.Quotes.RateLimitWindow, cfg.Quotes.RateLimitPerWindow)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.App.RequestTimeout > 0 {
			r.Use(chimw.Timeout(cfg.App.RequestTimeout))
		}
		r.Use(middleware.RateLimit(quotePolicy, p.RateStore, logg))

		r.Route("/sell-orders", func(r chi.Router) {
			r.Get("/quotes", controllers.SellOrderQuotes(p.Quotes, cfg.Quotes.MaxBatchSize, logg))
			r.Get("/{orderId}/quote", controllers.SellOrderQuote(p.Quotes, logg))
			r.Get("/{orderId}/display-price", controllers.SellOrderDisplayPrice(p.Quotes, logg))
		})
		r.Get("/prices/effective", controllers.EffectivePrice(p.Pricing, logg))
	})

	return r
}

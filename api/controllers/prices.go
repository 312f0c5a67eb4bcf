package controllers

import (
	"net/http"

	"github.com/tradepost/tradepost-backend/api/responses"
	"github.com/tradepost/tradepost-backend/api/validators"
	"github.com/tradepost/tradepost-backend/internal/pricing"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

// EffectivePrice handles GET /api/v1/prices/effective. With fallback=true the
// list's own currency is used and the default location may answer.
func EffectivePrice(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q, err := validators.ParseEffectivePriceQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithPriceList(ctx, q.PriceListCode)
		}

		var price *pricing.EffectivePrice
		if q.Fallback {
			price, err = svc.CalculateEffectivePriceWithFallback(ctx, q.PriceListCode, q.Ticker, q.LocationID, q.Currency)
		} else {
			price, err = svc.CalculateEffectivePrice(ctx, q.PriceListCode, q.Ticker, q.LocationID, q.Currency)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if price == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnpriced, "no price for commodity at location").
				WithDetails(map[string]any{
					"priceListCode":   q.PriceListCode,
					"commodityTicker": q.Ticker,
					"locationId":      q.LocationID,
					"fallback":        q.Fallback,
				}))
			return
		}
		responses.WriteSuccess(w, price)
	}
}

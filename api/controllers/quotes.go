package controllers

import (
	"net/http"

	"github.com/tradepost/tradepost-backend/api/responses"
	"github.com/tradepost/tradepost-backend/api/validators"
	"github.com/tradepost/tradepost-backend/internal/quotes"
	"github.com/tradepost/tradepost-backend/pkg/logger"
	"github.com/tradepost/tradepost-backend/pkg/types"
)

// SellOrderQuotes handles GET /api/v1/sell-orders/quotes?ids=1,2,3.
// Unknown or inactive ids are listed in meta.missingIds.
func SellOrderQuotes(svc quotes.Service, maxBatch int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ids, err := validators.ParseIDList(r, "ids", maxBatch)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.QuoteSellOrders(ctx, ids)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessWithMeta(w, result, types.BatchMeta{
			Requested:  len(ids),
			Returned:   len(result),
			MissingIDs: quotes.MissingIDs(ids, result),
		})
	}
}

// SellOrderQuote handles GET /api/v1/sell-orders/{orderId}/quote.
func SellOrderQuote(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		quote, err := svc.QuoteSellOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// SellOrderDisplayPrice handles GET /api/v1/sell-orders/{orderId}/display-price.
func SellOrderDisplayPrice(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		price, err := svc.GetDisplayPrice(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, price)
	}
}

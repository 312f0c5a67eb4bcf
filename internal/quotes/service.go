package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tradepost/tradepost-backend/internal/availability"
	"github.com/tradepost/tradepost-backend/internal/pricing"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

const (
	opQuoteBatch  = "quote_sell_orders"
	opQuoteSingle = "quote_sell_order"
	opDisplay     = "display_price"

	// priceLookupConcurrency bounds dynamic price lookups within one batch.
	priceLookupConcurrency = 8
)

// OrderSummary is the part of a sell order echoed back with its quote.
type OrderSummary struct {
	ID              int64           `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	CommodityTicker string          `json:"commodityTicker"`
	LocationID      string          `json:"locationId"`
	LimitMode       enums.LimitMode `json:"limitMode"`
	LimitQuantity   *int            `json:"limitQuantity"`
	PriceListCode   *string         `json:"priceListCode"`
}

// Price is an amount in a currency.
type Price struct {
	Amount   decimal.Decimal `json:"price"`
	Currency enums.Currency  `json:"currency"`
}

// SellOrderQuote is the full read-time answer for one sell order. DisplayPrice
// is nil when a dynamic price could not be resolved.
type SellOrderQuote struct {
	Order          OrderSummary               `json:"order"`
	PricingMode    enums.PricingMode          `json:"pricingMode"`
	Quantity       availability.QuantityQuote `json:"quantity"`
	EffectivePrice *pricing.EffectivePrice    `json:"effectivePrice"`
	DisplayPrice   *Price                     `json:"displayPrice"`
}

type Service interface {
	QuoteSellOrders(ctx context.Context, orderIDs []int64) ([]SellOrderQuote, error)
	QuoteSellOrder(ctx context.Context, orderID int64) (*SellOrderQuote, error)
	GetDisplayPrice(ctx context.Context, orderID int64) (*Price, error)
}

type orderReader interface {
	FindByID(ctx context.Context, id int64) (*models.SellOrder, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.SellOrder, error)
}

type quoteMetrics interface {
	Observe(operation string, started time.Time, err error)
	IncOrders(pricingMode string)
}

type ServiceParams struct {
	Orders       orderReader
	Availability availability.Service
	Pricing      pricing.Service
	Metrics      quoteMetrics
	Logger       *logger.Logger
	MaxBatchSize int
}

type service struct {
	orders       orderReader
	availability availability.Service
	pricing      pricing.Service
	metrics      quoteMetrics
	logg         *logger.Logger
	maxBatch     int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("sell order repository required")
	}
	if params.Availability == nil {
		return nil, fmt.Errorf("availability service required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{
		orders:       params.Orders,
		availability: params.Availability,
		pricing:      params.Pricing,
		metrics:      params.Metrics,
		logg:         params.Logger,
		maxBatch:     params.MaxBatchSize,
	}, nil
}

// QuoteSellOrders quotes the active orders among orderIDs, in request order.
// Duplicate ids are quoted once; unknown or inactive ids are skipped.
func (s *service) QuoteSellOrders(ctx context.Context, orderIDs []int64) (quotes []SellOrderQuote, err error) {
	started := time.Now()
	defer func() { s.observe(opQuoteBatch, started, err) }()

	ids := dedupe(orderIDs)
	if s.maxBatch > 0 && len(ids) > s.maxBatch {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many sell orders requested").
			WithDetails(map[string]any{"max": s.maxBatch, "requested": len(ids)})
	}
	if len(ids) == 0 {
		return []SellOrderQuote{}, nil
	}

	orders, err := s.orders.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "load sell orders")
	}
	return s.quote(ctx, sortByRequest(orders, ids))
}

func (s *service) QuoteSellOrder(ctx context.Context, orderID int64) (quote *SellOrderQuote, err error) {
	started := time.Now()
	defer func() { s.observe(opQuoteSingle, started, err) }()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	quotes, err := s.quote(ctx, []models.SellOrder{*order})
	if err != nil {
		return nil, err
	}
	return &quotes[0], nil
}

// GetDisplayPrice returns the price buyers see. An unresolvable dynamic price
// is reported as CodeUnpriced rather than a zero amount.
func (s *service) GetDisplayPrice(ctx context.Context, orderID int64) (price *Price, err error) {
	started := time.Now()
	defer func() { s.observe(opDisplay, started, err) }()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	display, err := s.pricing.GetOrderDisplayPrice(ctx, *order)
	if err != nil {
		return nil, err
	}
	if display == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnpriced, "no price available for sell order").
			WithDetails(map[string]any{"sellOrderId": orderID, "priceListCode": order.PriceListCode})
	}
	return &Price{Amount: display.Price, Currency: display.Currency}, nil
}

func (s *service) loadOrder(ctx context.Context, orderID int64) (*models.SellOrder, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "load sell order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sell order not found")
	}
	return order, nil
}

func (s *service) quote(ctx context.Context, orders []models.SellOrder) ([]SellOrderQuote, error) {
	quantities, err := s.availability.EnrichSellOrdersWithQuantities(ctx, orders)
	if err != nil {
		return nil, err
	}

	quotes := make([]SellOrderQuote, len(orders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceLookupConcurrency)
	for i := range orders {
		i := i
		order := orders[i]
		quotes[i] = SellOrderQuote{
			Order:    summarize(order),
			Quantity: quantities[order.ID],
		}
		g.Go(func() error {
			display, err := s.pricing.GetOrderDisplayPrice(gctx, order)
			if err != nil {
				return err
			}
			applyDisplay(&quotes[i], order, display)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, q := range quotes {
		if s.metrics != nil {
			s.metrics.IncOrders(q.PricingMode.String())
		}
	}
	return quotes, nil
}

func applyDisplay(q *SellOrderQuote, order models.SellOrder, display *pricing.DisplayPrice) {
	if !order.UsesDynamicPricing() {
		q.PricingMode = enums.PricingModeFixed
	} else {
		q.PricingMode = enums.PricingModeDynamic
	}
	if display == nil {
		return
	}
	q.DisplayPrice = &Price{Amount: display.Price, Currency: display.Currency}
	q.EffectivePrice = display.Effective
}

func (s *service) observe(op string, started time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Observe(op, started, err)
	}
}

func summarize(order models.SellOrder) OrderSummary {
	return OrderSummary{
		ID:              order.ID,
		UserID:          order.UserID,
		CommodityTicker: order.CommodityTicker,
		LocationID:      order.LocationID,
		LimitMode:       order.LimitMode,
		LimitQuantity:   order.LimitQuantity,
		PriceListCode:   order.PriceListCode,
	}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortByRequest(orders []models.SellOrder, ids []int64) []models.SellOrder {
	byID := make(map[int64]models.SellOrder, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	out := make([]models.SellOrder, 0, len(orders))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// MissingIDs lists requested ids with no quote, in request order.
func MissingIDs(requested []int64, quotes []SellOrderQuote) []int64 {
	found := make(map[int64]struct{}, len(quotes))
	for _, q := range quotes {
		found[q.Order.ID] = struct{}{}
	}
	missing := []int64{}
	for _, id := range dedupe(requested) {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

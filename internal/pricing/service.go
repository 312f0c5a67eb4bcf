package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

// EffectivePrice is a base price with its adjustment breakdown.
type EffectivePrice struct {
	PriceListCode       string              `json:"priceListCode"`
	CommodityTicker     string              `json:"commodityTicker"`
	CommodityName       *string             `json:"commodityName"`
	LocationID          string              `json:"locationId"`
	LocationName        *string             `json:"locationName"`
	Currency            enums.Currency      `json:"currency"`
	BasePrice           decimal.Decimal     `json:"basePrice"`
	Adjustments         []AppliedAdjustment `json:"adjustments"`
	FinalPrice          decimal.Decimal     `json:"finalPrice"`
	Source              enums.PriceSource   `json:"source"`
	SourceReference     *string             `json:"sourceReference,omitempty"`
	IsFallback          bool                `json:"isFallback"`
	RequestedLocationID *string             `json:"requestedLocationId,omitempty"`
}

// DisplayPrice is what a sell order shows buyers. Effective is set only for
// dynamically priced orders.
type DisplayPrice struct {
	Price     decimal.Decimal   `json:"price"`
	Currency  enums.Currency    `json:"currency"`
	Mode      enums.PricingMode `json:"pricingMode"`
	Effective *EffectivePrice   `json:"effectivePrice,omitempty"`
}

// Service resolves prices. Every method returns nil, nil when no price can be
// produced; errors are reserved for failed reads.
type Service interface {
	CalculateEffectivePrice(ctx context.Context, priceListCode, ticker, locationID string, currency enums.Currency) (*EffectivePrice, error)
	CalculateEffectivePriceWithFallback(ctx context.Context, priceListCode, ticker, locationID string, currency enums.Currency) (*EffectivePrice, error)
	GetOrderDisplayPrice(ctx context.Context, order models.SellOrder) (*DisplayPrice, error)
}

type priceMetrics interface {
	IncFallback(priceList string)
	IncUnresolved(priceList string)
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics priceMetrics
	now     func() time.Time
}

func NewService(repo Repository, logg *logger.Logger, metrics priceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg, metrics: metrics, now: time.Now}, nil
}

func (s *service) CalculateEffectivePrice(ctx context.Context, priceListCode, ticker, locationID string, currency enums.Currency) (*EffectivePrice, error) {
	code := normalizeCode(priceListCode)
	ticker = normalizeCode(ticker)

	row, err := s.repo.FindPrice(ctx, code, ticker, locationID, currency)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "load price")
	}
	if row == nil {
		return nil, nil
	}

	rules, err := s.repo.ListCandidateAdjustments(ctx, code, ticker, locationID)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "load price adjustments")
	}
	final, applied := ApplyAdjustments(row.Price, ActiveAt(rules, s.now()))

	return &EffectivePrice{
		PriceListCode:   code,
		CommodityTicker: ticker,
		CommodityName:   row.CommodityName,
		LocationID:      locationID,
		LocationName:    row.LocationName,
		Currency:        row.Currency,
		BasePrice:       row.Price,
		Adjustments:     applied,
		FinalPrice:      final,
		Source:          row.Source,
		SourceReference: row.SourceReference,
	}, nil
}

// CalculateEffectivePriceWithFallback prices in the list's own currency; the
// currency argument is ignored so an order's stored currency cannot mask the
// live one. One retry at the list's default location is allowed.
func (s *service) CalculateEffectivePriceWithFallback(ctx context.Context, priceListCode, ticker, locationID string, _ enums.Currency) (*EffectivePrice, error) {
	code := normalizeCode(priceListCode)
	list, err := s.repo.FindPriceList(ctx, code)
	if err != nil {
		return nil, pkgerrors.Dependency(err, "load price list")
	}
	if list == nil {
		return nil, nil
	}

	price, err := s.CalculateEffectivePrice(ctx, code, ticker, locationID, list.Currency)
	if err != nil || price != nil {
		return price, err
	}

	if list.DefaultLocationID == nil || *list.DefaultLocationID == locationID {
		return nil, nil
	}
	price, err = s.CalculateEffectivePrice(ctx, code, ticker, *list.DefaultLocationID, list.Currency)
	if err != nil || price == nil {
		return nil, err
	}

	requested := locationID
	price.IsFallback = true
	price.RequestedLocationID = &requested
	if s.metrics != nil {
		s.metrics.IncFallback(code)
	}
	s.logg.Debug(s.logg.WithFields(s.logg.WithPriceList(ctx, code), map[string]any{
		"requested_location": locationID,
		"fallback_location":  *list.DefaultLocationID,
	}), "price resolved at default location")
	return price, nil
}

func (s *service) GetOrderDisplayPrice(ctx context.Context, order models.SellOrder) (*DisplayPrice, error) {
	if !order.UsesDynamicPricing() {
		return &DisplayPrice{
			Price:    order.Price,
			Currency: order.Currency,
			Mode:     enums.PricingModeFixed,
		}, nil
	}

	code := *order.PriceListCode
	price, err := s.CalculateEffectivePriceWithFallback(ctx, code, order.CommodityTicker, order.LocationID, order.Currency)
	if err != nil {
		return nil, err
	}
	if price == nil {
		if s.metrics != nil {
			s.metrics.IncUnresolved(normalizeCode(code))
		}
		s.logg.Warn(s.logg.WithOrderID(s.logg.WithPriceList(ctx, code), order.ID), "no price for dynamically priced order")
		return nil, nil
	}
	return &DisplayPrice{
		Price:     price.FinalPrice,
		Currency:  price.Currency,
		Mode:      enums.PricingModeDynamic,
		Effective: price,
	}, nil
}

func normalizeCode(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

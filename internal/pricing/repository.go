package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// PriceRow is a price joined with its list currency and display names.
type PriceRow struct {
	PriceListCode   string            `gorm:"column:price_list_code"`
	CommodityTicker string            `gorm:"column:commodity_ticker"`
	LocationID      string            `gorm:"column:location_id"`
	Price           decimal.Decimal   `gorm:"column:price"`
	Source          enums.PriceSource `gorm:"column:source"`
	SourceReference *string           `gorm:"column:source_reference"`
	Currency        enums.Currency    `gorm:"column:currency"`
	CommodityName   *string           `gorm:"column:commodity_name"`
	LocationName    *string           `gorm:"column:location_name"`
}

type Repository interface {
	FindPriceList(ctx context.Context, code string) (*models.PriceList, error)
	FindPrice(ctx context.Context, priceListCode, ticker, locationID string, currency enums.Currency) (*PriceRow, error)
	ListCandidateAdjustments(ctx context.Context, priceListCode, ticker, locationID string) ([]models.PriceAdjustment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

// FindPriceList returns nil, nil for an unknown code.
func (r *repository) FindPriceList(ctx context.Context, code string) (*models.PriceList, error) {
	var list models.PriceList
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// FindPrice returns nil, nil when no row exists for the exact key or when the
// list is priced in another currency. Missing display names are tolerated.
func (r *repository) FindPrice(ctx context.Context, priceListCode, ticker, locationID string, currency enums.Currency) (*PriceRow, error) {
	var row PriceRow
	res := r.db.WithContext(ctx).
		Table("prices AS p").
		Select(`p.price_list_code, p.commodity_ticker, p.location_id, p.price, p.source, p.source_reference,
			pl.currency, c.name AS commodity_name, l.name AS location_name`).
		Joins("JOIN price_lists pl ON pl.code = p.price_list_code").
		Joins("LEFT JOIN commodities c ON c.ticker = p.commodity_ticker").
		Joins("LEFT JOIN locations l ON l.id = p.location_id").
		Where("p.price_list_code = ? AND p.commodity_ticker = ? AND p.location_id = ? AND pl.currency = ?",
			priceListCode, ticker, locationID, currency.String()).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

// ListCandidateAdjustments returns active rules whose scope matches or is a
// wildcard. The effective window is checked by the caller against its clock.
func (r *repository) ListCandidateAdjustments(ctx context.Context, priceListCode, ticker, locationID string) ([]models.PriceAdjustment, error) {
	var rules []models.PriceAdjustment
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("price_list_code IS NULL OR price_list_code = ?", priceListCode).
		Where("commodity_ticker IS NULL OR commodity_ticker = ?", ticker).
		Where("location_id IS NULL OR location_id = ?", locationID).
		Order("priority ASC").
		Order("id ASC").
		Find(&rules).Error
	return rules, err
}

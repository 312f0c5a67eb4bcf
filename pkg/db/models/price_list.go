package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// PriceList is a currency-scoped catalog of base prices.
type PriceList struct {
	Code              string         `gorm:"column:code;primaryKey"`
	Name              string         `gorm:"column:name;not null"`
	Currency          enums.Currency `gorm:"column:currency;type:text;not null"`
	DefaultLocationID *string        `gorm:"column:default_location_id"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// Price is the base price of a commodity at a location within a price list.
type Price struct {
	ID              int64             `gorm:"column:id;primaryKey;autoIncrement"`
	PriceListCode   string            `gorm:"column:price_list_code;not null;uniqueIndex:uq_prices_list_ticker_location,priority:1"`
	CommodityTicker string            `gorm:"column:commodity_ticker;not null;uniqueIndex:uq_prices_list_ticker_location,priority:2"`
	LocationID      string            `gorm:"column:location_id;not null;uniqueIndex:uq_prices_list_ticker_location,priority:3"`
	Price           decimal.Decimal   `gorm:"column:price;type:numeric(14,2);not null"`
	Source          enums.PriceSource `gorm:"column:source;type:text;not null;default:'manual'"`
	SourceReference *string           `gorm:"column:source_reference"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceAdjustment modifies base prices. Nil scope fields match anything.
type PriceAdjustment struct {
	ID              int64                `gorm:"column:id;primaryKey;autoIncrement"`
	PriceListCode   *string              `gorm:"column:price_list_code"`
	CommodityTicker *string              `gorm:"column:commodity_ticker"`
	LocationID      *string              `gorm:"column:location_id"`
	AdjustmentType  enums.AdjustmentType `gorm:"column:adjustment_type;type:text;not null"`
	Value           decimal.Decimal      `gorm:"column:value;type:numeric(14,4);not null"`
	Priority        int                  `gorm:"column:priority;not null;default:0"`
	IsActive        bool                 `gorm:"column:is_active;not null;default:true"`
	EffectiveFrom   *time.Time           `gorm:"column:effective_from"`
	EffectiveUntil  *time.Time           `gorm:"column:effective_until"`
	Description     *string              `gorm:"column:description"`
}

// InWindow reports whether now falls in [EffectiveFrom, EffectiveUntil).
func (a PriceAdjustment) InWindow(now time.Time) bool {
	if a.EffectiveFrom != nil && now.Before(*a.EffectiveFrom) {
		return false
	}
	if a.EffectiveUntil != nil && !now.Before(*a.EffectiveUntil) {
		return false
	}
	return true
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// SellOrder offers a user's commodity at a location. A zero Price together
// with a PriceListCode means the price is computed from the list.
type SellOrder struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	CommodityTicker string          `gorm:"column:commodity_ticker;not null"`
	LocationID      string          `gorm:"column:location_id;not null"`
	LimitMode       enums.LimitMode `gorm:"column:limit_mode;type:text;not null;default:'none'"`
	LimitQuantity   *int            `gorm:"column:limit_quantity"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null;default:0"`
	Currency        enums.Currency  `gorm:"column:currency;type:text;not null"`
	PriceListCode   *string         `gorm:"column:price_list_code"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// UsesDynamicPricing reports whether the order's price comes from its price list.
func (o SellOrder) UsesDynamicPricing() bool {
	return o.PriceListCode != nil && o.Price.IsZero()
}

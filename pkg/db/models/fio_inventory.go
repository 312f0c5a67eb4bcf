package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord is one storage unit's holding of a commodity as last synced
// from FIO. Several records may share a (user, ticker, location) key.
type InventoryRecord struct {
	ID              int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:idx_fio_inventory_user"`
	CommodityTicker string     `gorm:"column:commodity_ticker;not null"`
	LocationID      string     `gorm:"column:location_id;not null"`
	StorageID       string     `gorm:"column:storage_id;not null"`
	Quantity        int        `gorm:"column:quantity;not null;default:0"`
	LastSyncedAt    *time.Time `gorm:"column:last_synced_at"`
}

func (InventoryRecord) TableName() string {
	return "fio_inventory"
}

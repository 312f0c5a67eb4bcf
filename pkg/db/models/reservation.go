package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// Reservation holds part of a sell order's quantity for a buyer.
type Reservation struct {
	ID              int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	SellOrderID     int64                   `gorm:"column:sell_order_id;not null;index:idx_reservations_order_status,priority:1"`
	BuyerUserID     uuid.UUID               `gorm:"column:buyer_user_id;type:uuid;not null"`
	Quantity        int                     `gorm:"column:quantity;not null"`
	Status          enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'pending';index:idx_reservations_order_status,priority:2"`
	StatusChangedAt time.Time               `gorm:"column:status_changed_at;not null"`
	ExpiresAt       *time.Time              `gorm:"column:expires_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}

package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// InventoryKey identifies one user's stock of a commodity at a location.
type InventoryKey struct {
	UserID          uuid.UUID
	CommodityTicker string
	LocationID      string
}

// InventoryTotal sums every storage unit for a key. LastSyncedAt is the most
// recent non-null sync among them.
type InventoryTotal struct {
	Quantity     int
	LastSyncedAt *time.Time
}

// ReservationStats summarises the counted reservations of one sell order.
type ReservationStats struct {
	ActiveCount       int
	ReservedQuantity  int
	FulfilledQuantity int
	Fulfilled         []FulfilledReservation
}

type Repository interface {
	GetInventoryForUsers(ctx context.Context, userIDs []uuid.UUID) (map[InventoryKey]InventoryTotal, error)
	GetReservationStatsForOrders(ctx context.Context, orderIDs []int64) (map[int64]ReservationStats, error)
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

func (r *repository) GetInventoryForUsers(ctx context.Context, userIDs []uuid.UUID) (map[InventoryKey]InventoryTotal, error) {
	totals := make(map[InventoryKey]InventoryTotal)
	if len(userIDs) == 0 {
		return totals, nil
	}

	var rows []models.InventoryRecord
	err := r.db.WithContext(ctx).
		Select("user_id", "commodity_ticker", "location_id", "quantity", "last_synced_at").
		Where("user_id IN ?", userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		key := InventoryKey{UserID: row.UserID, CommodityTicker: row.CommodityTicker, LocationID: row.LocationID}
		total := totals[key]
		total.Quantity += row.Quantity
		if row.LastSyncedAt != nil && (total.LastSyncedAt == nil || row.LastSyncedAt.After(*total.LastSyncedAt)) {
			synced := *row.LastSyncedAt
			total.LastSyncedAt = &synced
		}
		totals[key] = total
	}
	return totals, nil
}

func (r *repository) GetReservationStatsForOrders(ctx context.Context, orderIDs []int64) (map[int64]ReservationStats, error) {
	stats := make(map[int64]ReservationStats)
	if len(orderIDs) == 0 {
		return stats, nil
	}

	statuses := make([]string, 0, len(enums.CountedReservationStatuses))
	for _, status := range enums.CountedReservationStatuses {
		statuses = append(statuses, status.String())
	}

	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Select("id", "sell_order_id", "quantity", "status", "status_changed_at", "expires_at").
		Where("sell_order_id IN ? AND status IN ?", orderIDs, statuses).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		entry := stats[row.SellOrderID]
		switch {
		case row.Status.IsActive():
			entry.ActiveCount++
			entry.ReservedQuantity += row.Quantity
		case row.Status == enums.ReservationStatusFulfilled:
			entry.FulfilledQuantity += row.Quantity
			entry.Fulfilled = append(entry.Fulfilled, FulfilledReservation{
				Quantity:        row.Quantity,
				StatusChangedAt: row.StatusChangedAt,
				ExpiresAt:       row.ExpiresAt,
			})
		}
		stats[row.SellOrderID] = entry
	}
	return stats, nil
}

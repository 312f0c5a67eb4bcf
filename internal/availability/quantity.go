package availability

import (
	"time"

	"github.com/tradepost/tradepost-backend/pkg/enums"
)

// CalculateAvailableQuantity applies a sell order's limit policy to the raw
// synced quantity. Unknown modes are treated as none.
func CalculateAvailableQuantity(raw int, mode enums.LimitMode, limit *int) int {
	switch mode {
	case enums.LimitModeMaxSell:
		// no limit configured means nothing is sellable
		return min(raw, deref(limit))
	case enums.LimitModeReserve:
		return max(0, raw-deref(limit))
	default:
		return raw
	}
}

// FulfilledReservation is the slice of a fulfilled reservation needed to
// decide whether the synced inventory already reflects it.
type FulfilledReservation struct {
	Quantity        int
	StatusChangedAt time.Time
	ExpiresAt       *time.Time
}

// CalculateEffectiveFulfilledQuantity sums the fulfilled quantity the last
// FIO sync has not caught up with yet.
//
// With a sync time, a reservation counts unless the sync happened strictly
// after it was fulfilled; equal timestamps count. Without one, it counts
// unless it expired strictly before now.
func CalculateEffectiveFulfilledQuantity(reservations []FulfilledReservation, lastSyncAt *time.Time, now time.Time) int {
	total := 0
	for _, r := range reservations {
		if lastSyncAt != nil {
			if lastSyncAt.After(r.StatusChangedAt) {
				continue
			}
		} else if r.ExpiresAt != nil && r.ExpiresAt.Before(now) {
			continue
		}
		total += r.Quantity
	}
	return total
}

// RemainingQuantity never goes below zero, however much is promised away.
func RemainingQuantity(available, reserved, fulfilled int) int {
	return max(0, available-reserved-fulfilled)
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

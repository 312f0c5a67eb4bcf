package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tradepost/tradepost-backend/internal/settings"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

// QuantityQuote is recomputed on every request and never cached.
type QuantityQuote struct {
	FIOQuantity            int        `json:"fioQuantity"`
	AvailableQuantity      int        `json:"availableQuantity"`
	ReservedQuantity       int        `json:"reservedQuantity"`
	FulfilledQuantity      int        `json:"fulfilledQuantity"`
	RemainingQuantity      int        `json:"remainingQuantity"`
	ActiveReservationCount int        `json:"activeReservationCount"`
	LastSyncedAt           *time.Time `json:"lastSyncedAt"`
	IsStale                bool       `json:"isStale"`
}

type Service interface {
	EnrichSellOrdersWithQuantities(ctx context.Context, orders []models.SellOrder) (map[int64]QuantityQuote, error)
}

type durationReader interface {
	Duration(ctx context.Context, key string, def time.Duration) time.Duration
}

type service struct {
	repo       Repository
	settings   durationReader
	staleAfter time.Duration
	now        func() time.Time
}

// NewService wires the resolver. reader may be nil, in which case
// staleAfter is used as is.
func NewService(repo Repository, reader durationReader, staleAfter time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	return &service{
		repo:       repo,
		settings:   reader,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

func (s *service) EnrichSellOrdersWithQuantities(ctx context.Context, orders []models.SellOrder) (map[int64]QuantityQuote, error) {
	quotes := make(map[int64]QuantityQuote, len(orders))
	if len(orders) == 0 {
		return quotes, nil
	}

	userIDs, orderIDs := distinctIDs(orders)

	var (
		inventory    map[InventoryKey]InventoryTotal
		reservations map[int64]ReservationStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.repo.GetInventoryForUsers(gctx, userIDs)
		if err != nil {
			return pkgerrors.Dependency(err, "load fio inventory")
		}
		inventory = result
		return nil
	})
	g.Go(func() error {
		result, err := s.repo.GetReservationStatsForOrders(gctx, orderIDs)
		if err != nil {
			return pkgerrors.Dependency(err, "load reservation stats")
		}
		reservations = result
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	staleAfter := s.staleWindow(ctx)
	for _, order := range orders {
		stock := inventory[InventoryKey{
			UserID:          order.UserID,
			CommodityTicker: order.CommodityTicker,
			LocationID:      order.LocationID,
		}]
		stats := reservations[order.ID]

		available := CalculateAvailableQuantity(stock.Quantity, order.LimitMode, order.LimitQuantity)
		fulfilled := CalculateEffectiveFulfilledQuantity(stats.Fulfilled, stock.LastSyncedAt, now)

		quotes[order.ID] = QuantityQuote{
			FIOQuantity:            stock.Quantity,
			AvailableQuantity:      available,
			ReservedQuantity:       stats.ReservedQuantity,
			FulfilledQuantity:      fulfilled,
			RemainingQuantity:      RemainingQuantity(available, stats.ReservedQuantity, fulfilled),
			ActiveReservationCount: stats.ActiveCount,
			LastSyncedAt:           stock.LastSyncedAt,
			IsStale:                isStale(stock.LastSyncedAt, now, staleAfter),
		}
	}
	return quotes, nil
}

func (s *service) staleWindow(ctx context.Context) time.Duration {
	if s.settings == nil {
		return s.staleAfter
	}
	return s.settings.Duration(ctx, settings.KeyInventoryStaleAfter, s.staleAfter)
}

// isStale never affects quantities. A zero window only flags missing syncs.
func isStale(lastSync *time.Time, now time.Time, window time.Duration) bool {
	if lastSync == nil {
		return true
	}
	if window <= 0 {
		return false
	}
	return now.Sub(*lastSync) > window
}

func distinctIDs(orders []models.SellOrder) ([]uuid.UUID, []int64) {
	seenUsers := make(map[uuid.UUID]struct{}, len(orders))
	seenOrders := make(map[int64]struct{}, len(orders))
	userIDs := make([]uuid.UUID, 0, len(orders))
	orderIDs := make([]int64, 0, len(orders))
	for _, order := range orders {
		if _, ok := seenUsers[order.UserID]; !ok {
			seenUsers[order.UserID] = struct{}{}
			userIDs = append(userIDs, order.UserID)
		}
		if _, ok := seenOrders[order.ID]; !ok {
			seenOrders[order.ID] = struct{}{}
			orderIDs = append(orderIDs, order.ID)
		}
	}
	return userIDs, orderIDs
}

package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/enums"
	pkgerrors "github.com/tradepost/tradepost-backend/pkg/errors"
)

func TestEnrichSellOrdersWithQuantities(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seller := uuid.New()
	syncedAt := now.Add(-time.Hour)

	repo := &stubRepo{
		inventory: map[InventoryKey]InventoryTotal{
			{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT"}: {Quantity: 100, LastSyncedAt: &syncedAt},
		},
		stats: map[int64]ReservationStats{
			1: {
				ActiveCount:       2,
				ReservedQuantity:  30,
				FulfilledQuantity: 70,
				Fulfilled: []FulfilledReservation{
					{Quantity: 50, StatusChangedAt: now.Add(-2 * time.Hour)},
					{Quantity: 20, StatusChangedAt: now.Add(-30 * time.Minute)},
				},
			},
		},
	}
	svc := newTestService(t, repo, nil, 6*time.Hour, now)

	orders := []models.SellOrder{
		{ID: 1, UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", LimitMode: enums.LimitModeMaxSell, LimitQuantity: intPtr(80)},
		{ID: 2, UserID: seller, CommodityTicker: "DW", LocationID: "ANT", LimitMode: enums.LimitModeNone},
	}
	quotes, err := svc.EnrichSellOrdersWithQuantities(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	q := quotes[1]
	assert.Equal(t, 100, q.FIOQuantity)
	assert.Equal(t, 80, q.AvailableQuantity)
	assert.Equal(t, 30, q.ReservedQuantity)
	assert.Equal(t, 20, q.FulfilledQuantity, "fulfillment older than the sync is already reflected")
	assert.Equal(t, 30, q.RemainingQuantity)
	assert.Equal(t, 2, q.ActiveReservationCount)
	require.NotNil(t, q.LastSyncedAt)
	assert.False(t, q.IsStale)

	missing := quotes[2]
	assert.Equal(t, QuantityQuote{IsStale: true}, missing, "absent inventory and reservations read as zero")

	assert.Equal(t, []uuid.UUID{seller}, repo.userIDs, "user ids are de-duplicated")
	assert.ElementsMatch(t, []int64{1, 2}, repo.orderIDs)
}

func TestEnrichNeverReturnsNegativeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seller := uuid.New()
	repo := &stubRepo{
		inventory: map[InventoryKey]InventoryTotal{
			{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT"}: {Quantity: 10},
		},
		stats: map[int64]ReservationStats{
			7: {
				ActiveCount:      1,
				ReservedQuantity: 500,
				Fulfilled:        []FulfilledReservation{{Quantity: 900, StatusChangedAt: now}},
			},
		},
	}
	svc := newTestService(t, repo, nil, time.Hour, now)

	quotes, err := svc.EnrichSellOrdersWithQuantities(context.Background(), []models.SellOrder{
		{ID: 7, UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", LimitMode: enums.LimitModeNone},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, quotes[7].RemainingQuantity)
	assert.Equal(t, 900, quotes[7].FulfilledQuantity, "without a sync, unexpired fulfillments count")
}

func TestEnrichPropagatesReadFailures(t *testing.T) {
	orders := []models.SellOrder{{ID: 1, UserID: uuid.New(), LimitMode: enums.LimitModeNone}}

	for name, repo := range map[string]*stubRepo{
		"inventory":    {inventoryErr: errors.New("inventory offline")},
		"reservations": {statsErr: errors.New("reservations offline")},
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, repo, nil, time.Hour, time.Now())
			quotes, err := svc.EnrichSellOrdersWithQuantities(context.Background(), orders)
			require.Error(t, err)
			assert.Nil(t, quotes)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
		})
	}
}

func TestEnrichIssuesReadsConcurrently(t *testing.T) {
	repo := &stubRepo{barrier: newBarrier(2)}
	svc := newTestService(t, repo, nil, time.Hour, time.Now())

	done := make(chan error, 1)
	go func() {
		_, err := svc.EnrichSellOrdersWithQuantities(context.Background(), []models.SellOrder{{ID: 1, UserID: uuid.New()}})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("inventory and reservation reads did not run concurrently")
	}
}

func TestEnrichEmptyBatchSkipsReads(t *testing.T) {
	repo := &stubRepo{inventoryErr: errors.New("should not be called")}
	svc := newTestService(t, repo, nil, time.Hour, time.Now())
	quotes, err := svc.EnrichSellOrdersWithQuantities(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestEnrichStalenessUsesSettingOverride(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seller := uuid.New()
	syncedAt := now.Add(-3 * time.Hour)
	repo := &stubRepo{
		inventory: map[InventoryKey]InventoryTotal{
			{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT"}: {Quantity: 5, LastSyncedAt: &syncedAt},
		},
	}
	order := []models.SellOrder{{ID: 1, UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", Price: decimal.NewFromInt(10)}}

	svc := newTestService(t, repo, nil, 6*time.Hour, now)
	quotes, err := svc.EnrichSellOrdersWithQuantities(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, quotes[1].IsStale)

	svc = newTestService(t, repo, fixedDuration(2*time.Hour), 6*time.Hour, now)
	quotes, err = svc.EnrichSellOrdersWithQuantities(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, quotes[1].IsStale)
	assert.Equal(t, 5, quotes[1].RemainingQuantity, "staleness never changes quantities")
}

func TestEnrichAgainstSQLite(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	seller := uuid.New()
	syncedAt := now.Add(-time.Hour)

	require.NoError(t, db.Create(&[]models.InventoryRecord{
		{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", StorageID: "a", Quantity: 60, LastSyncedAt: &syncedAt},
		{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", StorageID: "b", Quantity: 40},
	}).Error)
	order := models.SellOrder{UserID: seller, CommodityTicker: "RAT", LocationID: "ANT", LimitMode: enums.LimitModeReserve, LimitQuantity: intPtr(10), Currency: enums.CurrencyCIS}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&[]models.Reservation{
		{SellOrderID: order.ID, BuyerUserID: uuid.New(), Quantity: 20, Status: enums.ReservationStatusConfirmed, StatusChangedAt: now},
		{SellOrderID: order.ID, BuyerUserID: uuid.New(), Quantity: 50, Status: enums.ReservationStatusFulfilled, StatusChangedAt: now.Add(-2 * time.Hour)},
		{SellOrderID: order.ID, BuyerUserID: uuid.New(), Quantity: 15, Status: enums.ReservationStatusFulfilled, StatusChangedAt: now.Add(-30 * time.Minute)},
	}).Error)

	svc, err := NewService(NewRepository(db), nil, 6*time.Hour)
	require.NoError(t, err)

	quotes, err := svc.EnrichSellOrdersWithQuantities(context.Background(), []models.SellOrder{order})
	require.NoError(t, err)
	q := quotes[order.ID]
	assert.Equal(t, 100, q.FIOQuantity)
	assert.Equal(t, 90, q.AvailableQuantity)
	assert.Equal(t, 20, q.ReservedQuantity)
	assert.Equal(t, 15, q.FulfilledQuantity)
	assert.Equal(t, 55, q.RemainingQuantity)
	assert.Equal(t, 1, q.ActiveReservationCount)
}

func newTestService(t *testing.T, repo Repository, reader durationReader, staleAfter time.Duration, now time.Time) *service {
	t.Helper()
	svcIface, err := NewService(repo, reader, staleAfter)
	require.NoError(t, err)
	svc, ok := svcIface.(*service)
	require.True(t, ok)
	svc.now = func() time.Time { return now }
	return svc
}

type fixedDuration time.Duration

func (f fixedDuration) Duration(ctx context.Context, key string, def time.Duration) time.Duration {
	return time.Duration(f)
}

type barrier struct {
	wg sync.WaitGroup
}

func newBarrier(n int) *barrier {
	b := &barrier{}
	b.wg.Add(n)
	return b
}

// arrive blocks until every participant has arrived.
func (b *barrier) arrive() {
	b.wg.Done()
	b.wg.Wait()
}

type stubRepo struct {
	mu           sync.Mutex
	inventory    map[InventoryKey]InventoryTotal
	stats        map[int64]ReservationStats
	inventoryErr error
	statsErr     error
	barrier      *barrier
	userIDs      []uuid.UUID
	orderIDs     []int64
}

func (s *stubRepo) GetInventoryForUsers(ctx context.Context, userIDs []uuid.UUID) (map[InventoryKey]InventoryTotal, error) {
	if s.barrier != nil {
		s.barrier.arrive()
	}
	s.mu.Lock()
	s.userIDs = userIDs
	s.mu.Unlock()
	if s.inventoryErr != nil {
		return nil, s.inventoryErr
	}
	return s.inventory, nil
}

func (s *stubRepo) GetReservationStatsForOrders(ctx context.Context, orderIDs []int64) (map[int64]ReservationStats, error) {
	if s.barrier != nil {
		s.barrier.arrive()
	}
	s.mu.Lock()
	s.orderIDs = orderIDs
	s.mu.Unlock()
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return s.stats, nil
}

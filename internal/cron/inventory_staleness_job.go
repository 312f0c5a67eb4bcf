package cron

import (
	"context"
	"fmt"

	"github.com/tradepost/tradepost-backend/internal/availability"
	"github.com/tradepost/tradepost-backend/pkg/db/models"
	"github.com/tradepost/tradepost-backend/pkg/logger"
)

const staleReportPageSize = 500

type activeOrderLister interface {
	ListActive(ctx context.Context, afterID int64, limit int) ([]models.SellOrder, error)
}

type staleGauge interface {
	SetStaleOrders(count int)
}

type InventoryStalenessJobParams struct {
	Logger       *logger.Logger
	Orders       activeOrderLister
	Availability availability.Service
	Gauge        staleGauge
	PageSize     int
}

// NewInventoryStalenessJob reports how many active sell orders are quoted
// from a missing or outdated inventory sync. It never modifies data.
func NewInventoryStalenessJob(params InventoryStalenessJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("sell order repository required")
	}
	if params.Availability == nil {
		return nil, fmt.Errorf("availability service required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = staleReportPageSize
	}
	return &inventoryStalenessJob{
		logg:         params.Logger,
		orders:       params.Orders,
		availability: params.Availability,
		gauge:        params.Gauge,
		pageSize:     pageSize,
	}, nil
}

type inventoryStalenessJob struct {
	logg         *logger.Logger
	orders       activeOrderLister
	availability availability.Service
	gauge        staleGauge
	pageSize     int
}

func (j *inventoryStalenessJob) Name() string { return "inventory-staleness-report" }

func (j *inventoryStalenessJob) Run(ctx context.Context) error {
	var (
		afterID int64
		scanned int
		stale   int
		unsold  int
	)
	for {
		page, err := j.orders.ListActive(ctx, afterID, j.pageSize)
		if err != nil {
			return fmt.Errorf("list active sell orders: %w", err)
		}
		if len(page) == 0 {
			break
		}
		quotes, err := j.availability.EnrichSellOrdersWithQuantities(ctx, page)
		if err != nil {
			return fmt.Errorf("quote page after %d: %w", afterID, err)
		}
		for _, order := range page {
			q := quotes[order.ID]
			if q.IsStale {
				stale++
			}
			if q.RemainingQuantity == 0 {
				unsold++
			}
		}
		scanned += len(page)
		afterID = page[len(page)-1].ID
		if len(page) < j.pageSize {
			break
		}
	}

	if j.gauge != nil {
		j.gauge.SetStaleOrders(stale)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"orders_scanned":   scanned,
		"orders_stale":     stale,
		"orders_exhausted": unsold,
	}), "inventory staleness report complete")
	return nil
}

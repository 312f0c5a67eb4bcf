package sellorders

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
)

// Repository reads sell orders. Writes belong to the order management flow.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*models.SellOrder, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.SellOrder, error)
	ListActive(ctx context.Context, afterID int64, limit int) ([]models.SellOrder, error)
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

// FindByID returns nil, nil when the order does not exist or is inactive.
func (r *repository) FindByID(ctx context.Context, id int64) (*models.SellOrder, error) {
	var order models.SellOrder
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDs returns the active orders among ids ordered by id. Unknown ids are
// skipped.
func (r *repository) FindByIDs(ctx context.Context, ids []int64) ([]models.SellOrder, error) {
	if len(ids) == 0 {
		return []models.SellOrder{}, nil
	}
	var orders []models.SellOrder
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListActive pages through active orders by id (keyset).
func (r *repository) ListActive(ctx context.Context, afterID int64, limit int) ([]models.SellOrder, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	var orders []models.SellOrder
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND id > ?", true, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

const DefaultPageSize = 500

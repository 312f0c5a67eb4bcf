package settings

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tradepost/tradepost-backend/pkg/db/models"
)

// Repository reads the generic settings table. This service never writes it.
type Repository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	ListUpdatedSince(ctx context.Context, since time.Time) ([]models.Setting, error)
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

// Get returns nil, nil when the key does not exist.
func (r *repository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where(map[string]any{"key": key}).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) ListUpdatedSince(ctx context.Context, since time.Time) ([]models.Setting, error) {
	var rows []models.Setting
	err := r.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Order("key ASC").
		Find(&rows).Error
	return rows, err
}

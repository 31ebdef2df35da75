package repository

import (
	"context"
	"strings"

	"github.com/amirphl/parts-pricing/models"
	"gorm.io/gorm"
)

// DeviceModelRepositoryImpl implements DeviceModelRepository
type DeviceModelRepositoryImpl struct {
	*BaseRepository[models.DeviceModel, models.DeviceModelFilter]
}

// NewDeviceModelRepository creates a new device catalog repository
func NewDeviceModelRepository(db *gorm.DB) DeviceModelRepository {
	return &DeviceModelRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DeviceModel, models.DeviceModelFilter](db),
	}
}

func (r *DeviceModelRepositoryImpl) applyFilter(db *gorm.DB, filter models.DeviceModelFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ModelName != nil {
		db = db.Where("model_name = ?", *filter.ModelName)
	}
	if filter.Category != nil && *filter.Category != "" {
		db = db.Where("category = ?", *filter.Category)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		db = db.Where("(LOWER(model_name) LIKE ? OR LOWER(COALESCE(model_code, '')) LIKE ?)", like, like)
	}
	return db
}

// ByModelName retrieves a catalog entry by its unique model name
func (r *DeviceModelRepositoryImpl) ByModelName(ctx context.Context, modelName string) (*models.DeviceModel, error) {
	rows, err := r.ByFilter(ctx, models.DeviceModelFilter{ModelName: &modelName}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListCatalog returns all catalog entries in ascending ID order
func (r *DeviceModelRepositoryImpl) ListCatalog(ctx context.Context) ([]*models.DeviceModel, error) {
	return r.ByFilter(ctx, models.DeviceModelFilter{}, "id ASC", 0, 0)
}

// ByFilter retrieves catalog entries based on filter criteria
func (r *DeviceModelRepositoryImpl) ByFilter(ctx context.Context, filter models.DeviceModelFilter, orderBy string, limit, offset int) ([]*models.DeviceModel, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DeviceModel{}), filter)

	if orderBy == "" {
		orderBy = "id ASC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.DeviceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of catalog entries matching the filter
func (r *DeviceModelRepositoryImpl) Count(ctx context.Context, filter models.DeviceModelFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DeviceModel{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any catalog entry matching the filter exists
func (r *DeviceModelRepositoryImpl) Exists(ctx context.Context, filter models.DeviceModelFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

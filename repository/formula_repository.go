package repository

import (
	"context"
	"strings"

	"github.com/amirphl/parts-pricing/models"
	"gorm.io/gorm"
)

// FormulaRepositoryImpl implements FormulaRepository
type FormulaRepositoryImpl struct {
	*BaseRepository[models.Formula, models.FormulaFilter]
}

// NewFormulaRepository creates a new formula repository
func NewFormulaRepository(db *gorm.DB) FormulaRepository {
	return &FormulaRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Formula, models.FormulaFilter](db),
	}
}

func (r *FormulaRepositoryImpl) applyFilter(db *gorm.DB, filter models.FormulaFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ClassName != nil {
		db = db.Where("class_name = ?", *filter.ClassName)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		db = db.Where("LOWER(class_name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(*filter.Search))+"%")
	}
	return db
}

// ByClassName returns the first formula with the given class name
func (r *FormulaRepositoryImpl) ByClassName(ctx context.Context, className string) (*models.Formula, error) {
	rows, err := r.ByFilter(ctx, models.FormulaFilter{ClassName: &className}, "id ASC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByFilter retrieves formulas based on filter criteria
func (r *FormulaRepositoryImpl) ByFilter(ctx context.Context, filter models.FormulaFilter, orderBy string, limit, offset int) ([]*models.Formula, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Formula{})
	query = r.applyFilter(query, filter)

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

	var rows []*models.Formula
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of formulas matching the filter
func (r *FormulaRepositoryImpl) Count(ctx context.Context, filter models.FormulaFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Formula{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any formula matching the filter exists
func (r *FormulaRepositoryImpl) Exists(ctx context.Context, filter models.FormulaFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

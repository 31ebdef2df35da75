package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// PartRepositoryImpl implements PartRepository
type PartRepositoryImpl struct {
	*BaseRepository[models.Part, models.PartFilter]
}

// NewPartRepository creates a new part repository
func NewPartRepository(db *gorm.DB) PartRepository {
	return &PartRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Part, models.PartFilter](db),
	}
}

var (
	nonAlnumRe     = regexp.MustCompile(`[^A-Za-z0-9]+`)
	numericTailRe  = regexp.MustCompile(`\d{3,4}`)
	leadLetterTail = regexp.MustCompile(`([A-Za-z])(\d{3,4})`)
)

// SearchPatterns expands a free-text search into the lowercase LIKE patterns
// matched against code and description. A query like "SM-S928" also matches
// "SMS928", "928" and "S928".
func SearchPatterns(search string) []string {
	s := strings.TrimSpace(search)
	if s == "" {
		return nil
	}

	patterns := []string{s}
	normalized := strings.ToUpper(nonAlnumRe.ReplaceAllString(s, ""))
	if normalized != "" && normalized != s {
		patterns = append(patterns, normalized)
	}
	patterns = append(patterns, numericTailRe.FindAllString(s, -1)...)

	src := normalized
	if src == "" {
		src = s
	}
	if m := leadLetterTail.FindStringSubmatch(src); m != nil {
		patterns = append(patterns, strings.ToUpper(m[1])+m[2])
	}

	return lo.Uniq(lo.Map(patterns, func(p string, _ int) string {
		return "%" + strings.ToLower(p) + "%"
	}))
}

// deviceKeyExpr is the composite name||code key the device filter compares against
const deviceKeyExpr = "LOWER(COALESCE(device_name, '') || '||' || COALESCE(device_code, ''))"

// applyFilter applies filter conditions to the GORM query
func (r *PartRepositoryImpl) applyFilter(db *gorm.DB, filter models.PartFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if len(filter.IDs) > 0 {
		db = db.Where("id IN ?", filter.IDs)
	}
	if filter.Code != nil {
		db = db.Where("code = ?", *filter.Code)
	}
	if filter.Search != nil {
		if patterns := SearchPatterns(*filter.Search); len(patterns) > 0 {
			clauses := make([]string, 0, len(patterns)*2)
			args := make([]any, 0, len(patterns)*2)
			for _, p := range patterns {
				clauses = append(clauses, "LOWER(code) LIKE ?", "LOWER(COALESCE(description, '')) LIKE ?")
				args = append(args, p, p)
			}
			db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
		}
	}
	if filter.Status != nil && *filter.Status != "" {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.MinPrice != nil {
		db = db.Where("map_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		db = db.Where("map_price <= ?", *filter.MaxPrice)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			db = db.Where("stock_qty > 0")
		} else {
			db = db.Where("stock_qty = 0")
		}
	}
	if filter.DeviceKey != nil && strings.TrimSpace(*filter.DeviceKey) != "" {
		db = db.Where(deviceKeyExpr+" = ?", strings.ToLower(strings.TrimSpace(*filter.DeviceKey)))
	}
	if filter.Category != nil {
		db = db.Where("category = ?", *filter.Category)
	}
	return db
}

// ByCode retrieves a part by its exact code
func (r *PartRepositoryImpl) ByCode(ctx context.Context, code string) (*models.Part, error) {
	db := r.getDB(ctx)

	var part models.Part
	err := db.Where("code = ?", code).Last(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &part, nil
}

// ByIDs retrieves parts by ID, ordered by ID
func (r *PartRepositoryImpl) ByIDs(ctx context.Context, ids []uint) ([]*models.Part, error) {
	if len(ids) == 0 {
		return []*models.Part{}, nil
	}
	return r.ByFilter(ctx, models.PartFilter{IDs: lo.Uniq(ids)}, "id ASC", 0, 0)
}

// UpdateDeviceMatch rewrites only the derived device columns of a part
func (r *PartRepositoryImpl) UpdateDeviceMatch(ctx context.Context, id uint, deviceName, deviceCode, category *string) error {
	db := r.getDB(ctx)

	result := db.Model(&models.Part{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"device_name": deviceName,
			"device_code": deviceCode,
			"category":    category,
			"updated_at":  utils.UTCNow(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDeviceKeys returns the distinct matched devices found on parts
func (r *PartRepositoryImpl) ListDeviceKeys(ctx context.Context) ([]DeviceKey, error) {
	db := r.getDB(ctx)

	type row struct {
		DeviceName *string
		DeviceCode *string
	}
	var rows []row
	err := db.Model(&models.Part{}).
		Distinct("device_name", "device_code").
		Where("device_name IS NOT NULL OR device_code IS NOT NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	keys := make([]DeviceKey, 0, len(rows))
	for _, rw := range rows {
		keys = append(keys, DeviceKey{
			DeviceName: strings.TrimSpace(lo.FromPtr(rw.DeviceName)),
			DeviceCode: strings.TrimSpace(lo.FromPtr(rw.DeviceCode)),
		})
	}
	return keys, nil
}

// ByFilter retrieves parts based on filter criteria
func (r *PartRepositoryImpl) ByFilter(ctx context.Context, filter models.PartFilter, orderBy string, limit, offset int) ([]*models.Part, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Part{})

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

	var parts []*models.Part
	if err := query.Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

// Count returns the number of parts matching the filter
func (r *PartRepositoryImpl) Count(ctx context.Context, filter models.PartFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Part{})
	query = r.applyFilter(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any part matching the filter exists
func (r *PartRepositoryImpl) Exists(ctx context.Context, filter models.PartFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/parts-pricing/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uint) (bool, error)
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// DeviceKey is a distinct (device_name, device_code) pair found on parts
type DeviceKey struct {
	DeviceName string
	DeviceCode string
}

// PartRepository defines operations for parts
type PartRepository interface {
	Repository[models.Part, models.PartFilter]
	ByCode(ctx context.Context, code string) (*models.Part, error)
	ByIDs(ctx context.Context, ids []uint) ([]*models.Part, error)
	UpdateDeviceMatch(ctx context.Context, id uint, deviceName, deviceCode, category *string) error
	ListDeviceKeys(ctx context.Context) ([]DeviceKey, error)
}

// FormulaRepository defines operations for pricing formulas
type FormulaRepository interface {
	Repository[models.Formula, models.FormulaFilter]
	ByClassName(ctx context.Context, className string) (*models.Formula, error)
}

// DeviceModelRepository defines operations for the device catalog
type DeviceModelRepository interface {
	Repository[models.DeviceModel, models.DeviceModelFilter]
	ByModelName(ctx context.Context, modelName string) (*models.DeviceModel, error)
	// ListCatalog returns every entry in catalog order (ascending ID)
	ListCatalog(ctx context.Context) ([]*models.DeviceModel, error)
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByUsername(ctx context.Context, username string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

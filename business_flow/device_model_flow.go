package businessflow

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

//go:embed data/device_models.csv
var seedDeviceModelsCSV []byte

// deviceModelSeedRow is one line of the curated catalog seed
type deviceModelSeedRow struct {
	Brand     string `csv:"brand"`
	ModelName string `csv:"model_name"`
	Category  string `csv:"category"`
	ModelCode string `csv:"model_code"`
}

func loadSeedDeviceModels() ([]deviceModelSeedRow, error) {
	var rows []deviceModelSeedRow
	if err := gocsv.UnmarshalBytes(seedDeviceModelsCSV, &rows); err != nil {
		return nil, fmt.Errorf("parse device model seed: %w", err)
	}
	return rows, nil
}

// DeviceModelFlow manages the device catalog. Every write invalidates the
// cached catalog and re-annotates all parts.
type DeviceModelFlow interface {
	ListDeviceModels(ctx context.Context, req *dto.ListDeviceModelsRequest) (*dto.ListDeviceModelsResponse, error)
	GetDeviceModel(ctx context.Context, id uint) (*dto.DeviceModelDTO, error)
	CreateDeviceModel(ctx context.Context, req *dto.CreateDeviceModelRequest) (*dto.DeviceModelDTO, error)
	UpdateDeviceModel(ctx context.Context, id uint, req *dto.UpdateDeviceModelRequest) (*dto.DeviceModelDTO, error)
	DeleteDeviceModel(ctx context.Context, id uint) error
	SeedDeviceModels(ctx context.Context) (*dto.SeedDeviceModelsResponse, error)
}

// DeviceModelFlowImpl implements DeviceModelFlow
type DeviceModelFlowImpl struct {
	deviceModelRepo repository.DeviceModelRepository
	partRepo        repository.PartRepository
	catalog         DeviceCatalog
	db              *gorm.DB
}

// NewDeviceModelFlow creates a new device model flow
func NewDeviceModelFlow(
	deviceModelRepo repository.DeviceModelRepository,
	partRepo repository.PartRepository,
	catalog DeviceCatalog,
	db *gorm.DB,
) DeviceModelFlow {
	return &DeviceModelFlowImpl{
		deviceModelRepo: deviceModelRepo,
		partRepo:        partRepo,
		catalog:         catalog,
		db:              db,
	}
}

// deviceCategory validates an optional category; blank means none.
func deviceCategory(s *string) (*string, error) {
	c := utils.TrimmedOrNil(s)
	if c == nil {
		return nil, nil
	}
	v := strings.ToLower(*c)
	if !models.IsValidCategory(v) {
		return nil, NewBusinessErrorf("INVALID_CATEGORY", "Invalid category %q, expected one of %s", ErrInvalidCategory, *c, strings.Join(models.Categories, ", "))
	}
	return &v, nil
}

// afterCatalogWrite refreshes everything derived from the catalog. Failures
// are logged; the catalog write itself already succeeded.
func (f *DeviceModelFlowImpl) afterCatalogWrite(ctx context.Context) {
	f.catalog.Invalidate(ctx)
	matcher, err := f.catalog.Matcher(ctx)
	if err != nil {
		log.Printf("device catalog: reload after write failed: %v", err)
		return
	}
	res, err := reannotateParts(ctx, f.partRepo, matcher)
	if err != nil {
		log.Printf("device catalog: re-annotation after write failed: %v", err)
		return
	}
	log.Printf("device catalog: %s", res.Message)
}

func (f *DeviceModelFlowImpl) ListDeviceModels(ctx context.Context, req *dto.ListDeviceModelsRequest) (*dto.ListDeviceModelsResponse, error) {
	if req == nil {
		req = &dto.ListDeviceModelsRequest{}
	}
	skip, limit := normalizePage(req.Skip, req.Limit)

	filter := models.DeviceModelFilter{
		Search:   utils.TrimmedOrNil(req.Search),
		Category: utils.TrimmedOrNil(req.Category),
	}
	rows, err := f.deviceModelRepo.ByFilter(ctx, filter, "id ASC", limit, skip)
	if err != nil {
		return nil, NewBusinessError("LIST_DEVICE_MODELS_FAILED", "Failed to list device models", err)
	}

	return &dto.ListDeviceModelsResponse{
		Message: "Device models retrieved",
		Items: lo.Map(rows, func(m *models.DeviceModel, _ int) dto.DeviceModelDTO {
			return ToDeviceModelDTO(*m)
		}),
	}, nil
}

func (f *DeviceModelFlowImpl) getDeviceModel(ctx context.Context, id uint) (*models.DeviceModel, error) {
	m, err := f.deviceModelRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("GET_DEVICE_MODEL_FAILED", "Failed to load device model", err)
	}
	if m == nil {
		return nil, NewBusinessErrorf("DEVICE_MODEL_NOT_FOUND", "Device model not found: %d", ErrDeviceModelNotFound, id)
	}
	return m, nil
}

func (f *DeviceModelFlowImpl) GetDeviceModel(ctx context.Context, id uint) (*dto.DeviceModelDTO, error) {
	m, err := f.getDeviceModel(ctx, id)
	if err != nil {
		return nil, err
	}
	out := ToDeviceModelDTO(*m)
	return &out, nil
}

func (f *DeviceModelFlowImpl) ensureNameFree(ctx context.Context, name string, selfID uint) error {
	existing, err := f.deviceModelRepo.ByModelName(ctx, name)
	if err != nil {
		return NewBusinessError("DEVICE_MODEL_LOOKUP_FAILED", "Failed to check model name", err)
	}
	if existing != nil && existing.ID != selfID {
		return NewBusinessErrorf("MODEL_NAME_EXISTS", "Model %q already exists", ErrModelNameExists, name)
	}
	return nil
}

func (f *DeviceModelFlowImpl) CreateDeviceModel(ctx context.Context, req *dto.CreateDeviceModelRequest) (*dto.DeviceModelDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	name := strings.TrimSpace(req.ModelName)
	if name == "" {
		return nil, NewBusinessError("MODEL_NAME_REQUIRED", "Model name is required", ErrModelNameRequired)
	}
	category, err := deviceCategory(req.Category)
	if err != nil {
		return nil, err
	}
	if err := f.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	brand := models.DefaultBrand
	if b := utils.TrimmedOrNil(req.Brand); b != nil {
		brand = *b
	}
	m := models.DeviceModel{
		Brand:     brand,
		ModelName: name,
		Category:  category,
		ModelCode: utils.TrimmedOrNil(req.ModelCode),
	}
	if err := f.deviceModelRepo.Save(ctx, &m); err != nil {
		return nil, NewBusinessError("CREATE_DEVICE_MODEL_FAILED", "Failed to create device model", err)
	}
	f.afterCatalogWrite(ctx)

	out := ToDeviceModelDTO(m)
	return &out, nil
}

func (f *DeviceModelFlowImpl) UpdateDeviceModel(ctx context.Context, id uint, req *dto.UpdateDeviceModelRequest) (*dto.DeviceModelDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	m, err := f.getDeviceModel(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ModelName != nil {
		name := strings.TrimSpace(*req.ModelName)
		if name == "" {
			return nil, NewBusinessError("MODEL_NAME_REQUIRED", "Model name is required", ErrModelNameRequired)
		}
		if name != m.ModelName {
			if err := f.ensureNameFree(ctx, name, m.ID); err != nil {
				return nil, err
			}
			m.ModelName = name
		}
	}
	if req.Category != nil {
		category, err := deviceCategory(req.Category)
		if err != nil {
			return nil, err
		}
		m.Category = category
	}
	if req.ModelCode != nil {
		m.ModelCode = utils.NilIfBlank(*req.ModelCode)
	}
	if b := utils.TrimmedOrNil(req.Brand); b != nil {
		m.Brand = *b
	}

	if err := f.deviceModelRepo.Update(ctx, m); err != nil {
		return nil, NewBusinessError("UPDATE_DEVICE_MODEL_FAILED", "Failed to update device model", err)
	}
	f.afterCatalogWrite(ctx)

	out := ToDeviceModelDTO(*m)
	return &out, nil
}

func (f *DeviceModelFlowImpl) DeleteDeviceModel(ctx context.Context, id uint) error {
	deleted, err := f.deviceModelRepo.Delete(ctx, id)
	if err != nil {
		return NewBusinessError("DELETE_DEVICE_MODEL_FAILED", "Failed to delete device model", err)
	}
	if !deleted {
		return NewBusinessErrorf("DEVICE_MODEL_NOT_FOUND", "Device model not found: %d", ErrDeviceModelNotFound, id)
	}
	f.afterCatalogWrite(ctx)
	return nil
}

// SeedDeviceModels loads the curated catalog. Existing models are updated
// only when their category or code differs.
func (f *DeviceModelFlowImpl) SeedDeviceModels(ctx context.Context) (*dto.SeedDeviceModelsResponse, error) {
	rows, err := loadSeedDeviceModels()
	if err != nil {
		return nil, NewBusinessError("SEED_DEVICE_MODELS_FAILED", "Failed to read seed catalog", err)
	}

	// The seed is applied as a whole or not at all
	res := &dto.SeedDeviceModelsResponse{}
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, row := range rows {
			name := strings.TrimSpace(row.ModelName)
			if name == "" {
				continue
			}
			category, err := deviceCategory(&row.Category)
			if err != nil {
				log.Printf("seed device models: %s: %v", name, err)
				continue
			}
			code := utils.NilIfBlank(row.ModelCode)

			existing, err := f.deviceModelRepo.ByModelName(txCtx, name)
			if err != nil {
				return NewBusinessError("SEED_DEVICE_MODELS_FAILED", "Failed to look up device model", err)
			}
			if existing == nil {
				brand := strings.TrimSpace(row.Brand)
				if brand == "" {
					brand = models.DefaultBrand
				}
				m := models.DeviceModel{Brand: brand, ModelName: name, Category: category, ModelCode: code}
				if err := f.deviceModelRepo.Save(txCtx, &m); err != nil {
					return NewBusinessError("SEED_DEVICE_MODELS_FAILED", "Failed to add device model", err)
				}
				res.Added++
				continue
			}
			if equalStrPtr(existing.Category, category) && equalStrPtr(existing.ModelCode, code) {
				continue
			}
			existing.Category = category
			existing.ModelCode = code
			if err := f.deviceModelRepo.Update(txCtx, existing); err != nil {
				return NewBusinessError("SEED_DEVICE_MODELS_FAILED", "Failed to update device model", err)
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		var be *BusinessError
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, NewBusinessError("SEED_DEVICE_MODELS_FAILED", "Failed to seed device models", err)
	}

	if res.Added+res.Updated > 0 {
		f.afterCatalogWrite(ctx)
	}
	res.Message = fmt.Sprintf("Seeded device models: %d added, %d updated", res.Added, res.Updated)
	return res, nil
}

package businessflow

import (
	"slices"
	"strings"
	"time"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/samber/lo"
)

// normalizePage clamps skip/limit to the listing bounds.
func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = utils.DefaultPageLimit
	}
	if limit > utils.MaxPageLimit {
		limit = utils.MaxPageLimit
	}
	return skip, limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ToPartDTO converts a part model to its API representation
func ToPartDTO(p models.Part) dto.PartDTO {
	return dto.PartDTO{
		ID:          p.ID,
		Code:        p.Code,
		Description: p.Description,
		MapPrice:    p.MapPrice,
		NetPrice:    p.NetPrice,
		Diff:        p.Diff,
		Status:      p.Status,
		StockQty:    p.StockQty,
		GrQty:       p.GrQty,
		GrUSD:       p.GrUSD,
		DeviceName:  p.DeviceName,
		DeviceCode:  p.DeviceCode,
		Category:    p.Category,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func ToPartDTOs(parts []*models.Part) []dto.PartDTO {
	return lo.Map(parts, func(p *models.Part, _ int) dto.PartDTO {
		return ToPartDTO(*p)
	})
}

// ToFormulaDTO converts a formula model to its API representation
func ToFormulaDTO(f models.Formula) dto.FormulaDTO {
	return dto.FormulaDTO{
		ID:                   f.ID,
		ClassName:            f.ClassName,
		LaborLvl1:            f.LaborLvl1,
		LaborLvl2:            f.LaborLvl2,
		LaborLvl2Major:       f.LaborLvl2Major,
		LaborLvl2Minor:       f.LaborLvl2Minor,
		LaborLvl3:            f.LaborLvl3,
		Margin:               f.Margin,
		ExchangeRate:         f.ExchangeRate,
		DealerLaborLvl1:      f.DealerLaborLvl1,
		DealerLaborLvl2Major: f.DealerLaborLvl2Major,
		DealerLaborLvl2Minor: f.DealerLaborLvl2Minor,
		DealerLaborLvl3:      f.DealerLaborLvl3,
		DealerMargin:         f.DealerMargin,
		CreatedAt:            formatTime(f.CreatedAt),
		UpdatedAt:            formatTime(f.UpdatedAt),
	}
}

// ToDeviceModelDTO converts a catalog entry to its API representation
func ToDeviceModelDTO(m models.DeviceModel) dto.DeviceModelDTO {
	return dto.DeviceModelDTO{
		ID:        m.ID,
		Brand:     m.Brand,
		ModelName: m.ModelName,
		Category:  m.Category,
		ModelCode: m.ModelCode,
		CreatedAt: formatTime(m.CreatedAt),
		UpdatedAt: formatTime(m.UpdatedAt),
	}
}

// ToUserDTO converts a user model to its API representation
func ToUserDTO(u models.User) dto.UserDTO {
	perms := lo.Keys(u.PermissionSet())
	slices.Sort(perms)

	var lastLogin *string
	if u.LastLoginAt != nil {
		lastLogin = utils.ToPtr(formatTime(*u.LastLoginAt))
	}
	return dto.UserDTO{
		ID:          u.ID,
		UUID:        u.UUID.String(),
		Username:    u.Username,
		Role:        strings.ToLower(u.Role),
		Permissions: perms,
		IsActive:    u.IsActive,
		CreatedAt:   formatTime(u.CreatedAt),
		LastLoginAt: lastLogin,
	}
}

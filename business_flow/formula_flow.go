package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/samber/lo"
)

// FormulaFlow handles the formula store and formula auto-selection
type FormulaFlow interface {
	ListFormulas(ctx context.Context, req *dto.ListFormulasRequest) (*dto.ListFormulasResponse, error)
	GetFormula(ctx context.Context, id uint) (*dto.FormulaDTO, error)
	CreateFormula(ctx context.Context, req *dto.CreateFormulaRequest) (*dto.FormulaDTO, error)
	UpdateFormula(ctx context.Context, id uint, req *dto.UpdateFormulaRequest) (*dto.FormulaDTO, error)
	DeleteFormula(ctx context.Context, id uint) error
	AutoSelect(ctx context.Context, req *dto.AutoSelectFormulaRequest) (*dto.AutoSelectFormulaResponse, error)
}

// FormulaFlowImpl implements FormulaFlow
type FormulaFlowImpl struct {
	formulaRepo repository.FormulaRepository
	partRepo    repository.PartRepository
}

// NewFormulaFlow creates a new formula flow
func NewFormulaFlow(formulaRepo repository.FormulaRepository, partRepo repository.PartRepository) FormulaFlow {
	return &FormulaFlowImpl{
		formulaRepo: formulaRepo,
		partRepo:    partRepo,
	}
}

// normalizeMarginPtr stores margins as percents
func normalizeMarginPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return utils.ToPtr(NormalizeMargin(*v))
}

func applyFormulaFields(f *models.Formula, in dto.FormulaFields) {
	assign := func(dst **float64, src *float64) {
		if src != nil {
			*dst = src
		}
	}
	assign(&f.LaborLvl1, in.LaborLvl1)
	assign(&f.LaborLvl2, in.LaborLvl2)
	assign(&f.LaborLvl2Major, in.LaborLvl2Major)
	assign(&f.LaborLvl2Minor, in.LaborLvl2Minor)
	assign(&f.LaborLvl3, in.LaborLvl3)
	assign(&f.Margin, normalizeMarginPtr(in.Margin))
	assign(&f.DealerLaborLvl1, in.DealerLaborLvl1)
	assign(&f.DealerLaborLvl2Major, in.DealerLaborLvl2Major)
	assign(&f.DealerLaborLvl2Minor, in.DealerLaborLvl2Minor)
	assign(&f.DealerLaborLvl3, in.DealerLaborLvl3)
	assign(&f.DealerMargin, normalizeMarginPtr(in.DealerMargin))
	if in.ExchangeRate != nil && *in.ExchangeRate > 0 {
		f.ExchangeRate = *in.ExchangeRate
	}
}

func (f *FormulaFlowImpl) ListFormulas(ctx context.Context, req *dto.ListFormulasRequest) (*dto.ListFormulasResponse, error) {
	if req == nil {
		req = &dto.ListFormulasRequest{}
	}
	skip, limit := normalizePage(req.Skip, req.Limit)

	rows, err := f.formulaRepo.ByFilter(ctx, models.FormulaFilter{Search: utils.TrimmedOrNil(req.Search)}, "id ASC", limit, skip)
	if err != nil {
		return nil, NewBusinessError("LIST_FORMULAS_FAILED", "Failed to list formulas", err)
	}

	return &dto.ListFormulasResponse{
		Message: "Formulas retrieved",
		Items: lo.Map(rows, func(r *models.Formula, _ int) dto.FormulaDTO {
			return ToFormulaDTO(*r)
		}),
	}, nil
}

func (f *FormulaFlowImpl) getFormula(ctx context.Context, id uint) (*models.Formula, error) {
	formula, err := f.formulaRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("GET_FORMULA_FAILED", "Failed to load formula", err)
	}
	if formula == nil {
		return nil, NewBusinessErrorf("FORMULA_NOT_FOUND", "Formula not found: %d", ErrFormulaNotFound, id)
	}
	return formula, nil
}

func (f *FormulaFlowImpl) GetFormula(ctx context.Context, id uint) (*dto.FormulaDTO, error) {
	formula, err := f.getFormula(ctx, id)
	if err != nil {
		return nil, err
	}
	out := ToFormulaDTO(*formula)
	return &out, nil
}

func (f *FormulaFlowImpl) CreateFormula(ctx context.Context, req *dto.CreateFormulaRequest) (*dto.FormulaDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	className := strings.TrimSpace(req.ClassName)
	if className == "" {
		return nil, NewBusinessError("CLASS_NAME_REQUIRED", "Formula class name is required", ErrClassNameRequired)
	}

	formula := models.Formula{
		ClassName:    className,
		ExchangeRate: models.DefaultExchangeRate,
	}
	applyFormulaFields(&formula, req.FormulaFields)

	if err := f.formulaRepo.Save(ctx, &formula); err != nil {
		return nil, NewBusinessError("CREATE_FORMULA_FAILED", "Failed to create formula", err)
	}

	out := ToFormulaDTO(formula)
	return &out, nil
}

func (f *FormulaFlowImpl) UpdateFormula(ctx context.Context, id uint, req *dto.UpdateFormulaRequest) (*dto.FormulaDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	formula, err := f.getFormula(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ClassName != nil {
		className := strings.TrimSpace(*req.ClassName)
		if className == "" {
			return nil, NewBusinessError("CLASS_NAME_REQUIRED", "Formula class name is required", ErrClassNameRequired)
		}
		formula.ClassName = className
	}
	applyFormulaFields(formula, req.FormulaFields)

	if err := f.formulaRepo.Update(ctx, formula); err != nil {
		return nil, NewBusinessError("UPDATE_FORMULA_FAILED", "Failed to update formula", err)
	}

	out := ToFormulaDTO(*formula)
	return &out, nil
}

func (f *FormulaFlowImpl) DeleteFormula(ctx context.Context, id uint) error {
	deleted, err := f.formulaRepo.Delete(ctx, id)
	if err != nil {
		return NewBusinessError("DELETE_FORMULA_FAILED", "Failed to delete formula", err)
	}
	if !deleted {
		return NewBusinessErrorf("FORMULA_NOT_FOUND", "Formula not found: %d", ErrFormulaNotFound, id)
	}
	return nil
}

// AutoSelect detects the majority category of the selected parts and picks
// the first formula for it. Both fields are null when nothing is detected.
func (f *FormulaFlowImpl) AutoSelect(ctx context.Context, req *dto.AutoSelectFormulaRequest) (*dto.AutoSelectFormulaResponse, error) {
	if req == nil || len(req.PartIDs) == 0 {
		return nil, NewBusinessError("NO_PARTS_SELECTED", "Select at least one part", ErrNoPartsSelected)
	}

	parts, err := f.partRepo.ByIDs(ctx, req.PartIDs)
	if err != nil {
		return nil, NewBusinessError("AUTO_SELECT_FAILED", "Failed to load parts", err)
	}
	if missing, ok := missingID(req.PartIDs, parts); ok {
		return nil, NewBusinessErrorf("PART_NOT_FOUND", "Part not found: %d", ErrPartNotFound, missing)
	}

	category := AutoCategory(parts)
	if category == nil {
		return &dto.AutoSelectFormulaResponse{}, nil
	}

	formulas, err := f.formulaRepo.ByFilter(ctx, models.FormulaFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("AUTO_SELECT_FAILED", "Failed to load formulas", err)
	}

	resp := &dto.AutoSelectFormulaResponse{Category: category}
	if picked := PickFormulaForCategory(*category, formulas); picked != nil {
		out := ToFormulaDTO(*picked)
		resp.Formula = &out
	}
	return resp, nil
}

// missingID returns the first requested ID with no loaded part.
func missingID(ids []uint, parts []*models.Part) (uint, bool) {
	found := make(map[uint]struct{}, len(parts))
	for _, p := range parts {
		found[p.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

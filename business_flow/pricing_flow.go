package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/shopspring/decimal"
)

const (
	customerTypeBoth   = "both"
	defaultManualLabel = "Manual"
)

// PricingFlow prices a selection of parts, or a manual base, with a formula
type PricingFlow interface {
	CalculatePrice(ctx context.Context, req *dto.CalculatePriceRequest) (*dto.CalculatePriceResponse, error)
}

// PricingFlowImpl implements PricingFlow
type PricingFlowImpl struct {
	partRepo    repository.PartRepository
	formulaRepo repository.FormulaRepository
}

// NewPricingFlow creates a new pricing flow
func NewPricingFlow(partRepo repository.PartRepository, formulaRepo repository.FormulaRepository) PricingFlow {
	return &PricingFlowImpl{
		partRepo:    partRepo,
		formulaRepo: formulaRepo,
	}
}

// pricedLine is one part contributing to the base price
type pricedLine struct {
	part *models.Part
	qty  int
}

func (l pricedLine) code() string {
	if l.qty != 1 {
		return fmt.Sprintf("%s x%d", l.part.Code, l.qty)
	}
	return l.part.Code
}

// requestedModes returns the modes to compute; customer_type omitted or "both" computes both.
func requestedModes(customerType *string) ([]PricingMode, error) {
	if customerType == nil {
		return PricingModes, nil
	}
	v := strings.ToLower(strings.TrimSpace(*customerType))
	if v == "" || v == customerTypeBoth {
		return PricingModes, nil
	}
	mode, err := ParsePricingMode(v)
	if err != nil {
		return nil, err
	}
	return []PricingMode{mode}, nil
}

func (f *PricingFlowImpl) CalculatePrice(ctx context.Context, req *dto.CalculatePriceRequest) (*dto.CalculatePriceResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	if req.FormulaID == 0 {
		return nil, NewBusinessError("FORMULA_REQUIRED", "Select a formula", ErrValidation)
	}

	modes, err := requestedModes(req.CustomerType)
	if err != nil {
		return nil, err
	}
	var level *LaborLevel
	if req.LaborLevel != nil && strings.TrimSpace(*req.LaborLevel) != "" {
		l, err := ParseLaborLevel(*req.LaborLevel)
		if err != nil {
			return nil, err
		}
		level = &l
	}

	formula, err := f.formulaRepo.ByID(ctx, req.FormulaID)
	if err != nil {
		return nil, NewBusinessError("CALCULATE_PRICE_FAILED", "Failed to load formula", err)
	}
	if formula == nil {
		return nil, NewBusinessErrorf("FORMULA_NOT_FOUND", "Formula not found: %d", ErrFormulaNotFound, req.FormulaID)
	}

	resp := &dto.CalculatePriceResponse{PartCodes: []string{}}
	var total float64

	if req.ManualTotalMap != nil {
		total = *req.ManualTotalMap
		label := defaultManualLabel
		if req.ManualLabel != nil && strings.TrimSpace(*req.ManualLabel) != "" {
			label = strings.TrimSpace(*req.ManualLabel)
		}
		resp.PartCodes = append(resp.PartCodes, label)
	} else {
		lines, err := f.selectedLines(ctx, req)
		if err != nil {
			return nil, err
		}
		if req.IncludeCompanions && len(lines) > 0 {
			companions, err := f.companionsFor(ctx, lines)
			if err != nil {
				return nil, err
			}
			for _, c := range companions {
				lines = append(lines, pricedLine{part: c.Part, qty: c.Quantity})
			}
			resp.Companions = toCompanionDTOs(companions)
		}
		for _, l := range lines {
			total += l.part.BasePrice() * float64(l.qty)
			resp.PartCodes = append(resp.PartCodes, l.code())
		}
		if len(lines) > 0 {
			resp.PartCode = lines[0].part.Code
		}
	}
	if resp.PartCode == "" && len(resp.PartCodes) > 0 {
		resp.PartCode = resp.PartCodes[0]
	}
	resp.BasePrice = total

	for _, mode := range modes {
		lvl := DefaultLaborLevel(formula, mode)
		if level != nil {
			lvl = *level
		}
		res, err := Calculate(total, formula, lvl, mode)
		if err != nil {
			return nil, err
		}
		pricingCalculationsTotal.WithLabelValues(string(mode)).Inc()
		resp.Quotes = append(resp.Quotes, toPriceQuoteDTO(res))
	}
	resp.PriceQuoteDTO = resp.Quotes[0]

	return resp, nil
}

// selectedLines resolves the parts list, or the single part_id when no list is given.
func (f *PricingFlowImpl) selectedLines(ctx context.Context, req *dto.CalculatePriceRequest) ([]pricedLine, error) {
	selections := req.Parts
	if len(selections) == 0 && req.PartID != nil {
		selections = []dto.PartSelection{{PartID: *req.PartID}}
	}
	if len(selections) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(selections))
	for _, s := range selections {
		ids = append(ids, s.PartID)
	}
	parts, err := f.partRepo.ByIDs(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("CALCULATE_PRICE_FAILED", "Failed to load parts", err)
	}
	byID := make(map[uint]*models.Part, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}

	lines := make([]pricedLine, 0, len(selections))
	for _, s := range selections {
		p, ok := byID[s.PartID]
		if !ok {
			return nil, NewBusinessErrorf("PART_NOT_FOUND", "Part not found: %d", ErrPartNotFound, s.PartID)
		}
		qty := 1
		if s.Qty != nil && *s.Qty > 0 {
			qty = *s.Qty
		}
		lines = append(lines, pricedLine{part: p, qty: qty})
	}
	return lines, nil
}

// companionsFor expands every selected part, never adding a part twice.
func (f *PricingFlowImpl) companionsFor(ctx context.Context, lines []pricedLine) ([]Companion, error) {
	all, err := f.partRepo.ByFilter(ctx, models.PartFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("CALCULATE_PRICE_FAILED", "Failed to load parts", err)
	}

	selected := make(map[uint]struct{}, len(lines))
	for _, l := range lines {
		selected[l.part.ID] = struct{}{}
	}

	var out []Companion
	for _, l := range lines {
		for _, c := range ResolveCompanions(*l.part, all, selected) {
			selected[c.Part.ID] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func toPriceQuoteDTO(r *CalculationResult) dto.PriceQuoteDTO {
	return dto.PriceQuoteDTO{
		CustomerType:         string(r.Mode),
		FormulaClass:         r.FormulaClass,
		LaborLevelUsed:       string(r.LaborLevelUsed),
		ExchangeRate:         r.ExchangeRate,
		TotalMap:             r.TotalMap,
		LaborCost:            r.LaborCost,
		MarginPercent:        r.MarginPercent,
		Margin:               r.Margin,
		FinalPriceUSD:        r.FinalPriceUSD,
		FinalPriceIQD:        r.FinalPriceIQD,
		FinalPriceUSDRounded: roundTo(r.FinalPriceUSD, 2),
		FinalPriceIQDRounded: roundTo(r.FinalPriceIQD, 0),
	}
}

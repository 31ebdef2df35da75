package dto

// PartSelection is one selected part; a missing or zero qty counts as 1
type PartSelection struct {
	PartID uint `json:"part_id" validate:"required,gt=0"`
	Qty    *int `json:"qty,omitempty" validate:"omitempty,gte=0"`
}

// CalculatePriceRequest prices a selection. The base comes from exactly one of
// manual_total_map, parts or part_id, in that order of precedence.
type CalculatePriceRequest struct {
	FormulaID         uint            `json:"formula_id" validate:"required,gt=0" example:"2"`
	LaborLevel        *string         `json:"labor_level,omitempty" validate:"omitempty,oneof=1 2_major 2_minor 3" example:"2_major"`
	CustomerType      *string         `json:"customer_type,omitempty" validate:"omitempty,oneof=customer dealer both" example:"dealer"`
	ManualTotalMap    *float64        `json:"manual_total_map,omitempty" validate:"omitempty,gte=0" example:"100"`
	ManualLabel       *string         `json:"manual_label,omitempty" validate:"omitempty,max=255"`
	Parts             []PartSelection `json:"parts,omitempty" validate:"omitempty,dive"`
	PartID            *uint           `json:"part_id,omitempty" validate:"omitempty,gt=0"`
	IncludeCompanions bool            `json:"include_companions,omitempty"`
}

// PriceQuoteDTO is a calculation result for one pricing mode. Rounded values are for display.
type PriceQuoteDTO struct {
	CustomerType         string  `json:"customer_type" example:"dealer"`
	FormulaClass         string  `json:"formula_class" example:"Mid End"`
	LaborLevelUsed       string  `json:"labor_level_used" example:"2_major"`
	ExchangeRate         float64 `json:"exchange_rate" example:"1450"`
	TotalMap             float64 `json:"total_map" example:"100"`
	LaborCost            float64 `json:"labor_cost" example:"15"`
	MarginPercent        float64 `json:"margin_percent" example:"1"`
	Margin               float64 `json:"margin" example:"1"`
	FinalPriceUSD        float64 `json:"final_price_usd" example:"116"`
	FinalPriceIQD        float64 `json:"final_price_iqd" example:"168200"`
	FinalPriceUSDRounded float64 `json:"final_price_usd_rounded" example:"116"`
	FinalPriceIQDRounded float64 `json:"final_price_iqd_rounded" example:"168200"`
}

// CalculatePriceResponse carries the primary quote inline (customer when both
// modes were requested) and every computed quote in Quotes.
type CalculatePriceResponse struct {
	PriceQuoteDTO
	PartCode   string          `json:"part_code" example:"GH82-30480A"`
	PartCodes  []string        `json:"part_codes"`
	BasePrice  float64         `json:"base_price" example:"100"`
	Companions []CompanionDTO  `json:"companions,omitempty"`
	Quotes     []PriceQuoteDTO `json:"quotes"`
}

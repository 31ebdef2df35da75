package dto

// FormulaDTO is a pricing formula as returned by the API. Margins are percents.
type FormulaDTO struct {
	ID                   uint     `json:"id" example:"2"`
	ClassName            string   `json:"class_name" example:"Mid End"`
	LaborLvl1            *float64 `json:"labor_lvl1,omitempty" example:"10"`
	LaborLvl2            *float64 `json:"labor_lvl2,omitempty"`
	LaborLvl2Major       *float64 `json:"labor_lvl2_major,omitempty" example:"15"`
	LaborLvl2Minor       *float64 `json:"labor_lvl2_minor,omitempty" example:"12"`
	LaborLvl3            *float64 `json:"labor_lvl3,omitempty" example:"30"`
	Margin               *float64 `json:"margin,omitempty" example:"2"`
	ExchangeRate         float64  `json:"exchange_rate" example:"1450"`
	DealerLaborLvl1      *float64 `json:"dealer_labor_lvl1,omitempty"`
	DealerLaborLvl2Major *float64 `json:"dealer_labor_lvl2_major,omitempty"`
	DealerLaborLvl2Minor *float64 `json:"dealer_labor_lvl2_minor,omitempty"`
	DealerLaborLvl3      *float64 `json:"dealer_labor_lvl3,omitempty"`
	DealerMargin         *float64 `json:"dealer_margin,omitempty"`
	CreatedAt            string   `json:"created_at"`
	UpdatedAt            string   `json:"updated_at"`
}

// FormulaFields holds the writable formula columns. Margins may be sent as a fraction (0.03) or a percent (3).
type FormulaFields struct {
	LaborLvl1            *float64 `json:"labor_lvl1,omitempty" validate:"omitempty,gte=0"`
	LaborLvl2            *float64 `json:"labor_lvl2,omitempty" validate:"omitempty,gte=0"`
	LaborLvl2Major       *float64 `json:"labor_lvl2_major,omitempty" validate:"omitempty,gte=0"`
	LaborLvl2Minor       *float64 `json:"labor_lvl2_minor,omitempty" validate:"omitempty,gte=0"`
	LaborLvl3            *float64 `json:"labor_lvl3,omitempty" validate:"omitempty,gte=0"`
	Margin               *float64 `json:"margin,omitempty" validate:"omitempty,gte=0"`
	ExchangeRate         *float64 `json:"exchange_rate,omitempty" validate:"omitempty,gt=0"`
	DealerLaborLvl1      *float64 `json:"dealer_labor_lvl1,omitempty" validate:"omitempty,gte=0"`
	DealerLaborLvl2Major *float64 `json:"dealer_labor_lvl2_major,omitempty" validate:"omitempty,gte=0"`
	DealerLaborLvl2Minor *float64 `json:"dealer_labor_lvl2_minor,omitempty" validate:"omitempty,gte=0"`
	DealerLaborLvl3      *float64 `json:"dealer_labor_lvl3,omitempty" validate:"omitempty,gte=0"`
	DealerMargin         *float64 `json:"dealer_margin,omitempty" validate:"omitempty,gte=0"`
}

type CreateFormulaRequest struct {
	ClassName string `json:"class_name" validate:"required,max=255"`
	FormulaFields
}

type UpdateFormulaRequest struct {
	ClassName *string `json:"class_name,omitempty" validate:"omitempty,min=1,max=255"`
	FormulaFields
}

type ListFormulasRequest struct {
	Search *string `json:"search,omitempty"`
	Skip   int     `json:"skip" validate:"gte=0"`
	Limit  int     `json:"limit" validate:"gte=0"`
}

type ListFormulasResponse struct {
	Message string       `json:"message"`
	Items   []FormulaDTO `json:"items"`
}

// AutoSelectFormulaRequest picks a formula from the majority category of the selected parts
type AutoSelectFormulaRequest struct {
	PartIDs []uint `json:"part_ids" validate:"required,min=1,dive,gt=0"`
}

type AutoSelectFormulaResponse struct {
	Category *string     `json:"category"`
	Formula  *FormulaDTO `json:"formula"`
}

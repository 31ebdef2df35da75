package models

import "time"

const DefaultExchangeRate = 1450.0

// Formula stores a pricing formula for a device class tier.
// Margin and DealerMargin may hold a fraction (0.03) or a percent (3).
// Table: formulas
type Formula struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ClassName string `gorm:"size:255;not null;index:idx_formulas_class_name" json:"class_name"`

	LaborLvl1      *float64 `gorm:"type:numeric(14,4)" json:"labor_lvl1,omitempty"`
	LaborLvl2      *float64 `gorm:"type:numeric(14,4)" json:"labor_lvl2,omitempty"`
	LaborLvl2Major *float64 `gorm:"type:numeric(14,4)" json:"labor_lvl2_major,omitempty"`
	LaborLvl2Minor *float64 `gorm:"type:numeric(14,4)" json:"labor_lvl2_minor,omitempty"`
	LaborLvl3      *float64 `gorm:"type:numeric(14,4)" json:"labor_lvl3,omitempty"`
	Margin         *float64 `gorm:"type:numeric(10,4)" json:"margin,omitempty"`
	ExchangeRate   float64  `gorm:"type:numeric(14,4);not null;default:1450" json:"exchange_rate"`

	// legacy columns kept for spreadsheets that still carry them
	TotalMap   *float64 `gorm:"type:numeric(14,4)" json:"total_map,omitempty"`
	FinalPrice *float64 `gorm:"type:numeric(14,4)" json:"final_price,omitempty"`

	DealerLaborLvl1      *float64 `gorm:"type:numeric(14,4)" json:"dealer_labor_lvl1,omitempty"`
	DealerLaborLvl2Major *float64 `gorm:"type:numeric(14,4)" json:"dealer_labor_lvl2_major,omitempty"`
	DealerLaborLvl2Minor *float64 `gorm:"type:numeric(14,4)" json:"dealer_labor_lvl2_minor,omitempty"`
	DealerLaborLvl3      *float64 `gorm:"type:numeric(14,4)" json:"dealer_labor_lvl3,omitempty"`
	DealerMargin         *float64 `gorm:"type:numeric(10,4)" json:"dealer_margin,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_formulas_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Formula) TableName() string {
	return "formulas"
}

type FormulaFilter struct {
	ID        *uint
	ClassName *string
	Search    *string
}

package businessflow

import (
	"strings"

	"github.com/amirphl/parts-pricing/models"
)

// LaborLevel is a repair complexity tier.
type LaborLevel string

const (
	LaborLevel1      LaborLevel = "1"
	LaborLevel2Major LaborLevel = "2_major"
	LaborLevel2Minor LaborLevel = "2_minor"
	LaborLevel3      LaborLevel = "3"
)

// defaultLaborOrder is the order tried when the caller gives no level.
var defaultLaborOrder = []LaborLevel{LaborLevel2Major, LaborLevel2Minor, LaborLevel1, LaborLevel3}

// ParseLaborLevel accepts "1", "2_major", "2_minor" and "3".
func ParseLaborLevel(s string) (LaborLevel, error) {
	switch l := LaborLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LaborLevel1, LaborLevel2Major, LaborLevel2Minor, LaborLevel3:
		return l, nil
	}
	return "", NewBusinessErrorf("INVALID_LABOR_LEVEL", "Invalid labor level %q", ErrInvalidLaborLevel, s)
}

// requiresBase reports whether the level prices a part rather than pure labor.
func (l LaborLevel) requiresBase() bool {
	return l == LaborLevel2Major || l == LaborLevel2Minor
}

// PricingMode selects customer or dealer pricing.
type PricingMode string

const (
	PricingModeCustomer PricingMode = "customer"
	PricingModeDealer   PricingMode = "dealer"
)

// PricingModes lists every mode in display order.
var PricingModes = []PricingMode{PricingModeCustomer, PricingModeDealer}

func ParsePricingMode(s string) (PricingMode, error) {
	switch m := PricingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case PricingModeCustomer, PricingModeDealer:
		return m, nil
	}
	return "", NewBusinessErrorf("INVALID_CUSTOMER_TYPE", "Invalid customer type %q", ErrInvalidPricingMode, s)
}

// pricingStrategy holds what differs between modes: where labor is read
// from and how the margin percent is chosen.
type pricingStrategy struct {
	labor  func(f *models.Formula, level LaborLevel) *float64
	margin func(f *models.Formula) float64
}

var pricingStrategies = map[PricingMode]pricingStrategy{
	PricingModeCustomer: {
		labor:  customerLabor,
		margin: customerMarginPercent,
	},
	PricingModeDealer: {
		labor: func(f *models.Formula, level LaborLevel) *float64 {
			if v := dealerLabor(f, level); v != nil {
				return v
			}
			return customerLabor(f, level)
		},
		margin: func(f *models.Formula) float64 {
			if f.DealerMargin != nil {
				return NormalizeMargin(*f.DealerMargin)
			}
			return customerMarginPercent(f) / 2
		},
	},
}

func customerLabor(f *models.Formula, level LaborLevel) *float64 {
	switch level {
	case LaborLevel1:
		return f.LaborLvl1
	case LaborLevel2Major:
		return f.LaborLvl2Major
	case LaborLevel2Minor:
		return f.LaborLvl2Minor
	case LaborLevel3:
		return f.LaborLvl3
	}
	return nil
}

func dealerLabor(f *models.Formula, level LaborLevel) *float64 {
	switch level {
	case LaborLevel1:
		return f.DealerLaborLvl1
	case LaborLevel2Major:
		return f.DealerLaborLvl2Major
	case LaborLevel2Minor:
		return f.DealerLaborLvl2Minor
	case LaborLevel3:
		return f.DealerLaborLvl3
	}
	return nil
}

func customerMarginPercent(f *models.Formula) float64 {
	if f.Margin != nil {
		return NormalizeMargin(*f.Margin)
	}
	return ClassDefaultMargin(f.ClassName)
}

// NormalizeMargin converts a stored margin to a percent. Values below 1 are
// fractions (0.03 is 3%); anything else is already a percent.
func NormalizeMargin(v float64) float64 {
	if v < 1 {
		return v * 100
	}
	return v
}

// ClassDefaultMargin is the margin percent used when a formula has none,
// keyed by the class name prefix.
func ClassDefaultMargin(className string) float64 {
	cn := strings.ToLower(strings.TrimSpace(className))
	switch {
	case strings.HasPrefix(cn, "low"):
		return 3
	case strings.HasPrefix(cn, "mid"):
		return 2
	case strings.HasPrefix(cn, "high"):
		return 1
	case strings.HasPrefix(cn, "wear"):
		return 1
	case strings.HasPrefix(cn, "tab"):
		return 2
	}
	return 0
}

// EffectiveMarginPercent returns the margin percent applied in mode.
func EffectiveMarginPercent(f *models.Formula, mode PricingMode) float64 {
	s, ok := pricingStrategies[mode]
	if !ok || f == nil {
		return 0
	}
	return s.margin(f)
}

// DefaultLaborLevel picks the first level with a labor value for mode,
// falling back to level 3.
func DefaultLaborLevel(f *models.Formula, mode PricingMode) LaborLevel {
	s, ok := pricingStrategies[mode]
	if !ok || f == nil {
		return LaborLevel3
	}
	for _, level := range defaultLaborOrder {
		if s.labor(f, level) != nil {
			return level
		}
	}
	return LaborLevel3
}

// CalculationResult is one priced quote. Values keep full precision.
type CalculationResult struct {
	FormulaClass   string      `json:"formula_class"`
	LaborLevelUsed LaborLevel  `json:"labor_level_used"`
	Mode           PricingMode `json:"customer_type"`
	ExchangeRate   float64     `json:"exchange_rate"`
	TotalMap       float64     `json:"total_map"`
	LaborCost      float64     `json:"labor_cost"`
	MarginPercent  float64     `json:"margin_percent"`
	Margin         float64     `json:"margin"`
	FinalPriceUSD  float64     `json:"final_price_usd"`
	FinalPriceIQD  float64     `json:"final_price_iqd"`
}

// Calculate prices totalBaseUSD with formula at level in mode. Levels 1 and 3
// accept a zero base for labor-only jobs; the 2_* levels need a positive one.
func Calculate(totalBaseUSD float64, formula *models.Formula, level LaborLevel, mode PricingMode) (*CalculationResult, error) {
	if formula == nil {
		return nil, NewBusinessError("FORMULA_NOT_FOUND", "Formula not found", ErrFormulaNotFound)
	}
	if _, err := ParseLaborLevel(string(level)); err != nil {
		return nil, err
	}
	strategy, ok := pricingStrategies[mode]
	if !ok {
		return nil, NewBusinessErrorf("INVALID_CUSTOMER_TYPE", "Invalid customer type %q", ErrInvalidPricingMode, mode)
	}
	if totalBaseUSD < 0 {
		return nil, NewBusinessError("NEGATIVE_BASE", "Total base price must not be negative", ErrNegativeBase)
	}
	if totalBaseUSD == 0 && level.requiresBase() {
		return nil, NewBusinessErrorf("NOTHING_TO_PRICE", "Labor level %s needs at least one priced part", ErrNothingToPrice, level)
	}

	laborCost := 0.0
	if v := strategy.labor(formula, level); v != nil {
		laborCost = *v
	}
	rate := formula.ExchangeRate
	if rate <= 0 {
		rate = models.DefaultExchangeRate
	}

	marginPercent := strategy.margin(formula)
	margin := totalBaseUSD * (marginPercent / 100)
	finalUSD := totalBaseUSD + laborCost + margin

	return &CalculationResult{
		FormulaClass:   formula.ClassName,
		LaborLevelUsed: level,
		Mode:           mode,
		ExchangeRate:   rate,
		TotalMap:       totalBaseUSD,
		LaborCost:      laborCost,
		MarginPercent:  marginPercent,
		Margin:         margin,
		FinalPriceUSD:  finalUSD,
		FinalPriceIQD:  finalUSD * rate,
	}, nil
}

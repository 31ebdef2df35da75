package businessflow

import (
	"testing"

	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func midEndFormula() *models.Formula {
	return &models.Formula{
		ID:             2,
		ClassName:      "Mid End",
		LaborLvl2Major: utils.ToPtr(15.0),
		Margin:         utils.ToPtr(2.0),
		ExchangeRate:   1450,
	}
}

func TestCalculate_DealerEndToEnd(t *testing.T) {
	res, err := Calculate(100, midEndFormula(), LaborLevel2Major, PricingModeDealer)
	require.NoError(t, err)

	assert.Equal(t, "Mid End", res.FormulaClass)
	assert.Equal(t, LaborLevel2Major, res.LaborLevelUsed)
	assert.Equal(t, PricingModeDealer, res.Mode)
	assert.InDelta(t, 100.0, res.TotalMap, 1e-9)
	assert.InDelta(t, 15.0, res.LaborCost, 1e-9)
	assert.InDelta(t, 1.0, res.MarginPercent, 1e-9)
	assert.InDelta(t, 1.0, res.Margin, 1e-9)
	assert.InDelta(t, 116.0, res.FinalPriceUSD, 1e-9)
	assert.InDelta(t, 168200.0, res.FinalPriceIQD, 1e-6)
	assert.InDelta(t, 1450.0, res.ExchangeRate, 1e-9)
}

func TestCalculate_Customer(t *testing.T) {
	res, err := Calculate(100, midEndFormula(), LaborLevel2Major, PricingModeCustomer)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Margin, 1e-9)
	assert.InDelta(t, 117.0, res.FinalPriceUSD, 1e-9)
	assert.InDelta(t, res.FinalPriceUSD*res.ExchangeRate, res.FinalPriceIQD, 1e-6)
}

func TestCalculate_DealerOverrides(t *testing.T) {
	f := midEndFormula()
	f.DealerLaborLvl2Major = utils.ToPtr(12.0)
	f.DealerMargin = utils.ToPtr(0.005)

	res, err := Calculate(200, f, LaborLevel2Major, PricingModeDealer)
	require.NoError(t, err)

	assert.InDelta(t, 12.0, res.LaborCost, 1e-9)
	assert.InDelta(t, 0.5, res.MarginPercent, 1e-9)
	assert.InDelta(t, 1.0, res.Margin, 1e-9)
	assert.InDelta(t, 213.0, res.FinalPriceUSD, 1e-9)
}

func TestCalculate_LaborOnly(t *testing.T) {
	f := &models.Formula{ClassName: "Service", LaborLvl1: utils.ToPtr(10.0), LaborLvl3: utils.ToPtr(40.0), Margin: utils.ToPtr(0.0), ExchangeRate: 1450}

	res, err := Calculate(0, f, LaborLevel1, PricingModeCustomer)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.FinalPriceUSD, 1e-9)
	assert.InDelta(t, 14500.0, res.FinalPriceIQD, 1e-9)

	res, err = Calculate(0, f, LaborLevel3, PricingModeDealer)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, res.FinalPriceUSD, 1e-9)
}

func TestCalculate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		base    float64
		formula *models.Formula
		level   LaborLevel
		mode    PricingMode
		check   func(error) bool
	}{
		{name: "2_major needs a base", base: 0, formula: midEndFormula(), level: LaborLevel2Major, mode: PricingModeCustomer, check: IsNothingToPrice},
		{name: "2_minor needs a base", base: 0, formula: midEndFormula(), level: LaborLevel2Minor, mode: PricingModeDealer, check: IsNothingToPrice},
		{name: "missing formula", base: 10, formula: nil, level: LaborLevel1, mode: PricingModeCustomer, check: IsFormulaNotFound},
		{name: "unknown labor level", base: 10, formula: midEndFormula(), level: LaborLevel("4"), mode: PricingModeCustomer, check: IsInvalidLaborLevel},
		{name: "negative base", base: -1, formula: midEndFormula(), level: LaborLevel1, mode: PricingModeCustomer, check: IsValidationError},
		{name: "unknown mode", base: 10, formula: midEndFormula(), level: LaborLevel1, mode: PricingMode("vip"), check: IsValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(tt.base, tt.formula, tt.level, tt.mode)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
	assert.True(t, IsValidationError(func() error {
		_, err := Calculate(0, midEndFormula(), LaborLevel2Major, PricingModeCustomer)
		return err
	}()))
}

func TestCalculate_Deterministic(t *testing.T) {
	f := midEndFormula()
	first, err := Calculate(87.35, f, LaborLevel2Major, PricingModeDealer)
	require.NoError(t, err)
	second, err := Calculate(87.35, f, LaborLevel2Major, PricingModeDealer)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculate_ExchangeRateFallback(t *testing.T) {
	f := midEndFormula()
	f.ExchangeRate = 0

	res, err := Calculate(10, f, LaborLevel2Major, PricingModeCustomer)
	require.NoError(t, err)
	assert.InDelta(t, models.DefaultExchangeRate, res.ExchangeRate, 1e-9)
}

func TestNormalizeMargin(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 0.03, want: 3},
		{in: 3, want: 3},
		{in: 1, want: 1},
		{in: 0, want: 0},
		{in: 12.5, want: 12.5},
	}
	for _, tt := range tests {
		got := NormalizeMargin(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9)
		assert.InDelta(t, got, NormalizeMargin(got), 1e-9, "normalizing a percent must not change it")
	}
}

func TestEffectiveMarginPercent(t *testing.T) {
	tests := []struct {
		name    string
		formula *models.Formula
		mode    PricingMode
		want    float64
	}{
		{name: "customer fraction", formula: &models.Formula{Margin: utils.ToPtr(0.03)}, mode: PricingModeCustomer, want: 3},
		{name: "dealer falls back to half", formula: &models.Formula{Margin: utils.ToPtr(3.0)}, mode: PricingModeDealer, want: 1.5},
		{name: "dealer override", formula: &models.Formula{Margin: utils.ToPtr(3.0), DealerMargin: utils.ToPtr(2.0)}, mode: PricingModeDealer, want: 2},
		{name: "class default when margin is missing", formula: &models.Formula{ClassName: "Low End"}, mode: PricingModeCustomer, want: 3},
		{name: "class default halved for dealers", formula: &models.Formula{ClassName: "tab"}, mode: PricingModeDealer, want: 1},
		{name: "unknown class has no margin", formula: &models.Formula{ClassName: "Service"}, mode: PricingModeCustomer, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EffectiveMarginPercent(tt.formula, tt.mode), 1e-9)
		})
	}
}

func TestDefaultLaborLevel(t *testing.T) {
	tests := []struct {
		name    string
		formula *models.Formula
		mode    PricingMode
		want    LaborLevel
	}{
		{name: "2_major first", formula: &models.Formula{LaborLvl1: utils.ToPtr(1.0), LaborLvl2Major: utils.ToPtr(2.0)}, mode: PricingModeCustomer, want: LaborLevel2Major},
		{name: "then 2_minor", formula: &models.Formula{LaborLvl1: utils.ToPtr(1.0), LaborLvl2Minor: utils.ToPtr(2.0)}, mode: PricingModeCustomer, want: LaborLevel2Minor},
		{name: "then 1", formula: &models.Formula{LaborLvl1: utils.ToPtr(1.0)}, mode: PricingModeCustomer, want: LaborLevel1},
		{name: "dealer override counts", formula: &models.Formula{LaborLvl1: utils.ToPtr(1.0), DealerLaborLvl2Minor: utils.ToPtr(2.0)}, mode: PricingModeDealer, want: LaborLevel2Minor},
		{name: "dealer override ignored for customers", formula: &models.Formula{LaborLvl1: utils.ToPtr(1.0), DealerLaborLvl2Minor: utils.ToPtr(2.0)}, mode: PricingModeCustomer, want: LaborLevel1},
		{name: "falls back to 3", formula: &models.Formula{}, mode: PricingModeCustomer, want: LaborLevel3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultLaborLevel(tt.formula, tt.mode))
		})
	}
}

func TestParseLaborLevel(t *testing.T) {
	for _, s := range []string{"1", "2_major", "2_MINOR", " 3 "} {
		_, err := ParseLaborLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseLaborLevel("2")
	assert.True(t, IsInvalidLaborLevel(err))
}

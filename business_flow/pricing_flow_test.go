package businessflow

import (
	"testing"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMidEnd(t *testing.T, env *flowEnv) *models.Formula {
	t.Helper()
	f, err := env.fx.CreateTestFormula(models.Formula{
		ClassName:      "Mid End",
		LaborLvl1:      utils.ToPtr(10.0),
		LaborLvl2Major: utils.ToPtr(15.0),
		Margin:         utils.ToPtr(2.0),
		ExchangeRate:   1450,
	})
	require.NoError(t, err)
	return f
}

func TestPricingFlow_DealerEndToEnd(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewPricingFlow(env.parts, env.formulas)

	formula := createMidEnd(t, env)
	part := env.part(t, "GH82-100", "board", 100)

	resp, err := flow.CalculatePrice(env.ctx, &dto.CalculatePriceRequest{
		FormulaID:    formula.ID,
		LaborLevel:   utils.ToPtr("2_major"),
		CustomerType: utils.ToPtr("dealer"),
		PartID:       &part.ID,
	})
	require.NoError(t, err)

	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, "dealer", resp.CustomerType)
	assert.Equal(t, "Mid End", resp.FormulaClass)
	assert.Equal(t, "2_major", resp.LaborLevelUsed)
	assert.InDelta(t, 15.0, resp.LaborCost, 1e-9)
	assert.InDelta(t, 1.0, resp.MarginPercent, 1e-9)
	assert.InDelta(t, 1.0, resp.Margin, 1e-9)
	assert.InDelta(t, 116.0, resp.FinalPriceUSD, 1e-9)
	assert.InDelta(t, 168200.0, resp.FinalPriceIQD, 1e-6)
	assert.Equal(t, 116.0, resp.FinalPriceUSDRounded)
	assert.Equal(t, 168200.0, resp.FinalPriceIQDRounded)
	assert.Equal(t, "GH82-100", resp.PartCode)
	assert.Equal(t, []string{"GH82-100"}, resp.PartCodes)
	assert.InDelta(t, 100.0, resp.BasePrice, 1e-9)
}

func TestPricingFlow_BothModesAndDefaultLevel(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewPricingFlow(env.parts, env.formulas)

	formula := createMidEnd(t, env)
	a := env.part(t, "A-1", "", 30)
	b := env.part(t, "B-1", "", 20)

	resp, err := flow.CalculatePrice(env.ctx, &dto.CalculatePriceRequest{
		FormulaID: formula.ID,
		Parts: []dto.PartSelection{
			{PartID: a.ID, Qty: utils.ToPtr(2)},
			{PartID: b.ID, Qty: utils.ToPtr(0)},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 80.0, resp.BasePrice, 1e-9)
	assert.Equal(t, []string{"A-1 x2", "B-1"}, resp.PartCodes)
	require.Len(t, resp.Quotes, 2)

	customer, dealer := resp.Quotes[0], resp.Quotes[1]
	assert.Equal(t, "customer", customer.CustomerType)
	assert.Equal(t, "2_major", customer.LaborLevelUsed)
	assert.InDelta(t, 80+15+1.6, customer.FinalPriceUSD, 1e-9)
	assert.Equal(t, "dealer", dealer.CustomerType)
	assert.InDelta(t, 80+15+0.8, dealer.FinalPriceUSD, 1e-9)
	assert.Equal(t, customer, resp.PriceQuoteDTO)
}

func TestPricingFlow_ManualAndLaborOnly(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewPricingFlow(env.parts, env.formulas)
	formula := createMidEnd(t, env)

	resp, err := flow.CalculatePrice(env.ctx, &dto.CalculatePriceRequest{
		FormulaID:      formula.ID,
		CustomerType:   utils.ToPtr("customer"),
		ManualTotalMap: utils.ToPtr(50.0),
	})
	require.NoError(t, err)
	assert.Equal(t, "Manual", resp.PartCode)
	assert.InDelta(t, 50+15+1.0, resp.FinalPriceUSD, 1e-9)

	resp, err = flow.CalculatePrice(env.ctx, &dto.CalculatePriceRequest{
		FormulaID:    formula.ID,
		LaborLevel:   utils.ToPtr("1"),
		CustomerType: utils.ToPtr("customer"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, resp.FinalPriceUSD, 1e-9)
	assert.Empty(t, resp.PartCodes)

	_, err = flow.CalculatePrice(env.ctx, &dto.CalculatePriceRequest{
		FormulaID:  formula.ID,
		LaborLevel: utils.ToPtr("2_major"),
	})
	assert.True(t, IsNothingToPrice(err))
	assert.True(t, IsValidationError(err))
}

func TestPricingFlow_Errors(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewPricingFlow(env.parts, env.formulas)
	formula := createMidEnd(t, env)

	tests := []struct {
		name  string
		req   *dto.CalculatePriceRequest
		check func(error) bool
	}{
		{name: "nil request", req: nil, check: IsValidationError},
		{name: "missing formula id", req: &dto.CalculatePriceRequest{}, check: IsValidationError},
		{name: "unknown formula", req: &dto.CalculatePriceRequest{FormulaID: 999, ManualTotalMap: utils.ToPtr(1.0)}, check: IsFormulaNotFound},
		{name: "unknown part", req: &dto.CalculatePriceRequest{FormulaID: formula.ID, PartID: utils.ToPtr(uint(999))}, check: IsPartNotFound},
		{name: "bad level", req: &dto.CalculatePriceRequest{FormulaID: formula.ID, LaborLevel: utils.ToPtr("4")}, check: IsInvalidLaborLevel},
		{name: "bad customer type", req: &dto.CalculatePriceRequest{FormulaID: formula.ID, CustomerType: utils.ToPtr("vip")}, check: IsValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := flow.CalculatePrice(env.ctx, tt.req)
			assert.Nil(t, resp)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestPricingFlow_IncludeCompanions(t *testing.T) {
	env := newFlowEnv(t)
	env.seedGalaxyCatalog(t)
	flow := NewPricingFlow(env.parts, env.formulas)
	formula := createMidEnd(t, env)

	display := env.part(t, "GH82-1 LCD-OLED", "Galaxy S23", 100)
	kit := env.part(t, "GH82-2", "Repair Kit OLED Galaxy S23", 5)

	resp, err := flow.CalculatePrice(env.ctx, &dto.CalculatePriceRequest{
		FormulaID:         formula.ID,
		LaborLevel:        utils.ToPtr("2_major"),
		CustomerType:      utils.ToPtr("dealer"),
		PartID:            &display.ID,
		IncludeCompanions: true,
	})
	require.NoError(t, err)

	require.Len(t, resp.Companions, 1)
	assert.Equal(t, kit.ID, resp.Companions[0].Part.ID)
	assert.InDelta(t, 105.0, resp.BasePrice, 1e-9)
	assert.Equal(t, []string{"GH82-1 LCD-OLED", "GH82-2"}, resp.PartCodes)
	assert.Equal(t, "GH82-1 LCD-OLED", resp.PartCode)
}

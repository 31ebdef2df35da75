package businessflow

import (
	"testing"

	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes each sheet's rows starting at A1. The first sheet replaces the default one.
func buildWorkbook(t *testing.T, sheets []string, rows map[string][][]any) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	for i, name := range sheets {
		if i == 0 {
			require.NoError(t, book.SetSheetName("Sheet1", name))
		} else {
			_, err := book.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, book.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Part Code", want: "part_code"},
		{in: "  P/No. ", want: "p_no_"},
		{in: "WH Stock Q", want: "wh_stock_q"},
		{in: "GR $", want: "gr_$"},
		{in: "Mo.Avg Price", want: "mo_avg_price"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeHeader(tt.in))
		})
	}
}

func TestResolvePartColumns(t *testing.T) {
	cols := resolvePartColumns([]string{"Parts Desc", "Item Number", "MAP"})
	_, ok := cols["code"]
	assert.False(t, ok, "neither an alias nor a fallback header")

	cols = resolvePartColumns([]string{"Parts Desc", "Vendor Code", "MAP"})
	assert.Equal(t, 1, cols["code"])
	assert.Equal(t, 0, cols["description"])
	assert.Equal(t, 2, cols["map_price"])

	cols = resolvePartColumns([]string{"Code Desc", "Part", "N"})
	assert.Equal(t, 1, cols["code"], "headers mentioning desc are never the code")
	assert.Equal(t, 2, cols["net_price"])
}

func TestImportFlow_ImportExcel(t *testing.T) {
	env := newFlowEnv(t)
	env.seedGalaxyCatalog(t)
	flow := NewImportFlow(env.parts, env.formulas, env.catalog)

	_, err := env.fx.CreateTestPart(models.Part{Code: "P-1", Description: utils.ToPtr("keep me"), MapPrice: utils.ToPtr(1.0)})
	require.NoError(t, err)
	_, err = env.fx.CreateTestPart(models.Part{Code: "P-2", MapPrice: utils.ToPtr(2.0)})
	require.NoError(t, err)
	_, err = env.fx.CreateTestFormula(models.Formula{ClassName: "Low End", LaborLvl1: utils.ToPtr(4.0)})
	require.NoError(t, err)

	content := buildWorkbook(t, []string{"Notes", partsSheetName, formulasSheetName}, map[string][][]any{
		"Notes": {{"ignored"}},
		partsSheetName: {
			{"Part Code", "Parts Desc", "MAP", "Status", "WH Stock Q", "ENG Stock Q"},
			{"P-1", "replacement", 11.5, "Active", 1, 2},
			{"P-2", "Galaxy A15 back cover", "1,250", "dead", "#N/A", 3},
			{"P-3", "Galaxy S23 back glass;;", "#N/A", "weird", "", ""},
			{"", "no code", 5},
			{"nan", "no code either", 5},
		},
		formulasSheetName: {
			{"Class", "Labor 1", "Major", "Margin", "Exchange"},
			{"Low End", "", 12, 0.05, ""},
			{"High End", 8, 20, 3, 1500},
			{"", 1, 1, 1, 1},
		},
	})

	resp, err := flow.ImportExcel(env.ctx, "prices.xlsx", content)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.PartsImported)
	assert.Equal(t, 2, resp.FormulasImported)
	assert.Equal(t, "Imported 3 parts and 2 formulas from prices.xlsx", resp.Message)

	p1, err := env.parts.ByCode(env.ctx, "P-1")
	require.NoError(t, err)
	require.NotNil(t, p1)
	assert.Equal(t, "keep me", *p1.Description)
	assert.InDelta(t, 11.5, *p1.MapPrice, 1e-9)
	assert.Equal(t, 3, *p1.StockQty)

	p2, err := env.parts.ByCode(env.ctx, "P-2")
	require.NoError(t, err)
	require.NotNil(t, p2)
	assert.Equal(t, "Galaxy A15 back cover", *p2.Description)
	assert.Equal(t, models.PartStatusDead, p2.Status)
	assert.InDelta(t, 1250.0, *p2.MapPrice, 1e-9)
	assert.Equal(t, 3, *p2.StockQty)
	require.NotNil(t, p2.DeviceName)
	assert.Equal(t, "Galaxy A15", *p2.DeviceName)

	p3, err := env.parts.ByCode(env.ctx, "P-3")
	require.NoError(t, err)
	require.NotNil(t, p3)
	assert.Equal(t, "Galaxy S23 back glass", *p3.Description)
	assert.Equal(t, models.PartStatusActive, p3.Status)
	assert.Nil(t, p3.MapPrice)
	assert.Nil(t, p3.StockQty)
	require.NotNil(t, p3.Category)
	assert.Equal(t, models.CategoryHighEnd, *p3.Category)

	low, err := env.formulas.ByClassName(env.ctx, "Low End")
	require.NoError(t, err)
	require.NotNil(t, low)
	assert.InDelta(t, 4.0, *low.LaborLvl1, 1e-9, "empty cells keep stored values")
	assert.InDelta(t, 12.0, *low.LaborLvl2Major, 1e-9)
	assert.InDelta(t, 5.0, *low.Margin, 1e-9)

	high, err := env.formulas.ByClassName(env.ctx, "High End")
	require.NoError(t, err)
	require.NotNil(t, high)
	assert.Equal(t, 1500.0, high.ExchangeRate)
	assert.InDelta(t, 3.0, *high.Margin, 1e-9)
}

func TestImportFlow_FirstSheetFallback(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewImportFlow(env.parts, env.formulas, env.catalog)

	content := buildWorkbook(t, []string{"Export"}, map[string][][]any{
		"Export": {
			{"Material", "Description", "Stock Qty"},
			{"M-1", "N/A", 4},
		},
	})

	resp, err := flow.ImportExcel(env.ctx, "EXPORT.XLSX", content)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PartsImported)
	assert.Equal(t, 0, resp.FormulasImported)

	m1, err := env.parts.ByCode(env.ctx, "M-1")
	require.NoError(t, err)
	require.NotNil(t, m1)
	assert.Nil(t, m1.Description)
	assert.Equal(t, 4, *m1.StockQty)
}

func TestImportFlow_Rejects(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewImportFlow(env.parts, env.formulas, env.catalog)

	_, err := flow.ImportExcel(env.ctx, "prices.csv", []byte("code\nA"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
	assert.True(t, IsValidationError(err))

	_, err = flow.ImportExcel(env.ctx, "prices.xlsx", []byte("not a workbook"))
	assert.ErrorIs(t, err, ErrImportFailed)
}

func TestImportFlow_NegativeQuantitiesClampToZero(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewImportFlow(env.parts, env.formulas, env.catalog)

	content := buildWorkbook(t, []string{"Parts"}, map[string][][]any{
		"Parts": {
			{"Code", "Stock Qty", "GR Qty"},
			{"NEG-1", -3, -1},
			{"POS-1", 7, 2},
		},
	})

	resp, err := flow.ImportExcel(env.ctx, "stock.xlsx", content)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.PartsImported)

	pos, err := env.parts.ByCode(env.ctx, "POS-1")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, 7, *pos.StockQty)
	assert.Equal(t, 2, *pos.GrQty)

	neg, err := env.parts.ByCode(env.ctx, "NEG-1")
	require.NoError(t, err)
	require.NotNil(t, neg)
	assert.Equal(t, 0, *neg.StockQty)
	assert.Equal(t, 0, *neg.GrQty)
}

package businessflow

import (
	"bytes"
	"strings"
	"testing"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestPartFlow_CreateAnnotatesAndDefaults(t *testing.T) {
	env := newFlowEnv(t)
	env.seedGalaxyCatalog(t)
	flow := NewPartFlow(env.parts, env.catalog)

	created, err := flow.CreatePart(env.ctx, &dto.CreatePartRequest{
		Code:        "  GH82-30480A LCD-OLED ",
		Description: utils.ToPtr("Galaxy S23 display assy"),
		MapPrice:    utils.ToPtr(85.5),
	})
	require.NoError(t, err)

	assert.Equal(t, "GH82-30480A LCD-OLED", created.Code)
	assert.Equal(t, models.PartStatusActive, created.Status)
	require.NotNil(t, created.DeviceName)
	assert.Equal(t, "Galaxy S23", *created.DeviceName)
	assert.Equal(t, models.CategoryHighEnd, *created.Category)

	_, err = flow.CreatePart(env.ctx, &dto.CreatePartRequest{Code: "GH82-30480A LCD-OLED"})
	assert.True(t, IsConflict(err))

	_, err = flow.CreatePart(env.ctx, &dto.CreatePartRequest{Code: "   "})
	assert.True(t, IsValidationError(err))

	_, err = flow.CreatePart(env.ctx, &dto.CreatePartRequest{Code: "X-1", Status: utils.ToPtr("Broken")})
	assert.True(t, IsValidationError(err))
}

func TestPartFlow_UpdateReannotatesOnTextChange(t *testing.T) {
	env := newFlowEnv(t)
	env.seedGalaxyCatalog(t)
	flow := NewPartFlow(env.parts, env.catalog)

	p := env.part(t, "BATT-1", "Galaxy S23 battery", 20)
	require.Equal(t, models.CategoryHighEnd, *p.Category)

	updated, err := flow.UpdatePart(env.ctx, p.ID, &dto.UpdatePartRequest{
		Description: utils.ToPtr("Galaxy A15 battery"),
		StockQty:    utils.ToPtr(9),
	})
	require.NoError(t, err)
	assert.Equal(t, "Galaxy A15", *updated.DeviceName)
	assert.Equal(t, models.CategoryLowEnd, *updated.Category)
	assert.Equal(t, 9, *updated.StockQty)

	updated, err = flow.UpdatePart(env.ctx, p.ID, &dto.UpdatePartRequest{Description: utils.ToPtr("generic battery")})
	require.NoError(t, err)
	assert.Nil(t, updated.DeviceName)
	assert.Nil(t, updated.DeviceCode)
	assert.Nil(t, updated.Category)

	_, err = flow.UpdatePart(env.ctx, 9999, &dto.UpdatePartRequest{})
	assert.True(t, IsNotFound(err))
}

func TestPartFlow_ListCountAndFilters(t *testing.T) {
	env := newFlowEnv(t)
	env.seedGalaxyCatalog(t)
	flow := NewPartFlow(env.parts, env.catalog)

	env.part(t, "SM-S928 OLED", "Galaxy S23 screen", 120)
	env.part(t, "A155 BATT", "Galaxy A15 battery", 15)
	empty := env.part(t, "MISC-1", "cable", 3)
	_, err := flow.UpdatePart(env.ctx, empty.ID, &dto.UpdatePartRequest{StockQty: utils.ToPtr(0)})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter dto.PartListFilter
		want   int64
	}{
		{name: "no filter", want: 3},
		{name: "search normalized code", filter: dto.PartListFilter{Search: utils.ToPtr("sms928")}, want: 1},
		{name: "search description", filter: dto.PartListFilter{Search: utils.ToPtr("battery")}, want: 1},
		{name: "min price", filter: dto.PartListFilter{MinPrice: utils.ToPtr(10.0)}, want: 2},
		{name: "price window", filter: dto.PartListFilter{MinPrice: utils.ToPtr(10.0), MaxPrice: utils.ToPtr(100.0)}, want: 1},
		{name: "in stock", filter: dto.PartListFilter{InStock: utils.ToPtr(true)}, want: 2},
		{name: "out of stock", filter: dto.PartListFilter{InStock: utils.ToPtr(false)}, want: 1},
		{name: "device key", filter: dto.PartListFilter{Device: utils.ToPtr("galaxy a15||sm-a155")}, want: 1},
		{name: "status dead", filter: dto.PartListFilter{Status: utils.ToPtr(models.PartStatusDead)}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := flow.CountParts(env.ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count.Total)

			list, err := flow.ListParts(env.ctx, &dto.ListPartsRequest{PartListFilter: tt.filter})
			require.NoError(t, err)
			assert.Len(t, list.Items, int(tt.want))
		})
	}

	page, err := flow.ListParts(env.ctx, &dto.ListPartsRequest{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "A155 BATT", page.Items[0].Code)
	assert.Equal(t, 1, page.Limit)
}

func TestPartFlow_DeviceOptionsAndDetect(t *testing.T) {
	env := newFlowEnv(t)
	env.seedGalaxyCatalog(t)
	flow := NewPartFlow(env.parts, env.catalog)

	env.part(t, "P1", "Galaxy S23 frame", 10)
	env.part(t, "P2", "Galaxy S23 glass", 10)
	env.part(t, "P3", "Galaxy A15 frame", 10)
	env.part(t, "P4", "unknown", 10)

	opts, err := flow.DeviceOptions(env.ctx)
	require.NoError(t, err)
	require.Len(t, opts.Items, 2)
	assert.Equal(t, "Galaxy A15", opts.Items[0].Label)
	assert.Equal(t, "galaxy a15||sm-a155", opts.Items[0].Key)
	assert.Equal(t, "Galaxy S23", opts.Items[1].Label)

	got, err := flow.DetectDevice(env.ctx, "LCD for sm-s911b")
	require.NoError(t, err)
	assert.Equal(t, "Galaxy S23", *got.ModelName)
	assert.Equal(t, models.CategoryHighEnd, *got.Category)

	got, err = flow.DetectDevice(env.ctx, "iPhone 12 screen")
	require.NoError(t, err)
	assert.Nil(t, got.ModelName)
	assert.Nil(t, got.ModelCode)
	assert.Nil(t, got.Category)
}

func TestPartFlow_ResolveCompanions(t *testing.T) {
	env := newFlowEnv(t)
	env.seedGalaxyCatalog(t)
	flow := NewPartFlow(env.parts, env.catalog)

	display := env.part(t, "GH82-1 LCD-OLED", "Galaxy S23", 100)
	kit := env.part(t, "GH82-2", "Repair Kit OLED Galaxy S23", 5)
	env.part(t, "GH82-3", "Repair Kit OLED Galaxy A15", 5)

	resp, err := flow.ResolveCompanions(env.ctx, &dto.ResolveCompanionsRequest{PartID: display.ID})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, kit.ID, resp.Items[0].Part.ID)
	assert.Equal(t, 1, resp.Items[0].Quantity)

	resp, err = flow.ResolveCompanions(env.ctx, &dto.ResolveCompanionsRequest{PartID: display.ID, SelectedIDs: []uint{kit.ID}})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	_, err = flow.ResolveCompanions(env.ctx, &dto.ResolveCompanionsRequest{PartID: 4242})
	assert.True(t, IsPartNotFound(err))
}

func TestPartFlow_BulkOperations(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewPartFlow(env.parts, env.catalog)

	env.part(t, "KEEP-1", "screen", 10)
	env.part(t, "BATT-1", "battery", 10)
	env.part(t, "BATT-2", "battery", 10)

	filter := dto.PartListFilter{Search: utils.ToPtr("batt")}
	res, err := flow.EmptyStock(env.ctx, &dto.BulkPartsRequest{PartListFilter: filter})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, 0, res.Failed)

	count, err := flow.CountParts(env.ctx, dto.PartListFilter{InStock: utils.ToPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Total)

	res, err = flow.DeleteMatching(env.ctx, &dto.BulkPartsRequest{PartListFilter: filter})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Affected)

	count, err = flow.CountParts(env.ctx, dto.PartListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Total)
}

func TestPartFlow_Reannotate(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewPartFlow(env.parts, env.catalog)

	p := env.part(t, "X1", "Galaxy S23 frame", 10)
	require.Nil(t, p.DeviceName)

	env.seedGalaxyCatalog(t)
	res, err := flow.Reannotate(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Updated)

	got, err := flow.GetPart(env.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Galaxy S23", *got.DeviceName)

	res, err = flow.Reannotate(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
}

func TestPartFlow_Export(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewPartFlow(env.parts, env.catalog)

	env.part(t, "EXP-1", "first", 10)
	env.part(t, "EXP-2", "", 20)

	csvFile, err := flow.Export(env.ctx, dto.PartListFilter{}, "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(csvFile.Filename, ".csv"))

	var rows []partExportRow
	require.NoError(t, gocsv.UnmarshalBytes(csvFile.Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "EXP-1", rows[0].Code)
	assert.Equal(t, "first", rows[0].Description)
	assert.Equal(t, "20", rows[1].MapPrice)

	xlsxFile, err := flow.Export(env.ctx, dto.PartListFilter{Search: utils.ToPtr("EXP-2")}, "XLSX")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(xlsxFile.Filename, ".xlsx"))

	book, err := excelize.OpenReader(bytes.NewReader(xlsxFile.Data))
	require.NoError(t, err)
	defer book.Close()
	sheetRows, err := book.GetRows(partsSheetName)
	require.NoError(t, err)
	require.Len(t, sheetRows, 2)
	assert.Equal(t, "code", sheetRows[0][1])
	assert.Equal(t, "EXP-2", sheetRows[1][1])

	_, err = flow.Export(env.ctx, dto.PartListFilter{}, "pdf")
	assert.True(t, IsValidationError(err))
}

package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

const formulasSheetName = "Formulas"

// partColumnAliases maps normalized spreadsheet headers to part fields
var partColumnAliases = map[string]string{
	"part_code": "code", "part_number": "code", "part_no": "code", "parts_no": "code",
	"p_no": "code", "p_no_": "code", "p_no__": "code", "item_code": "code", "material": "code",
	"material_code": "code", "code": "code", "parts_code": "code",

	"parts_desc": "description", "desc": "description", "desc_": "description",
	"description": "description", "part_description": "description", "item_desc": "description",
	"name": "description",

	"map": "map_price", "map_price": "map_price", "mo_avg_price": "map_price",
	"status": "status",
	"n": "net_price", "net": "net_price", "net_price": "net_price",
	"diff": "diff", "diff_": "diff",
	"s_qty": "stock_qty", "s_qty_": "stock_qty", "stock_quantity": "stock_qty", "stock_qty": "stock_qty",
	"wh_stock_q": "wh_stock_qty", "wh_stock_qty": "wh_stock_qty",
	"eng_stock_q": "eng_stock_qty", "eng_stock_qty": "eng_stock_qty",
	"gr_qty": "gr_qty",
	"gr_$": "gr_usd", "gr_usd": "gr_usd", "mo_avg_amount": "gr_usd",
}

// codeFallbackHeaders are tried when no header maps to the code column
var codeFallbackHeaders = []string{"p_no", "p_no_", "p_no__", "material", "material_code", "item_code", "part", "parts"}

// formulaColumnAliases maps normalized headers of the Formulas sheet
var formulaColumnAliases = map[string]string{
	"class": "class_name", "class_name": "class_name",
	"labor_1": "labor_lvl1", "labor_lvl1": "labor_lvl1",
	"labor_2": "labor_lvl2", "labor_lvl2": "labor_lvl2",
	"labor_3": "labor_lvl3", "labor_lvl3": "labor_lvl3",
	"major": "labor_lvl2_major", "labor_lvl2_major": "labor_lvl2_major",
	"minor": "labor_lvl2_minor", "labor_lvl2_minor": "labor_lvl2_minor",
	"margin": "margin",
	"exchange": "exchange_rate", "exchange_rate": "exchange_rate",
	"dealer_labor_1": "dealer_labor_lvl1", "dealer_labor_lvl1": "dealer_labor_lvl1",
	"dealer_major": "dealer_labor_lvl2_major", "dealer_labor_lvl2_major": "dealer_labor_lvl2_major",
	"dealer_minor": "dealer_labor_lvl2_minor", "dealer_labor_lvl2_minor": "dealer_labor_lvl2_minor",
	"dealer_labor_3": "dealer_labor_lvl3", "dealer_labor_lvl3": "dealer_labor_lvl3",
	"dealer_margin": "dealer_margin",
}

// naCells are cell values read as empty, compared lowercased
var naCells = map[string]struct{}{
	"#n/a": {}, "n/a": {}, "na": {}, "-": {}, "—": {}, "#ref!": {}, "#null!": {},
	"nan": {}, "null": {}, "none": {}, "<na>": {}, "#na": {},
}

// placeholderDescriptions are descriptions stored as empty
var placeholderDescriptions = map[string]struct{}{
	"nan": {}, "none": {}, "-": {}, "--": {}, "n/a": {}, "#n/a": {},
}

var (
	headerSpaceRe  = regexp.MustCompile(`\s+`)
	headerPunctRe  = regexp.MustCompile(`[\\./-]+`)
	trailingSemiRe = regexp.MustCompile(`;+$`)
)

// normalizeHeader lowercases a header and folds whitespace and ./- runs into underscores
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = headerSpaceRe.ReplaceAllString(h, "_")
	return headerPunctRe.ReplaceAllString(h, "_")
}

// sheetColumns maps a field name to its column index
type sheetColumns map[string]int

func resolveColumns(header []string, aliases map[string]string) sheetColumns {
	cols := make(sheetColumns)
	for i, h := range header {
		field, ok := aliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := cols[field]; !seen {
			cols[field] = i
		}
	}
	return cols
}

func resolvePartColumns(header []string) sheetColumns {
	cols := resolveColumns(header, partColumnAliases)
	if _, ok := cols["code"]; ok {
		return cols
	}
	for i, h := range header {
		n := normalizeHeader(h)
		if strings.Contains(n, "desc") {
			continue
		}
		if strings.Contains(n, "code") || slices.Contains(codeFallbackHeaders, n) {
			cols["code"] = i
			break
		}
	}
	return cols
}

type sheetRow struct {
	cells []string
	cols  sheetColumns
}

func (r sheetRow) has(field string) bool {
	_, ok := r.cols[field]
	return ok
}

// text returns the trimmed cell for field, or "" when missing or NA.
func (r sheetRow) text(field string) string {
	i, ok := r.cols[field]
	if !ok || i >= len(r.cells) {
		return ""
	}
	v := strings.TrimSpace(r.cells[i])
	if _, na := naCells[strings.ToLower(v)]; na {
		return ""
	}
	return v
}

// float coerces the cell to a number; unparsable values are nil.
func (r sheetRow) float(field string) *float64 {
	v := strings.ReplaceAll(r.text(field), ",", "")
	if v == "" {
		return nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// quantity reads a whole count. Negative counts are stored as 0.
func (r sheetRow) quantity(field string) *int {
	f := r.float(field)
	if f == nil {
		return nil
	}
	n := max(cast.ToInt(math.Round(*f)), 0)
	return &n
}

// stockQty reads stock_qty, or sums the warehouse and engineering columns when it is absent.
func (r sheetRow) stockQty() *int {
	if r.has("stock_qty") {
		return r.quantity("stock_qty")
	}
	wh, eng := r.quantity("wh_stock_qty"), r.quantity("eng_stock_qty")
	if wh == nil && eng == nil {
		return nil
	}
	total := 0
	if wh != nil {
		total += *wh
	}
	if eng != nil {
		total += *eng
	}
	return &total
}

// cleanDescription strips trailing semicolons and maps placeholders to nil.
func cleanDescription(v string) *string {
	v = strings.TrimSpace(trailingSemiRe.ReplaceAllString(strings.TrimSpace(v), ""))
	if v == "" {
		return nil
	}
	if _, ok := placeholderDescriptions[strings.ToLower(v)]; ok {
		return nil
	}
	return &v
}

// ImportFlow ingests pricing spreadsheets
type ImportFlow interface {
	ImportExcel(ctx context.Context, filename string, content []byte) (*dto.ImportExcelResponse, error)
}

// ImportFlowImpl implements ImportFlow
type ImportFlowImpl struct {
	partRepo    repository.PartRepository
	formulaRepo repository.FormulaRepository
	catalog     DeviceCatalog
}

// NewImportFlow creates a new import flow
func NewImportFlow(partRepo repository.PartRepository, formulaRepo repository.FormulaRepository, catalog DeviceCatalog) ImportFlow {
	return &ImportFlowImpl{
		partRepo:    partRepo,
		formulaRepo: formulaRepo,
		catalog:     catalog,
	}
}

// ImportExcel upserts parts by code from the "Parts" sheet (or the first
// sheet) and formulas by class name from an optional "Formulas" sheet. Rows
// that fail to save are logged and skipped.
func (f *ImportFlowImpl) ImportExcel(ctx context.Context, filename string, content []byte) (*dto.ImportExcelResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xls" {
		return nil, NewBusinessError("UNSUPPORTED_FILE", "Only .xlsx or .xls files are supported", ErrUnsupportedFile)
	}

	x, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, NewBusinessError("IMPORT_FAILED", "Failed to read spreadsheet", fmt.Errorf("%w: %v", ErrImportFailed, err))
	}
	defer func() {
		if err := x.Close(); err != nil {
			log.Printf("import: close workbook: %v", err)
		}
	}()

	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewBusinessError("IMPORT_FAILED", "Spreadsheet has no sheets", ErrImportFailed)
	}
	partsSheet := sheets[0]
	if slices.Contains(sheets, partsSheetName) {
		partsSheet = partsSheetName
	}

	matcher, err := f.catalog.Matcher(ctx)
	if err != nil {
		return nil, NewBusinessError("DEVICE_CATALOG_UNAVAILABLE", "Failed to load device catalog", err)
	}

	partRows, err := x.GetRows(partsSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, NewBusinessError("IMPORT_FAILED", "Failed to read parts sheet", fmt.Errorf("%w: %v", ErrImportFailed, err))
	}
	partsImported := f.importParts(ctx, partRows, matcher)

	formulasImported := 0
	if slices.Contains(sheets, formulasSheetName) {
		formulaRows, err := x.GetRows(formulasSheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			log.Printf("import: formulas sheet skipped: %v", err)
		} else {
			formulasImported = f.importFormulas(ctx, formulaRows)
		}
	}

	excelImportRowsTotal.WithLabelValues("part").Add(float64(partsImported))
	excelImportRowsTotal.WithLabelValues("formula").Add(float64(formulasImported))

	return &dto.ImportExcelResponse{
		Message:          fmt.Sprintf("Imported %d parts and %d formulas from %s", partsImported, formulasImported, filename),
		PartsImported:    partsImported,
		FormulasImported: formulasImported,
	}, nil
}

func (f *ImportFlowImpl) importParts(ctx context.Context, rows [][]string, matcher *DeviceMatcher) int {
	if len(rows) == 0 {
		return 0
	}
	cols := resolvePartColumns(rows[0])
	if _, ok := cols["code"]; !ok {
		log.Printf("import: no code column found in parts sheet")
		return 0
	}

	imported := 0
	for n, cells := range rows[1:] {
		row := sheetRow{cells: cells, cols: cols}
		code := row.text("code")
		if code == "" || strings.EqualFold(code, "nan") {
			continue
		}
		if err := f.upsertPart(ctx, row, code, matcher); err != nil {
			log.Printf("import: parts row %d (%s): %v", n+2, code, err)
			continue
		}
		imported++
	}
	return imported
}

func (f *ImportFlowImpl) upsertPart(ctx context.Context, row sheetRow, code string, matcher *DeviceMatcher) error {
	incoming := models.Part{
		Code:     code,
		MapPrice: row.float("map_price"),
		NetPrice: row.float("net_price"),
		Diff:     row.float("diff"),
		StockQty: row.stockQty(),
		GrQty:    row.quantity("gr_qty"),
		GrUSD:    row.float("gr_usd"),
	}
	if row.has("description") {
		incoming.Description = cleanDescription(row.text("description"))
	}
	var status *string
	if row.has("status") {
		raw := row.text("status")
		s, err := partStatus(&raw)
		if err != nil {
			s = models.PartStatusActive
		}
		status = &s
	}

	existing, err := f.partRepo.ByCode(ctx, code)
	if err != nil {
		return err
	}
	if existing == nil {
		incoming.Status = models.PartStatusActive
		if status != nil {
			incoming.Status = *status
		}
		matcher.Annotate(&incoming)
		return f.partRepo.Save(ctx, &incoming)
	}

	if incoming.Description != nil && (existing.Description == nil || strings.TrimSpace(*existing.Description) == "") {
		existing.Description = incoming.Description
	}
	if status != nil {
		existing.Status = *status
	}
	assignIfSet(&existing.MapPrice, incoming.MapPrice)
	assignIfSet(&existing.NetPrice, incoming.NetPrice)
	assignIfSet(&existing.Diff, incoming.Diff)
	assignIfSet(&existing.StockQty, incoming.StockQty)
	assignIfSet(&existing.GrQty, incoming.GrQty)
	assignIfSet(&existing.GrUSD, incoming.GrUSD)
	matcher.Annotate(existing)
	return f.partRepo.Update(ctx, existing)
}

// assignIfSet overwrites dst only with a non-nil value
func assignIfSet[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func (f *ImportFlowImpl) importFormulas(ctx context.Context, rows [][]string) int {
	if len(rows) == 0 {
		return 0
	}
	cols := resolveColumns(rows[0], formulaColumnAliases)
	if _, ok := cols["class_name"]; !ok {
		log.Printf("import: no class column found in formulas sheet")
		return 0
	}

	imported := 0
	for n, cells := range rows[1:] {
		row := sheetRow{cells: cells, cols: cols}
		className := row.text("class_name")
		if className == "" {
			continue
		}
		if err := f.upsertFormula(ctx, row, className); err != nil {
			log.Printf("import: formulas row %d (%s): %v", n+2, className, err)
			continue
		}
		imported++
	}
	return imported
}

func (f *ImportFlowImpl) upsertFormula(ctx context.Context, row sheetRow, className string) error {
	fields := dto.FormulaFields{
		LaborLvl1:            row.float("labor_lvl1"),
		LaborLvl2:            row.float("labor_lvl2"),
		LaborLvl2Major:       row.float("labor_lvl2_major"),
		LaborLvl2Minor:       row.float("labor_lvl2_minor"),
		LaborLvl3:            row.float("labor_lvl3"),
		Margin:               row.float("margin"),
		ExchangeRate:         row.float("exchange_rate"),
		DealerLaborLvl1:      row.float("dealer_labor_lvl1"),
		DealerLaborLvl2Major: row.float("dealer_labor_lvl2_major"),
		DealerLaborLvl2Minor: row.float("dealer_labor_lvl2_minor"),
		DealerLaborLvl3:      row.float("dealer_labor_lvl3"),
		DealerMargin:         row.float("dealer_margin"),
	}

	existing, err := f.formulaRepo.ByClassName(ctx, className)
	if err != nil {
		return err
	}
	if existing == nil {
		formula := models.Formula{ClassName: className, ExchangeRate: models.DefaultExchangeRate}
		applyFormulaFields(&formula, fields)
		return f.formulaRepo.Save(ctx, &formula)
	}
	applyFormulaFields(existing, fields)
	return f.formulaRepo.Update(ctx, existing)
}

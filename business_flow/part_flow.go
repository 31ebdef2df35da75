package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// PartFlow handles the parts store: CRUD, listing, bulk operations and device annotation
type PartFlow interface {
	ListParts(ctx context.Context, req *dto.ListPartsRequest) (*dto.ListPartsResponse, error)
	CountParts(ctx context.Context, filter dto.PartListFilter) (*dto.CountPartsResponse, error)
	GetPart(ctx context.Context, id uint) (*dto.PartDTO, error)
	CreatePart(ctx context.Context, req *dto.CreatePartRequest) (*dto.PartDTO, error)
	UpdatePart(ctx context.Context, id uint, req *dto.UpdatePartRequest) (*dto.PartDTO, error)
	DeletePart(ctx context.Context, id uint) error
	DeviceOptions(ctx context.Context) (*dto.DeviceOptionsResponse, error)
	DetectDevice(ctx context.Context, text string) (*dto.DetectDeviceResponse, error)
	ResolveCompanions(ctx context.Context, req *dto.ResolveCompanionsRequest) (*dto.ResolveCompanionsResponse, error)
	EmptyStock(ctx context.Context, req *dto.BulkPartsRequest) (*dto.BulkOperationResponse, error)
	DeleteMatching(ctx context.Context, req *dto.BulkPartsRequest) (*dto.BulkOperationResponse, error)
	Reannotate(ctx context.Context) (*dto.ReannotateResponse, error)
	Export(ctx context.Context, filter dto.PartListFilter, format string) (*dto.ExportFile, error)
}

// PartFlowImpl implements PartFlow
type PartFlowImpl struct {
	partRepo repository.PartRepository
	catalog  DeviceCatalog
}

// NewPartFlow creates a new part flow
func NewPartFlow(partRepo repository.PartRepository, catalog DeviceCatalog) PartFlow {
	return &PartFlowImpl{
		partRepo: partRepo,
		catalog:  catalog,
	}
}

func partFilter(f dto.PartListFilter) models.PartFilter {
	return models.PartFilter{
		Search:    utils.TrimmedOrNil(f.Search),
		Status:    utils.TrimmedOrNil(f.Status),
		MinPrice:  f.MinPrice,
		MaxPrice:  f.MaxPrice,
		InStock:   f.InStock,
		DeviceKey: utils.TrimmedOrNil(f.Device),
		Category:  utils.TrimmedOrNil(f.Category),
	}
}

// partStatus resolves a requested status; empty means Active.
func partStatus(s *string) (string, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return models.PartStatusActive, nil
	}
	v := strings.TrimSpace(*s)
	switch {
	case strings.EqualFold(v, models.PartStatusActive):
		return models.PartStatusActive, nil
	case strings.EqualFold(v, models.PartStatusDead):
		return models.PartStatusDead, nil
	}
	return "", NewBusinessErrorf("INVALID_PART_STATUS", "Invalid part status %q", ErrValidation, v)
}

func (f *PartFlowImpl) ListParts(ctx context.Context, req *dto.ListPartsRequest) (*dto.ListPartsResponse, error) {
	if req == nil {
		req = &dto.ListPartsRequest{}
	}
	skip, limit := normalizePage(req.Skip, req.Limit)

	parts, err := f.partRepo.ByFilter(ctx, partFilter(req.PartListFilter), "id ASC", limit, skip)
	if err != nil {
		return nil, NewBusinessError("LIST_PARTS_FAILED", "Failed to list parts", err)
	}

	return &dto.ListPartsResponse{
		Message: "Parts retrieved",
		Items:   ToPartDTOs(parts),
		Skip:    skip,
		Limit:   limit,
	}, nil
}

func (f *PartFlowImpl) CountParts(ctx context.Context, filter dto.PartListFilter) (*dto.CountPartsResponse, error) {
	total, err := f.partRepo.Count(ctx, partFilter(filter))
	if err != nil {
		return nil, NewBusinessError("COUNT_PARTS_FAILED", "Failed to count parts", err)
	}
	return &dto.CountPartsResponse{Total: total}, nil
}

func (f *PartFlowImpl) getPart(ctx context.Context, id uint) (*models.Part, error) {
	part, err := f.partRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("GET_PART_FAILED", "Failed to load part", err)
	}
	if part == nil {
		return nil, NewBusinessErrorf("PART_NOT_FOUND", "Part not found: %d", ErrPartNotFound, id)
	}
	return part, nil
}

func (f *PartFlowImpl) GetPart(ctx context.Context, id uint) (*dto.PartDTO, error) {
	part, err := f.getPart(ctx, id)
	if err != nil {
		return nil, err
	}
	out := ToPartDTO(*part)
	return &out, nil
}

func (f *PartFlowImpl) CreatePart(ctx context.Context, req *dto.CreatePartRequest) (*dto.PartDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, NewBusinessError("PART_CODE_REQUIRED", "Part code is required", ErrPartCodeRequired)
	}
	status, err := partStatus(req.Status)
	if err != nil {
		return nil, err
	}

	existing, err := f.partRepo.ByCode(ctx, code)
	if err != nil {
		return nil, NewBusinessError("CREATE_PART_FAILED", "Failed to check part code", err)
	}
	if existing != nil {
		return nil, NewBusinessErrorf("PART_CODE_EXISTS", "Part code %q already exists", ErrPartCodeExists, code)
	}

	part := models.Part{
		Code:        code,
		Description: utils.TrimmedOrNil(req.Description),
		MapPrice:    req.MapPrice,
		NetPrice:    req.NetPrice,
		Diff:        req.Diff,
		Status:      status,
		StockQty:    req.StockQty,
		GrQty:       req.GrQty,
		GrUSD:       req.GrUSD,
	}

	matcher, err := f.catalog.Matcher(ctx)
	if err != nil {
		return nil, NewBusinessError("DEVICE_CATALOG_UNAVAILABLE", "Failed to load device catalog", err)
	}
	matcher.Annotate(&part)

	if err := f.partRepo.Save(ctx, &part); err != nil {
		return nil, NewBusinessError("CREATE_PART_FAILED", "Failed to create part", err)
	}

	out := ToPartDTO(part)
	return &out, nil
}

func (f *PartFlowImpl) UpdatePart(ctx context.Context, id uint, req *dto.UpdatePartRequest) (*dto.PartDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	part, err := f.getPart(ctx, id)
	if err != nil {
		return nil, err
	}

	textChanged := false
	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code == "" {
			return nil, NewBusinessError("PART_CODE_REQUIRED", "Part code is required", ErrPartCodeRequired)
		}
		if code != part.Code {
			existing, err := f.partRepo.ByCode(ctx, code)
			if err != nil {
				return nil, NewBusinessError("UPDATE_PART_FAILED", "Failed to check part code", err)
			}
			if existing != nil && existing.ID != part.ID {
				return nil, NewBusinessErrorf("PART_CODE_EXISTS", "Part code %q already exists", ErrPartCodeExists, code)
			}
			part.Code = code
			textChanged = true
		}
	}
	if req.Description != nil {
		desc := utils.NilIfBlank(*req.Description)
		if !equalStrPtr(desc, part.Description) {
			part.Description = desc
			textChanged = true
		}
	}
	if req.Status != nil {
		status, err := partStatus(req.Status)
		if err != nil {
			return nil, err
		}
		part.Status = status
	}
	if req.MapPrice != nil {
		part.MapPrice = req.MapPrice
	}
	if req.NetPrice != nil {
		part.NetPrice = req.NetPrice
	}
	if req.Diff != nil {
		part.Diff = req.Diff
	}
	if req.StockQty != nil {
		part.StockQty = req.StockQty
	}
	if req.GrQty != nil {
		part.GrQty = req.GrQty
	}
	if req.GrUSD != nil {
		part.GrUSD = req.GrUSD
	}

	if textChanged {
		matcher, err := f.catalog.Matcher(ctx)
		if err != nil {
			return nil, NewBusinessError("DEVICE_CATALOG_UNAVAILABLE", "Failed to load device catalog", err)
		}
		matcher.Annotate(part)
	}

	if err := f.partRepo.Update(ctx, part); err != nil {
		return nil, NewBusinessError("UPDATE_PART_FAILED", "Failed to update part", err)
	}

	out := ToPartDTO(*part)
	return &out, nil
}

func (f *PartFlowImpl) DeletePart(ctx context.Context, id uint) error {
	deleted, err := f.partRepo.Delete(ctx, id)
	if err != nil {
		return NewBusinessError("DELETE_PART_FAILED", "Failed to delete part", err)
	}
	if !deleted {
		return NewBusinessErrorf("PART_NOT_FOUND", "Part not found: %d", ErrPartNotFound, id)
	}
	return nil
}

// DeviceOptions lists the distinct matched devices with the key the device filter expects
func (f *PartFlowImpl) DeviceOptions(ctx context.Context) (*dto.DeviceOptionsResponse, error) {
	keys, err := f.partRepo.ListDeviceKeys(ctx)
	if err != nil {
		return nil, NewBusinessError("DEVICE_OPTIONS_FAILED", "Failed to list device options", err)
	}

	items := lo.FilterMap(keys, func(k repository.DeviceKey, _ int) (dto.DeviceOptionDTO, bool) {
		if k.DeviceName == "" && k.DeviceCode == "" {
			return dto.DeviceOptionDTO{}, false
		}
		label := k.DeviceName
		if label == "" {
			label = k.DeviceCode
		}
		return dto.DeviceOptionDTO{
			Key:        strings.ToLower(k.DeviceName + "||" + k.DeviceCode),
			Label:      label,
			DeviceName: utils.NilIfBlank(k.DeviceName),
			DeviceCode: utils.NilIfBlank(k.DeviceCode),
		}, true
	})
	items = lo.UniqBy(items, func(o dto.DeviceOptionDTO) string { return o.Key })
	slices.SortFunc(items, func(a, b dto.DeviceOptionDTO) int {
		if c := strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})

	return &dto.DeviceOptionsResponse{Items: items}, nil
}

func (f *PartFlowImpl) DetectDevice(ctx context.Context, text string) (*dto.DetectDeviceResponse, error) {
	matcher, err := f.catalog.Matcher(ctx)
	if err != nil {
		return nil, NewBusinessError("DEVICE_CATALOG_UNAVAILABLE", "Failed to load device catalog", err)
	}
	m := matcher.Match(text)
	return &dto.DetectDeviceResponse{
		ModelName: m.DeviceName,
		ModelCode: m.DeviceCode,
		Category:  m.Category,
	}, nil
}

func (f *PartFlowImpl) ResolveCompanions(ctx context.Context, req *dto.ResolveCompanionsRequest) (*dto.ResolveCompanionsResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	part, err := f.getPart(ctx, req.PartID)
	if err != nil {
		return nil, err
	}
	all, err := f.partRepo.ByFilter(ctx, models.PartFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("RESOLVE_COMPANIONS_FAILED", "Failed to load parts", err)
	}

	selected := make(map[uint]struct{}, len(req.SelectedIDs)+1)
	selected[part.ID] = struct{}{}
	for _, id := range req.SelectedIDs {
		selected[id] = struct{}{}
	}

	return &dto.ResolveCompanionsResponse{
		Items: toCompanionDTOs(ResolveCompanions(*part, all, selected)),
	}, nil
}

func toCompanionDTOs(companions []Companion) []dto.CompanionDTO {
	return lo.Map(companions, func(c Companion, _ int) dto.CompanionDTO {
		return dto.CompanionDTO{
			Part:     ToPartDTO(*c.Part),
			Quantity: c.Quantity,
			Rule:     c.Rule,
		}
	})
}

func (f *PartFlowImpl) matchingParts(ctx context.Context, req *dto.BulkPartsRequest) ([]*models.Part, error) {
	var filter dto.PartListFilter
	if req != nil {
		filter = req.PartListFilter
	}
	return f.partRepo.ByFilter(ctx, partFilter(filter), "id ASC", 0, 0)
}

// EmptyStock sets stock_qty to 0 on every matching part, one write per part
func (f *PartFlowImpl) EmptyStock(ctx context.Context, req *dto.BulkPartsRequest) (*dto.BulkOperationResponse, error) {
	parts, err := f.matchingParts(ctx, req)
	if err != nil {
		return nil, NewBusinessError("BULK_EMPTY_STOCK_FAILED", "Failed to load matching parts", err)
	}

	res := &dto.BulkOperationResponse{Matched: len(parts)}
	for _, p := range parts {
		p.StockQty = utils.ToPtr(0)
		if err := f.partRepo.Update(ctx, p); err != nil {
			log.Printf("bulk empty stock: part %d: %v", p.ID, err)
			res.Failed++
			continue
		}
		res.Affected++
	}
	res.Message = fmt.Sprintf("Emptied stock for %d of %d parts", res.Affected, res.Matched)
	return res, nil
}

// DeleteMatching deletes every matching part, one write per part
func (f *PartFlowImpl) DeleteMatching(ctx context.Context, req *dto.BulkPartsRequest) (*dto.BulkOperationResponse, error) {
	parts, err := f.matchingParts(ctx, req)
	if err != nil {
		return nil, NewBusinessError("BULK_DELETE_FAILED", "Failed to load matching parts", err)
	}

	res := &dto.BulkOperationResponse{Matched: len(parts)}
	for _, p := range parts {
		deleted, err := f.partRepo.Delete(ctx, p.ID)
		if err != nil || !deleted {
			log.Printf("bulk delete: part %d: deleted=%v err=%v", p.ID, deleted, err)
			res.Failed++
			continue
		}
		res.Affected++
	}
	res.Message = fmt.Sprintf("Deleted %d of %d parts", res.Affected, res.Matched)
	return res, nil
}

func (f *PartFlowImpl) Reannotate(ctx context.Context) (*dto.ReannotateResponse, error) {
	matcher, err := f.catalog.Matcher(ctx)
	if err != nil {
		return nil, NewBusinessError("DEVICE_CATALOG_UNAVAILABLE", "Failed to load device catalog", err)
	}
	return reannotateParts(ctx, f.partRepo, matcher)
}

// reannotateParts re-runs the matcher over every part and writes back only
// the parts whose device fields changed.
func reannotateParts(ctx context.Context, partRepo repository.PartRepository, matcher *DeviceMatcher) (*dto.ReannotateResponse, error) {
	parts, err := partRepo.ByFilter(ctx, models.PartFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("REANNOTATE_FAILED", "Failed to load parts", err)
	}

	res := &dto.ReannotateResponse{}
	for _, p := range parts {
		res.Scanned++
		if !matcher.Annotate(p) {
			continue
		}
		if err := partRepo.UpdateDeviceMatch(ctx, p.ID, p.DeviceName, p.DeviceCode, p.Category); err != nil {
			log.Printf("reannotate: part %d: %v", p.ID, err)
			res.Failed++
			continue
		}
		res.Updated++
	}
	deviceReannotateUpdatesTotal.Add(float64(res.Updated))
	res.Message = fmt.Sprintf("Re-annotated %d parts (%d updated, %d failed)", res.Scanned, res.Updated, res.Failed)
	return res, nil
}

// partExportRow is one CSV export line
type partExportRow struct {
	ID          uint   `csv:"id"`
	Code        string `csv:"code"`
	Description string `csv:"description"`
	MapPrice    string `csv:"map_price"`
	NetPrice    string `csv:"net_price"`
	Diff        string `csv:"diff"`
	Status      string `csv:"status"`
	StockQty    string `csv:"stock_qty"`
	GrQty       string `csv:"gr_qty"`
	GrUSD       string `csv:"gr_usd"`
	DeviceName  string `csv:"device_name"`
	DeviceCode  string `csv:"device_code"`
	Category    string `csv:"category"`
}

var partExportHeader = []any{
	"id", "code", "description", "map_price", "net_price", "diff", "status",
	"stock_qty", "gr_qty", "gr_usd", "device_name", "device_code", "category",
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// cellValue dereferences v for a spreadsheet cell; nil stays an empty cell
func cellValue[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// Export renders every matching part as CSV or XLSX
func (f *PartFlowImpl) Export(ctx context.Context, filter dto.PartListFilter, format string) (*dto.ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return nil, NewBusinessErrorf("UNSUPPORTED_EXPORT_FORMAT", "Unsupported export format %q", ErrUnsupportedExportFormat, format)
	}

	parts, err := f.partRepo.ByFilter(ctx, partFilter(filter), "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("EXPORT_PARTS_FAILED", "Failed to load parts", err)
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	if format == "csv" {
		data, err := exportPartsCSV(parts)
		if err != nil {
			return nil, NewBusinessError("EXPORT_PARTS_FAILED", "Failed to render CSV", err)
		}
		return &dto.ExportFile{
			Filename:    "parts_" + stamp + ".csv",
			ContentType: "text/csv; charset=utf-8",
			Data:        data,
		}, nil
	}

	data, err := exportPartsXLSX(parts)
	if err != nil {
		return nil, NewBusinessError("EXPORT_PARTS_FAILED", "Failed to render spreadsheet", err)
	}
	return &dto.ExportFile{
		Filename:    "parts_" + stamp + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

func exportPartsCSV(parts []*models.Part) ([]byte, error) {
	rows := lo.Map(parts, func(p *models.Part, _ int) partExportRow {
		return partExportRow{
			ID:          p.ID,
			Code:        p.Code,
			Description: lo.FromPtr(p.Description),
			MapPrice:    formatOptionalFloat(p.MapPrice),
			NetPrice:    formatOptionalFloat(p.NetPrice),
			Diff:        formatOptionalFloat(p.Diff),
			Status:      p.Status,
			StockQty:    formatOptionalInt(p.StockQty),
			GrQty:       formatOptionalInt(p.GrQty),
			GrUSD:       formatOptionalFloat(p.GrUSD),
			DeviceName:  lo.FromPtr(p.DeviceName),
			DeviceCode:  lo.FromPtr(p.DeviceCode),
			Category:    lo.FromPtr(p.Category),
		}
	})
	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const partsSheetName = "Parts"

func exportPartsXLSX(parts []*models.Part) ([]byte, error) {
	x := excelize.NewFile()
	defer func() {
		if err := x.Close(); err != nil {
			log.Printf("export: close workbook: %v", err)
		}
	}()

	if err := x.SetSheetName("Sheet1", partsSheetName); err != nil {
		return nil, err
	}
	header := slices.Clone(partExportHeader)
	if err := x.SetSheetRow(partsSheetName, "A1", &header); err != nil {
		return nil, err
	}
	for i, p := range parts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			p.ID, p.Code, cellValue(p.Description), cellValue(p.MapPrice), cellValue(p.NetPrice),
			cellValue(p.Diff), p.Status, cellValue(p.StockQty), cellValue(p.GrQty), cellValue(p.GrUSD),
			cellValue(p.DeviceName), cellValue(p.DeviceCode), cellValue(p.Category),
		}
		if err := x.SetSheetRow(partsSheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

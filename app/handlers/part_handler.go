package handlers

import (
	"fmt"

	"github.com/amirphl/parts-pricing/app/dto"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/gofiber/fiber/v3"
)

// PartHandlerInterface defines the contract for parts handlers
type PartHandlerInterface interface {
	List(c fiber.Ctx) error
	Count(c fiber.Ctx) error
	DeviceOptions(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Companions(c fiber.Ctx) error
	EmptyStock(c fiber.Ctx) error
	DeleteMatching(c fiber.Ctx) error
	Reannotate(c fiber.Ctx) error
	Export(c fiber.Ctx) error
	DetectDevice(c fiber.Ctx) error
}

// PartHandler handles parts inventory requests
type PartHandler struct {
	baseHandler
	flow businessflow.PartFlow
}

// NewPartHandler creates a new parts handler
func NewPartHandler(flow businessflow.PartFlow) *PartHandler {
	return &PartHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// List returns a filtered page of parts
// @Summary List Parts
// @Tags Parts
// @Produce json
// @Security BearerAuth
// @Param search query string false "Code or description search"
// @Param status query string false "Active or Dead"
// @Param min_price query number false "Minimum map price"
// @Param max_price query number false "Maximum map price"
// @Param in_stock query bool false "true for stock_qty > 0, false for stock_qty = 0"
// @Param device query string false "Device key name||code"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} dto.APIResponse{data=dto.ListPartsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/parts [get]
func (h *PartHandler) List(c fiber.Ctx) error {
	q := newQueryReader(c)
	req := dto.ListPartsRequest{
		PartListFilter: partListFilter(q),
		Skip:           q.Int("skip", 0),
		Limit:          q.Int("limit", 0),
	}
	if err := q.Err(); err != nil {
		return h.reject(c, err)
	}
	if err := h.validate(&req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.ListParts(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list parts", "LIST_PARTS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Count returns the number of parts matching the list filters
// @Summary Count Parts
// @Tags Parts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.CountPartsResponse}
// @Router /api/v1/parts/count [get]
func (h *PartHandler) Count(c fiber.Ctx) error {
	q := newQueryReader(c)
	filter := partListFilter(q)
	if err := q.Err(); err != nil {
		return h.reject(c, err)
	}
	if err := h.validate(&filter); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.CountParts(ctx, filter)
	if err != nil {
		return h.flowError(c, err, "Failed to count parts", "COUNT_PARTS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Parts counted", result)
}

// DeviceOptions lists the distinct devices parts are annotated with
// @Summary Part Device Options
// @Tags Parts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DeviceOptionsResponse}
// @Router /api/v1/parts/device-options [get]
func (h *PartHandler) DeviceOptions(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.DeviceOptions(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to list device options", "DEVICE_OPTIONS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Device options retrieved", result)
}

// Get returns one part
// @Summary Get Part
// @Tags Parts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Part ID"
// @Success 200 {object} dto.APIResponse{data=dto.PartDTO}
// @Failure 404 {object} dto.APIResponse "Part not found"
// @Router /api/v1/parts/{id} [get]
func (h *PartHandler) Get(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.GetPart(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to load part", "GET_PART_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Part retrieved", result)
}

// Create adds a part
// @Summary Create Part
// @Tags Parts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePartRequest true "Part"
// @Success 201 {object} dto.APIResponse{data=dto.PartDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Part code already exists"
// @Router /api/v1/parts [post]
func (h *PartHandler) Create(c fiber.Ctx) error {
	var req dto.CreatePartRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.CreatePart(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to create part", "CREATE_PART_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Part created", result)
}

// Update changes the fields present in the body
// @Summary Update Part
// @Tags Parts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Part ID"
// @Param request body dto.UpdatePartRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.PartDTO}
// @Failure 404 {object} dto.APIResponse "Part not found"
// @Router /api/v1/parts/{id} [put]
func (h *PartHandler) Update(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}
	var req dto.UpdatePartRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.UpdatePart(ctx, id, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to update part", "UPDATE_PART_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Part updated", result)
}

// Delete removes a part
// @Summary Delete Part
// @Tags Parts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Part ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Part not found"
// @Router /api/v1/parts/{id} [delete]
func (h *PartHandler) Delete(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.flow.DeletePart(ctx, id); err != nil {
		return h.flowError(c, err, "Failed to delete part", "DELETE_PART_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Part deleted", fiber.Map{"id": id})
}

// Companions lists the kit parts that go with a primary part
// @Summary Resolve Companions
// @Tags Parts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ResolveCompanionsRequest true "Primary part and current selection"
// @Success 200 {object} dto.APIResponse{data=dto.ResolveCompanionsResponse}
// @Failure 404 {object} dto.APIResponse "Part not found"
// @Router /api/v1/parts/companions [post]
func (h *PartHandler) Companions(c fiber.Ctx) error {
	var req dto.ResolveCompanionsRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.ResolveCompanions(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to resolve companions", "RESOLVE_COMPANIONS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Companions resolved", result)
}

// EmptyStock sets stock_qty to 0 on every matching part
// @Summary Bulk Empty Stock
// @Tags Parts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkPartsRequest true "Filter"
// @Success 200 {object} dto.APIResponse{data=dto.BulkOperationResponse}
// @Router /api/v1/parts/bulk/empty-stock [post]
func (h *PartHandler) EmptyStock(c fiber.Ctx) error {
	var req dto.BulkPartsRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.EmptyStock(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to empty stock", "EMPTY_STOCK_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteMatching deletes every matching part
// @Summary Bulk Delete Parts
// @Tags Parts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkPartsRequest true "Filter; an empty filter matches every part"
// @Success 200 {object} dto.APIResponse{data=dto.BulkOperationResponse}
// @Router /api/v1/parts/bulk/delete [post]
func (h *PartHandler) DeleteMatching(c fiber.Ctx) error {
	var req dto.BulkPartsRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.DeleteMatching(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to delete parts", "BULK_DELETE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Reannotate re-runs the device matcher over every part
// @Summary Reannotate Parts
// @Tags Parts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ReannotateResponse}
// @Router /api/v1/parts/reannotate [post]
func (h *PartHandler) Reannotate(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.Reannotate(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to reannotate parts", "REANNOTATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Export downloads the filtered parts as CSV or XLSX
// @Summary Export Parts
// @Tags Parts
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file "Export file"
// @Failure 400 {object} dto.APIResponse "Unsupported format"
// @Router /api/v1/parts/export [get]
func (h *PartHandler) Export(c fiber.Ctx) error {
	q := newQueryReader(c)
	filter := partListFilter(q)
	if err := q.Err(); err != nil {
		return h.reject(c, err)
	}
	if err := h.validate(&filter); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	file, err := h.flow.Export(ctx, filter, c.Query("format", "csv"))
	if err != nil {
		return h.flowError(c, err, "Failed to export parts", "EXPORT_FAILED")
	}
	c.Set("Content-Type", file.ContentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	return c.Send(file.Data)
}

// DetectDevice runs the device matcher over free text
// @Summary Detect Samsung Device
// @Tags Parts
// @Produce json
// @Security BearerAuth
// @Param text query string true "Text to classify"
// @Success 200 {object} dto.APIResponse{data=dto.DetectDeviceResponse}
// @Router /api/v1/detect-samsung [get]
func (h *PartHandler) DetectDevice(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.DetectDevice(ctx, c.Query("text"))
	if err != nil {
		return h.flowError(c, err, "Failed to detect device", "DETECT_DEVICE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Device detected", result)
}

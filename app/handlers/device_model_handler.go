package handlers

import (
	"github.com/amirphl/parts-pricing/app/dto"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/gofiber/fiber/v3"
)

// DeviceModelHandler handles the Samsung device catalog
type DeviceModelHandler struct {
	baseHandler
	flow businessflow.DeviceModelFlow
}

// NewDeviceModelHandler creates a new device catalog handler
func NewDeviceModelHandler(flow businessflow.DeviceModelFlow) *DeviceModelHandler {
	return &DeviceModelHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// List returns catalog entries in match order
// @Summary List Samsung Models
// @Tags Samsung Models
// @Produce json
// @Security BearerAuth
// @Param search query string false "Model name or code search"
// @Param category query string false "lowend, midend, highend, wear or tab"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} dto.APIResponse{data=dto.ListDeviceModelsResponse}
// @Router /api/v1/samsung-models [get]
func (h *DeviceModelHandler) List(c fiber.Ctx) error {
	q := newQueryReader(c)
	req := dto.ListDeviceModelsRequest{
		Search:   q.String("search"),
		Category: q.String("category"),
		Skip:     q.Int("skip", 0),
		Limit:    q.Int("limit", 0),
	}
	if err := q.Err(); err != nil {
		return h.reject(c, err)
	}
	if err := h.validate(&req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.ListDeviceModels(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list device models", "LIST_DEVICE_MODELS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Get returns one catalog entry
// @Summary Get Samsung Model
// @Tags Samsung Models
// @Produce json
// @Security BearerAuth
// @Param id path int true "Model ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeviceModelDTO}
// @Failure 404 {object} dto.APIResponse "Model not found"
// @Router /api/v1/samsung-models/{id} [get]
func (h *DeviceModelHandler) Get(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.GetDeviceModel(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to load device model", "GET_DEVICE_MODEL_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Device model retrieved", result)
}

// Create adds a catalog entry and re-annotates parts
// @Summary Create Samsung Model
// @Tags Samsung Models
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDeviceModelRequest true "Model"
// @Success 201 {object} dto.APIResponse{data=dto.DeviceModelDTO}
// @Failure 409 {object} dto.APIResponse "Model name already exists"
// @Router /api/v1/samsung-models [post]
func (h *DeviceModelHandler) Create(c fiber.Ctx) error {
	var req dto.CreateDeviceModelRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.CreateDeviceModel(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to create device model", "CREATE_DEVICE_MODEL_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Device model created", result)
}

// Update changes a catalog entry and re-annotates parts
// @Summary Update Samsung Model
// @Tags Samsung Models
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Model ID"
// @Param request body dto.UpdateDeviceModelRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.DeviceModelDTO}
// @Failure 404 {object} dto.APIResponse "Model not found"
// @Router /api/v1/samsung-models/{id} [put]
func (h *DeviceModelHandler) Update(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}
	var req dto.UpdateDeviceModelRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.UpdateDeviceModel(ctx, id, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to update device model", "UPDATE_DEVICE_MODEL_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Device model updated", result)
}

// Delete removes a catalog entry and re-annotates parts
// @Summary Delete Samsung Model
// @Tags Samsung Models
// @Produce json
// @Security BearerAuth
// @Param id path int true "Model ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Model not found"
// @Router /api/v1/samsung-models/{id} [delete]
func (h *DeviceModelHandler) Delete(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.flow.DeleteDeviceModel(ctx, id); err != nil {
		return h.flowError(c, err, "Failed to delete device model", "DELETE_DEVICE_MODEL_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Device model deleted", fiber.Map{"id": id})
}

// Seed loads the curated catalog
// @Summary Seed Samsung Models
// @Tags Samsung Models
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SeedDeviceModelsResponse}
// @Router /api/v1/samsung-models/seed [post]
func (h *DeviceModelHandler) Seed(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.SeedDeviceModels(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to seed device models", "SEED_DEVICE_MODELS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

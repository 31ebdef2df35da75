package handlers

import (
	"github.com/amirphl/parts-pricing/app/dto"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/gofiber/fiber/v3"
)

// FormulaHandler handles pricing formula requests
type FormulaHandler struct {
	baseHandler
	flow businessflow.FormulaFlow
}

// NewFormulaHandler creates a new formula handler
func NewFormulaHandler(flow businessflow.FormulaFlow) *FormulaHandler {
	return &FormulaHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// List returns formulas, optionally filtered by class name
// @Summary List Formulas
// @Tags Formulas
// @Produce json
// @Security BearerAuth
// @Param search query string false "Class name search"
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} dto.APIResponse{data=dto.ListFormulasResponse}
// @Router /api/v1/formulas [get]
func (h *FormulaHandler) List(c fiber.Ctx) error {
	q := newQueryReader(c)
	req := dto.ListFormulasRequest{
		Search: q.String("search"),
		Skip:   q.Int("skip", 0),
		Limit:  q.Int("limit", 0),
	}
	if err := q.Err(); err != nil {
		return h.reject(c, err)
	}
	if err := h.validate(&req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.ListFormulas(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list formulas", "LIST_FORMULAS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Get returns one formula with normalized margins
// @Summary Get Formula
// @Tags Formulas
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formula ID"
// @Success 200 {object} dto.APIResponse{data=dto.FormulaDTO}
// @Failure 404 {object} dto.APIResponse "Formula not found"
// @Router /api/v1/formulas/{id} [get]
func (h *FormulaHandler) Get(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.GetFormula(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to load formula", "GET_FORMULA_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Formula retrieved", result)
}

// Create adds a formula. Margins below 1 are read as fractions.
// @Summary Create Formula
// @Tags Formulas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateFormulaRequest true "Formula"
// @Success 201 {object} dto.APIResponse{data=dto.FormulaDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/formulas [post]
func (h *FormulaHandler) Create(c fiber.Ctx) error {
	var req dto.CreateFormulaRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.CreateFormula(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to create formula", "CREATE_FORMULA_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Formula created", result)
}

// Update changes the fields present in the body
// @Summary Update Formula
// @Tags Formulas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formula ID"
// @Param request body dto.UpdateFormulaRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.FormulaDTO}
// @Failure 404 {object} dto.APIResponse "Formula not found"
// @Router /api/v1/formulas/{id} [put]
func (h *FormulaHandler) Update(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}
	var req dto.UpdateFormulaRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.UpdateFormula(ctx, id, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to update formula", "UPDATE_FORMULA_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Formula updated", result)
}

// Delete removes a formula
// @Summary Delete Formula
// @Tags Formulas
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formula ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Formula not found"
// @Router /api/v1/formulas/{id} [delete]
func (h *FormulaHandler) Delete(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.flow.DeleteFormula(ctx, id); err != nil {
		return h.flowError(c, err, "Failed to delete formula", "DELETE_FORMULA_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Formula deleted", fiber.Map{"id": id})
}

// AutoSelect picks the formula for the majority device category of a selection
// @Summary Auto Select Formula
// @Tags Formulas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AutoSelectFormulaRequest true "Selected part IDs"
// @Success 200 {object} dto.APIResponse{data=dto.AutoSelectFormulaResponse}
// @Failure 404 {object} dto.APIResponse "Part not found"
// @Router /api/v1/formulas/auto-select [post]
func (h *FormulaHandler) AutoSelect(c fiber.Ctx) error {
	var req dto.AutoSelectFormulaRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.AutoSelect(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to select formula", "AUTO_SELECT_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Formula selected", result)
}

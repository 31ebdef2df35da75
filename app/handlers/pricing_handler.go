package handlers

import (
	"github.com/amirphl/parts-pricing/app/dto"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/gofiber/fiber/v3"
)

// PricingHandler handles price calculation requests
type PricingHandler struct {
	baseHandler
	flow businessflow.PricingFlow
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(flow businessflow.PricingFlow) *PricingHandler {
	return &PricingHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// Calculate prices a selection of parts with a formula
// @Summary Calculate Price
// @Description Prices a manual amount, a list of parts or a single part. Omitting customer_type returns both the customer and dealer quotes.
// @Tags Pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CalculatePriceRequest true "Calculation input"
// @Success 200 {object} dto.APIResponse{data=dto.CalculatePriceResponse}
// @Failure 400 {object} dto.APIResponse "Invalid labor level, customer type or nothing to price"
// @Failure 404 {object} dto.APIResponse "Formula or part not found"
// @Router /api/v1/calculate-price [post]
func (h *PricingHandler) Calculate(c fiber.Ctx) error {
	var req dto.CalculatePriceRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.CalculatePrice(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to calculate price", "CALCULATE_PRICE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Price calculated", result)
}

package handlers

import (
	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/app/middleware"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Captcha(c fiber.Ctx) error
	Me(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	baseHandler
	loginFlow businessflow.LoginFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(loginFlow businessflow.LoginFlow) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(),
		loginFlow:   loginFlow,
	}
}

// Login exchanges credentials for a token pair
// @Summary Login
// @Description Authenticate with username and password. Captcha fields are required when the captcha is enabled.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error or captcha failed"
// @Failure 401 {object} dto.APIResponse "Incorrect username or password"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/token [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.loginFlow.Login(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Login failed", "LOGIN_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Refresh rotates a refresh token
// @Summary Refresh Token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Token refreshed"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid or expired refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.loginFlow.Refresh(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Token refresh failed", "REFRESH_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Token refreshed", result)
}

// Captcha issues a rotate captcha challenge
// @Summary Init Captcha
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaInitResponse} "Challenge issued"
// @Failure 404 {object} dto.APIResponse "Captcha disabled"
// @Router /api/v1/auth/captcha [get]
func (h *AuthHandler) Captcha(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.loginFlow.InitCaptcha(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to generate captcha", "CAPTCHA_GENERATION_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Captcha generated", result)
}

// Me returns the authenticated user
// @Summary Current User
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/me [get]
func (h *AuthHandler) Me(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	user, err := h.loginFlow.Me(ctx, userID)
	if err != nil {
		return h.flowError(c, err, "Failed to load user", "GET_ME_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User retrieved", user)
}

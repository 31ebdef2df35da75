package handlers

import (
	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/app/middleware"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/gofiber/fiber/v3"
)

// UserHandler handles user administration
type UserHandler struct {
	baseHandler
	flow businessflow.UserFlow
}

// NewUserHandler creates a new user admin handler
func NewUserHandler(flow businessflow.UserFlow) *UserHandler {
	return &UserHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// List returns every user
// @Summary List Users
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListUsersResponse}
// @Failure 403 {object} dto.APIResponse "Not enough permissions"
// @Router /api/v1/admin/users [get]
func (h *UserHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.ListUsers(ctx)
	if err != nil {
		return h.flowError(c, err, "Failed to list users", "LIST_USERS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Get returns one user
// @Summary Get User
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO}
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/admin/users/{id} [get]
func (h *UserHandler) Get(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.GetUser(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to load user", "GET_USER_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User retrieved", result)
}

// Create adds a user
// @Summary Create User
// @Tags Admin Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "User"
// @Success 201 {object} dto.APIResponse{data=dto.UserDTO}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Username already exists"
// @Router /api/v1/admin/users [post]
func (h *UserHandler) Create(c fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.CreateUser(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to create user", "CREATE_USER_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "User created", result)
}

// Update changes the fields present in the body
// @Summary Update User
// @Tags Admin Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateUserRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO}
// @Failure 404 {object} dto.APIResponse "User not found"
// @Router /api/v1/admin/users/{id} [put]
func (h *UserHandler) Update(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}
	var req dto.UpdateUserRequest
	if err := h.bindJSON(c, &req); err != nil {
		return h.reject(c, err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.flow.UpdateUser(ctx, id, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to update user", "UPDATE_USER_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User updated", result)
}

// Delete removes a user other than the caller
// @Summary Delete User
// @Tags Admin Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 409 {object} dto.APIResponse "Cannot delete your own account"
// @Router /api/v1/admin/users/{id} [delete]
func (h *UserHandler) Delete(c fiber.Ctx) error {
	id, err := h.pathID(c)
	if err != nil {
		return h.reject(c, err)
	}
	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.flow.DeleteUser(ctx, actorID, id); err != nil {
		return h.flowError(c, err, "Failed to delete user", "DELETE_USER_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "User deleted", fiber.Map{"id": id})
}

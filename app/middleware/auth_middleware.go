// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/app/services"
	businessflow "github.com/amirphl/parts-pricing/business_flow"
	"github.com/amirphl/parts-pricing/models"
	"github.com/gofiber/fiber/v3"
)

const (
	UserIDKey      = "user_id"
	TokenIDKey     = "token_id"
	TokenClaimsKey = "token_claims"
	CurrentUserKey = "current_user"
)

// UserAuthorizer loads the caller and checks a permission
type UserAuthorizer interface {
	Authorize(ctx context.Context, userID uint, perm string) (*models.User, error)
}

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	authorizer   UserAuthorizer
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, authorizer UserAuthorizer) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		authorizer:   authorizer,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate is the middleware function that validates JWT access tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		// ValidateToken already checks for revocation
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenRevoked):
				return unauthorized(c, "Access token has been revoked", "TOKEN_REVOKED")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}
		if claims.TokenType != services.TokenTypeAccess {
			return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(TokenIDKey, claims.TokenID)
		c.Locals(TokenClaimsKey, claims)

		return c.Next()
	}
}

// RequirePermission loads the authenticated user and rejects callers lacking perm.
// An empty perm only requires an active account. Must run after Authenticate.
func (m *AuthMiddleware) RequirePermission(perm string) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, ok := GetUserIDFromContext(c)
		if !ok || userID == 0 {
			return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
		}

		user, err := m.authorizer.Authorize(c.Context(), userID, perm)
		if err != nil {
			switch {
			case businessflow.IsPermissionDenied(err):
				return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
					Success: false,
					Message: "Not enough permissions",
					Error:   dto.ErrorDetail{Code: "PERMISSION_DENIED", Details: perm},
				})
			case businessflow.IsUserInactive(err):
				return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
					Success: false,
					Message: "User is inactive",
					Error:   dto.ErrorDetail{Code: "USER_INACTIVE"},
				})
			case businessflow.IsInvalidCredentials(err):
				return unauthorized(c, "User no longer exists", "USER_NOT_FOUND")
			}
			log.Printf("authorize user %d: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Authorization failed",
				Error:   dto.ErrorDetail{Code: "AUTHORIZATION_FAILED"},
			})
		}

		c.Locals(CurrentUserKey, user)
		return c.Next()
	}
}

// GetUserIDFromContext extracts the user ID set by Authenticate
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals(UserIDKey).(uint)
	return userID, ok
}

// GetCurrentUserFromContext returns the user loaded by RequirePermission
func GetCurrentUserFromContext(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(CurrentUserKey).(*models.User)
	return user, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals(TokenClaimsKey).(*services.TokenClaims)
	return claims, ok
}

// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for POST /auth/token.
// Captcha fields are only checked when the captcha is enabled.
type LoginRequest struct {
	Username     string   `json:"username" validate:"required,min=3,max=255" example:"admin"`
	Password     string   `json:"password" validate:"required,min=1,max=100" example:"SecurePass123!"`
	CaptchaID    *string  `json:"captcha_id,omitempty" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	CaptchaAngle *float64 `json:"captcha_angle,omitempty" example:"127"`
}

// RefreshTokenRequest exchanges a refresh token for a new token pair
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is returned by a successful login or refresh
type TokenResponse struct {
	AccessToken  string  `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string  `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string  `json:"token_type" example:"Bearer"`
	ExpiresIn    int     `json:"expires_in" example:"3600"`
	User         UserDTO `json:"user"`
}

type CaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}

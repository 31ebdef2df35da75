package businessflow

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/app/services"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/amirphl/parts-pricing/utils"
	"golang.org/x/crypto/bcrypt"
)

// LoginFlow handles password login, token refresh and the current-user lookup
type LoginFlow interface {
	InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Me(ctx context.Context, userID uint) (*dto.UserDTO, error)
	// Authorize loads an active user and checks perm. An empty perm only checks the account.
	Authorize(ctx context.Context, userID uint, perm string) (*models.User, error)
}

// LoginFlowImpl implements LoginFlow. A nil captchaSvc disables the captcha step.
type LoginFlowImpl struct {
	userRepo     repository.UserRepository
	tokenService services.TokenService
	captchaSvc   services.CaptchaService
}

// NewLoginFlow creates a new login flow
func NewLoginFlow(userRepo repository.UserRepository, tokenService services.TokenService, captchaSvc services.CaptchaService) LoginFlow {
	return &LoginFlowImpl{
		userRepo:     userRepo,
		tokenService: tokenService,
		captchaSvc:   captchaSvc,
	}
}

func (f *LoginFlowImpl) InitCaptcha(ctx context.Context) (*dto.CaptchaInitResponse, error) {
	if f.captchaSvc == nil {
		return nil, NewBusinessError("CAPTCHA_DISABLED", "Captcha is disabled", ErrCaptchaNotAvailable)
	}
	ch, err := f.captchaSvc.GenerateRotate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_GENERATION_FAILED", "Failed to generate captcha", err)
	}
	return &dto.CaptchaInitResponse{
		ChallengeID:       ch.ID,
		MasterImageBase64: ch.MasterImageBase64,
		ThumbImageBase64:  ch.ThumbImageBase64,
	}, nil
}

func (f *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}

	if f.captchaSvc != nil {
		if req.CaptchaID == nil || req.CaptchaAngle == nil ||
			!f.captchaSvc.VerifyRotate(ctx, *req.CaptchaID, *req.CaptchaAngle) {
			return nil, NewBusinessError("CAPTCHA_INVALID", "Captcha verification failed", ErrCaptchaInvalid)
		}
	}

	user, err := f.userRepo.ByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up user", err)
	}
	if user == nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Incorrect username or password", ErrInvalidCredentials)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("USER_INACTIVE", "User is inactive", ErrUserInactive)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Incorrect username or password", ErrInvalidCredentials)
	}

	resp, err := f.issueTokens(user)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	if err := f.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Printf("Failed to stamp last login for user %d: %v", user.ID, err)
	} else {
		user.LastLoginAt = &now
		resp.User = ToUserDTO(*user)
	}
	return resp, nil
}

func (f *LoginFlowImpl) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	if req == nil || strings.TrimSpace(req.RefreshToken) == "" {
		return nil, NewBusinessError("INVALID_REQUEST", "refresh_token is required", ErrValidation)
	}

	claims, err := f.tokenService.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Invalid or expired refresh token", errors.Join(ErrInvalidCredentials, err))
	}
	user, err := f.Authorize(ctx, claims.UserID, "")
	if err != nil {
		return nil, err
	}

	access, refresh, err := f.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Invalid or expired refresh token", errors.Join(ErrInvalidCredentials, err))
	}
	return f.tokenResponse(user, access, refresh), nil
}

func (f *LoginFlowImpl) Me(ctx context.Context, userID uint) (*dto.UserDTO, error) {
	user, err := f.Authorize(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	out := ToUserDTO(*user)
	return &out, nil
}

func (f *LoginFlowImpl) Authorize(ctx context.Context, userID uint, perm string) (*models.User, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to load user", err)
	}
	if user == nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "User no longer exists", ErrInvalidCredentials)
	}
	if !utils.IsTrue(user.IsActive) {
		return nil, NewBusinessError("USER_INACTIVE", "User is inactive", ErrUserInactive)
	}
	if perm != "" && !user.HasPermission(perm) {
		return nil, NewBusinessErrorf("PERMISSION_DENIED", "Missing permission %q", ErrPermissionDenied, perm)
	}
	return user, nil
}

func (f *LoginFlowImpl) issueTokens(user *models.User) (*dto.TokenResponse, error) {
	access, refresh, err := f.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}
	return f.tokenResponse(user, access, refresh), nil
}

func (f *LoginFlowImpl) tokenResponse(user *models.User, access, refresh string) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(f.tokenService.AccessTokenTTL().Seconds()),
		User:         ToUserDTO(*user),
	}
}

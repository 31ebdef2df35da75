package businessflow

import (
	"context"
	"log"
	"slices"
	"strings"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/repository"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

// UserFlow handles user administration and the startup admin seed
type UserFlow interface {
	ListUsers(ctx context.Context) (*dto.ListUsersResponse, error)
	GetUser(ctx context.Context, id uint) (*dto.UserDTO, error)
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserDTO, error)
	UpdateUser(ctx context.Context, id uint, req *dto.UpdateUserRequest) (*dto.UserDTO, error)
	DeleteUser(ctx context.Context, actorID, id uint) error
	SeedAdmin(ctx context.Context, username, password string) error
}

// UserFlowImpl implements UserFlow
type UserFlowImpl struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

// NewUserFlow creates a new user flow
func NewUserFlow(userRepo repository.UserRepository, bcryptCost int) UserFlow {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserFlowImpl{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
	}
}

func normalizeRole(role *string) (string, error) {
	if role == nil || strings.TrimSpace(*role) == "" {
		return models.RoleUser, nil
	}
	r := strings.ToLower(strings.TrimSpace(*role))
	if r != models.RoleAdmin && r != models.RoleUser {
		return "", NewBusinessErrorf("INVALID_ROLE", "Invalid role %q", ErrInvalidRole, *role)
	}
	return r, nil
}

// normalizePermissions trims, dedupes and checks every name against the known set.
func normalizePermissions(perms []string) (string, error) {
	cleaned := lo.Uniq(lo.FilterMap(perms, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	}))
	for _, p := range cleaned {
		if !slices.Contains(models.AllPermissions, p) {
			return "", NewBusinessErrorf("UNKNOWN_PERMISSION", "Unknown permission %q", ErrUnknownPermission, p)
		}
	}
	slices.Sort(cleaned)
	return strings.Join(cleaned, ","), nil
}

func (f *UserFlowImpl) hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", NewBusinessErrorf("PASSWORD_TOO_SHORT", "Password must be at least %d characters", ErrPasswordTooShort, MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), f.bcryptCost)
	if err != nil {
		return "", NewBusinessError("PASSWORD_HASH_FAILED", "Failed to hash password", err)
	}
	return string(hash), nil
}

func (f *UserFlowImpl) ensureUsernameFree(ctx context.Context, username string, selfID uint) error {
	existing, err := f.userRepo.ByUsername(ctx, username)
	if err != nil {
		return NewBusinessError("USER_LOOKUP_FAILED", "Failed to check username", err)
	}
	if existing != nil && existing.ID != selfID {
		return NewBusinessErrorf("USERNAME_EXISTS", "Username %q already exists", ErrUsernameExists, username)
	}
	return nil
}

func (f *UserFlowImpl) getUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := f.userRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("GET_USER_FAILED", "Failed to load user", err)
	}
	if user == nil {
		return nil, NewBusinessErrorf("USER_NOT_FOUND", "User not found: %d", ErrUserNotFound, id)
	}
	return user, nil
}

func (f *UserFlowImpl) ListUsers(ctx context.Context) (*dto.ListUsersResponse, error) {
	users, err := f.userRepo.ByFilter(ctx, models.UserFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_USERS_FAILED", "Failed to list users", err)
	}
	return &dto.ListUsersResponse{
		Message: "Users retrieved",
		Items: lo.Map(users, func(u *models.User, _ int) dto.UserDTO {
			return ToUserDTO(*u)
		}),
	}, nil
}

func (f *UserFlowImpl) GetUser(ctx context.Context, id uint) (*dto.UserDTO, error) {
	user, err := f.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	out := ToUserDTO(*user)
	return &out, nil
}

func (f *UserFlowImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, NewBusinessError("USERNAME_REQUIRED", "Username is required", ErrValidation)
	}
	role, err := normalizeRole(req.Role)
	if err != nil {
		return nil, err
	}
	perms, err := normalizePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}
	if err := f.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}
	hash, err := f.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	isActive := req.IsActive
	if isActive == nil {
		isActive = utils.ToPtr(true)
	}

	user := models.User{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Permissions:  perms,
		IsActive:     isActive,
	}
	if err := f.userRepo.Save(ctx, &user); err != nil {
		return nil, NewBusinessError("CREATE_USER_FAILED", "Failed to create user", err)
	}

	out := ToUserDTO(user)
	return &out, nil
}

func (f *UserFlowImpl) UpdateUser(ctx context.Context, id uint, req *dto.UpdateUserRequest) (*dto.UserDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", ErrValidation)
	}
	user, err := f.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, NewBusinessError("USERNAME_REQUIRED", "Username is required", ErrValidation)
		}
		if username != user.Username {
			if err := f.ensureUsernameFree(ctx, username, user.ID); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}
	if req.Password != nil {
		hash, err := f.hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.Role != nil {
		role, err := normalizeRole(req.Role)
		if err != nil {
			return nil, err
		}
		user.Role = role
	}
	if req.Permissions != nil {
		perms, err := normalizePermissions(*req.Permissions)
		if err != nil {
			return nil, err
		}
		user.Permissions = perms
	}
	if req.IsActive != nil {
		user.IsActive = utils.ToPtr(*req.IsActive)
	}

	if err := f.userRepo.Update(ctx, user); err != nil {
		return nil, NewBusinessError("UPDATE_USER_FAILED", "Failed to update user", err)
	}

	out := ToUserDTO(*user)
	return &out, nil
}

func (f *UserFlowImpl) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return NewBusinessError("CANNOT_DELETE_SELF", "You cannot delete your own account", ErrCannotDeleteSelf)
	}
	deleted, err := f.userRepo.Delete(ctx, id)
	if err != nil {
		return NewBusinessError("DELETE_USER_FAILED", "Failed to delete user", err)
	}
	if !deleted {
		return NewBusinessErrorf("USER_NOT_FOUND", "User not found: %d", ErrUserNotFound, id)
	}
	return nil
}

// SeedAdmin makes sure username exists as an active admin holding every permission.
// An existing account keeps its password; only role and permissions are repaired.
func (f *UserFlowImpl) SeedAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		log.Printf("Admin seed skipped: username or password not configured")
		return nil
	}

	existing, err := f.userRepo.ByUsername(ctx, username)
	if err != nil {
		return NewBusinessError("SEED_ADMIN_FAILED", "Failed to look up admin", err)
	}

	if existing == nil {
		_, err := f.CreateUser(ctx, &dto.CreateUserRequest{
			Username:    username,
			Password:    password,
			Role:        utils.ToPtr(models.RoleAdmin),
			Permissions: models.AllPermissions,
			IsActive:    utils.ToPtr(true),
		})
		if err != nil {
			return err
		}
		log.Printf("Seeded admin user %q", username)
		return nil
	}

	current := lo.Filter(lo.Keys(existing.PermissionSet()), func(p string, _ int) bool {
		return slices.Contains(models.AllPermissions, p)
	})
	merged, err := normalizePermissions(append(current, models.AllPermissions...))
	if err != nil {
		return err
	}
	if existing.Role == models.RoleAdmin && merged == existing.Permissions {
		return nil
	}

	existing.Role = models.RoleAdmin
	existing.Permissions = merged
	if err := f.userRepo.Update(ctx, existing); err != nil {
		return NewBusinessError("SEED_ADMIN_FAILED", "Failed to update admin", err)
	}
	log.Printf("Admin user %q role and permissions refreshed", username)
	return nil
}

package businessflow

import (
	"testing"

	"github.com/amirphl/parts-pricing/app/dto"
	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNormalizePermissions(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    string
		wantErr bool
	}{
		{name: "empty", in: nil, want: ""},
		{name: "sorted and deduped", in: []string{" upload_excel", "manage_parts", "upload_excel", ""}, want: "manage_parts,upload_excel"},
		{name: "unknown", in: []string{"manage_parts", "fly"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizePermissions(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPermission)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserFlow_CRUD(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewUserFlow(env.users, bcrypt.MinCost)

	created, err := flow.CreateUser(env.ctx, &dto.CreateUserRequest{
		Username:    " clerk ",
		Password:    "secret1",
		Permissions: []string{models.PermManageParts},
	})
	require.NoError(t, err)
	assert.Equal(t, "clerk", created.Username)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.Equal(t, []string{models.PermManageParts}, created.Permissions)
	assert.True(t, utils.IsTrue(created.IsActive))

	stored, err := env.users.ByID(env.ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))

	_, err = flow.CreateUser(env.ctx, &dto.CreateUserRequest{Username: "clerk", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	updated, err := flow.UpdateUser(env.ctx, created.ID, &dto.UpdateUserRequest{
		Role:        utils.ToPtr("ADMIN"),
		Permissions: &[]string{},
		IsActive:    utils.ToPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Empty(t, updated.Permissions)
	assert.False(t, utils.IsTrue(updated.IsActive))

	other, err := env.fx.CreateTestUser(models.RoleUser)
	require.NoError(t, err)
	_, err = flow.UpdateUser(env.ctx, created.ID, &dto.UpdateUserRequest{Username: utils.ToPtr(other.Username)})
	assert.True(t, IsConflict(err))

	list, err := flow.ListUsers(env.ctx)
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)

	assert.ErrorIs(t, flow.DeleteUser(env.ctx, created.ID, created.ID), ErrCannotDeleteSelf)
	require.NoError(t, flow.DeleteUser(env.ctx, other.ID, created.ID))
	_, err = flow.GetUser(env.ctx, created.ID)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(flow.DeleteUser(env.ctx, other.ID, created.ID)))
}

func TestUserFlow_Validation(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewUserFlow(env.users, bcrypt.MinCost)

	tests := []struct {
		name string
		req  *dto.CreateUserRequest
		want error
	}{
		{name: "nil", req: nil, want: ErrValidation},
		{name: "blank username", req: &dto.CreateUserRequest{Username: "  ", Password: "secret1"}, want: ErrValidation},
		{name: "short password", req: &dto.CreateUserRequest{Username: "bob", Password: "12345"}, want: ErrPasswordTooShort},
		{name: "bad role", req: &dto.CreateUserRequest{Username: "bob", Password: "secret1", Role: utils.ToPtr("root")}, want: ErrInvalidRole},
		{name: "unknown permission", req: &dto.CreateUserRequest{Username: "bob", Password: "secret1", Permissions: []string{"fly"}}, want: ErrUnknownPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.CreateUser(env.ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestUserFlow_SeedAdmin(t *testing.T) {
	env := newFlowEnv(t)
	flow := NewUserFlow(env.users, bcrypt.MinCost)

	require.NoError(t, flow.SeedAdmin(env.ctx, "", "whatever"))
	count, err := env.users.Count(env.ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, flow.SeedAdmin(env.ctx, "admin", "admin123"))
	admin, err := env.users.ByUsername(env.ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	for _, p := range models.AllPermissions {
		assert.Contains(t, admin.PermissionSet(), p)
	}

	require.NoError(t, env.db.DB.Model(&models.User{}).Where("id = ?", admin.ID).
		Updates(map[string]any{"role": models.RoleUser, "permissions": "manage_parts,legacy"}).Error)

	require.NoError(t, flow.SeedAdmin(env.ctx, "admin", "changed-password"))
	admin, err = env.users.ByUsername(env.ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Len(t, admin.PermissionSet(), len(models.AllPermissions))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")), "password is kept")
}

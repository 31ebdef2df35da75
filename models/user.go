// Package models contains domain entities for the parts inventory and pricing service
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Permission names stored in User.Permissions as a comma separated list
const (
	PermManageUsers         = "manage_users"
	PermManageParts         = "manage_parts"
	PermManageFormulas      = "manage_formulas"
	PermManageSamsungModels = "manage_samsung_models"
	PermUploadExcel         = "upload_excel"
)

// AllPermissions is granted to the seeded admin account
var AllPermissions = []string{PermManageUsers, PermManageParts, PermManageFormulas, PermManageSamsungModels, PermUploadExcel}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	Username     string    `gorm:"size:255;not null;uniqueIndex:uk_users_username" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;not null;default:user;index:idx_users_role" json:"role"`
	Permissions  string    `gorm:"type:text" json:"permissions"`

	IsActive    *bool      `gorm:"default:true;index:idx_users_is_active" json:"is_active"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin)
}

// PermissionSet parses the CSV permissions column.
func (u User) PermissionSet() map[string]struct{} {
	out := make(map[string]struct{})
	for _, p := range strings.Split(u.Permissions, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// HasPermission reports whether the user holds perm. Admins hold every permission.
func (u User) HasPermission(perm string) bool {
	if u.IsAdmin() {
		return true
	}
	_, ok := u.PermissionSet()[perm]
	return ok
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID       *uint
	UUID     *uuid.UUID
	Username *string
	Role     *string
	IsActive *bool
}

package dto

type UserDTO struct {
	ID          uint     `json:"id" example:"1"`
	UUID        string   `json:"uuid" example:"f47ac10b-58cc-4372-a567-0e02b2c3d479"`
	Username    string   `json:"username" example:"admin"`
	Role        string   `json:"role" example:"admin"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"is_active" example:"true"`
	CreatedAt   string   `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastLoginAt *string  `json:"last_login_at,omitempty"`
}

type CreateUserRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=255"`
	Password    string   `json:"password" validate:"required,max=100"`
	Role        *string  `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	Permissions []string `json:"permissions,omitempty" validate:"omitempty,dive,permission"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// UpdateUserRequest is a partial update; Permissions replaces the whole set when present
type UpdateUserRequest struct {
	Username    *string   `json:"username,omitempty" validate:"omitempty,min=3,max=255"`
	Password    *string   `json:"password,omitempty" validate:"omitempty,max=100"`
	Role        *string   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	Permissions *[]string `json:"permissions,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
}

type ListUsersResponse struct {
	Message string    `json:"message"`
	Items   []UserDTO `json:"items"`
}

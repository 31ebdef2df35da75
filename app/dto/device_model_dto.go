package dto

// DeviceModelDTO is a device catalog entry
type DeviceModelDTO struct {
	ID        uint    `json:"id" example:"1"`
	Brand     string  `json:"brand" example:"Samsung"`
	ModelName string  `json:"model_name" example:"Galaxy S23"`
	Category  *string `json:"category,omitempty" example:"highend"`
	ModelCode *string `json:"model_code,omitempty" example:"SM-S911B"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type CreateDeviceModelRequest struct {
	Brand     *string `json:"brand,omitempty" validate:"omitempty,max=64"`
	ModelName string  `json:"model_name" validate:"required,max=255"`
	Category  *string `json:"category,omitempty"`
	ModelCode *string `json:"model_code,omitempty" validate:"omitempty,max=255"`
}

type UpdateDeviceModelRequest struct {
	Brand     *string `json:"brand,omitempty" validate:"omitempty,max=64"`
	ModelName *string `json:"model_name,omitempty" validate:"omitempty,min=1,max=255"`
	Category  *string `json:"category,omitempty"`
	ModelCode *string `json:"model_code,omitempty" validate:"omitempty,max=255"`
}

type ListDeviceModelsRequest struct {
	Search   *string `json:"search,omitempty"`
	Category *string `json:"category,omitempty"`
	Skip     int     `json:"skip" validate:"gte=0"`
	Limit    int     `json:"limit" validate:"gte=0"`
}

type ListDeviceModelsResponse struct {
	Message string           `json:"message"`
	Items   []DeviceModelDTO `json:"items"`
}

type SeedDeviceModelsResponse struct {
	Message string `json:"message"`
	Added   int    `json:"added"`
	Updated int    `json:"updated"`
}

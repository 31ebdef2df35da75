package models

import "time"

// Device categories. A part's Category, when set, is always one of these.
const (
	CategoryHighEnd  = "highend"
	CategoryMidEnd   = "midend"
	CategoryLowEnd   = "lowend"
	CategoryTab      = "tab"
	CategoryWearable = "wearable"
)

// Categories lists the device categories in tie-break priority order.
var Categories = []string{CategoryHighEnd, CategoryMidEnd, CategoryLowEnd, CategoryTab, CategoryWearable}

const DefaultBrand = "Samsung"

// IsValidCategory reports whether c is one of the known device categories.
func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// DeviceModel is a device catalog entry matched against part text.
// Table: device_models
type DeviceModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Brand     string    `gorm:"size:64;not null;default:Samsung" json:"brand"`
	ModelName string    `gorm:"size:255;not null;uniqueIndex:uk_device_models_model_name" json:"model_name"`
	Category  *string   `gorm:"size:32;index:idx_device_models_category" json:"category,omitempty"`
	ModelCode *string   `gorm:"size:255;index:idx_device_models_model_code" json:"model_code,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DeviceModel) TableName() string {
	return "device_models"
}

type DeviceModelFilter struct {
	ID        *uint
	ModelName *string
	Category  *string
	Search    *string
}

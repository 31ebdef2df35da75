package models

import "time"

const (
	PartStatusActive = "Active"
	PartStatusDead   = "Dead"
)

// Part stores a replacement part with its pricing and stock columns.
// DeviceName, DeviceCode and Category are derived by the device matcher from
// Code+Description and are rewritten whenever that text changes.
// Table: parts
type Part struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Code        string   `gorm:"size:255;not null;uniqueIndex:uk_parts_code" json:"code"`
	Description *string  `gorm:"type:text" json:"description,omitempty"`
	MapPrice    *float64 `gorm:"type:numeric(14,4);index:idx_parts_map_price" json:"map_price,omitempty"`
	Status      string   `gorm:"size:32;not null;default:Active;index:idx_parts_status" json:"status"`
	NetPrice    *float64 `gorm:"type:numeric(14,4)" json:"net_price,omitempty"`
	Diff        *float64 `gorm:"type:numeric(14,4)" json:"diff,omitempty"`
	StockQty    *int     `gorm:"index:idx_parts_stock_qty" json:"stock_qty,omitempty"`
	GrQty       *int     `json:"gr_qty,omitempty"`
	GrUSD       *float64 `gorm:"column:gr_usd;type:numeric(14,4)" json:"gr_usd,omitempty"`

	DeviceName *string `gorm:"size:255;index:idx_parts_device_name" json:"device_name,omitempty"`
	DeviceCode *string `gorm:"size:255;index:idx_parts_device_code" json:"device_code,omitempty"`
	Category   *string `gorm:"size:32;index:idx_parts_category" json:"category,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_parts_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Part) TableName() string {
	return "parts"
}

// MatchText is the text the device matcher and the companion rules look at.
func (p Part) MatchText() string {
	if p.Description == nil {
		return p.Code
	}
	return p.Code + " " + *p.Description
}

// BasePrice returns MAP price, falling back to net price, then zero.
func (p Part) BasePrice() float64 {
	if p.MapPrice != nil {
		return *p.MapPrice
	}
	if p.NetPrice != nil {
		return *p.NetPrice
	}
	return 0
}

// PartFilter represents filter criteria for part queries.
// Search is expanded into several LIKE patterns by the repository.
type PartFilter struct {
	ID        *uint
	IDs       []uint
	Code      *string
	Search    *string
	Status    *string
	MinPrice  *float64
	MaxPrice  *float64
	InStock   *bool
	DeviceKey *string
	Category  *string
}

package dto

// PartDTO is a part as returned by the API. Device fields are derived and read-only.
type PartDTO struct {
	ID          uint     `json:"id" example:"42"`
	Code        string   `json:"code" example:"GH82-30480A LCD-OLED"`
	Description *string  `json:"description,omitempty" example:"Galaxy S23 OLED assy"`
	MapPrice    *float64 `json:"map_price,omitempty" example:"85.5"`
	NetPrice    *float64 `json:"net_price,omitempty" example:"80"`
	Diff        *float64 `json:"diff,omitempty"`
	Status      string   `json:"status" example:"Active"`
	StockQty    *int     `json:"stock_qty,omitempty" example:"3"`
	GrQty       *int     `json:"gr_qty,omitempty"`
	GrUSD       *float64 `json:"gr_usd,omitempty"`
	DeviceName  *string  `json:"device_name,omitempty" example:"Galaxy S23"`
	DeviceCode  *string  `json:"device_code,omitempty" example:"SM-S911B"`
	Category    *string  `json:"category,omitempty" example:"highend"`
	CreatedAt   string   `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   string   `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// CreatePartRequest represents the payload for creating a part
type CreatePartRequest struct {
	Code        string   `json:"code" validate:"required,max=255"`
	Description *string  `json:"description,omitempty"`
	MapPrice    *float64 `json:"map_price,omitempty" validate:"omitempty,gte=0"`
	NetPrice    *float64 `json:"net_price,omitempty" validate:"omitempty,gte=0"`
	Diff        *float64 `json:"diff,omitempty"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=Active Dead"`
	StockQty    *int     `json:"stock_qty,omitempty" validate:"omitempty,gte=0"`
	GrQty       *int     `json:"gr_qty,omitempty" validate:"omitempty,gte=0"`
	GrUSD       *float64 `json:"gr_usd,omitempty"`
}

// UpdatePartRequest represents a partial part update; nil fields are left unchanged
type UpdatePartRequest struct {
	Code        *string  `json:"code,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description,omitempty"`
	MapPrice    *float64 `json:"map_price,omitempty" validate:"omitempty,gte=0"`
	NetPrice    *float64 `json:"net_price,omitempty" validate:"omitempty,gte=0"`
	Diff        *float64 `json:"diff,omitempty"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=Active Dead"`
	StockQty    *int     `json:"stock_qty,omitempty" validate:"omitempty,gte=0"`
	GrQty       *int     `json:"gr_qty,omitempty" validate:"omitempty,gte=0"`
	GrUSD       *float64 `json:"gr_usd,omitempty"`
}

// PartListFilter carries the list filters shared by listing, counting, export and bulk operations
type PartListFilter struct {
	Search   *string  `json:"search,omitempty"`
	Status   *string  `json:"status,omitempty" validate:"omitempty,oneof=Active Dead"`
	Device   *string  `json:"device,omitempty"`
	Category *string  `json:"category,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty" validate:"omitempty,gte=0"`
	MaxPrice *float64 `json:"max_price,omitempty" validate:"omitempty,gte=0"`
	InStock  *bool    `json:"in_stock,omitempty"`
}

// ListPartsRequest is built from query parameters by the handler
type ListPartsRequest struct {
	PartListFilter
	Skip  int `json:"skip" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0"`
}

type ListPartsResponse struct {
	Message string    `json:"message"`
	Items   []PartDTO `json:"items"`
	Skip    int       `json:"skip"`
	Limit   int       `json:"limit"`
}

type CountPartsResponse struct {
	Total int64 `json:"total"`
}

// DeviceOptionDTO is one entry of the device filter dropdown
type DeviceOptionDTO struct {
	Key        string  `json:"key" example:"galaxy s23||sm-s911b"`
	Label      string  `json:"label" example:"Galaxy S23"`
	DeviceName *string `json:"device_name,omitempty"`
	DeviceCode *string `json:"device_code,omitempty"`
}

type DeviceOptionsResponse struct {
	Items []DeviceOptionDTO `json:"items"`
}

// BulkPartsRequest applies an operation to every part matching the filter
type BulkPartsRequest struct {
	PartListFilter
}

type BulkOperationResponse struct {
	Message  string `json:"message"`
	Matched  int    `json:"matched"`
	Affected int    `json:"affected"`
	Failed   int    `json:"failed"`
}

// DetectDeviceResponse is the device matcher result for a piece of text; all fields are null on no match
type DetectDeviceResponse struct {
	ModelName *string `json:"model_name"`
	ModelCode *string `json:"model_code"`
	Category  *string `json:"category"`
}

type ResolveCompanionsRequest struct {
	PartID      uint   `json:"part_id" validate:"required,gt=0"`
	SelectedIDs []uint `json:"selected_ids,omitempty"`
}

// CompanionDTO is a part co-selected with a primary repair part
type CompanionDTO struct {
	Part     PartDTO `json:"part"`
	Quantity int     `json:"quantity"`
	Rule     string  `json:"rule"`
}

type ResolveCompanionsResponse struct {
	Items []CompanionDTO `json:"items"`
}

type ReannotateResponse struct {
	Message string `json:"message"`
	Scanned int    `json:"scanned"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
}

// ExportFile is a rendered parts export
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

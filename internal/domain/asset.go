package domain

import "time"

// AssetStatus represents lifecycle states for an asset.
type AssetStatus string

const (
	AssetStatusActive   AssetStatus = "ACTIVE"
	AssetStatusInRepair AssetStatus = "IN_REPAIR"
	AssetStatusRetired  AssetStatus = "RETIRED"
	AssetStatusLost     AssetStatus = "LOST"
)

// Asset is a tracked piece of equipment.
type Asset struct {
	ID           string      `json:"id"`
	Tag          string      `json:"tag"`
	Name         string      `json:"name"`
	Category     string      `json:"category,omitempty"`
	Status       AssetStatus `json:"status"`
	SerialNumber string      `json:"serial_number,omitempty"`
	CustomerID   string      `json:"customer_id,omitempty"`
	SiteID       string      `json:"site_id,omitempty"`
	LocationID   string      `json:"location_id,omitempty"`
	DepartmentID string      `json:"department_id,omitempty"`
	PurchasedAt  *time.Time  `json:"purchased_at,omitempty"`
	Timestamps
}

// Image is an uploaded picture attached to an asset.
type Image struct {
	ID        string `json:"id"`
	AssetID   string `json:"asset_id,omitempty"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URL       string `json:"url,omitempty"`
	Timestamps
}

// Valid reports whether s is a known status.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusActive, AssetStatusInRepair, AssetStatusRetired, AssetStatusLost:
		return true
	}
	return false
}

package entity

import "time"

// AppType distinguishes internally-built applications from vendor-supplied
// ones; the risk parameter model selects its weight and threshold sets by it.
type AppType string

const (
	AppTypeInternal AppType = "internal"
	AppTypeVendor   AppType = "vendor"
)

// Application is the minimal application shape the scoring engine needs. The
// full inventory record (teams, controls, lifecycle) is owned by the CRUD
// collaborator.
type Application struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	AppType    AppType   `json:"app_type" db:"app_type"`
	TeamID     string    `json:"team_id,omitempty" db:"team_id"`
	CatalogID  string    `json:"catalog_id,omitempty" db:"catalog_id"`
	VendorName string    `json:"vendor_name,omitempty" db:"vendor_name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

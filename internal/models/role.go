package models

import "time"

// Role types
const (
	RoleTypeRegular = 1
	RoleTypeSite    = 2
)

// Role is a portal role. Directory groups may be mirrored to a regular role
// of the same name.
type Role struct {
	ID          int64     `json:"id" db:"id"`
	CompanyID   int64     `json:"company_id" db:"company_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Type        int       `json:"type" db:"type"`
	CreateDate  time.Time `json:"create_date" db:"create_date"`
}

package models

import "time"

// UserGroup is a portal user group, usually mirrored from a directory group.
type UserGroup struct {
	ID            int64     `json:"id" db:"id"`
	CompanyID     int64     `json:"company_id" db:"company_id"`
	CreatorUserID int64     `json:"creator_user_id" db:"creator_user_id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	CreateDate    time.Time `json:"create_date" db:"create_date"`
	ModifiedDate  time.Time `json:"modified_date" db:"modified_date"`
}

package models

import "time"

// DirectoryUser is a user record as mapped from directory attributes.
// It only lives for the duration of one import.
type DirectoryUser struct {
	DN                    string  `json:"dn"`
	ScreenName            string  `json:"screen_name"`
	EmailAddress          string  `json:"email_address"`
	FirstName             string  `json:"first_name"`
	MiddleName            string  `json:"middle_name"`
	LastName              string  `json:"last_name"`
	FacebookID            int64   `json:"facebook_id"`
	OpenID                string  `json:"open_id"`
	LanguageID            string  `json:"language_id"`
	TimeZoneID            string  `json:"time_zone_id"`
	Greeting              string  `json:"greeting"`
	Comments              string  `json:"comments"`
	ReminderQueryQuestion string  `json:"reminder_query_question"`
	ReminderQueryAnswer   string  `json:"reminder_query_answer"`
	Status                int     `json:"status"`
	Contact               Contact `json:"contact"`

	// Flat contact entries used by enrichment.
	Phone  string `json:"phone"`
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip"`

	GroupIDs        []int64 `json:"group_ids,omitempty"`
	OrganizationIDs []int64 `json:"organization_ids,omitempty"`
	RoleIDs         []int64 `json:"role_ids,omitempty"`
	UserGroupIDs    []int64 `json:"user_group_ids,omitempty"`

	AutoPassword   bool   `json:"auto_password"`
	AutoScreenName bool   `json:"auto_screen_name"`
	PasswordReset  bool   `json:"password_reset"`
	UpdatePassword bool   `json:"update_password"`
	UpdatePortrait bool   `json:"update_portrait"`
	PortraitBytes  []byte `json:"-"`

	Expando        map[string]string `json:"expando,omitempty"`
	ContactExpando map[string]string `json:"contact_expando,omitempty"`
}

// DirectoryGroup is a group record as mapped from directory attributes.
type DirectoryGroup struct {
	DN          string            `json:"dn"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Members     []string          `json:"members,omitempty"` // member DNs
	Expando     map[string]string `json:"expando,omitempty"`
}

// Sync run statuses
const (
	SyncStatusPending   = "pending"
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
	SyncStatusSkipped   = "skipped" // another instance held the run lock
)

// Sync triggers
const (
	SyncTriggerManual    = "manual"
	SyncTriggerScheduled = "scheduled"
	SyncTriggerAPI       = "api"
	SyncTriggerStartup   = "startup"
)

// SyncHistory records one batch run against a directory server.
type SyncHistory struct {
	ID                string     `json:"id" db:"id"`
	CompanyID         int64      `json:"company_id" db:"company_id"`
	ServerID          int64      `json:"server_id" db:"server_id"`
	StartTime         time.Time  `json:"start_time" db:"start_time"`
	EndTime           *time.Time `json:"end_time" db:"end_time"`
	Status            string     `json:"status" db:"status"`
	UsersFound        int        `json:"users_found" db:"users_found"`
	UsersCreated      int        `json:"users_created" db:"users_created"`
	UsersUpdated      int        `json:"users_updated" db:"users_updated"`
	UsersPasswordOnly int        `json:"users_password_only" db:"users_password_only"`
	UsersSkipped      int        `json:"users_skipped" db:"users_skipped"`
	GroupsFound       int        `json:"groups_found" db:"groups_found"`
	GroupsCreated     int        `json:"groups_created" db:"groups_created"`
	GroupsUpdated     int        `json:"groups_updated" db:"groups_updated"`
	ErrorCount        int        `json:"error_count" db:"error_count"`
	ErrorLog          string     `json:"error_log" db:"error_log"` // JSON array of errors
	Duration          int64      `json:"duration" db:"duration"`   // Milliseconds
	TriggeredBy       string     `json:"triggered_by" db:"triggered_by"`
}

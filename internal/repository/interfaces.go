package repository

import (
	"context"
	"time"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

// NewUser describes a user to provision. An empty ScreenName leaves the
// screen name unassigned until the first full update.
type NewUser struct {
	CompanyID       int64
	CreatorUserID   int64
	AutoPassword    bool
	Password        string
	AutoScreenName  bool
	ScreenName      string
	EmailAddress    string
	FacebookID      int64
	OpenID          string
	LanguageID      string
	FirstName       string
	MiddleName      string
	LastName        string
	JobTitle        string
	Status          int
	Contact         models.Contact
	GroupIDs        []int64
	OrganizationIDs []int64
	RoleIDs         []int64
	UserGroupIDs    []int64
}

// UserStore is the local user store written by directory imports.
// Lookups return ErrUserNotFound when no row matches.
type UserStore interface {
	FindUser(ctx context.Context, companyID int64, screenName, emailAddress string) (*models.User, error)
	DefaultUserID(ctx context.Context, companyID int64) (int64, error)
	CreateUser(ctx context.Context, user *NewUser) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int64, password string, passwordReset bool) error
	UpdateFields(ctx context.Context, userID int64, update *models.UserUpdate) (*models.User, error)
	UpdateStatus(ctx context.Context, userID int64, status int) (*models.User, error)
	UpdateModifiedDate(ctx context.Context, userID int64, modifiedDate time.Time) (*models.User, error)
	UpdatePortrait(ctx context.Context, userID int64, portrait []byte) error
	DeletePortrait(ctx context.Context, userID int64) error
	AddPhone(ctx context.Context, phone *models.Phone) (*models.Phone, error)
	AddAddress(ctx context.Context, address *models.Address) (*models.Address, error)
	UpdateExpando(ctx context.Context, userID int64, userAttrs, contactAttrs map[string]string) error
}

// GroupStore manages portal user groups. Lookups return ErrGroupNotFound.
type GroupStore interface {
	GetUserGroup(ctx context.Context, companyID int64, name string) (*models.UserGroup, error)
	AddUserGroup(ctx context.Context, creatorUserID, companyID int64, name, description string) (*models.UserGroup, error)
	UpdateUserGroup(ctx context.Context, userGroupID int64, name, description string) (*models.UserGroup, error)
}

// RoleStore manages portal roles. Lookups return ErrRoleNotFound.
type RoleStore interface {
	GetRole(ctx context.Context, companyID int64, name string) (*models.Role, error)
	AddRole(ctx context.Context, role *models.Role) (*models.Role, error)
	AddGroupRole(ctx context.Context, userGroupID, roleID int64) error
}

// ActivityStore reads and writes historical social activities.
type ActivityStore interface {
	ListActivities(ctx context.Context, classNameID, classPK int64) ([]*models.SocialActivity, error)
	InsertActivity(ctx context.Context, activity *models.SocialActivity) error
}

// SyncHistoryStore persists batch run records.
type SyncHistoryStore interface {
	CreateSyncHistory(ctx context.Context, history *models.SyncHistory) error
	UpdateSyncHistory(ctx context.Context, history *models.SyncHistory) error
	GetLatestSyncHistory(ctx context.Context, companyID, serverID int64) (*models.SyncHistory, error)
	ListSyncHistory(ctx context.Context, companyID int64, limit int) ([]*models.SyncHistory, error)
}

var (
	_ UserStore        = (*UserRepository)(nil)
	_ GroupStore       = (*GroupRepository)(nil)
	_ RoleStore        = (*RoleRepository)(nil)
	_ ActivityStore    = (*ActivityRepository)(nil)
	_ SyncHistoryStore = (*SyncHistoryRepository)(nil)
)

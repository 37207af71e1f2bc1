package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Operation names recorded by UserRepository.
const (
	OpCreateUser         = "CreateUser"
	OpUpdatePassword     = "UpdatePassword"
	OpUpdateFields       = "UpdateFields"
	OpUpdateStatus       = "UpdateStatus"
	OpUpdateModifiedDate = "UpdateModifiedDate"
	OpUpdatePortrait     = "UpdatePortrait"
	OpDeletePortrait     = "DeletePortrait"
	OpAddPhone           = "AddPhone"
	OpAddAddress         = "AddAddress"
	OpUpdateExpando      = "UpdateExpando"
)

// UserRepository is an in-memory repository.UserStore. Reads hand out
// clones, so callers never alias stored state.
type UserRepository struct {
	journal

	users     map[int64]*models.User
	portraits map[int64][]byte
	expando   map[int64]map[string]string
	contactEx map[int64]map[string]string
	nextID    int64
	nextSubID int64
	now       func() time.Time
	mu        sync.RWMutex
}

// NewUserRepository creates a new in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:     make(map[int64]*models.User),
		portraits: make(map[int64][]byte),
		expando:   make(map[int64]map[string]string),
		contactEx: make(map[int64]map[string]string),
		nextID:    1,
		nextSubID: 1,
		now:       time.Now,
	}
}

// Seed stores a user as-is without recording a write. A zero ID is assigned.
func (r *UserRepository) Seed(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := user.Clone()
	if stored.ID == 0 {
		stored.ID = r.nextID
	}
	if stored.ID >= r.nextID {
		r.nextID = stored.ID + 1
	}
	if stored.ContactID == 0 {
		stored.ContactID = stored.ID
	}
	r.users[stored.ID] = stored
	return stored.Clone()
}

// Get returns a snapshot of a stored user.
func (r *UserRepository) Get(userID int64) (*models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	return user.Clone(), ok
}

// Portrait returns the stored portrait bytes.
func (r *UserRepository) Portrait(userID int64) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.portraits[userID]
	return data, ok
}

// Expando returns the stored user and contact expando attributes.
func (r *UserRepository) Expando(userID int64) (map[string]string, map[string]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.expando[userID], r.contactEx[userID]
}

// FindUser looks a user up by screen name, falling back to email.
func (r *UserRepository) FindUser(ctx context.Context, companyID int64, screenName, emailAddress string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if screenName != "" {
		for _, user := range r.users {
			if user.CompanyID == companyID && strings.EqualFold(user.ScreenName, screenName) {
				return user.Clone(), nil
			}
		}
	}
	if emailAddress != "" {
		for _, user := range r.users {
			if user.CompanyID == companyID && strings.EqualFold(user.EmailAddress, emailAddress) {
				return user.Clone(), nil
			}
		}
	}
	return nil, repository.ErrUserNotFound
}

// DefaultUserID returns the id of the company's default user.
func (r *UserRepository) DefaultUserID(ctx context.Context, companyID int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.CompanyID == companyID && user.DefaultUser {
			return user.ID, nil
		}
	}
	return 0, fmt.Errorf("default user for company %d: %w", companyID, repository.ErrUserNotFound)
}

// CreateUser provisions a new user
func (r *UserRepository) CreateUser(ctx context.Context, newUser *repository.NewUser) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	if err := r.record(ctx, OpCreateUser, id); err != nil {
		return nil, err
	}
	r.nextID++

	now := r.now()
	user := &models.User{
		ID:              id,
		CompanyID:       newUser.CompanyID,
		ContactID:       id,
		ScreenName:      newUser.ScreenName,
		EmailAddress:    newUser.EmailAddress,
		FacebookID:      newUser.FacebookID,
		OpenID:          newUser.OpenID,
		LanguageID:      newUser.LanguageID,
		FirstName:       newUser.FirstName,
		MiddleName:      newUser.MiddleName,
		LastName:        newUser.LastName,
		JobTitle:        newUser.JobTitle,
		Status:          newUser.Status,
		Contact:         newUser.Contact,
		CreateDate:      now,
		ModifiedDate:    now,
		GroupIDs:        append([]int64(nil), newUser.GroupIDs...),
		OrganizationIDs: append([]int64(nil), newUser.OrganizationIDs...),
		RoleIDs:         append([]int64(nil), newUser.RoleIDs...),
		UserGroupIDs:    append([]int64(nil), newUser.UserGroupIDs...),
	}
	if !newUser.AutoPassword && newUser.Password != "" {
		if err := user.SetPassword(newUser.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	r.users[id] = user
	return user.Clone(), nil
}

// UpdatePassword replaces the user's password
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, password string, passwordReset bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if err := r.record(ctx, OpUpdatePassword, userID); err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordReset = passwordReset
	return nil
}

// UpdateFields applies a full field update
func (r *UserRepository) UpdateFields(ctx context.Context, userID int64, update *models.UserUpdate) (*models.User, error) {
	return r.mutate(ctx, OpUpdateFields, userID, func(user *models.User) {
		user.Apply(update)
		user.ModifiedDate = r.now()
	})
}

// UpdateStatus changes the workflow status
func (r *UserRepository) UpdateStatus(ctx context.Context, userID int64, status int) (*models.User, error) {
	return r.mutate(ctx, OpUpdateStatus, userID, func(user *models.User) {
		user.Status = status
	})
}

// UpdateModifiedDate stamps the modification timestamp
func (r *UserRepository) UpdateModifiedDate(ctx context.Context, userID int64, modifiedDate time.Time) (*models.User, error) {
	return r.mutate(ctx, OpUpdateModifiedDate, userID, func(user *models.User) {
		user.ModifiedDate = modifiedDate
	})
}

// UpdatePortrait stores portrait bytes
func (r *UserRepository) UpdatePortrait(ctx context.Context, userID int64, portrait []byte) error {
	_, err := r.mutate(ctx, OpUpdatePortrait, userID, func(user *models.User) {
		r.portraits[userID] = append([]byte(nil), portrait...)
		user.PortraitID = userID
	})
	return err
}

// DeletePortrait removes the portrait
func (r *UserRepository) DeletePortrait(ctx context.Context, userID int64) error {
	_, err := r.mutate(ctx, OpDeletePortrait, userID, func(user *models.User) {
		delete(r.portraits, userID)
		user.PortraitID = 0
	})
	return err
}

// AddPhone appends a phone to its owning user
func (r *UserRepository) AddPhone(ctx context.Context, phone *models.Phone) (*models.Phone, error) {
	var stored models.Phone
	_, err := r.mutate(ctx, OpAddPhone, phone.UserID, func(user *models.User) {
		stored = *phone
		stored.ID = r.nextSubID
		r.nextSubID++
		user.Phones = append(user.Phones, stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// AddAddress appends an address to its owning user
func (r *UserRepository) AddAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	var stored models.Address
	_, err := r.mutate(ctx, OpAddAddress, address.UserID, func(user *models.User) {
		stored = *address
		stored.ID = r.nextSubID
		r.nextSubID++
		user.Addresses = append(user.Addresses, stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateExpando merges custom attributes
func (r *UserRepository) UpdateExpando(ctx context.Context, userID int64, userAttrs, contactAttrs map[string]string) error {
	_, err := r.mutate(ctx, OpUpdateExpando, userID, func(*models.User) {
		r.expando[userID] = mergeAttrs(r.expando[userID], userAttrs)
		r.contactEx[userID] = mergeAttrs(r.contactEx[userID], contactAttrs)
	})
	return err
}

func (r *UserRepository) mutate(ctx context.Context, op string, userID int64, apply func(*models.User)) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if err := r.record(ctx, op, userID); err != nil {
		return nil, err
	}
	apply(user)
	return user.Clone(), nil
}

func mergeAttrs(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Operation names recorded by GroupRepository.
const (
	OpAddUserGroup    = "AddUserGroup"
	OpUpdateUserGroup = "UpdateUserGroup"
)

// GroupRepository is an in-memory repository.GroupStore.
type GroupRepository struct {
	journal

	groups map[int64]*models.UserGroup
	nextID int64
	mu     sync.RWMutex
}

// NewGroupRepository creates a new in-memory group repository
func NewGroupRepository() *GroupRepository {
	return &GroupRepository{
		groups: make(map[int64]*models.UserGroup),
		nextID: 1,
	}
}

// Seed stores a group without recording a write.
func (r *GroupRepository) Seed(group *models.UserGroup) *models.UserGroup {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *group
	if stored.ID == 0 {
		stored.ID = r.nextID
	}
	if stored.ID >= r.nextID {
		r.nextID = stored.ID + 1
	}
	r.groups[stored.ID] = &stored
	copied := stored
	return &copied
}

// GetUserGroup retrieves a group by name
func (r *GroupRepository) GetUserGroup(ctx context.Context, companyID int64, name string) (*models.UserGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, group := range r.groups {
		if group.CompanyID == companyID && group.Name == name {
			copied := *group
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, repository.ErrGroupNotFound)
}

// AddUserGroup creates a new group
func (r *GroupRepository) AddUserGroup(ctx context.Context, creatorUserID, companyID int64, name, description string) (*models.UserGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	if err := r.record(ctx, OpAddUserGroup, id); err != nil {
		return nil, err
	}
	for _, group := range r.groups {
		if group.CompanyID == companyID && group.Name == name {
			return nil, fmt.Errorf("group %q already exists", name)
		}
	}
	r.nextID++

	now := time.Now()
	group := &models.UserGroup{
		ID:            id,
		CompanyID:     companyID,
		CreatorUserID: creatorUserID,
		Name:          name,
		Description:   description,
		CreateDate:    now,
		ModifiedDate:  now,
	}
	r.groups[id] = group
	copied := *group
	return &copied, nil
}

// UpdateUserGroup renames or re-describes a group
func (r *GroupRepository) UpdateUserGroup(ctx context.Context, userGroupID int64, name, description string) (*models.UserGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[userGroupID]
	if !ok {
		return nil, repository.ErrGroupNotFound
	}
	if err := r.record(ctx, OpUpdateUserGroup, userGroupID); err != nil {
		return nil, err
	}
	group.Name = name
	group.Description = description
	group.ModifiedDate = time.Now()
	copied := *group
	return &copied, nil
}

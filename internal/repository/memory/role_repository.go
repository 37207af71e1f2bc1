package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Operation names recorded by RoleRepository.
const (
	OpAddRole      = "AddRole"
	OpAddGroupRole = "AddGroupRole"
)

// RoleRepository is an in-memory repository.RoleStore.
type RoleRepository struct {
	journal

	roles      map[int64]*models.Role
	groupRoles map[int64][]int64
	nextID     int64
	mu         sync.RWMutex
}

// NewRoleRepository creates a new in-memory role repository
func NewRoleRepository() *RoleRepository {
	return &RoleRepository{
		roles:      make(map[int64]*models.Role),
		groupRoles: make(map[int64][]int64),
		nextID:     1,
	}
}

// GetRole retrieves a role by name
func (r *RoleRepository) GetRole(ctx context.Context, companyID int64, name string) (*models.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, role := range r.roles {
		if role.CompanyID == companyID && role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, repository.ErrRoleNotFound)
}

// AddRole creates a role
func (r *RoleRepository) AddRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	if err := r.record(ctx, OpAddRole, id); err != nil {
		return nil, err
	}
	r.nextID++

	stored := *role
	stored.ID = id
	if stored.CreateDate.IsZero() {
		stored.CreateDate = time.Now()
	}
	r.roles[id] = &stored
	copied := stored
	return &copied, nil
}

// AddGroupRole assigns a role to a user group
func (r *RoleRepository) AddGroupRole(ctx context.Context, userGroupID, roleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[roleID]; !ok {
		return repository.ErrRoleNotFound
	}
	if err := r.record(ctx, OpAddGroupRole, userGroupID); err != nil {
		return err
	}
	for _, id := range r.groupRoles[userGroupID] {
		if id == roleID {
			return nil
		}
	}
	r.groupRoles[userGroupID] = append(r.groupRoles[userGroupID], roleID)
	return nil
}

// GroupRoles returns the role ids assigned to a user group.
func (r *RoleRepository) GroupRoles(userGroupID int64) []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]int64(nil), r.groupRoles[userGroupID]...)
}

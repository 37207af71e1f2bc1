package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gotrs-io/gotrs-ldapsync/internal/database"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

// RoleRepository handles database operations for roles
type RoleRepository struct {
	qb        *database.QueryBuilder
	listeners listeners
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *sqlx.DB, opts ...ChangeListener) *RoleRepository {
	return &RoleRepository{qb: database.NewQueryBuilder(db), listeners: opts}
}

// GetRole retrieves a role by name
func (r *RoleRepository) GetRole(ctx context.Context, companyID int64, name string) (*models.Role, error) {
	var role models.Role
	err := r.qb.GetContext(ctx, &role, `
		SELECT id, company_id, name, description, type, create_date
		FROM roles WHERE company_id = ? AND name = ?`, companyID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", name, ErrRoleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

// AddRole creates a role
func (r *RoleRepository) AddRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	stored := *role
	if stored.CreateDate.IsZero() {
		stored.CreateDate = time.Now()
	}
	if stored.Type == 0 {
		stored.Type = models.RoleTypeRegular
	}

	id, err := r.qb.InsertReturningID(ctx, `
		INSERT INTO roles (company_id, name, description, type, create_date) VALUES (?, ?, ?, ?, ?)`,
		stored.CompanyID, stored.Name, stored.Description, stored.Type, stored.CreateDate)
	if err != nil {
		return nil, fmt.Errorf("failed to insert role: %w", err)
	}
	stored.ID = id
	r.listeners.notify(ctx, "role", "create", id)
	return &stored, nil
}

// AddGroupRole assigns a role to a user group. Assigning twice is a no-op.
func (r *RoleRepository) AddGroupRole(ctx context.Context, userGroupID, roleID int64) error {
	var exists int
	err := r.qb.GetContext(ctx, &exists,
		`SELECT COUNT(*) FROM group_roles WHERE user_group_id = ? AND role_id = ?`, userGroupID, roleID)
	if err != nil {
		return fmt.Errorf("failed to check group role: %w", err)
	}
	if exists > 0 {
		return nil
	}

	if _, err := r.qb.ExecContext(ctx,
		`INSERT INTO group_roles (user_group_id, role_id) VALUES (?, ?)`, userGroupID, roleID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	r.listeners.notify(ctx, "group_role", "create", userGroupID)
	return nil
}

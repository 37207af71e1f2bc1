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

const userGroupColumns = `id, company_id, creator_user_id, name, description, create_date, modified_date`

// GroupRepository handles database operations for user groups
type GroupRepository struct {
	qb        *database.QueryBuilder
	listeners listeners
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *sqlx.DB, opts ...ChangeListener) *GroupRepository {
	return &GroupRepository{qb: database.NewQueryBuilder(db), listeners: opts}
}

// GetUserGroup retrieves a group by name
func (r *GroupRepository) GetUserGroup(ctx context.Context, companyID int64, name string) (*models.UserGroup, error) {
	var group models.UserGroup
	err := r.qb.GetContext(ctx, &group,
		`SELECT `+userGroupColumns+` FROM user_groups WHERE company_id = ? AND name = ?`, companyID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", name, ErrGroupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user group: %w", err)
	}
	return &group, nil
}

// AddUserGroup creates a group
func (r *GroupRepository) AddUserGroup(ctx context.Context, creatorUserID, companyID int64, name, description string) (*models.UserGroup, error) {
	if name == "" {
		return nil, errors.New("group name is required")
	}

	now := time.Now()
	id, err := r.qb.InsertReturningID(ctx, `
		INSERT INTO user_groups (company_id, creator_user_id, name, description, create_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		companyID, creatorUserID, name, description, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user group: %w", err)
	}
	r.listeners.notify(ctx, "user_group", "create", id)

	return &models.UserGroup{
		ID:            id,
		CompanyID:     companyID,
		CreatorUserID: creatorUserID,
		Name:          name,
		Description:   description,
		CreateDate:    now,
		ModifiedDate:  now,
	}, nil
}

// UpdateUserGroup renames or re-describes a group
func (r *GroupRepository) UpdateUserGroup(ctx context.Context, userGroupID int64, name, description string) (*models.UserGroup, error) {
	res, err := r.qb.ExecContext(ctx,
		`UPDATE user_groups SET name = ?, description = ?, modified_date = ? WHERE id = ?`,
		name, description, time.Now(), userGroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrGroupNotFound
	}
	r.listeners.notify(ctx, "user_group", "update", userGroupID)

	var group models.UserGroup
	if err := r.qb.GetContext(ctx, &group, `SELECT `+userGroupColumns+` FROM user_groups WHERE id = ?`, userGroupID); err != nil {
		return nil, fmt.Errorf("failed to reload user group: %w", err)
	}
	return &group, nil
}

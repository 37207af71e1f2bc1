package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gotrs-io/gotrs-ldapsync/internal/database"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

var syncHistoryColumns = []string{
	"id", "company_id", "server_id", "start_time", "end_time", "status",
	"users_found", "users_created", "users_updated", "users_password_only", "users_skipped",
	"groups_found", "groups_created", "groups_updated", "error_count", "error_log",
	"duration", "triggered_by",
}

// SyncHistoryRepository handles database operations for directory sync runs
type SyncHistoryRepository struct {
	qb *database.QueryBuilder
}

// NewSyncHistoryRepository creates a new sync history repository
func NewSyncHistoryRepository(db *sqlx.DB) *SyncHistoryRepository {
	return &SyncHistoryRepository{qb: database.NewQueryBuilder(db)}
}

// CreateSyncHistory creates a new sync history record
func (r *SyncHistoryRepository) CreateSyncHistory(ctx context.Context, h *models.SyncHistory) error {
	_, err := r.qb.ExecContext(ctx, `
		INSERT INTO ldap_sync_history (id, company_id, server_id, start_time, end_time, status,
			users_found, users_created, users_updated, users_password_only, users_skipped,
			groups_found, groups_created, groups_updated, error_count, error_log, duration, triggered_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.CompanyID, h.ServerID, h.StartTime, h.EndTime, h.Status,
		h.UsersFound, h.UsersCreated, h.UsersUpdated, h.UsersPasswordOnly, h.UsersSkipped,
		h.GroupsFound, h.GroupsCreated, h.GroupsUpdated, h.ErrorCount, h.ErrorLog, h.Duration, h.TriggeredBy)
	if err != nil {
		return fmt.Errorf("failed to create sync history: %w", err)
	}
	return nil
}

// UpdateSyncHistory updates a sync history record
func (r *SyncHistoryRepository) UpdateSyncHistory(ctx context.Context, h *models.SyncHistory) error {
	res, err := r.qb.ExecContext(ctx, `
		UPDATE ldap_sync_history SET end_time = ?, status = ?, users_found = ?, users_created = ?,
			users_updated = ?, users_password_only = ?, users_skipped = ?, groups_found = ?,
			groups_created = ?, groups_updated = ?, error_count = ?, error_log = ?, duration = ?
		WHERE id = ?`,
		h.EndTime, h.Status, h.UsersFound, h.UsersCreated,
		h.UsersUpdated, h.UsersPasswordOnly, h.UsersSkipped, h.GroupsFound,
		h.GroupsCreated, h.GroupsUpdated, h.ErrorCount, h.ErrorLog, h.Duration,
		h.ID)
	if err != nil {
		return fmt.Errorf("failed to update sync history: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSyncHistoryNotFound
	}
	return nil
}

// GetLatestSyncHistory gets the most recent run for a company and server
func (r *SyncHistoryRepository) GetLatestSyncHistory(ctx context.Context, companyID, serverID int64) (*models.SyncHistory, error) {
	var h models.SyncHistory
	err := r.qb.NewSelect(syncHistoryColumns...).
		From("ldap_sync_history").
		Where("company_id = ?", companyID).
		Where("server_id = ?", serverID).
		OrderBy("start_time DESC").
		Limit(1).
		GetContext(ctx, &h)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSyncHistoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sync history: %w", err)
	}
	return &h, nil
}

// ListSyncHistory lists runs for a company, newest first
func (r *SyncHistoryRepository) ListSyncHistory(ctx context.Context, companyID int64, limit int) ([]*models.SyncHistory, error) {
	var history []*models.SyncHistory
	err := r.qb.NewSelect(syncHistoryColumns...).
		From("ldap_sync_history").
		Where("company_id = ?", companyID).
		OrderBy("start_time DESC").
		Limit(limit).
		SelectContext(ctx, &history)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync history: %w", err)
	}
	return history, nil
}

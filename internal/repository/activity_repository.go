package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/gotrs-io/gotrs-ldapsync/internal/database"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

// ActivityRepository handles database operations for social activities
type ActivityRepository struct {
	qb *database.QueryBuilder
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{qb: database.NewQueryBuilder(db)}
}

// ListActivities returns every activity of one (classNameID, classPK) scope.
func (r *ActivityRepository) ListActivities(ctx context.Context, classNameID, classPK int64) ([]*models.SocialActivity, error) {
	var activities []*models.SocialActivity
	err := r.qb.SelectContext(ctx, &activities, `
		SELECT id, group_id, company_id, user_id, create_date, class_name_id, class_pk, type,
			extra_data, receiver_user_id
		FROM social_activities
		WHERE class_name_id = ? AND class_pk = ?
		ORDER BY create_date`, classNameID, classPK)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// InsertActivity stores an activity. A clash on the scope's unique create
// date surfaces as ErrDuplicateActivity.
func (r *ActivityRepository) InsertActivity(ctx context.Context, a *models.SocialActivity) error {
	id, err := r.qb.InsertReturningID(ctx, `
		INSERT INTO social_activities (group_id, company_id, user_id, create_date, class_name_id,
			class_pk, type, extra_data, receiver_user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.GroupID, a.CompanyID, a.UserID, a.CreateDate, a.ClassNameID,
		a.ClassPK, a.Type, a.ExtraData, a.ReceiverUserID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateActivity, err)
		}
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	a.ID = id
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

package memory

import (
	"context"
	"sync"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// OpInsertActivity is recorded by ActivityRepository.
const OpInsertActivity = "InsertActivity"

// ActivityRepository is an in-memory repository.ActivityStore. Like the SQL
// schema it rejects a create date already used in the same scope.
type ActivityRepository struct {
	journal

	activities []*models.SocialActivity
	lists      int
	nextID     int64
	mu         sync.RWMutex
}

// NewActivityRepository creates a new in-memory activity repository
func NewActivityRepository(seed ...*models.SocialActivity) *ActivityRepository {
	r := &ActivityRepository{nextID: 1}
	for _, a := range seed {
		copied := *a
		if copied.ID == 0 {
			copied.ID = r.nextID
		}
		r.nextID = copied.ID + 1
		r.activities = append(r.activities, &copied)
	}
	return r
}

// ListActivities returns the activities of one scope
func (r *ActivityRepository) ListActivities(ctx context.Context, classNameID, classPK int64) ([]*models.SocialActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lists++
	var out []*models.SocialActivity
	for _, a := range r.activities {
		if a.ClassNameID == classNameID && a.ClassPK == classPK {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

// InsertActivity stores an activity
func (r *ActivityRepository) InsertActivity(ctx context.Context, activity *models.SocialActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.record(ctx, OpInsertActivity, activity.ID); err != nil {
		return err
	}
	for _, a := range r.activities {
		if a.ClassNameID == activity.ClassNameID && a.ClassPK == activity.ClassPK && a.CreateDate == activity.CreateDate {
			return repository.ErrDuplicateActivity
		}
	}
	copied := *activity
	if copied.ID == 0 {
		copied.ID = r.nextID
		r.nextID++
	}
	r.activities = append(r.activities, &copied)
	return nil
}

// All returns every stored activity.
func (r *ActivityRepository) All() []*models.SocialActivity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.SocialActivity, len(r.activities))
	for i, a := range r.activities {
		copied := *a
		out[i] = &copied
	}
	return out
}

// ListCalls returns how many times ListActivities ran.
func (r *ActivityRepository) ListCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lists
}

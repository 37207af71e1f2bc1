package socialupgrade

import (
	"context"
	"fmt"

	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Scope identifies the activities whose create dates must not collide.
type Scope struct {
	ClassNameID int64
	ClassPK     int64
}

// Deduplicator hands out create dates unused within a scope.
type Deduplicator struct {
	store repository.ActivityStore
}

// NewDeduplicator checks candidates against store.
func NewDeduplicator(store repository.ActivityStore) *Deduplicator {
	return &Deduplicator{store: store}
}

// UniqueTimestamp returns candidate, moved up one millisecond at a time until
// it matches no activity of the scope. The scope is read once; concurrent
// writers to the same scope can still collide.
func (d *Deduplicator) UniqueTimestamp(ctx context.Context, candidate int64, scope Scope) (int64, error) {
	activities, err := d.store.ListActivities(ctx, scope.ClassNameID, scope.ClassPK)
	if err != nil {
		return 0, fmt.Errorf("list activities of %d/%d: %w", scope.ClassNameID, scope.ClassPK, err)
	}

	taken := make(map[int64]struct{}, len(activities))
	for _, a := range activities {
		taken[a.CreateDate] = struct{}{}
	}
	for {
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
		candidate++
	}
}

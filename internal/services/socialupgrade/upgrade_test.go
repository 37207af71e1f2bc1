package socialupgrade

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository/memory"
)

func activity(createDate, classPK int64) *models.SocialActivity {
	return &models.SocialActivity{
		CompanyID:   1,
		UserID:      42,
		CreateDate:  createDate,
		ClassNameID: 10010,
		ClassPK:     classPK,
		Type:        1,
	}
}

type failingStore struct {
	*memory.ActivityRepository
	listErr error
}

func (s *failingStore) ListActivities(ctx context.Context, classNameID, classPK int64) ([]*models.SocialActivity, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.ActivityRepository.ListActivities(ctx, classNameID, classPK)
}

func TestUniqueTimestamp(t *testing.T) {
	ctx := context.Background()
	scope := Scope{ClassNameID: 10010, ClassPK: 7}

	t.Run("first gap upward", func(t *testing.T) {
		store := memory.NewActivityRepository(activity(100, 7), activity(101, 7), activity(102, 7))

		got, err := NewDeduplicator(store).UniqueTimestamp(ctx, 100, scope)
		require.NoError(t, err)
		assert.Equal(t, int64(103), got)
		assert.Equal(t, 1, store.ListCalls(), "the scope is read once")
	})

	t.Run("free candidate is returned as is", func(t *testing.T) {
		store := memory.NewActivityRepository(activity(100, 7), activity(102, 7))

		got, err := NewDeduplicator(store).UniqueTimestamp(ctx, 101, scope)
		require.NoError(t, err)
		assert.Equal(t, int64(101), got)
	})

	t.Run("never moves downward", func(t *testing.T) {
		store := memory.NewActivityRepository(activity(99, 7), activity(100, 7))

		got, err := NewDeduplicator(store).UniqueTimestamp(ctx, 100, scope)
		require.NoError(t, err)
		assert.Equal(t, int64(101), got)
	})

	t.Run("other scopes are ignored", func(t *testing.T) {
		store := memory.NewActivityRepository(activity(100, 8))

		got, err := NewDeduplicator(store).UniqueTimestamp(ctx, 100, scope)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got)
	})

	t.Run("lookup failure is returned", func(t *testing.T) {
		boom := errors.New("timeout")
		store := &failingStore{ActivityRepository: memory.NewActivityRepository(), listErr: boom}

		_, err := NewDeduplicator(store).UniqueTimestamp(ctx, 100, scope)
		assert.ErrorIs(t, err, boom)
	})
}

func TestUpgrader(t *testing.T) {
	ctx := context.Background()

	t.Run("colliding dates are spread within a batch", func(t *testing.T) {
		store := memory.NewActivityRepository(activity(100, 7))
		reg := prometheus.NewRegistry()
		metrics := NewMetrics(reg)
		u := NewUpgrader(store, WithMetrics(metrics), WithLogger(logging.NewTestLogger(t).Logger))

		res, err := u.Run(ctx, []*models.SocialActivity{activity(100, 7), activity(100, 7), activity(100, 8)})
		require.NoError(t, err)

		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 3, res.Inserted)
		assert.Equal(t, 2, res.Shifted)
		assert.Zero(t, res.Failed)

		var dates []int64
		for _, a := range store.All() {
			if a.ClassPK == 7 {
				dates = append(dates, a.CreateDate)
			}
		}
		assert.ElementsMatch(t, []int64{100, 101, 102}, dates)

		assert.Equal(t, 3.0, testutil.ToFloat64(metrics.activities.WithLabelValues("inserted")))
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.shifted))
	})

	t.Run("input activities are not modified", func(t *testing.T) {
		store := memory.NewActivityRepository(activity(100, 7))
		in := activity(100, 7)

		r := NewUpgrader(store).AddActivity(ctx, in)
		assert.Equal(t, OutcomeInserted, r.Outcome)
		assert.Equal(t, int64(100), in.CreateDate)
		assert.Equal(t, int64(101), r.Activity.CreateDate)
		assert.True(t, r.Shifted())
	})

	t.Run("insert failures are logged and the batch continues", func(t *testing.T) {
		store := memory.NewActivityRepository()
		boom := errors.New("deadlock detected")
		store.FailOn(memory.OpInsertActivity, boom)
		tl := logging.NewTestLogger(t)
		u := NewUpgrader(store, WithLogger(tl.Logger))

		res, err := u.Run(ctx, []*models.SocialActivity{activity(1, 1), activity(2, 2)})
		require.NoError(t, err)

		assert.Equal(t, 2, res.Failed)
		assert.Zero(t, res.Inserted)
		require.Len(t, res.Failures, 2)
		assert.ErrorIs(t, res.Failures[0].Err, boom)
		assert.Equal(t, OutcomeFailed, res.Failures[0].Outcome)
		assert.True(t, tl.Contains("unable to add activity"))
		assert.True(t, tl.Contains(`"level":"warn"`))
	})

	t.Run("lookup failures are swallowed too", func(t *testing.T) {
		store := &failingStore{ActivityRepository: memory.NewActivityRepository(), listErr: errors.New("gone")}

		res, err := NewUpgrader(store).Run(ctx, []*models.SocialActivity{activity(1, 1)})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		assert.Empty(t, store.All())
	})

	t.Run("duplicate insert surfaces the store error", func(t *testing.T) {
		store := memory.NewActivityRepository()
		r := NewUpgrader(store).AddActivity(ctx, activity(5, 1))
		require.NoError(t, r.Err)

		dup := *store.All()[0]
		err := store.InsertActivity(ctx, &dup)
		assert.ErrorIs(t, err, repository.ErrDuplicateActivity)
	})

	t.Run("cancelled context stops the batch", func(t *testing.T) {
		store := memory.NewActivityRepository()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res, err := NewUpgrader(store).Run(cctx, []*models.SocialActivity{activity(1, 1)})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, res.Total)
	})
}

func TestReadActivities(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "activities.yaml")
		content := `activities:
  - companyId: 1
    userId: 42
    createDate: 1714564800000
    classNameId: 10010
    classPK: 7
    type: 1
    extraData: '{"title":"hello"}'
  - companyId: 1
    userId: 43
    createDate: 1714564800000
    classNameId: 10010
    classPK: 7
    type: 2
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		activities, err := LoadActivities(path)
		require.NoError(t, err)
		require.Len(t, activities, 2)
		assert.Equal(t, int64(1714564800000), activities[0].CreateDate)
		assert.Equal(t, int64(10010), activities[0].ClassNameID)
		assert.Equal(t, `{"title":"hello"}`, activities[0].ExtraData)
		assert.Equal(t, 2, activities[1].Type)
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		_, err := ReadActivities(strings.NewReader("activities:\n  - createdate: 5\n"))
		assert.Error(t, err)
	})

	t.Run("missing create date", func(t *testing.T) {
		_, err := ReadActivities(strings.NewReader("activities:\n  - userId: 5\n"))
		assert.ErrorContains(t, err, "createDate")
	})

	t.Run("empty input", func(t *testing.T) {
		activities, err := ReadActivities(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, activities)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadActivities(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

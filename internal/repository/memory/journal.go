package memory

import (
	"context"
	"sync"

	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Write is one recorded mutation attempt.
type Write struct {
	Op     string
	ID     int64
	Origin repository.Origin
	Err    error
}

// journal records every mutation attempt so tests can assert on exactly
// which writes an import issued. Failures can be injected per operation.
type journal struct {
	mu       sync.Mutex
	writes   []Write
	failures map[string]error
}

func (j *journal) record(ctx context.Context, op string, id int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.failures[op]
	j.writes = append(j.writes, Write{Op: op, ID: id, Origin: repository.OriginFrom(ctx), Err: err})
	return err
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (j *journal) FailOn(op string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.failures == nil {
		j.failures = make(map[string]error)
	}
	if err == nil {
		delete(j.failures, op)
		return
	}
	j.failures[op] = err
}

// Writes returns a copy of the recorded mutation attempts.
func (j *journal) Writes() []Write {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Write(nil), j.writes...)
}

// Ops returns the recorded operation names in order.
func (j *journal) Ops() []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	ops := make([]string, len(j.writes))
	for i, w := range j.writes {
		ops[i] = w.Op
	}
	return ops
}

// ResetWrites forgets recorded writes, keeping data and injected failures.
func (j *journal) ResetWrites() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.writes = nil
}

var (
	_ repository.UserStore        = (*UserRepository)(nil)
	_ repository.GroupStore       = (*GroupRepository)(nil)
	_ repository.RoleStore        = (*RoleRepository)(nil)
	_ repository.ActivityStore    = (*ActivityRepository)(nil)
	_ repository.SyncHistoryStore = (*SyncHistoryRepository)(nil)
)

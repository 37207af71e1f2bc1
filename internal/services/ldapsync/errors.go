package ldapsync

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when another run holds the run lock.
var ErrSyncInProgress = errors.New("directory sync already in progress")

// MappingError reports directory attributes that could not be turned into a
// user or group. It aborts the import of that single record.
type MappingError struct {
	DN  string
	Err error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map directory entry %q: %v", e.DN, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// TimestampParseError is recorded on a Reconciliation when the directory
// modification timestamp is unreadable. It is never returned.
type TimestampParseError struct {
	Value string
	Err   error
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("parse directory modification timestamp %q: %v", e.Value, e.Err)
}

func (e *TimestampParseError) Unwrap() error { return e.Err }

// GroupCreateError is recorded on a GroupImport when the group could not be
// created. The import carries on without the group.
type GroupCreateError struct {
	Name string
	Err  error
}

func (e *GroupCreateError) Error() string {
	return fmt.Sprintf("create user group %q: %v", e.Name, e.Err)
}

func (e *GroupCreateError) Unwrap() error { return e.Err }

// StorageError wraps a store failure together with the operation that failed.
type StorageError struct {
	Op  string
	ID  int64
	Err error
}

func (e *StorageError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, id int64, err error) error {
	return &StorageError{Op: op, ID: id, Err: err}
}

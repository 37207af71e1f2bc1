package repository

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrGroupNotFound       = errors.New("user group not found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrSyncHistoryNotFound = errors.New("sync history not found")
	ErrDuplicateActivity   = errors.New("activity create date already used in scope")
)

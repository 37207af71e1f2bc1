package models

// SyncDecision is the outcome of reconciling one directory user.
type SyncDecision int

const (
	SyncDecisionCreate SyncDecision = iota
	SyncDecisionSkipUnchanged
	SyncDecisionSkipNeverModified
	SyncDecisionUpdatePasswordOnly
	SyncDecisionFullUpdate
	SyncDecisionSkipDefaultUser
)

var syncDecisionNames = map[SyncDecision]string{
	SyncDecisionCreate:             "create",
	SyncDecisionSkipUnchanged:      "skip_unchanged",
	SyncDecisionSkipNeverModified:  "skip_never_modified",
	SyncDecisionUpdatePasswordOnly: "update_password_only",
	SyncDecisionFullUpdate:         "full_update",
	SyncDecisionSkipDefaultUser:    "skip_default_user",
}

func (d SyncDecision) String() string {
	if name, ok := syncDecisionNames[d]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the decision by name in JSON and logs.
func (d SyncDecision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// IsSkip reports whether the decision issued no writes.
func (d SyncDecision) IsSkip() bool {
	switch d {
	case SyncDecisionSkipUnchanged, SyncDecisionSkipNeverModified, SyncDecisionSkipDefaultUser:
		return true
	}
	return false
}

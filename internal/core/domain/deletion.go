package domain

import "time"

// Deletion sub-steps reported in DeletionResult.DeletedData.
const (
	DeletedServerData     = "server_data"
	DeletedLocalData      = "local_data"
	DeletedAdditionalData = "additional_data"
	DeletionScheduled     = "deletion_scheduled"
)

// DeletionRequest is the payload submitted to the remote account API.
type DeletionRequest struct {
	UserID     string
	Reason     string
	Timestamp  time.Time
	DeviceInfo string
}

// DeletionResult reports the outcome of a deletion workflow run. A deletion
// either completes immediately or transitions to a pending state bounded by
// the grace period.
type DeletionResult struct {
	Success        bool
	DeletedData    []string
	BackupLocation string
	PendingUntil   *time.Time
	Error          string
}

// AccountStatus is the pre-check answer from the account-status collaborator.
type AccountStatus struct {
	CanDelete       bool
	BlockingReasons []string
}

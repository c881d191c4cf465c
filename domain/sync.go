package domain

// Sync job kinds processed by the background worker pool.
const (
	SyncPocket       = "pocket"
	SyncProductivity = "productivity"
)

// SyncJob is one unit of background synchronization work for one user.
type SyncJob struct {
	UserID int64  `json:"user_id"`
	Kind   string `json:"kind"`
}

// QueuedSyncJob is a dequeued job plus the receipt needed to acknowledge it.
type QueuedSyncJob struct {
	Job        SyncJob
	MessageID  string
	PopReceipt string
}

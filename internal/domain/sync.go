package domain

import "time"

type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateRunning SyncState = "running"
)

type SyncOutcome string

const (
	SyncSucceeded SyncOutcome = "succeeded"
	SyncFailed    SyncOutcome = "failed"
	SyncSkipped   SyncOutcome = "skipped"
)

// SyncRun summarises one pass of the synchronization pipeline
type SyncRun struct {
	Outcome        SyncOutcome `json:"outcome"`
	Subcategories  int         `json:"subcategories"`
	ProductIDs     int         `json:"product_ids"`
	DetailsFetched int         `json:"details_fetched"`
	Persisted      int         `json:"persisted"`
	Error          string      `json:"error,omitempty"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     time.Time   `json:"finished_at"`
}

func (r SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncStatus is what callers see when polling the synchronizer
type SyncStatus struct {
	State   SyncState `json:"state"`
	LastRun *SyncRun  `json:"last_run,omitempty"`
}

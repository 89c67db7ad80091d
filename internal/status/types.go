package status

import (
	"time"

	"github.com/google/uuid"
)

// SyncPhase represents the current phase of a synchronization run
type SyncPhase string

const (
	// SyncPhaseSyncing means the run is in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the run reached the end of the cleanup pass
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the run was aborted
	SyncPhaseFailed SyncPhase = "Failed"
)

// RunStats are the statistics of one sync run.
// Field names of the stats collection are kept stable for existing dashboards.
type RunStats struct {
	RunID string    `json:"runId" bson:"runId"`
	Phase SyncPhase `json:"phase" bson:"phase"`

	// Message describes why a run failed
	Message string `json:"message,omitempty" bson:"message,omitempty"`

	// Version is the catalog-sync version that performed the run
	Version string `json:"version,omitempty" bson:"version,omitempty"`

	StartedAt time.Time `json:"startedAt" bson:"startedAt"`

	// Timestamp is the completion time in milliseconds since the epoch
	Timestamp int64 `json:"timestamp" bson:"timestamp"`

	// Packages is the number of catalog packages that took part in the run
	Packages int `json:"packages" bson:"packages"`

	Syncd          int      `json:"syncd" bson:"syncd"`
	Updated        int      `json:"updated" bson:"updated"`
	Inserted       int      `json:"inserted" bson:"inserted"`
	Removed        int      `json:"removed" bson:"removed"`
	Errors         int      `json:"errors" bson:"errors"`
	EnrichFailures int      `json:"enrichFailures" bson:"enrichFailures"`
	ErrLog         []string `json:"errLog" bson:"errLog"`

	CacheInvalidated bool `json:"cacheInvalidated" bson:"cacheInvalidated"`
}

// NewRunStats starts the statistics of a new run
func NewRunStats(now time.Time) *RunStats {
	return &RunStats{
		RunID:     uuid.NewString(),
		Phase:     SyncPhaseSyncing,
		StartedAt: now.UTC(),
		ErrLog:    []string{},
	}
}

// Changed returns the number of store mutations of the run
func (s *RunStats) Changed() int {
	return s.Inserted + s.Updated + s.Removed
}

// AddError counts a failed item and logs its message
func (s *RunStats) AddError(msg string) {
	s.Errors++
	s.ErrLog = append(s.ErrLog, msg)
}

// AddEnrichFailure logs an enrichment failure without counting the item as failed
func (s *RunStats) AddEnrichFailure(msg string) {
	s.EnrichFailures++
	s.ErrLog = append(s.ErrLog, msg)
}

// LogError appends a run-level message to the error log without counting a failed item
func (s *RunStats) LogError(msg string) {
	s.ErrLog = append(s.ErrLog, msg)
}

// Complete stamps the completion time and sets the final phase
func (s *RunStats) Complete(now time.Time) {
	s.Timestamp = now.UnixMilli()
	if s.Phase == SyncPhaseSyncing {
		s.Phase = SyncPhaseComplete
	}
}

// Fail marks the run as aborted
func (s *RunStats) Fail(now time.Time, msg string) {
	s.Phase = SyncPhaseFailed
	s.Message = msg
	s.Timestamp = now.UnixMilli()
}

// Duration returns the time between start and completion
func (s *RunStats) Duration() time.Duration {
	if s.Timestamp == 0 {
		return 0
	}
	return time.UnixMilli(s.Timestamp).Sub(s.StartedAt)
}

// Package domain defines the core persistence models for the application.
// This file holds the dispatch ledger and health marks.
package domain

import "time"

// Purpose distinguishes production earthquake alerts from drill/training
// notifications that share the same delivery path.
type Purpose string

// Dispatch purposes.
const (
	PurposeProduction Purpose = "production"
	PurposeTraining   Purpose = "training"
)

// DispatchRecord is the ledger of confirmed Slack sends. The unique index on
// (event_id, workspace_id, purpose) plus a check-before-send makes delivery
// at-most-once even when retried cron invocations race.
//
// NeedsReconcile is set when the Slack send succeeded but persisting the
// record initially failed; such rows must never trigger a re-send and are
// left for a manual reconciliation sweep.
type DispatchRecord struct {
	ID             string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	EventID        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_dispatch_event_ws_purpose,priority:1"`
	WorkspaceID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_dispatch_event_ws_purpose,priority:2"`
	Purpose        Purpose   `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_dispatch_event_ws_purpose,priority:3"`
	ChannelID      string    `gorm:"type:TEXT NOT NULL"`
	SlackMessageTS string    `gorm:"type:TEXT NOT NULL"`
	SentAt         time.Time `gorm:"type:DATETIME NOT NULL"`
	NeedsReconcile bool      `gorm:"type:BOOLEAN NOT NULL;default:false"`
}

// TableName implements the GORM tabler interface.
func (DispatchRecord) TableName() string { return "dispatch_records" }

// HealthSource names a pipeline driver whose liveness is tracked.
type HealthSource string

// Tracked pipeline drivers: the minutely cron trigger and the in-process
// fallback poller.
const (
	SourceCron   HealthSource = "cron"
	SourcePoller HealthSource = "batch"
)

// HealthMark stores the last successful run per source. One row per source,
// overwritten on every run; staleness classification is derived at read time
// from now - LastRunAt, never stored.
type HealthMark struct {
	Source    HealthSource `gorm:"type:TEXT NOT NULL;primaryKey"`
	LastRunAt time.Time    `gorm:"type:DATETIME NOT NULL"`
	Details   string       `gorm:"type:TEXT NOT NULL;default:''"`
}

// TableName implements the GORM tabler interface.
func (HealthMark) TableName() string { return "health_marks" }

// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Feed identifies which delivery channel produced a telegram.
type Feed string

// The two independent delivery channels. Both converge on the dedup log.
const (
	FeedREST      Feed = "rest"
	FeedWebSocket Feed = "websocket"
)

// TelegramDedup records one accepted (event, payload) combination, keyed by
// (event_id, payload_hash). It is the idempotent sink that lets the push and
// poll feeds run concurrently without double-processing: whichever channel
// inserts first wins, the other gets a unique violation and stops.
//
// Rows are created exactly once per accepted event, never mutated, and
// retained indefinitely.
type TelegramDedup struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	EventID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_dedup_event_hash,priority:1"`
	PayloadHash string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_dedup_event_hash,priority:2"`
	Source      Feed      `gorm:"type:TEXT NOT NULL"`
	FetchedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (TelegramDedup) TableName() string { return "telegram_dedup" }

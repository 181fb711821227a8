// Package domain defines the persistence models for earthquake events,
// workspaces, and notification conditions. These types are mapped with GORM
// and form the core data layer of the notification backend.
package domain

import (
	"time"
)

// InfoType classifies the earthquake telegram an event was normalized from.
type InfoType string

// Known telegram classifications. InfoTypeUnknown is kept for payloads whose
// head type is recognized but whose body does not identify itself.
const (
	InfoTypeForecast    InfoType = "forecast"     // VXSE51 震度速報
	InfoTypeSourceDepth InfoType = "source-depth" // VXSE52 震源に関する情報
	InfoTypeIntensity   InfoType = "intensity"    // VXSE53 震源・震度に関する情報
	InfoTypeForeign     InfoType = "foreign"      // VXSE56 遠地地震に関する情報
	InfoTypeUnknown     InfoType = "不明"
)

// EarthquakeEvent is one normalized earthquake information record.
//
// EventID is assigned by the provider and is NOT unique on its own: later
// telegrams for the same event (e.g. an intensity-detail report following a
// preliminary forecast) are stored as additional rows rather than updates,
// so richer revisions never silently overwrite earlier ones. Rows are
// immutable once persisted.
//
// Numeric fields that may be absent from a telegram (magnitude, depth,
// timestamps) are pointers; nil means "not reported", never zero.
type EarthquakeEvent struct {
	ID             string     `json:"id"              gorm:"type:char(36);primaryKey"`
	EventID        string     `json:"event_id"        gorm:"type:varchar(32);not null;index:idx_event_revisions"`
	InfoType       InfoType   `json:"info_type"       gorm:"type:varchar(16);not null"`
	Title          string     `json:"title"           gorm:"type:varchar(255);not null"`
	Epicenter      string     `json:"epicenter"       gorm:"type:varchar(255)"`
	Magnitude      *float64   `json:"magnitude,omitempty"`
	Depth          *float64   `json:"depth,omitempty"`
	MaxIntensity   *Intensity `json:"max_intensity,omitempty" gorm:"type:varchar(8)"`
	OccurrenceTime *time.Time `json:"occurrence_time,omitempty"`
	ArrivalTime    *time.Time `json:"arrival_time,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// Observations are cascade-deleted with their event.
	Observations []PrefectureObservation `json:"observations" gorm:"foreignKey:EarthquakeEventID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for EarthquakeEvent.
func (EarthquakeEvent) TableName() string { return "earthquake_events" }

// PrefectureObservation records the maximum intensity observed in one
// prefecture for one stored event record. A prefecture appears at most once
// per record (enforced by unique index).
type PrefectureObservation struct {
	ID                string    `json:"-"              gorm:"type:char(36);primaryKey"`
	EarthquakeEventID string    `json:"-"              gorm:"type:char(36);not null;index;uniqueIndex:ux_obs_event_pref,priority:1"`
	PrefectureName    string    `json:"prefecture"     gorm:"type:varchar(64);not null;uniqueIndex:ux_obs_event_pref,priority:2"`
	MaxIntensity      Intensity `json:"max_intensity"  gorm:"type:varchar(8);not null"`
}

// TableName returns the database table name for PrefectureObservation.
func (PrefectureObservation) TableName() string { return "prefecture_observations" }

// Workspace is a Slack workspace registered through the admin UI. The core
// reads it to obtain the encrypted bot token; all mutation happens in the
// admin layer, outside this repository's scope.
//
// EncryptedBotToken is AES-256-GCM ciphertext, base64-encoded, with the
// 12-byte nonce prepended. It is decrypted on demand per dispatch and the
// plaintext is never persisted or cached.
type Workspace struct {
	ID                string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name              string    `json:"name"       gorm:"type:varchar(255);not null"`
	TeamID            string    `json:"team_id"    gorm:"type:varchar(32);not null;uniqueIndex"`
	EncryptedBotToken string    `json:"-"          gorm:"type:text;not null"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for Workspace.
func (Workspace) TableName() string { return "workspaces" }

// NotificationCondition holds a workspace's dispatch criteria: the minimum
// intensity that triggers a notification and an optional prefecture
// allow-list. Exactly one condition exists per workspace (unique index).
//
// TargetPrefectures is stored as a JSON-encoded string array; an empty list
// means "all prefectures".
type NotificationCondition struct {
	ID                string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	WorkspaceID       string    `json:"workspace_id"       gorm:"type:char(36);not null;uniqueIndex:ux_condition_workspace"`
	MinIntensity      Intensity `json:"min_intensity"      gorm:"type:varchar(8);not null"`
	TargetPrefectures string    `json:"target_prefectures" gorm:"type:text;not null;default:'[]'"`
	ChannelID         string    `json:"channel_id"         gorm:"type:varchar(32);not null"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Workspace is the owning workspace. Conditions are cascade-deleted
	// if the workspace is removed.
	Workspace Workspace `json:"-" gorm:"foreignKey:WorkspaceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for NotificationCondition.
func (NotificationCondition) TableName() string { return "notification_conditions" }

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for normalized
// earthquake events and their prefecture observations.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving pipeline rules to the services package.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// CreateEvent persists a normalized event together with its prefecture
// observations in one transaction. Events are immutable once stored; callers
// must have passed the dedup log before inserting.
func CreateEvent(ctx context.Context, db *gorm.DB, ev *domain.EarthquakeEvent) error {
	ev.CreatedAt = time.Now().UTC()
	for i := range ev.Observations {
		ev.Observations[i].EarthquakeEventID = ev.ID
	}
	return db.WithContext(ctx).Create(ev).Error
}

// GetEvent fetches one stored event record (with observations) by primary
// key. Returns ErrNotFound if missing.
func GetEvent(ctx context.Context, db *gorm.DB, id string) (*domain.EarthquakeEvent, error) {
	var ev domain.EarthquakeEvent
	err := db.WithContext(ctx).Preload("Observations").First(&ev, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// CountEvents returns the total number of stored event records.
func CountEvents(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.EarthquakeEvent{}).Count(&n).Error
	return n, err
}

// ListEventsPage returns a page of stored events, newest first, with their
// observations preloaded.
func ListEventsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.EarthquakeEvent, error) {
	var out []domain.EarthquakeEvent
	err := db.WithContext(ctx).
		Preload("Observations").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// EventsStats returns aggregate metadata over stored events: the row count
// and the newest CreatedAt. Used by the HTTP layer for ETag generation on
// the event listing. When no events exist, count is 0 and maxCreatedAt nil.
func EventsStats(ctx context.Context, db *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.EarthquakeEvent{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

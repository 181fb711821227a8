// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores the per-source health marks consumed by
// the admin health endpoints.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// UpsertHealthMark records a successful run for source at the given time,
// replacing any previous mark for that source.
func UpsertHealthMark(ctx context.Context, db *gorm.DB, source domain.HealthSource, at time.Time, details string) error {
	mark := &domain.HealthMark{
		Source:    source,
		LastRunAt: at.UTC(),
		Details:   details,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		UpdateAll: true,
	}).Create(mark).Error
}

// GetHealthMark returns the last recorded run for source, or ErrNotFound if
// the source has never completed a run.
func GetHealthMark(ctx context.Context, db *gorm.DB, source domain.HealthSource) (*domain.HealthMark, error) {
	var mark domain.HealthMark
	err := db.WithContext(ctx).First(&mark, "source = ?", source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mark, nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the dispatch ledger: one row per confirmed
// Slack send, unique per (event_id, workspace_id, purpose).
//
// Error semantics:
//   - A duplicate insert relies on the database unique constraint and is
//     returned as ErrDuplicate; the dispatcher treats it as "already sent by
//     a concurrent run", not a failure.
//   - Other DB errors propagate raw.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// DispatchExists reports whether a dispatch record already exists for the
// (eventID, workspaceID, purpose) triple. The dispatcher checks this before
// sending; the unique constraint backs the check under races.
func DispatchExists(ctx context.Context, db *gorm.DB, eventID, workspaceID string, purpose domain.Purpose) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.DispatchRecord{}).
		Where("event_id = ? AND workspace_id = ? AND purpose = ?", eventID, workspaceID, purpose).
		Count(&n).Error
	return n > 0, err
}

// CreateDispatch inserts a ledger row after a confirmed Slack send and
// returns ErrDuplicate on unique violation.
func CreateDispatch(ctx context.Context, db *gorm.DB, rec *domain.DispatchRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListUnreconciled returns ledger rows flagged by the dispatcher after a
// send succeeded but the first persistence attempt failed. Consumed by the
// manual reconciliation sweep.
func ListUnreconciled(ctx context.Context, db *gorm.DB) ([]domain.DispatchRecord, error) {
	var out []domain.DispatchRecord
	err := db.WithContext(ctx).Where("needs_reconcile = ?", true).Find(&out).Error
	return out, err
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file reads workspaces and their notification
// conditions. Both are mutated only by the admin layer; the core treats them
// as read-only configuration.
package repo

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// ListConditions returns every notification condition with its workspace
// preloaded. Each workspace has at most one condition (unique index).
func ListConditions(ctx context.Context, db *gorm.DB) ([]domain.NotificationCondition, error) {
	var out []domain.NotificationCondition
	err := db.WithContext(ctx).Preload("Workspace").Find(&out).Error
	return out, err
}

// GetWorkspace fetches one workspace by ID, or ErrNotFound.
func GetWorkspace(ctx context.Context, db *gorm.DB, id string) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := db.WithContext(ctx).First(&ws, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// DecodePrefectures decodes the JSON-encoded prefecture allow-list stored on
// a condition. An empty or absent list means "all prefectures"; malformed
// JSON is treated the same way rather than silencing a workspace entirely.
func DecodePrefectures(c *domain.NotificationCondition) []string {
	if c.TargetPrefectures == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(c.TargetPrefectures), &out); err != nil {
		return nil
	}
	return out
}

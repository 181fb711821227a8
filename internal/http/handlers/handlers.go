// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the service contracts the handlers consume and the
// Handlers aggregate that the router wires up. Handlers are transport-thin:
// they validate input, call application services, and translate results into
// HTTP responses.
package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// PullRunner triggers one pass of the pull pipeline on behalf of a source.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PullRunner interface {
	RunPullPass(ctx context.Context, source domain.HealthSource) error
}

// EventLogger exposes the dedup-log contract: record a normalized event on
// behalf of a delivery source, reporting whether this call inserted it.
type EventLogger interface {
	LogEvent(ctx context.Context, ev *domain.EarthquakeEvent, source string) (bool, error)
}

// HealthReporter derives the staleness classification for a pipeline driver.
type HealthReporter interface {
	Status(ctx context.Context, source domain.HealthSource) (*services.HealthReport, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for pipeline triggering, event logging,
// health reporting, and event listing. It depends on abstract service
// interfaces to keep transport concerns separate from pipeline logic; the DB
// handle serves the read-only listing endpoints.
type Handlers struct {
	puller PullRunner
	logger EventLogger
	health HealthReporter
	db     *gorm.DB
}

// New constructs and returns a Handlers instance bound to the given services.
func New(puller PullRunner, logger EventLogger, health HealthReporter, db *gorm.DB) *Handlers {
	return &Handlers{puller: puller, logger: logger, health: health, db: db}
}

// Package services – HealthService
//
// Records last-successful-run marks per pipeline driver and derives the
// staleness classification the admin health endpoints expose. The
// classification is always computed at read time from now - lastRunAt;
// nothing derived is ever stored.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/repo"
)

// Health status labels returned to ops tooling.
const (
	StatusHealthy = "healthy"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Thresholds classify staleness for one source: healthy up to Healthy,
// warning up to Warning, error beyond.
type Thresholds struct {
	Healthy time.Duration
	Warning time.Duration
}

// Default thresholds per source. The poller gets slightly more headroom
// because its fixed-delay schedule drifts by the duration of each pass.
var (
	DefaultCronThresholds   = Thresholds{Healthy: 2 * time.Minute, Warning: 5 * time.Minute}
	DefaultPollerThresholds = Thresholds{Healthy: 90 * time.Second, Warning: 3 * time.Minute}
)

// HealthReport is the derived health state for one source.
type HealthReport struct {
	Status         string     `json:"status"`
	LastRunAt      *time.Time `json:"lastRunAt"`
	ElapsedMinutes float64    `json:"elapsedMinutes"`
	Message        string     `json:"message"`
}

// HealthService records and classifies pipeline liveness.
type HealthService struct {
	DB *gorm.DB
	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time

	Cron   Thresholds
	Poller Thresholds
}

// NewHealthService constructs a HealthService with default thresholds.
func NewHealthService(db *gorm.DB) *HealthService {
	return &HealthService{
		DB:     db,
		Now:    time.Now,
		Cron:   DefaultCronThresholds,
		Poller: DefaultPollerThresholds,
	}
}

// MarkRun records a successful pipeline pass for source.
func (s *HealthService) MarkRun(ctx context.Context, source domain.HealthSource, details string) error {
	return repo.UpsertHealthMark(ctx, s.DB, source, s.now(), details)
}

// Status derives the health report for source at read time. A source that
// has never completed a run reports error, not absence.
func (s *HealthService) Status(ctx context.Context, source domain.HealthSource) (*HealthReport, error) {
	var th Thresholds
	switch source {
	case domain.SourceCron:
		th = s.Cron
	case domain.SourcePoller:
		th = s.Poller
	default:
		return nil, ErrUnknownHealthSource
	}

	mark, err := repo.GetHealthMark(ctx, s.DB, source)
	if errors.Is(err, repo.ErrNotFound) {
		return &HealthReport{
			Status:  StatusError,
			Message: fmt.Sprintf("%s has never completed a run", source),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	elapsed := s.now().Sub(mark.LastRunAt)
	report := &HealthReport{
		LastRunAt:      &mark.LastRunAt,
		ElapsedMinutes: elapsed.Minutes(),
	}
	switch {
	case elapsed <= th.Healthy:
		report.Status = StatusHealthy
		report.Message = fmt.Sprintf("last run %.1f minutes ago", elapsed.Minutes())
	case elapsed <= th.Warning:
		report.Status = StatusWarning
		report.Message = fmt.Sprintf("no run for %.1f minutes", elapsed.Minutes())
	default:
		report.Status = StatusError
		report.Message = fmt.Sprintf("stalled: no run for %.1f minutes", elapsed.Minutes())
	}
	return report, nil
}

func (s *HealthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

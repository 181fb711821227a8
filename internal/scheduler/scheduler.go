// Package scheduler drives the two telegram feeds.
//
// The pull pipeline runs on a minutely cron schedule and, independently, on
// a short fixed-delay fallback loop that is active only while the push
// socket is not open. The push feed is consumed continuously from the
// socket's subscription channel. All three paths funnel into the same
// ingestion service; the dedup log makes their overlap harmless.
//
// Loops here never terminate on per-item or per-pass errors. A failed poll
// is logged and retried on the next tick; only context cancellation stops a
// loop.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hkawai/go-quake-backend/internal/dmdata"
	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/services"
)

// Defaults for the two cadences.
const (
	DefaultCronSpec         = "@every 1m"
	DefaultFallbackInterval = 2 * time.Second
)

// PushFeed is the part of the socket the scheduler consumes.
type PushFeed interface {
	Subscribe() <-chan dmdata.RawTelegramItem
	IsOpen() bool
}

// Scheduler owns the feed-driving loops. Construct with New, then Start.
type Scheduler struct {
	Socket PushFeed
	Client *dmdata.Client
	Ingest *services.IngestService
	Health *services.HealthService
	Log    zerolog.Logger

	CronSpec         string
	FallbackInterval time.Duration

	// pollMu serializes pull passes: the cron tick, the fallback loop and
	// the HTTP cron endpoint share one cursor and must not interleave.
	pollMu sync.Mutex
	cursor string

	cron *cron.Cron
}

// New wires a Scheduler with the default cadences.
func New(socket PushFeed, client *dmdata.Client, ingest *services.IngestService, health *services.HealthService, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Socket:           socket,
		Client:           client,
		Ingest:           ingest,
		Health:           health,
		Log:              log,
		CronSpec:         DefaultCronSpec,
		FallbackInterval: DefaultFallbackInterval,
	}
}

// Start launches the cron schedule, the push-feed consumer and the fallback
// poller. It returns once everything is running; the loops stop when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.CronSpec, func() {
		if err := s.RunPullPass(ctx, domain.SourceCron); err != nil {
			s.Log.Error().Err(err).Msg("scheduled pull pass failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: invalid cron spec %q: %w", s.CronSpec, err)
	}
	s.cron.Start()

	go s.consumePush(ctx)
	go s.fallbackLoop(ctx)
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
	return nil
}

// RunPullPass performs one poll of the REST feed, processes the returned
// batch, advances the cursor and records a health mark for source. Errors
// leave the cursor untouched so the next pass retries the same page.
func (s *Scheduler) RunPullPass(ctx context.Context, source domain.HealthSource) error {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	resp, err := s.Client.Poll(ctx, s.cursor)
	if err != nil {
		return fmt.Errorf("scheduler: poll: %w", err)
	}

	res := s.Ingest.ProcessBatch(ctx, resp.Items, domain.FeedREST)
	if resp.NextPooling != "" {
		s.cursor = resp.NextPooling
	}

	details := fmt.Sprintf("received=%d accepted=%d duplicate=%d failed=%d",
		res.Received, res.Accepted, res.Duplicates, res.Failed)
	if err := s.Health.MarkRun(ctx, source, details); err != nil {
		s.Log.Error().Err(err).Str("source", string(source)).Msg("health mark failed")
	}
	s.Log.Debug().Str("source", string(source)).Str("details", details).Msg("pull pass complete")
	return nil
}

// consumePush drains the socket's subscription channel until it closes.
func (s *Scheduler) consumePush(ctx context.Context) {
	for item := range s.Socket.Subscribe() {
		if _, err := s.Ingest.ProcessItem(ctx, item, domain.FeedWebSocket); err != nil {
			s.Log.Error().Err(err).Str("item_id", item.ID).Msg("push item processing failed")
		}
	}
	s.Log.Info().Msg("push feed closed")
}

// fallbackLoop polls on a fixed delay while the push socket is down. The
// delay runs between pass completions, not on a fixed rate, so slow passes
// never stack.
func (s *Scheduler) fallbackLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.FallbackInterval):
		}
		if s.Socket.IsOpen() {
			continue
		}
		if err := s.RunPullPass(ctx, domain.SourcePoller); err != nil {
			s.Log.Warn().Err(err).Msg("fallback pull pass failed")
		}
	}
}

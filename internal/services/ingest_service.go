// Package services – IngestService
//
// This file orchestrates the pipeline from a raw provider telegram to Slack
// fan-out: normalize, claim in the dedup log, persist, match conditions,
// dispatch. Both delivery channels (websocket push, REST pull) funnel every
// item through the same code path; the dedup log's unique constraint is the
// only serialization point between them.
//
// Per-item failures (decode errors, transient DB errors) are contained to
// the failing item: a batch always runs to completion and a feed loop never
// dies because one telegram was malformed.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/dmdata"
	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/normalizer"
	"github.com/hkawai/go-quake-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BatchResult summarizes one pass over a slice of telegrams.
type BatchResult struct {
	Received   int
	Accepted   int
	Duplicates int
	Filtered   int
	Failed     int
}

// IngestService drives telegrams through the full pipeline.
type IngestService struct {
	DB         *gorm.DB
	Normalizer *normalizer.Normalizer
	Dispatcher *DispatchService
	Log        zerolog.Logger
	// Purpose stamps every dispatch from this service; production unless
	// configured otherwise.
	Purpose domain.Purpose
}

// NewIngestService wires an IngestService for production dispatch.
func NewIngestService(db *gorm.DB, n *normalizer.Normalizer, d *DispatchService, log zerolog.Logger) *IngestService {
	return &IngestService{
		DB:         db,
		Normalizer: n,
		Dispatcher: d,
		Log:        log,
		Purpose:    domain.PurposeProduction,
	}
}

// ProcessItem runs one telegram through normalize, dedup, persist, match and
// dispatch. It returns true when this call accepted the event (i.e. inserted
// the dedup row); false for filtered types, duplicates and failures.
//
// Dispatch failures do not fail the item: the event was accepted and stored,
// and failed workspaces stay eligible for a later retry pass.
func (s *IngestService) ProcessItem(ctx context.Context, item dmdata.RawTelegramItem, source domain.Feed) (bool, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "ProcessItem",
		trace.WithAttributes(
			attribute.String("telegram.id", item.ID),
			attribute.String("telegram.type", item.Head.Type),
			attribute.String("feed.source", string(source)),
		),
	)
	defer span.End()

	telegramsReceived.WithLabelValues(string(source)).Inc()

	ev, err := s.Normalizer.Normalize(item)
	if err != nil {
		// Malformed body: drop this item only.
		var de *dmdata.DecodeError
		if errors.As(err, &de) {
			s.Log.Warn().Str("item_id", de.ItemID).Str("stage", de.Stage).
				Err(de.Err).Msg("telegram body undecodable, dropped")
		}
		return false, err
	}
	if ev == nil {
		// Telegram type outside the allow-list.
		return false, nil
	}

	inserted, err := s.acceptEvent(ctx, ev, source)
	if err != nil {
		return false, err
	}
	if !inserted {
		eventsDuplicate.WithLabelValues(string(source)).Inc()
		s.Log.Debug().Str("event_id", ev.EventID).Str("source", string(source)).
			Msg("event already accepted by the other feed")
		return false, nil
	}
	eventsAccepted.WithLabelValues(string(source)).Inc()

	conds, err := repo.ListConditions(ctx, s.DB)
	if err != nil {
		// The event is safely persisted; matching failed, nothing was sent.
		s.Log.Error().Err(err).Str("event_id", ev.EventID).
			Msg("condition listing failed, no dispatch for this event")
		return true, nil
	}
	matches := MatchConditions(ev, conds)
	if len(matches) == 0 {
		return true, nil
	}

	outcomes := s.Dispatcher.Dispatch(ctx, ev, matches, s.purpose())
	sent := 0
	for _, o := range outcomes {
		if o.Err == nil && !o.Skipped {
			sent++
		}
	}
	s.Log.Info().Str("event_id", ev.EventID).
		Int("matched", len(matches)).Int("sent", sent).
		Msg("event dispatched")
	return true, nil
}

// ProcessBatch runs every item through ProcessItem, isolating failures to
// the item that caused them, and returns the per-outcome tallies.
func (s *IngestService) ProcessBatch(ctx context.Context, items []dmdata.RawTelegramItem, source domain.Feed) BatchResult {
	res := BatchResult{Received: len(items)}
	for _, item := range items {
		accepted, err := s.ProcessItem(ctx, item, source)
		switch {
		case err != nil:
			res.Failed++
			s.Log.Error().Err(err).Str("item_id", item.ID).
				Str("source", string(source)).Msg("telegram processing failed")
		case accepted:
			res.Accepted++
		case s.Normalizer.Allowed(item.Head.Type):
			res.Duplicates++
		default:
			res.Filtered++
		}
	}
	return res
}

// LogEvent exposes the dedup-log contract directly: it validates and records
// a pre-normalized event on behalf of source, returning whether this call
// inserted it. The event is persisted inside the same transaction as the
// dedup claim, so inserted always implies stored.
func (s *IngestService) LogEvent(ctx context.Context, ev *domain.EarthquakeEvent, source string) (bool, error) {
	if ev == nil || ev.EventID == "" {
		return false, ErrInvalidEvent
	}
	feed := domain.Feed(source)
	if feed != domain.FeedREST && feed != domain.FeedWebSocket {
		return false, ErrInvalidSource
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	for i := range ev.Observations {
		if ev.Observations[i].ID == "" {
			ev.Observations[i].ID = uuid.NewString()
		}
	}
	return s.acceptEvent(ctx, ev, feed)
}

// acceptEvent claims (event, payload) in the dedup log and persists the
// event atomically. A duplicate claim rolls the transaction back without an
// error; any other failure rolls back both writes so a retried delivery can
// claim again.
func (s *IngestService) acceptEvent(ctx context.Context, ev *domain.EarthquakeEvent, source domain.Feed) (bool, error) {
	inserted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := repo.TryAccept(ctx, tx, ev, source)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := repo.CreateEvent(ctx, tx, ev); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (s *IngestService) purpose() domain.Purpose {
	if s.Purpose == "" {
		return domain.PurposeProduction
	}
	return s.Purpose
}

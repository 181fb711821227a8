// Package services – DispatchService
//
// This file implements the notification dispatcher: the fan-out from one
// accepted event to every matched workspace's Slack channel. The at-most-once
// guarantee rests on two mechanisms, in order: a check of the dispatch ledger
// before sending, and the ledger's (event_id, workspace_id, purpose) unique
// constraint catching whatever races slip past the check.
//
// Fan-out is per-workspace isolated: one workspace's revoked token or Slack
// outage must never block or roll back sends to the others.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// event and workspace identifiers.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/repo"
	"github.com/hkawai/go-quake-backend/internal/secrets"
	"github.com/hkawai/go-quake-backend/internal/slackx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DispatchOutcome reports the result for one matched workspace.
type DispatchOutcome struct {
	WorkspaceID string
	// Skipped is true when a dispatch record already existed (idempotent
	// no-op, not an error).
	Skipped bool
	// MessageTS is the Slack message timestamp for confirmed sends.
	MessageTS string
	// Err holds the per-workspace failure, if any. A failed workspace has
	// no ledger row and stays eligible for a future retry pass.
	Err error
}

// DispatchService sends formatted event notifications to matched workspaces.
type DispatchService struct {
	DB       *gorm.DB
	Notifier slackx.Notifier
	Key      secrets.Key
	Log      zerolog.Logger
}

// Dispatch fans the event out to every match under the given purpose and
// returns one outcome per match. It never returns early: a workspace failure
// is recorded in its outcome and the loop continues.
func (s *DispatchService) Dispatch(ctx context.Context, ev *domain.EarthquakeEvent, matches []Match, purpose domain.Purpose) []DispatchOutcome {
	tr := otel.Tracer("services/DispatchService")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("event.id", ev.EventID),
			attribute.Int("match.count", len(matches)),
		),
	)
	defer span.End()

	out := make([]DispatchOutcome, 0, len(matches))
	for _, m := range matches {
		out = append(out, s.dispatchOne(ctx, ev, m, purpose))
	}
	return out
}

func (s *DispatchService) dispatchOne(ctx context.Context, ev *domain.EarthquakeEvent, m Match, purpose domain.Purpose) DispatchOutcome {
	lg := s.Log.With().
		Str("event_id", ev.EventID).
		Str("workspace_id", m.WorkspaceID).
		Str("purpose", string(purpose)).
		Logger()

	// 1) Check-before-send. The unique constraint below still backs this
	// up under races; the check just avoids needless Slack calls.
	exists, err := repo.DispatchExists(ctx, s.DB, ev.EventID, m.WorkspaceID, purpose)
	if err != nil {
		return DispatchOutcome{WorkspaceID: m.WorkspaceID, Err: err}
	}
	if exists {
		dispatches.WithLabelValues(outcomeSkipped).Inc()
		lg.Debug().Msg("dispatch already recorded, skipping")
		return DispatchOutcome{WorkspaceID: m.WorkspaceID, Skipped: true}
	}

	// 2) Decrypt the bot token for exactly this call.
	ws, err := repo.GetWorkspace(ctx, s.DB, m.WorkspaceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			err = ErrWorkspaceNotFound
		}
		dispatches.WithLabelValues(outcomeFailed).Inc()
		return DispatchOutcome{WorkspaceID: m.WorkspaceID, Err: err}
	}
	token, err := secrets.Decrypt(s.Key, ws.EncryptedBotToken)
	if err != nil {
		// Fails closed: wrong key or tampered ciphertext means no send.
		dispatches.WithLabelValues(outcomeFailed).Inc()
		lg.Error().Err(err).Msg("bot token decryption failed")
		return DispatchOutcome{WorkspaceID: m.WorkspaceID, Err: err}
	}

	// 3) Send.
	msg := slackx.FormatEvent(ev, purpose)
	ts, err := s.Notifier.PostMessage(ctx, token, m.ChannelID, msg)
	if err != nil {
		dispatches.WithLabelValues(outcomeFailed).Inc()
		lg.Warn().Err(err).Str("channel_id", m.ChannelID).Msg("slack send failed")
		return DispatchOutcome{WorkspaceID: m.WorkspaceID, Err: err}
	}

	// 4) Record the confirmed send. A duplicate here means a concurrent
	// run won the race after our check; their row covers this send.
	rec := &domain.DispatchRecord{
		EventID:        ev.EventID,
		WorkspaceID:    m.WorkspaceID,
		Purpose:        purpose,
		ChannelID:      m.ChannelID,
		SlackMessageTS: ts,
		SentAt:         time.Now().UTC(),
	}
	if err := repo.CreateDispatch(ctx, s.DB, rec); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			dispatches.WithLabelValues(outcomeSent).Inc()
			return DispatchOutcome{WorkspaceID: m.WorkspaceID, MessageTS: ts}
		}
		// The message IS delivered; re-sending to fix bookkeeping would
		// duplicate it. Flag the row for manual reconciliation instead.
		rec.NeedsReconcile = true
		if err2 := repo.CreateDispatch(ctx, s.DB, rec); err2 != nil && !errors.Is(err2, repo.ErrDuplicate) {
			unrecordedSends.Inc()
			lg.Error().Err(err).
				Str("slack_ts", ts).
				Msg("sent but unrecorded: dispatch record could not be persisted")
		}
		dispatches.WithLabelValues(outcomeSent).Inc()
		return DispatchOutcome{WorkspaceID: m.WorkspaceID, MessageTS: ts}
	}

	dispatches.WithLabelValues(outcomeSent).Inc()
	lg.Info().Str("slack_ts", ts).Str("channel_id", m.ChannelID).Msg("notification sent")
	return DispatchOutcome{WorkspaceID: m.WorkspaceID, MessageTS: ts}
}

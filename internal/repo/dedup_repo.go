// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the dedup log: the content-hash–addressed
// append-only store that guarantees at-most-once acceptance of a given
// (event, payload) combination across both delivery feeds.
//
// Correctness note: acceptance is decided by the database unique constraint
// on (event_id, payload_hash), never by an in-memory set. Two pipeline runs
// (one fed by push, one by poll) may race on the same event from separate
// goroutines; the single insert-or-reject below is the only serialization
// point they need.
package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// hashEnvelope is the canonical form the payload hash is computed over.
// Field order is fixed by struct declaration, observations are sorted by
// prefecture name, so equal event content always yields equal bytes.
type hashEnvelope struct {
	EventID        string             `json:"eventId"`
	InfoType       domain.InfoType    `json:"infoType"`
	Title          string             `json:"title"`
	Epicenter      string             `json:"epicenter"`
	Magnitude      *float64           `json:"magnitude"`
	Depth          *float64           `json:"depth"`
	MaxIntensity   *domain.Intensity  `json:"maxIntensity"`
	OccurrenceTime *time.Time         `json:"occurrenceTime"`
	ArrivalTime    *time.Time         `json:"arrivalTime"`
	Observations   []hashObservation  `json:"observations"`
}

type hashObservation struct {
	Prefecture   string           `json:"prefecture"`
	MaxIntensity domain.Intensity `json:"maxIntensity"`
}

// PayloadHash returns the SHA-256 hex digest of the event's canonical JSON.
// The record's own UUID and timestamps are excluded: two telegrams with the
// same content hash identically no matter when or how they arrived.
func PayloadHash(ev *domain.EarthquakeEvent) string {
	env := hashEnvelope{
		EventID:        ev.EventID,
		InfoType:       ev.InfoType,
		Title:          ev.Title,
		Epicenter:      ev.Epicenter,
		Magnitude:      ev.Magnitude,
		Depth:          ev.Depth,
		MaxIntensity:   ev.MaxIntensity,
		OccurrenceTime: ev.OccurrenceTime,
		ArrivalTime:    ev.ArrivalTime,
	}
	for _, o := range ev.Observations {
		env.Observations = append(env.Observations, hashObservation{
			Prefecture:   o.PrefectureName,
			MaxIntensity: o.MaxIntensity,
		})
	}
	sort.Slice(env.Observations, func(i, j int) bool {
		return env.Observations[i].Prefecture < env.Observations[j].Prefecture
	})

	// Marshalling a fixed struct cannot fail.
	raw, _ := json.Marshal(env)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// TryAccept attempts to claim (event, payload) for processing on behalf of
// source. It returns (true, nil) when this call inserted the dedup record,
// (false, nil) when the combination was already accepted — the expected
// outcome when both feeds observe the same telegram — and (false, err) for
// any other persistence failure, which the caller retries as a whole item.
func TryAccept(ctx context.Context, db *gorm.DB, ev *domain.EarthquakeEvent, source domain.Feed) (bool, error) {
	rec := &domain.TelegramDedup{
		ID:          uuid.NewString(),
		EventID:     ev.EventID,
		PayloadHash: PayloadHash(ev),
		Source:      source,
		FetchedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

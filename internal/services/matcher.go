// Package services – condition matching.
//
// MatchConditions decides which workspaces receive a given event. It is a
// pure function: no hidden state, no persistence, same inputs always produce
// the same result set, so the pipeline can re-evaluate an event (e.g. after
// a retried cron run) without side effects.
package services

import (
	"github.com/hkawai/go-quake-backend/internal/domain"
	"github.com/hkawai/go-quake-backend/internal/repo"
)

// Match is one dispatch target produced by condition evaluation.
type Match struct {
	WorkspaceID string
	ChannelID   string
}

// MatchConditions evaluates an event against every workspace condition. A
// workspace is included iff the event's maximum intensity reaches the
// condition's minimum AND the prefecture allow-list is empty or intersects
// the event's observed prefectures.
//
// Events without an observed maximum intensity never match: a threshold
// cannot be satisfied by unknown data.
func MatchConditions(ev *domain.EarthquakeEvent, conds []domain.NotificationCondition) []Match {
	if ev == nil || ev.MaxIntensity == nil {
		return nil
	}

	observed := make(map[string]struct{}, len(ev.Observations))
	for _, o := range ev.Observations {
		observed[o.PrefectureName] = struct{}{}
	}

	var out []Match
	for i := range conds {
		c := &conds[i]
		if !ev.MaxIntensity.AtLeast(c.MinIntensity) {
			continue
		}
		if targets := repo.DecodePrefectures(c); len(targets) > 0 {
			hit := false
			for _, p := range targets {
				if _, ok := observed[p]; ok {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
		}
		out = append(out, Match{WorkspaceID: c.WorkspaceID, ChannelID: c.ChannelID})
	}
	return out
}

package services

import (
	"testing"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

func matchEvent(max domain.Intensity, prefs ...string) *domain.EarthquakeEvent {
	ev := &domain.EarthquakeEvent{
		EventID:      "20260828120000",
		MaxIntensity: intensityPtr(max),
	}
	for _, p := range prefs {
		ev.Observations = append(ev.Observations, domain.PrefectureObservation{
			PrefectureName: p,
			MaxIntensity:   max,
		})
	}
	return ev
}

func cond(ws, min, prefs, channel string) domain.NotificationCondition {
	return domain.NotificationCondition{
		WorkspaceID:       ws,
		MinIntensity:      domain.Intensity(min),
		TargetPrefectures: prefs,
		ChannelID:         channel,
	}
}

func TestMatchConditions_IntensityThreshold(t *testing.T) {
	conds := []domain.NotificationCondition{
		cond("ws-low", "3", "[]", "C1"),
		cond("ws-mid", "5-", "[]", "C2"),
		cond("ws-high", "6+", "[]", "C3"),
	}

	got := MatchConditions(matchEvent("5+", "東京都"), conds)
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2", len(got))
	}
	if got[0].WorkspaceID != "ws-low" || got[1].WorkspaceID != "ws-mid" {
		t.Fatalf("matched %v, want ws-low and ws-mid", got)
	}
}

func TestMatchConditions_PrefectureFilter(t *testing.T) {
	conds := []domain.NotificationCondition{
		cond("ws-tokyo", "1", `["東京都"]`, "C1"),
		cond("ws-osaka", "1", `["大阪府"]`, "C2"),
		cond("ws-any", "1", "[]", "C3"),
	}

	got := MatchConditions(matchEvent("4", "東京都", "神奈川県"), conds)
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2", len(got))
	}
	for _, m := range got {
		if m.WorkspaceID == "ws-osaka" {
			t.Fatal("ws-osaka matched without an observed prefecture")
		}
	}
}

func TestMatchConditions_UnknownIntensityNeverMatches(t *testing.T) {
	conds := []domain.NotificationCondition{cond("ws", "1", "[]", "C1")}

	ev := matchEvent("4", "東京都")
	ev.MaxIntensity = nil
	if got := MatchConditions(ev, conds); got != nil {
		t.Fatalf("matches = %v, want none for unknown intensity", got)
	}
	if got := MatchConditions(nil, conds); got != nil {
		t.Fatalf("matches = %v, want none for nil event", got)
	}
}

func TestMatchConditions_MalformedPrefectureListMeansAll(t *testing.T) {
	conds := []domain.NotificationCondition{cond("ws", "1", "{corrupt", "C1")}

	got := MatchConditions(matchEvent("4", "東京都"), conds)
	if len(got) != 1 {
		t.Fatalf("matches = %d, want 1 (malformed list must not silence the workspace)", len(got))
	}
}

func TestMatchConditions_Pure(t *testing.T) {
	conds := []domain.NotificationCondition{
		cond("ws-a", "3", `["千葉県"]`, "C1"),
		cond("ws-b", "5+", "[]", "C2"),
	}
	ev := matchEvent("5+", "千葉県")

	first := MatchConditions(ev, conds)
	second := MatchConditions(ev, conds)
	if len(first) != len(second) {
		t.Fatalf("re-evaluation differs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-evaluation differs at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

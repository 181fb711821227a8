// Package normalizer maps raw provider telegrams into the canonical
// EarthquakeEvent record. Only the four earthquake telegram codes are
// processed; every other head type is filtered (nil, nil), not an error.
//
// The provider's JSON mixes full-width and half-width characters and reports
// numeric values as strings that may be absent or non-numeric ("不明"). All
// text is width-folded before parsing, and absent numerics become nil
// pointers, never zero.
package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/width"

	"github.com/hkawai/go-quake-backend/internal/dmdata"
	"github.com/hkawai/go-quake-backend/internal/domain"
)

// DefaultAllowList maps the earthquake telegram codes to the info type their
// events are recorded under.
func DefaultAllowList() map[string]domain.InfoType {
	return map[string]domain.InfoType{
		"VXSE51": domain.InfoTypeForecast,
		"VXSE52": domain.InfoTypeSourceDepth,
		"VXSE53": domain.InfoTypeIntensity,
		"VXSE56": domain.InfoTypeForeign,
	}
}

// Normalizer converts raw telegram envelopes into EarthquakeEvent records.
type Normalizer struct {
	allowed map[string]domain.InfoType
}

// New constructs a Normalizer with the given head-type allow-list. A nil map
// falls back to DefaultAllowList.
func New(allowed map[string]domain.InfoType) *Normalizer {
	if allowed == nil {
		allowed = DefaultAllowList()
	}
	return &Normalizer{allowed: allowed}
}

// Allowed reports whether headType is on the allow-list.
func (n *Normalizer) Allowed(headType string) bool {
	_, ok := n.allowed[headType]
	return ok
}

// telegramBody is the decoded telegram payload. Every field is optional;
// partial telegrams (e.g. a forecast without a hypocenter) are normal.
type telegramBody struct {
	EventID string `json:"eventId"`
	Title   string `json:"title"`
	Body    struct {
		Earthquake struct {
			OriginTime  string `json:"originTime"`
			ArrivalTime string `json:"arrivalTime"`
			Hypocenter  struct {
				Name  string `json:"name"`
				Depth struct {
					Value string `json:"value"`
				} `json:"depth"`
			} `json:"hypocenter"`
			Magnitude struct {
				Value string `json:"value"`
			} `json:"magnitude"`
		} `json:"earthquake"`
		Intensity struct {
			MaxInt      string `json:"maxInt"`
			Prefectures []struct {
				Name   string `json:"name"`
				MaxInt string `json:"maxInt"`
			} `json:"prefectures"`
		} `json:"intensity"`
	} `json:"body"`
}

// Normalize converts one telegram. It returns (nil, nil) for head types
// outside the allow-list, a *dmdata.DecodeError for undecodable bodies, and
// a populated event otherwise.
func (n *Normalizer) Normalize(item dmdata.RawTelegramItem) (*domain.EarthquakeEvent, error) {
	infoType, ok := n.allowed[item.Head.Type]
	if !ok {
		return nil, nil
	}

	raw, err := dmdata.DecodeBody(item)
	if err != nil {
		return nil, err
	}

	var body telegramBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &dmdata.DecodeError{ItemID: item.ID, Stage: "json", Err: err}
	}

	ev := &domain.EarthquakeEvent{
		ID:             uuid.NewString(),
		EventID:        foldText(body.EventID),
		InfoType:       infoType,
		Title:          foldText(body.Title),
		Epicenter:      foldText(body.Body.Earthquake.Hypocenter.Name),
		Magnitude:      parseOptionalFloat(body.Body.Earthquake.Magnitude.Value),
		Depth:          parseOptionalFloat(body.Body.Earthquake.Hypocenter.Depth.Value),
		OccurrenceTime: parseOptionalTime(body.Body.Earthquake.OriginTime),
		ArrivalTime:    parseOptionalTime(body.Body.Earthquake.ArrivalTime),
	}

	if in := parseIntensity(body.Body.Intensity.MaxInt); in != nil {
		ev.MaxIntensity = in
	}

	seen := make(map[string]struct{}, len(body.Body.Intensity.Prefectures))
	for _, p := range body.Body.Intensity.Prefectures {
		name := foldText(p.Name)
		if name == "" {
			continue
		}
		// A prefecture appears at most once per event; the provider repeats
		// entries across report sections.
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		in := parseIntensity(p.MaxInt)
		if in == nil {
			continue
		}
		ev.Observations = append(ev.Observations, domain.PrefectureObservation{
			ID:             uuid.NewString(),
			PrefectureName: name,
			MaxIntensity:   *in,
		})
	}

	return ev, nil
}

// foldText narrows full-width ASCII variants and trims whitespace. Prefecture
// and epicenter names keep their Japanese text; only width variants fold.
func foldText(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}

// parseOptionalFloat parses a provider numeric string. Empty and non-numeric
// values (the provider reports "不明" for unknown) yield nil.
func parseOptionalFloat(s string) *float64 {
	s = foldText(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseOptionalTime parses the provider's ISO-8601 timestamps.
func parseOptionalTime(s string) *time.Time {
	s = foldText(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// parseIntensity keeps the JMA class verbatim when it is a known class and
// returns nil otherwise (absent or "不明").
func parseIntensity(s string) *domain.Intensity {
	in := domain.Intensity(foldText(s))
	if !in.Valid() {
		return nil
	}
	return &in
}

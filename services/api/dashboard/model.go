package dashboard

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// DateLayout is the ISO calendar date format used on every boundary.
const DateLayout = "2006-01-02"

var stationIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidStationID reports whether id is safe to pass to the store and the engine.
func ValidStationID(id string) bool {
	return stationIDPattern.MatchString(id)
}

// DateRange is an inclusive pair of calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange parses two ISO dates and checks from <= to.
func ParseDateRange(from, to string) (DateRange, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid start date %q", ErrInvalidRequest, from)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid end date %q", ErrInvalidRequest, to)
	}
	if f.After(t) {
		return DateRange{}, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidRequest, from, to)
	}
	return DateRange{From: f, To: t}, nil
}

// TrailingWeek returns the seven calendar days ending on now's date.
func TrailingWeek(now time.Time) DateRange {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{From: end.AddDate(0, 0, -6), To: end}
}

func (r DateRange) Start() string { return r.From.Format(DateLayout) }
func (r DateRange) End() string   { return r.To.Format(DateLayout) }

// String renders the range the way the error detail file expects it.
func (r DateRange) String() string {
	return r.Start() + " bis " + r.End()
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{r.Start(), r.End()})
}

// ValidationResults maps date -> parameter -> engine validation record.
type ValidationResults map[string]map[string]json.RawMessage

// ErroneousValue is one flagged measurement.
type ErroneousValue struct {
	Date       string     `json:"date"`
	MeasuredAt *time.Time `json:"measured_at,omitempty"`
	Parameter  string     `json:"parameter"`
	Value      *float64   `json:"value"`
	Flag       int        `json:"flag"`
	Reason     string     `json:"reason,omitempty"`
}

// Snapshot is the per-request payload handed to the engine.
type Snapshot struct {
	StationID        string
	Period           DateRange
	DailyValidation  ValidationResults
	ExtendedAnalyses json.RawMessage
	Summary          json.RawMessage
	ErroneousValues  []ErroneousValue
}

// HasData is true iff at least one dated validation record exists.
func (s Snapshot) HasData() bool {
	return len(s.DailyValidation) > 0
}

// Dates returns the validation dates in ascending order.
func (s Snapshot) Dates() []string {
	dates := make([]string, 0, len(s.DailyValidation))
	for d := range s.DailyValidation {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// NormalizePeriod narrows Period to the dates actually present. Keys that do
// not parse as dates are ignored.
func (s *Snapshot) NormalizePeriod() {
	var lo, hi time.Time
	for d := range s.DailyValidation {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if hi.IsZero() || t.After(hi) {
			hi = t
		}
	}
	if !lo.IsZero() {
		s.Period = DateRange{From: lo, To: hi}
	}
}

// StationConfig is the station row as stored, nullable fields included.
type StationConfig struct {
	Code            string          `json:"code"`
	Name            *string         `json:"name"`
	Municipality    *string         `json:"municipality"`
	LakeType        *string         `json:"lake_type"`
	MaxDepth        *float64        `json:"max_depth"`
	Lat             *float64        `json:"lat"`
	Lng             *float64        `json:"lng"`
	AgrarShare      *float64        `json:"agrar_share"`
	ForestShare     *float64        `json:"forest_share"`
	SettlementShare *float64        `json:"settlement_share"`
	ValidationRules json.RawMessage `json:"validation_rules,omitempty"`
}

// Registry defaults applied when the station row leaves a field empty.
const (
	DefaultStationName = "Unbekannt"
	DefaultLat         = 54.0
	DefaultLng         = 13.0
)

// Coordinates of a station in WGS84.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Catchment holds land-use percentages of the catchment area.
type Catchment struct {
	AgrarAnteil    float64 `json:"agrar_anteil"`
	WaldAnteil     float64 `json:"wald_anteil"`
	SiedlungAnteil float64 `json:"siedlung_anteil"`
}

// StationEntry is the record the engine keeps in its STATIONS registry.
type StationEntry struct {
	Name          string      `json:"name"`
	Gemeinde      string      `json:"gemeinde"`
	Typ           string      `json:"typ"`
	MaxTiefe      *float64    `json:"max_tiefe"`
	Koordinaten   Coordinates `json:"koordinaten"`
	Einzugsgebiet Catchment   `json:"einzugsgebiet"`
}

// RegistryEntry converts the stored row into the engine registry record.
func (c StationConfig) RegistryEntry() StationEntry {
	return StationEntry{
		Name:     stringOr(c.Name, DefaultStationName),
		Gemeinde: stringOr(c.Municipality, ""),
		Typ:      stringOr(c.LakeType, ""),
		MaxTiefe: c.MaxDepth,
		Koordinaten: Coordinates{
			Lat: floatOr(c.Lat, DefaultLat),
			Lng: floatOr(c.Lng, DefaultLng),
		},
		Einzugsgebiet: Catchment{
			AgrarAnteil:    floatOr(c.AgrarShare, 0),
			WaldAnteil:     floatOr(c.ForestShare, 0),
			SiedlungAnteil: floatOr(c.SettlementShare, 0),
		},
	}
}

// Request asks for one dashboard.
type Request struct {
	StationID string
	// Range is nil when the full available history is wanted.
	Range *DateRange
	// Flexible enables the time-range selector and the custom marker.
	Flexible bool
}

// Result is either a rendered dashboard or the no-data page.
type Result struct {
	HTML   string
	NoData bool
	Period DateRange
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

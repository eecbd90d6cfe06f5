package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/dashboard"
)

// StationAvailability describes a station that has validated data.
type StationAvailability struct {
	Code     string  `json:"code"`
	Name     *string `json:"name,omitempty"`
	MinDate  string  `json:"min_date"`
	MaxDate  string  `json:"max_date"`
	DayCount int     `json:"day_count"`
}

const stationsWithDataSQL = `
SELECT s.code, s.name, MIN(v.date), MAX(v.date), COUNT(DISTINCT v.date)
FROM gewaesser.stations s
JOIN gewaesser.daily_validation v ON v.station_code = s.code
GROUP BY s.code, s.name
ORDER BY s.code`

// StationsWithData lists stations with at least one validated day.
func (s *Store) StationsWithData(ctx context.Context) ([]StationAvailability, error) {
	rows, err := s.pool.Query(ctx, stationsWithDataSQL)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	out := []StationAvailability{}
	for rows.Next() {
		var (
			st          StationAvailability
			first, last time.Time
		)
		if err := rows.Scan(&st.Code, &st.Name, &first, &last, &st.DayCount); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		st.MinDate = first.Format(dashboard.DateLayout)
		st.MaxDate = last.Format(dashboard.DateLayout)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stations: %w", err)
	}
	return out, nil
}

const stationConfigSQL = `
SELECT code, name, municipality, lake_type, max_depth, lat, lng,
       agrar_share, forest_share, settlement_share, validation_rules
FROM gewaesser.stations
WHERE code = $1`

// FetchStationConfig loads the station row. Unknown stations yield
// dashboard.ErrDataUnavailable wrapping ErrNotFound.
func (s *Store) FetchStationConfig(ctx context.Context, stationID string) (dashboard.StationConfig, error) {
	var (
		cfg   dashboard.StationConfig
		rules []byte
	)
	err := s.pool.QueryRow(ctx, stationConfigSQL, stationID).Scan(
		&cfg.Code, &cfg.Name, &cfg.Municipality, &cfg.LakeType, &cfg.MaxDepth,
		&cfg.Lat, &cfg.Lng, &cfg.AgrarShare, &cfg.ForestShare, &cfg.SettlementShare, &rules,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return dashboard.StationConfig{}, fmt.Errorf("%w: station %s: %w", dashboard.ErrDataUnavailable, stationID, ErrNotFound)
	}
	if err != nil {
		return dashboard.StationConfig{}, fmt.Errorf("%w: station config: %w", dashboard.ErrQueryFailed, err)
	}
	if len(rules) > 0 {
		cfg.ValidationRules = json.RawMessage(rules)
	}
	return cfg, nil
}

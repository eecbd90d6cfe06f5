package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/dashboard"
)

const availableRangeSQL = `
SELECT MIN(date), MAX(date)
FROM gewaesser.daily_validation
WHERE station_code = $1`

// AvailableRange returns the first and last validated day of a station.
func (s *Store) AvailableRange(ctx context.Context, stationID string) (dashboard.DateRange, bool, error) {
	var from, to *time.Time
	if err := s.pool.QueryRow(ctx, availableRangeSQL, stationID).Scan(&from, &to); err != nil {
		return dashboard.DateRange{}, false, fmt.Errorf("%w: available range: %w", dashboard.ErrQueryFailed, err)
	}
	if from == nil || to == nil {
		return dashboard.DateRange{}, false, nil
	}
	return dashboard.DateRange{From: calendarDay(*from), To: calendarDay(*to)}, true, nil
}

const dailyValidationSQL = `
SELECT date, parameter, result
FROM gewaesser.daily_validation
WHERE station_code = $1 AND date BETWEEN $2 AND $3
ORDER BY date, parameter`

const erroneousValuesSQL = `
SELECT date, measured_at, parameter, value, flag, COALESCE(reason, '')
FROM gewaesser.erroneous_values
WHERE station_code = $1 AND date BETWEEN $2 AND $3
ORDER BY date, measured_at NULLS LAST, parameter`

// latest stored payload whose period overlaps the requested one
const extendedAnalysesSQL = `
SELECT payload
FROM gewaesser.extended_analyses
WHERE station_code = $1 AND period_start <= $3 AND period_end >= $2
ORDER BY created_at DESC
LIMIT 1`

const validationSummarySQL = `
SELECT payload
FROM gewaesser.validation_summaries
WHERE station_code = $1 AND period_start <= $3 AND period_end >= $2
ORDER BY created_at DESC
LIMIT 1`

// FetchSnapshot loads everything the engine needs for one station and range.
// The returned period is narrowed to the dates that actually carry data.
func (s *Store) FetchSnapshot(ctx context.Context, stationID string, r dashboard.DateRange) (dashboard.Snapshot, error) {
	snap := dashboard.Snapshot{StationID: stationID, Period: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		daily, err := s.dailyValidation(gctx, stationID, r)
		if err != nil {
			return fmt.Errorf("daily validation: %w", err)
		}
		snap.DailyValidation = daily
		return nil
	})
	g.Go(func() error {
		values, err := s.erroneousValues(gctx, stationID, r)
		if err != nil {
			return fmt.Errorf("erroneous values: %w", err)
		}
		snap.ErroneousValues = values
		return nil
	})
	g.Go(func() error {
		payload, err := s.latestPayload(gctx, extendedAnalysesSQL, stationID, r)
		if err != nil {
			return fmt.Errorf("extended analyses: %w", err)
		}
		snap.ExtendedAnalyses = payload
		return nil
	})
	g.Go(func() error {
		payload, err := s.latestPayload(gctx, validationSummarySQL, stationID, r)
		if err != nil {
			return fmt.Errorf("validation summary: %w", err)
		}
		snap.Summary = payload
		return nil
	})
	if err := g.Wait(); err != nil {
		return dashboard.Snapshot{}, fmt.Errorf("%w: %w", dashboard.ErrQueryFailed, err)
	}

	snap.NormalizePeriod()
	return snap, nil
}

func (s *Store) dailyValidation(ctx context.Context, stationID string, r dashboard.DateRange) (dashboard.ValidationResults, error) {
	rows, err := s.pool.Query(ctx, dailyValidationSQL, stationID, r.From, r.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := dashboard.ValidationResults{}
	for rows.Next() {
		var (
			date      time.Time
			parameter string
			result    []byte
		)
		if err := rows.Scan(&date, &parameter, &result); err != nil {
			return nil, err
		}
		key := date.Format(dashboard.DateLayout)
		if out[key] == nil {
			out[key] = map[string]json.RawMessage{}
		}
		out[key][parameter] = json.RawMessage(result)
	}
	return out, rows.Err()
}

func (s *Store) erroneousValues(ctx context.Context, stationID string, r dashboard.DateRange) ([]dashboard.ErroneousValue, error) {
	rows, err := s.pool.Query(ctx, erroneousValuesSQL, stationID, r.From, r.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []dashboard.ErroneousValue{}
	for rows.Next() {
		var (
			date time.Time
			v    dashboard.ErroneousValue
		)
		if err := rows.Scan(&date, &v.MeasuredAt, &v.Parameter, &v.Value, &v.Flag, &v.Reason); err != nil {
			return nil, err
		}
		v.Date = date.Format(dashboard.DateLayout)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) latestPayload(ctx context.Context, query, stationID string, r dashboard.DateRange) (json.RawMessage, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, query, stationID, r.From, r.To).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(payload), nil
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Package store persists aggregation tables and forecast series into SQLite
// for downstream dashboard consumers. It is strictly an output sink: the
// pipeline never reads from it, so re-running an operation always re-fetches
// from the remote service.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lehua/kilo/internal/forecast"
	"github.com/lehua/kilo/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveRecords upserts one aggregation table. Re-exporting the same (station,
// date) merges columns, so a rainfall export and a temperature export of the
// same window land in one row.
func (s *Store) SaveRecords(island string, rows []models.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO records (date, station_id, island, latitude, longitude, rainfall, max_temp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id, date) DO UPDATE SET
			island = excluded.island,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			rainfall = COALESCE(excluded.rainfall, records.rainfall),
			max_temp = COALESCE(excluded.max_temp, records.max_temp)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(
			row.Date.Format(time.DateOnly), row.StationID, island,
			row.Latitude, row.Longitude, row.Rainfall, row.MaxTemp,
		); err != nil {
			return fmt.Errorf("insert record %s/%s: %w", row.StationID, row.Date.Format(time.DateOnly), err)
		}
	}
	return tx.Commit()
}

// SaveForecast replaces any previously exported series for the station with
// the given result's actual and predicted points.
func (s *Store) SaveForecast(generatedAt time.Time, res *forecast.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM forecast_points WHERE station_id = ?`, res.StationID); err != nil {
		return fmt.Errorf("clear previous series: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO forecast_points (station_id, generated_at, kind, date, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	insert := func(kind string, series []models.SeriesPoint) error {
		for _, pt := range series {
			if _, err := stmt.Exec(res.StationID, generatedAt.UTC(), kind, pt.Date.Format(time.DateOnly), pt.Value); err != nil {
				return fmt.Errorf("insert %s point %s: %w", kind, pt.Date.Format(time.DateOnly), err)
			}
		}
		return nil
	}
	if err := insert("actual", res.Actual); err != nil {
		return err
	}
	if err := insert("predicted", res.Predicted); err != nil {
		return err
	}
	return tx.Commit()
}

// GetRecords returns exported rows for an island ordered by date then
// station, for verification and ad-hoc inspection.
func (s *Store) GetRecords(island string) ([]models.Record, error) {
	rows, err := s.db.Query(`
		SELECT date, station_id, latitude, longitude, rainfall, max_temp
		FROM records WHERE island = ?
		ORDER BY date, station_id
	`, island)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var rec models.Record
		var date string
		var rain, temp sql.NullFloat64
		if err := rows.Scan(&date, &rec.StationID, &rec.Latitude, &rec.Longitude, &rain, &temp); err != nil {
			return nil, err
		}
		rec.Date, err = time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		if rain.Valid {
			v := rain.Float64
			rec.Rainfall = &v
		}
		if temp.Valid {
			v := temp.Float64
			rec.MaxTemp = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetForecastSeries returns one exported series for a station in date order.
func (s *Store) GetForecastSeries(stationID, kind string) ([]models.SeriesPoint, error) {
	rows, err := s.db.Query(`
		SELECT date, value FROM forecast_points
		WHERE station_id = ? AND kind = ?
		ORDER BY date
	`, stationID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SeriesPoint
	for rows.Next() {
		var date string
		var pt models.SeriesPoint
		if err := rows.Scan(&date, &pt.Value); err != nil {
			return nil, err
		}
		pt.Date, err = time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

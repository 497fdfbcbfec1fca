// Package forecast trains a short-horizon rainfall model for a location's
// nearest station and predicts daily rainfall across a target month.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lehua/kilo/internal/dates"
	"github.com/lehua/kilo/internal/hcdp"
	"github.com/lehua/kilo/internal/metrics"
	"github.com/lehua/kilo/internal/models"
	"github.com/lehua/kilo/internal/stations"
)

// ErrInsufficientTrainingData is returned before any model fit when the
// training window holds no usable observations.
var ErrInsufficientTrainingData = errors.New("forecast: no usable training observations")

// Config pins the engine's reference clock and model parameters. The
// pipeline operates against a fixed anchor date rather than the wall clock;
// making the anchor injectable keeps tests deterministic and leaves the door
// open to real-time operation.
type Config struct {
	// ForecastStart is the first predicted day regardless of target month.
	ForecastStart time.Time
	// ActualsStart anchors the recent-history window fetched for
	// comparison alongside the prediction.
	ActualsStart time.Time
	// TrainMonths is the lookback of the training window ending the day
	// before ForecastStart.
	TrainMonths int
	Trees       int
	Seed        int64
	// ClampNegative zeroes negative rainfall predictions. The model can
	// emit small negative values outside the training distribution; by
	// default they are surfaced as-is.
	ClampNegative bool
}

// DefaultConfig returns the pipeline's operational anchor configuration.
func DefaultConfig() Config {
	return Config{
		ForecastStart: time.Date(2025, time.April, 4, 0, 0, 0, 0, time.UTC),
		ActualsStart:  time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC),
		TrainMonths:   36,
		Trees:         100,
		Seed:          42,
	}
}

// Result carries the two aligned series consumers plot against each other.
type Result struct {
	StationID string               `json:"station_id"`
	Actual    []models.SeriesPoint `json:"actual"`
	Predicted []models.SeriesPoint `json:"predicted"`
}

// Engine retrains from scratch on every Forecast call; no model state is
// kept between invocations.
type Engine struct {
	client *hcdp.Client
	cfg    Config
}

func NewEngine(client *hcdp.Client, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ForecastStart.IsZero() {
		cfg.ForecastStart = def.ForecastStart
	}
	if cfg.ActualsStart.IsZero() {
		cfg.ActualsStart = def.ActualsStart
	}
	if cfg.TrainMonths == 0 {
		cfg.TrainMonths = def.TrainMonths
	}
	if cfg.Trees == 0 {
		cfg.Trees = def.Trees
	}
	return &Engine{client: client, cfg: cfg}
}

// Forecast resolves the target month, trains on daily rainfall at the
// station nearest (lat, lon), and returns the actual and predicted series.
// The predicted series has exactly one point per calendar day from the
// configured forecast start through the last day of the target month.
func (e *Engine) Forecast(ctx context.Context, monthToken string, lat, lon float64) (*Result, error) {
	if len(monthToken) != 7 {
		return nil, fmt.Errorf("%w: %q (forecast takes MM/YYYY)", dates.ErrInvalidFormat, monthToken)
	}
	month, err := dates.Resolve(monthToken)
	if err != nil {
		return nil, err
	}

	forecastStart := e.cfg.ForecastStart
	forecastEnd := month.End
	trainStart := forecastStart.AddDate(0, -e.cfg.TrainMonths, 0)
	trainEnd := forecastStart.AddDate(0, 0, -1)

	index, err := stations.BuildIndex(ctx, e.client)
	if err != nil {
		return nil, err
	}
	stationID, err := index.Nearest(lat, lon)
	if err != nil {
		return nil, err
	}

	training, err := e.fetchRainfall(ctx, stationID, trainStart, trainEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch training data: %w", err)
	}
	features, targets := calendarSamples(training)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: station %s, %s to %s", ErrInsufficientTrainingData,
			stationID, trainStart.Format(time.DateOnly), trainEnd.Format(time.DateOnly))
	}

	model := FitForest(features, targets, e.cfg.Trees, e.cfg.Seed)

	horizon := dates.Range{Start: forecastStart, End: forecastEnd}
	var predicted []models.SeriesPoint
	for _, day := range horizon.Days() {
		v := model.Predict(calendarFeatures(day))
		if e.cfg.ClampNegative && v < 0 {
			v = 0
		}
		predicted = append(predicted, models.SeriesPoint{Date: day, Value: v})
	}

	recent, err := e.fetchRainfall(ctx, stationID, e.cfg.ActualsStart, forecastEnd)
	if err != nil {
		return nil, fmt.Errorf("fetch actuals: %w", err)
	}
	actual := observedSeries(recent)

	metrics.ForecastsGenerated.Inc()
	return &Result{StationID: stationID, Actual: actual, Predicted: predicted}, nil
}

func (e *Engine) fetchRainfall(ctx context.Context, stationID string, start, end time.Time) ([]hcdp.Record, error) {
	filter := hcdp.NewFilter().
		Eq("station_id", stationID).
		Eq("datatype", "rainfall").
		Eq("production", "new").
		Eq("period", "day").
		Eq("fill", "partial").
		Between("date", start, end)
	return e.client.Query(ctx, hcdp.CollectionStationValue, filter)
}

// calendarSamples extracts (day, month, year) feature rows and rainfall
// targets from raw observations, dropping rows without a parsable date or
// value. Rows are ordered by date so the seeded bootstrap sees the same
// sample regardless of response ordering.
func calendarSamples(records []hcdp.Record) ([][]float64, []float64) {
	rows := observedSeries(records)
	features := make([][]float64, 0, len(rows))
	targets := make([]float64, 0, len(rows))
	for _, row := range rows {
		features = append(features, calendarFeatures(row.Date))
		targets = append(targets, row.Value)
	}
	return features, targets
}

func calendarFeatures(day time.Time) []float64 {
	return []float64{float64(day.Day()), float64(int(day.Month())), float64(day.Year())}
}

func observedSeries(records []hcdp.Record) []models.SeriesPoint {
	var series []models.SeriesPoint
	for _, rec := range records {
		day, err := time.Parse(time.DateOnly, rec.Str("date"))
		if err != nil {
			continue
		}
		value, err := rec.Float("value")
		if err != nil {
			continue
		}
		series = append(series, models.SeriesPoint{Date: day, Value: value})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

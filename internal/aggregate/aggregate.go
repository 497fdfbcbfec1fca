// Package aggregate turns per-date station observations into a flat,
// island-scoped table of daily records.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lehua/kilo/internal/dates"
	"github.com/lehua/kilo/internal/geo"
	"github.com/lehua/kilo/internal/hcdp"
	"github.com/lehua/kilo/internal/metrics"
	"github.com/lehua/kilo/internal/models"
	"github.com/lehua/kilo/internal/stations"
)

// Variable selects which observed quantity to aggregate.
type Variable string

const (
	Rainfall    Variable = "rainfall"
	Temperature Variable = "temperature"
)

var ErrUnknownVariable = errors.New("aggregate: unknown variable")

// combinedOrder is the island sequence of the combined all-islands view.
// Niihau and Kahoolawe are uninhabited and excluded from it.
var combinedOrder = []string{"Oahu", "Kauai", "Molokai", "Lānai", "Maui", "Hawaii (Big Island)"}

const defaultWorkers = 4

// Aggregator owns one pipeline invocation at a time. Each Aggregate call
// re-fetches metadata and observations; no state crosses invocations, so an
// Aggregator is safe to share.
type Aggregator struct {
	client  *hcdp.Client
	workers int
}

func New(client *hcdp.Client) *Aggregator {
	return &Aggregator{client: client, workers: defaultWorkers}
}

// Aggregate produces one record per (station, date) for every day of the
// range, keeping only stations whose coordinates classify into the requested
// island. Per-date fetches fan out over a bounded worker pool; rows come
// back grouped by date in range order, sorted by station id within a date.
// Any date's failure fails the whole aggregation, with all failures
// aggregated rather than only the first.
func (a *Aggregator) Aggregate(ctx context.Context, rng dates.Range, island string, variable Variable) ([]models.Record, error) {
	canonical, err := geo.Match(island)
	if err != nil {
		return nil, err
	}
	if variable != Rainfall && variable != Temperature {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, variable)
	}

	index, err := stations.BuildIndex(ctx, a.client)
	if err != nil {
		return nil, err
	}

	days := rng.Days()
	perDay := make([][]models.Record, len(days))
	errs := make([]error, len(days))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.workers)
	for i, day := range days {
		wg.Add(1)
		go func(i int, day time.Time) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			perDay[i], errs[i] = a.fetchDay(ctx, index, day, canonical, variable)
		}(i, day)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var table []models.Record
	for _, rows := range perDay {
		table = append(table, rows...)
	}
	metrics.RecordsAggregated.WithLabelValues(canonical).Add(float64(len(table)))
	return table, nil
}

// AggregateAll aggregates the six inhabited islands and concatenates the
// tables in the combined-view order.
func (a *Aggregator) AggregateAll(ctx context.Context, rng dates.Range, variable Variable) ([]models.Record, error) {
	var table []models.Record
	for _, island := range combinedOrder {
		rows, err := a.Aggregate(ctx, rng, island, variable)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", island, err)
		}
		table = append(table, rows...)
	}
	return table, nil
}

func (a *Aggregator) fetchDay(ctx context.Context, index *stations.Index, day time.Time, island string, variable Variable) ([]models.Record, error) {
	filter := hcdp.NewFilter().
		Eq("period", "day").
		Eq("date", day.Format(time.DateOnly))
	switch variable {
	case Rainfall:
		filter.Eq("datatype", "rainfall").Eq("production", "new")
	case Temperature:
		filter.Eq("datatype", "temperature").Eq("aggregation", "max")
	}

	observations, err := a.client.Query(ctx, hcdp.CollectionStationValue, filter)
	if err != nil {
		return nil, fmt.Errorf("observations for %s: %w", day.Format(time.DateOnly), err)
	}

	byStation := make(map[string]*models.Record)
	for _, obs := range observations {
		sid := obs.Str("station_id")
		if sid == "" {
			continue
		}
		st, ok := index.Get(sid)
		if !ok || !st.HasCoords {
			continue
		}
		// Membership is decided by geometry alone, never by identifier.
		if geo.Classify(st.Latitude, st.Longitude) != island {
			continue
		}
		// Absent readings are dropped, never defaulted to zero.
		value, err := obs.Float("value")
		if err != nil {
			continue
		}

		row := byStation[sid]
		if row == nil {
			row = &models.Record{
				Date:      day,
				StationID: sid,
				Latitude:  st.Latitude,
				Longitude: st.Longitude,
			}
			byStation[sid] = row
		}
		switch variable {
		case Rainfall:
			v := value
			row.Rainfall = &v
		case Temperature:
			v := value
			row.MaxTemp = &v
		}
	}

	rows := make([]models.Record, 0, len(byStation))
	for _, row := range byStation {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StationID < rows[j].StationID })
	return rows, nil
}

// Package stations builds the in-memory station metadata index used for
// coordinate joins and nearest-station lookup.
package stations

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lehua/kilo/internal/hcdp"
)

// ErrNoStation is returned when a spatial lookup has no usable candidate.
var ErrNoStation = errors.New("stations: no station found")

// Station is one mesonet station's metadata. HasCoords is false when the
// declared coordinates were missing or unparsable; such stations stay in the
// index for attribute lookups but are skipped by spatial queries.
type Station struct {
	ID        string
	Latitude  float64
	Longitude float64
	HasCoords bool
	Attrs     hcdp.Record
}

// Index maps station identifier to metadata. It is built once per pipeline
// invocation and immutable afterwards.
type Index struct {
	byID map[string]Station
}

// BuildIndex fetches the station metadata collection and keys each record by
// the identifier field the record itself declares via id_field. Records
// without a resolvable identifier are skipped.
func BuildIndex(ctx context.Context, client *hcdp.Client) (*Index, error) {
	records, err := client.Query(ctx, hcdp.CollectionStationMetadata, hcdp.NewFilter())
	if err != nil {
		return nil, fmt.Errorf("fetch station metadata: %w", err)
	}

	byID := make(map[string]Station, len(records))
	for _, rec := range records {
		idField := rec.Str("id_field")
		if idField == "" {
			continue
		}
		id := rec.Str(idField)
		if id == "" {
			continue
		}

		st := Station{ID: id, Attrs: rec}
		lat, latErr := rec.Float("lat")
		lon, lonErr := rec.Float("lng")
		if latErr == nil && lonErr == nil {
			st.Latitude = lat
			st.Longitude = lon
			st.HasCoords = true
		}
		byID[id] = st
	}
	return &Index{byID: byID}, nil
}

// NewIndex builds an index from already-resolved stations.
func NewIndex(list []Station) *Index {
	byID := make(map[string]Station, len(list))
	for _, st := range list {
		byID[st.ID] = st
	}
	return &Index{byID: byID}
}

// Get returns the station with the given identifier.
func (ix *Index) Get(id string) (Station, bool) {
	st, ok := ix.byID[id]
	return st, ok
}

// Len returns the number of indexed stations.
func (ix *Index) Len() int {
	return len(ix.byID)
}

// Nearest returns the identifier of the station closest to the query point
// by planar Euclidean distance over (lon, lat). The metric is deliberately
// planar, not geodesic: at island scale the approximation error is
// negligible and the choice affects which station wins on region
// boundaries, so it must stay stable. The scan is O(n) over the index;
// station counts are in the low thousands, so no spatial index is kept.
func (ix *Index) Nearest(lat, lon float64) (string, error) {
	best := ""
	bestDist := math.Inf(1)
	for id, st := range ix.byID {
		if !st.HasCoords {
			continue
		}
		dx := st.Longitude - lon
		dy := st.Latitude - lat
		d := dx*dx + dy*dy
		if d < bestDist || (d == bestDist && id < best) {
			best = id
			bestDist = d
		}
	}
	if best == "" {
		return "", ErrNoStation
	}
	return best, nil
}

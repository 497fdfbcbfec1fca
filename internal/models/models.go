package models

import "time"

// Record is one station's consolidated readings for a single calendar day,
// the row shape consumed by downstream table and map layers. Rainfall and
// MaxTemp are nil when the station reported no value for that variable; a
// missing reading is never materialized as zero.
type Record struct {
	Date      time.Time
	StationID string
	Latitude  float64
	Longitude float64
	Rainfall  *float64
	MaxTemp   *float64
}

// SeriesPoint is one dated value in an actual or predicted rainfall series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

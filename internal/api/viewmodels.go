package api

import (
	"github.com/lehua/kilo/internal/geo"
	"github.com/lehua/kilo/internal/models"
)

// modelRecord is the wire shape of one aggregated row, matching the column
// names the chart layer expects.
type modelRecord struct {
	Time     string   `json:"Time"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Rainfall *float64 `json:"rainfall,omitempty"`
	MaxTemp  *float64 `json:"max-temp,omitempty"`
}

func recordsView(table []models.Record) []modelRecord {
	rows := make([]modelRecord, 0, len(table))
	for _, rec := range table {
		rows = append(rows, modelRecord{
			Time:     rec.Date.Format("01/02/2006"),
			Lat:      rec.Latitude,
			Lon:      rec.Longitude,
			Rainfall: rec.Rainfall,
			MaxTemp:  rec.MaxTemp,
		})
	}
	return rows
}

type islandView struct {
	Name   string        `json:"name"`
	Center geo.MapCenter `json:"center"`
}

type islandsResponse struct {
	Islands []islandView  `json:"islands"`
	All     geo.MapCenter `json:"all"`
}

func islandsView() islandsResponse {
	resp := islandsResponse{All: geo.AllIslandsCenter}
	for _, isl := range geo.Islands {
		resp.Islands = append(resp.Islands, islandView{Name: isl.Name, Center: isl.Center})
	}
	return resp
}

package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehua/kilo/internal/aggregate"
	"github.com/lehua/kilo/internal/api"
	"github.com/lehua/kilo/internal/forecast"
	"github.com/lehua/kilo/internal/hcdp"
)

// newTestServer wires a Server against a minimal fake portal with one Oahu
// station reporting rainfall on 2024-01-01.
func newTestServer(t *testing.T) *api.Server {
	t.Helper()
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q map[string]any
		if err := json.Unmarshal([]byte(r.URL.Query().Get("q")), &q); err != nil {
			http.Error(w, "bad q", http.StatusBadRequest)
			return
		}
		switch q["name"] {
		case hcdp.CollectionStationMetadata:
			fmt.Fprint(w, `{"result": [{"value": {"id_field": "skn", "skn": "oahu.1", "lat": "21.31", "lng": "-157.86"}}]}`)
		case hcdp.CollectionStationValue:
			if date, _ := q["value.date"].(string); date == "2024-01-01" {
				fmt.Fprint(w, `{"result": [{"value": {"station_id": "oahu.1", "value": "0.75"}}]}`)
				return
			}
			// Range queries (forecast training/actuals) return nothing.
			fmt.Fprint(w, `{"result": []}`)
		default:
			http.Error(w, "unknown collection", http.StatusBadRequest)
		}
	}))
	t.Cleanup(portal.Close)

	client, err := hcdp.NewClient("t", portal.URL)
	if err != nil {
		t.Fatal(err)
	}
	agg := aggregate.New(client)
	engine := forecast.NewEngine(client, forecast.Config{Trees: 5})
	return api.NewServer(agg, engine, "8080")
}

func get(t *testing.T, srv *api.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	w := get(t, newTestServer(t), "/health")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status"`) {
		t.Error("expected status field in JSON response")
	}
}

func TestIslandsEndpoint(t *testing.T) {
	w := get(t, newTestServer(t), "/api/islands")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Islands []struct {
			Name   string `json:"name"`
			Center struct {
				Lat  float64 `json:"lat"`
				Lon  float64 `json:"lon"`
				Zoom float64 `json:"zoom"`
			} `json:"center"`
		} `json:"islands"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Islands) != 8 {
		t.Fatalf("len(islands) = %d, want 8", len(resp.Islands))
	}
	if resp.Islands[0].Name != "Hawaii (Big Island)" {
		t.Errorf("first island = %q", resp.Islands[0].Name)
	}
}

func TestAggregateEndpoint(t *testing.T) {
	w := get(t, newTestServer(t), "/api/aggregate?date=01/01/2024&island=Oahu")
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rows []struct {
		Time     string   `json:"Time"`
		Lat      float64  `json:"lat"`
		Lon      float64  `json:"lon"`
		Rainfall *float64 `json:"rainfall"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].Time != "01/01/2024" {
		t.Errorf("Time = %q, want 01/01/2024", rows[0].Time)
	}
	if rows[0].Rainfall == nil || *rows[0].Rainfall != 0.75 {
		t.Errorf("rainfall = %v, want 0.75", rows[0].Rainfall)
	}
}

func TestAggregateEndpointErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		path string
		code int
	}{
		{"missing params", "/api/aggregate", http.StatusBadRequest},
		{"bad date", "/api/aggregate?date=2024-01-01&island=Oahu", http.StatusBadRequest},
		{"unknown island", "/api/aggregate?date=01/01/2024&island=Tahiti", http.StatusBadRequest},
		{"unknown variable", "/api/aggregate?date=01/01/2024&island=Oahu&variable=humidity", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := get(t, srv, tt.path); w.Code != tt.code {
				t.Errorf("%s: got %d, want %d", tt.path, w.Code, tt.code)
			}
		})
	}
}

func TestForecastEndpointInsufficientData(t *testing.T) {
	// The fake portal serves no historical rainfall, so training data is
	// empty and the engine must refuse before fitting.
	w := get(t, newTestServer(t), "/api/forecast?month=04/2025&lat=21.3&lon=-157.8")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestForecastEndpointBadParams(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{
		"/api/forecast",
		"/api/forecast?month=04/2025",
		"/api/forecast?month=04/2025&lat=x&lon=-157.8",
	} {
		if w := get(t, srv, path); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", path, w.Code)
		}
	}
}

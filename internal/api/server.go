// Package api exposes the aggregation and forecasting pipeline over HTTP
// for chart and map consumers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lehua/kilo/internal/aggregate"
	"github.com/lehua/kilo/internal/dates"
	"github.com/lehua/kilo/internal/forecast"
	"github.com/lehua/kilo/internal/geo"
	"github.com/lehua/kilo/internal/hcdp"
	"github.com/lehua/kilo/internal/stations"
)

type Server struct {
	agg    *aggregate.Aggregator
	engine *forecast.Engine
	port   string
}

func NewServer(agg *aggregate.Aggregator, engine *forecast.Engine, port string) *Server {
	return &Server{agg: agg, engine: engine, port: port}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/islands", s.handleIslands)
	mux.HandleFunc("/api/aggregate", s.handleAggregate)
	mux.HandleFunc("/api/forecast", s.handleForecast)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleIslands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, islandsView())
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	island := r.URL.Query().Get("island")
	variable := r.URL.Query().Get("variable")
	if variable == "" {
		variable = string(aggregate.Rainfall)
	}
	if date == "" || island == "" {
		http.Error(w, "date and island parameters required", http.StatusBadRequest)
		return
	}

	rng, err := dates.Resolve(date)
	if err != nil {
		writeError(w, err)
		return
	}

	var rows []modelRecord
	if island == "all" {
		table, err := s.agg.AggregateAll(r.Context(), rng, aggregate.Variable(variable))
		if err != nil {
			writeError(w, err)
			return
		}
		rows = recordsView(table)
	} else {
		table, err := s.agg.Aggregate(r.Context(), rng, island, aggregate.Variable(variable))
		if err != nil {
			writeError(w, err)
			return
		}
		rows = recordsView(table)
	}
	writeJSON(w, rows)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if month == "" || latErr != nil || lonErr != nil {
		http.Error(w, "month, lat and lon parameters required", http.StatusBadRequest)
		return
	}

	res, err := s.engine.Forecast(r.Context(), month, lat, lon)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps the pipeline's error taxonomy onto HTTP statuses:
// caller-correctable input gets 400, spatial misses 404, unusable training
// data 422, and upstream service failures 502.
func writeError(w http.ResponseWriter, err error) {
	var statusErr *hcdp.StatusError
	switch {
	case errors.Is(err, dates.ErrInvalidFormat),
		errors.Is(err, geo.ErrUnknownIsland),
		errors.Is(err, aggregate.ErrUnknownVariable):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, stations.ErrNoStation):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, forecast.ErrInsufficientTrainingData):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &statusErr), errors.Is(err, hcdp.ErrMalformedResponse):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lehua/kilo/internal/aggregate"
	"github.com/lehua/kilo/internal/api"
	"github.com/lehua/kilo/internal/dates"
	"github.com/lehua/kilo/internal/forecast"
	"github.com/lehua/kilo/internal/hcdp"
	"github.com/lehua/kilo/internal/models"
	"github.com/lehua/kilo/internal/store"
)

type globals struct {
	Token   string `env:"HCDP_API_TOKEN" required:"" help:"HCDP API bearer token."`
	BaseURL string `env:"HCDP_BASE_URL" default:"" help:"Override the HCDP API base URL."`
	DB      string `help:"Optional SQLite database to export results into." type:"path"`
}

func (g *globals) client() (*hcdp.Client, error) {
	return hcdp.NewClient(g.Token, g.BaseURL)
}

func (g *globals) openStore() (*store.Store, func(), error) {
	if g.DB == "" {
		return nil, func() {}, nil
	}
	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, func() { db.Close() }, nil
}

type serveCmd struct {
	Port string `default:"8080" help:"HTTP server port."`
}

func (c *serveCmd) Run(g *globals) error {
	client, err := g.client()
	if err != nil {
		return err
	}

	server := api.NewServer(aggregate.New(client), forecast.NewEngine(client, forecast.DefaultConfig()), c.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type aggregateCmd struct {
	Date     string `arg:"" help:"MM/DD/YYYY for a single day or MM/YYYY for a whole month."`
	Island   string `arg:"" help:"Island name (fuzzy matched), or 'all' for the combined view."`
	Variable string `default:"rainfall" enum:"rainfall,temperature" help:"Observed variable."`
}

func (c *aggregateCmd) Run(g *globals) error {
	client, err := g.client()
	if err != nil {
		return err
	}
	rng, err := dates.Resolve(c.Date)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	agg := aggregate.New(client)
	var table []models.Record
	if c.Island == "all" {
		table, err = agg.AggregateAll(ctx, rng, aggregate.Variable(c.Variable))
	} else {
		table, err = agg.Aggregate(ctx, rng, c.Island, aggregate.Variable(c.Variable))
	}
	if err != nil {
		return err
	}

	if g.DB != "" {
		st, closeDB, err := g.openStore()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := st.SaveRecords(c.Island, table); err != nil {
			return fmt.Errorf("export records: %w", err)
		}
		log.Printf("exported %d records to %s", len(table), g.DB)
	}

	return writeRecordsCSV(os.Stdout, table)
}

type forecastCmd struct {
	Month string  `arg:"" help:"Target month, MM/YYYY."`
	Lat   float64 `arg:"" help:"Latitude of the location."`
	Lon   float64 `arg:"" help:"Longitude of the location."`
	Clamp bool    `help:"Clamp negative rainfall predictions to zero."`
}

func (c *forecastCmd) Run(g *globals) error {
	client, err := g.client()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := forecast.DefaultConfig()
	cfg.ClampNegative = c.Clamp
	engine := forecast.NewEngine(client, cfg)

	res, err := engine.Forecast(ctx, c.Month, c.Lat, c.Lon)
	if err != nil {
		return err
	}
	log.Printf("nearest station: %s (%d actual, %d predicted points)",
		res.StationID, len(res.Actual), len(res.Predicted))

	if g.DB != "" {
		st, closeDB, err := g.openStore()
		if err != nil {
			return err
		}
		defer closeDB()
		if err := st.SaveForecast(time.Now(), res); err != nil {
			return fmt.Errorf("export forecast: %w", err)
		}
		log.Printf("exported forecast for %s to %s", res.StationID, g.DB)
	}

	return writeSeriesCSV(os.Stdout, res)
}

func writeRecordsCSV(f *os.File, table []models.Record) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"Time", "lat", "lon", "rainfall", "max-temp"}); err != nil {
		return err
	}
	for _, rec := range table {
		row := []string{
			rec.Date.Format("01/02/2006"),
			strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
			strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
			"", "",
		}
		if rec.Rainfall != nil {
			row[3] = strconv.FormatFloat(*rec.Rainfall, 'f', -1, 64)
		}
		if rec.MaxTemp != nil {
			row[4] = strconv.FormatFloat(*rec.MaxTemp, 'f', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeSeriesCSV(f *os.File, res *forecast.Result) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"kind", "date", "rainfall"}); err != nil {
		return err
	}
	write := func(kind string, series []models.SeriesPoint) error {
		for _, pt := range series {
			row := []string{kind, pt.Date.Format(time.DateOnly), strconv.FormatFloat(pt.Value, 'f', -1, 64)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write("actual", res.Actual); err != nil {
		return err
	}
	if err := write("predicted", res.Predicted); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func main() {
	var cli struct {
		globals

		Serve     serveCmd     `cmd:"" help:"Run the HTTP API server."`
		Aggregate aggregateCmd `cmd:"" help:"Build an island-scoped station table for a date or month."`
		Forecast  forecastCmd  `cmd:"" help:"Forecast daily rainfall at a location through a target month."`
	}

	kctx := kong.Parse(&cli,
		kong.Name("kilo"),
		kong.Description("Station-level Hawaiʻi climate data resolution and rainfall forecasting."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	if err := kctx.Run(&cli.globals); err != nil {
		log.Fatalf("%s: %v", kctx.Command(), err)
	}
}

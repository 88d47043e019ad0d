package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/lox/greengrid/internal/api"
	"github.com/lox/greengrid/internal/forecast"
	"github.com/lox/greengrid/internal/ingest"
	"github.com/lox/greengrid/internal/logger"
	"github.com/lox/greengrid/internal/models"
	"github.com/lox/greengrid/internal/store"
)

type Globals struct {
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" env:"LOG_LEVEL"`
	LogPretty bool   `help:"Human-readable console logs." env:"LOG_PRETTY"`
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the HTTP API."`
	Generate GenerateCmd `cmd:"" help:"Write a synthetic hourly dataset."`
	Import   ImportCmd   `cmd:"" help:"Load a CSV dataset into the SQLite mirror."`
	Fetch    FetchCmd    `cmd:"" help:"Download the dataset from an FTP drop."`
	Predict  PredictCmd  `cmd:"" help:"Print an estimate, recommendation and forecast as JSON."`
}

type ServeCmd struct {
	Port     string `help:"HTTP listen port." default:"8000" env:"PORT"`
	Data     string `help:"Path to the CSV dataset." default:"energy_data.csv" env:"GREENGRID_DATA"`
	DB       string `help:"Serve history from this SQLite mirror instead of the CSV." env:"GREENGRID_DB"`
	Timezone string `help:"Time zone used for the default hour of day." default:"Local" env:"GREENGRID_TZ"`
}

func (c *ServeCmd) Run(log zerolog.Logger) error {
	loc, err := loadLocation(c.Timezone, log)
	if err != nil {
		return err
	}

	var history api.HistoryProvider
	if c.DB != "" {
		db, st, err := openStore(c.DB, log)
		if err != nil {
			return err
		}
		defer db.Close()
		history = st

		count, err := st.Count(context.Background())
		if err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		source, importedAt, err := st.LastImport(context.Background())
		if err != nil {
			return fmt.Errorf("read import log: %w", err)
		}
		log.Info().
			Str("db", c.DB).
			Int("records", count).
			Str("source", source).
			Time("imported_at", importedAt).
			Msg("serving history from SQLite mirror")
	} else {
		history = ingest.NewDataset(c.Data, log)
		log.Info().Str("data", c.Data).Msg("serving history from CSV dataset")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(history, c.Port, loc, log)
	return server.Run(ctx)
}

type GenerateCmd struct {
	Out   string `help:"Output CSV path." default:"energy_data.csv" env:"GREENGRID_DATA"`
	Hours int    `help:"Number of hourly records." default:"168"`
	Seed  uint64 `help:"Random seed; 0 picks one from the clock."`
}

func (c *GenerateCmd) Run(log zerolog.Logger) error {
	if c.Hours <= 0 {
		return fmt.Errorf("--hours must be positive, got %d", c.Hours)
	}
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	records := ingest.Generate(c.Hours, rand.New(rand.NewPCG(seed, seed)))

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Out, err)
	}
	if err := ingest.WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Info().Str("out", c.Out).Int("records", len(records)).Uint64("seed", seed).Msg("dataset generated")
	return nil
}

type ImportCmd struct {
	Data string `help:"CSV dataset to import." default:"energy_data.csv" env:"GREENGRID_DATA"`
	DB   string `help:"SQLite database path." default:"data/greengrid.db" env:"GREENGRID_DB"`
}

func (c *ImportCmd) Run(log zerolog.Logger) error {
	f, err := os.Open(c.Data)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := ingest.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.Data, err)
	}

	db, st, err := openStore(c.DB, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := st.ReplaceHistory(context.Background(), c.Data, records); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	log.Info().Str("db", c.DB).Int("records", len(records)).Msg("history imported")
	return nil
}

type FetchCmd struct {
	FTPHost    string `name:"ftp-host" help:"FTP server host:port." required:"" env:"GREENGRID_FTP_HOST"`
	FTPUser    string `name:"ftp-user" help:"FTP user; anonymous when empty." env:"GREENGRID_FTP_USER"`
	FTPPass    string `name:"ftp-pass" help:"FTP password." env:"GREENGRID_FTP_PASS"`
	RemotePath string `help:"Dataset path on the server." default:"energy_data.csv" env:"GREENGRID_FTP_PATH"`
	Out        string `help:"Local destination." default:"energy_data.csv" env:"GREENGRID_DATA"`
}

func (c *FetchCmd) Run(log zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src := ingest.NewFTPSource(c.FTPHost, c.FTPUser, c.FTPPass, c.RemotePath, log)
	data, err := src.Fetch(ctx)
	if err != nil {
		return err
	}

	n, err := ingest.SaveDataset(data, c.Out)
	if err != nil {
		return err
	}
	log.Info().Str("out", c.Out).Int("records", n).Msg("dataset fetched")
	return nil
}

type PredictCmd struct {
	Params   string `arg:"" optional:"" help:"JSON parameter set, e.g. '{\"current_load\":150,\"time_of_day\":19}'."`
	Data     string `help:"CSV dataset used for missing inputs." default:"energy_data.csv" env:"GREENGRID_DATA"`
	Timezone string `help:"Time zone used for the default hour of day." default:"Local" env:"GREENGRID_TZ"`
}

type predictOutput struct {
	Prediction     models.PredictionResult `json:"prediction"`
	Recommendation string                  `json:"recommendation"`
	Forecast       []models.ForecastEntry  `json:"forecast"`
}

func (c *PredictCmd) Run(log zerolog.Logger) error {
	var params models.ParameterSet
	if err := api.DecodeJSON(strings.NewReader(c.Params), &params); err != nil {
		return fmt.Errorf("parse parameters: %w", err)
	}
	if err := api.ValidateParams(params); err != nil {
		return err
	}

	loc, err := loadLocation(c.Timezone, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	latest, err := ingest.NewDataset(c.Data, log).Latest(ctx)
	if err != nil {
		return err
	}

	resolved := forecast.Resolve(params, latest, time.Now().In(loc))
	if err := api.CheckEstimable(resolved); err != nil {
		return err
	}
	result := forecast.Estimate(resolved)
	out := predictOutput{
		Prediction:     result,
		Recommendation: forecast.Advise(params, result),
		Forecast:       forecast.Forecast(resolved),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func openStore(path string, log zerolog.Logger) (*sql.DB, *store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db, log)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	version, err := st.MigrationVersion()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("read schema version: %w", err)
	}
	log.Debug().Str("db", path).Int("schema_version", version).Msg("database migrated")
	return db, st, nil
}

func loadLocation(name string, log zerolog.Logger) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	log.Debug().Str("timezone", loc.String()).Msg("time zone loaded")
	return loc, nil
}

func main() {
	// A missing .env is fine; the environment and flags still apply.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("greengrid"),
		kong.Description("Community microgrid load estimation service."),
		kong.UsageOnError(),
	)

	log := logger.New(logger.Config{Level: cli.LogLevel, Pretty: cli.LogPretty})
	err := ctx.Run(log)
	if err != nil {
		log.Error().Err(err).Msg("command failed")
	}
	ctx.FatalIfErrorf(err)
}

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lox/greengrid/internal/metrics"
	"github.com/lox/greengrid/internal/models"
)

const defaultReadTimeout = 2 * time.Second

// Dataset serves historical records from a CSV file. The file is read on
// first use and cached for the life of the process. A missing file reads as
// an empty dataset and is looked for again on the next call.
type Dataset struct {
	path        string
	log         zerolog.Logger
	readTimeout time.Duration

	mu      sync.Mutex
	loaded  bool
	records []models.HistoricalRecord
}

func NewDataset(path string, log zerolog.Logger) *Dataset {
	return &Dataset{
		path:        path,
		log:         log.With().Str("component", "dataset").Str("path", path).Logger(),
		readTimeout: defaultReadTimeout,
	}
}

// Records returns every record, ordered by hour. The slice is shared and must
// not be modified.
func (d *Dataset) Records(ctx context.Context) ([]models.HistoricalRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return d.records, nil
	}

	records, err := d.read(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		d.log.Debug().Msg("dataset not found, using defaults")
		return nil, nil
	}
	if err != nil {
		metrics.HistoryLoadErrors.Inc()
		return nil, fmt.Errorf("load dataset %s: %w", d.path, err)
	}

	d.records = records
	d.loaded = true
	metrics.HistoryRecordsLoaded.Set(float64(len(records)))
	d.log.Info().Int("records", len(records)).Msg("dataset loaded")
	return d.records, nil
}

// Recent returns up to n of the newest records, oldest first.
func (d *Dataset) Recent(ctx context.Context, n int) ([]models.HistoricalRecord, error) {
	records, err := d.Records(ctx)
	if err != nil {
		return nil, err
	}
	return tail(records, n), nil
}

// Latest returns the newest record, or nil when the dataset is empty.
func (d *Dataset) Latest(ctx context.Context) (*models.HistoricalRecord, error) {
	records, err := d.Records(ctx)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	rec := records[len(records)-1]
	return &rec, nil
}

// read retries transient I/O failures for a short, bounded time. A missing
// file or unparsable content fails immediately.
func (d *Dataset) read(ctx context.Context) ([]models.HistoricalRecord, error) {
	var records []models.HistoricalRecord
	operation := func() error {
		data, err := os.ReadFile(d.path)
		if errors.Is(err, fs.ErrNotExist) {
			return backoff.Permanent(err)
		}
		if err != nil {
			d.log.Warn().Err(err).Msg("read dataset, retrying")
			return err
		}

		records, err = ReadCSV(bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = d.readTimeout
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return records, nil
}

func tail(records []models.HistoricalRecord, n int) []models.HistoricalRecord {
	if n <= 0 {
		return []models.HistoricalRecord{}
	}
	if len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]models.HistoricalRecord, len(records))
	copy(out, records)
	return out
}

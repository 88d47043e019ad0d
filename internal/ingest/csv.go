package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lox/greengrid/internal/models"
)

const (
	colHour        = "hour"
	colLoadKW      = "load_kw"
	colTemperature = "temperature"
	colEVCharging  = "ev_charging"
)

var csvHeader = []string{colHour, colLoadKW, colTemperature, colEVCharging}

// ReadCSV parses a dataset with a hour,load_kw,temperature,ev_charging header.
// Columns may appear in any order and extra columns are ignored. Records are
// returned sorted by hour.
func ReadCSV(r io.Reader) ([]models.HistoricalRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range csvHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var records []models.HistoricalRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if flags := ValidateRecord(rec); len(flags) > 0 {
			return nil, fmt.Errorf("line %d: invalid record: %s", line, strings.Join(flags, ","))
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Hour < records[j].Hour })
	return records, nil
}

func parseRow(row []string, idx map[string]int) (models.HistoricalRecord, error) {
	var rec models.HistoricalRecord
	var err error

	if rec.Hour, err = parseInt(row[idx[colHour]]); err != nil {
		return rec, fmt.Errorf("%s: %w", colHour, err)
	}
	if rec.LoadKW, err = strconv.ParseFloat(strings.TrimSpace(row[idx[colLoadKW]]), 64); err != nil {
		return rec, fmt.Errorf("%s: %w", colLoadKW, err)
	}
	if rec.Temperature, err = strconv.ParseFloat(strings.TrimSpace(row[idx[colTemperature]]), 64); err != nil {
		return rec, fmt.Errorf("%s: %w", colTemperature, err)
	}
	if rec.EVCharging, err = parseInt(row[idx[colEVCharging]]); err != nil {
		return rec, fmt.Errorf("%s: %w", colEVCharging, err)
	}
	return rec, nil
}

// parseInt accepts integral floats such as "3.0", which pandas emits for
// integer columns that once held a missing value.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

// WriteCSV writes records in the same layout ReadCSV expects.
func WriteCSV(w io.Writer, records []models.HistoricalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Hour),
			strconv.FormatFloat(rec.LoadKW, 'f', -1, 64),
			strconv.FormatFloat(rec.Temperature, 'f', -1, 64),
			strconv.Itoa(rec.EVCharging),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package ingest

import (
	"bytes"
	"context"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/greengrid/internal/models"
)

const sampleCSV = `hour,load_kw,temperature,ev_charging
0,72.5,24.1,0
1,118.34,31.7,1
2,65.02,20.4,0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		rec       models.HistoricalRecord
		wantFlags []string
	}{
		{
			name:      "valid record",
			rec:       models.HistoricalRecord{Hour: 3, LoadKW: 120, Temperature: 25, EVCharging: 1},
			wantFlags: nil,
		},
		{
			name:      "negative hour",
			rec:       models.HistoricalRecord{Hour: -1, LoadKW: 120, Temperature: 25},
			wantFlags: []string{FlagHourNegative},
		},
		{
			name:      "negative load",
			rec:       models.HistoricalRecord{LoadKW: -0.5, Temperature: 25},
			wantFlags: []string{FlagLoadNegative},
		},
		{
			name:      "nan load",
			rec:       models.HistoricalRecord{LoadKW: math.NaN(), Temperature: 25},
			wantFlags: []string{FlagLoadNotFinite},
		},
		{
			name:      "infinite temperature",
			rec:       models.HistoricalRecord{LoadKW: 10, Temperature: math.Inf(1)},
			wantFlags: []string{FlagTempNotFinite},
		},
		{
			name:      "temperature at hot boundary",
			rec:       models.HistoricalRecord{LoadKW: 10, Temperature: 60},
			wantFlags: nil,
		},
		{
			name:      "temperature too hot",
			rec:       models.HistoricalRecord{LoadKW: 10, Temperature: 61},
			wantFlags: []string{FlagTempOutOfRange},
		},
		{
			name:      "ev flag not boolean",
			rec:       models.HistoricalRecord{LoadKW: 10, Temperature: 25, EVCharging: 2},
			wantFlags: []string{FlagEVChargingInvalid},
		},
		{
			name:      "multiple flags",
			rec:       models.HistoricalRecord{Hour: -2, LoadKW: -1, Temperature: -80, EVCharging: -1},
			wantFlags: []string{FlagHourNegative, FlagLoadNegative, FlagTempOutOfRange, FlagEVChargingInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantFlags, ValidateRecord(tt.rec))
		})
	}
}

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, models.HistoricalRecord{Hour: 1, LoadKW: 118.34, Temperature: 31.7, EVCharging: 1}, records[1])
}

func TestReadCSV_ReorderedColumnsAndIntegralFloats(t *testing.T) {
	in := "ev_charging,temperature,hour,load_kw,note\n1.0,22.5,5,90,x\n0,21,4,80,y\n"

	records, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 4, records[0].Hour, "records are ordered by hour")
	assert.Equal(t, models.HistoricalRecord{Hour: 5, LoadKW: 90, Temperature: 22.5, EVCharging: 1}, records[1])
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"missing column", "hour,load_kw,temperature\n0,1,2\n", `missing column "ev_charging"`},
		{"bad float", "hour,load_kw,temperature,ev_charging\n0,abc,20,0\n", "line 2: load_kw"},
		{"fractional hour", "hour,load_kw,temperature,ev_charging\n0.5,10,20,0\n", "line 2: hour"},
		{"invalid record", "hour,load_kw,temperature,ev_charging\n0,10,20,0\n1,10,20,3\n", "line 3: invalid record: ev_charging_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriteCSV_ReadBack(t *testing.T) {
	want := []models.HistoricalRecord{
		{Hour: 0, LoadKW: 72.5, Temperature: 24.1, EVCharging: 0},
		{Hour: 1, LoadKW: 118.34, Temperature: 31.7, EVCharging: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, want))
	assert.True(t, strings.HasPrefix(buf.String(), "hour,load_kw,temperature,ev_charging\n"))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDataset_MissingFileIsEmpty(t *testing.T) {
	d := NewDataset(filepath.Join(t.TempDir(), "absent.csv"), zerolog.Nop())
	ctx := context.Background()

	recent, err := d.Recent(ctx, 24)
	require.NoError(t, err)
	assert.NotNil(t, recent)
	assert.Empty(t, recent)

	latest, err := d.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestDataset_LoadsOnceAndCaches(t *testing.T) {
	path := writeFile(t, "energy_data.csv", sampleCSV)
	d := NewDataset(path, zerolog.Nop())
	ctx := context.Background()

	latest, err := d.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Hour)

	require.NoError(t, os.Remove(path))

	recent, err := d.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 1, recent[0].Hour)
	assert.Equal(t, 2, recent[1].Hour)
}

func TestDataset_MissingFilePickedUpLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy_data.csv")
	d := NewDataset(path, zerolog.Nop())
	ctx := context.Background()

	latest, err := d.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	latest, err = d.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 65.02, latest.LoadKW)
}

func TestDataset_MalformedFailsFast(t *testing.T) {
	path := writeFile(t, "energy_data.csv", "hour,load_kw\n1,2\n")
	d := NewDataset(path, zerolog.Nop())

	_, err := d.Latest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestDataset_RecentLargerThanDataset(t *testing.T) {
	d := NewDataset(writeFile(t, "energy_data.csv", sampleCSV), zerolog.Nop())

	recent, err := d.Recent(context.Background(), 24)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestGenerate(t *testing.T) {
	records := Generate(DefaultGenerateHours, rand.New(rand.NewPCG(1, 2)))

	require.Len(t, records, DefaultGenerateHours)
	for i, rec := range records {
		assert.Equal(t, i, rec.Hour)
		assert.Empty(t, ValidateRecord(rec), "hour %d", i)
		assert.GreaterOrEqual(t, rec.Temperature, 20.0)
		assert.LessOrEqual(t, rec.Temperature, 35.0)
		assert.Contains(t, []int{0, 1}, rec.EVCharging)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(48, rand.New(rand.NewPCG(7, 7)))
	b := Generate(48, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestGenerate_EveningPeakExceedsNight(t *testing.T) {
	records := Generate(24*30, rand.New(rand.NewPCG(3, 4)))

	var peak, night float64
	var peakN, nightN int
	for _, rec := range records {
		switch h := rec.Hour % 24; {
		case h >= 18 && h < 22:
			peak += rec.LoadKW
			peakN++
		case h >= 22 || h < 6:
			night += rec.LoadKW
			nightN++
		}
	}
	assert.Greater(t, peak/float64(peakN), night/float64(nightN))
}

func TestSaveDataset(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "data", "energy_data.csv")

	n, err := SaveDataset([]byte(sampleCSV), dest)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))
}

func TestSaveDataset_RejectsInvalid(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "energy_data.csv")
	require.NoError(t, os.WriteFile(dest, []byte(sampleCSV), 0644))

	_, err := SaveDataset([]byte("not,a,dataset\n"), dest)
	require.Error(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got), "existing dataset must be left untouched")
}

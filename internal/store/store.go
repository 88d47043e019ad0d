package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/greengrid/internal/models"
)

// Store is a SQLite mirror of the historical dataset. The server only reads
// from it; ReplaceHistory is used by the offline import command.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}
}

// ReplaceHistory swaps the whole snapshot for records in one transaction.
func (s *Store) ReplaceHistory(ctx context.Context, source string, records []models.HistoricalRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history (hour, load_kw, temperature, ev_charging)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Hour, rec.LoadKW, rec.Temperature, rec.EVCharging); err != nil {
			return fmt.Errorf("insert hour %d: %w", rec.Hour, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, record_count, imported_at) VALUES (?, ?, ?)`,
		source, len(records), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	return tx.Commit()
}

// Recent returns up to n of the newest records, oldest first.
func (s *Store) Recent(ctx context.Context, n int) ([]models.HistoricalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hour, load_kw, temperature, ev_charging FROM (
			SELECT hour, load_kw, temperature, ev_charging
			FROM history
			ORDER BY hour DESC
			LIMIT ?
		) ORDER BY hour ASC
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.HistoricalRecord{}
	for rows.Next() {
		var rec models.HistoricalRecord
		if err := rows.Scan(&rec.Hour, &rec.LoadKW, &rec.Temperature, &rec.EVCharging); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Latest returns the record with the highest hour, or nil if the table is empty.
func (s *Store) Latest(ctx context.Context) (*models.HistoricalRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hour, load_kw, temperature, ev_charging
		FROM history
		ORDER BY hour DESC
		LIMIT 1
	`)

	var rec models.HistoricalRecord
	err := row.Scan(&rec.Hour, &rec.LoadKW, &rec.Temperature, &rec.EVCharging)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}

// LastImport reports when the snapshot was last replaced and from where.
func (s *Store) LastImport(ctx context.Context) (source string, at time.Time, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT source, imported_at FROM imports ORDER BY id DESC LIMIT 1
	`).Scan(&source, &at)
	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	return source, at, err
}

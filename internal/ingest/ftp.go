package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"
	"github.com/rs/zerolog"
)

// FTPSource is a dataset drop on an FTP server, refreshed out of band by the
// generator or a metering export.
type FTPSource struct {
	Addr       string // host:port
	User       string
	Password   string
	RemotePath string
	Timeout    time.Duration
	log        zerolog.Logger
}

func NewFTPSource(addr, user, password, remotePath string, log zerolog.Logger) *FTPSource {
	if user == "" {
		user, password = "anonymous", "anonymous"
	}
	return &FTPSource{
		Addr:       addr,
		User:       user,
		Password:   password,
		RemotePath: remotePath,
		Timeout:    30 * time.Second,
		log:        log.With().Str("component", "ftp").Str("addr", addr).Logger(),
	}
}

// Fetch downloads the remote dataset, retrying connection failures with
// exponential backoff for up to two minutes.
func (s *FTPSource) Fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	operation := func() error {
		conn, err := ftp.Dial(s.Addr, ftp.DialWithTimeout(s.Timeout), ftp.DialWithContext(ctx))
		if err != nil {
			s.log.Warn().Err(err).Msg("ftp dial failed, retrying")
			return fmt.Errorf("ftp dial: %w", err)
		}
		defer conn.Quit()

		if err := conn.Login(s.User, s.Password); err != nil {
			return backoff.Permanent(fmt.Errorf("ftp login: %w", err))
		}

		resp, err := conn.Retr(s.RemotePath)
		if err != nil {
			return fmt.Errorf("ftp retr %s: %w", s.RemotePath, err)
		}
		defer resp.Close()

		body, err = io.ReadAll(resp)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// SaveDataset validates data as a dataset and atomically replaces dest with
// it. It returns the number of records written.
func SaveDataset(data []byte, dest string) (int, error) {
	records, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("validate dataset: %w", err)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dataset-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("replace %s: %w", dest, err)
	}
	return len(records), nil
}

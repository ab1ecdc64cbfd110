// Package archive copies finished reports to an FTP server for long-term
// keeping outside the database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jlaffaye/ftp"

	"github.com/yatrik/fleetml/internal/chart"
	"github.com/yatrik/fleetml/internal/models"
)

// Config locates the FTP archive. Empty User logs in anonymously.
type Config struct {
	Addr     string // host:port
	User     string
	Password string
	Dir      string
}

type conn interface {
	Login(user, password string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// FTP uploads each report as <dir>/<model>/<timestamp>.json, plus the chart
// as a .png next to it when the report carries one.
type FTP struct {
	cfg     Config
	dial    func(ctx context.Context) (conn, error)
	backoff func() backoff.BackOff
}

func NewFTP(cfg Config) *FTP {
	if cfg.User == "" {
		cfg.User = "anonymous"
		cfg.Password = "anonymous"
	}
	return &FTP{
		cfg: cfg,
		dial: func(ctx context.Context) (conn, error) {
			return ftp.Dial(cfg.Addr, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
		},
		backoff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = time.Minute
			return bo
		},
	}
}

type file struct {
	name string
	data []byte
}

// Export uploads the report as JSON, plus its chart as PNG when present, to
// <Dir>/<model>/<timestamp>.
func (f *FTP) Export(ctx context.Context, r models.ModelReport) error {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	dir := path.Join(f.cfg.Dir, r.ModelName)
	stamp := r.Timestamp.UTC().Format("20060102T150405Z")
	files := []file{{name: path.Join(dir, stamp+".json"), data: payload}}
	if r.Metrics.Visualization != "" {
		if png, err := chart.DecodeDataURI(r.Metrics.Visualization); err == nil {
			files = append(files, file{name: path.Join(dir, stamp+".png"), data: png})
		}
	}

	operation := func() error {
		return f.upload(ctx, dir, files)
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("archive: upload failed, retrying in %s: %v", wait.Round(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(f.backoff(), ctx), notify); err != nil {
		return fmt.Errorf("archive %s: %w", r.ModelName, err)
	}
	log.Printf("archive: stored %s/%s (%d files)", r.ModelName, stamp, len(files))
	return nil
}

func (f *FTP) upload(ctx context.Context, dir string, files []file) error {
	c, err := f.dial(ctx)
	if err != nil {
		return fmt.Errorf("ftp dial: %w", err)
	}
	defer c.Quit()

	if err := c.Login(f.cfg.User, f.cfg.Password); err != nil {
		return backoff.Permanent(fmt.Errorf("ftp login: %w", err))
	}
	// Directories usually exist already; a real failure surfaces on Stor.
	if f.cfg.Dir != "" {
		c.MakeDir(f.cfg.Dir)
	}
	c.MakeDir(dir)

	for _, fl := range files {
		if err := c.Stor(fl.name, bytes.NewReader(fl.data)); err != nil {
			return fmt.Errorf("ftp stor %s: %w", fl.name, err)
		}
	}
	return nil
}

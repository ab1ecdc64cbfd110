package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/yatrik/fleetml/internal/chart"
	"github.com/yatrik/fleetml/internal/models"
)

type fakeConn struct {
	loginErr error
	storErrs int
	stored   map[string][]byte
	dirs     []string
}

func (c *fakeConn) Login(user, password string) error { return c.loginErr }
func (c *fakeConn) MakeDir(p string) error            { c.dirs = append(c.dirs, p); return nil }
func (c *fakeConn) Quit() error                       { return nil }
func (c *fakeConn) Stor(p string, r io.Reader) error {
	if c.storErrs > 0 {
		c.storErrs--
		return errors.New("451 transfer aborted")
	}
	data, _ := io.ReadAll(r)
	c.stored[p] = data
	return nil
}

func newTestFTP(c *fakeConn) (*FTP, *int) {
	dials := 0
	f := NewFTP(Config{Addr: "ftp.example:21", Dir: "/reports"})
	f.dial = func(ctx context.Context) (conn, error) {
		dials++
		return c, nil
	}
	f.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	}
	return f, &dials
}

func testReport(t *testing.T) models.ModelReport {
	t.Helper()
	png, err := chart.Placeholder("t", "m")
	if err != nil {
		t.Fatal(err)
	}
	return models.ModelReport{
		ModelName: "svm_route_optimization",
		Timestamp: time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
		Metrics:   models.ReportMetrics{Visualization: chart.DataURI(png)},
	}
}

func TestExport(t *testing.T) {
	c := &fakeConn{stored: map[string][]byte{}}
	f, _ := newTestFTP(c)

	if err := f.Export(context.Background(), testReport(t)); err != nil {
		t.Fatalf("Export: %v", err)
	}
	for _, name := range []string{
		"/reports/svm_route_optimization/20250310T083000Z.json",
		"/reports/svm_route_optimization/20250310T083000Z.png",
	} {
		if len(c.stored[name]) == 0 {
			t.Errorf("%s not stored; have %v", name, c.stored)
		}
	}
}

func TestExport_RetriesTransientFailure(t *testing.T) {
	c := &fakeConn{stored: map[string][]byte{}, storErrs: 1}
	f, dials := newTestFTP(c)

	if err := f.Export(context.Background(), testReport(t)); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if *dials != 2 {
		t.Errorf("dials = %d, want 2", *dials)
	}
}

func TestExport_LoginFailureIsPermanent(t *testing.T) {
	c := &fakeConn{stored: map[string][]byte{}, loginErr: errors.New("530 not logged in")}
	f, dials := newTestFTP(c)

	if err := f.Export(context.Background(), testReport(t)); err == nil {
		t.Fatal("expected error")
	}
	if *dials != 1 {
		t.Errorf("dials = %d, want 1", *dials)
	}
}

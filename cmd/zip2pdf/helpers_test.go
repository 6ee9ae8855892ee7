package main

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	zip2pdf "github.com/alnah/go-zip2pdf"
	"github.com/alnah/go-zip2pdf/internal/config"
	"github.com/alnah/go-zip2pdf/internal/history"
)

// fakeConverter records calls and returns a canned result.
type fakeConverter struct {
	mu         sync.Mutex
	res        *zip2pdf.Result
	err        error
	swept      int
	sweepAge   time.Duration
	closed     int
	title      string
	includeTOC bool
	data       []byte
}

func (f *fakeConverter) Convert(_ context.Context, data []byte, title string, includeTOC bool) (*zip2pdf.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = title
	f.includeTOC = includeTOC
	f.data = data
	return f.res, f.err
}

func (f *fakeConverter) SweepWorkspaces(olderThan time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepAge = olderThan
	return f.swept, nil
}

func (f *fakeConverter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakeRecorder struct{}

func (fakeRecorder) Add(_ context.Context, r history.Record) (history.Record, error) { return r, nil }

// factoryCall captures what a command passed to the converter factory.
type factoryCall struct {
	cfg *config.Config
	rec zip2pdf.Recorder
}

type testEnv struct {
	env    *Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	conv   *fakeConverter
	calls  []factoryCall
}

func newTestEnv(t *testing.T, conv *fakeConverter, vars map[string]string) *testEnv {
	t.Helper()

	te := &testEnv{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		conv:   conv,
	}
	te.env = &Environment{
		Now:    func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
		Stdout: te.stdout,
		Stderr: te.stderr,
		LookupEnv: func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		},
		NewConverter: func(cfg *config.Config, _ *slog.Logger, rec zip2pdf.Recorder) (Converter, error) {
			te.calls = append(te.calls, factoryCall{cfg: cfg, rec: rec})
			return te.conv, nil
		},
	}
	return te
}

package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T, limit int) *Store {
	t.Helper()

	s, err := Open(":memory:", limit)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AddAndRecent(t *testing.T) {
	t.Parallel()

	s := openTest(t, 0)
	ctx := context.Background()
	base := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

	first, err := s.Add(ctx, Record{Title: "First", Status: StatusSucceeded, Pages: 3, Duration: 1500 * time.Millisecond, CreatedAt: base})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.ID == "" {
		t.Error("Add() did not assign an ID")
	}
	if _, err := s.Add(ctx, Record{Title: "Second", Status: StatusFailed, ErrorKind: "NoDocumentFound", CreatedAt: base.Add(time.Minute)}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() returned %d records, want 2", len(got))
	}
	if got[0].Title != "Second" || got[0].ErrorKind != "NoDocumentFound" {
		t.Errorf("newest record = %+v", got[0])
	}
	if got[1].Pages != 3 || got[1].Duration != 1500*time.Millisecond || !got[1].CreatedAt.Equal(base) {
		t.Errorf("oldest record = %+v", got[1])
	}
}

func TestStore_Limit(t *testing.T) {
	t.Parallel()

	s := openTest(t, 2)
	ctx := context.Background()
	base := time.Now()

	for i, title := range []string{"a", "b", "c"} {
		if _, err := s.Add(ctx, Record{Title: title, Status: StatusSucceeded, CreatedAt: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "c" || got[1].Title != "b" {
		t.Errorf("Recent() after pruning = %+v", got)
	}
}

func TestStore_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.Add(context.Background(), Record{Title: "persisted", Status: StatusSucceeded}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.Recent(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "persisted" {
		t.Errorf("Recent() = %+v", got)
	}
}

func TestStore_Closed(t *testing.T) {
	t.Parallel()

	s := openTest(t, 0)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(context.Background(), Record{Title: "x"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Add() after Close error = %v, want ErrClosed", err)
	}
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	s := openTest(t, 0)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 4 {
		if _, err := s.Add(ctx, Record{Title: string(rune('a' + i)), Status: StatusSucceeded, CreatedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Prune(ctx, 1)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("Prune() removed %d, want 3", removed)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "d" {
		t.Errorf("Recent() after Prune = %+v", got)
	}
}

package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/datajar/datajar/internal/log"
)

// writeChart creates a fake chart file with a controlled modification time.
func writeChart(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatalf("writing chart: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting chart mtime: %v", err)
	}
	return path
}

func newTestStore(t *testing.T, maxRetained int) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), maxRetained, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore() unexpected error: %v", err)
	}
	return s
}

func TestNewStore_InvalidMax(t *testing.T) {
	t.Parallel()
	if _, err := NewStore(t.TempDir(), 0, log.NewNop()); err == nil {
		t.Error("NewStore(maxRetained=0) = nil error, want error")
	}
}

func TestLatestSince_EmptyDir(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 30)

	a, err := s.LatestSince(time.Time{})
	if err != nil {
		t.Fatalf("LatestSince() unexpected error: %v", err)
	}
	if a != nil {
		t.Errorf("LatestSince() = %+v, want nil", a)
	}
}

func TestLatestSince_Boundary(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 30)

	stamp := time.Now().Add(-time.Hour).Truncate(time.Second)
	path := writeChart(t, s.Dir(), "chart.png", stamp)

	// Created exactly at the threshold counts as fresh.
	a, err := s.LatestSince(stamp)
	if err != nil {
		t.Fatalf("LatestSince() unexpected error: %v", err)
	}
	if a == nil || a.Path != path {
		t.Fatalf("LatestSince(equal) = %+v, want %s", a, path)
	}

	// Created strictly before the threshold does not.
	a, err = s.LatestSince(stamp.Add(time.Second))
	if err != nil {
		t.Fatalf("LatestSince() unexpected error: %v", err)
	}
	if a != nil {
		t.Errorf("LatestSince(after) = %+v, want nil", a)
	}
}

func TestLatestSince_PicksNewest(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 30)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeChart(t, s.Dir(), "old.png", base)
	newest := writeChart(t, s.Dir(), "new.png", base.Add(time.Minute))

	a, err := s.LatestSince(time.Time{})
	if err != nil {
		t.Fatalf("LatestSince() unexpected error: %v", err)
	}
	if a == nil || a.Path != newest {
		t.Errorf("LatestSince() = %+v, want %s", a, newest)
	}
}

func TestLatestSince_IgnoresNonCharts(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 30)

	stamp := time.Now().Truncate(time.Second)
	writeChart(t, s.Dir(), "notes.txt", stamp)

	a, err := s.LatestSince(time.Time{})
	if err != nil {
		t.Fatalf("LatestSince() unexpected error: %v", err)
	}
	if a != nil {
		t.Errorf("LatestSince() = %+v, want nil (only .png counts)", a)
	}
}

func TestRotate_DeletesOldestFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 30)

	base := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	for i := 0; i < 35; i++ {
		writeChart(t, s.Dir(), fmt.Sprintf("chart_%02d.png", i), base.Add(time.Duration(i)*time.Minute))
	}

	deleted, err := s.Rotate()
	if err != nil {
		t.Fatalf("Rotate() unexpected error: %v", err)
	}
	if deleted != 5 {
		t.Errorf("Rotate() deleted = %d, want 5", deleted)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count() unexpected error: %v", err)
	}
	if count != 30 {
		t.Errorf("Count() after rotate = %d, want 30", count)
	}

	// The five oldest are gone, the newest survive.
	for i := 0; i < 5; i++ {
		path := filepath.Join(s.Dir(), fmt.Sprintf("chart_%02d.png", i))
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("oldest chart %s still present after rotate", path)
		}
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "chart_34.png")); err != nil {
		t.Errorf("newest chart missing after rotate: %v", err)
	}
}

func TestRotate_UnderLimitNoop(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 30)

	writeChart(t, s.Dir(), "only.png", time.Now())
	deleted, err := s.Rotate()
	if err != nil {
		t.Fatalf("Rotate() unexpected error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Rotate() deleted = %d, want 0", deleted)
	}
}

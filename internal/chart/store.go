// Package chart manages the directory of chart images the analysis agent
// writes as a side effect. The store owns artifact lifecycle: discovery of
// fresh charts after an agent run and rotation of old ones.
package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/datajar/datajar/internal/log"
)

// lockFile guards list/delete against concurrent processes sharing the
// same chart directory.
const lockFile = ".lock"

// Artifact is one chart image on disk.
type Artifact struct {
	Path      string
	CreatedAt time.Time
}

// Store manages a single chart directory. Callers namespace directories
// per session so concurrent sessions never observe each other's charts.
type Store struct {
	dir         string
	maxRetained int
	lock        *flock.Flock
	logger      log.Logger
}

// NewStore opens (creating if needed) the chart directory at dir and keeps
// at most maxRetained charts across rotations.
func NewStore(dir string, maxRetained int, logger log.Logger) (*Store, error) {
	if maxRetained <= 0 {
		return nil, fmt.Errorf("max retained charts must be positive, got %d", maxRetained)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating chart directory %s: %w", dir, err)
	}
	return &Store{
		dir:         dir,
		maxRetained: maxRetained,
		lock:        flock.New(filepath.Join(dir, lockFile)),
		logger:      logger,
	}, nil
}

// Dir returns the directory the store manages. The analysis agent is
// pointed here so its chart side effects land where the store can see them.
func (s *Store) Dir() string { return s.dir }

// LatestSince returns the newest chart created at or after t, or nil when
// no such chart exists. A zero t matches any chart. Absence is not an
// error.
func (s *Store) LatestSince(t time.Time) (*Artifact, error) {
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("locking chart directory: %w", err)
	}
	defer s.unlock()

	charts, err := s.list()
	if err != nil {
		return nil, err
	}

	// list is oldest-first; walk backwards for the newest match.
	for i := len(charts) - 1; i >= 0; i-- {
		if t.IsZero() || !charts[i].CreatedAt.Before(t) {
			a := charts[i]
			return &a, nil
		}
	}
	return nil, nil
}

// Rotate deletes the oldest charts until at most maxRetained remain.
// Returns the number of charts deleted.
func (s *Store) Rotate() (int, error) {
	if err := s.lock.Lock(); err != nil {
		return 0, fmt.Errorf("locking chart directory: %w", err)
	}
	defer s.unlock()

	charts, err := s.list()
	if err != nil {
		return 0, err
	}
	if len(charts) <= s.maxRetained {
		return 0, nil
	}

	deleted := 0
	for _, a := range charts[:len(charts)-s.maxRetained] {
		if err := os.Remove(a.Path); err != nil {
			return deleted, fmt.Errorf("removing chart %s: %w", a.Path, err)
		}
		deleted++
	}

	s.logger.Debug("rotated charts", "deleted", deleted, "retained", s.maxRetained)
	return deleted, nil
}

// Count returns the number of charts currently stored.
func (s *Store) Count() (int, error) {
	if err := s.lock.Lock(); err != nil {
		return 0, fmt.Errorf("locking chart directory: %w", err)
	}
	defer s.unlock()

	charts, err := s.list()
	if err != nil {
		return 0, err
	}
	return len(charts), nil
}

// list returns all chart images oldest-first. Ties on creation time break
// by filename so the order is deterministic.
func (s *Store) list() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading chart directory %s: %w", s.dir, err)
	}

	var charts []Artifact
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue // deleted between ReadDir and Info
			}
			return nil, fmt.Errorf("stat chart %s: %w", e.Name(), err)
		}
		charts = append(charts, Artifact{
			Path:      filepath.Join(s.dir, e.Name()),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(charts, func(i, j int) bool {
		if !charts[i].CreatedAt.Equal(charts[j].CreatedAt) {
			return charts[i].CreatedAt.Before(charts[j].CreatedAt)
		}
		return charts[i].Path < charts[j].Path
	})
	return charts, nil
}

func (s *Store) unlock() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("unlocking chart directory", "error", err)
	}
}

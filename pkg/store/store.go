// Package store persists analysis results so that earlier runs can be
// listed and compared.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pangeorg/rusty-stl/pkg/batch"
)

// ErrNotFound is returned when a record or run does not exist.
var ErrNotFound = errors.New("store: not found")

// Record is one stored file result.
type Record struct {
	ID         string    `json:"id"`
	RunID      string    `json:"runId"`
	Name       string    `json:"name"`
	MeshVolume float64   `json:"meshVolume"`
	BoxVolume  float64   `json:"boxVolume"`
	Triangles  int       `json:"triangles"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Run summarizes the records sharing a run id.
type Run struct {
	ID        string    `json:"id"`
	Files     int       `json:"files"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository is the persistence port.
type Repository interface {
	Save(ctx context.Context, recs ...*Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListByRun(ctx context.Context, runID string) ([]*Record, error)
	Runs(ctx context.Context, limit int) ([]Run, error)
}

// Clock abstracts time.Now for tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NewID returns a fresh random identifier.
func NewID() string { return uuid.New().String() }

// FromResults converts batch results into records of one new run.
func FromResults(results []batch.FileResult, now time.Time) (runID string, recs []*Record) {
	runID = NewID()
	recs = make([]*Record, len(results))
	for i, r := range results {
		recs[i] = &Record{
			ID:         NewID(),
			RunID:      runID,
			Name:       r.Name,
			MeshVolume: r.MeshVolume,
			BoxVolume:  r.BoxVolume,
			Triangles:  r.Triangles,
			Error:      r.Error,
			CreatedAt:  now.UTC(),
		}
	}
	return runID, recs
}

// Memory is an in-process Repository, used when no database is configured.
type Memory struct {
	mu   sync.RWMutex
	recs []*Record
	byID map[string]*Record
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]*Record)}
}

func (m *Memory) Save(_ context.Context, recs ...*Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		cp := *r
		if old, ok := m.byID[r.ID]; ok {
			*old = cp
			continue
		}
		m.byID[r.ID] = &cp
		m.recs = append(m.recs, &cp)
	}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) ListByRun(_ context.Context, runID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Record
	for _, r := range m.recs {
		if r.RunID == runID {
			cp := *r
			out = append(out, &cp)
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (m *Memory) Runs(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := make(map[string]int)
	var runs []Run
	for _, r := range m.recs {
		i, ok := idx[r.RunID]
		if !ok {
			i = len(runs)
			idx[r.RunID] = i
			runs = append(runs, Run{ID: r.RunID, CreatedAt: r.CreatedAt})
		}
		runs[i].Files++
		if r.Error != "" {
			runs[i].Failed++
		}
		if r.CreatedAt.Before(runs[i].CreatedAt) {
			runs[i].CreatedAt = r.CreatedAt
		}
	}
	// Newest first; insertion order breaks ties.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return truncate(runs, limit), nil
}

const defaultRunLimit = 20

func truncate(runs []Run, limit int) []Run {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

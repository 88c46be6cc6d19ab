// Package registry keeps the in-memory index of test runs. It is the
// only structure shared between the API goroutines and the per-run
// pipeline goroutines; individual records have their own internal
// synchronization and a single writer.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/pipeline"
)

var (
	ErrNotFound    = errors.New("no run with that id")
	ErrDuplicateID = errors.New("a run with that id already exists")
	// ErrRunActive rejects deletion of a run that is still executing.
	ErrRunActive = errors.New("run is still executing")
)

// Registry is a concurrency-safe map of run id to result record.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*pipeline.Result
}

func New() *Registry {
	return &Registry{
		runs: make(map[string]*pipeline.Result),
	}
}

func (r *Registry) Insert(res *pipeline.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[res.ID()]; ok {
		return ErrDuplicateID
	}
	r.runs[res.ID()] = res
	return nil
}

func (r *Registry) Get(id string) (*pipeline.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.runs[id]
	return res, ok
}

// List returns runs ordered most-recent-first. A limit of 0 or less
// returns everything.
func (r *Registry) List(limit int) []*pipeline.Result {
	r.mu.RLock()
	out := make([]*pipeline.Result, 0, len(r.runs))
	for _, res := range r.runs {
		out = append(out, res)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt().After(out[j].CreatedAt())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes a terminal run. Running runs cannot be deleted.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.runs[id]
	if !ok {
		return ErrNotFound
	}
	if !res.Status().Terminal() {
		return ErrRunActive
	}
	delete(r.runs, id)
	return nil
}

// Cleanup removes terminal runs older than the cutoff. Running runs are
// never touched regardless of age. Returns how many runs were removed.
func (r *Registry) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, res := range r.runs {
		if res.Status().Terminal() && res.CreatedAt().Before(cutoff) {
			delete(r.runs, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runs)
}

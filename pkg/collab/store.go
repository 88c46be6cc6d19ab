package collab

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/audio"
)

// DiskStore archives audio artifacts under opaque ids in a single
// directory. Metadata lives in memory only; the files survive restarts
// but the index does not.
type DiskStore struct {
	dir    string
	logger log.Logger

	mu      sync.RWMutex
	entries map[string]*storeEntry
}

type storeEntry struct {
	ID        string
	Filename  string
	Path      string
	Size      int64
	Duration  float64
	Format    string
	CreatedAt time.Time
	Metadata  map[string]any
}

var ErrNotStored = errors.New("no audio stored under that id")

func NewDiskStore(logger log.Logger, dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create audio storage directory")
	}
	return &DiskStore{
		dir:     dir,
		logger:  logger,
		entries: make(map[string]*storeEntry),
	}, nil
}

func (s *DiskStore) Put(ctx context.Context, a *audio.Artifact, metadata map[string]any) (string, error) {
	if _, err := os.Stat(a.Path); err != nil {
		return "", errors.Wrapf(err, "audio file %s does not exist", a.Path)
	}

	id := uuid.NewString()
	ext := filepath.Ext(a.Path)
	filename := id + ext
	dst := filepath.Join(s.dir, filename)

	if err := copyFile(a.Path, dst); err != nil {
		return "", errors.Wrap(err, "failed to archive audio file")
	}

	info, err := os.Stat(dst)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.entries[id] = &storeEntry{
		ID:        id,
		Filename:  filename,
		Path:      dst,
		Size:      info.Size(),
		Duration:  a.Duration,
		Format:    strings.TrimPrefix(ext, "."),
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}
	s.mu.Unlock()

	s.logger.Debug("archived audio", "id", id, "file", filename)
	return id, nil
}

func (s *DiskStore) Retrieve(id string) (*audio.Artifact, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotStored
	}
	if _, err := os.Stat(entry.Path); err != nil {
		// The file went away underneath us; drop the stale index entry.
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, errors.Wrapf(ErrNotStored, "file %s is missing", entry.Filename)
	}
	return &audio.Artifact{
		Path:     entry.Path,
		Duration: entry.Duration,
		Size:     entry.Size,
		Format:   entry.Format,
	}, nil
}

func (s *DiskStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to remove archived audio", "id", id, "err", err)
		return false
	}
	delete(s.entries, id)
	return true
}

// StoredFile is one archived audio entry as returned by List.
type StoredFile struct {
	ID        string    `json:"file_id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"file_size"`
	Duration  float64   `json:"duration"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *DiskStore) List(limit int) []StoredFile {
	s.mu.RLock()
	entries := make([]*storeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		out = append(out, StoredFile{
			ID:        e.ID,
			Filename:  e.Filename,
			Size:      e.Size,
			Duration:  e.Duration,
			Format:    e.Format,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// Stats summarizes the archive for the system-status endpoint.
func (s *DiskStore) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totalSize int64
	var totalDuration float64
	for _, e := range s.entries {
		totalSize += e.Size
		totalDuration += e.Duration
	}
	return map[string]any{
		"total_files":            len(s.entries),
		"total_size_bytes":       totalSize,
		"total_duration_seconds": totalDuration,
		"storage_path":           s.dir,
	}
}

// CleanupOlderThan deletes archived files older than the cutoff and
// returns how many were removed.
func (s *DiskStore) CleanupOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.RLock()
	var stale []string
	for id, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range stale {
		if s.Delete(id) {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("cleaned up archived audio", "removed", removed)
	}
	return removed
}

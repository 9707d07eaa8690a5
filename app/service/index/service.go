package index

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"runcoach/app/config"
	"runcoach/app/util/apperr"

	"github.com/samber/do"
)

const (
	metaFileName    = "meta.json"
	entriesFileName = "entries.jsonl"
)

// snapshot is an immutable view of the index. Searches read whatever
// snapshot pointer they grab and never observe a partial rebuild.
type snapshot struct {
	dim     int
	entries []Entry
}

type Service struct {
	dir string

	mu     sync.RWMutex
	snap   *snapshot
	loaded bool
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return Open(cfg.Index.Dir)
}

// Open loads the persisted index from dir. A missing directory yields an
// unavailable index (serving starts, health reports it); a present but
// empty index is valid.
func Open(dir string) (*Service, error) {
	s := &Service{
		dir:  dir,
		snap: &snapshot{},
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) load() error {
	metaData, err := os.ReadFile(filepath.Join(s.dir, metaFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperr.Index("failed to read index metadata: %w", err)
	}

	var m meta
	if err = json.Unmarshal(metaData, &m); err != nil {
		return apperr.Index("corrupt index metadata: %w", err)
	}

	file, err := os.Open(filepath.Join(s.dir, entriesFileName))
	if err != nil {
		return apperr.Index("failed to open index entries: %w", err)
	}
	defer file.Close()

	entries := make([]Entry, 0, m.Count)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry Entry
		if err = json.Unmarshal([]byte(line), &entry); err != nil {
			return apperr.Index("corrupt index entry: %w", err)
		}

		if m.Dimension != 0 && len(entry.Vector) != m.Dimension {
			return apperr.Index("entry %s has dimension %d, index expects %d",
				entry.ID, len(entry.Vector), m.Dimension)
		}

		entries = append(entries, entry)
	}

	if err = scanner.Err(); err != nil {
		return apperr.Index("error reading index entries: %w", err)
	}

	s.snap = &snapshot{dim: m.Dimension, entries: entries}
	s.loaded = true

	slog.Info("Loaded vector index",
		"dir", s.dir,
		"entries", len(entries),
		"dimension", m.Dimension,
	)

	return nil
}

// Add appends entries to the index and persists the result. The first
// vector ever added fixes the index dimensionality; mismatched vectors are
// rejected before any entry of the batch is applied.
func (s *Service) Add(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.snap.dim
	if dim == 0 {
		dim = len(entries[0].Vector)
	}

	for _, entry := range entries {
		if len(entry.Vector) != dim {
			return apperr.Index("entry %s has dimension %d, index expects %d",
				entry.ID, len(entry.Vector), dim)
		}
	}

	combined := make([]Entry, 0, len(s.snap.entries)+len(entries))
	combined = append(combined, s.snap.entries...)
	combined = append(combined, entries...)

	next := &snapshot{dim: dim, entries: combined}

	if err := s.persist(next); err != nil {
		return err
	}

	s.snap = next
	s.loaded = true

	return nil
}

// Rebuild atomically replaces the entire index contents. Concurrent
// searches see either the full old or the full new entry set. The previous
// persisted state stays untouched if anything fails before the swap.
func (s *Service) Rebuild(entries []Entry) error {
	var dim int
	if len(entries) > 0 {
		dim = len(entries[0].Vector)
	}

	for _, entry := range entries {
		if len(entry.Vector) != dim {
			return apperr.Index("entry %s has dimension %d, rebuild expects %d",
				entry.ID, len(entry.Vector), dim)
		}
	}

	next := &snapshot{dim: dim, entries: entries}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(next); err != nil {
		return err
	}

	s.snap = next
	s.loaded = true

	slog.Info("Rebuilt vector index", "entries", len(entries), "dimension", dim)

	return nil
}

// persist writes the snapshot into a sibling temp directory, then swaps it
// in place so a crash mid-write never leaves a half-written index visible.
func (s *Service) persist(snap *snapshot) error {
	tmpDir := s.dir + ".tmp"
	oldDir := s.dir + ".old"

	_ = os.RemoveAll(tmpDir)
	_ = os.RemoveAll(oldDir)

	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return apperr.Index("failed to create index directory: %w", err)
	}

	if err := writeSnapshot(tmpDir, snap); err != nil {
		_ = os.RemoveAll(tmpDir)
		return err
	}

	if _, err := os.Stat(s.dir); err == nil {
		if err = os.Rename(s.dir, oldDir); err != nil {
			return apperr.Index("failed to move previous index aside: %w", err)
		}
	}

	if err := os.Rename(tmpDir, s.dir); err != nil {
		return apperr.Index("failed to move new index into place: %w", err)
	}

	_ = os.RemoveAll(oldDir)

	return nil
}

func writeSnapshot(dir string, snap *snapshot) error {
	m := meta{
		Dimension: snap.dim,
		Count:     len(snap.entries),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	metaData, err := json.Marshal(m)
	if err != nil {
		return apperr.Index("failed to marshal index metadata: %w", err)
	}

	if err = os.WriteFile(filepath.Join(dir, metaFileName), metaData, 0644); err != nil {
		return apperr.Index("failed to write index metadata: %w", err)
	}

	file, err := os.Create(filepath.Join(dir, entriesFileName))
	if err != nil {
		return apperr.Index("failed to create index entries file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	for _, entry := range snap.entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return apperr.Index("failed to marshal entry %s: %w", entry.ID, err)
		}
		if _, err = writer.WriteString(string(data) + "\n"); err != nil {
			return apperr.Index("failed to write entry %s: %w", entry.ID, err)
		}
	}

	if err = writer.Flush(); err != nil {
		return apperr.Index("failed to flush index entries: %w", err)
	}

	return nil
}

// Search returns the k entries most similar to query, best first. Ties are
// broken by insertion order, earlier wins. An empty index yields an empty
// result, not an error.
func (s *Service) Search(query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	if k <= 0 || len(snap.entries) == 0 {
		return nil, nil
	}

	if len(query) != snap.dim {
		return nil, apperr.Index("query has dimension %d, index expects %d",
			len(query), snap.dim)
	}

	results := make([]Result, len(snap.entries))
	for i, entry := range snap.entries {
		results[i] = Result{
			Entry: entry,
			Score: cosineSimilarity(query, entry.Vector),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}

	return results[:k], nil
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.snap.entries)
}

func (s *Service) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap.dim
}

// Ready reports whether a persisted index was loaded or built in-process.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loaded
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

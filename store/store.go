// Package store persists crawl batches as flat, self-describing JSON files.
// Every save produces a new timestamped file; previously written batches are
// never appended to or mutated.
package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lukemcguire/hubcrawl/record"
)

// Store writes batches under a root directory, one subdirectory per task
// label.
type Store struct {
	root   string
	logger *log.Logger
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output root %s: %w", dir, err)
	}
	return &Store{root: dir, logger: log.Default()}, nil
}

// Save deduplicates the batch by identifier (first occurrence in discovery
// order wins), writes it as one JSON document, and returns the written path.
// The batch's Count is corrected to the persisted record count.
func (s *Store) Save(batch *record.Batch, label string) (string, error) {
	batch.Records = dedupe(batch.Records)
	batch.Count = len(batch.Records)

	dir := filepath.Join(s.root, sanitizeLabel(label))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create batch directory %s: %w", dir, err)
	}

	name := fmt.Sprintf("batch_%s_%s.json", batch.CrawledAt.Format("20060102_150405"), shortID(batch.ID))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create batch file %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		f.Close()
		return "", fmt.Errorf("encode batch %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close batch file %s: %w", path, err)
	}

	s.logger.Info("batch saved", "path", path, "records", batch.Count)
	return path, nil
}

// ListBatches enumerates previously written batch files under root without
// reading their contents, sorted by path (and therefore by timestamp within
// one label).
func (s *Store) ListBatches() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), "batch_") && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list batches under %s: %w", s.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// dedupe keeps the first occurrence of each identifier, preserving discovery
// order. Records lacking mandatory fields are dropped entirely.
func dedupe(records []record.DetailRecord) []record.DetailRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, rec := range records {
		if !rec.Valid() || seen[rec.ID] {
			continue
		}
		seen[rec.ID] = true
		out = append(out, rec)
	}
	return out
}

// sanitizeLabel maps a batch label to a safe directory name.
func sanitizeLabel(label string) string {
	if label == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, label)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "batch"
	}
	return id
}

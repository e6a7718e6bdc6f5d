package store

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// SeenTracker is a disk-backed bloom filter over record identifiers. It lets
// repeat runs skip detail fetches for entities already harvested, at constant
// memory regardless of how many identifiers accumulate. Sized for 100,000+
// identifiers with a 0.1% false positive rate.
type SeenTracker struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	count     uint64 // identifiers added since last sync
	syncEvery uint64 // sync to disk every N identifiers
	lastErr   error  // last error from sync operations
}

// OpenSeenTracker opens (or creates) the tracker file at path. An existing
// file's filter state is restored, so identifiers marked in earlier runs stay
// marked. A file that cannot be decoded is reset to an empty filter.
func OpenSeenTracker(path string) (*SeenTracker, error) {
	filter := bloom.NewWithEstimates(100000, 0.001)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open seen file: %w", err)
	}

	filterSize := int64(filter.Cap())
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat seen file: %w", err)
	}
	fresh := info.Size() == 0
	if info.Size() != filterSize {
		if err := f.Truncate(filterSize); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("size seen file: %w", err)
		}
	}

	mapped, err := mmap.MapRegion(f, int(filterSize), mmap.RDWR, 0, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap seen file: %w", err)
	}

	if fresh {
		data, err := filter.MarshalBinary()
		if err != nil {
			_ = mapped.Unmap()
			_ = f.Close()
			return nil, fmt.Errorf("marshal bloom filter: %w", err)
		}
		copy(mapped, data)
	} else if err := filter.UnmarshalBinary(mapped); err != nil {
		// Corrupt or incompatible state degrades to an empty filter; the only
		// cost is refetching details that would otherwise be skipped.
		filter = bloom.NewWithEstimates(100000, 0.001)
	}

	return &SeenTracker{
		filter:    filter,
		file:      f,
		mmap:      mapped,
		syncEvery: 100,
	}, nil
}

// Seen reports whether the identifier has been marked. Bloom filters can have
// false positives but no false negatives.
func (s *SeenTracker) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.filter.TestString(id)
}

// Mark records the identifier as harvested.
func (s *SeenTracker) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filter.AddString(id)
	s.count++

	if s.count >= s.syncEvery {
		// Record sync error for later retrieval; periodic sync is best-effort
		if err := s.syncLocked(); err != nil {
			s.lastErr = err
		}
	}
}

// MarkIfNew atomically checks and marks the identifier. Returns true if it
// was new, false if already marked.
func (s *SeenTracker) MarkIfNew(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.TestString(id) {
		return false
	}

	s.filter.AddString(id)
	s.count++

	if s.count >= s.syncEvery {
		if err := s.syncLocked(); err != nil {
			s.lastErr = err
		}
	}

	return true
}

// syncLocked persists the bloom filter to disk. Must be called with mu held.
func (s *SeenTracker) syncLocked() error {
	data, err := s.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}

	if len(data) <= len(s.mmap) {
		copy(s.mmap, data)
	}

	if flushErr := s.mmap.Flush(); flushErr != nil {
		return fmt.Errorf("flush mmap: %w", flushErr)
	}
	s.count = 0
	return nil
}

// Close syncs pending marks and releases the mapping. The backing file is
// kept so later runs can reload the filter.
func (s *SeenTracker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error

	if s.lastErr != nil {
		errs = append(errs, s.lastErr)
	}

	if s.mmap != nil {
		if s.count > 0 {
			if syncErr := s.syncLocked(); syncErr != nil {
				errs = append(errs, syncErr)
			}
		}
		if err := s.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		s.mmap = nil
	}

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		s.file = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close seen tracker: %w", errors.Join(errs...))
	}

	return nil
}

// LastError returns the last error recorded during periodic syncs. Callers
// can check for disk I/O trouble without interrupting a harvest.
func (s *SeenTracker) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

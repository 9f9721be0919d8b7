package fingerprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileRegistry keeps the set in memory and mirrors it to a JSON array on disk.
// The document is rewritten in full after every addition. A sibling .lock
// file serialises read-modify-write between processes sharing the path.
type FileRegistry struct {
	path   string
	lock   *flock.Flock
	logger zerolog.Logger

	mu   sync.Mutex
	seen map[Fingerprint]struct{}
}

// OpenFileRegistry loads the registry at path, starting empty when the file
// does not exist yet.
func OpenFileRegistry(path string) (*FileRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("registry path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	r := &FileRegistry{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: log.With().Str("component", "registry").Str("path", path).Logger(),
		seen:   make(map[Fingerprint]struct{}),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	r.logger.Debug().Int("entries", len(r.seen)).Msg("fingerprint registry loaded")
	return r, nil
}

// Contains reports whether fp has been recorded by this process or was on
// disk at the last load.
func (r *FileRegistry) Contains(_ context.Context, fp Fingerprint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[fp]
	return ok, nil
}

// Add records fp; adding an existing entry is a no-op.
func (r *FileRegistry) Add(ctx context.Context, fp Fingerprint) error {
	_, err := r.Claim(ctx, fp)
	return err
}

// Claim inserts fp unless another request (in this or another process)
// already did.
func (r *FileRegistry) Claim(_ context.Context, fp Fingerprint) (bool, error) {
	if fp == "" {
		return false, errEmptyFingerprint
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.lock.Lock(); err != nil {
		return false, fmt.Errorf("lock registry: %w", err)
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn().Err(err).Msg("release registry lock")
		}
	}()

	// pick up entries written by other processes since we last looked
	if err := r.load(); err != nil {
		return false, err
	}
	if _, ok := r.seen[fp]; ok {
		return false, nil
	}
	r.seen[fp] = struct{}{}
	if err := r.save(); err != nil {
		delete(r.seen, fp)
		return false, fmt.Errorf("persist registry: %w", err)
	}
	r.logger.Info().Str("fp", fp.Short()).Int("entries", len(r.seen)).Msg("fingerprint recorded")
	return true, nil
}

// Len returns the number of known fingerprints.
func (r *FileRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func (r *FileRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read registry: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse registry %s: %w", r.path, err)
	}
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			r.seen[Fingerprint(v)] = struct{}{}
		}
	}
	return nil
}

// save writes the whole set atomically via a temp file.
func (r *FileRegistry) save() error {
	list := make([]string, 0, len(r.seen))
	for fp := range r.seen {
		list = append(list, string(fp))
	}
	sort.Strings(list)

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

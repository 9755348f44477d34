// Package store persists each entity kind as an independent JSON file.
// Writes are atomic: marshal → <kind>.json.tmp → fsync → rotate the current
// file to <kind>.json.bak → rename the tmp over the primary. On a corrupt
// or missing primary, Load falls back to the .bak generation.
//
// There are no cross-kind transactions; callers sequence dependent writes
// (charges before cashier before fiscal). Each kind serializes on its own
// mutex, which matches the single-process request model.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
)

// Kind names for the persisted collections.
const (
	KindTableOrders     = "table_orders"
	KindRoomCharges     = "room_charges"
	KindCashierSessions = "cashier_sessions"
	KindFiscalPool      = "fiscal_pool"
	KindProducts        = "products"
	KindPaymentMethods  = "payment_methods"
	KindOperators       = "operators"
	KindRooms           = "rooms"
	KindStock           = "stock"
)

// Store owns the data directory and the per-kind mutexes.
type Store struct {
	dir string

	mu    sync.Mutex
	kinds map[string]*sync.Mutex
}

// New creates the data directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	return &Store{dir: dir, kinds: make(map[string]*sync.Mutex)}, nil
}

// Dir returns the data directory (used by the PDF renderer for output).
func (s *Store) Dir() string { return s.dir }

func (s *Store) lock(kind string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.kinds[kind]
	if !ok {
		m = &sync.Mutex{}
		s.kinds[kind] = m
	}
	return m
}

func (s *Store) path(kind string) string {
	return filepath.Join(s.dir, kind+".json")
}

// Load reads the kind's collection into out (a pointer to slice or map).
// A missing file leaves out untouched and returns nil — an empty collection
// is not an error. A corrupt primary falls back to the .bak generation.
func (s *Store) Load(kind string, out any) error {
	m := s.lock(kind)
	m.Lock()
	defer m.Unlock()
	return s.loadLocked(kind, out)
}

func (s *Store) loadLocked(kind string, out any) error {
	path := s.path(kind)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil {
		if jsonErr := json.Unmarshal(data, out); jsonErr == nil {
			return nil
		} else {
			log.Warn().Str("kind", kind).Err(jsonErr).Msg("store: primary corrupt, trying .bak")
		}
	} else {
		log.Warn().Str("kind", kind).Err(err).Msg("store: primary unreadable, trying .bak")
	}

	bak, bakErr := os.ReadFile(path + ".bak")
	if bakErr != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageError, kind, bakErr)
	}
	if err := json.Unmarshal(bak, out); err != nil {
		return fmt.Errorf("%w: %s (.bak): %v", domain.ErrStorageError, kind, err)
	}
	log.Info().Str("kind", kind).Msg("store: recovered collection from .bak")
	return nil
}

// Save atomically replaces the kind's collection, retaining the previous
// generation as .bak.
func (s *Store) Save(kind string, in any) error {
	m := s.lock(kind)
	m.Lock()
	defer m.Unlock()
	return s.saveLocked(kind, in)
}

func (s *Store) saveLocked(kind string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", domain.ErrStorageError, kind, err)
	}

	path := s.path(kind)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open tmp for %s: %v", domain.ErrStorageError, kind, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorageError, kind, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: fsync %s: %v", domain.ErrStorageError, kind, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: close %s: %v", domain.ErrStorageError, kind, err)
	}

	// Keep one previous generation. A missing primary (first save) is fine.
	if err := os.Rename(path, path+".bak"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("kind", kind).Err(err).Msg("store: could not rotate .bak")
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", domain.ErrStorageError, kind, err)
	}
	return nil
}

// Update runs fn over the kind's collection under its mutex: load, mutate,
// save. fn receiving a freshly loaded value prevents lost updates between
// concurrent handlers touching the same kind.
func Update[T any](s *Store, kind string, fn func(*T) error) error {
	m := s.lock(kind)
	m.Lock()
	defer m.Unlock()

	var col T
	if err := s.loadLocked(kind, &col); err != nil {
		return err
	}
	if err := fn(&col); err != nil {
		return err
	}
	return s.saveLocked(kind, col)
}

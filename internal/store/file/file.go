// Package file persists history and bills as two JSON documents on disk,
// each rewritten in full on every change.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"monthlynet/internal/core"
)

const (
	HistoryFile = "monthlynet_history.json"
	BillsFile   = "monthlynet_bills.json"
	StateFile   = "monthlynet_state.json"
)

type state struct {
	LastBillReset time.Time `json:"lastBillReset"`
}

type Store struct {
	mu      sync.Mutex
	dir     string // empty for memory-only stores
	history []core.HistoryEntry
	bills   []core.Bill
	state   state
}

// NewMemory returns a store that never touches disk.
func NewMemory() *Store {
	return &Store{}
}

// Open loads both collections from dir, creating it if needed. Missing files
// start empty. A corrupt file is renamed to <name>.corrupt-<time> and the
// collection starts empty.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	history, err := readJSON[core.HistoryEntry](filepath.Join(dir, HistoryFile))
	if err != nil {
		return nil, err
	}
	bills, err := readJSON[core.Bill](filepath.Join(dir, BillsFile))
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir, history: history, bills: bills}
	if data, err := os.ReadFile(filepath.Join(dir, StateFile)); err == nil {
		if err := json.Unmarshal(data, &s.state); err != nil {
			slog.Warn("Ignoring unreadable state file", "error", err)
			s.state = state{}
		}
	}
	slog.Info("Loaded file store", "dir", dir, "history", len(s.history), "bills", len(s.bills))
	return s, nil
}

// Append adds the entry and rewrites the history document.
func (s *Store) Append(_ context.Context, e core.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(append([]core.HistoryEntry(nil), s.history...), e)
	if err := s.save(HistoryFile, next); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	s.history = next
	return nil
}

// List returns a copy of the history in insertion order.
func (s *Store) List(_ context.Context) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.HistoryEntry(nil), s.history...), nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill(nil), s.bills...), nil
}

func (s *Store) AddBill(_ context.Context, b core.Bill) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceBills(append(append([]core.Bill(nil), s.bills...), b))
}

func (s *Store) ToggleBillPaid(_ context.Context, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := append([]core.Bill(nil), s.bills...)
	for i := range next {
		if next[i].ID == id {
			next[i].IsPaid = !next[i].IsPaid
			if err := s.replaceBills(next); err != nil {
				return core.Bill{}, err
			}
			return next[i], nil
		}
	}
	return core.Bill{}, core.ErrBillNotFound
}

func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]core.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		if b.ID != id {
			next = append(next, b)
		}
	}
	if len(next) == len(s.bills) {
		return core.ErrBillNotFound
	}
	return s.replaceBills(next)
}

func (s *Store) ResetBills(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceBills(core.ResetBills(s.bills))
}

func (s *Store) LastBillReset(_ context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastBillReset, nil
}

func (s *Store) SetLastBillReset(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	next.LastBillReset = t
	if err := s.save(StateFile, next); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	s.state = next
	return nil
}

// replaceBills persists next and swaps it in. Caller holds s.mu.
func (s *Store) replaceBills(next []core.Bill) error {
	if err := s.save(BillsFile, next); err != nil {
		return fmt.Errorf("save bills: %w", err)
	}
	s.bills = next
	return nil
}

// save writes v to name via a temp file and rename. No-op for memory stores.
func (s *Store) save(name string, v any) error {
	if s.dir == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func readJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		aside, rerr := quarantine(path)
		if rerr != nil {
			return nil, fmt.Errorf("decode %s: %w (keeping file: %v)", filepath.Base(path), err, rerr)
		}
		slog.Warn("Moved unreadable data file aside", "path", path, "moved_to", aside, "error", err)
		return nil, nil
	}
	return out, nil
}

// quarantine renames a corrupt document so the next save cannot overwrite it.
func quarantine(path string) (string, error) {
	aside := path + ".corrupt-" + time.Now().UTC().Format("20060102T150405.000")
	if err := os.Rename(path, aside); err != nil {
		return "", err
	}
	return aside, nil
}

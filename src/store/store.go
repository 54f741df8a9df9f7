// Package store persists the paper portfolio as a single JSON document. Writes go
// to a staging file first and are then renamed over the durable record, so a
// reader never observes a partially written state.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const stagingSuffix = ".tmp"

var (
	// ErrCorruptState marks a state file that exists but cannot be parsed. It is
	// unrecoverable: the caller must stop rather than reset the ledger.
	ErrCorruptState = errors.New("portfolio state is corrupt")
	// ErrStateNotFound is returned by Load when no state has been persisted yet.
	ErrStateNotFound = errors.New("portfolio state not found")
)

// CorruptStateError carries the path and parse failure of a corrupt state file.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("portfolio state %s is corrupt, manual intervention required: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

func (e *CorruptStateError) Is(target error) bool { return target == ErrCorruptState }

// FileStore reads and writes PortfolioState at a fixed path.
type FileStore struct {
	path   string
	logger *logrus.Entry
	now    func() time.Time
}

func NewFileStore(path string, logger *logrus.Entry) *FileStore {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &FileStore{
		path:   path,
		logger: logger.WithField("component", "store"),
		now:    time.Now,
	}
}

func (s *FileStore) Path() string { return s.path }

// LoadOrCreate returns the persisted state, or creates, persists and returns a fresh
// one funded with initialCash when nothing has been saved yet.
func (s *FileStore) LoadOrCreate(initialCash decimal.Decimal) (*model.PortfolioState, error) {
	state, err := s.Load()
	if err == nil {
		s.logger.WithField("path", s.path).Info("loaded portfolio state")
		return state, nil
	}
	if !errors.Is(err, ErrStateNotFound) {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"path":        s.path,
		"initialCash": initialCash.String(),
	}).Warn("no portfolio state found, initializing a new one")

	state = model.NewPortfolioState(initialCash)
	if err := s.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Load parses the persisted state without creating one.
func (s *FileStore) Load() (*model.PortfolioState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("read portfolio state %s: %w", s.path, err)
	}

	var state model.PortfolioState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &CorruptStateError{Path: s.path, Err: err}
	}
	state.Normalize()
	return &state, nil
}

// Save stamps last_updated and atomically replaces the durable record with the
// full state. A staging file left by an interrupted write is simply truncated.
func (s *FileStore) Save(state *model.PortfolioState) error {
	if state == nil {
		return errors.New("save portfolio state: nil state")
	}
	state.Normalize()

	previous := state.LastUpdated
	state.LastUpdated = model.NewTimestamp(s.now())

	if err := s.writeAtomic(state); err != nil {
		state.LastUpdated = previous
		return err
	}
	return nil
}

func (s *FileStore) writeAtomic(state *model.PortfolioState) (err error) {
	staging := s.path + stagingSuffix

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open staging file %s: %w", staging, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = f.Close()
		}
		if err != nil {
			_ = os.Remove(staging)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err = enc.Encode(state); err != nil {
		return fmt.Errorf("encode portfolio state: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync staging file %s: %w", staging, err)
	}
	closed = true
	if err = f.Close(); err != nil {
		return fmt.Errorf("close staging file %s: %w", staging, err)
	}

	if err = os.Rename(staging, s.path); err != nil {
		return fmt.Errorf("replace portfolio state %s: %w", s.path, err)
	}

	s.logger.WithField("lastUpdated", state.LastUpdated.String()).Debug("portfolio state persisted")
	return nil
}

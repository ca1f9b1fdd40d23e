// Package jsonfile persists expenses as a single JSON array on local disk.
//
// Every mutation reads the whole file and rewrites it in full. There is no
// locking: two processes adding at the same time can both compute the same
// next id, and the later write silently replaces the earlier one. That is an
// accepted limitation for a single-user tool.
//
// A file that does not parse as a JSON array is treated as corrupt and reset
// to an empty array the next time it is loaded.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"
	"budget/internal/log"
)

const emptyStore = "[]"

// Config locates the backing file.
type Config struct {
	Dir  string
	File string
	// BackupCorrupt copies unparsable content to <file>.bak before it is discarded.
	BackupCorrupt bool
}

// DefaultConfig returns the stock location, data/expenses.json relative to the working directory.
func DefaultConfig() Config {
	return Config{Dir: "data", File: "expenses.json"}
}

// Path returns the backing file path.
func (c Config) Path() string {
	return filepath.Join(c.dir(), c.File)
}

// BackupPath returns where corrupt content is copied when BackupCorrupt is set.
func (c Config) BackupPath() string {
	return c.Path() + ".bak"
}

func (c Config) dir() string {
	if c.Dir == "" {
		return "."
	}
	return c.Dir
}

type Store struct {
	cfg    Config
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Store)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for recovery warnings.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) { s.logger = logger.WithComponent(log.ComponentStorage) }
}

func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		cfg:    cfg,
		now:    time.Now,
		logger: log.Discard().WithComponent(log.ComponentStorage),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.cfg.Path()
}

// EnsureReady creates the data directory and an empty backing file when missing.
func (s *Store) EnsureReady() error {
	if err := os.MkdirAll(s.cfg.dir(), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	_, err := os.Stat(s.Path())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := os.WriteFile(s.Path(), []byte(emptyStore), 0o644); err != nil {
			return fmt.Errorf("create expenses file: %w", err)
		}
		s.logger.Debug("Created empty expenses file", log.FieldPath, s.Path())
		return nil
	default:
		return fmt.Errorf("stat expenses file: %w", err)
	}
}

// Load returns every stored record in insertion order. Corrupt content is
// discarded and replaced by an empty array; only I/O failures are returned.
func (s *Store) Load() ([]core.Expense, error) {
	if err := s.EnsureReady(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("read expenses file: %w", err)
	}

	result, err := decode(data)
	if errors.Is(err, ErrCorrupt) {
		return s.resetCorrupt(data, err)
	}
	if err != nil {
		return nil, err
	}

	if result.skipped > 0 {
		s.logger.Warn("Ignored malformed expense records",
			log.FieldPath, s.Path(),
			log.FieldSkipped, result.skipped,
			log.FieldCount, len(result.records))
	}
	return result.records, nil
}

func (s *Store) resetCorrupt(data []byte, cause error) ([]core.Expense, error) {
	fields := log.NewFields().
		WithOperation(log.OpRecover).
		WithError(cause)
	fields[log.FieldPath] = s.Path()

	if s.cfg.BackupCorrupt {
		if err := os.WriteFile(s.cfg.BackupPath(), data, 0o644); err != nil {
			return nil, fmt.Errorf("back up corrupt expenses file: %w", err)
		}
		fields[log.FieldBackup] = s.cfg.BackupPath()
	}

	s.logger.Warn("Expenses file is corrupt, resetting to empty", fields.ToSlice()...)

	if err := s.Save(nil); err != nil {
		return nil, err
	}
	return []core.Expense{}, nil
}

// Save overwrites the backing file with records as an indented JSON array.
func (s *Store) Save(records []core.Expense) error {
	if err := s.EnsureReady(); err != nil {
		return err
	}
	data, err := encode(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("write expenses file: %w", err)
	}
	return nil
}

// NextID returns the id the next added record will receive.
func (s *Store) NextID(records []core.Expense) int64 {
	return core.NextID(records)
}

// Add stores a new record, assigning its id and timestamp.
func (s *Store) Add(ctx context.Context, draft core.NewExpense) (core.Expense, error) {
	records, err := s.Load()
	if err != nil {
		return core.Expense{}, err
	}

	id := s.NextID(records)
	if id < 1 {
		return core.Expense{}, fmt.Errorf("%w: no id left after %d", core.ErrInvalidID, int64(math.MaxInt64))
	}

	e := core.Expense{
		ID:       id,
		Amount:   draft.Amount,
		Category: draft.Category,
		Note:     draft.Note,
		Date:     core.NewTimestamp(s.now()),
	}
	if err := s.Save(append(records, e)); err != nil {
		return core.Expense{}, err
	}

	s.logger.DebugContext(ctx, "Expense saved",
		log.FieldExpenseID, e.ID,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategory, e.Category,
		log.FieldPath, s.Path())
	return e, nil
}

// ListAll returns every stored record in insertion order.
func (s *Store) ListAll(_ context.Context) ([]core.Expense, error) {
	return s.Load()
}

// Close is a no-op; the file is not held open between operations.
func (s *Store) Close() error {
	return nil
}

func encode(records []core.Expense) ([]byte, error) {
	if records == nil {
		records = []core.Expense{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode expenses: %w", err)
	}
	return data, nil
}

package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/log"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	cfg := Config{Dir: filepath.Join(t.TempDir(), "data"), File: "expenses.json"}
	return New(cfg, opts...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestLoadInitializesEmptyStore(t *testing.T) {
	s := newTestStore(t)

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)

	assert.Equal(t, "[]", readFile(t, s.Path()))
}

func TestEnsureReadyIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(context.Background(), core.NewExpense{Amount: core.AmountFromFloat(3), Category: "food"})
	require.NoError(t, err)
	before := readFile(t, s.Path())

	require.NoError(t, s.EnsureReady())
	require.NoError(t, s.EnsureReady())
	_, err = s.Load()
	require.NoError(t, err)
	_, err = s.Load()
	require.NoError(t, err)

	assert.Equal(t, before, readFile(t, s.Path()))
}

func TestEnsureReadyCreatesNestedDirectories(t *testing.T) {
	s := New(Config{Dir: filepath.Join(t.TempDir(), "a", "b", "c"), File: "expenses.json"})

	require.NoError(t, s.EnsureReady())
	assert.FileExists(t, s.Path())
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inputs := []core.NewExpense{
		{Amount: core.AmountFromFloat(100), Category: "rent"},
		{Amount: core.AmountFromFloat(-4.2), Category: ""},
		{Amount: core.AmountFromFloat(0), Category: "misc", Note: "zero"},
	}
	for i, in := range inputs {
		e, err := s.Add(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), e.ID)
	}

	records, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, int64(i+1), r.ID)
	}
}

func TestAddContinuesFromMaxID(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save([]core.Expense{
		{ID: 7, Amount: core.AmountFromFloat(1), Category: "a", Date: core.NewTimestamp(time.Now())},
		{ID: 3, Amount: core.AmountFromFloat(2), Category: "b", Date: core.NewTimestamp(time.Now())},
	}))

	e, err := s.Add(context.Background(), core.NewExpense{Amount: core.AmountFromFloat(1), Category: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), e.ID)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2025, 6, 1, 12, 30, 45, 0, time.Local)

	records := []core.Expense{
		{ID: 1, Amount: core.AmountFromFloat(12.5), Category: "food", Note: "lunch", Date: core.NewTimestamp(at)},
		{ID: 2, Amount: core.AmountFromFloat(5), Category: "transport", Note: "", Date: core.NewTimestamp(at.Add(time.Hour))},
		{ID: 3, Amount: core.AmountFromFloat(-0.01), Category: "ünïcödé", Note: `quote " and <tag>`, Date: core.NewTimestamp(at.Add(48 * time.Hour))},
	}
	require.NoError(t, s.Save(records))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, len(records))
	for i := range records {
		assert.Equal(t, records[i].ID, loaded[i].ID)
		assert.True(t, records[i].Amount.Equal(loaded[i].Amount), "amount %d", i)
		assert.Equal(t, records[i].Category, loaded[i].Category)
		assert.Equal(t, records[i].Note, loaded[i].Note)
		assert.True(t, records[i].Date.Equal(loaded[i].Date.Time), "date %d", i)
	}
}

func TestSaveFormat(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

	require.NoError(t, s.Save([]core.Expense{
		{ID: 1, Amount: core.AmountFromFloat(12.5), Category: "food", Note: "lunch", Date: core.NewTimestamp(at)},
	}))

	want := `[
  {
    "id": 1,
    "amount": 12.5,
    "category": "food",
    "note": "lunch",
    "date": "2025-01-02T03:04:05"
  }
]`
	assert.Equal(t, want, readFile(t, s.Path()))

	require.NoError(t, s.Save(nil))
	assert.Equal(t, "[]", readFile(t, s.Path()))
}

func TestLoadRecoversFromCorruption(t *testing.T) {
	cases := map[string]string{
		"not json":    "not json",
		"empty file":  "",
		"object":      `{"id": 1}`,
		"truncated":   `[{"id": 1, "amount": 2`,
		"scalar":      `42`,
		"bare string": `"[]"`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, s.EnsureReady())
			require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

			records, err := s.Load()
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.Equal(t, "[]", readFile(t, s.Path()))
			assert.NoFileExists(t, s.cfg.BackupPath())
		})
	}
}

func TestLoadRecoveryLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelWarn, Output: &buf})
	s := newTestStore(t, WithLogger(logger))
	require.NoError(t, s.EnsureReady())
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0o644))

	_, err := s.Load()
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "corrupt")
	assert.Contains(t, buf.String(), "component=storage")
}

func TestLoadRecoveryWritesBackupWhenEnabled(t *testing.T) {
	cfg := Config{Dir: t.TempDir(), File: "expenses.json", BackupCorrupt: true}
	s := New(cfg)
	require.NoError(t, s.EnsureReady())
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0o644))

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, "[]", readFile(t, s.Path()))
	assert.Equal(t, "not json", readFile(t, cfg.BackupPath()))
}

func TestLoadNullIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureReady())
	require.NoError(t, os.WriteFile(s.Path(), []byte("null"), 0o644))

	records, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureReady())
	content := `[
  {"id": 1, "amount": 12.5, "category": "food", "note": "lunch", "date": "2025-01-02T03:04:05"},
  {"amount": 3, "category": "no id", "date": "2025-01-02T03:04:05"},
  {"id": 3, "category": "no amount", "date": "2025-01-02T03:04:05"},
  {"id": 4, "amount": 3, "date": "2025-01-02T03:04:05"},
  {"id": 5, "amount": 3, "category": "no date"},
  {"id": "6", "amount": 3, "category": "string id", "date": "2025-01-02T03:04:05"},
  {"id": 7, "amount": "3", "category": "string amount", "date": "2025-01-02T03:04:05"},
  {"id": 8, "amount": 3, "category": "bad date", "date": "tomorrow"},
  {"id": 0, "amount": 3, "category": "zero id", "date": "2025-01-02T03:04:05"},
  42,
  null,
  {"id": 12, "amount": 5, "category": "transport", "date": "2025-01-02T03:04:06"}
]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, int64(12), records[1].ID)
	assert.Equal(t, "", records[1].Note)

	// Loading does not rewrite a parseable file.
	assert.Equal(t, content, readFile(t, s.Path()))
}

func TestAddDefaultsNoteToEmptyString(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add(context.Background(), core.NewExpense{Amount: core.AmountFromFloat(5), Category: "transport"})
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, s.Path())), &raw))
	require.Len(t, raw, 1)
	note, ok := raw[0]["note"]
	require.True(t, ok, "note key must be present")
	assert.Equal(t, "", note)
}

func TestAddStampsTimestampFromClock(t *testing.T) {
	at := time.Date(2025, 2, 3, 4, 5, 6, 999_000_000, time.Local)
	s := newTestStore(t, WithClock(fixedClock(at)))

	e, err := s.Add(context.Background(), core.NewExpense{Amount: core.AmountFromFloat(1), Category: "x"})
	require.NoError(t, err)
	assert.True(t, e.Date.Equal(at.Truncate(time.Second)))
	assert.Equal(t, "2025-02-03T04:05:06", e.Date.String())
}

func TestEndToEndScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Now().Truncate(time.Second)

	first, err := s.Add(ctx, core.NewExpense{Amount: core.AmountFromFloat(12.50), Category: "food", Note: "lunch"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.True(t, first.Amount.Equal(core.AmountFromFloat(12.5)))
	assert.Equal(t, "food", first.Category)
	assert.Equal(t, "lunch", first.Note)
	assert.False(t, first.Date.Before(start))
	assert.WithinDuration(t, time.Now(), first.Date.Time, 5*time.Second)

	second, err := s.Add(ctx, core.NewExpense{Amount: core.AmountFromFloat(5), Category: "transport"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, "", second.Note)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "food", all[0].Category)
	assert.Equal(t, "transport", all[1].Category)
}

func TestLoadPropagatesIOErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("a file, not a directory"), 0o644))

	s := New(Config{Dir: blocker, File: "expenses.json"})
	_, err := s.Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupt)

	err = s.Save(nil)
	require.Error(t, err)
}

func TestAddFailsWhenIDsAreExhausted(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureReady())
	content := `[{"id": 9223372036854775807, "amount": 1, "category": "x", "note": "", "date": "2025-01-02T03:04:05"}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

	_, err := s.Add(context.Background(), core.NewExpense{Amount: core.AmountFromFloat(1), Category: "y"})
	require.ErrorIs(t, err, core.ErrInvalidID)

	assert.Equal(t, content, readFile(t, s.Path()))
	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestLoadAcceptsEscapedDates(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureReady())
	content := `[{"id": 1, "amount": 1, "category": "x", "note": "", "date": "2025\u002d01\u002d02T03:04:05"}]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-01-02T03:04:05", records[0].Date.String())
}

func TestLoadSkipsOutOfRangeAmounts(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureReady())
	content := `[
  {"id": 1, "amount": 1e100000000, "category": "huge", "date": "2025-01-02T03:04:05"},
  {"id": 2, "amount": 2, "category": "ok", "date": "2025-01-02T03:04:05"}
]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

	records, err := s.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].ID)
}

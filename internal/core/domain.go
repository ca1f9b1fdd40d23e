package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the on-disk date format: local wall clock, second precision, no offset.
const TimestampLayout = "2006-01-02T15:04:05"

type (
	// Timestamp is a local time truncated to whole seconds.
	Timestamp struct {
		time.Time
	}

	// Expense is a single stored expense record.
	Expense struct {
		ID       int64     `json:"id"`
		Amount   Amount    `json:"amount"`
		Category string    `json:"category"`
		Note     string    `json:"note"`
		Date     Timestamp `json:"date"`
	}

	// NewExpense carries the caller-supplied fields of an expense that has not been stored yet.
	NewExpense struct {
		Amount   Amount
		Category string
		Note     string
	}
)

var (
	ErrInvalidID     = errors.New("invalid id")
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
)

// NewTimestamp converts t to local time and drops sub-second precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.In(time.Local).Truncate(time.Second)}
}

// ParseTimestamp accepts the store layout and, for files edited by hand, RFC 3339.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(TimestampLayout, s, time.Local); err == nil {
		return Timestamp{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return NewTimestamp(t), nil
}

// String formats the timestamp in the store layout.
func (ts Timestamp) String() string {
	return ts.Time.Format(TimestampLayout)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.String() + `"`), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Validate checks the fields the store assigns. Amount, category and note are
// caller-supplied and deliberately left unchecked.
func (e Expense) Validate() error {
	if e.ID < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidID, e.ID)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date", ErrMissingField)
	}
	return nil
}

// NextID returns 1 for an empty sequence, otherwise the largest id plus one.
// The result wraps to a non-positive value when the largest id is math.MaxInt64.
func NextID(records []Expense) int64 {
	var max int64
	for _, r := range records {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}

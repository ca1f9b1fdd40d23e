package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"

	"budget/internal/core"
)

// ErrCorrupt reports a backing file that is not a JSON array.
var ErrCorrupt = errors.New("corrupt expenses file")

type decoded struct {
	records []core.Expense
	skipped int
}

// rawRecord distinguishes absent fields from zero values.
type rawRecord struct {
	ID       *int64          `json:"id"`
	Amount   *core.Amount    `json:"amount"`
	Category *string         `json:"category"`
	Note     *string         `json:"note"`
	Date     *core.Timestamp `json:"date"`
}

func (r rawRecord) expense() (core.Expense, error) {
	switch {
	case r.ID == nil:
		return core.Expense{}, fmt.Errorf("%w: id", core.ErrMissingField)
	case r.Amount == nil:
		return core.Expense{}, fmt.Errorf("%w: amount", core.ErrMissingField)
	case r.Category == nil:
		return core.Expense{}, fmt.Errorf("%w: category", core.ErrMissingField)
	case r.Date == nil:
		return core.Expense{}, fmt.Errorf("%w: date", core.ErrMissingField)
	}
	e := core.Expense{
		ID:       *r.ID,
		Amount:   *r.Amount,
		Category: *r.Category,
		Date:     *r.Date,
	}
	if r.Note != nil {
		e.Note = *r.Note
	}
	return e, e.Validate()
}

// decode parses the backing file. A file that is not a JSON array yields
// ErrCorrupt; individual elements with the wrong shape are skipped and counted.
func decode(data []byte) (decoded, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return decoded{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	out := decoded{records: make([]core.Expense, 0, len(elems))}
	for _, elem := range elems {
		var raw rawRecord
		if err := json.Unmarshal(elem, &raw); err != nil {
			out.skipped++
			continue
		}
		e, err := raw.expense()
		if err != nil {
			out.skipped++
			continue
		}
		out.records = append(out.records, e)
	}
	return out, nil
}

package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Expense is a row of the expenses table.
type Expense struct {
	ID       int64
	Amount   string
	Category string
	Note     string
	Date     string
}

type CreateExpenseParams struct {
	Amount   string
	Category string
	Note     string
	Date     string
}

const createExpense = `
INSERT INTO expenses (amount, category, note, date)
VALUES (?, ?, ?, ?)
RETURNING id, amount, category, note, date
`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.Amount,
		arg.Category,
		arg.Note,
		arg.Date,
	)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Amount,
		&i.Category,
		&i.Note,
		&i.Date,
	)
	return i, err
}

const listExpenses = `
SELECT id, amount, category, note, date
FROM expenses
ORDER BY id
`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.Amount,
			&i.Category,
			&i.Note,
			&i.Date,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

package storage

import (
	"context"

	"budget/internal/core"
)

// Ports implemented by every expense backend.
type (
	// ExpenseRecorder stores a new expense, assigning its id and timestamp.
	ExpenseRecorder interface {
		Add(ctx context.Context, draft core.NewExpense) (core.Expense, error)
	}

	// ExpenseLister returns every stored expense in insertion order.
	ExpenseLister interface {
		ListAll(ctx context.Context) ([]core.Expense, error)
	}

	// Repository is a complete backend.
	Repository interface {
		ExpenseRecorder
		ExpenseLister
		Close() error
	}
)

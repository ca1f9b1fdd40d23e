package services

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

// EventPublisher announces stored expenses to other systems.
type EventPublisher interface {
	PublishExpenseAdded(ctx context.Context, e core.Expense) error
	Close() error
}

// ExpenseService is the entry point for the add and list commands.
type ExpenseService struct {
	repo   storage.Repository
	events EventPublisher
	logger *log.Logger
}

// NewExpenseService wires a repository and an optional publisher. events may be nil.
func NewExpenseService(repo storage.Repository, events EventPublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		repo:   repo,
		events: events,
		logger: logger.WithComponent(log.ComponentExpense),
	}
}

// Add stores a new expense and returns it with its id and timestamp.
func (s *ExpenseService) Add(ctx context.Context, amount core.Amount, category, note string) (core.Expense, error) {
	e, err := s.repo.Add(ctx, core.NewExpense{
		Amount:   amount,
		Category: category,
		Note:     note,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense added",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithExpense(e.ID, e.Amount.String(), e.Category).
			ToSlice()...)

	// The expense is already stored; a failed notification must not fail the add
	if err := s.publish(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense added message",
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
	}

	return e, nil
}

// ListAll returns every stored expense in insertion order.
func (s *ExpenseService) ListAll(ctx context.Context) ([]core.Expense, error) {
	expenses, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) publish(ctx context.Context, e core.Expense) error {
	if s.events == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping expense added message")
		return nil
	}
	return s.events.PublishExpenseAdded(ctx, e)
}

// Close closes both the repository and the publisher
func (s *ExpenseService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}

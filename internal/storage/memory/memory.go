// Package memory provides an in-memory snapshot store, used as the
// default backend and by tests.
package memory

import (
	"context"
	"sync"

	"lifeledger/internal/core"
)

type Store struct {
	mu      sync.Mutex
	budget  *core.BudgetSnapshot
	savings *core.SavingsSnapshot
}

func New() *Store {
	return &Store{}
}

func (s *Store) SaveBudget(_ context.Context, snap core.BudgetSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := snap
	copied.Expenses = append([]core.ExpenseItem(nil), snap.Expenses...)
	copied.History = append([]core.BudgetHistoryEntry(nil), snap.History...)
	s.budget = &copied
	return nil
}

func (s *Store) LoadBudget(_ context.Context) (core.BudgetSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budget == nil {
		return core.BudgetSnapshot{}, false, nil
	}
	return *s.budget, true, nil
}

func (s *Store) SaveSavings(_ context.Context, snap core.SavingsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := snap
	copied.History = append([]core.MonthlySavingsRecord(nil), snap.History...)
	s.savings = &copied
	return nil
}

func (s *Store) LoadSavings(_ context.Context) (core.SavingsSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.savings == nil {
		return core.SavingsSnapshot{}, false, nil
	}
	return *s.savings, true, nil
}

func (s *Store) Close() error { return nil }

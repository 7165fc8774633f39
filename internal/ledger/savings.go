package ledger

import (
	"time"

	"lifeledger/internal/core"
)

// SavingsLedger owns the running savings balance and the append-only list
// of monthly records. It has no I/O and no locking; the service layer
// serializes access.
type SavingsLedger struct {
	balance float64
	history []core.MonthlySavingsRecord
}

// NewSavingsLedger starts with a zero balance and empty history.
func NewSavingsLedger() *SavingsLedger {
	return &SavingsLedger{}
}

// Restore replaces the ledger state with a persisted snapshot.
func (s *SavingsLedger) Restore(snap core.SavingsSnapshot) {
	s.balance = snap.TotalSavings
	s.history = append([]core.MonthlySavingsRecord(nil), snap.History...)
}

// Snapshot returns the persistable form of the ledger.
func (s *SavingsLedger) Snapshot() core.SavingsSnapshot {
	return core.SavingsSnapshot{
		TotalSavings: s.balance,
		History:      append([]core.MonthlySavingsRecord(nil), s.history...),
	}
}

func (s *SavingsLedger) Balance() float64 { return s.balance }

func (s *SavingsLedger) History() []core.MonthlySavingsRecord {
	return append([]core.MonthlySavingsRecord(nil), s.history...)
}

// AddToBalance applies a signed manual adjustment.
func (s *SavingsLedger) AddToBalance(amount float64) {
	s.balance += amount
}

// SetBalance overwrites the balance with an absolute value.
func (s *SavingsLedger) SetBalance(amount float64) {
	s.balance = amount
}

// RecordSnapshot applies a month-close record: the transferred delta is
// added to the balance and the completed record (with running balance and
// close timestamp) is appended to the history. Manual additions made
// during the month are already in the balance; only the transfer applies.
func (s *SavingsLedger) RecordSnapshot(rec core.MonthlySavingsRecord, closedAt time.Time) core.MonthlySavingsRecord {
	s.balance += rec.TransferredToSavings
	rec.SavingsTotalAfterTransfer = s.balance
	rec.ClosedAt = closedAt
	s.history = append(s.history, rec)
	return rec
}

// UndoLastSnapshot pops the most recent record and reverses its transfer.
// With an empty history it is a no-op and reports false.
func (s *SavingsLedger) UndoLastSnapshot() (core.MonthlySavingsRecord, bool) {
	if len(s.history) == 0 {
		return core.MonthlySavingsRecord{}, false
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.balance -= last.TransferredToSavings
	return last, true
}

// Reset clears the balance and history.
func (s *SavingsLedger) Reset() {
	s.balance = 0
	s.history = nil
}

// LastMonthTransfer returns the transfer of the most recent record, or 0.
func (s *SavingsLedger) LastMonthTransfer() float64 {
	if len(s.history) == 0 {
		return 0
	}
	return s.history[len(s.history)-1].TransferredToSavings
}

// AverageSavingsRate is total transferred over total income across the
// history, as a percentage. Zero when there is no history or no income.
func (s *SavingsLedger) AverageSavingsRate() float64 {
	if len(s.history) == 0 {
		return 0
	}
	var transferred, income float64
	for _, rec := range s.history {
		transferred += rec.TransferredToSavings
		income += rec.Income
	}
	if income <= 0 {
		return 0
	}
	return transferred / income * 100
}

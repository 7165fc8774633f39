// Package memory is an in-memory report appender used in tests and when
// no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"lifeledger/internal/core"
	ports "lifeledger/internal/sheets"
)

type Appender struct {
	mu   sync.Mutex
	rows []core.MonthlySavingsRecord
}

var _ ports.ReportAppender = (*Appender)(nil)

func New() *Appender {
	return &Appender{}
}

func (a *Appender) AppendMonthReport(_ context.Context, rec core.MonthlySavingsRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, rec)
	return nil
}

// Rows returns a copy of everything appended so far.
func (a *Appender) Rows() []core.MonthlySavingsRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.MonthlySavingsRecord(nil), a.rows...)
}

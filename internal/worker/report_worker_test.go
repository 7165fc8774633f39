package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifeledger/internal/amqp"
	"lifeledger/internal/core"
	sheetsmem "lifeledger/internal/sheets/memory"
)

type fakeStore struct {
	upserted []core.MonthlySavingsRecord
	deleted  []core.Month
	fail     bool
}

func (s *fakeStore) UpsertMonthReport(_ context.Context, rec core.MonthlySavingsRecord) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.upserted = append(s.upserted, rec)
	return nil
}

func (s *fakeStore) DeleteMonthReport(_ context.Context, month core.Month) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.deleted = append(s.deleted, month)
	return nil
}

func sampleRecord() core.MonthlySavingsRecord {
	return core.MonthlySavingsRecord{
		Month:                     "2026-08",
		Income:                    2500,
		Expenses:                  1800,
		FreeMoney:                 700,
		TransferredToSavings:      900,
		PlannedSavings:            200,
		SavingsTotalAfterTransfer: 5400,
		ClosedAt:                  time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHandleMonthClosedStoresAndMirrors(t *testing.T) {
	store := &fakeStore{}
	appender := sheetsmem.New()
	w := NewReportWorker(store, appender)

	msg := &amqp.MonthClosedMessage{Record: sampleRecord()}
	if err := w.HandleMonthClosed(context.Background(), msg); err != nil {
		t.Fatalf("HandleMonthClosed: %v", err)
	}

	if len(store.upserted) != 1 || store.upserted[0].Month != "2026-08" {
		t.Errorf("store upserts = %+v", store.upserted)
	}
	if rows := appender.Rows(); len(rows) != 1 || rows[0].TransferredToSavings != 900 {
		t.Errorf("appender rows = %+v", rows)
	}
}

func TestHandleMonthClosedWithoutAppender(t *testing.T) {
	store := &fakeStore{}
	w := NewReportWorker(store, nil)

	if err := w.HandleMonthClosed(context.Background(), &amqp.MonthClosedMessage{Record: sampleRecord()}); err != nil {
		t.Fatalf("HandleMonthClosed: %v", err)
	}
	if len(store.upserted) != 1 {
		t.Errorf("store upserts = %d, want 1", len(store.upserted))
	}
}

func TestHandleMonthClosedPropagatesStoreError(t *testing.T) {
	w := NewReportWorker(&fakeStore{fail: true}, nil)
	if err := w.HandleMonthClosed(context.Background(), &amqp.MonthClosedMessage{Record: sampleRecord()}); err == nil {
		t.Fatal("expected error from failing store")
	}
}

func TestHandleMonthClosedRejectsBadMonth(t *testing.T) {
	store := &fakeStore{}
	w := NewReportWorker(store, nil)
	msg := &amqp.MonthClosedMessage{Record: core.MonthlySavingsRecord{Month: "August 2026"}}
	if err := w.HandleMonthClosed(context.Background(), msg); err == nil {
		t.Fatal("expected error for malformed month")
	}
	if len(store.upserted) != 0 {
		t.Errorf("malformed event was stored: %+v", store.upserted)
	}
}

func TestHandleMonthRevertedDeletesRow(t *testing.T) {
	store := &fakeStore{}
	w := NewReportWorker(store, nil)

	msg := &amqp.MonthRevertedMessage{Month: "2026-08"}
	if err := w.HandleMonthReverted(context.Background(), msg); err != nil {
		t.Fatalf("HandleMonthReverted: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "2026-08" {
		t.Errorf("store deletes = %+v", store.deleted)
	}
}

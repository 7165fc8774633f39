// Package worker turns month events into durable report rows and optional
// spreadsheet mirrors. It runs in the worker binary, decoupled from the
// API process by the message queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"lifeledger/internal/amqp"
	"lifeledger/internal/core"
	"lifeledger/internal/sheets"
)

type (
	// ReportStore is the persistence the worker needs: upsert on close,
	// delete on revert.
	ReportStore interface {
		UpsertMonthReport(ctx context.Context, rec core.MonthlySavingsRecord) error
		DeleteMonthReport(ctx context.Context, month core.Month) error
	}

	// ReportWorker processes month events. The appender is optional; a nil
	// appender skips the spreadsheet mirror.
	ReportWorker struct {
		store    ReportStore
		appender sheets.ReportAppender
	}
)

func NewReportWorker(store ReportStore, appender sheets.ReportAppender) *ReportWorker {
	return &ReportWorker{
		store:    store,
		appender: appender,
	}
}

// HandleMonthClosed records the closed month. A failed database write is
// returned so the delivery is requeued; a failed spreadsheet append is
// only logged, since the durable row already exists.
func (w *ReportWorker) HandleMonthClosed(ctx context.Context, msg *amqp.MonthClosedMessage) error {
	rec := msg.Record
	if err := rec.Month.Validate(); err != nil {
		return fmt.Errorf("month closed event for %q: %w", rec.Month, err)
	}

	if err := w.store.UpsertMonthReport(ctx, rec); err != nil {
		return fmt.Errorf("store month report: %w", err)
	}

	if w.appender != nil {
		if err := w.appender.AppendMonthReport(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror month report to spreadsheet",
				"month", rec.Month,
				"error", err)
		}
	}

	return nil
}

// HandleMonthReverted removes the report row of the reverted month.
func (w *ReportWorker) HandleMonthReverted(ctx context.Context, msg *amqp.MonthRevertedMessage) error {
	if err := msg.Month.Validate(); err != nil {
		return fmt.Errorf("month reverted event for %q: %w", msg.Month, err)
	}
	if err := w.store.DeleteMonthReport(ctx, msg.Month); err != nil {
		return fmt.Errorf("delete month report: %w", err)
	}
	return nil
}

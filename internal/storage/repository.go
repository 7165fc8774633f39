// Package storage persists ledger snapshots and month reports in SQLite.
//
// The budget and savings domains are stored as two independent JSON
// snapshot rows; keeping them consistent across a month close is the
// service layer's job, not storage's.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lifeledger/internal/core"

	_ "modernc.org/sqlite"
)

const (
	domainBudget  = "budget"
	domainSavings = "savings"
)

// ErrSnapshotTooNew is returned when a stored snapshot was written by a
// newer build than this one; loading it could silently drop fields.
var ErrSnapshotTooNew = errors.New("stored snapshot version is newer than this build supports")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveBudget writes the budget-domain snapshot.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, snap core.BudgetSnapshot) error {
	if err := r.saveSnapshot(ctx, domainBudget, snap.Version, snap); err != nil {
		return fmt.Errorf("save budget snapshot: %w", err)
	}
	return nil
}

// LoadBudget reads the budget-domain snapshot. The second return value is
// false when nothing has been persisted yet. Snapshots written by a newer
// build are refused; older versions load with a warning since every
// schema change so far has been additive.
func (r *SQLiteRepository) LoadBudget(ctx context.Context) (core.BudgetSnapshot, bool, error) {
	var snap core.BudgetSnapshot
	version, data, found, err := r.loadSnapshot(ctx, domainBudget)
	if err != nil || !found {
		return snap, false, err
	}
	if version > core.SnapshotVersion {
		return snap, false, fmt.Errorf("%w: stored %d, supported %d", ErrSnapshotTooNew, version, core.SnapshotVersion)
	}
	if version < core.SnapshotVersion {
		slog.WarnContext(ctx, "Loading older budget snapshot version",
			"stored_version", version,
			"current_version", core.SnapshotVersion)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, false, fmt.Errorf("decode budget snapshot: %w", err)
	}
	return snap, true, nil
}

// SaveSavings writes the savings-domain snapshot.
func (r *SQLiteRepository) SaveSavings(ctx context.Context, snap core.SavingsSnapshot) error {
	if err := r.saveSnapshot(ctx, domainSavings, core.SnapshotVersion, snap); err != nil {
		return fmt.Errorf("save savings snapshot: %w", err)
	}
	return nil
}

// LoadSavings reads the savings-domain snapshot.
func (r *SQLiteRepository) LoadSavings(ctx context.Context) (core.SavingsSnapshot, bool, error) {
	var snap core.SavingsSnapshot
	_, data, found, err := r.loadSnapshot(ctx, domainSavings)
	if err != nil || !found {
		return snap, false, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, false, fmt.Errorf("decode savings snapshot: %w", err)
	}
	return snap, true, nil
}

func (r *SQLiteRepository) saveSnapshot(ctx context.Context, domain string, version int, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (domain, version, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(domain) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP`,
		domain, version, string(data))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved", "domain", domain, "version", version, "bytes", len(data))
	return nil
}

func (r *SQLiteRepository) loadSnapshot(ctx context.Context, domain string) (int, []byte, bool, error) {
	var (
		version int
		data    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT version, data FROM snapshots WHERE domain = ?`, domain).
		Scan(&version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("query snapshot: %w", err)
	}
	return version, []byte(data), true, nil
}

// UpsertMonthReport records a closed month for reporting. Replays of the
// same month (revert followed by a second close) overwrite the old row.
func (r *SQLiteRepository) UpsertMonthReport(ctx context.Context, rec core.MonthlySavingsRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO month_reports (
			month, income, expenses, free_money, transferred_to_savings,
			planned_savings, savings_impact, manual_added, balance_after, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(month) DO UPDATE SET
			income = excluded.income,
			expenses = excluded.expenses,
			free_money = excluded.free_money,
			transferred_to_savings = excluded.transferred_to_savings,
			planned_savings = excluded.planned_savings,
			savings_impact = excluded.savings_impact,
			manual_added = excluded.manual_added,
			balance_after = excluded.balance_after,
			closed_at = excluded.closed_at`,
		string(rec.Month), rec.Income, rec.Expenses, rec.FreeMoney,
		rec.TransferredToSavings, rec.PlannedSavings, rec.SavingsImpact,
		rec.ManualAdded, rec.SavingsTotalAfterTransfer, rec.ClosedAt)
	if err != nil {
		return fmt.Errorf("upsert month report: %w", err)
	}

	slog.InfoContext(ctx, "Month report saved",
		"month", rec.Month,
		"transferred_to_savings", rec.TransferredToSavings,
		"balance_after", rec.SavingsTotalAfterTransfer)
	return nil
}

// DeleteMonthReport removes a month's report row after a revert. Deleting
// a month that was never recorded is not an error.
func (r *SQLiteRepository) DeleteMonthReport(ctx context.Context, month core.Month) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM month_reports WHERE month = ?`, string(month))
	if err != nil {
		return fmt.Errorf("delete month report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.InfoContext(ctx, "Month report deleted", "month", month)
	}
	return nil
}

// ListMonthReports returns all recorded reports, oldest first.
func (r *SQLiteRepository) ListMonthReports(ctx context.Context) ([]core.MonthlySavingsRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, income, expenses, free_money, transferred_to_savings,
			planned_savings, savings_impact, manual_added, balance_after, closed_at
		FROM month_reports ORDER BY month ASC`)
	if err != nil {
		return nil, fmt.Errorf("query month reports: %w", err)
	}
	defer rows.Close()

	var records []core.MonthlySavingsRecord
	for rows.Next() {
		var (
			rec   core.MonthlySavingsRecord
			month string
		)
		if err := rows.Scan(&month, &rec.Income, &rec.Expenses, &rec.FreeMoney,
			&rec.TransferredToSavings, &rec.PlannedSavings, &rec.SavingsImpact,
			&rec.ManualAdded, &rec.SavingsTotalAfterTransfer, &rec.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan month report: %w", err)
		}
		rec.Month = core.Month(month)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate month reports: %w", err)
	}
	return records, nil
}

package sheets

import (
	"context"

	"lifeledger/internal/core"
)

// Ports for outbound report adapters.
type (
	// ReportAppender mirrors closed months into an external spreadsheet.
	ReportAppender interface {
		AppendMonthReport(ctx context.Context, rec core.MonthlySavingsRecord) error
	}
)

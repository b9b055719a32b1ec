package primary

import (
	"context"
	"io"
)

// PortingService defines the primary port for import/export.
type PortingService interface {
	// ExportJSON writes the full rule set and usage records as JSON.
	ExportJSON(ctx context.Context, w io.Writer) error

	// ExportCSV writes the rule set as CSV.
	ExportCSV(ctx context.Context, w io.Writer) error

	// ImportJSON reads a JSON export. Malformed items never abort the
	// run; the report lists imported, skipped, and erroring items.
	ImportJSON(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportReport, error)

	// ImportCSV reads a CSV export under the same collision policy.
	ImportCSV(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportReport, error)
}

// ImportOptions controls the exact-duplicate collision policy.
type ImportOptions struct {
	// SkipDuplicates silently skips entries whose normalized name
	// collides with an active rule in the same (scope, type) partition.
	SkipDuplicates bool

	// UpdateExisting updates the colliding rule instead of skipping.
	UpdateExisting bool
}

// ImportReport itemizes an import run so a partial import is always
// recoverable from the report.
type ImportReport struct {
	Imported []string // rule names created
	Updated  []string // rule names updated via UpdateExisting
	Skipped  []string // rule names skipped as duplicates
	Errors   []ImportError
}

// ImportError describes one item that could not be imported.
type ImportError struct {
	Name   string // best-effort identification of the item
	Reason string
}

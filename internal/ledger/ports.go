// Package ledger defines the ports through which the snapshot service reads
// and writes an organization's ledger, savings goal and stored reports.
package ledger

import (
	"context"
	"errors"
	"time"

	"fluxo/internal/core"
)

var (
	// ErrInvalidTransaction is returned by writers for entries missing an id
	// or an organization.
	ErrInvalidTransaction = errors.New("transaction requires id and organization")
	// ErrDuplicateTransaction is returned when the id is already stored.
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	// ErrReportNotFound is returned when an organization has no stored report.
	ErrReportNotFound = errors.New("report not found")
)

// Report is a snapshot rendered by the report worker, stored as JSON.
type Report struct {
	OrganizationID string
	ComputedAt     time.Time
	Body           []byte
}

// Ports for outbound adapters.
type (
	// Reader returns the full ledger of an organization. An organization with
	// no entries yields an empty slice, not an error.
	Reader interface {
		ListTransactions(ctx context.Context, orgID string) ([]core.RawTransaction, error)
	}

	// Writer appends one entry and returns its stored id.
	Writer interface {
		AppendTransaction(ctx context.Context, tx core.RawTransaction) (string, error)
	}

	// GoalReader returns the savings goal of an organization, or nil, nil when
	// none is set.
	GoalReader interface {
		GetGoal(ctx context.Context, orgID string) (*core.GoalDescriptor, error)
	}

	ReportWriter interface {
		SaveReport(ctx context.Context, r Report) error
	}

	// ReportReader returns the most recent report, or ErrReportNotFound.
	ReportReader interface {
		LatestReport(ctx context.Context, orgID string) (*Report, error)
	}

	Store interface {
		Reader
		Writer
		GoalReader
	}

	ReportStore interface {
		ReportWriter
		ReportReader
	}
)

// CheckWritable validates the fields every writer requires.
func CheckWritable(tx core.RawTransaction) error {
	if tx.ID == "" || tx.OrganizationID == "" {
		return ErrInvalidTransaction
	}
	return nil
}

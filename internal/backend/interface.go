package backend

import (
	"context"

	"fluxo/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Pinger is implemented by stores that can report their readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReportPruner is implemented by report stores that keep history.
type ReportPruner interface {
	PruneReports(ctx context.Context, orgID string, keep int) (int64, error)
}

// BackendResult contains the stores of one backend and an optional cleanup
// function. Ledger and Reports may be the same value.
type BackendResult struct {
	Type    BackendType
	Ledger  ledger.Store
	Reports ledger.ReportStore
	Cleanup CleanupFunc
}

// Ping checks the ledger store when it supports it. Stores without a
// readiness probe are always ready.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Ledger.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// SharedLedger reports whether the ledger can change outside this process.
// Sheets are edited by hand, so cached snapshots would go stale unseen.
func (bt BackendType) SharedLedger() bool {
	return bt == SheetsBackend
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

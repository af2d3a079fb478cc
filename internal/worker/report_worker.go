// Package worker consumes ledger-changed events and keeps a rendered
// snapshot report per organization in the report store.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fluxo/internal/amqp"
	"fluxo/internal/analytics"
	"fluxo/internal/backend"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
)

// SnapshotSource is the part of the snapshot service the worker needs.
type SnapshotSource interface {
	Snapshot(ctx context.Context, orgID string) (*analytics.Result, error)
	Invalidate(orgID string)
}

// ReportWorker recomputes an organization's snapshot whenever its ledger
// changes and stores it as a JSON report.
type ReportWorker struct {
	snapshots SnapshotSource
	reports   ledger.ReportWriter
	retention int
	logger    *log.Logger
	now       func() time.Time
}

func NewReportWorker(snapshots SnapshotSource, reports ledger.ReportWriter, retention int, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if retention < 1 {
		retention = 1
	}
	return &ReportWorker{
		snapshots: snapshots,
		reports:   reports,
		retention: retention,
		logger:    logger.WithComponent(log.ComponentReport),
		now:       time.Now,
	}
}

// HandleLedgerChanged processes a single ledger-changed message from AMQP.
// A returned error asks the consumer to retry the message.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldMessageID, msg.MessageID,
		log.FieldOrganizationID, msg.OrganizationID,
		log.FieldTransactionID, msg.TransactionID)

	w.snapshots.Invalidate(msg.OrganizationID)
	return w.refresh(ctx, msg.OrganizationID)
}

// StartupRefresh renders a fresh report for each listed organization. It is
// the recovery path for events lost while the worker was down, so failures
// are logged and counted rather than returned.
func (w *ReportWorker) StartupRefresh(ctx context.Context, orgIDs []string) {
	if len(orgIDs) == 0 {
		w.logger.InfoContext(ctx, "No organizations configured for startup refresh")
		return
	}

	successCount, errorCount := 0, 0
	for _, orgID := range orgIDs {
		if ctx.Err() != nil {
			break
		}
		if err := w.refresh(ctx, orgID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to refresh report during startup",
				log.FieldOrganizationID, orgID,
				log.FieldError, err.Error())
			errorCount++
			continue
		}
		successCount++
	}

	w.logger.InfoContext(ctx, "Startup refresh completed",
		"total", len(orgIDs),
		"refreshed", successCount,
		"errors", errorCount)
}

func (w *ReportWorker) refresh(ctx context.Context, orgID string) error {
	res, err := w.snapshots.Snapshot(ctx, orgID)
	if err != nil {
		// Retrying cannot fix a bad goal; the message is dropped.
		if analytics.IsConfigError(err) {
			w.logger.ErrorContext(ctx, "Snapshot rejected, report not updated",
				log.FieldOrganizationID, orgID,
				log.FieldErrorType, log.ErrorTypeConfiguration,
				log.FieldError, err.Error())
			return nil
		}
		return fmt.Errorf("compute snapshot: %w", err)
	}

	body, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	report := ledger.Report{
		OrganizationID: orgID,
		ComputedAt:     w.now().UTC(),
		Body:           body,
	}
	if err := w.reports.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	if pruner, ok := w.reports.(backend.ReportPruner); ok {
		n, err := pruner.PruneReports(ctx, orgID, w.retention)
		if err != nil && !errors.Is(err, context.Canceled) {
			// The new report is stored; old ones go on the next change.
			w.logger.WarnContext(ctx, "Failed to prune old reports",
				log.FieldOrganizationID, orgID,
				log.FieldError, err.Error())
		} else if n > 0 {
			w.logger.DebugContext(ctx, "Pruned old reports", log.FieldOrganizationID, orgID, "pruned", n)
		}
	}

	w.logger.InfoContext(ctx, "Report stored",
		log.FieldOrganizationID, orgID,
		log.FieldEntriesSkipped, len(res.Skipped),
		"bytes", len(body))
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
)

// reportTimeLayout is fixed width so that computed_at sorts as text.
const reportTimeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

var (
	_ ledger.Store       = (*SQLiteRepository)(nil)
	_ ledger.ReportStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
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

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTransactions implements ledger.Reader
func (r *SQLiteRepository) ListTransactions(ctx context.Context, orgID string) ([]core.RawTransaction, error) {
	rows, err := r.queries.ListTransactionsByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.RawTransaction, 0, len(rows))
	for _, row := range rows {
		var tags []string
		if row.Tags != "" && row.Tags != "[]" {
			if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
				return nil, fmt.Errorf("decode tags of %s: %w", row.ID, err)
			}
		}
		out = append(out, core.RawTransaction{
			ID:             row.ID,
			OrganizationID: row.OrganizationID,
			Kind:           row.Kind,
			Category:       row.Category,
			Value:          core.RawAmount(row.Value),
			OccurredAt:     row.OccurredAt,
			PaymentMethod:  row.PaymentMethod,
			Tags:           tags,
		})
	}
	return out, nil
}

// AppendTransaction implements ledger.Writer
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.RawTransaction) (string, error) {
	if err := ledger.CheckWritable(tx); err != nil {
		return "", err
	}
	tags := "[]"
	if len(tx.Tags) > 0 {
		b, err := json.Marshal(tx.Tags)
		if err != nil {
			return "", fmt.Errorf("encode tags: %w", err)
		}
		tags = string(b)
	}
	err := r.queries.InsertTransaction(ctx, Transaction{
		ID:             tx.ID,
		OrganizationID: tx.OrganizationID,
		Kind:           tx.Kind,
		Category:       tx.Category,
		Value:          tx.Value.String(),
		OccurredAt:     tx.OccurredAt,
		PaymentMethod:  tx.PaymentMethod,
		Tags:           tags,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ledger.ErrDuplicateTransaction, tx.ID)
		}
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		log.FieldTransactionID, tx.ID,
		log.FieldOrganizationID, tx.OrganizationID,
		"kind", tx.Kind,
		"category", tx.Category)

	return tx.ID, nil
}

// GetGoal implements ledger.GoalReader
func (r *SQLiteRepository) GetGoal(ctx context.Context, orgID string) (*core.GoalDescriptor, error) {
	row, err := r.queries.GetGoal(ctx, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	target, err := decimal.NewFromString(row.TargetAmount)
	if err != nil {
		return nil, fmt.Errorf("decode goal target of %s: %w", orgID, err)
	}
	current, err := decimal.NewFromString(row.CurrentAmount)
	if err != nil {
		return nil, fmt.Errorf("decode goal current of %s: %w", orgID, err)
	}
	return &core.GoalDescriptor{TargetAmount: target, CurrentAmount: current}, nil
}

// SetGoal creates or replaces the goal of an organization.
func (r *SQLiteRepository) SetGoal(ctx context.Context, orgID string, g core.GoalDescriptor) error {
	if err := g.Validate(); err != nil {
		return err
	}
	err := r.queries.UpsertGoal(ctx, Goal{
		OrganizationID: orgID,
		TargetAmount:   g.TargetAmount.String(),
		CurrentAmount:  g.CurrentAmount.String(),
	})
	if err != nil {
		return fmt.Errorf("upsert goal: %w", err)
	}
	return nil
}

// SaveReport implements ledger.ReportWriter
func (r *SQLiteRepository) SaveReport(ctx context.Context, rep ledger.Report) error {
	err := r.queries.InsertSnapshotReport(ctx, SnapshotReport{
		OrganizationID: rep.OrganizationID,
		ComputedAt:     rep.ComputedAt.UTC().Format(reportTimeLayout),
		Body:           string(rep.Body),
	})
	if err != nil {
		return fmt.Errorf("insert snapshot report: %w", err)
	}
	return nil
}

// LatestReport implements ledger.ReportReader
func (r *SQLiteRepository) LatestReport(ctx context.Context, orgID string) (*ledger.Report, error) {
	row, err := r.queries.LatestSnapshotReport(ctx, orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot report: %w", err)
	}
	computedAt, err := time.Parse(reportTimeLayout, row.ComputedAt)
	if err != nil {
		return nil, fmt.Errorf("decode report time: %w", err)
	}
	return &ledger.Report{
		OrganizationID: row.OrganizationID,
		ComputedAt:     computedAt,
		Body:           []byte(row.Body),
	}, nil
}

// PruneReports keeps only the newest keep reports of an organization.
func (r *SQLiteRepository) PruneReports(ctx context.Context, orgID string, keep int) (int64, error) {
	n, err := r.queries.PruneSnapshotReports(ctx, orgID, int64(keep))
	if err != nil {
		return 0, fmt.Errorf("prune snapshot reports: %w", err)
	}
	if n > 0 {
		r.logger.DebugContext(ctx, "Old snapshot reports pruned", log.FieldOrganizationID, orgID, "count", n)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

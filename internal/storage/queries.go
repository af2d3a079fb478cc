package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID             string
	OrganizationID string
	Kind           string
	Category       string
	Value          string
	OccurredAt     string
	PaymentMethod  string
	Tags           string
}

type Goal struct {
	OrganizationID string
	TargetAmount   string
	CurrentAmount  string
}

type SnapshotReport struct {
	OrganizationID string
	ComputedAt     string
	Body           string
}

const insertTransaction = `
INSERT INTO transactions (id, organization_id, kind, category, value, occurred_at, payment_method, tags)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID,
		arg.OrganizationID,
		arg.Kind,
		arg.Category,
		arg.Value,
		arg.OccurredAt,
		arg.PaymentMethod,
		arg.Tags,
	)
	return err
}

const listTransactionsByOrg = `
SELECT id, organization_id, kind, category, value, occurred_at, payment_method, tags
FROM transactions
WHERE organization_id = ?
ORDER BY seq`

func (q *Queries) ListTransactionsByOrg(ctx context.Context, organizationID string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByOrg, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.OrganizationID,
			&i.Kind,
			&i.Category,
			&i.Value,
			&i.OccurredAt,
			&i.PaymentMethod,
			&i.Tags,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getGoal = `
SELECT organization_id, target_amount, current_amount
FROM goals
WHERE organization_id = ?`

func (q *Queries) GetGoal(ctx context.Context, organizationID string) (Goal, error) {
	row := q.db.QueryRowContext(ctx, getGoal, organizationID)
	var i Goal
	err := row.Scan(&i.OrganizationID, &i.TargetAmount, &i.CurrentAmount)
	return i, err
}

const upsertGoal = `
INSERT INTO goals (organization_id, target_amount, current_amount)
VALUES (?, ?, ?)
ON CONFLICT (organization_id) DO UPDATE SET
    target_amount = excluded.target_amount,
    current_amount = excluded.current_amount,
    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

func (q *Queries) UpsertGoal(ctx context.Context, arg Goal) error {
	_, err := q.db.ExecContext(ctx, upsertGoal, arg.OrganizationID, arg.TargetAmount, arg.CurrentAmount)
	return err
}

const insertSnapshotReport = `
INSERT INTO snapshot_reports (organization_id, computed_at, body)
VALUES (?, ?, ?)`

func (q *Queries) InsertSnapshotReport(ctx context.Context, arg SnapshotReport) error {
	_, err := q.db.ExecContext(ctx, insertSnapshotReport, arg.OrganizationID, arg.ComputedAt, arg.Body)
	return err
}

const latestSnapshotReport = `
SELECT organization_id, computed_at, body
FROM snapshot_reports
WHERE organization_id = ?
ORDER BY computed_at DESC, id DESC
LIMIT 1`

func (q *Queries) LatestSnapshotReport(ctx context.Context, organizationID string) (SnapshotReport, error) {
	row := q.db.QueryRowContext(ctx, latestSnapshotReport, organizationID)
	var i SnapshotReport
	err := row.Scan(&i.OrganizationID, &i.ComputedAt, &i.Body)
	return i, err
}

const pruneSnapshotReports = `
DELETE FROM snapshot_reports
WHERE organization_id = ?
  AND id NOT IN (
    SELECT id FROM snapshot_reports
    WHERE organization_id = ?
    ORDER BY computed_at DESC, id DESC
    LIMIT ?
  )`

func (q *Queries) PruneSnapshotReports(ctx context.Context, organizationID string, keep int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, pruneSnapshotReports, organizationID, organizationID, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

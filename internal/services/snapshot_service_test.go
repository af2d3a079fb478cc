package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxo/internal/amqp"
	"fluxo/internal/analytics"
	"fluxo/internal/cache"
	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/ledger/memory"
	"fluxo/internal/metrics"
)

type countingStore struct {
	ledger.Store
	mu    sync.Mutex
	lists int
	err   error
}

func (c *countingStore) ListTransactions(ctx context.Context, orgID string) ([]core.RawTransaction, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.ListTransactions(ctx, orgID)
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (f *fakePublisher) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func seedLedger() []core.RawTransaction {
	return []core.RawTransaction{
		{ID: "i1", OrganizationID: "org-1", Kind: "income", Category: "Salary", Value: "3000", OccurredAt: "2024-03-01"},
		{ID: "e1", OrganizationID: "org-1", Kind: "expense", Category: "Rent", Value: "1200", OccurredAt: "2024-03-02"},
		{ID: "e2", OrganizationID: "org-1", Kind: "expense", Category: "Food", Value: "abc", OccurredAt: "2024-03-03"},
		{ID: "x1", OrganizationID: "org-2", Kind: "income", Category: "Salary", Value: "10", OccurredAt: "2024-03-01"},
	}
}

func newService(t *testing.T, store ledger.Store, opts ...Option) *SnapshotService {
	t.Helper()
	engine, err := analytics.NewEngine(analytics.DefaultOptions())
	require.NoError(t, err)
	return NewSnapshotService(engine, store, opts...)
}

func TestSnapshot_ComputesFromStore(t *testing.T) {
	store := memory.New(seedLedger(), map[string]core.GoalDescriptor{
		"org-1": {TargetAmount: decimal.NewFromInt(3600), CurrentAmount: decimal.NewFromInt(900)},
	})
	svc := newService(t, store)

	res, err := svc.Snapshot(context.Background(), "org-1")
	require.NoError(t, err)

	sum := res.Snapshot.Summary
	assert.True(t, decimal.NewFromInt(1800).Equal(sum.Balance), "balance %s", sum.Balance)
	assert.True(t, decimal.NewFromInt(3000).Equal(sum.Income))
	assert.True(t, decimal.NewFromInt(1200).Equal(sum.Expenses))
	require.NotNil(t, sum.SavingsProgress)
	assert.True(t, decimal.NewFromInt(25).Equal(*sum.SavingsProgress), "progress %s", sum.SavingsProgress)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "e2", res.Skipped[0].ID)
	assert.Equal(t, analytics.SkipInvalidValue, res.Skipped[0].Reason)
}

func TestSnapshot_UnknownOrganizationIsEmpty(t *testing.T) {
	svc := newService(t, memory.New(seedLedger(), nil))

	res, err := svc.Snapshot(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, res.Snapshot.Summary.Balance.IsZero())
	assert.Empty(t, res.Snapshot.Monthly)
	assert.Empty(t, res.Skipped)
}

func TestSnapshot_MissingOrganization(t *testing.T) {
	svc := newService(t, memory.New(nil, nil))
	_, err := svc.Snapshot(context.Background(), "  ")
	require.ErrorIs(t, err, ErrMissingOrganization)
}

func TestSnapshot_LedgerError(t *testing.T) {
	boom := errors.New("disk on fire")
	store := &countingStore{Store: memory.New(nil, nil), err: boom}
	svc := newService(t, store)

	before := testutil.ToFloat64(metrics.SnapshotsTotal.WithLabelValues(metrics.OutcomeLedgerError))
	_, err := svc.Snapshot(context.Background(), "org-1")
	require.ErrorIs(t, err, boom)
	after := testutil.ToFloat64(metrics.SnapshotsTotal.WithLabelValues(metrics.OutcomeLedgerError))
	assert.Equal(t, before+1, after)
}

func TestSnapshot_NegativeGoalIsConfigError(t *testing.T) {
	store := memory.New(seedLedger(), map[string]core.GoalDescriptor{
		"org-1": {TargetAmount: decimal.NewFromInt(-1)},
	})
	svc := newService(t, store)

	_, err := svc.Snapshot(context.Background(), "org-1")
	require.Error(t, err)
	assert.True(t, analytics.IsConfigError(err))
}

func TestSnapshot_CachesUntilInvalidated(t *testing.T) {
	store := &countingStore{Store: memory.New(seedLedger(), nil)}
	c := cache.NewLRUCache[*analytics.Result](10, time.Minute)
	svc := newService(t, store, WithCache(c))
	ctx := context.Background()

	first, err := svc.Snapshot(ctx, "org-1")
	require.NoError(t, err)
	second, err := svc.Snapshot(ctx, "org-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, store.lists)

	svc.Invalidate("org-1")
	third, err := svc.Snapshot(ctx, "org-1")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, store.lists)
}

func TestSnapshot_WithoutCacheSeesExternalEdits(t *testing.T) {
	store := &countingStore{Store: memory.New(seedLedger(), nil)}
	svc := newService(t, store)
	ctx := context.Background()

	first, err := svc.Snapshot(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1800).Equal(first.Snapshot.Summary.Balance))

	// Written straight to the ledger, as a spreadsheet edit would be.
	_, err = store.Store.AppendTransaction(ctx, core.RawTransaction{
		ID: "e3", OrganizationID: "org-1", Kind: "expense", Category: "Food", Value: "300", OccurredAt: "2024-03-04",
	})
	require.NoError(t, err)

	second, err := svc.Snapshot(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1500).Equal(second.Snapshot.Summary.Balance))
	assert.Equal(t, 2, store.lists)
}

func TestCompute_DoesNotTouchStore(t *testing.T) {
	store := &countingStore{Store: memory.New(nil, nil)}
	svc := newService(t, store)

	res, err := svc.Compute(context.Background(), seedLedger()[:3], nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1800).Equal(res.Snapshot.Summary.Balance))
	assert.Nil(t, res.Snapshot.Summary.SavingsGoal)
	assert.Equal(t, 0, store.lists)
}

func TestRecordTransaction(t *testing.T) {
	tests := []struct {
		name       string
		orgID      string
		tx         core.RawTransaction
		wantID     string
		wantErr    error
		wantEvents int
	}{
		{
			name:       "assigns id and forces organization",
			orgID:      "org-1",
			tx:         core.RawTransaction{OrganizationID: "spoofed", Kind: "expense", Category: "Food", Value: "12,50", OccurredAt: "2024-03-10"},
			wantID:     "generated-1",
			wantEvents: 1,
		},
		{
			name:       "keeps supplied id",
			orgID:      "org-1",
			tx:         core.RawTransaction{ID: "chat-7", Kind: "income", Category: "Gift", Value: "50", OccurredAt: "2024-03-10T12:00:00Z"},
			wantID:     "chat-7",
			wantEvents: 1,
		},
		{
			name:    "rejects zero value",
			orgID:   "org-1",
			tx:      core.RawTransaction{Kind: "expense", Category: "Food", Value: "0", OccurredAt: "2024-03-10"},
			wantErr: ErrTransactionRejected,
		},
		{
			name:    "rejects unknown kind",
			orgID:   "org-1",
			tx:      core.RawTransaction{Kind: "transfer", Category: "Food", Value: "5", OccurredAt: "2024-03-10"},
			wantErr: ErrTransactionRejected,
		},
		{
			name:    "rejects bad date",
			orgID:   "org-1",
			tx:      core.RawTransaction{Kind: "expense", Category: "Food", Value: "5", OccurredAt: "yesterday"},
			wantErr: ErrTransactionRejected,
		},
		{
			name:    "rejects duplicate",
			orgID:   "org-1",
			tx:      core.RawTransaction{ID: "i1", Kind: "expense", Category: "Food", Value: "5", OccurredAt: "2024-03-10"},
			wantErr: ledger.ErrDuplicateTransaction,
		},
		{
			name:    "missing organization",
			orgID:   "",
			tx:      core.RawTransaction{Kind: "expense", Category: "Food", Value: "5", OccurredAt: "2024-03-10"},
			wantErr: ErrMissingOrganization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New(seedLedger(), nil)
			pub := &fakePublisher{}
			svc := newService(t, store, WithPublisher(pub), WithIDGenerator(func() string { return "generated-1" }))

			id, err := svc.RecordTransaction(context.Background(), tt.orgID, tt.tx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, pub.msgs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			require.Len(t, pub.msgs, tt.wantEvents)
			assert.Equal(t, tt.orgID, pub.msgs[0].OrganizationID)
			assert.Equal(t, id, pub.msgs[0].TransactionID)

			items, err := store.ListTransactions(context.Background(), tt.orgID)
			require.NoError(t, err)
			var found bool
			for _, it := range items {
				if it.ID == id {
					found = true
					assert.Equal(t, tt.orgID, it.OrganizationID)
				}
			}
			assert.True(t, found, "recorded transaction not in ledger")
		})
	}
}

func TestRecordTransaction_InvalidatesCache(t *testing.T) {
	store := memory.New(seedLedger(), nil)
	svc := newService(t, store, WithCache(cache.NewLRUCache[*analytics.Result](10, time.Minute)))
	ctx := context.Background()

	before, err := svc.Snapshot(ctx, "org-1")
	require.NoError(t, err)

	_, err = svc.RecordTransaction(ctx, "org-1", core.RawTransaction{Kind: "expense", Category: "Food", Value: "300", OccurredAt: "2024-03-15"})
	require.NoError(t, err)

	after, err := svc.Snapshot(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1800).Equal(before.Snapshot.Summary.Balance))
	assert.True(t, decimal.NewFromInt(1500).Equal(after.Snapshot.Summary.Balance))
}

func TestRecordTransaction_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: amqp.ErrCircuitOpen}
	svc := newService(t, memory.New(nil, nil), WithPublisher(pub))

	id, err := svc.RecordTransaction(context.Background(), "org-1", core.RawTransaction{ID: "t1", Kind: "income", Category: "Salary", Value: "1", OccurredAt: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "t1", id)
	assert.Len(t, pub.msgs, 1)
}

func TestRecordTransaction_WithoutPublisher(t *testing.T) {
	svc := newService(t, memory.New(nil, nil))
	id, err := svc.RecordTransaction(context.Background(), "org-1", core.RawTransaction{Kind: "income", Category: "Salary", Value: "1", OccurredAt: "2024-01-01"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

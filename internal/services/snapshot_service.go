package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fluxo/internal/amqp"
	"fluxo/internal/analytics"
	"fluxo/internal/cache"
	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
	"fluxo/internal/metrics"
)

var (
	ErrMissingOrganization = errors.New("missing organization id")
	// ErrTransactionRejected wraps the reason the normalizer would have
	// skipped a transaction offered by the chat hook.
	ErrTransactionRejected = errors.New("transaction rejected")
)

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// SnapshotService computes organization snapshots from the configured
// ledger and keeps the latest one per organization in a cache until the
// ledger changes.
type SnapshotService struct {
	engine    *analytics.Engine
	opts      analytics.Options
	store     ledger.Store
	cache     cache.Cache[*analytics.Result]
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
	newID     func() string
}

type Option func(*SnapshotService)

// WithCache enables per-organization caching of computed results.
func WithCache(c cache.Cache[*analytics.Result]) Option {
	return func(s *SnapshotService) { s.cache = c }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *SnapshotService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *SnapshotService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the UUID generator used for transactions that
// arrive without an id.
func WithIDGenerator(fn func() string) Option {
	return func(s *SnapshotService) { s.newID = fn }
}

func NewSnapshotService(engine *analytics.Engine, store ledger.Store, opts ...Option) *SnapshotService {
	s := &SnapshotService{
		engine: engine,
		opts:   engine.Options(),
		store:  store,
		logger: log.Discard(),
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentSnapshot)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Snapshot returns the snapshot of an organization's stored ledger. An
// organization without entries gets an empty snapshot. Results may be served
// from the cache and must not be modified by callers.
func (s *SnapshotService) Snapshot(ctx context.Context, orgID string) (*analytics.Result, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, ErrMissingOrganization
	}
	started := time.Now()

	if s.cache != nil {
		if res, ok := s.cache.Get(orgID); ok {
			metrics.SnapshotCache.WithLabelValues("hit").Inc()
			s.logger.DebugContext(ctx, "Snapshot served from cache", log.FieldOrganizationID, orgID)
			return res, nil
		}
		metrics.SnapshotCache.WithLabelValues("miss").Inc()
	}

	raw, goal, err := s.load(ctx, orgID)
	if err != nil {
		metrics.ObserveSnapshot(metrics.OutcomeLedgerError, started)
		s.events.LogError(ctx, "Failed to load ledger", err, log.ComponentSnapshot, log.OpRead,
			log.NewFields().WithOrganization(orgID).WithErrorType(log.ErrorTypeDatabase))
		return nil, err
	}

	res, err := s.compute(ctx, raw, goal, started)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(orgID, res)
	}
	s.events.LogSnapshotComputed(ctx, orgID, len(raw), len(res.Skipped), time.Since(started).Milliseconds(), false)
	return res, nil
}

// Compute runs the engine over a ledger supplied by the caller. Nothing is
// read from or written to the store.
func (s *SnapshotService) Compute(ctx context.Context, raw []core.RawTransaction, goal *core.GoalDescriptor) (*analytics.Result, error) {
	started := time.Now()
	res, err := s.compute(ctx, raw, goal, started)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Snapshot computed",
		log.FieldEntriesTotal, len(raw),
		log.FieldEntriesSkipped, len(res.Skipped),
		log.FieldDuration, time.Since(started).Milliseconds(),
		log.FieldOperation, log.OpCompute)
	return res, nil
}

// RecordTransaction appends one entry to an organization's ledger. The path
// organization always wins over the one in tx; a blank id gets a UUID.
// Entries the normalizer would skip are rejected before they reach the
// store. Publishing the change is best effort.
func (s *SnapshotService) RecordTransaction(ctx context.Context, orgID string, tx core.RawTransaction) (string, error) {
	if strings.TrimSpace(orgID) == "" {
		return "", ErrMissingOrganization
	}
	tx.OrganizationID = orgID
	if strings.TrimSpace(tx.ID) == "" {
		tx.ID = s.newID()
	}

	norm := analytics.Normalize([]core.RawTransaction{tx}, s.opts)
	if len(norm.Skipped) > 0 {
		return "", fmt.Errorf("%w: %s", ErrTransactionRejected, norm.Skipped[0].Reason)
	}

	id, err := s.store.AppendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}
	s.Invalidate(orgID)

	s.logger.InfoContext(ctx, "Transaction recorded",
		log.FieldOrganizationID, orgID,
		log.FieldTransactionID, id,
		log.FieldOperation, log.OpAppend)

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping ledger change event")
		return id, nil
	}
	if err := s.publisher.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(orgID, id)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.FieldOrganizationID, orgID,
			log.FieldTransactionID, id,
			log.FieldError, err.Error())
	}
	return id, nil
}

// Invalidate drops the cached snapshot of an organization.
func (s *SnapshotService) Invalidate(orgID string) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(orgID)
	metrics.SnapshotCache.WithLabelValues("invalidate").Inc()
}

func (s *SnapshotService) load(ctx context.Context, orgID string) ([]core.RawTransaction, *core.GoalDescriptor, error) {
	var (
		raw  []core.RawTransaction
		goal *core.GoalDescriptor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.store.ListTransactions(gctx, orgID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		raw = items
		return nil
	})
	g.Go(func() error {
		gd, err := s.store.GetGoal(gctx, orgID)
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		goal = gd
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return raw, goal, nil
}

func (s *SnapshotService) compute(ctx context.Context, raw []core.RawTransaction, goal *core.GoalDescriptor, started time.Time) (*analytics.Result, error) {
	res, err := s.engine.Compute(raw, goal)
	if err != nil {
		outcome := metrics.OutcomeInternalError
		if analytics.IsConfigError(err) {
			outcome = metrics.OutcomeConfigError
		}
		metrics.ObserveSnapshot(outcome, started)
		return nil, err
	}

	reasons := make([]analytics.SkipReason, 0, len(res.Skipped))
	for _, sk := range res.Skipped {
		reasons = append(reasons, sk.Reason)
		s.logger.DebugContext(ctx, "Ledger entry skipped",
			log.FieldTransactionID, sk.ID,
			log.FieldSkipReason, string(sk.Reason))
	}
	metrics.ObserveSkipped(reasons)
	metrics.ObserveSnapshot(metrics.OutcomeOK, started)
	return res, nil
}

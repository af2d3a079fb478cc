package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
)

const (
	LedgerFile = "ledger.json"
	GoalsFile  = "goals.json"
)

// Store keeps ledgers, goals and reports in process memory.
type Store struct {
	mu      sync.RWMutex
	items   []core.RawTransaction
	ids     map[string]struct{} // organization id + NUL + transaction id
	goals   map[string]core.GoalDescriptor
	reports map[string]ledger.Report
}

var (
	_ ledger.Store       = (*Store)(nil)
	_ ledger.ReportStore = (*Store)(nil)
)

func New(items []core.RawTransaction, goals map[string]core.GoalDescriptor) *Store {
	s := &Store{
		ids:     make(map[string]struct{}),
		goals:   make(map[string]core.GoalDescriptor, len(goals)),
		reports: make(map[string]ledger.Report),
	}
	for _, tx := range items {
		key := idKey(tx)
		if _, dup := s.ids[key]; dup && tx.ID != "" {
			continue
		}
		s.ids[key] = struct{}{}
		s.items = append(s.items, tx)
	}
	for org, g := range goals {
		s.goals[org] = g
	}
	return s
}

// NewFromFiles seeds the store from ledger.json (an array of transactions)
// and goals.json (an object keyed by organization id) in base. Missing
// files are treated as empty.
func NewFromFiles(base string) (*Store, error) {
	var items []core.RawTransaction
	if err := readJSON(filepath.Join(base, LedgerFile), &items); err != nil {
		return nil, err
	}
	var goals map[string]core.GoalDescriptor
	if err := readJSON(filepath.Join(base, GoalsFile), &goals); err != nil {
		return nil, err
	}
	return New(items, goals), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListTransactions returns a copy of the organization's entries in insertion order.
func (s *Store) ListTransactions(_ context.Context, orgID string) ([]core.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RawTransaction, 0)
	for _, tx := range s.items {
		if tx.OrganizationID == orgID {
			out = append(out, cloneTx(tx))
		}
	}
	return out, nil
}

func (s *Store) AppendTransaction(_ context.Context, tx core.RawTransaction) (string, error) {
	if err := ledger.CheckWritable(tx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := idKey(tx)
	if _, dup := s.ids[key]; dup {
		return "", fmt.Errorf("%w: %s", ledger.ErrDuplicateTransaction, tx.ID)
	}
	s.ids[key] = struct{}{}
	s.items = append(s.items, cloneTx(tx))
	return tx.ID, nil
}

func (s *Store) GetGoal(_ context.Context, orgID string) (*core.GoalDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[orgID]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// SetGoal replaces the goal of an organization.
func (s *Store) SetGoal(orgID string, g core.GoalDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[orgID] = g
}

func (s *Store) SaveReport(_ context.Context, r ledger.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.reports[r.OrganizationID]; ok && cur.ComputedAt.After(r.ComputedAt) {
		return nil
	}
	r.Body = append([]byte(nil), r.Body...)
	s.reports[r.OrganizationID] = r
	return nil
}

func (s *Store) LatestReport(_ context.Context, orgID string) (*ledger.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[orgID]
	if !ok {
		return nil, ledger.ErrReportNotFound
	}
	r.Body = append([]byte(nil), r.Body...)
	return &r, nil
}

// idKey scopes an id to its organization's ledger.
func idKey(tx core.RawTransaction) string {
	return tx.OrganizationID + "\x00" + tx.ID
}

func cloneTx(tx core.RawTransaction) core.RawTransaction {
	if tx.Tags != nil {
		tx.Tags = append([]string(nil), tx.Tags...)
	}
	return tx
}

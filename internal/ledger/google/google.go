package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fluxo/internal/core"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
)

// Config selects the spreadsheet and its tabs.
type Config struct {
	SpreadsheetID string
	LedgerSheet   string
	GoalsSheet    string
	// Exactly one credential source is used, in this order.
	ServiceAccountJSON string
	ServiceAccountFile string
	CredentialsPath    string
}

// Client reads and appends ledger rows in a Google spreadsheet.
//
// The ledger tab has a header row naming the columns id, organizationId,
// kind, category, value, occurredAt, paymentMethod and tags (comma
// separated). The goals tab has organizationId, targetAmount and
// currentAmount. Column order is taken from the header.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	goalsSheet    string
	logger        *log.Logger
}

var (
	_ ledger.Store = (*Client)(nil)
)

// New creates a client authenticated with service account credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	ledgerSheet := strings.TrimSpace(cfg.LedgerSheet)
	if ledgerSheet == "" {
		ledgerSheet = "Ledger"
	}
	goalsSheet := strings.TrimSpace(cfg.GoalsSheet)
	if goalsSheet == "" {
		goalsSheet = "Goals"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		ledgerSheet:   ledgerSheet,
		goalsSheet:    goalsSheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func credentialsJSON(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	case cfg.CredentialsPath != "":
		b, err := os.ReadFile(cfg.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("read application credentials: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) ListTransactions(ctx context.Context, orgID string) ([]core.RawTransaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:H", c.ledgerSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	all, err := parseLedger(resp.Values)
	if err != nil {
		return nil, err
	}
	out := make([]core.RawTransaction, 0, len(all))
	for _, tx := range all {
		if tx.OrganizationID == orgID {
			out = append(out, tx)
		}
	}
	c.logger.DebugContext(ctx, "Ledger rows read",
		log.FieldOrganizationID, orgID,
		"rows", len(resp.Values),
		log.FieldEntriesTotal, len(out))
	return out, nil
}

// AppendTransaction appends one row in the canonical column order. Values are
// written RAW so that the sheet does not reformat amounts or dates. Ids are
// unique per organization; the check reads the ledger first, so concurrent
// writers to the same sheet can still race.
func (c *Client) AppendTransaction(ctx context.Context, tx core.RawTransaction) (string, error) {
	if err := ledger.CheckWritable(tx); err != nil {
		return "", err
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	existing, err := c.ListTransactions(ctx, tx.OrganizationID)
	if err != nil {
		return "", err
	}
	for _, e := range existing {
		if e.ID == tx.ID {
			return "", fmt.Errorf("%w: %s", ledger.ErrDuplicateTransaction, tx.ID)
		}
	}
	rng := fmt.Sprintf("%s!A:H", c.ledgerSheet)
	vr := &gsheet.ValueRange{Values: [][]any{ledgerRow(tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.ledgerSheet, err)
	}
	if resp.Updates != nil {
		c.logger.DebugContext(ctx, "Ledger row appended", log.FieldTransactionID, tx.ID, "range", resp.Updates.UpdatedRange)
	}
	return tx.ID, nil
}

func (c *Client) GetGoal(ctx context.Context, orgID string) (*core.GoalDescriptor, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:C", c.goalsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	goals, err := parseGoals(resp.Values)
	if err != nil {
		return nil, err
	}
	g, ok := goals[orgID]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

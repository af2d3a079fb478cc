package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fluxo/internal/analytics"
	"fluxo/internal/config"
	"fluxo/internal/core"
	"fluxo/internal/log"
)

// ErrSkippedEntries is returned by compute --strict when the ledger had
// entries the normalizer dropped. The snapshot is still printed.
var ErrSkippedEntries = errors.New("ledger has skipped entries")

// ledgerFile is the object form of a ledger file. A bare JSON array of
// transactions is accepted as well.
type ledgerFile struct {
	Transactions []core.RawTransaction `json:"transactions"`
	Goal         *core.GoalDescriptor  `json:"goal,omitempty"`
}

type computeFlags struct {
	file        string
	goalTarget  string
	goalCurrent string
	window      int
	top         int
	tags        string
	timezone    string
	colorPolicy string
	strict      bool
	logLevel    string
}

// NewRootCommand returns the fluxo-snapshot command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "fluxo-snapshot",
		Short: "Compute dashboard snapshots from ledger files",
		Long: `fluxo-snapshot runs the analytics engine over a ledger file and prints the
resulting snapshot (summary, monthly trend, categories, money flow and heatmap)
as JSON. It needs no database or server.`,
		SilenceUsage: true,
	}
	root.AddCommand(NewComputeCommand())
	return root
}

// NewComputeCommand returns the compute subcommand.
func NewComputeCommand() *cobra.Command {
	var f computeFlags
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a snapshot from a ledger file",
		Long: `Compute a snapshot from a JSON ledger file. The file holds either an array of
transactions or an object {"transactions": [...], "goal": {...}}. Goal flags
override a goal found in the file.`,
		Example: `  fluxo-snapshot compute --file ledger.json
  fluxo-snapshot compute -f ledger.json --goal-target 10000 --goal-current 2500 --window 12
  fluxo-snapshot compute -f ledger.json --tags tags.toml --timezone America/Sao_Paulo --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "Ledger JSON file (required)")
	flags.StringVar(&f.goalTarget, "goal-target", "", "Savings goal target amount")
	flags.StringVar(&f.goalCurrent, "goal-current", "", "Amount already saved towards the goal")
	flags.IntVar(&f.window, "window", analytics.DefaultWindowMonths, "Number of data months in the monthly trend")
	flags.IntVar(&f.top, "top", analytics.DefaultTopCategories, "Top categories shown as heatmap columns")
	flags.StringVar(&f.tags, "tags", "", "TOML tags file with palette and destinations")
	flags.StringVar(&f.timezone, "timezone", "UTC", "IANA time zone used for months and weekdays")
	flags.StringVar(&f.colorPolicy, "color-policy", string(analytics.ColorByRank), "Category color policy: rank or hash")
	flags.BoolVar(&f.strict, "strict", false, "Exit non-zero when any entry was skipped")
	flags.StringVar(&f.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runCompute(cmd *cobra.Command, f computeFlags) error {
	lvl, err := log.ParseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentCLI, Output: cmd.ErrOrStderr()})

	opts, err := f.options()
	if err != nil {
		return err
	}
	engine, err := analytics.NewEngine(opts)
	if err != nil {
		return err
	}

	raw, goal, err := readLedgerFile(f.file)
	if err != nil {
		return err
	}
	if goal, err = f.goal(goal); err != nil {
		return err
	}

	started := time.Now()
	res, err := engine.Compute(raw, goal)
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		logger.Warn("Entry skipped", log.FieldTransactionID, s.ID, log.FieldSkipReason, string(s.Reason))
	}
	logger.Debug("Snapshot computed",
		log.FieldEntriesTotal, len(raw),
		log.FieldEntriesSkipped, len(res.Skipped),
		log.FieldDuration, time.Since(started).Milliseconds())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if f.strict && len(res.Skipped) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSkippedEntries, len(res.Skipped), len(raw))
	}
	return nil
}

func (f computeFlags) options() (analytics.Options, error) {
	opts := analytics.DefaultOptions()
	opts.WindowMonths = f.window
	opts.TopCategories = f.top

	loc, err := time.LoadLocation(f.timezone)
	if err != nil {
		return analytics.Options{}, fmt.Errorf("invalid --timezone: %w", err)
	}
	opts.Location = loc

	policy, ok := analytics.ParseColorPolicy(f.colorPolicy)
	if !ok {
		return analytics.Options{}, fmt.Errorf("invalid --color-policy %q: must be rank or hash", f.colorPolicy)
	}
	opts.ColorPolicy = policy

	if f.tags != "" {
		tags, err := config.LoadTags(f.tags)
		if err != nil {
			return analytics.Options{}, err
		}
		tags.Apply(&opts)
	}
	return opts, nil
}

// goal merges the goal flags over the goal read from the file. A flag left
// empty keeps the file's value, or zero when the file has no goal.
func (f computeFlags) goal(fromFile *core.GoalDescriptor) (*core.GoalDescriptor, error) {
	if f.goalTarget == "" && f.goalCurrent == "" {
		return fromFile, nil
	}
	var g core.GoalDescriptor
	if fromFile != nil {
		g = *fromFile
	}
	if f.goalTarget != "" {
		v, err := decimal.NewFromString(f.goalTarget)
		if err != nil {
			return nil, fmt.Errorf("invalid --goal-target %q: %w", f.goalTarget, err)
		}
		g.TargetAmount = v
	}
	if f.goalCurrent != "" {
		v, err := decimal.NewFromString(f.goalCurrent)
		if err != nil {
			return nil, fmt.Errorf("invalid --goal-current %q: %w", f.goalCurrent, err)
		}
		g.CurrentAmount = v
	}
	return &g, nil
}

func readLedgerFile(path string) ([]core.RawTransaction, *core.GoalDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read ledger: %w", err)
	}
	return decodeLedger(data)
}

func decodeLedger(data []byte) ([]core.RawTransaction, *core.GoalDescriptor, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, errors.New("decode ledger: file is empty")
	}
	if data[0] == '[' {
		var items []core.RawTransaction
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, nil, fmt.Errorf("decode ledger: %w", err)
		}
		return items, nil, nil
	}
	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, nil, fmt.Errorf("decode ledger: %w", err)
	}
	return lf.Transactions, lf.Goal, nil
}

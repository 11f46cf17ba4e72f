// Package pipeline runs one weekly reward window end to end: trades in,
// committed merkle root and published snapshot out.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpIncentives/internal/distributor"
	"lpIncentives/internal/incentive"
	"lpIncentives/internal/ipfs"
	"lpIncentives/internal/ledger"
	"lpIncentives/internal/merkle"
	"lpIncentives/internal/metrics"
	"lpIncentives/internal/model"
	"lpIncentives/internal/notify"
	"lpIncentives/internal/publish"
	"lpIncentives/internal/storage"
)

// TradeSource lists the pool's trades and liquidity positions.
type TradeSource interface {
	Trades(ctx context.Context, pool model.Address, lower, upper uint64, first int, minAmount decimal.Decimal) ([]model.TradeEvent, error)
	PositionRefs(ctx context.Context, pool model.Address) ([]model.PositionRef, error)
}

// Submitter sends the updateTree transaction.
type Submitter interface {
	Submit(ctx context.Context, p distributor.Payload) (common.Hash, error)
}

// Options holds the per-deployment settings of a run.
type Options struct {
	Network        string
	Pool           model.Address
	Tokens         model.PoolTokens
	RewardToken    model.Address
	Distributor    model.Address
	Category       string
	Weights        incentive.Weights
	Budget         decimal.Decimal
	WeeksInPast    uint64
	MaxTrades      int
	MinTradeAmount decimal.Decimal
	BoostMode      incentive.BoostMode
	Bootstrap      bool
	Force          bool
	DryRun         bool
}

// Deps are the collaborators of a run. Pinner, Submitter, State, Sink,
// Notifier and Metrics are optional; Pinner and Submitter are required
// unless DryRun is set.
type Deps struct {
	Trades    TradeSource
	Positions incentive.PositionReader
	Boost     incentive.BoostReader
	Publisher publish.Publisher
	Pinner    ipfs.Pinner
	Submitter Submitter
	State     StateStore
	Sink      storage.Sink
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// Report is what one run produced.
type Report struct {
	Window     Window              `json:"window"`
	Trades     int                 `json:"trades"`
	Rewards    model.RewardShare   `json:"rewards"`
	Ledger     ledger.Ledger       `json:"ledger"`
	Commitment *merkle.Commitment  `json:"commitment"`
	Payload    distributor.Payload `json:"payload"`
	CID        string              `json:"cid,omitempty"`
	TxHash     string              `json:"tx_hash,omitempty"`
	Snapshot   string              `json:"snapshot"`
	DryRun     bool                `json:"dry_run"`
	Skipped    bool                `json:"skipped"`
}

// proofsDocument is published next to the ledger snapshot.
type proofsDocument struct {
	Week           uint64              `json:"week"`
	Root           common.Hash         `json:"root"`
	RewardToken    model.Address       `json:"reward_token"`
	ContentPointer common.Hash         `json:"content_pointer"`
	CID            string              `json:"cid,omitempty"`
	Claims         []merkle.ClaimProof `json:"claims"`
}

// Runner executes reward runs.
type Runner struct {
	opts   Options
	deps   Deps
	logger *zap.Logger
}

func NewRunner(opts Options, deps Deps) (*Runner, error) {
	if deps.Trades == nil {
		return nil, fmt.Errorf("trade source is nil")
	}
	if deps.Positions == nil {
		return nil, fmt.Errorf("position reader is nil")
	}
	if deps.Publisher == nil {
		return nil, fmt.Errorf("publisher is nil")
	}
	if !opts.DryRun && deps.Pinner == nil {
		return nil, fmt.Errorf("pinner is required unless dry-run")
	}
	if !opts.DryRun && deps.Submitter == nil {
		return nil, fmt.Errorf("submitter is required unless dry-run")
	}
	if opts.Network == "" {
		return nil, fmt.Errorf("network is required")
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	if opts.Budget.IsNegative() {
		return nil, fmt.Errorf("budget must not be negative")
	}
	if opts.MaxTrades <= 0 {
		return nil, fmt.Errorf("max trades must be greater than zero")
	}
	mode, err := incentive.ParseBoostMode(string(opts.BoostMode))
	if err != nil {
		return nil, err
	}
	opts.BoostMode = mode

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{opts: opts, deps: deps, logger: deps.Logger}, nil
}

// Run computes the window's rewards, merges them into the prior ledger and,
// unless dry-run, submits the new root and publishes the snapshot. Nothing is
// published or submitted when any step before submission fails.
func (r *Runner) Run(ctx context.Context) (rep Report, err error) {
	started := r.deps.Now()
	defer func() { r.deps.Metrics.RunFinished(started, err) }()

	window, err := WindowFor(started, r.opts.WeeksInPast)
	if err != nil {
		return Report{}, err
	}
	rep = Report{Window: window, DryRun: r.opts.DryRun, Snapshot: publish.SnapshotName(r.opts.Network, window.Week)}
	logger := r.logger.With(zap.Uint64("week", window.Week), zap.Uint64("window_week", window.WindowWeek))

	last, hasLast, err := checkReplay(ctx, r.deps.State, window.Week, r.opts.Force || r.opts.DryRun)
	if err != nil {
		return Report{}, err
	}

	lower, upper := window.queryBounds()
	trades, err := r.deps.Trades.Trades(ctx, r.opts.Pool, lower, upper, r.opts.MaxTrades, r.opts.MinTradeAmount)
	if err != nil {
		return Report{}, fmt.Errorf("fetch trades: %w", err)
	}
	refs, err := r.deps.Trades.PositionRefs(ctx, r.opts.Pool)
	if err != nil {
		return Report{}, fmt.Errorf("fetch positions: %w", err)
	}
	logger.Info("window loaded", zap.Int("trades", len(trades)), zap.Int("positions", len(refs)))

	calc := incentive.Calculator{
		Positions: r.deps.Positions,
		Boost:     r.deps.Boost,
		Scales: incentive.Scales{
			Liquidity: ledger.Decimals,
			Token0:    int32(r.opts.Tokens.Token0.Decimals),
			Token1:    int32(r.opts.Tokens.Token1.Decimals),
		},
		Mode:   r.opts.BoostMode,
		Logger: logger,
	}
	res, err := calc.Run(ctx, trades, refs)
	if err != nil {
		return Report{}, fmt.Errorf("compute window: %w", err)
	}
	r.deps.Metrics.TradesProcessed(res.Trades)
	r.deps.Metrics.PositionsInRange(res.InRangePositions)
	rep.Trades = res.Trades

	rewards, err := incentive.Allocate(res.Credits, r.opts.Weights, r.opts.Budget)
	if err != nil {
		return Report{}, fmt.Errorf("allocate: %w", err)
	}
	rep.Rewards = rewards
	r.deps.Metrics.HoldersRewarded(countNonZero(rewards))

	prior, err := r.priorLedger(ctx, window.Week, last, hasLast)
	if err != nil {
		return Report{}, err
	}
	merged, err := ledger.Merge(prior, rewards, r.opts.Category)
	if err != nil {
		return Report{}, fmt.Errorf("merge ledger: %w", err)
	}
	rep.Ledger = merged

	if len(merged) == 0 {
		logger.Warn("ledger is empty, nothing to commit")
		rep.Skipped = true
		rep.Commitment, err = merkle.Build(merged, r.opts.RewardToken, common.Hash{})
		return rep, err
	}

	snapshot, err := json.Marshal(merged)
	if err != nil {
		return Report{}, fmt.Errorf("encode ledger: %w", err)
	}

	var pointer common.Hash
	if !r.opts.DryRun {
		rep.CID, err = r.deps.Pinner.PinJSON(ctx, fmt.Sprintf("rewards_%d", window.Week), snapshot)
		if err != nil {
			return Report{}, fmt.Errorf("pin ledger: %w", err)
		}
		pointer, err = ipfs.PointerFromCID(rep.CID)
		if err != nil {
			return Report{}, fmt.Errorf("content pointer: %w", err)
		}
	}

	commitment, err := merkle.Build(merged, r.opts.RewardToken, pointer)
	if err != nil {
		return Report{}, fmt.Errorf("build commitment: %w", err)
	}
	rep.Commitment = commitment
	payload, err := distributor.BuildPayload(r.opts.Distributor.Common(), commitment.Root, pointer)
	if err != nil {
		return Report{}, err
	}
	rep.Payload = payload
	logger.Info("commitment built",
		zap.String("root", commitment.Root.Hex()),
		zap.String("pointer", pointer.Hex()),
		zap.Int("holders", len(commitment.Claims)),
	)

	if r.opts.DryRun {
		return rep, nil
	}

	txHash, err := r.deps.Submitter.Submit(ctx, payload)
	if err != nil {
		return Report{}, fmt.Errorf("submit root: %w", err)
	}
	rep.TxHash = txHash.Hex()

	proofs, err := r.proofsFile(window.Week, rep.CID, commitment)
	if err != nil {
		return Report{}, err
	}
	files := []publish.File{{Name: rep.Snapshot, Content: snapshot}, proofs}
	if err := r.deps.Publisher.Publish(ctx, fmt.Sprintf("rewards for week %d", window.Week), files); err != nil {
		// The week id comes from the clock, so a retry after the week rolls
		// over must pin the time back into this week.
		return Report{}, fmt.Errorf("publish snapshot (root %s already submitted in %s, retry with --force --now %d): %w",
			commitment.Root.Hex(), rep.TxHash, started.Unix(), err)
	}

	if r.deps.Sink != nil {
		if err := r.deps.Sink.PutRun(ctx, r.runRecord(rep, started), ledgerEntries(merged)); err != nil {
			logger.Error("persist run", zap.Error(err))
		}
	}
	if r.deps.State != nil {
		if err := r.deps.State.Save(ctx, window.Week); err != nil {
			return Report{}, fmt.Errorf("save state: %w", err)
		}
	}
	r.deps.Metrics.Committed(window.Week)

	if r.deps.Notifier != nil {
		event := notify.Event{
			Week:           window.Week,
			Root:           commitment.Root.Hex(),
			ContentPointer: pointer.Hex(),
			CID:            rep.CID,
			Holders:        len(commitment.Claims),
			Snapshot:       rep.Snapshot,
			TxHash:         rep.TxHash,
		}
		if err := r.deps.Notifier.Notify(ctx, event); err != nil {
			logger.Warn("notify", zap.Error(err))
		}
	}

	logger.Info("run committed", zap.String("root", commitment.Root.Hex()), zap.String("tx", rep.TxHash))
	return rep, nil
}

// priorLedger fetches the snapshot the new week builds on: the previous week,
// or the last committed one if weeks were skipped.
func (r *Runner) priorLedger(ctx context.Context, week, last uint64, hasLast bool) (ledger.Ledger, error) {
	if week == 0 {
		return ledger.Ledger{}, nil
	}
	priorWeek := week - 1
	if hasLast && last < priorWeek {
		priorWeek = last
	}
	name := publish.SnapshotName(r.opts.Network, priorWeek)

	data, err := r.deps.Publisher.Fetch(ctx, name)
	if err != nil {
		// Bootstrap only applies before the first commit; with history a
		// missing snapshot would reset every holder's cumulative balance.
		if errors.Is(err, publish.ErrNotFound) && r.opts.Bootstrap && !hasLast {
			r.logger.Warn("no prior snapshot, starting from an empty ledger", zap.String("name", name))
			return ledger.Ledger{}, nil
		}
		return nil, fmt.Errorf("fetch prior ledger %s: %w", name, err)
	}
	prior, err := ledger.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode prior ledger %s: %w", name, err)
	}
	return prior, nil
}

func (r *Runner) proofsFile(week uint64, cid string, c *merkle.Commitment) (publish.File, error) {
	claims, err := c.Proofs()
	if err != nil {
		return publish.File{}, fmt.Errorf("build proofs: %w", err)
	}
	data, err := json.MarshalIndent(proofsDocument{
		Week:           week,
		Root:           c.Root,
		RewardToken:    c.RewardToken,
		ContentPointer: c.ContentPointer,
		CID:            cid,
		Claims:         claims,
	}, "", "  ")
	if err != nil {
		return publish.File{}, fmt.Errorf("encode proofs: %w", err)
	}
	return publish.File{Name: publish.ProofsName(r.opts.Network, week), Content: data}, nil
}

func (r *Runner) runRecord(rep Report, started time.Time) model.RunRecord {
	return model.RunRecord{
		Week:           rep.Window.Week,
		WindowWeek:     rep.Window.WindowWeek,
		WindowStart:    rep.Window.Start,
		WindowEnd:      rep.Window.End,
		Pool:           r.opts.Pool,
		Category:       r.opts.Category,
		Trades:         rep.Trades,
		Holders:        len(rep.Commitment.Claims),
		Root:           rep.Commitment.Root.Hex(),
		ContentPointer: rep.Commitment.ContentPointer.Hex(),
		CID:            rep.CID,
		Total:          rep.Ledger.Total().String(),
		TxHash:         rep.TxHash,
		DryRun:         rep.DryRun,
		CreatedAt:      started.UTC(),
	}
}

func ledgerEntries(l ledger.Ledger) []model.LedgerEntry {
	entries := make([]model.LedgerEntry, 0, len(l))
	for _, holder := range l.Holders() {
		categories := make([]string, 0, len(l[holder]))
		for category := range l[holder] {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			entries = append(entries, model.LedgerEntry{
				Holder:   holder,
				Category: category,
				Amount:   l[holder][category].String(),
			})
		}
	}
	return entries
}

func countNonZero(s model.RewardShare) int {
	n := 0
	for _, v := range s {
		if !v.IsZero() {
			n++
		}
	}
	return n
}

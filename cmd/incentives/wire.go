package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpIncentives/internal/chain"
	"lpIncentives/internal/config"
	"lpIncentives/internal/dex"
	"lpIncentives/internal/distributor"
	"lpIncentives/internal/incentive"
	"lpIncentives/internal/indexer"
	"lpIncentives/internal/ipfs"
	"lpIncentives/internal/metrics"
	"lpIncentives/internal/model"
	"lpIncentives/internal/notify"
	"lpIncentives/internal/pipeline"
	"lpIncentives/internal/publish"
	"lpIncentives/internal/retry"
	"lpIncentives/internal/storage"
	"lpIncentives/internal/storage/postgres"
	"lpIncentives/internal/subgraph"
)

// logTradeSource reads trades from Swap logs and positions from the subgraph.
type logTradeSource struct {
	*indexer.SwapScanner
	refs *subgraph.Client
}

func (s logTradeSource) PositionRefs(ctx context.Context, pool model.Address) ([]model.PositionRef, error) {
	return s.refs.PositionRefs(ctx, pool)
}

type addresses struct {
	pool, rewardToken, distributor, positionManager, multicall model.Address
}

func parseAddresses(cfg config.RunConfig) (addresses, error) {
	var out addresses
	fields := []struct {
		name  string
		value string
		dst   *model.Address
	}{
		{"pool", cfg.Pool, &out.pool},
		{"reward-token", cfg.RewardToken, &out.rewardToken},
		{"distributor", cfg.Distributor, &out.distributor},
		{"position-manager", cfg.PositionManager, &out.positionManager},
		{"multicall", cfg.Multicall, &out.multicall},
	}
	for _, f := range fields {
		addr, err := model.ParseAddress(f.value)
		if err != nil {
			return addresses{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = addr
	}
	return out, nil
}

func parseDecimal(name, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: invalid decimal %q", name, value)
	}
	return d, nil
}

func parseWeights(cfg config.RunConfig) (incentive.Weights, error) {
	var (
		w   incentive.Weights
		err error
	)
	if w.Fees, err = parseDecimal("weight-fees", cfg.WeightFees); err != nil {
		return w, err
	}
	if w.Token0, err = parseDecimal("weight-token0", cfg.WeightTok0); err != nil {
		return w, err
	}
	if w.Token1, err = parseDecimal("weight-token1", cfg.WeightTok1); err != nil {
		return w, err
	}
	return w, w.Validate()
}

// parseMirror reads "name|url|token" with an optional fourth "header" field.
// Without a header the token is sent as a bearer Authorization.
func parseMirror(entry string) (ipfs.Mirror, error) {
	parts := strings.Split(entry, "|")
	if len(parts) < 3 || len(parts) > 4 {
		return ipfs.Mirror{}, fmt.Errorf("pin mirror %q: want name|url|token[|header]", entry)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" || parts[1] == "" {
		return ipfs.Mirror{}, fmt.Errorf("pin mirror %q: name and url are required", entry)
	}
	m := ipfs.Mirror{Name: parts[0], URL: parts[1], Token: parts[2], BearerKey: true}
	if len(parts) == 4 && parts[3] != "" {
		m.Header = parts[3]
		m.BearerKey = false
	}
	return m, nil
}

func fixedClock(input string) (func() time.Time, error) {
	if strings.TrimSpace(input) == "" {
		return time.Now, nil
	}
	at, err := config.ParseTimestamp(input)
	if err != nil {
		return nil, err
	}
	return func() time.Time { return at }, nil
}

// buildRunner wires every collaborator named in cfg. The returned cleanup
// releases connections and must be called once the runner is done.
func buildRunner(ctx context.Context, cfg config.RunConfig, m *metrics.Metrics, logger *zap.Logger) (*pipeline.Runner, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*pipeline.Runner, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	if cfg.RPCURL == "" {
		return fail(fmt.Errorf("rpc url is required"))
	}
	if cfg.SubgraphURL == "" {
		return fail(fmt.Errorf("subgraph url is required"))
	}
	addrs, err := parseAddresses(cfg)
	if err != nil {
		return fail(err)
	}
	weights, err := parseWeights(cfg)
	if err != nil {
		return fail(err)
	}
	budget, err := parseDecimal("budget", cfg.Budget)
	if err != nil {
		return fail(err)
	}
	minTrade, err := parseDecimal("min-trade-amount", cfg.MinTradeAmount)
	if err != nil {
		return fail(err)
	}
	now, err := fixedClock(cfg.Now)
	if err != nil {
		return fail(err)
	}
	policy := retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBackoff, MaxDelay: 10 * time.Second}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, client.Close)

	tokens, err := dex.FetchPoolTokens(ctx, client, addrs.pool.Common(), dex.NewTokenMetaCache(), logger)
	if err != nil {
		return fail(err)
	}
	logger.Info("pool tokens",
		zap.String("token0", tokens.Token0.Symbol),
		zap.Uint8("decimals0", tokens.Token0.Decimals),
		zap.String("token1", tokens.Token1.Symbol),
		zap.Uint8("decimals1", tokens.Token1.Decimals),
	)

	mc := dex.NewMulticaller(client, addrs.multicall.Common(), cfg.MulticallChunk, policy, logger)
	deps := pipeline.Deps{
		Positions: dex.NewPositionReader(mc, addrs.positionManager.Common(), tokens.Token0.Address.Common(), tokens.Token1.Address.Common(), m.ReadFailure, logger),
		Metrics:   m,
		Logger:    logger,
		Now:       now,
	}
	if cfg.BoostContract != "" {
		boost, err := model.ParseAddress(cfg.BoostContract)
		if err != nil {
			return fail(fmt.Errorf("boost-contract: %w", err))
		}
		deps.Boost = dex.NewBoostReader(mc, boost.Common(), cfg.BoostDecimals, m.ReadFailure, logger)
	}

	graph, err := subgraph.NewClient(subgraph.Config{
		URL:     cfg.SubgraphURL,
		APIKey:  cfg.SubgraphKey,
		Testnet: cfg.Testnet,
		Retry:   policy,
	}, logger)
	if err != nil {
		return fail(err)
	}
	switch cfg.TradeSource {
	case "", "subgraph":
		deps.Trades = graph
	case "logs":
		decimals := tokens.Token0.Decimals
		if cfg.AmountToken == 1 {
			decimals = tokens.Token1.Decimals
		}
		scanner, err := indexer.NewSwapScanner(indexer.ScanConfig{
			BatchSize:   cfg.ScanBatchSize,
			AmountToken: cfg.AmountToken,
			Decimals:    int32(decimals),
			Retry:       policy,
		}, client, logger)
		if err != nil {
			return fail(err)
		}
		deps.Trades = logTradeSource{SwapScanner: scanner, refs: graph}
	default:
		return fail(fmt.Errorf("unknown trade source %q", cfg.TradeSource))
	}

	if cfg.PublishDir != "" {
		deps.Publisher = publish.NewDirPublisher(cfg.PublishDir)
	} else {
		gh, err := publish.NewGitHubPublisher(publish.GitHubConfig{
			Owner:   cfg.GitHubOwner,
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitHubBranch,
			Token:   cfg.GitHubToken,
			BaseURL: cfg.GitHubURL,
			Retry:   policy,
		}, logger)
		if err != nil {
			return fail(err)
		}
		deps.Publisher = gh
	}

	if !cfg.DryRun {
		mirrors := make([]ipfs.Mirror, 0, len(cfg.PinMirrors))
		for _, entry := range cfg.PinMirrors {
			mirror, err := parseMirror(entry)
			if err != nil {
				return fail(err)
			}
			mirrors = append(mirrors, mirror)
		}
		pinner, err := ipfs.NewPinataPinner(ipfs.PinataConfig{
			BaseURL:   cfg.PinataURL,
			JWT:       cfg.PinataJWT,
			APIKey:    cfg.PinataKey,
			APISecret: cfg.PinataSecret,
			Retry:     policy,
		}, mirrors, logger)
		if err != nil {
			return fail(err)
		}
		deps.Pinner = pinner

		submitter, err := distributor.NewSubmitter(client, distributor.SubmitterConfig{
			PrivateKey: cfg.PrivateKey,
			GasLimit:   cfg.GasLimit,
			Legacy:     cfg.LegacyTx,
			Wait:       cfg.WaitMined,
		}, logger)
		if err != nil {
			return fail(err)
		}
		logger.Info("keeper", zap.String("from", submitter.From().Hex()))
		deps.Submitter = submitter
	}

	var sinks storage.Multi
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return fail(err)
		}
		deps.State = &pipeline.DBStateStore{Store: store, Name: cfg.StateName}
		sinks = append(sinks, store)
	} else if cfg.StateFile != "" {
		deps.State = &pipeline.FileStateStore{Path: cfg.StateFile}
	}
	if cfg.Journal != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Journal))
	}
	if len(sinks) > 0 {
		deps.Sink = sinks
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		notifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() {
			if err := notifier.Close(); err != nil {
				logger.Warn("close kafka writer", zap.Error(err))
			}
		})
		deps.Notifier = notifier
	}

	runner, err := pipeline.NewRunner(pipeline.Options{
		Network:        cfg.Network,
		Pool:           addrs.pool,
		Tokens:         tokens,
		RewardToken:    addrs.rewardToken,
		Distributor:    addrs.distributor,
		Category:       cfg.Category,
		Weights:        weights,
		Budget:         budget,
		WeeksInPast:    cfg.WeeksInPast,
		MaxTrades:      cfg.MaxTrades,
		MinTradeAmount: minTrade,
		BoostMode:      incentive.BoostMode(cfg.BoostMode),
		Bootstrap:      cfg.Bootstrap,
		Force:          cfg.Force,
		DryRun:         cfg.DryRun,
	}, deps)
	if err != nil {
		return fail(err)
	}
	return runner, cleanup, nil
}

package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RunConfig holds everything one reward run needs.
type RunConfig struct {
	LogLevel string
	Now      string

	RPCURL          string
	Network         string
	Pool            string
	RewardToken     string
	Distributor     string
	PositionManager string
	Multicall       string
	MulticallChunk  int
	BoostContract   string
	BoostDecimals   int32
	BoostMode       string

	TradeSource    string
	SubgraphURL    string
	SubgraphKey    string
	Testnet        bool
	AmountToken    int
	ScanBatchSize  uint64
	MaxTrades      int
	MinTradeAmount string

	Category    string
	WeightFees  string
	WeightTok0  string
	WeightTok1  string
	Budget      string
	WeeksInPast uint64

	Bootstrap bool
	Force     bool
	DryRun    bool

	PublishDir   string
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string
	GitHubToken  string
	GitHubURL    string

	PinataURL    string
	PinataJWT    string
	PinataKey    string
	PinataSecret string
	PinMirrors   []string

	PrivateKey string
	GasLimit   uint64
	LegacyTx   bool
	WaitMined  bool

	PGDSN     string
	StateFile string
	StateName string
	Journal   string

	KafkaBrokers []string
	KafkaTopic   string

	MaxRetries   int
	RetryBackoff time.Duration
}

func runDefaults() map[string]interface{} {
	return map[string]interface{}{
		"log-level":        "info",
		"network":          "mainnet",
		"pool":             "0xd4811d73938f131a6bf0e10ce281b05d6959fcbd",
		"reward-token":     "0x98585dFc8d9e7D48F0b1aE47ce33332CF4237D96",
		"distributor":      "0xa52cC093cA3DdF7a91575569CE9f672EC02B2CDe",
		"position-manager": "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		"multicall":        "0xBA22FA85650735f9cF097AD1bd935875348a0A64",
		"multicall-chunk":  500,
		"boost-contract":   "0x44dd83E0598e7A3709cF0b2e59D3319418068a65",
		"boost-decimals":   0,
		"boost-mode":       "trade",
		"trade-source":     "subgraph",
		"amount-token":     1,
		"scan-batch-size":  uint64(2000),
		"max-trades":       1000,
		"min-trade-amount": "50",
		"category":         "Uni-V3 NEWO/USDC LP",
		"weight-fees":      "0.4",
		"weight-token0":    "0.4",
		"weight-token1":    "0.2",
		"budget":           "100",
		"weeks-in-past":    uint64(1),
		"github-branch":    "main",
		"gas-limit":        uint64(1_000_000),
		"state-name":       "incentives",
		"max-retries":      3,
		"retry-backoff":    500 * time.Millisecond,
	}
}

// LoadRun merges .env, config file, environment variables and flags into RunConfig.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	v, err := newViper(cfgFile, flags, runDefaults())
	if err != nil {
		return RunConfig{}, err
	}
	return runFromViper(v), nil
}

func runFromViper(v *viper.Viper) RunConfig {
	return RunConfig{
		LogLevel: v.GetString("log-level"),
		Now:      v.GetString("now"),

		RPCURL:          v.GetString("rpc"),
		Network:         v.GetString("network"),
		Pool:            v.GetString("pool"),
		RewardToken:     v.GetString("reward-token"),
		Distributor:     v.GetString("distributor"),
		PositionManager: v.GetString("position-manager"),
		Multicall:       v.GetString("multicall"),
		MulticallChunk:  v.GetInt("multicall-chunk"),
		BoostContract:   v.GetString("boost-contract"),
		BoostDecimals:   v.GetInt32("boost-decimals"),
		BoostMode:       v.GetString("boost-mode"),

		TradeSource:    v.GetString("trade-source"),
		SubgraphURL:    v.GetString("subgraph"),
		SubgraphKey:    v.GetString("subgraph-key"),
		Testnet:        v.GetBool("testnet"),
		AmountToken:    v.GetInt("amount-token"),
		ScanBatchSize:  v.GetUint64("scan-batch-size"),
		MaxTrades:      v.GetInt("max-trades"),
		MinTradeAmount: v.GetString("min-trade-amount"),

		Category:    v.GetString("category"),
		WeightFees:  v.GetString("weight-fees"),
		WeightTok0:  v.GetString("weight-token0"),
		WeightTok1:  v.GetString("weight-token1"),
		Budget:      v.GetString("budget"),
		WeeksInPast: v.GetUint64("weeks-in-past"),

		Bootstrap: v.GetBool("bootstrap"),
		Force:     v.GetBool("force"),
		DryRun:    v.GetBool("dry-run"),

		PublishDir:   v.GetString("publish-dir"),
		GitHubOwner:  v.GetString("github-owner"),
		GitHubRepo:   v.GetString("github-repo"),
		GitHubBranch: v.GetString("github-branch"),
		GitHubToken:  v.GetString("github-token"),
		GitHubURL:    v.GetString("github-url"),

		PinataURL:    v.GetString("pinata-url"),
		PinataJWT:    v.GetString("pinata-jwt"),
		PinataKey:    v.GetString("pinata-key"),
		PinataSecret: v.GetString("pinata-secret"),
		PinMirrors:   stringList(v, "pin-mirror"),

		PrivateKey: v.GetString("private-key"),
		GasLimit:   v.GetUint64("gas-limit"),
		LegacyTx:   v.GetBool("legacy-tx"),
		WaitMined:  v.GetBool("wait-mined"),

		PGDSN:     v.GetString("pg-dsn"),
		StateFile: v.GetString("state-file"),
		StateName: v.GetString("state-name"),
		Journal:   v.GetString("journal"),

		KafkaBrokers: stringList(v, "kafka-brokers"),
		KafkaTopic:   v.GetString("kafka-topic"),

		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

package main

import (
	"time"

	"github.com/spf13/cobra"
)

// addRunFlags registers the flags shared by run and serve. Defaults live in
// the config package so that env and config file values are not shadowed.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("now", "", "evaluate as if at this time (unix seconds or RFC3339)")

	f.String("rpc", "", "Ethereum RPC URL")
	f.String("network", "", "network name used in snapshot paths")
	f.String("pool", "", "incentivised pool address")
	f.String("reward-token", "", "reward token address")
	f.String("distributor", "", "merkle distributor address")
	f.String("position-manager", "", "NonfungiblePositionManager address")
	f.String("multicall", "", "Multicall2 address")
	f.Int("multicall-chunk", 0, "calls per aggregate request")
	f.String("boost-contract", "", "voting escrow contract, empty disables boost")
	f.Int32("boost-decimals", 0, "decimals of the boost multiplier")
	f.String("boost-mode", "", "boost read mode (trade, window)")

	f.String("trade-source", "", "where trades come from (subgraph, logs)")
	f.String("subgraph", "", "subgraph URL")
	f.String("subgraph-key", "", "subgraph API key")
	f.Bool("testnet", false, "use the testnet subgraph schema")
	f.Int("amount-token", 0, "pool token whose swap leg is the trade amount (logs source)")
	f.Uint64("scan-batch-size", 0, "blocks per log request (logs source)")
	f.Int("max-trades", 0, "largest trades considered per week")
	f.String("min-trade-amount", "", "smallest trade amount considered")

	f.String("category", "", "ledger category for this pool")
	f.String("weight-fees", "", "budget weight of fee credit")
	f.String("weight-token0", "", "budget weight of token0 credit")
	f.String("weight-token1", "", "budget weight of token1 credit")
	f.String("budget", "", "weekly budget in reward tokens")
	f.Uint64("weeks-in-past", 0, "how many weeks back the reward window ends")

	f.Bool("bootstrap", false, "allow a run without a prior snapshot")
	f.Bool("force", false, "rerun an already committed week")
	f.Bool("dry-run", false, "compute only, no pin, submit or publish")

	f.String("publish-dir", "", "publish snapshots to this directory instead of GitHub")
	f.String("github-owner", "", "snapshot repository owner")
	f.String("github-repo", "", "snapshot repository name")
	f.String("github-branch", "", "snapshot repository branch")
	f.String("github-token", "", "GitHub token")
	f.String("github-url", "", "GitHub API base URL")

	f.String("pinata-url", "", "Pinata API base URL")
	f.String("pinata-jwt", "", "Pinata JWT")
	f.String("pinata-key", "", "Pinata API key")
	f.String("pinata-secret", "", "Pinata API secret")
	f.StringSlice("pin-mirror", nil, "extra pinning services as name|url|token")

	f.String("private-key", "", "keeper private key")
	f.Uint64("gas-limit", 0, "updateTree gas limit")
	f.Bool("legacy-tx", false, "send a legacy gas price transaction")
	f.Bool("wait-mined", false, "wait for the receipt of updateTree")

	f.String("pg-dsn", "", "Postgres DSN for run history and state")
	f.String("state-file", "", "local state file when no Postgres DSN is set")
	f.String("state-name", "", "state row name in Postgres")
	f.String("journal", "", "append run records to this JSONL file")

	f.StringSlice("kafka-brokers", nil, "Kafka brokers for run events")
	f.String("kafka-topic", "", "Kafka topic for run events")

	f.Int("max-retries", 0, "maximum retry attempts")
	f.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

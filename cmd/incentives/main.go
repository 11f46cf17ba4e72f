package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "incentives",
		Short:        "Weekly LP reward allocation and merkle commitment",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Compute, commit and publish one reward week",
		RunE:  runOnce,
	}
	addRunFlags(runCmd)
	root.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP run trigger, health and metrics",
		RunE:  runServe,
	}
	addRunFlags(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("header-key", "", "auth header name required on /run")
	serveCmd.Flags().String("header-value", "", "auth header value required on /run")
	serveCmd.Flags().Duration("run-timeout", 30*time.Minute, "upper bound for one triggered run")
	root.AddCommand(serveCmd)

	proofCmd := &cobra.Command{
		Use:   "proof",
		Short: "Rebuild the merkle tree of a ledger snapshot and print a claim proof",
		RunE:  runProof,
	}
	proofCmd.Flags().String("ledger", "", "ledger snapshot JSON file")
	proofCmd.Flags().String("reward-token", "", "reward token address")
	proofCmd.Flags().String("holder", "", "holder to print the proof for (all holders when empty)")
	proofCmd.Flags().String("cid", "", "optional CIDv0 of the snapshot")
	root.AddCommand(proofCmd)

	pointerCmd := &cobra.Command{
		Use:   "pointer <cid|0xhash>",
		Short: "Convert between a CIDv0 and its 32-byte on-chain pointer",
		Args:  cobra.ExactArgs(1),
		RunE:  runPointer,
	}
	root.AddCommand(pointerCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

package main

import (
	"testing"
	"time"

	"lpIncentives/internal/config"
)

func TestParseMirror(t *testing.T) {
	m, err := parseMirror("web3storage|https://api.web3.storage/pins|tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "web3storage" || m.URL != "https://api.web3.storage/pins" || m.Token != "tok" || !m.BearerKey || m.Header != "" {
		t.Fatalf("unexpected mirror %+v", m)
	}

	m, err = parseMirror("4everland | https://pin.example/add | secret | X-Api-Key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Header != "X-Api-Key" || m.BearerKey || m.Token != "secret" {
		t.Fatalf("unexpected mirror %+v", m)
	}

	for _, bad := range []string{"name|url", "|https://x|tok", "a|b|c|d|e"} {
		if _, err := parseMirror(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseWeights(t *testing.T) {
	w, err := parseWeights(config.RunConfig{WeightFees: "0.4", WeightTok0: "0.4", WeightTok1: "0.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Token1.String() != "0.2" {
		t.Fatalf("unexpected weights %+v", w)
	}

	if _, err := parseWeights(config.RunConfig{WeightFees: "abc", WeightTok0: "0.4", WeightTok1: "0.2"}); err == nil {
		t.Fatalf("expected error for non-numeric weight")
	}
	if _, err := parseWeights(config.RunConfig{WeightFees: "1.5", WeightTok0: "0.4", WeightTok1: "0.2"}); err == nil {
		t.Fatalf("expected error for weight above one")
	}
}

func TestFixedClock(t *testing.T) {
	now, err := fixedClock("1700000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !now().Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected time %v", now())
	}
	if _, err := fixedClock("yesterday"); err == nil {
		t.Fatalf("expected error for bad timestamp")
	}
	if now, err := fixedClock(""); err != nil || now == nil {
		t.Fatalf("expected wall clock, got %v", err)
	}
}

func TestConvertPointer(t *testing.T) {
	const (
		cidText = "QmNSUYVKDSvPUnRLKmuxk9diJ6yS96r1TrAXzjTiBcCLAL"
		pointer = "0x017dfd85d4f6cb4dcd715a88101f7b1f06cd1e009b2327a0809d01eb9c91f231"
	)
	got, err := convertPointer(cidText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != pointer {
		t.Fatalf("pointer mismatch: %s", got)
	}
	got, err = convertPointer(pointer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cidText {
		t.Fatalf("cid mismatch: %s", got)
	}
	if _, err := convertPointer("0x1234"); err == nil {
		t.Fatalf("expected error for short pointer")
	}
}

func TestParseAddressesRejectsBadInput(t *testing.T) {
	cfg := config.RunConfig{
		Pool:            "0xd4811d73938f131a6bf0e10ce281b05d6959fcbd",
		RewardToken:     "0x98585dFc8d9e7D48F0b1aE47ce33332CF4237D96",
		Distributor:     "not-an-address",
		PositionManager: "0xC36442b4a4522E871399CD717aBDD847Ab11FE88",
		Multicall:       "0xBA22FA85650735f9cF097AD1bd935875348a0A64",
	}
	if _, err := parseAddresses(cfg); err == nil {
		t.Fatalf("expected error for bad distributor")
	}
	cfg.Distributor = "0xa52cC093cA3DdF7a91575569CE9f672EC02B2CDe"
	addrs, err := parseAddresses(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addrs.pool.IsZero() || addrs.multicall.IsZero() {
		t.Fatalf("unexpected addresses %+v", addrs)
	}
}

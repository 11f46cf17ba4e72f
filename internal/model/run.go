package model

import "time"

// RunRecord summarises one committed (or dry-run) reward window.
type RunRecord struct {
	Week           uint64    `json:"week"`
	WindowWeek     uint64    `json:"window_week"`
	WindowStart    uint64    `json:"window_start_ts"`
	WindowEnd      uint64    `json:"window_end_ts"`
	Pool           Address   `json:"pool"`
	Category       string    `json:"category"`
	Trades         int       `json:"trades"`
	Holders        int       `json:"holders"`
	Root           string    `json:"root"`
	ContentPointer string    `json:"content_pointer"`
	CID            string    `json:"cid,omitempty"`
	Total          string    `json:"total"`
	TxHash         string    `json:"tx_hash,omitempty"`
	DryRun         bool      `json:"dry_run"`
	CreatedAt      time.Time `json:"created_at"`
}

// LedgerEntry is one flattened row of the cumulative ledger.
type LedgerEntry struct {
	Holder   Address `json:"holder"`
	Category string  `json:"category"`
	Amount   string  `json:"amount"`
}

package storage

import (
	"context"

	"lpIncentives/internal/model"
)

// Sink records the outcome of a reward run.
type Sink interface {
	PutRun(ctx context.Context, run model.RunRecord, entries []model.LedgerEntry) error
}

// Multi fans a run out to several sinks, stopping at the first error.
type Multi []Sink

func (m Multi) PutRun(ctx context.Context, run model.RunRecord, entries []model.LedgerEntry) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.PutRun(ctx, run, entries); err != nil {
			return err
		}
	}
	return nil
}

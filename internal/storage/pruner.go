package storage

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes analyses older than the retention window on a fixed
// schedule while the server runs.
type Pruner struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewPruner creates a Pruner. If interval is <= 0, it defaults to one hour.
func NewPruner(store *Store, maxAge, interval time.Duration) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Pruner{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Run prunes periodically until ctx is cancelled. A maxAge of zero disables
// pruning entirely.
func (p *Pruner) Run(ctx context.Context) {
	if p.maxAge <= 0 {
		return
	}
	for {
		if err := p.RunOnce(); err != nil {
			p.logger.Error("pruning analyses failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval):
		}
	}
}

// RunOnce applies the retention window a single time.
func (p *Pruner) RunOnce() error {
	cutoff := time.Now().UTC().Add(-p.maxAge)
	n, err := p.store.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		p.logger.Info("pruned old analyses", "deleted", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}

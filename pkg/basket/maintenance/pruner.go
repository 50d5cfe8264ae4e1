package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/akins11/market-basket-analysis-web-app/internal/logging"
	"github.com/akins11/market-basket-analysis-web-app/pkg/basket/store"
)

// Pruner removes stale rule snapshots.
type Pruner struct {
	Store store.Store
	// MaxAge drops snapshots older than this; 0 keeps them regardless of age.
	MaxAge time.Duration
	// KeepPerDataset keeps at most this many of the newest snapshots of each
	// dataset; 0 means no limit.
	KeepPerDataset int
	Now            func() time.Time
}

// Result summarizes the pruning run.
type Result struct {
	Processed int
	Deleted   int
	Errors    int
}

// Prune walks every snapshot, newest first, deleting the ones past the
// retention limits.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var res Result
	if p.Store == nil {
		return res, errors.New("pruner: invalid configuration")
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	snaps, err := p.Store.ListSnapshots(ctx, "")
	if err != nil {
		return res, err
	}

	seen := make(map[string]int)
	for _, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Processed++
		seen[snap.Dataset]++

		tooOld := p.MaxAge > 0 && now().Sub(snap.CreatedAt) > p.MaxAge
		tooMany := p.KeepPerDataset > 0 && seen[snap.Dataset] > p.KeepPerDataset
		if !tooOld && !tooMany {
			continue
		}
		if err := p.Store.DeleteSnapshot(ctx, snap.ID); err != nil {
			res.Errors++
			continue
		}
		res.Deleted++
	}

	logging.Debug().
		Int("processed", res.Processed).
		Int("deleted", res.Deleted).
		Int("errors", res.Errors).
		Msg("pruned snapshots")
	return res, nil
}

// Run prunes every interval until ctx is done.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Prune(ctx); err != nil && ctx.Err() == nil {
				logging.Err(err).Msg("snapshot pruning failed")
			}
		}
	}
}

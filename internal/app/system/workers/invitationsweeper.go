// internal/app/system/workers/invitationsweeper.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sparktrack/sparktrack/internal/app/system/metrics"
	"github.com/sparktrack/sparktrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// InvitationSource is the part of the invitation store the sweeper needs.
type InvitationSource interface {
	GroupIDs(ctx context.Context) ([]string, error)
	DeleteByGroups(ctx context.Context, groupIDs []string) (int64, error)
}

// DraftSource reports which of the given drafts still exist with status DRAFT.
type DraftSource interface {
	OpenAmong(ctx context.Context, groupIDs []string) (map[string]bool, error)
}

// InvitationSweeper is a background worker that removes invitations whose
// draft was confirmed, cancelled or deleted. Confirmation deletes its
// invitations after commit on a best-effort basis; this reaps what that
// step left behind.
type InvitationSweeper struct {
	invitations InvitationSource
	drafts      DraftSource
	metrics     *metrics.Formation
	log         *zap.Logger
	interval    time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewInvitationSweeper creates a new sweeper. m may be nil.
func NewInvitationSweeper(inv InvitationSource, drafts DraftSource, m *metrics.Formation, logger *zap.Logger, interval time.Duration) *InvitationSweeper {
	return &InvitationSweeper{
		invitations: inv,
		drafts:      drafts,
		metrics:     m,
		log:         logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *InvitationSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invitation sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *InvitationSweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("invitation sweeper stopped")
}

func (w *InvitationSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
			if _, err := w.Sweep(ctx); err != nil {
				w.log.Error("invitation sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Sweep performs one pass and returns the number of invitations removed.
func (w *InvitationSweeper) Sweep(ctx context.Context) (int64, error) {
	groupIDs, err := w.invitations.GroupIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(groupIDs) == 0 {
		return 0, nil
	}

	open, err := w.drafts.OpenAmong(ctx, groupIDs)
	if err != nil {
		return 0, err
	}

	var orphaned []string
	for _, id := range groupIDs {
		if !open[id] {
			orphaned = append(orphaned, id)
		}
	}
	if len(orphaned) == 0 {
		return 0, nil
	}

	count, err := w.invitations.DeleteByGroups(ctx, orphaned)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		w.metrics.OrphansSwept(count)
		w.log.Info("swept orphaned invitations",
			zap.Int64("count", count),
			zap.Int("drafts", len(orphaned)))
	}
	return count, nil
}

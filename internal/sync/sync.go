// Package sync keeps the local snapshot of every entity collection in step
// with the remote store. A refresh replaces whole collections with the
// latest fetch; it never merges. The only data a refresh must not clobber
// is whatever the user is composing, so callers assert a composing intent
// explicitly and the cycle is suppressed while they do.
package sync

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/infra/observability"
	"github.com/yengrand82/Loan-Manager/internal/port"
)

var tracer = otel.Tracer("sync")

// Controller fetches and applies snapshots. Concurrent refreshes are
// resolved last-completed-wins: a slow fetch that finishes after a newer
// one has already been applied is discarded, but an in-flight fetch that
// finishes first still lands.
type Controller struct {
	store   port.SnapshotReader
	metrics *observability.Metrics
	logger  *zap.Logger

	mu         sync.Mutex
	snap       *domain.Snapshot
	nextTicket uint64
	applied    uint64
	selected   string // borrower id pinned by the UI, re-resolved per snapshot
}

// NewController creates a Controller with an empty snapshot.
func NewController(store port.SnapshotReader, metrics *observability.Metrics, logger *zap.Logger) *Controller {
	return &Controller{
		store:   store,
		metrics: metrics,
		logger:  logger,
		snap:    &domain.Snapshot{},
	}
}

// Snapshot returns the last successfully applied snapshot. Never nil.
func (c *Controller) Snapshot() *domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Refresh fetches all four collections and replaces the snapshot. With
// composing set, the cycle is suppressed entirely: nothing is fetched and
// nothing replaced. A failed fetch leaves the previous snapshot in place.
func (c *Controller) Refresh(ctx context.Context, composing bool) (applied bool, err error) {
	ctx, span := tracer.Start(ctx, "Sync.Refresh")
	defer span.End()

	if composing {
		c.metrics.IncrRefresh(observability.RefreshSuppressed)
		c.logger.Debug("refresh suppressed while composing")
		return false, nil
	}

	c.mu.Lock()
	c.nextTicket++
	ticket := c.nextTicket
	c.mu.Unlock()

	start := time.Now()
	fresh := &domain.Snapshot{FetchedAt: start}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fresh.Borrowers, err = c.store.GetBorrowers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		fresh.Loans, err = c.store.GetLoans(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		fresh.Payments, err = c.store.GetPayments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		fresh.Applications, err = c.store.GetApplications(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.metrics.IncrRefresh(observability.RefreshFailed)
		c.logger.Warn("snapshot refresh failed, keeping previous snapshot",
			zap.Error(err),
		)
		return false, err
	}
	c.metrics.RecordRequestDuration("snapshot_refresh", time.Since(start))

	c.mu.Lock()
	defer c.mu.Unlock()
	if ticket <= c.applied {
		// A refresh that started later already landed.
		c.metrics.IncrRefresh(observability.RefreshSuperseded)
		c.logger.Debug("refresh superseded by a newer completed one",
			zap.Uint64("ticket", ticket),
			zap.Uint64("applied", c.applied),
		)
		return false, nil
	}
	c.snap = fresh
	c.applied = ticket
	c.metrics.IncrRefresh(observability.RefreshApplied)
	c.logger.Info("snapshot applied",
		zap.Int("borrowers", len(fresh.Borrowers)),
		zap.Int("loans", len(fresh.Loans)),
		zap.Int("payments", len(fresh.Payments)),
		zap.Int("applications", len(fresh.Applications)),
		zap.Duration("fetch_time", time.Since(start)),
	)
	return true, nil
}

// Run refreshes on a fixed interval until ctx is done. The composing
// callback is consulted at every tick; while it reports true the tick is
// suppressed, so in-progress input survives live-view polling.
func (c *Controller) Run(ctx context.Context, interval time.Duration, composing func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Refresh(ctx, composing()); err != nil {
				// Already logged and counted; the loop keeps going.
				continue
			}
		}
	}
}

// SelectBorrower pins a borrower id. The pin survives snapshot
// replacement; Selected re-resolves it against the freshest data.
func (c *Controller) SelectBorrower(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = id
}

// Selected resolves the pinned borrower against the current snapshot.
// Returns false when nothing is pinned or the borrower vanished upstream.
func (c *Controller) Selected() (domain.Borrower, bool) {
	c.mu.Lock()
	snap, id := c.snap, c.selected
	c.mu.Unlock()

	if id == "" {
		return domain.Borrower{}, false
	}
	b, ok := snap.FindBorrower(id)
	if !ok {
		return domain.Borrower{}, false
	}
	return *b, true
}

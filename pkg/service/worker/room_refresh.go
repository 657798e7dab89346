package worker

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
	"github.com/aseriousbiz/abbot/pkg/utils/metrics"
)

// DefaultRoomBatchSize is how many stale rooms of one organization are
// refreshed per cycle
const DefaultRoomBatchSize = 50

// RoomResolver refreshes rooms from Slack. usecase.Resolver implements it.
type RoomResolver interface {
	ResolveRooms(ctx context.Context, channelIDs []string, org *model.Organization, forceRefresh bool) ([]*model.Room, error)
}

// RoomRefreshWorker manages background refresh of rooms whose Slack data
// went stale.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Organizations are processed one after another, and so are their rooms
type RoomRefreshWorker struct {
	repo      interfaces.Repository
	resolver  RoomResolver
	interval  time.Duration
	staleness time.Duration
	batchSize int
	now       func() time.Time
	metrics   *metrics.Metrics
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// RoomRefreshOption is a functional option for RoomRefreshWorker
type RoomRefreshOption func(*RoomRefreshWorker)

// WithStaleness sets the age after which a room is refreshed
func WithStaleness(d time.Duration) RoomRefreshOption {
	return func(w *RoomRefreshWorker) {
		w.staleness = d
	}
}

// WithBatchSize caps the rooms refreshed per organization and cycle
func WithBatchSize(n int) RoomRefreshOption {
	return func(w *RoomRefreshWorker) {
		w.batchSize = n
	}
}

// WithClock overrides the clock used to compute the staleness cutoff
func WithClock(now func() time.Time) RoomRefreshOption {
	return func(w *RoomRefreshWorker) {
		w.now = now
	}
}

// WithMetrics counts refreshed rooms
func WithMetrics(m *metrics.Metrics) RoomRefreshOption {
	return func(w *RoomRefreshWorker) {
		w.metrics = m
	}
}

// NewRoomRefreshWorker creates a new worker for refreshing rooms
func NewRoomRefreshWorker(repo interfaces.Repository, resolver RoomResolver, interval time.Duration, opts ...RoomRefreshOption) *RoomRefreshWorker {
	w := &RoomRefreshWorker{
		repo:      repo,
		resolver:  resolver,
		interval:  interval,
		staleness: model.DefaultRoomStaleness,
		batchSize: DefaultRoomBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background refresh loop
// - The first cycle runs right away in the background goroutine
// - Does not block server startup
func (w *RoomRefreshWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("refresh interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Room refresh worker starting",
		"interval", w.interval.String(),
		"staleness", w.staleness.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *RoomRefreshWorker) Stop() {
	logging.Default().Info("Room refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Room refresh worker stopped")
}

// Done is closed once the worker loop has exited
func (w *RoomRefreshWorker) Done() <-chan struct{} {
	return w.doneCh
}

func (w *RoomRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.RefreshOnce(ctx); err != nil {
		logging.Default().Error("Initial room refresh failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.RefreshOnce(ctx); err != nil {
				logging.Default().Error("Room refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("Room refresh worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Room refresh worker context cancelled")
			return
		}
	}
}

// RefreshOnce runs a single refresh cycle and returns the number of rooms
// refreshed. A failing organization does not stop the others; their errors
// are returned together.
func (w *RoomRefreshWorker) RefreshOnce(ctx context.Context) (int, error) {
	startTime := time.Now()
	logger := logging.From(ctx)

	orgs, err := w.repo.Organization().List(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list organizations")
	}

	cutoff := w.now().Add(-w.staleness)
	var (
		total int
		errs  *multierror.Error
	)
	for _, org := range orgs {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}
		// foreign and uninstalled organizations cannot call Slack
		if !org.IsSlack() || !org.HasAPIToken() {
			continue
		}

		n, err := w.refreshOrganization(ctx, org, cutoff)
		total += n
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	w.metrics.RoomsRefreshed(total)
	logger.Info("Room refresh completed",
		"count", total,
		"organizations", len(orgs),
		"duration", time.Since(startTime).String())

	return total, errs.ErrorOrNil()
}

func (w *RoomRefreshWorker) refreshOrganization(ctx context.Context, org *model.Organization, cutoff time.Time) (int, error) {
	stale, err := w.repo.Room().ListStale(ctx, org.ID, cutoff, w.batchSize)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list stale rooms", goerr.V("organization_id", org.ID))
	}
	if len(stale) == 0 {
		return 0, nil
	}

	channelIDs := make([]string, len(stale))
	for i, room := range stale {
		channelIDs[i] = room.PlatformRoomID
	}

	rooms, err := w.resolver.ResolveRooms(ctx, channelIDs, org, true)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to refresh rooms",
			goerr.V("organization_id", org.ID),
			goerr.V("count", len(channelIDs)))
	}
	return len(rooms), nil
}

package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mawsool/cx-insights/backend/internal/alerts"
	"github.com/mawsool/cx-insights/backend/internal/types"
)

// Runner produces a dashboard snapshot for a queue and date range.
type Runner interface {
	Run(ctx context.Context, queueID string, start, end time.Time) (*types.Snapshot, error)
}

// QueueResolver maps a configured queue name to its platform ID.
type QueueResolver interface {
	LookupQueueID(ctx context.Context, name string) (string, error)
}

// Broadcaster pushes refreshed snapshots to connected dashboard clients.
type Broadcaster interface {
	Broadcast(message []byte)
	ClientCount() int
}

// Poller periodically refreshes the current shift's snapshot and keeps the
// most recent result available for HTTP and websocket consumers.
//
// Concurrent fetches are serialized by outcome, not execution: each fetch
// takes a generation number up front and only the fetch holding the newest
// generation may publish, so a slow periodic refresh cannot overwrite the
// result of a later on-demand fetch.
type Poller struct {
	runner    Runner
	queues    QueueResolver
	hub       Broadcaster
	queueName string
	interval  time.Duration
	threshold float64
	logger    zerolog.Logger

	generation atomic.Uint64

	mu          sync.RWMutex
	queueID     string
	latest      *types.Snapshot
	latestJSON  []byte
	alerts      []types.Alert
	lastRefresh time.Time
}

func New(runner Runner, queues QueueResolver, hub Broadcaster, queueName string, interval time.Duration, mosThreshold float64, logger zerolog.Logger) *Poller {
	return &Poller{
		runner:    runner,
		queues:    queues,
		hub:       hub,
		queueName: queueName,
		interval:  interval,
		threshold: mosThreshold,
		logger:    logger.With().Str("component", "poller").Logger(),
	}
}

// Start refreshes once immediately, then on every tick until ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Str("queue", p.queueName).Msg("poller started")

	if _, err := p.Fetch(ctx, time.Now(), time.Now()); err != nil {
		p.logger.Error().Err(err).Msg("initial refresh failed")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poller stopped")
			return

		case now := <-ticker.C:
			if _, err := p.Fetch(ctx, now, now); err != nil {
				p.logger.Error().Err(err).Msg("periodic refresh failed")
			}
		}
	}
}

// Fetch aggregates the given date range and, if no newer fetch has started
// in the meantime, publishes the result as the current snapshot. The
// snapshot is returned to the caller either way.
func (p *Poller) Fetch(ctx context.Context, start, end time.Time) (*types.Snapshot, error) {
	gen := p.generation.Add(1)

	queueID, err := p.resolveQueueID(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue lookup: %w", err)
	}

	snapshot, err := p.runner.Run(ctx, queueID, start, end)
	if err != nil {
		return nil, err
	}

	p.publish(gen, snapshot)
	return snapshot, nil
}

// resolveQueueID looks up the configured queue once and caches the ID.
// A failed lookup is retried on the next fetch.
func (p *Poller) resolveQueueID(ctx context.Context) (string, error) {
	p.mu.RLock()
	cached := p.queueID
	p.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	id, err := p.queues.LookupQueueID(ctx, p.queueName)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.queueID = id
	p.mu.Unlock()
	p.logger.Info().Str("queue", p.queueName).Str("queue_id", id).Msg("queue resolved")
	return id, nil
}

func (p *Poller) publish(gen uint64, snapshot *types.Snapshot) {
	if gen != p.generation.Load() {
		p.logger.Debug().Uint64("generation", gen).Msg("stale fetch result discarded")
		return
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}

	quality := alerts.CheckMOSAlerts(snapshot.History, p.threshold)

	p.mu.Lock()
	// Re-check under the lock so two publishers cannot interleave
	if gen != p.generation.Load() {
		p.mu.Unlock()
		return
	}
	p.latest = snapshot
	p.latestJSON = payload
	p.alerts = quality
	p.lastRefresh = time.Now()
	p.mu.Unlock()

	if p.hub != nil {
		p.hub.Broadcast(payload)
		p.logger.Debug().
			Int("clients", p.hub.ClientCount()).
			Int("alerts", len(quality)).
			Msg("snapshot published")
	}
}

// Latest returns the most recently published snapshot, or nil before the
// first successful refresh.
func (p *Poller) Latest() *types.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// LatestJSON returns the marshaled form of the latest snapshot for direct
// writes to websocket clients.
func (p *Poller) LatestJSON() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latestJSON
}

// Alerts returns the quality alerts derived from the latest snapshot.
func (p *Poller) Alerts() []types.Alert {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.alerts == nil {
		return []types.Alert{}
	}
	return p.alerts
}

// LastRefresh reports when the current snapshot was published.
func (p *Poller) LastRefresh() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastRefresh
}

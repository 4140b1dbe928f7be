package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/JJ-Intelligence/slide-tac-toe/pkg/game"
	"github.com/JJ-Intelligence/slide-tac-toe/pkg/metrics"
	"go.uber.org/zap"
)

// Queue is the matchmaking queue a timed out player is removed from.
type Queue interface {
	Cancel(playerID string) bool
}

// Sessions finds the sessions a timed out player is part of.
type Sessions interface {
	SessionsWith(playerID string) []*game.Session
}

// Monitor periodically evicts players whose last heartbeat is older than
// the timeout: they leave the matchmaking queue and are marked disconnected
// in every session they joined, which may hand their opponent a forfeit.
type Monitor struct {
	log      *zap.Logger
	table    *Table
	queue    Queue
	sessions Sessions
	interval time.Duration
	timeout  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(table *Table, queue Queue, sessions Sessions, interval, timeout time.Duration, log *zap.Logger) *Monitor {
	return &Monitor{
		log:      log,
		table:    table,
		queue:    queue,
		sessions: sessions,
		interval: interval,
		timeout:  timeout,
	}
}

// Start runs the sweep loop in the background until Stop is called.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.Run(ctx)
	}()
}

// Stop cancels the sweep loop and waits for it to finish. A player being
// evicted when Stop is called is fully evicted first.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.log.Info("Liveness monitor stopped")
}

// Run sweeps every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("Liveness monitor started",
		zap.Duration("interval", m.interval),
		zap.Duration("timeout", m.timeout))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep evicts every stale player. ctx is only checked between players.
// Returns the evicted player IDs.
func (m *Monitor) Sweep(ctx context.Context) []string {
	var evicted []string
	for _, playerID := range m.table.Stale(m.timeout) {
		if ctx.Err() != nil {
			break
		}
		if m.evict(playerID) {
			evicted = append(evicted, playerID)
		}
	}
	return evicted
}

func (m *Monitor) evict(playerID string) bool {
	// A heartbeat since the stale check keeps the player
	if !m.table.RemoveIfStale(playerID, m.timeout) {
		return false
	}

	m.log.Info("Player timed out", zap.String("player_id", playerID))
	metrics.LivenessEvictions.Inc()

	if m.queue.Cancel(playerID) {
		m.log.Info("Removed timed out player from matchmaking", zap.String("player_id", playerID))
	}
	for _, session := range m.sessions.SessionsWith(playerID) {
		forfeit := session.MarkDisconnected(playerID)
		m.log.Info("Timed out player marked disconnected",
			zap.String("game_id", session.ID),
			zap.String("player_id", playerID),
			zap.Bool("forfeit", forfeit))
	}
	return true
}
